// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package normalize

import (
	"fmt"
	"strings"
)

// PersonName is a PN value split into its components
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2.1
type PersonName struct {
	FamilyName  string
	GivenName   string
	MiddleName  string
	NamePrefix  string
	NameSuffix  string
	Ideographic string
	Phonetic    string
}

// ParsePersonName splits a PN value. The alphabetic group provides the five name components,
// and the ideographic and phonetic groups are kept whole.
func ParsePersonName(s string) PersonName {
	groups := strings.SplitN(s, "=", 3)
	components := strings.SplitN(groups[0], "^", 5)
	for len(components) < 5 {
		components = append(components, "")
	}
	pn := PersonName{
		FamilyName: components[0],
		GivenName:  components[1],
		MiddleName: components[2],
		NamePrefix: components[3],
		NameSuffix: components[4],
	}
	if len(groups) > 1 {
		pn.Ideographic = groups[1]
	}
	if len(groups) > 2 {
		pn.Phonetic = groups[2]
	}
	return pn
}

// Fields returns the seven components keyed by their column names
func (pn PersonName) Fields() map[string]string {
	return map[string]string{
		"FamilyName":  pn.FamilyName,
		"GivenName":   pn.GivenName,
		"Ideographic": pn.Ideographic,
		"MiddleName":  pn.MiddleName,
		"NamePrefix":  pn.NamePrefix,
		"NameSuffix":  pn.NameSuffix,
		"Phonetic":    pn.Phonetic,
	}
}

func (pn PersonName) String() string {
	return fmt.Sprintf("%s^%s^%s^%s^%s=%s=%s", pn.FamilyName, pn.GivenName, pn.MiddleName,
		pn.NamePrefix, pn.NameSuffix, pn.Ideographic, pn.Phonetic)
}
