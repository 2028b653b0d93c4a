// Copyright 2018 Google LLC
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

package dicom

import (
	"fmt"

	"golang.org/x/text/encoding"
)

// dicomMetaData represents information about how objects within the DICOM file are stored
type dicomMetaData struct {
	syntax   transferSyntax
	encoding encoding.Encoding
	// depth is the number of sequence items enclosing the current data set
	depth int
}

// MaxNestingDepth is the deepest sequence item nesting the reader accepts
const MaxNestingDepth = 64

var defaultMetaData = dicomMetaData{syntax: explicitVRLittleEndian, encoding: defaultCharacterRepertoire}

func metaDataWithSyntax(syntax transferSyntax) dicomMetaData {
	return dicomMetaData{syntax: syntax, encoding: defaultCharacterRepertoire}
}

func (m dicomMetaData) nested() (dicomMetaData, error) {
	if m.depth >= MaxNestingDepth {
		return m, fmt.Errorf("sequence items nested deeper than %d", MaxNestingDepth)
	}
	m.depth++
	return m, nil
}

// withCharacterSet returns a copy of m decoding text with the encoding named by the first
// recognised defined term of a Specific Character Set (0008,0005) value. Unknown terms leave the
// current encoding in place.
func (m dicomMetaData) withCharacterSet(terms []string) dicomMetaData {
	for _, term := range terms {
		if term == "" {
			continue
		}
		coding, err := lookupEncoding(term)
		if err != nil {
			continue
		}
		m.encoding = coding
		return m
	}
	return m
}
