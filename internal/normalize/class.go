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

// Class groups the VRs that share a conversion
type Class int

const (
	// StringClass VRs are kept as text
	StringClass Class = iota
	// IntegerClass VRs are binary integers and attribute tags
	IntegerClass
	// FloatClass VRs are binary floating point numbers
	FloatClass
	DateClass
	DateTimeClass
	// TimeClass VRs are kept verbatim as text
	TimeClass
	PersonNameClass
	SequenceClass
	// BinaryClass VRs are opaque payloads
	BinaryClass
)

func (c Class) String() string {
	switch c {
	case StringClass:
		return "string"
	case IntegerClass:
		return "integer"
	case FloatClass:
		return "float"
	case DateClass:
		return "date"
	case DateTimeClass:
		return "datetime"
	case TimeClass:
		return "time"
	case PersonNameClass:
		return "personname"
	case SequenceClass:
		return "sequence"
	case BinaryClass:
		return "binary"
	}
	return "unknown"
}

// ClassOf returns the class of a two letter VR code
func ClassOf(vr string) (Class, error) {
	switch vr {
	case "AE", "AS", "CS", "DS", "IS", "LO", "LT", "SH", "ST", "UC", "UI", "UN", "UR", "UT":
		return StringClass, nil
	case "AT", "SL", "SS", "SV", "UL", "US", "UV":
		return IntegerClass, nil
	case "FL", "FD":
		return FloatClass, nil
	case "DA":
		return DateClass, nil
	case "DT":
		return DateTimeClass, nil
	case "TM":
		return TimeClass, nil
	case "PN":
		return PersonNameClass, nil
	case "SQ":
		return SequenceClass, nil
	case "OB", "OD", "OF", "OL", "OV", "OW":
		return BinaryClass, nil
	}
	return 0, &UnknownVRError{VR: vr}
}
