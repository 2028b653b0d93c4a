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
)

// vrType groups the VRs whose values are read the same way
type vrType int

const (
	// textVR values are space padded text
	textVR vrType = iota

	// numberBinaryVR values are fixed width binary numbers
	numberBinaryVR

	// bulkDataVR values are streamed through a BulkDataIterator
	bulkDataVR

	// uniqueIdentifierVR values are null padded UIDs
	uniqueIdentifierVR

	sequenceVR

	// tagVR values are attribute tags, read as pairs of 16 bit numbers
	tagVR
)

// UndefinedLength marks values and items delimited by an end marker instead of a length
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.1
const UndefinedLength = 0xffffffff

// VR is a DICOM value representation
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2
type VR struct {
	// Name is the 2-character VR code
	Name string

	kind vrType
	// longLength VRs have a reserved field and a 32 bit length in explicit VR syntaxes
	// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.2
	longLength bool
}

func (vr *VR) String() string {
	if vr == nil {
		return "??"
	}
	return vr.Name
}

// LongLength reports whether explicit VR syntaxes encode the value length of vr in 32 bits
func (vr *VR) LongLength() bool {
	return vr.longLength
}

var vrByName = map[string]*VR{}

func defineVR(name string, kind vrType, longLength bool) *VR {
	vr := &VR{Name: name, kind: kind, longLength: longLength}
	vrByName[name] = vr
	return vr
}

// LookupVR returns the VR with the given 2-character code.
func LookupVR(name string) (*VR, error) {
	if vr, ok := vrByName[name]; ok {
		return vr, nil
	}
	return nil, fmt.Errorf("unknown vr name: %q", name)
}

// explicit VR length field widths
const (
	len16 = false
	len32 = true
)

// The registered VRs, PS3.5 table 6.2-1
var (
	AEVR = defineVR("AE", textVR, len16)
	ASVR = defineVR("AS", textVR, len16)
	CSVR = defineVR("CS", textVR, len16)
	DAVR = defineVR("DA", textVR, len16)
	DSVR = defineVR("DS", textVR, len16)
	DTVR = defineVR("DT", textVR, len16)
	ISVR = defineVR("IS", textVR, len16)
	LOVR = defineVR("LO", textVR, len16)
	LTVR = defineVR("LT", textVR, len16)
	PNVR = defineVR("PN", textVR, len16)
	SHVR = defineVR("SH", textVR, len16)
	STVR = defineVR("ST", textVR, len16)
	TMVR = defineVR("TM", textVR, len16)

	FDVR = defineVR("FD", numberBinaryVR, len16)
	FLVR = defineVR("FL", numberBinaryVR, len16)
	SLVR = defineVR("SL", numberBinaryVR, len16)
	SSVR = defineVR("SS", numberBinaryVR, len16)
	ULVR = defineVR("UL", numberBinaryVR, len16)
	USVR = defineVR("US", numberBinaryVR, len16)
	SVVR = defineVR("SV", numberBinaryVR, len32)
	UVVR = defineVR("UV", numberBinaryVR, len32)

	OBVR = defineVR("OB", bulkDataVR, len32)
	ODVR = defineVR("OD", bulkDataVR, len32)
	OFVR = defineVR("OF", bulkDataVR, len32)
	OLVR = defineVR("OL", bulkDataVR, len32)
	OVVR = defineVR("OV", bulkDataVR, len32)
	OWVR = defineVR("OW", bulkDataVR, len32)
	UNVR = defineVR("UN", bulkDataVR, len32)

	// unlimited text is streamed like binary data and decoded once buffered
	UCVR = defineVR("UC", bulkDataVR, len32)
	URVR = defineVR("UR", bulkDataVR, len32)
	UTVR = defineVR("UT", bulkDataVR, len32)

	ATVR = defineVR("AT", tagVR, len16)
	UIVR = defineVR("UI", uniqueIdentifierVR, len16)
	SQVR = defineVR("SQ", sequenceVR, len32)
)
