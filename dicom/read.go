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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/encoding"
)

func readDataElement(dr *dcmReader, metaData dicomMetaData) (*DataElement, error) {
	syntax := metaData.syntax
	tag, err := dr.Tag(syntax.byteOrder())
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("getting tag: %v", err)
	}

	if tag == ItemDelimitationItemTag {
		// handles the case when we are parsing a nested data set within a sequence with undefined
		// length. This code should never run for the top level data set
		length, err := dr.UInt32(syntax.byteOrder())
		if err != nil {
			return nil, fmt.Errorf("reading 32 bit length of item delimitation: %v", err)
		}
		if length != 0 {
			return nil, fmt.Errorf("wrong length for item delimiter. got %v, want %v", length, 0)
		}
		return nil, io.EOF
	}

	vr, err := syntax.readVR(dr, tag)
	if err != nil {
		return nil, fmt.Errorf("getting vr of %v: %v", tag, err)
	}

	length, err := syntax.readValueLength(dr, vr)
	if err != nil {
		return nil, fmt.Errorf("getting length of %v: %v", tag, err)
	}

	if vr == UNVR && length == UndefinedLength {
		// An unknown element of undefined length is a sequence encoded in implicit VR little
		// endian. http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2.2
		seqMetaData := metaData
		seqMetaData.syntax = implicitVRLittleEndian
		seq, err := newSequenceIterator(dr, length, seqMetaData)
		if err != nil {
			return nil, fmt.Errorf("parsing value of %v: %v", tag, err)
		}
		return &DataElement{tag, SQVR, seq, length}, nil
	}

	value, err := readValue(dr, vr, length, metaData)
	if err != nil {
		return nil, fmt.Errorf("parsing value of %v: %v", tag, err)
	}

	return &DataElement{tag, vr, value, length}, nil
}

func readValue(dr *dcmReader, vr *VR, length uint32, metaData dicomMetaData) (interface{}, error) {
	switch vr.kind {
	case textVR:
		return readText(dr, length, vr, metaData.encoding, unicode.IsSpace)
	case numberBinaryVR:
		return readNumberBinary(dr, length, vr, metaData.syntax.byteOrder())
	case bulkDataVR:
		return readBulkData(dr, length)
	case uniqueIdentifierVR:
		return readText(dr, length, vr, nil, func(r rune) bool {
			return r == 0x00 || r == ' '
		})
	case sequenceVR:
		return newSequenceIterator(dr, length, metaData)
	case tagVR:
		return readTag(dr, metaData.syntax, length)
	default:
		return nil, fmt.Errorf("unknown vr type found: %v", vr.kind)
	}
}

func readTag(dr *dcmReader, syntax transferSyntax, length uint32) ([]uint32, error) {
	if length == UndefinedLength {
		return nil, errors.New("attribute tag with undefined length")
	}
	ret := make([]uint32, length/4) // 4 bytes per tag

	for i := range ret {
		t, err := dr.Tag(syntax.byteOrder())
		if err != nil {
			return nil, err
		}
		ret[i] = uint32(t)
	}
	return ret, nil
}

func readText(dr *dcmReader, length uint32, vr *VR, coding encoding.Encoding, isPadding func(rune) bool) ([]string, error) {
	if length == 0 {
		return []string{}, nil
	}
	if length == UndefinedLength {
		return nil, fmt.Errorf("text field of vr %v with undefined length", vr)
	}

	raw, err := dr.Bytes(int64(length))
	if err != nil {
		return nil, fmt.Errorf("reading text field value: %v", err)
	}

	return splitText(decodeText(raw, vr, coding), vr, isPadding), nil
}

// splitText deals with value multiplicity and padding of a decoded text value
func splitText(valueField string, vr *VR, isPadding func(rune) bool) []string {
	if vr == UTVR || vr == STVR || vr == LTVR || vr == URVR {
		// backslash is not a delimiter for these VRs, and only trailing padding is insignificant
		return []string{strings.TrimRightFunc(valueField, isPadding)}
	}

	strs := strings.Split(valueField, "\\")
	for i, s := range strs {
		strs[i] = strings.TrimFunc(s, isPadding)
	}
	return strs
}

func readNumberBinary(dr *dcmReader, length uint32, vr *VR, order binary.ByteOrder) (interface{}, error) {
	if length == UndefinedLength {
		return nil, fmt.Errorf("binary number of vr %v with undefined length", vr)
	}

	var data interface{}

	switch vr {
	case SSVR:
		data = make([]int16, length/2)
	case USVR:
		data = make([]uint16, length/2)
	case SLVR:
		data = make([]int32, length/4)
	case ULVR:
		data = make([]uint32, length/4)
	case SVVR:
		data = make([]int64, length/8)
	case UVVR:
		data = make([]uint64, length/8)
	case FLVR:
		data = make([]float32, length/4)
	case FDVR:
		data = make([]float64, length/8)
	default:
		return nil, fmt.Errorf("unknown vr: %v", vr)
	}

	if err := binary.Read(dr.cr, order, data); err != nil {
		return nil, fmt.Errorf("binary.Read(_, _, _) => %v", err)
	}

	return data, nil
}

func readBulkData(dr *dcmReader, length uint32) (BulkDataIterator, error) {
	if length == UndefinedLength {
		// Specified in http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_A.4
		// an undefined length OB/OW value is pixel data in encapsulated (compressed) format
		return newEncapsulatedFormatIterator(dr), nil
	}

	// for native (uncompressed) formats, return regular bulk data stream
	return newOneShotIterator(limitCountReader(dr.cr, int64(length))), nil
}
