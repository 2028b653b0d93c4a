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
	"errors"
	"math"
	"testing"
	"time"

	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/dicom"
)

var (
	vm1  = dicom.VM{Min: 1, Max: 1}
	vm2  = dicom.VM{Min: 2, Max: 2}
	vm1n = dicom.VM{Min: 1, Unbounded: true}
)

func elem(tag uint32, keyword, vr string, vm dicom.VM, values ...interface{}) Element {
	return Element{Tag: dicom.DataElementTag(tag), Keyword: keyword, VR: vr, VM: vm, Values: values}
}

func seq(tag uint32, keyword string, items ...[]Element) Element {
	return Element{Tag: dicom.DataElementTag(tag), Keyword: keyword, VR: "SQ", VM: vm1, Items: items}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Element
		want Value
	}{
		{
			"date is converted to a calendar date",
			elem(0x00080020, "StudyDate", "DA", vm1, "19990101"),
			Date(1999, time.January, 1),
		},
		{
			"empty date is the 1900-01-01 sentinel",
			elem(0x00080020, "StudyDate", "DA", vm1, ""),
			Date(1900, time.January, 1),
		},
		{
			"date time with offset is the UTC instant",
			elem(0x0008002A, "AcquisitionDateTime", "DT", vm1, "20200131235959.123+0200"),
			DateTime(time.Date(2020, time.January, 31, 21, 59, 59, 123000000, time.UTC)),
		},
		{
			"date time with Z offset",
			elem(0x0008002A, "AcquisitionDateTime", "DT", vm1, "20200131235959.000001Z"),
			DateTime(time.Date(2020, time.January, 31, 23, 59, 59, 1000, time.UTC)),
		},
		{
			"empty date time is null",
			elem(0x0008002A, "AcquisitionDateTime", "DT", vm1),
			Null(),
		},
		{
			"time is kept verbatim",
			elem(0x00080030, "StudyTime", "TM", vm1, "101112.5"),
			String("101112.5"),
		},
		{
			"single valued string is a scalar",
			elem(0x00100020, "PatientID", "LO", vm1, "ABC123"),
			String("ABC123"),
		},
		{
			"multi valued string is a list",
			elem(0x00080008, "ImageType", "CS", dicom.VM{Min: 2, Unbounded: true}, "ORIGINAL", "PRIMARY"),
			List(String("ORIGINAL"), String("PRIMARY")),
		},
		{
			"multi valued VM with a single value is still a list",
			elem(0x00080008, "ImageType", "CS", dicom.VM{Min: 2, Unbounded: true}, "ORIGINAL"),
			List(String("ORIGINAL")),
		},
		{
			"several values of a single valued string are joined",
			elem(0x00100020, "PatientID", "LO", vm1, "A", "B"),
			String(`A\B`),
		},
		{
			"empty multi valued string is an empty list",
			elem(0x00080008, "ImageType", "CS", dicom.VM{Min: 2, Unbounded: true}, ""),
			List(),
		},
		{
			"decimal strings stay strings",
			elem(0x00280030, "PixelSpacing", "DS", vm2, "0.5", "0.25"),
			List(String("0.5"), String("0.25")),
		},
		{
			"unsigned short is an integer",
			elem(0x00280010, "Rows", "US", vm1, int64(512)),
			Int(512),
		},
		{
			"empty integer is zero",
			elem(0x00280010, "Rows", "US", vm1),
			Int(0),
		},
		{
			"very long unsigned within range",
			elem(0x00720083, "SelectorUVValue", "UV", vm1n, uint64(7), uint64(1<<40)),
			List(Int(7), Int(1<<40)),
		},
		{
			"attribute tag is an integer",
			elem(0x00280009, "FrameIncrementPointer", "AT", vm1n, int64(0x00181063)),
			List(Int(0x00181063)),
		},
		{
			"double is a float",
			elem(0x0018602C, "PhysicalDeltaX", "FD", vm1, 0.125),
			Float(0.125),
		},
		{
			"empty float is zero",
			elem(0x0018602C, "PhysicalDeltaX", "FD", vm1),
			Float(0),
		},
		{
			"float list",
			elem(0x00700022, "GraphicData", "FL", dicom.VM{Min: 2, Unbounded: true}, 1.5, 2.5),
			List(Float(1.5), Float(2.5)),
		},
		{
			"person name components",
			elem(0x00100010, "PatientName", "PN", vm1, "Doe^John^Q^Dr^Jr=ideo=phon"),
			Person(PersonName{"Doe", "John", "Q", "Dr", "Jr", "ideo", "phon"}),
		},
		{
			"empty person name has all components empty",
			elem(0x00100010, "PatientName", "PN", vm1, ""),
			Person(PersonName{}),
		},
		{
			"multi valued person names",
			elem(0x00101001, "OtherPatientNames", "PN", vm1n, "Doe^Jane", "Roe"),
			List(Person(PersonName{FamilyName: "Doe", GivenName: "Jane"}), Person(PersonName{FamilyName: "Roe"})),
		},
		{
			"binary is redacted",
			elem(0x7FE00010, "PixelData", "OB", vm1, []byte{1, 2, 3}),
			String(Redacted),
		},
		{
			"empty binary is redacted",
			elem(0x7FE00010, "PixelData", "OB", vm1),
			String(Redacted),
		},
		{
			"empty sequence is an empty string",
			seq(0x00081140, "ReferencedImageSequence"),
			String(""),
		},
		{
			"sequence with an empty item is null",
			seq(0x00081140, "ReferencedImageSequence", []Element{}),
			Null(),
		},
		{
			"sequence items are merged and later items win",
			seq(0x00081140, "ReferencedImageSequence",
				[]Element{
					elem(0x00081150, "ReferencedSOPClassUID", "UI", vm1, "1.2.3"),
					elem(0x00081155, "ReferencedSOPInstanceUID", "UI", vm1, "1.2.3.4"),
				},
				[]Element{
					elem(0x00081155, "ReferencedSOPInstanceUID", "UI", vm1, "1.2.3.5"),
					elem(0x00291010, "", "OB", vm1, []byte{1}),
				}),
			Map(map[string]Value{
				"ReferencedSOPClassUID":    String("1.2.3"),
				"ReferencedSOPInstanceUID": String("1.2.3.5"),
			}),
		},
		{
			"empty children of an item are normalized",
			seq(0x00081032, "ProcedureCodeSequence",
				[]Element{
					elem(0x00080104, "CodeMeaning", "LO", vm1, ""),
					elem(0x00080020, "StudyDate", "DA", vm1),
				}),
			Map(map[string]Value{
				"CodeMeaning": String(""),
				"StudyDate":   EmptyDate,
			}),
		},
		{
			"nested sequences",
			seq(0x00082112, "SourceImageSequence",
				[]Element{
					seq(0x00081032, "ProcedureCodeSequence",
						[]Element{elem(0x00080104, "CodeMeaning", "LO", vm1, "CT HEAD")}),
				}),
			Map(map[string]Value{
				"ProcedureCodeSequence": Map(map[string]Value{"CodeMeaning": String("CT HEAD")}),
			}),
		},
	}

	n := New()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := n.Normalize(tc.in)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNormalize_BinaryWithoutRedaction(t *testing.T) {
	n := &Normalizer{RedactBinary: false}
	tests := []struct {
		in   Element
		want Value
	}{
		{elem(0x7FE00010, "PixelData", "OB", vm1, []byte("hello")), String("aGVsbG8=")},
		{elem(0x7FE00010, "PixelData", "OW", vm1), String("")},
	}
	for _, tc := range tests {
		got, err := n.Normalize(tc.in)
		if err != nil {
			t.Fatalf("Normalize(%v): %v", tc.in.VR, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("got %v, want %v", got, tc.want)
		}
	}
}

func TestNormalize_ConversionErrors(t *testing.T) {
	tests := []struct {
		name string
		in   Element
	}{
		{"malformed date", elem(0x00080020, "StudyDate", "DA", vm1, "1999-01-01")},
		{"impossible date", elem(0x00080020, "StudyDate", "DA", vm1, "19991350")},
		{"date time without offset", elem(0x0008002A, "AcquisitionDateTime", "DT", vm1, "20200131235959.123")},
		{"date time without fraction", elem(0x0008002A, "AcquisitionDateTime", "DT", vm1, "20200131235959+0000")},
		{"integer text", elem(0x00280010, "Rows", "US", vm1, "many")},
		{"float text", elem(0x0018602C, "PhysicalDeltaX", "FD", vm1, "wide")},
		{"unsigned overflow", elem(0x00720083, "SelectorUVValue", "UV", vm1, uint64(1<<63))},
	}
	n := New()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := n.Normalize(tc.in)
			var convErr *ConversionError
			if !errors.As(err, &convErr) {
				t.Fatalf("got error %v, want a *ConversionError", err)
			}
			if convErr.Keyword != tc.in.Keyword || convErr.Tag != tc.in.Tag {
				t.Fatalf("error names %v %s, want %v %s", convErr.Tag, convErr.Keyword, tc.in.Tag, tc.in.Keyword)
			}
		})
	}
}

func TestNormalize_UnknownVR(t *testing.T) {
	_, err := New().Normalize(elem(0x00100010, "PatientName", "ZZ", vm1, "x"))
	var vrErr *UnknownVRError
	if !errors.As(err, &vrErr) || vrErr.VR != "ZZ" {
		t.Fatalf("got %v, want UnknownVRError for ZZ", err)
	}
}

func TestNormalize_UnknownVRInsideSequence(t *testing.T) {
	in := seq(0x00081140, "ReferencedImageSequence", []Element{elem(0x00081150, "ReferencedSOPClassUID", "??", vm1, "x")})
	_, err := New().Normalize(in)
	var vrErr *UnknownVRError
	if !errors.As(err, &vrErr) {
		t.Fatalf("got %v, want UnknownVRError", err)
	}
}

func TestNormalize_SequenceDepthLimit(t *testing.T) {
	inner := seq(0x00081032, "ProcedureCodeSequence", []Element{elem(0x00080104, "CodeMeaning", "LO", vm1, "x")})
	for i := 0; i < 3; i++ {
		inner = seq(0x00081032, "ProcedureCodeSequence", []Element{inner})
	}

	if _, err := (&Normalizer{MaxDepth: 4}).Normalize(inner); err != nil {
		t.Fatalf("4 levels with MaxDepth 4: %v", err)
	}
	_, err := (&Normalizer{MaxDepth: 3}).Normalize(inner)
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("4 levels with MaxDepth 3: got %v, want a *ConversionError", err)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	in := seq(0x00081140, "ReferencedImageSequence", []Element{
		elem(0x00081150, "ReferencedSOPClassUID", "UI", vm1, "1.2.3"),
		elem(0x00080020, "StudyDate", "DA", vm1, "20010203"),
		elem(0x00100010, "PatientName", "PN", vm1, "Doe^John"),
		elem(0x00189087, "DiffusionBValue", "FD", vm1, math.NaN()),
	})
	n := New()
	first, err := n.Normalize(in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	second, err := n.Normalize(in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !first.Equal(second) {
		t.Fatalf("results differ: %v and %v", first, second)
	}
}

func TestElement_IsEmpty(t *testing.T) {
	tests := []struct {
		in   Element
		want bool
	}{
		{elem(0x00100020, "PatientID", "LO", vm1), true},
		{elem(0x00100020, "PatientID", "LO", vm1, ""), true},
		{elem(0x7FE00010, "PixelData", "OB", vm1, []byte{}), true},
		{elem(0x00280010, "Rows", "US", vm1, int64(0)), false},
		{elem(0x00080008, "ImageType", "CS", vm1n, "", ""), false},
		{seq(0x00081140, "ReferencedImageSequence"), true},
		{seq(0x00081140, "ReferencedImageSequence", []Element{}), false},
	}
	for i, tc := range tests {
		if got := tc.in.IsEmpty(); got != tc.want {
			t.Errorf("case %d: IsEmpty() = %v, want %v", i, got, tc.want)
		}
	}
}
