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

package dicom

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/dicomtest"
)

var (
	patientName    = dicomtest.Text(uint32(PatientNameTag), "PN", "Doe^John")
	studyDate      = dicomtest.Text(uint32(StudyDateTag), "DA", "19990101")
	imageType      = dicomtest.Text(0x00080008, "CS", "ORIGINAL", "PRIMARY")
	rows           = dicomtest.Element{Tag: 0x00280010, VR: "US", Value: []uint16{512}}
	referencedItem = []dicomtest.Element{
		dicomtest.Text(0x00081150, "UI", "1.2.840.10008.5.1.4.1.1.4"),
		dicomtest.Text(0x00081155, "UI", "1.2.3.4.5.6.7"),
	}
	referencedImages = dicomtest.Seq(0x00081140, referencedItem)
	pixelData        = dicomtest.Element{Tag: uint32(PixelDataTag), VR: "OW", Value: []byte{0x11, 0x11, 0x22, 0x22}}
)

// sampleElements are written in ascending tag order, as a conformant writer does
func sampleElements() []dicomtest.Element {
	return []dicomtest.Element{imageType, studyDate, referencedImages, patientName, rows, pixelData}
}

func parseBytes(t *testing.T, data []byte, opts ...ParseOption) *DataSet {
	t.Helper()
	ds, err := Parse(bytes.NewReader(data), opts...)
	if err != nil {
		t.Fatalf("Parse(_) => %v", err)
	}
	return ds
}

func valueOf(t *testing.T, ds *DataSet, tag DataElementTag) interface{} {
	t.Helper()
	elem, ok := ds.Elements[tag]
	if !ok {
		t.Fatalf("expected element %v in data set:\n%v", tag, ds)
	}
	return elem.ValueField
}

func checkSampleDataSet(t *testing.T, ds *DataSet) {
	t.Helper()
	tests := []struct {
		tag  DataElementTag
		want interface{}
	}{
		{PatientNameTag, []string{"Doe^John"}},
		{StudyDateTag, []string{"19990101"}},
		{0x00080008, []string{"ORIGINAL", "PRIMARY"}},
		{0x00280010, []uint16{512}},
		{PixelDataTag, []byte{0x11, 0x11, 0x22, 0x22}},
	}
	for _, tc := range tests {
		if got := valueOf(t, ds, tc.tag); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("value of %v: got %v, want %v", tc.tag, got, tc.want)
		}
	}

	seq, ok := valueOf(t, ds, 0x00081140).(*Sequence)
	if !ok {
		t.Fatalf("expected *Sequence for ReferencedImageSequence, got %T", ds.Elements[0x00081140].ValueField)
	}
	if len(seq.Items) != 1 {
		t.Fatalf("got %v items, want 1", len(seq.Items))
	}
	item := seq.Items[0]
	if got, want := valueOf(t, item, 0x00081155), []string{"1.2.3.4.5.6.7"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("nested ReferencedSOPInstanceUID: got %v, want %v", got, want)
	}
	if got, want := valueOf(t, item, 0x00081150), []string{"1.2.840.10008.5.1.4.1.1.4"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("nested ReferencedSOPClassUID: got %v, want %v", got, want)
	}
}
