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
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/dicomtest"
)

func TestIterator_NextElement(t *testing.T) {
	tests := []struct {
		name string
		file dicomtest.File
	}{
		{
			"Explicit Lengths, Explicit VR, Little Endian",
			dicomtest.File{TransferSyntax: dicomtest.ExplicitVRLittleEndian, UndefinedLengths: false, Elements: sampleElements()},
		},
		{
			"Undefined Sequence & Item lengths, Explicit VR, Little Endian",
			dicomtest.File{TransferSyntax: dicomtest.ExplicitVRLittleEndian, UndefinedLengths: true, Elements: sampleElements()},
		},
		{
			"Explicit Length, Explicit VR, Big Endian",
			dicomtest.File{TransferSyntax: dicomtest.ExplicitVRBigEndian, UndefinedLengths: false, Elements: sampleElements()},
		},
		{
			"Explicit Lengths, Implicit VR Little Endian",
			dicomtest.File{TransferSyntax: dicomtest.ImplicitVRLittleEndian, UndefinedLengths: false, Elements: sampleElements()},
		},
		{
			"Undefined lengths, Implicit VR Little Endian",
			dicomtest.File{TransferSyntax: dicomtest.ImplicitVRLittleEndian, UndefinedLengths: true, Elements: sampleElements()},
		},
		{
			"Deflated Explicit VR Little Endian",
			dicomtest.File{TransferSyntax: dicomtest.DeflatedExplicitVRLittleEndian, UndefinedLengths: false, Elements: sampleElements()},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			iter, err := NewDataElementIterator(bytes.NewReader(tc.file.Encode()))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			ds, err := CollectDataElements(iter)
			if err != nil {
				t.Fatalf("CollectDataElements(_) => %v", err)
			}
			checkSampleDataSet(t, ds)

			if got := valueOf(t, ds, TransferSyntaxUIDTag); got.([]string)[0] != tc.file.TransferSyntax {
				t.Fatalf("transfer syntax: got %v, want %v", got, tc.file.TransferSyntax)
			}
		})
	}
}

func TestIterator_oneByteReader(t *testing.T) {
	data := dicomtest.File{TransferSyntax: dicomtest.ExplicitVRLittleEndian, UndefinedLengths: true, Elements: sampleElements()}.Encode()

	iter, err := NewDataElementIterator(iotest.OneByteReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ds, err := CollectDataElements(iter)
	if err != nil {
		t.Fatalf("CollectDataElements(_) => %v", err)
	}
	checkSampleDataSet(t, ds)
}

func TestIterator_Close(t *testing.T) {
	r := bytes.NewReader(dicomtest.Encode(sampleElements()...))
	iter, err := NewDataElementIterator(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// read into the sequence and leave it unfinished
	for elem, err := iter.NextElement(); elem == nil || elem.Tag != 0x00081140; elem, err = iter.NextElement() {
		if err != nil {
			t.Fatalf("NextElement() => %v", err)
		}
	}

	if err := iter.Close(); err != nil {
		t.Fatalf("Close() => %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("expected Close to consume the input, %v bytes left", r.Len())
	}
	if _, err := iter.NextElement(); err != io.EOF {
		t.Fatalf("NextElement() after Close: got %v, want io.EOF", err)
	}
}

func TestNewDataElementIterator_wrongMagic(t *testing.T) {
	data := dicomtest.Encode(patientName)
	copy(data[128:], "DICN")

	if _, err := NewDataElementIterator(bytes.NewReader(data)); !errors.Is(err, ErrNoMagic) {
		t.Fatalf("got %v, want ErrNoMagic", err)
	}
}

func TestHasMagic(t *testing.T) {
	valid := dicomtest.Encode(patientName)
	wrong := append([]byte{}, valid...)
	copy(wrong[128:], "NOPE")

	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"valid file", valid, true},
		{"wrong magic word", wrong, false},
		{"magic word without preamble", []byte("DICM"), false},
		{"stream shorter than the preamble", make([]byte, 100), false},
		{"empty stream", nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := HasMagic(bytes.NewReader(tc.data))
			if err != nil {
				t.Fatalf("HasMagic(_) => %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHasMagic_readError(t *testing.T) {
	readErr := errors.New("boom")
	if _, err := HasMagic(iotest.ErrReader(readErr)); err == nil {
		t.Fatalf("expected error from failing reader")
	}
}
