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

package record

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/dicom"
	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/normalize"
)

// Elements converts the elements of ds, in tag order, into normalizer input. Bulk data kept as
// references (dicom.ReferenceBulkData) becomes the redaction literal, so it is only meant for
// normalizers that redact binary values.
func Elements(ds *dicom.DataSet) ([]normalize.Element, error) {
	out := make([]normalize.Element, 0, len(ds.Elements))
	for _, tag := range ds.SortedTags() {
		e, err := element(ds.Elements[tag])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func element(de *dicom.DataElement) (normalize.Element, error) {
	e := normalize.Element{Tag: de.Tag, VR: de.VR.String(), VM: dicom.VM{Min: 1, Max: 1}}
	if entry, ok := dicom.LookupTag(de.Tag); ok {
		e.Keyword = entry.Keyword
		e.VM = entry.VM
	}

	if seq, ok := de.ValueField.(*dicom.Sequence); ok {
		if seq.Len() > 0 {
			e.Items = make([][]normalize.Element, 0, seq.Len())
		}
		for _, item := range seq.Items {
			children, err := Elements(item)
			if err != nil {
				return normalize.Element{}, fmt.Errorf("item of %v: %w", de.Tag, err)
			}
			e.Items = append(e.Items, children)
		}
		return e, nil
	}

	if refs, ok := de.ValueField.([]dicom.BulkDataReference); ok {
		// referenced bulk data was skipped by the reader, so only its presence is known
		if bulkLength(refs) > 0 {
			e.Values = []interface{}{normalize.Redacted}
		}
		return e, nil
	}

	if isBinary(de.VR) {
		b, err := littleEndian(de.ValueField)
		if err != nil {
			return normalize.Element{}, fmt.Errorf("element %v: %w", de.Tag, err)
		}
		if len(b) > 0 {
			e.Values = []interface{}{b}
		}
		return e, nil
	}

	values, err := scalars(de.ValueField)
	if err != nil {
		return normalize.Element{}, fmt.Errorf("element %v: %w", de.Tag, err)
	}
	e.Values = values
	return e, nil
}

func bulkLength(refs []dicom.BulkDataReference) int64 {
	var n int64
	for _, r := range refs {
		n += r.Reference.Length
	}
	return n
}

func isBinary(vr *dicom.VR) bool {
	switch vr {
	case dicom.OBVR, dicom.ODVR, dicom.OFVR, dicom.OLVR, dicom.OVVR, dicom.OWVR:
		return true
	}
	return false
}

// littleEndian re-encodes the value of a binary VR as little endian bytes
func littleEndian(valueField interface{}) ([]byte, error) {
	switch v := valueField.(type) {
	case []byte:
		return v, nil
	case []uint32, []uint64, []float32, []float64, []uint16, []int16:
		var buf bytes.Buffer
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected binary value of type %T", valueField)
}

func scalars(valueField interface{}) ([]interface{}, error) {
	var out []interface{}
	switch v := valueField.(type) {
	case []string:
		for _, s := range v {
			out = append(out, s)
		}
	case []byte:
		out = append(out, v)
	case []int16:
		for _, n := range v {
			out = append(out, int64(n))
		}
	case []uint16:
		for _, n := range v {
			out = append(out, int64(n))
		}
	case []int32:
		for _, n := range v {
			out = append(out, int64(n))
		}
	case []uint32:
		for _, n := range v {
			out = append(out, int64(n))
		}
	case []int64:
		for _, n := range v {
			out = append(out, n)
		}
	case []uint64:
		for _, n := range v {
			out = append(out, n)
		}
	case []float32:
		for _, n := range v {
			out = append(out, float64(n))
		}
	case []float64:
		for _, n := range v {
			out = append(out, n)
		}
	case nil:
	default:
		return nil, fmt.Errorf("unexpected value of type %T", valueField)
	}
	return out, nil
}

// Build normalizes the elements of ds and flattens them into a record. Elements without a
// keyword or without a value are left out.
func Build(ds *dicom.DataSet, n *normalize.Normalizer, prov Provenance, partitionColumn string, log zerolog.Logger) (*Record, error) {
	elements, err := Elements(ds)
	if err != nil {
		return nil, fmt.Errorf("reading elements of %s: %w", prov.ArchivePath, err)
	}

	log.Debug().Str("archive_path", prov.ArchivePath).Msg("flattening data set")
	fields := make([]Field, 0, len(elements))
	for _, e := range elements {
		if e.Keyword == "" || e.IsEmpty() {
			log.Info().Stringer("tag", e.Tag).Str("vr", e.VR).Msg("ignoring tag")
			continue
		}
		v, err := n.Normalize(e)
		if err != nil {
			log.Error().Err(err).Str("archive_path", prov.ArchivePath).Stringer("tag", e.Tag).
				Str("vr", e.VR).Str("keyword", e.Keyword).Msg("invalid element")
			return nil, err
		}
		fields = append(fields, Field{e.Keyword, v})
	}

	r := Flatten(fields, prov, partitionColumn)
	if !hasField(fields, r.PartitionKey()) {
		log.Info().Str("partition_column", partitionColumn).Msg("missing partition column, adding default")
	}
	return r, nil
}

func hasField(fields []Field, keyword string) bool {
	for _, f := range fields {
		if f.Keyword == keyword {
			return true
		}
	}
	return false
}
