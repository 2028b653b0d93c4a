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

package sink

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/normalize"
)

// columnType is the parquet type a column is stored as
type columnType int

const (
	stringColumn columnType = iota
	intColumn
	floatColumn
	dateColumn
	timestampColumn
	jsonColumn
)

// tag returns the type part of the parquet-go schema tag of t
func (t columnType) tag() string {
	switch t {
	case intColumn:
		return "type=INT64"
	case floatColumn:
		return "type=DOUBLE"
	case dateColumn:
		return "type=INT32, convertedtype=DATE"
	case timestampColumn:
		return "type=INT64, convertedtype=TIMESTAMP_MICROS"
	}
	return "type=BYTE_ARRAY, convertedtype=UTF8"
}

func (t columnType) String() string {
	switch t {
	case stringColumn:
		return "string"
	case intColumn:
		return "int"
	case floatColumn:
		return "float"
	case dateColumn:
		return "date"
	case timestampColumn:
		return "timestamp"
	case jsonColumn:
		return "json"
	}
	return fmt.Sprintf("columnType(%d)", int(t))
}

func kindColumnType(k normalize.Kind) columnType {
	switch k {
	case normalize.IntKind:
		return intColumn
	case normalize.FloatKind:
		return floatColumn
	case normalize.DateKind:
		return dateColumn
	case normalize.DateTimeKind:
		return timestampColumn
	case normalize.PersonNameKind, normalize.ListKind, normalize.MapKind:
		return jsonColumn
	}
	return stringColumn
}

// widen returns the type that holds the values of both a and b
func widen(a, b columnType) columnType {
	switch {
	case a == b:
		return a
	case (a == intColumn && b == floatColumn) || (a == floatColumn && b == intColumn):
		return floatColumn
	case (a == dateColumn && b == timestampColumn) || (a == timestampColumn && b == dateColumn):
		return timestampColumn
	}
	return stringColumn
}

// column is one column of a parquet schema
type column struct {
	name string
	typ  columnType
}

// inferSchema types each of cols from its non null values in rows
func inferSchema(cols []string, rows []map[string]normalize.Value) []column {
	out := make([]column, 0, len(cols))
	for _, name := range cols {
		typ, typed := stringColumn, false
		for _, row := range rows {
			v, ok := row[name]
			if !ok || v.IsNull() {
				continue
			}
			t := kindColumnType(v.Kind())
			if !typed {
				typ, typed = t, true
				continue
			}
			typ = widen(typ, t)
		}
		out = append(out, column{name: name, typ: typ})
	}
	return out
}

// schemaJSON returns the parquet-go JSON schema of cols. Every column is optional.
func schemaJSON(cols []column) (string, error) {
	fields := make([]map[string]string, 0, len(cols))
	for _, c := range cols {
		fields = append(fields, map[string]string{
			"Tag": fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", c.name, c.typ.tag()),
		})
	}
	b, err := json.Marshal(map[string]interface{}{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// encodeRow returns the JSON document the parquet-go JSON writer reads one row from
func encodeRow(cols []column, row map[string]normalize.Value) (string, error) {
	out := make(map[string]interface{}, len(cols))
	for _, c := range cols {
		v, ok := row[c.name]
		if !ok || v.IsNull() {
			out[c.name] = nil
			continue
		}
		cell, err := encodeCell(c.typ, v)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", c.name, err)
		}
		out[c.name] = cell
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeCell(t columnType, v normalize.Value) (interface{}, error) {
	switch t {
	case intColumn:
		i, _ := v.Int()
		return i, nil
	case floatColumn:
		f, ok := v.Float()
		if !ok {
			i, _ := v.Int()
			f = float64(i)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, nil
		}
		return f, nil
	case dateColumn:
		tm, _ := v.Time()
		return epochDays(tm), nil
	case timestampColumn:
		tm, _ := v.Time()
		return tm.UnixMicro(), nil
	}
	return text(v)
}

func epochDays(t time.Time) int32 {
	secs := t.Unix()
	days := secs / 86400
	if secs%86400 < 0 {
		days--
	}
	return int32(days)
}

// text renders v as a string cell. Composite values are JSON.
func text(v normalize.Value) (string, error) {
	switch v.Kind() {
	case normalize.StringKind:
		s, _ := v.Str()
		return s, nil
	case normalize.IntKind:
		i, _ := v.Int()
		return strconv.FormatInt(i, 10), nil
	case normalize.FloatKind:
		f, _ := v.Float()
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case normalize.DateKind:
		t, _ := v.Time()
		return t.Format(normalize.DateLayout), nil
	case normalize.DateTimeKind:
		t, _ := v.Time()
		return t.Format(time.RFC3339Nano), nil
	}
	b, err := json.Marshal(plain(v))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// plain converts v to data encoding/json renders. Dates use the date layout and non finite
// floats become null.
func plain(v normalize.Value) interface{} {
	switch v.Kind() {
	case normalize.DateKind:
		t, _ := v.Time()
		return t.Format(normalize.DateLayout)
	case normalize.DateTimeKind:
		t, _ := v.Time()
		return t.Format(time.RFC3339Nano)
	case normalize.FloatKind:
		f, _ := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case normalize.ListKind:
		list, _ := v.List()
		out := make([]interface{}, len(list))
		for i, e := range list {
			out[i] = plain(e)
		}
		return out
	case normalize.MapKind:
		m, _ := v.Map()
		out := make(map[string]interface{}, len(m))
		for k, e := range m {
			out[k] = plain(e)
		}
		return out
	}
	return v.Interface()
}
