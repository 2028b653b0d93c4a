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
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/normalize"
)

func TestSanitizeColumn(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"StudyDate", "study_date"},
		{"SOPInstanceUID", "sopinstance_uid"},
		{"SOURCE_S3_BUCKET", "source_s3_bucket"},
		{"Patient's Name", "patient_s_name"},
		{"Café", "cafe"},
		{"a1B", "a1_b"},
		{"already_snake", "already_snake"},
	}
	for _, tc := range tests {
		if got := SanitizeColumn(tc.name); got != tc.want {
			t.Errorf("SanitizeColumn(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestDropNullColumns(t *testing.T) {
	rows := []map[string]normalize.Value{
		{"a": normalize.Int(1), "b": normalize.Null(), "c": normalize.Null()},
		{"a": normalize.Null(), "b": normalize.String("x")},
	}
	got := DropNullColumns(rows)
	if want := []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("DropNullColumns() = %v, want %v", got, want)
	}
	for i, row := range rows {
		if _, ok := row["c"]; ok {
			t.Errorf("row %d still has column c", i)
		}
	}
	if _, ok := rows[1]["a"]; !ok {
		t.Error("column a removed from a row where it is null, want kept")
	}
}

func TestSanitizeRowsCollisions(t *testing.T) {
	rows := sanitizeRows([]map[string]normalize.Value{
		{"StudyDate": normalize.Int(1), "study_date": normalize.Int(2), "Rows": normalize.Int(3)},
	})
	want := map[string]normalize.Value{
		"study_date":   normalize.Int(1),
		"study_date_1": normalize.Int(2),
		"rows":         normalize.Int(3),
	}
	if !reflect.DeepEqual(rows[0], want) {
		t.Fatalf("sanitizeRows() = %v, want %v", rows[0], want)
	}
}

func TestInferSchema(t *testing.T) {
	pn := normalize.Person(normalize.ParsePersonName("Doe^John"))
	ts := normalize.DateTime(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC))
	tests := []struct {
		name   string
		values []normalize.Value
		want   columnType
	}{
		{"ints", []normalize.Value{normalize.Int(1), normalize.Null(), normalize.Int(2)}, intColumn},
		{"ints and floats", []normalize.Value{normalize.Int(1), normalize.Float(2.5)}, floatColumn},
		{"dates", []normalize.Value{normalize.Date(2020, 1, 2)}, dateColumn},
		{"dates and datetimes", []normalize.Value{normalize.Date(2020, 1, 2), ts}, timestampColumn},
		{"strings", []normalize.Value{normalize.String("a")}, stringColumn},
		{"person names", []normalize.Value{pn}, jsonColumn},
		{"lists", []normalize.Value{normalize.List(normalize.Int(1))}, jsonColumn},
		{"strings and ints", []normalize.Value{normalize.String("a"), normalize.Int(1)}, stringColumn},
		{"json and strings", []normalize.Value{pn, normalize.String("a")}, stringColumn},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var rows []map[string]normalize.Value
			for _, v := range tc.values {
				rows = append(rows, map[string]normalize.Value{"col": v})
			}
			got := inferSchema([]string{"col"}, rows)
			if len(got) != 1 || got[0].typ != tc.want {
				t.Fatalf("inferSchema() = %+v, want type %v", got, tc.want)
			}
		})
	}
}

func TestSchemaJSON(t *testing.T) {
	got, err := schemaJSON([]column{{"rows", intColumn}, {"study_time", timestampColumn}})
	if err != nil {
		t.Fatalf("schemaJSON() = %v", err)
	}
	for _, want := range []string{
		"name=parquet_go_root, repetitiontype=REQUIRED",
		"name=rows, type=INT64, repetitiontype=OPTIONAL",
		"name=study_time, type=INT64, convertedtype=TIMESTAMP_MICROS, repetitiontype=OPTIONAL",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("schemaJSON() = %s, want it to contain %q", got, want)
		}
	}
}

func TestEncodeRow(t *testing.T) {
	cols := []column{
		{"count", intColumn},
		{"day", dateColumn},
		{"at", timestampColumn},
		{"name", jsonColumn},
		{"ratio", floatColumn},
		{"mixed", stringColumn},
		{"missing", stringColumn},
	}
	row := map[string]normalize.Value{
		"count": normalize.Int(5),
		"day":   normalize.Date(1970, 1, 2),
		"at":    normalize.DateTime(time.Unix(1, 500000).UTC()),
		"name":  normalize.Person(normalize.ParsePersonName("Doe^John")),
		"ratio": normalize.Int(2),
		"mixed": normalize.Date(2020, 1, 2),
	}
	doc, err := encodeRow(cols, row)
	if err != nil {
		t.Fatalf("encodeRow() = %v", err)
	}
	dec := json.NewDecoder(strings.NewReader(doc))
	dec.UseNumber()
	var got map[string]interface{}
	if err := dec.Decode(&got); err != nil {
		t.Fatalf("decoding %s: %v", doc, err)
	}
	want := map[string]interface{}{
		"count":   json.Number("5"),
		"day":     json.Number("1"),
		"at":      json.Number("1000500"),
		"name":    `{"FamilyName":"Doe","GivenName":"John","Ideographic":"","MiddleName":"","NamePrefix":"","NameSuffix":"","Phonetic":""}`,
		"ratio":   json.Number("2"),
		"mixed":   "2020-01-02",
		"missing": nil,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("encodeRow() = %v, want %v", got, want)
	}
}

func TestEpochDays(t *testing.T) {
	tests := []struct {
		date time.Time
		want int32
	}{
		{time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(1979, 1, 1, 0, 0, 0, 0, time.UTC), 3287},
		{time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC), -25567},
		{time.Date(1969, 12, 31, 12, 0, 0, 0, time.UTC), -1},
	}
	for _, tc := range tests {
		if got := epochDays(tc.date); got != tc.want {
			t.Errorf("epochDays(%v) = %d, want %d", tc.date, got, tc.want)
		}
	}
}

func TestPartitionValue(t *testing.T) {
	tests := []struct {
		value normalize.Value
		want  string
	}{
		{normalize.Date(2020, 1, 2), "2020-01-02"},
		{normalize.DateTime(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)), "2020-01-02 03%3A04%3A05"},
		{normalize.String("CT/MR"), "CT%2FMR"},
		{normalize.String(""), HiveNullPartition},
		{normalize.Null(), HiveNullPartition},
		{normalize.Int(42), "42"},
	}
	for _, tc := range tests {
		if got := partitionValue(tc.value); got != tc.want {
			t.Errorf("partitionValue(%v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}
