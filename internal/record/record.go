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
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/normalize"
)

// Reserved keys of the provenance fields
const (
	BucketKey      = "SOURCE_S3_BUCKET"
	RegionKey      = "SOURCE_S3_REGION"
	ObjectKey      = "SOURCE_S3_KEY"
	ArchivePathKey = "SOURCE_S3_ARCHIVE_PATH"
)

// DefaultPartition is the partition value of records whose data set lacks the partition field
var DefaultPartition = normalize.Date(1979, time.January, 1)

// Provenance locates the object a record was extracted from. ArchivePath is the archive member
// name, or the object name for a plain file.
type Provenance struct {
	Bucket      string
	Region      string
	Key         string
	ArchivePath string
}

// Field is one normalized keyword/value pair
type Field struct {
	Keyword string
	Value   normalize.Value
}

// Record is the flat representation of one processed file. Records are immutable.
type Record struct {
	fields       map[string]normalize.Value
	partitionKey string
}

// PartitionField converts a snake_case partition column to keyword capitalization, e.g.
// study_date to StudyDate. Each segment has its first letter upper cased and the rest lower cased.
func PartitionField(column string) string {
	var b strings.Builder
	for _, segment := range strings.Split(column, "_") {
		r, size := utf8.DecodeRuneInString(segment)
		if size == 0 {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(strings.ToLower(segment[size:]))
	}
	return b.String()
}

// Flatten assembles a record from fields and provenance. Provenance overrides fields with the
// same keys. The partition field derived from partitionColumn defaults to DefaultPartition.
func Flatten(fields []Field, prov Provenance, partitionColumn string) *Record {
	r := &Record{
		fields:       make(map[string]normalize.Value, len(fields)+5),
		partitionKey: PartitionField(partitionColumn),
	}
	for _, f := range fields {
		r.fields[f.Keyword] = f.Value
	}
	r.fields[BucketKey] = normalize.String(prov.Bucket)
	r.fields[RegionKey] = normalize.String(prov.Region)
	r.fields[ObjectKey] = normalize.String(prov.Key)
	r.fields[ArchivePathKey] = normalize.String(prov.ArchivePath)

	if _, ok := r.fields[r.partitionKey]; !ok {
		r.fields[r.partitionKey] = DefaultPartition
	}
	return r
}

// Get returns the value stored under key
func (r *Record) Get(key string) (normalize.Value, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// PartitionKey is the name of the partition field
func (r *Record) PartitionKey() string {
	return r.partitionKey
}

// PartitionValue is the value of the partition field
func (r *Record) PartitionValue() normalize.Value {
	return r.fields[r.partitionKey]
}

// Keys returns the keys of the record in ascending order
func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Record) Len() int {
	return len(r.fields)
}

// Map returns a copy of the fields of the record
func (r *Record) Map() map[string]normalize.Value {
	m := make(map[string]normalize.Value, len(r.fields))
	for k, v := range r.fields {
		m[k] = v
	}
	return m
}

// Equal is true if both records hold equal values under the same keys
func (r *Record) Equal(o *Record) bool {
	if r.partitionKey != o.partitionKey || len(r.fields) != len(o.fields) {
		return false
	}
	for k, v := range r.fields {
		ov, ok := o.fields[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
