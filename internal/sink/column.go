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
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/normalize"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	notColumnChar = regexp.MustCompile(`[^A-Za-z0-9_]+`)
)

// SanitizeColumn converts a field name to a lower snake_case column name. Accents are removed,
// runs of characters outside [A-Za-z0-9_] become an underscore and a lower case letter or digit
// followed by an upper case letter is split by an underscore.
func SanitizeColumn(name string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn))), name)
	if err == nil {
		name = stripped
	}
	name = notColumnChar.ReplaceAllString(name, "_")
	return strings.ToLower(camelBoundary.ReplaceAllString(name, "${1}_${2}"))
}

// sanitizeRows renames the fields of rows to column names. Fields whose names collide after
// sanitizing get a numeric suffix, assigned in ascending order of the original names.
func sanitizeRows(rows []map[string]normalize.Value) []map[string]normalize.Value {
	var names []string
	seen := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)

	rename := make(map[string]string, len(names))
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		base := SanitizeColumn(n)
		col := base
		for i := 1; taken[col]; i++ {
			col = base + "_" + strconv.Itoa(i)
		}
		taken[col] = true
		rename[n] = col
	}

	out := make([]map[string]normalize.Value, len(rows))
	for i, row := range rows {
		out[i] = make(map[string]normalize.Value, len(row))
		for k, v := range row {
			out[i][rename[k]] = v
		}
	}
	return out
}

// DropNullColumns removes the columns that are absent or null in every row and returns the
// remaining column names in ascending order.
func DropNullColumns(rows []map[string]normalize.Value) []string {
	keep := make(map[string]bool)
	drop := make(map[string]bool)
	for _, row := range rows {
		for k, v := range row {
			if v.IsNull() {
				drop[k] = true
			} else {
				keep[k] = true
			}
		}
	}
	for k := range drop {
		if keep[k] {
			continue
		}
		for _, row := range rows {
			delete(row, k)
		}
	}
	cols := make([]string, 0, len(keep))
	for k := range keep {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
