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
	"encoding/base64"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/dicom"
)

const (
	// Redacted replaces binary payloads when redaction is enabled
	Redacted = "IGNORED"

	// DefaultMaxDepth bounds the nesting of sequences
	DefaultMaxDepth = 16
)

// EmptyDate is the value of a date element without a value
var EmptyDate = Date(1900, time.January, 1)

// Element is a decoded element ready for normalization
type Element struct {
	Tag     dicom.DataElementTag
	VR      string
	Keyword string
	VM      dicom.VM

	// Values holds string, int64, uint64, float64 or []byte scalars in the order they were encoded
	Values []interface{}

	// Items holds the nested data sets of a sequence
	Items [][]Element
}

// IsEmpty reports whether the element carries no value: no items for a sequence, otherwise no
// values or a single empty value.
func (e Element) IsEmpty() bool {
	if e.VR == "SQ" {
		return len(e.Items) == 0
	}
	switch len(e.Values) {
	case 0:
		return true
	case 1:
		switch v := e.Values[0].(type) {
		case string:
			return v == ""
		case []byte:
			return len(v) == 0
		}
	}
	return false
}

// Normalizer converts Elements into Values. A Normalizer holds no state besides its options and
// may be reused.
type Normalizer struct {
	// RedactBinary replaces binary payloads with Redacted instead of their base64 encoding
	RedactBinary bool

	// MaxDepth is the deepest sequence nesting accepted. Zero means DefaultMaxDepth.
	MaxDepth int
}

// New returns a Normalizer with redaction enabled
func New() *Normalizer {
	return &Normalizer{RedactBinary: true, MaxDepth: DefaultMaxDepth}
}

// Normalize converts e according to the class of its VR
func (n *Normalizer) Normalize(e Element) (Value, error) {
	return n.normalize(e, 0)
}

func (n *Normalizer) normalize(e Element, depth int) (Value, error) {
	class, err := ClassOf(e.VR)
	if err != nil {
		return Value{}, err
	}

	switch class {
	case StringClass, TimeClass:
		empty := String("")
		if e.VM.Multiple() {
			empty = List()
		}
		return shape(e, empty, true, func(raw interface{}) (Value, error) {
			return String(text(raw)), nil
		})
	case IntegerClass:
		return shape(e, Int(0), false, func(raw interface{}) (Value, error) {
			return toInt(e, raw)
		})
	case FloatClass:
		return shape(e, Float(0), false, func(raw interface{}) (Value, error) {
			return toFloat(e, raw)
		})
	case DateClass:
		return shape(e, EmptyDate, false, func(raw interface{}) (Value, error) {
			return toDate(e, text(raw))
		})
	case DateTimeClass:
		return shape(e, Null(), false, func(raw interface{}) (Value, error) {
			return toDateTime(e, text(raw))
		})
	case PersonNameClass:
		return shape(e, Person(PersonName{}), false, func(raw interface{}) (Value, error) {
			return Person(ParsePersonName(text(raw))), nil
		})
	case SequenceClass:
		return n.sequence(e, depth)
	case BinaryClass:
		empty := String(Redacted)
		if !n.RedactBinary {
			empty = String("")
		}
		return shape(e, empty, false, func(raw interface{}) (Value, error) {
			return n.binary(raw), nil
		})
	}
	return Value{}, &UnknownVRError{VR: e.VR}
}

// shape converts the values of e and represents them as a scalar when the declared value
// multiplicity is at most one, and as a list otherwise. A scalar from several values joins them
// with a backslash when join is set and keeps the first one otherwise.
func shape(e Element, empty Value, join bool, convert func(interface{}) (Value, error)) (Value, error) {
	if e.IsEmpty() {
		return empty, nil
	}

	if !e.VM.Multiple() {
		raw := e.Values[0]
		if join && len(e.Values) > 1 {
			parts := make([]string, len(e.Values))
			for i, v := range e.Values {
				parts[i] = text(v)
			}
			raw = strings.Join(parts, "\\")
		}
		return convert(raw)
	}

	list := make([]Value, 0, len(e.Values))
	for _, raw := range e.Values {
		v, err := convert(raw)
		if err != nil {
			return Value{}, err
		}
		list = append(list, v)
	}
	return List(list...), nil
}

func (n *Normalizer) sequence(e Element, depth int) (Value, error) {
	if len(e.Items) == 0 {
		return String(""), nil
	}

	maxDepth := n.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if depth >= maxDepth {
		return Value{}, conversionError(e, "", fmt.Errorf("sequences nested deeper than %d levels", maxDepth))
	}

	merged := map[string]Value{}
	for _, item := range e.Items {
		if len(item) == 0 {
			return Null(), nil
		}
		for _, child := range item {
			if child.Keyword == "" {
				continue
			}
			v, err := n.normalize(child, depth+1)
			if err != nil {
				return Value{}, err
			}
			merged[child.Keyword] = v
		}
	}
	return Map(merged), nil
}

func (n *Normalizer) binary(raw interface{}) Value {
	if n.RedactBinary {
		return String(Redacted)
	}
	b, ok := raw.([]byte)
	if !ok {
		b = []byte(text(raw))
	}
	return String(base64.StdEncoding.EncodeToString(b))
}

func text(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return strings.TrimRight(string(v), "\x00 ")
	}
	return fmt.Sprint(raw)
}

func toInt(e Element, raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case int64:
		return Int(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return Value{}, conversionError(e, fmt.Sprint(v), fmt.Errorf("overflows int64"))
		}
		return Int(int64(v)), nil
	case float64:
		if v != math.Trunc(v) {
			return Value{}, conversionError(e, fmt.Sprint(v), fmt.Errorf("not an integer"))
		}
		return Int(int64(v)), nil
	}
	s := strings.TrimSpace(text(raw))
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Value{}, conversionError(e, s, err)
	}
	return Int(i), nil
}

func toFloat(e Element, raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case float64:
		return Float(v), nil
	case int64:
		return Float(float64(v)), nil
	case uint64:
		return Float(float64(v)), nil
	}
	s := strings.TrimSpace(text(raw))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, conversionError(e, s, err)
	}
	return Float(f), nil
}

const daLayout = "20060102"

func toDate(e Element, s string) (Value, error) {
	t, err := time.Parse(daLayout, s)
	if err != nil {
		return Value{}, conversionError(e, s, err)
	}
	return Date(t.Year(), t.Month(), t.Day()), nil
}

// dtPattern is YYYYMMDDHHMMSS.FFFFFF&ZZXX, with 1 to 6 fraction digits and the offset required
var dtPattern = regexp.MustCompile(`^(\d{14})\.(\d{1,6})(Z|[+-]\d{4})$`)

func toDateTime(e Element, s string) (Value, error) {
	m := dtPattern.FindStringSubmatch(s)
	if m == nil {
		return Value{}, conversionError(e, s, fmt.Errorf("want YYYYMMDDHHMMSS.FFFFFF&ZZXX"))
	}
	fraction := m[2] + strings.Repeat("0", 6-len(m[2]))
	offset := m[3]
	if offset == "Z" {
		offset = "+0000"
	}
	t, err := time.Parse("20060102150405.000000-0700", m[1]+"."+fraction+offset)
	if err != nil {
		return Value{}, conversionError(e, s, err)
	}
	return DateTime(t), nil
}

func conversionError(e Element, value string, err error) *ConversionError {
	return &ConversionError{Tag: e.Tag, Keyword: e.Keyword, VR: e.VR, Value: value, Err: err}
}
