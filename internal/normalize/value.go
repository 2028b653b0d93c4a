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
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Kind identifies which variant a Value holds
type Kind int

const (
	NullKind Kind = iota
	StringKind
	IntKind
	FloatKind
	DateKind
	DateTimeKind
	PersonNameKind
	ListKind
	MapKind
)

func (k Kind) String() string {
	switch k {
	case NullKind:
		return "null"
	case StringKind:
		return "string"
	case IntKind:
		return "int"
	case FloatKind:
		return "float"
	case DateKind:
		return "date"
	case DateTimeKind:
		return "datetime"
	case PersonNameKind:
		return "personname"
	case ListKind:
		return "list"
	case MapKind:
		return "map"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// DateLayout is the ISO calendar date layout of date values
const DateLayout = "2006-01-02"

// Value is a normalized element value. The zero Value is Null. Values are immutable: accessors
// returning slices or maps return copies.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	t    time.Time
	pn   PersonName
	list []Value
	m    map[string]Value
}

// Null returns the empty sentinel value
func Null() Value { return Value{} }

// String returns a string value
func String(s string) Value { return Value{kind: StringKind, s: s} }

// Int returns an integer value
func Int(i int64) Value { return Value{kind: IntKind, i: i} }

// Float returns a float value
func Float(f float64) Value { return Value{kind: FloatKind, f: f} }

// Date returns a calendar date value
func Date(year int, month time.Month, day int) Value {
	return Value{kind: DateKind, t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateTime returns an instant, normalized to UTC
func DateTime(t time.Time) Value { return Value{kind: DateTimeKind, t: t.UTC()} }

// Person returns a person name value
func Person(pn PersonName) Value { return Value{kind: PersonNameKind, pn: pn} }

// List returns an ordered list of values
func List(values ...Value) Value {
	return Value{kind: ListKind, list: append([]Value{}, values...)}
}

// Map returns a mapping of keyword to value. The given map is copied.
func Map(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: MapKind, m: cp}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == NullKind }

// Str returns the string of a StringKind value
func (v Value) Str() (string, bool) { return v.s, v.kind == StringKind }

// Int returns the integer of an IntKind value
func (v Value) Int() (int64, bool) { return v.i, v.kind == IntKind }

// Float returns the float of a FloatKind value
func (v Value) Float() (float64, bool) { return v.f, v.kind == FloatKind }

// Time returns the instant of a DateTimeKind value, or UTC midnight of a DateKind value
func (v Value) Time() (time.Time, bool) { return v.t, v.kind == DateKind || v.kind == DateTimeKind }

// PersonName returns the name of a PersonNameKind value
func (v Value) PersonName() (PersonName, bool) { return v.pn, v.kind == PersonNameKind }

// List returns a copy of the items of a ListKind value
func (v Value) List() ([]Value, bool) {
	if v.kind != ListKind {
		return nil, false
	}
	return append([]Value{}, v.list...), true
}

// Map returns a copy of the entries of a MapKind value
func (v Value) Map() (map[string]Value, bool) {
	if v.kind != MapKind {
		return nil, false
	}
	cp := make(map[string]Value, len(v.m))
	for k, e := range v.m {
		cp[k] = e
	}
	return cp, true
}

// Equal reports whether v and o hold the same variant and content
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case NullKind:
		return true
	case StringKind:
		return v.s == o.s
	case IntKind:
		return v.i == o.i
	case FloatKind:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case DateKind, DateTimeKind:
		return v.t.Equal(o.t)
	case PersonNameKind:
		return v.pn == o.pn
	case ListKind:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case MapKind:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, e := range v.m {
			oe, ok := o.m[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface returns v as plain Go data: nil, string, int64, float64, time.Time,
// map[string]interface{} or []interface{}. Dates are UTC midnight.
func (v Value) Interface() interface{} {
	switch v.kind {
	case StringKind:
		return v.s
	case IntKind:
		return v.i
	case FloatKind:
		return v.f
	case DateKind, DateTimeKind:
		return v.t
	case PersonNameKind:
		fields := v.pn.Fields()
		out := make(map[string]interface{}, len(fields))
		for k, f := range fields {
			out[k] = f
		}
		return out
	case ListKind:
		out := make([]interface{}, len(v.list))
		for i, e := range v.list {
			out[i] = e.Interface()
		}
		return out
	case MapKind:
		out := make(map[string]interface{}, len(v.m))
		for k, e := range v.m {
			out[k] = e.Interface()
		}
		return out
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case NullKind:
		return "null"
	case StringKind:
		return fmt.Sprintf("%q", v.s)
	case IntKind:
		return fmt.Sprint(v.i)
	case FloatKind:
		return fmt.Sprint(v.f)
	case DateKind:
		return v.t.Format(DateLayout)
	case DateTimeKind:
		return v.t.Format(time.RFC3339Nano)
	case PersonNameKind:
		return v.pn.String()
	case ListKind:
		items := make([]string, len(v.list))
		for i, e := range v.list {
			items[i] = e.String()
		}
		return "[" + strings.Join(items, ", ") + "]"
	case MapKind:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]string, len(keys))
		for i, k := range keys {
			items[i] = k + ": " + v.m[k].String()
		}
		return "{" + strings.Join(items, ", ") + "}"
	}
	return "?"
}
