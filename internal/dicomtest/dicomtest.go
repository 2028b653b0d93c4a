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

// Package dicomtest encodes DICOM Part 10 files in memory for tests.
package dicomtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/klauspost/compress/flate"
)

// Transfer syntax UIDs understood by File.Encode
const (
	ImplicitVRLittleEndian         = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian         = "1.2.840.10008.1.2.1"
	ExplicitVRBigEndian            = "1.2.840.10008.1.2.2"
	DeflatedExplicitVRLittleEndian = "1.2.840.10008.1.2.1.99"
)

const (
	itemTag                     = 0xFFFEE000
	itemDelimitationItemTag     = 0xFFFEE00D
	sequenceDelimitationItemTag = 0xFFFEE0DD
	undefinedLength             = 0xFFFFFFFF
)

// Element is one data element to encode. Value is one of string, []string, []byte, []uint16,
// []int16, []uint32, []int32, []uint64, []int64, []float32, []float64, Items or Fragments.
type Element struct {
	Tag   uint32
	VR    string
	Value interface{}
}

// Items are the nested data sets of a sequence element
type Items [][]Element

// Fragments is pixel data in encapsulated format. The first fragment is the basic offset table.
type Fragments [][]byte

// Text returns a text element holding the backslash joined values
func Text(tag uint32, vr string, values ...string) Element {
	return Element{tag, vr, strings.Join(values, "\\")}
}

// Seq returns a sequence element with the given items
func Seq(tag uint32, items ...[]Element) Element {
	return Element{tag, "SQ", Items(items)}
}

// File describes a DICOM file. TransferSyntax defaults to explicit VR little endian.
type File struct {
	TransferSyntax string
	// UndefinedLengths encodes sequences and their items with undefined lengths and delimiters
	UndefinedLengths bool
	Elements         []Element
}

// Encode returns the Part 10 encoding of f: preamble, magic, file meta group and data set
func (f File) Encode() []byte {
	syntax := f.TransferSyntax
	if syntax == "" {
		syntax = ExplicitVRLittleEndian
	}

	meta := &encoder{order: binary.LittleEndian}
	meta.element(Element{0x00020001, "OB", []byte{0, 1}})
	meta.element(Text(0x00020002, "UI", "1.2.840.10008.5.1.4.1.1.7"))
	meta.element(Text(0x00020003, "UI", "1.2.3.4.5"))
	meta.element(Text(0x00020010, "UI", syntax))

	body := &encoder{undefinedLengths: f.UndefinedLengths}
	switch syntax {
	case ImplicitVRLittleEndian:
		body.order, body.implicit = binary.LittleEndian, true
	case ExplicitVRBigEndian:
		body.order = binary.BigEndian
	default:
		body.order = binary.LittleEndian
	}
	for _, e := range f.Elements {
		body.element(e)
	}

	out := &encoder{order: binary.LittleEndian}
	out.buf.Write(make([]byte, 128))
	out.buf.WriteString("DICM")
	out.element(Element{0x00020000, "UL", []uint32{uint32(meta.buf.Len())}})
	out.buf.Write(meta.buf.Bytes())

	if syntax == DeflatedExplicitVRLittleEndian {
		w, err := flate.NewWriter(&out.buf, flate.DefaultCompression)
		if err != nil {
			panic(fmt.Sprintf("creating deflate writer: %v", err))
		}
		w.Write(body.buf.Bytes())
		w.Close()
	} else {
		out.buf.Write(body.buf.Bytes())
	}
	return out.buf.Bytes()
}

// Encode returns an explicit VR little endian file holding elements
func Encode(elements ...Element) []byte {
	return File{Elements: elements}.Encode()
}

type encoder struct {
	buf              bytes.Buffer
	order            binary.ByteOrder
	implicit         bool
	undefinedLengths bool
}

func (e *encoder) tag(tag uint32) {
	binary.Write(&e.buf, e.order, uint16(tag>>16))
	binary.Write(&e.buf, e.order, uint16(tag))
}

func (e *encoder) header(tag uint32, vr string, length uint32) {
	e.tag(tag)
	if e.implicit {
		binary.Write(&e.buf, e.order, length)
		return
	}
	e.buf.WriteString(vr)
	if has32BitLength(vr) {
		e.buf.Write([]byte{0, 0})
		binary.Write(&e.buf, e.order, length)
		return
	}
	binary.Write(&e.buf, e.order, uint16(length))
}

func (e *encoder) element(el Element) {
	switch v := el.Value.(type) {
	case Items:
		e.sequence(el, v)
	case Fragments:
		e.header(el.Tag, el.VR, undefinedLength)
		for _, f := range v {
			e.tag(itemTag)
			binary.Write(&e.buf, e.order, uint32(len(f)))
			e.buf.Write(f)
		}
		e.tag(sequenceDelimitationItemTag)
		binary.Write(&e.buf, e.order, uint32(0))
	default:
		value := e.value(el)
		e.header(el.Tag, el.VR, uint32(len(value)))
		e.buf.Write(value)
	}
}

func (e *encoder) sequence(el Element, items Items) {
	vr, order, implicit, undefined := "SQ", e.order, e.implicit, e.undefinedLengths
	if el.VR == "UN" {
		// a sequence of unknown VR is implicit VR little endian with undefined lengths
		vr, order, implicit, undefined = "UN", binary.LittleEndian, true, true
	}

	nested := &encoder{order: order, implicit: implicit, undefinedLengths: undefined}
	for _, item := range items {
		content := &encoder{order: order, implicit: implicit, undefinedLengths: undefined}
		for _, c := range item {
			content.element(c)
		}
		nested.tag(itemTag)
		if undefined {
			binary.Write(&nested.buf, order, uint32(undefinedLength))
			nested.buf.Write(content.buf.Bytes())
			nested.tag(itemDelimitationItemTag)
			binary.Write(&nested.buf, order, uint32(0))
		} else {
			binary.Write(&nested.buf, order, uint32(content.buf.Len()))
			nested.buf.Write(content.buf.Bytes())
		}
	}

	if undefined {
		nested.tag(sequenceDelimitationItemTag)
		binary.Write(&nested.buf, order, uint32(0))
		e.header(el.Tag, vr, undefinedLength)
	} else {
		e.header(el.Tag, vr, uint32(nested.buf.Len()))
	}
	e.buf.Write(nested.buf.Bytes())
}

func (e *encoder) value(el Element) []byte {
	var b bytes.Buffer
	switch v := el.Value.(type) {
	case string:
		b.WriteString(v)
	case []string:
		b.WriteString(strings.Join(v, "\\"))
	case []byte:
		b.Write(v)
	case nil:
	default:
		if err := binary.Write(&b, e.order, v); err != nil {
			panic(fmt.Sprintf("encoding %T for tag %08X: %v", v, el.Tag, err))
		}
	}

	if b.Len()%2 == 1 {
		switch el.VR {
		case "UI", "OB", "UN":
			b.WriteByte(0x00)
		default:
			b.WriteByte(' ')
		}
	}
	return b.Bytes()
}

func has32BitLength(vr string) bool {
	switch vr {
	case "OB", "OD", "OF", "OL", "OV", "OW", "SQ", "SV", "UC", "UR", "UT", "UN", "UV":
		return true
	}
	return false
}
