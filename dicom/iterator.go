// Copyright 2018 Google LLC
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
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

const (
	preambleSize = 128
	magicWord    = "DICM"
)

// ErrNoMagic is returned when a stream does not start with the DICOM preamble and magic word
var ErrNoMagic = errors.New("missing DICM magic word")

// DataElementIterator represents an iterator over a DataSet's DataElements
type DataElementIterator interface {
	// NextElement returns the next DataElement in the DataSet. If there is no next DataElement, the
	// error io.EOF is returned. In Addition, if any previously returned DataElements contained
	// iterable objects like SequenceIterator, BulkDataIterator, these iterators are emptied.
	NextElement() (*DataElement, error)

	// Close discards all remaining DataElements in the iterator
	Close() error

	metaData() dicomMetaData
}

// NewDataElementIterator creates a DataElementIterator from a DICOM file. The implementation
// returned will consume input from the io.Reader given as needed. The file meta elements (0002,xxxx)
// are returned first, followed by the elements of the data set.
func NewDataElementIterator(r io.Reader) (DataElementIterator, error) {
	dr := newDcmReader(r)
	if err := readDicomSignature(dr); err != nil {
		return nil, err
	}

	metaHeaderBytes, err := bufferMetadataHeader(dr)
	if err != nil {
		return nil, fmt.Errorf("reading meta header: %v", err)
	}

	syntax, err := findSyntax(metaHeaderBytes)
	if err != nil {
		return nil, fmt.Errorf("finding transfer syntax: %v", err)
	}

	if syntax.isDeflated() {
		// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_A.5
		dr = newDcmReader(flate.NewReader(dr.cr))
	}

	metaIter := newDataElementIterator(newDcmReader(bytes.NewBuffer(metaHeaderBytes)), defaultMetaData)
	it := newDataElementIterator(dr, metaDataWithSyntax(syntax)).(*dataElementIterator)
	it.metaHeader = metaIter
	return it, nil
}

// HasMagic reports whether r starts with the 128 byte preamble followed by the DICM magic word.
// Streams shorter than the preamble and magic word are not DICOM files.
func HasMagic(r io.Reader) (bool, error) {
	buf := make([]byte, preambleSize+len(magicWord))
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, fmt.Errorf("reading preamble: %v", err)
	}
	return string(buf[preambleSize:]) == magicWord, nil
}

// newDataElementIterator creates a DataElementIterator from a byte stream that excludes header info
// (preamble and metadata elements)
func newDataElementIterator(r *dcmReader, metaData dicomMetaData) DataElementIterator {
	return &dataElementIterator{
		dr:         r,
		meta:       metaData,
		metaHeader: emptyElementIterator{metaData},
	}
}

type dataElementIterator struct {
	dr             *dcmReader
	meta           dicomMetaData
	currentElement *DataElement
	empty          bool
	metaHeader     DataElementIterator
}

func (it *dataElementIterator) NextElement() (*DataElement, error) {
	metaElem, err := it.metaHeader.NextElement()
	if err == io.EOF {
		return it.nextDataSetElement()
	}
	if err != nil {
		return nil, err
	}
	return metaElem, nil
}

func (it *dataElementIterator) metaData() dicomMetaData {
	return it.meta
}

func (it *dataElementIterator) nextDataSetElement() (*DataElement, error) {
	if it.empty {
		return nil, io.EOF
	}
	if err := it.closeCurrent(); err != nil {
		return nil, fmt.Errorf("closing: %v", err)
	}

	element, err := readDataElement(it.dr, it.meta)
	if err == io.EOF {
		it.empty = true
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("parsing element: %v", err)
	}

	if element.Tag == SpecificCharacterSetTag {
		// text of the following elements of this data set, and of the items nested in them, is
		// decoded with the declared character set
		if terms, ok := element.ValueField.([]string); ok {
			it.meta = it.meta.withCharacterSet(terms)
		}
	}

	it.currentElement = element

	return it.currentElement, nil
}

func (it *dataElementIterator) Close() error {
	// empty the iterator
	for _, err := it.NextElement(); err != io.EOF; _, err = it.NextElement() {
		if err != nil {
			return fmt.Errorf("unexpected error closing iterator: %v", err)
		}
	}
	return nil
}

// closeCurrent ensures the iterator is ready to read the next DataElement. If this iterator
// previously returned a stream of bytes such as a BulkDataIterator, we need to make sure this
// previously returned stream is emptied in order to advance the input to the bytes of the
// next DataElement. This pattern is similar to the implementation of multipart.Reader in the
// go standard library. https://golang.org/src/mime/multipart/multipart.go?s=8400:8697#L303
func (it *dataElementIterator) closeCurrent() error {
	if it.currentElement == nil {
		return nil
	}

	if closer, ok := it.currentElement.ValueField.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

func readDicomSignature(r *dcmReader) error {
	if err := r.Skip(preambleSize); err != nil {
		return fmt.Errorf("skipping preamble: %w", ErrNoMagic)
	}

	magic, err := r.String(int64(len(magicWord)))
	if err != nil {
		return fmt.Errorf("reading DICOM signature: %w", ErrNoMagic)
	}

	if magic != magicWord {
		return fmt.Errorf("wrong DICOM signature %q: %w", magic, ErrNoMagic)
	}

	return nil
}

func bufferMetadataHeader(dr *dcmReader) ([]byte, error) {
	firstElemBytes, err := dr.Bytes(4 /*tag*/ + 2 /*vr*/ + 2 /*len*/ + 4 /*UL=4bytes*/)
	if err != nil {
		return nil, fmt.Errorf("buffering bytes of FileMetaInformationGroupLength: %v", err)
	}
	firstElem, err := readDataElement(newDcmReader(bytes.NewBuffer(firstElemBytes)), defaultMetaData)
	if err != nil {
		return nil, fmt.Errorf("parsing FileMetaInformationGroupLength element: %v", err)
	}
	if firstElem.Tag != FileMetaInformationGroupLengthTag {
		return nil, fmt.Errorf("first meta element is %v, want %v", firstElem.Tag, FileMetaInformationGroupLengthTag)
	}
	if metaGroupLength, ok := firstElem.ValueField.([]uint32); ok {
		if len(metaGroupLength) != 1 {
			return nil, fmt.Errorf("expected 1 value for meta group lengths")
		}
		remainderBytes, err := dr.Bytes(int64(metaGroupLength[0]))
		if err != nil {
			return nil, fmt.Errorf("buffering the file meta elements: %v", err)
		}

		return append(firstElemBytes, remainderBytes...), nil
	}

	return nil, fmt.Errorf("wrong type for FileMetaInformationGroupLength. Got %v, want []uint32", firstElem.ValueField)
}

func findSyntax(metaHeaderBytes []byte) (transferSyntax, error) {
	metaIter := newDataElementIterator(newDcmReader(bytes.NewBuffer(metaHeaderBytes)), defaultMetaData)

	for elem, err := metaIter.NextElement(); err != io.EOF; elem, err = metaIter.NextElement() {
		if err != nil {
			return nil, fmt.Errorf("reading meta element: %v", err)
		}
		if elem.Tag == TransferSyntaxUIDTag {
			return findSyntaxFromElement(elem)
		}
	}

	return nil, fmt.Errorf("transfer syntax not found")
}

func findSyntaxFromElement(element *DataElement) (transferSyntax, error) {
	ids, ok := element.ValueField.([]string)
	if !ok {
		return nil, fmt.Errorf("expected type []string for transfer syntax element")
	}
	if len(ids) != 1 {
		return nil, fmt.Errorf("expected 1 value length for transfer syntax")
	}

	return lookupTransferSyntax(ids[0]), nil
}

type emptyElementIterator struct {
	meta dicomMetaData
}

func (it emptyElementIterator) NextElement() (*DataElement, error) {
	return nil, io.EOF
}

func (it emptyElementIterator) metaData() dicomMetaData {
	return it.meta
}

func (it emptyElementIterator) Close() error {
	return nil
}
