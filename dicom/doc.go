// Package dicom provides a streaming decoder for the DICOM Part 10 file format.
//
// The low level API consists of pull iterators like DataElementIterator, SequenceIterator and
// BulkDataIterator which consume their input lazily and return io.EOF once exhausted. The high
// level API consists of Parse and the Collect* helpers which drain those iterators into a DataSet
// held in memory.
//
// Parse buffers VRs of potentially enormous size (SQ, OX, UN, UT, UR, UC) into memory unless a
// ParseOption replaces them first. StopBeforePixelData ends parsing of a data set at its Pixel Data
// element so that a truncated file, such as the leading range of a large object, can still yield
// all of its metadata.
//
// The data dictionary bundled with the package covers the attributes commonly found in clinical
// files. It is used to resolve VRs in the implicit VR syntax and to give elements a keyword and a
// value multiplicity; tags missing from it have an empty keyword.
package dicom
