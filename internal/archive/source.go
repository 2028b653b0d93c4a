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

package archive

import (
	"bytes"
	"fmt"
	"io"
	"path"
)

// Kind is the container format of an archive
type Kind int

const (
	Zip Kind = iota
	Tar
	TarGzip
	TarBzip2
)

func (k Kind) String() string {
	switch k {
	case Zip:
		return "zip"
	case Tar:
		return "tar"
	case TarGzip:
		return "tar.gz"
	case TarBzip2:
		return "tar.bz2"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Source is a DICOM file to decode: either a *Member of an archive or a *PlainFile
type Source interface {
	// Name identifies the file in records and logs
	Name() string

	// Open returns the content of the file from its first byte
	Open() (io.ReadCloser, error)

	source()
}

// Member is a valid DICOM file found inside an archive
type Member struct {
	name string
	data []byte
}

// Name is the path of the member inside the archive
func (m *Member) Name() string { return m.name }

func (m *Member) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

func (m *Member) source() {}

// PlainFile is an object processed on its own
type PlainFile struct {
	path string
	data []byte
}

// NewPlainFile wraps the content of the object at p
func NewPlainFile(p string, data []byte) *PlainFile {
	return &PlainFile{path: p, data: data}
}

// Name is the last element of the path
func (f *PlainFile) Name() string { return path.Base(f.path) }

// Path is the full path the file was created with
func (f *PlainFile) Path() string { return f.path }

func (f *PlainFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func (f *PlainFile) source() {}

// InvalidContainerError is returned when a stream is not a well formed archive of its kind
type InvalidContainerError struct {
	Kind Kind
	Err  error
}

func (e *InvalidContainerError) Error() string {
	return fmt.Sprintf("invalid %v archive: %v", e.Kind, e.Err)
}

func (e *InvalidContainerError) Unwrap() error { return e.Err }
