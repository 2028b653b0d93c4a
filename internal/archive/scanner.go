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
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/dicom"
)

const indexFileMarker = "DICOMDIR"

// Scanner is an iterator over the valid DICOM members of an archive, in archive order. A Scanner
// cannot be rewound: scanning again requires a new Scanner.
type Scanner struct {
	kind    Kind
	log     zerolog.Logger
	entries entryIterator
	done    bool
}

// entry is one member of an archive before validation
type entry struct {
	name    string
	regular bool
	open    func() (io.ReadCloser, error)
}

type entryIterator interface {
	// next returns io.EOF after the last entry
	next() (*entry, error)
	close() error
}

// NewScanner returns a Scanner over the archive held by data
func NewScanner(data []byte, kind Kind, log zerolog.Logger) (*Scanner, error) {
	s := &Scanner{kind: kind, log: log.With().Str("archive_kind", kind.String()).Logger()}

	var err error
	switch kind {
	case Zip:
		s.entries, err = newZipIterator(data)
	case Tar:
		s.entries = newTarIterator(bytes.NewReader(data), nil)
	case TarGzip:
		var zr *gzip.Reader
		zr, err = gzip.NewReader(bytes.NewReader(data))
		if err == nil {
			s.entries = newTarIterator(zr, zr)
		}
	case TarBzip2:
		s.entries = newTarIterator(bzip2.NewReader(bytes.NewReader(data)), nil)
	default:
		return nil, fmt.Errorf("unsupported archive kind %v", kind)
	}
	if err != nil {
		return nil, &InvalidContainerError{kind, err}
	}
	return s, nil
}

// Next returns the next valid member. It returns io.EOF once the archive is exhausted and an
// *InvalidContainerError if the archive is malformed.
func (s *Scanner) Next() (*Member, error) {
	if s.done {
		return nil, io.EOF
	}
	for {
		e, err := s.entries.next()
		if err == io.EOF {
			s.done = true
			return nil, io.EOF
		}
		if err != nil {
			s.done = true
			return nil, &InvalidContainerError{s.kind, err}
		}

		if !e.regular || strings.Contains(strings.ToUpper(e.name), indexFileMarker) {
			s.log.Info().Str("member", e.name).Msg("ignoring file path in archive")
			continue
		}

		data, err := readMember(e)
		if err != nil {
			s.done = true
			return nil, &InvalidContainerError{s.kind, fmt.Errorf("reading %q: %w", e.name, err)}
		}
		valid, err := dicom.HasMagic(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if !valid {
			s.log.Info().Str("member", e.name).Msg("ignoring file in archive, not a valid DICOM file")
			continue
		}

		s.log.Debug().Str("member", e.name).Msg("added to process queue")
		return &Member{name: e.name, data: data}, nil
	}
}

// Close releases the decompressor of the archive. The Scanner is exhausted afterwards.
func (s *Scanner) Close() error {
	s.done = true
	return s.entries.close()
}

func readMember(e *entry) ([]byte, error) {
	rc, err := e.open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Scan returns every valid member of the archive held by data, in archive order
func Scan(data []byte, kind Kind, log zerolog.Logger) ([]*Member, error) {
	s, err := NewScanner(data, kind, log)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	var members []*Member
	for {
		m, err := s.Next()
		if err == io.EOF {
			return members, nil
		}
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
}

type zipIterator struct {
	files []*zip.File
}

func newZipIterator(data []byte) (*zipIterator, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &zipIterator{files: zr.File}, nil
}

func (it *zipIterator) next() (*entry, error) {
	if len(it.files) == 0 {
		return nil, io.EOF
	}
	f := it.files[0]
	it.files = it.files[1:]
	return &entry{name: f.Name, regular: !f.FileInfo().IsDir(), open: f.Open}, nil
}

func (it *zipIterator) close() error {
	it.files = nil
	return nil
}

type tarIterator struct {
	tr     *tar.Reader
	closer io.Closer
}

func newTarIterator(r io.Reader, closer io.Closer) *tarIterator {
	return &tarIterator{tr: tar.NewReader(r), closer: closer}
}

func (it *tarIterator) next() (*entry, error) {
	hdr, err := it.tr.Next()
	if err != nil {
		return nil, err
	}
	return &entry{
		name:    hdr.Name,
		regular: hdr.FileInfo().Mode().IsRegular(),
		open:    func() (io.ReadCloser, error) { return io.NopCloser(it.tr), nil },
	}, nil
}

func (it *tarIterator) close() error {
	if it.closer == nil {
		return nil
	}
	return it.closer.Close()
}
