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

// Package source decides how an object is processed from its key and reads it from the object
// store.
package source

import (
	"fmt"
	"path"
	"strings"

	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/archive"
)

// SingleFileExtension marks objects decoded as one DICOM file
const SingleFileExtension = ".dcm"

// maxExtensionLength is the length from which an extension is not trusted
const maxExtensionLength = 10

// Object identifies the object an invocation was triggered for
type Object struct {
	Bucket string
	Key    string
	Region string
	Size   int64
}

// URI formats the object the way invocation results report it
func (o Object) URI() string {
	return fmt.Sprintf("s3://%s/%s/%s", o.Region, o.Bucket, o.Key)
}

// Action is what an invocation does with an object
type Action int

const (
	// Ignore acknowledges the object without reading it
	Ignore Action = iota
	// Single decodes the object as one DICOM file
	Single
	// Archive scans the object for DICOM files
	Archive
)

func (a Action) String() string {
	switch a {
	case Ignore:
		return "ignore"
	case Single:
		return "single"
	case Archive:
		return "archive"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Plan is the result of classifying a key
type Plan struct {
	Action Action
	// Extension is the evaluated extension, lower case with its leading dot
	Extension string
	// Kind is the archive format when Action is Archive
	Kind archive.Kind
}

// Rules configure the classification of keys
type Rules struct {
	// DefaultExtension is used when the extension of a key cannot be evaluated
	DefaultExtension string
	// Ignored lists extensions acknowledged without processing
	Ignored []string
}

// UnsupportedExtensionError is returned for extensions that are neither ignored, an archive nor
// a DICOM file
type UnsupportedExtensionError struct {
	Extension string
}

func (e *UnsupportedExtensionError) Error() string {
	return fmt.Sprintf("%s file extension not supported", e.Extension)
}

var archiveExtensions = map[string]archive.Kind{
	".zip": archive.Zip,
	".tar": archive.Tar,
	".gz":  archive.TarGzip,
	".tgz": archive.TarGzip,
	".bz2": archive.TarBzip2,
}

// Classify evaluates the extension of key and returns how to process the object. Compressed
// files are assumed to be tar archives, so a key ending in .gz is a tar.gz archive.
func Classify(key string, rules Rules) (Plan, error) {
	ext := Extension(key)
	if ext == "" || len(ext) >= maxExtensionLength {
		ext = rules.DefaultExtension
	}
	ext = strings.ToLower(ext)

	for _, ignored := range rules.Ignored {
		if strings.EqualFold(ext, ignored) {
			return Plan{Action: Ignore, Extension: ext}, nil
		}
	}
	if ext == SingleFileExtension {
		return Plan{Action: Single, Extension: ext}, nil
	}
	if kind, ok := archiveExtensions[ext]; ok {
		return Plan{Action: Archive, Extension: ext, Kind: kind}, nil
	}
	return Plan{}, &UnsupportedExtensionError{Extension: ext}
}

// Extension returns the last extension of the final element of key, including the dot. Leading
// dots of the name do not start an extension, so ".hidden" has none.
func Extension(key string) string {
	name := strings.TrimLeft(path.Base(key), ".")
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return name[i:]
}
