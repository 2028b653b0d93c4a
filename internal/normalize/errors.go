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

	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/dicom"
)

// UnknownVRError is returned for a VR code that belongs to no Class
type UnknownVRError struct {
	VR string
}

func (e *UnknownVRError) Error() string {
	return fmt.Sprintf("unknown vr %q", e.VR)
}

// ConversionError is returned when a value cannot be converted, e.g. malformed date text
type ConversionError struct {
	Tag     dicom.DataElementTag
	Keyword string
	VR      string
	Value   string
	Err     error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("converting %v %s (%s) value %q: %v", e.Tag, e.Keyword, e.VR, e.Value, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }
