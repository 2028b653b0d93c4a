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

// Package router hands objects too large to process inline off to an asynchronous job queue.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/source"
)

// maxJobNameLength is the number of characters of the key a job name is derived from
const maxJobNameLength = 128

// ShouldRoute is true if an object of size bytes is handed off instead of processed inline.
// Single files are never routed because only their first bytes are read.
func ShouldRoute(size, threshold int64, plan source.Plan) bool {
	return size > threshold && plan.Action != source.Single
}

// JobName derives a job name from an object key: the first 128 characters of the key, without
// the characters that are not letters, digits or underscores.
func JobName(key string) string {
	runes := []rune(key)
	if len(runes) > maxJobNameLength {
		runes = runes[:maxJobNameLength]
	}
	var b strings.Builder
	for _, r := range runes {
		if r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// JobRequest is everything a job needs to process one object
type JobRequest struct {
	Bucket string `json:"s3Bucket"`
	Key    string `json:"s3Key"`
	Region string `json:"s3Region"`
	Size   int64  `json:"objSize"`

	OutputBucket string `json:"s3OutputBucket"`
	OutputRegion string `json:"s3OutputBucketRegion"`
	OutputPrefix string `json:"s3OutputPrefix,omitempty"`

	PartitionColumn string `json:"partitionCol"`
	LogLevel        string `json:"logLevel"`
}

// Object returns the source object of the request
func (r JobRequest) Object() source.Object {
	return source.Object{Bucket: r.Bucket, Key: r.Key, Region: r.Region, Size: r.Size}
}

// Validate reports the missing fields of r
func (r JobRequest) Validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"S3_BUCKET", r.Bucket},
		{"S3_KEY", r.Key},
		{"S3_REGION", r.Region},
		{"S3_OUTPUT_BUCKET", r.OutputBucket},
		{"S3_OUTPUT_BUCKET_REGION", r.OutputRegion},
		{"PARTITION_COL", r.PartitionColumn},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("job request is missing %s", strings.Join(missing, ", "))
	}
	if r.Size < 0 {
		return errors.New("job request has a negative object size")
	}
	return nil
}

// JobResult is what a job reports back
type JobResult struct {
	Message string   `json:"message"`
	Paths   []string `json:"paths,omitempty"`
	Records int      `json:"records"`
}

// Submitter hands a request off to the job queue and returns the id of the job
type Submitter interface {
	Submit(ctx context.Context, name string, req JobRequest) (string, error)
}
