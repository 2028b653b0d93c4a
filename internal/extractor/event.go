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

package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/source"
	"github.com/minio/minio-go/v7/pkg/notification"
)

// MissingInputError reports required input values that were not provided
type MissingInputError struct {
	Fields []string
}

func (e *MissingInputError) Error() string {
	return "empty input values: " + strings.Join(e.Fields, ", ")
}

// ParseEvent decodes an S3 notification document and returns the object of its first record
func ParseEvent(data []byte) (source.Object, error) {
	var info notification.Info
	if err := json.Unmarshal(data, &info); err != nil {
		return source.Object{}, fmt.Errorf("decoding event: %w", err)
	}
	return ObjectFromEvent(info)
}

// ObjectFromEvent returns the object of the first record of info. The key is URL decoded.
func ObjectFromEvent(info notification.Info) (source.Object, error) {
	if len(info.Records) == 0 {
		return source.Object{}, &MissingInputError{Fields: []string{"Records"}}
	}
	ev := info.Records[0]
	key, err := url.QueryUnescape(ev.S3.Object.Key)
	if err != nil {
		return source.Object{}, fmt.Errorf("decoding object key %q: %w", ev.S3.Object.Key, err)
	}
	obj := source.Object{
		Bucket: ev.S3.Bucket.Name,
		Key:    key,
		Region: ev.AwsRegion,
		Size:   ev.S3.Object.Size,
	}
	return obj, validateObject(obj)
}

// ObjectFromEnv reads the object of a job from S3_BUCKET, S3_KEY, S3_REGION and OBJ_SIZE
func ObjectFromEnv(getenv func(string) string) (source.Object, error) {
	obj := source.Object{
		Bucket: getenv("S3_BUCKET"),
		Key:    getenv("S3_KEY"),
		Region: getenv("S3_REGION"),
	}
	size := strings.TrimSpace(getenv("OBJ_SIZE"))
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"S3_BUCKET", obj.Bucket},
		{"S3_KEY", obj.Key},
		{"S3_REGION", obj.Region},
		{"OBJ_SIZE", size},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return obj, &MissingInputError{Fields: missing}
	}
	n, err := strconv.ParseInt(size, 10, 64)
	if err != nil {
		return obj, fmt.Errorf("invalid OBJ_SIZE=%q: %w", size, err)
	}
	obj.Size = n
	return obj, nil
}

func validateObject(obj source.Object) error {
	var missing []string
	if obj.Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if obj.Key == "" {
		missing = append(missing, "S3_KEY")
	}
	if obj.Region == "" {
		missing = append(missing, "S3_REGION")
	}
	if len(missing) > 0 {
		return &MissingInputError{Fields: missing}
	}
	if obj.Size < 0 {
		return errors.New("object size must not be negative")
	}
	return nil
}
