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
	"errors"
	"reflect"
	"testing"

	"github.com/minio/minio-go/v7/pkg/notification"
)

const sampleEvent = `{
  "Records": [
    {
      "eventVersion": "2.1",
      "eventSource": "aws:s3",
      "awsRegion": "us-east-1",
      "eventName": "ObjectCreated:Put",
      "s3": {
        "s3SchemaVersion": "1.0",
        "bucket": {"name": "dicom-in", "arn": "arn:aws:s3:::dicom-in"},
        "object": {"key": "studies/ct+scan%281%29.zip", "size": 1024, "eTag": "abc"}
      }
    }
  ]
}`

func TestParseEvent(t *testing.T) {
	got, err := ParseEvent([]byte(sampleEvent))
	if err != nil {
		t.Fatalf("ParseEvent() = %v", err)
	}
	if got.Bucket != "dicom-in" || got.Key != "studies/ct scan(1).zip" || got.Region != "us-east-1" || got.Size != 1024 {
		t.Fatalf("ParseEvent() = %+v", got)
	}
}

func TestParseEventMissingInput(t *testing.T) {
	tests := []struct {
		name  string
		event string
		want  []string
	}{
		{"no records", `{"Records": []}`, []string{"Records"}},
		{"no bucket or region", `{"Records": [{"s3": {"object": {"key": "a.zip", "size": 1}}}]}`, []string{"S3_BUCKET", "S3_REGION"}},
		{"no key", `{"Records": [{"awsRegion": "eu-west-1", "s3": {"bucket": {"name": "b"}, "object": {}}}]}`, []string{"S3_KEY"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseEvent([]byte(tc.event))
			var missing *MissingInputError
			if !errors.As(err, &missing) {
				t.Fatalf("ParseEvent() = %v, want *MissingInputError", err)
			}
			if !reflect.DeepEqual(missing.Fields, tc.want) {
				t.Errorf("missing fields = %v, want %v", missing.Fields, tc.want)
			}
		})
	}
}

func TestParseEventMalformed(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"Records": [`)); err == nil {
		t.Fatal("ParseEvent() of truncated JSON = nil, want error")
	}
	_, err := ObjectFromEvent(notification.Info{Records: []notification.Event{{AwsRegion: "r"}}})
	var missing *MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("ObjectFromEvent() = %v, want *MissingInputError", err)
	}
}

func TestObjectFromEnv(t *testing.T) {
	env := map[string]string{
		"S3_BUCKET": "in",
		"S3_KEY":    "big/archive.tar.gz",
		"S3_REGION": "us-west-2",
		"OBJ_SIZE":  "734003200",
	}
	got, err := ObjectFromEnv(func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("ObjectFromEnv() = %v", err)
	}
	if got.Bucket != "in" || got.Key != "big/archive.tar.gz" || got.Region != "us-west-2" || got.Size != 734003200 {
		t.Fatalf("ObjectFromEnv() = %+v", got)
	}

	env["OBJ_SIZE"] = "big"
	if _, err := ObjectFromEnv(func(k string) string { return env[k] }); err == nil {
		t.Fatal("ObjectFromEnv() with invalid OBJ_SIZE = nil, want error")
	}

	delete(env, "S3_KEY")
	delete(env, "OBJ_SIZE")
	_, err = ObjectFromEnv(func(k string) string { return env[k] })
	var missing *MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("ObjectFromEnv() = %v, want *MissingInputError", err)
	}
	if want := []string{"S3_KEY", "OBJ_SIZE"}; !reflect.DeepEqual(missing.Fields, want) {
		t.Errorf("missing fields = %v, want %v", missing.Fields, want)
	}
}
