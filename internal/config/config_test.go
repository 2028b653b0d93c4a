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

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

var envVars = []string{
	"MAX_LAMBDA_SIZE", "MAX_INLINE_BYTES", "PARTITION_COL", "DEFAULT_S3_FILE_EXTENTSION",
	"IGNORE_FILE_EXT", "IGNORE_OB", "MAX_SEQUENCE_DEPTH", "S3_OUTPUT_BUCKET",
	"S3_OUTPUT_BUCKET_REGION", "S3_OUTPUT_PREFIX", "S3_UPLOAD_RPS", "S3_ENDPOINT",
	"S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_USE_SSL", "AWS_BATCH_QUEUE",
	"AWS_BATCH_DEFINITION", "TEMPORAL_ADDRESS", "TEMPORAL_NAMESPACE", "LOGLEVEL", "LOG_PRETTY",
	"METRICS_ADDR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range envVars {
		t.Setenv(v, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	got, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := Default(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if got.MaxInlineBytes != 500*1024*1024 || got.PartitionColumn != "study_date" || got.DefaultExtension != ".dcm" || !got.RedactBinary {
		t.Fatalf("unexpected defaults %+v", got)
	}
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
partition_column: series_date
ignored_extensions: [".xml"]
output:
  bucket: from-file
  region: eu-west-1
batch:
  queue: file-queue
`)
	t.Setenv("S3_OUTPUT_BUCKET", "from-env")
	t.Setenv("LOGLEVEL", "DEBUG")

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.PartitionColumn != "series_date" {
		t.Errorf("PartitionColumn = %q, want series_date", got.PartitionColumn)
	}
	if !reflect.DeepEqual(got.IgnoredExtensions, []string{".xml"}) {
		t.Errorf("IgnoredExtensions = %v, want [.xml]", got.IgnoredExtensions)
	}
	if got.Output.Bucket != "from-env" || got.Output.Region != "eu-west-1" {
		t.Errorf("Output = %+v, want bucket from-env in eu-west-1", got.Output)
	}
	if got.Batch.Queue != "file-queue" || got.Batch.Definition != "dicom-parser" {
		t.Errorf("Batch = %+v", got.Batch)
	}
	if got.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", got.LogLevel)
	}
}

func TestLoad_Environment(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(Config) bool
	}{
		{"lambda size is in MiB", map[string]string{"MAX_LAMBDA_SIZE": "2"},
			func(c Config) bool { return c.MaxInlineBytes == 2*1024*1024 }},
		{"inline bytes override lambda size", map[string]string{"MAX_LAMBDA_SIZE": "2", "MAX_INLINE_BYTES": "1000"},
			func(c Config) bool { return c.MaxInlineBytes == 1000 }},
		{"ignored extensions are a comma separated list", map[string]string{"IGNORE_FILE_EXT": ".JSON, .log,,"},
			func(c Config) bool { return reflect.DeepEqual(c.IgnoredExtensions, []string{".json", ".log"}) }},
		{"redaction can be disabled", map[string]string{"IGNORE_OB": "false"},
			func(c Config) bool { return !c.RedactBinary }},
		{"default extension", map[string]string{"DEFAULT_S3_FILE_EXTENTSION": ".zip"},
			func(c Config) bool { return c.DefaultExtension == ".zip" }},
		{"object store", map[string]string{"S3_ENDPOINT": "localhost:9000", "S3_USE_SSL": "0", "S3_ACCESS_KEY_ID": "id"},
			func(c Config) bool { return c.S3 == S3Config{Endpoint: "localhost:9000", AccessKeyID: "id"} }},
		{"temporal", map[string]string{"TEMPORAL_ADDRESS": "temporal:7233", "TEMPORAL_NAMESPACE": "dicom"},
			func(c Config) bool { return c.Temporal == TemporalConfig{"temporal:7233", "dicom"} }},
		{"upload rate", map[string]string{"S3_UPLOAD_RPS": "2.5"},
			func(c Config) bool { return c.Output.UploadRPS == 2.5 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			got, err := Load("")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !tc.check(got) {
				t.Fatalf("unexpected config %+v", got)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		file    string
		wantErr string
	}{
		{"malformed integer", map[string]string{"MAX_LAMBDA_SIZE": "big"}, "", "invalid MAX_LAMBDA_SIZE"},
		{"malformed bool", map[string]string{"IGNORE_OB": "maybe"}, "", "invalid IGNORE_OB"},
		{"zero threshold", map[string]string{"MAX_INLINE_BYTES": "0"}, "", "max inline bytes"},
		{"extension without dot", map[string]string{"DEFAULT_S3_FILE_EXTENTSION": "dcm"}, "", "must start with a dot"},
		{"malformed yaml", nil, "output: [", "parse config file"},
		{"negative depth", nil, "max_sequence_depth: -1", "max sequence depth"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			path := ""
			if tc.file != "" {
				path = writeFile(t, tc.file)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("got error %v, want one containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("Load of a missing file succeeded")
	}
}
