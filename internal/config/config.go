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

// Package config loads the settings of the extractor from an optional YAML file and the
// environment. Environment variables override the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const mib = 1024 * 1024

// Config is the immutable configuration of one process
type Config struct {
	// MaxInlineBytes is the largest archive processed inline. Larger archives are routed.
	MaxInlineBytes int64 `yaml:"max_inline_bytes"`

	// PartitionColumn is the snake_case name of the output partition column
	PartitionColumn string `yaml:"partition_column"`

	// DefaultExtension is assumed when the extension of a key cannot be evaluated
	DefaultExtension string `yaml:"default_extension"`

	// IgnoredExtensions are acknowledged without processing
	IgnoredExtensions []string `yaml:"ignored_extensions"`

	// RedactBinary replaces binary element values with a fixed literal
	RedactBinary bool `yaml:"redact_binary"`

	// MaxSequenceDepth bounds the nesting of sequences
	MaxSequenceDepth int `yaml:"max_sequence_depth"`

	Output   OutputConfig   `yaml:"output"`
	S3       S3Config       `yaml:"s3"`
	Batch    BatchConfig    `yaml:"batch"`
	Temporal TemporalConfig `yaml:"temporal"`

	LogLevel    string `yaml:"log_level"`
	LogPretty   bool   `yaml:"log_pretty"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// OutputConfig locates the parquet dataset
type OutputConfig struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
	// UploadRPS limits object uploads per second. Zero disables the limit.
	UploadRPS float64 `yaml:"upload_rps"`
}

// S3Config holds the object store connection settings
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl"`
}

// BatchConfig names the queue and the job definition oversized objects are routed to
type BatchConfig struct {
	Queue      string `yaml:"queue"`
	Definition string `yaml:"definition"`
}

type TemporalConfig struct {
	Address   string `yaml:"address"`
	Namespace string `yaml:"namespace"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		MaxInlineBytes:    500 * mib,
		PartitionColumn:   "study_date",
		DefaultExtension:  ".dcm",
		IgnoredExtensions: []string{".json", ".txt", ".csv"},
		RedactBinary:      true,
		MaxSequenceDepth:  16,
		Output:            OutputConfig{Region: "us-east-1"},
		S3:                S3Config{Endpoint: "s3.amazonaws.com", UseSSL: true},
		Batch:             BatchConfig{Queue: "dicom-queue", Definition: "dicom-parser"},
		Temporal:          TemporalConfig{Address: "localhost:7233", Namespace: "default"},
		LogLevel:          "info",
	}
}

// Load returns the defaults, overridden by the YAML file at path when path is not empty, then
// by the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if mb, err := envInt("MAX_LAMBDA_SIZE", -1); err != nil {
		return err
	} else if mb >= 0 {
		cfg.MaxInlineBytes = int64(mb) * mib
	}
	maxInline, err := envInt64("MAX_INLINE_BYTES", cfg.MaxInlineBytes)
	if err != nil {
		return err
	}
	cfg.MaxInlineBytes = maxInline

	envString("PARTITION_COL", &cfg.PartitionColumn)
	envString("DEFAULT_S3_FILE_EXTENTSION", &cfg.DefaultExtension)
	if v := strings.TrimSpace(os.Getenv("IGNORE_FILE_EXT")); v != "" {
		cfg.IgnoredExtensions = nil
		for _, ext := range strings.Split(v, ",") {
			if ext = strings.TrimSpace(ext); ext != "" {
				cfg.IgnoredExtensions = append(cfg.IgnoredExtensions, strings.ToLower(ext))
			}
		}
	}
	if cfg.RedactBinary, err = envBool("IGNORE_OB", cfg.RedactBinary); err != nil {
		return err
	}
	if cfg.MaxSequenceDepth, err = envInt("MAX_SEQUENCE_DEPTH", cfg.MaxSequenceDepth); err != nil {
		return err
	}

	envString("S3_OUTPUT_BUCKET", &cfg.Output.Bucket)
	envString("S3_OUTPUT_BUCKET_REGION", &cfg.Output.Region)
	envString("S3_OUTPUT_PREFIX", &cfg.Output.Prefix)
	if cfg.Output.UploadRPS, err = envFloat("S3_UPLOAD_RPS", cfg.Output.UploadRPS); err != nil {
		return err
	}

	envString("S3_ENDPOINT", &cfg.S3.Endpoint)
	envString("S3_ACCESS_KEY_ID", &cfg.S3.AccessKeyID)
	envString("S3_SECRET_ACCESS_KEY", &cfg.S3.SecretAccessKey)
	if cfg.S3.UseSSL, err = envBool("S3_USE_SSL", cfg.S3.UseSSL); err != nil {
		return err
	}

	envString("AWS_BATCH_QUEUE", &cfg.Batch.Queue)
	envString("AWS_BATCH_DEFINITION", &cfg.Batch.Definition)
	envString("TEMPORAL_ADDRESS", &cfg.Temporal.Address)
	envString("TEMPORAL_NAMESPACE", &cfg.Temporal.Namespace)

	envString("LOGLEVEL", &cfg.LogLevel)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogPretty, err = envBool("LOG_PRETTY", cfg.LogPretty); err != nil {
		return err
	}
	envString("METRICS_ADDR", &cfg.MetricsAddr)
	return nil
}

// Validate reports every invalid setting
func (c Config) Validate() error {
	var errs []error
	if c.MaxInlineBytes <= 0 {
		errs = append(errs, fmt.Errorf("max inline bytes must be positive, got %d", c.MaxInlineBytes))
	}
	if strings.TrimSpace(c.PartitionColumn) == "" {
		errs = append(errs, errors.New("partition column is required"))
	}
	if !strings.HasPrefix(c.DefaultExtension, ".") {
		errs = append(errs, fmt.Errorf("default extension %q must start with a dot", c.DefaultExtension))
	}
	if c.MaxSequenceDepth <= 0 {
		errs = append(errs, fmt.Errorf("max sequence depth must be positive, got %d", c.MaxSequenceDepth))
	}
	if c.Output.UploadRPS < 0 {
		errs = append(errs, fmt.Errorf("upload rps must not be negative, got %v", c.Output.UploadRPS))
	}
	return errors.Join(errs...)
}

func envString(varName string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(varName)); v != "" {
		*dst = v
	}
}

func envInt(varName string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envInt64(varName string, fallback int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envBool(varName string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
