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

package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/encrypt"
)

// S3Options configure an S3Store
type S3Options struct {
	// Endpoint is a host[:port] or a URL whose scheme selects TLS
	Endpoint string
	// AccessKeyID and SecretAccessKey are optional. Without them the credentials come from the
	// AWS environment variables or the instance role.
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	// Region of the buckets. Empty looks the region up per bucket.
	Region string
}

// S3Store reads and writes objects with minio-go
type S3Store struct {
	client *minio.Client
}

// NewS3Store creates a client for the endpoint in opts
func NewS3Store(opts S3Options) (*S3Store, error) {
	if opts.Endpoint == "" {
		return nil, wrapError(CodeEndpointUnreachable, false, fmt.Errorf("endpoint is required"))
	}

	endpoint, useSSL := opts.Endpoint, opts.UseSSL
	if u, err := url.Parse(opts.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	creds := credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, "")
	if opts.AccessKeyID == "" {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
		})
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: useSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, wrapError(CodeEndpointUnreachable, true, fmt.Errorf("creating minio client: %w", err))
	}
	return &S3Store{client: client}, nil
}

func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	return s.get(ctx, bucket, key, minio.GetObjectOptions{})
}

func (s *S3Store) GetRange(ctx context.Context, bucket, key string, start, end int64) ([]byte, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(start, end); err != nil {
		return nil, wrapError(CodeReadFailed, false, err)
	}
	return s.get(ctx, bucket, key, opts)
}

func (s *S3Store) get(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) ([]byte, error) {
	if bucket == "" {
		return nil, wrapError(CodeBucketNotFound, false, fmt.Errorf("bucket is required"))
	}
	if key == "" {
		return nil, wrapError(CodeObjectNotFound, false, fmt.Errorf("object key is required"))
	}

	obj, err := s.client.GetObject(ctx, bucket, key, opts)
	if err != nil {
		return nil, classifyMinioError(err, CodeReadFailed)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classifyMinioError(err, CodeReadFailed)
	}
	return data, nil
}

// PutObject uploads data under key
func (s *S3Store) PutObject(ctx context.Context, bucket, key string, data []byte, opts PutOptions) error {
	if bucket == "" {
		return wrapError(CodeBucketNotFound, false, fmt.Errorf("bucket is required"))
	}
	if key == "" {
		return wrapError(CodeWriteFailed, false, fmt.Errorf("object key is required"))
	}

	putOpts := minio.PutObjectOptions{
		ContentType: opts.ContentType,
		UserTags:    opts.Tags,
	}
	if putOpts.ContentType == "" {
		putOpts.ContentType = "application/octet-stream"
	}
	if opts.Encrypt {
		putOpts.ServerSideEncryption = encrypt.NewSSE()
	}

	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), putOpts)
	if err != nil {
		return classifyMinioError(err, CodeWriteFailed)
	}
	return nil
}

// RemoveObject deletes key. Removing a missing object is not an error.
func (s *S3Store) RemoveObject(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bucket == "" || key == "" {
		return wrapError(CodeBucketNotFound, false, fmt.Errorf("bucket/key is required"))
	}
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return classifyMinioError(err, CodeWriteFailed)
	}
	return nil
}
