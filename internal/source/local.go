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
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// LocalStore persists objects on disk to mimic S3 for tests and local runs. Buckets are
// directories under the root. Tags are kept in memory.
type LocalStore struct {
	root string

	mu   sync.Mutex
	tags map[string]map[string]string
}

// NewLocalStore creates a new local object store rooted at dir
func NewLocalStore(root string) *LocalStore {
	if root == "" {
		root = filepath.Join(os.TempDir(), "dicom-extractor-store")
	}
	_ = os.MkdirAll(root, 0o755)
	return &LocalStore{root: root, tags: map[string]map[string]string{}}
}

func (s *LocalStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bucket == "" {
		return nil, wrapError(CodeBucketNotFound, false, os.ErrNotExist)
	}
	data, err := os.ReadFile(s.objectPath(bucket, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wrapError(CodeObjectNotFound, false, err)
		}
		return nil, wrapError(CodeReadFailed, true, err)
	}
	return data, nil
}

func (s *LocalStore) GetRange(ctx context.Context, bucket, key string, start, end int64) ([]byte, error) {
	data, err := s.Get(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	if start >= int64(len(data)) {
		return []byte{}, nil
	}
	if end >= int64(len(data)) {
		end = int64(len(data)) - 1
	}
	return data[start : end+1], nil
}

// PutObject writes data under key. Encryption is not applied.
func (s *LocalStore) PutObject(ctx context.Context, bucket, key string, data []byte, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bucket == "" {
		return wrapError(CodeBucketNotFound, false, os.ErrNotExist)
	}

	fullPath := s.objectPath(bucket, key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return wrapError(CodePermissionDenied, false, err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return wrapError(CodeWriteFailed, true, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tags := make(map[string]string, len(opts.Tags))
	for k, v := range opts.Tags {
		tags[k] = v
	}
	s.tags[bucket+"/"+key] = tags
	return nil
}

func (s *LocalStore) RemoveObject(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.objectPath(bucket, key)); err != nil && !os.IsNotExist(err) {
		return wrapError(CodeWriteFailed, true, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tags, bucket+"/"+key)
	return nil
}

// Tags returns the tags of an object written by PutObject
func (s *LocalStore) Tags(bucket, key string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tags[bucket+"/"+key]
}

// List returns the keys under prefix in ascending order
func (s *LocalStore) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bucketPath := filepath.Join(s.root, bucket)

	var keys []string
	err := filepath.WalkDir(bucketPath, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(bucketPath, path)
		if err != nil {
			return err
		}
		if key := filepath.ToSlash(rel); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, wrapError(CodeReadFailed, true, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *LocalStore) objectPath(bucket, key string) string {
	return filepath.Join(s.root, bucket, filepath.FromSlash(key))
}
