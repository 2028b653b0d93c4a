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
	"fmt"
)

// SingleFileReadLength bounds the partial read of single files. The pixel data a file ends with
// is never decoded, so its metadata fits in this prefix.
const SingleFileReadLength = 10000000

// Store reads objects
type Store interface {
	// Get reads a whole object
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	// GetRange reads the bytes from start to end inclusive, or up to the end of a shorter object
	GetRange(ctx context.Context, bucket, key string, start, end int64) ([]byte, error)
}

// PutOptions are applied to uploaded objects
type PutOptions struct {
	ContentType string
	// Encrypt requests server side encryption with keys managed by the store
	Encrypt bool
	// Tags are set on the object
	Tags map[string]string
}

// Fetch reads the part of obj the plan needs: a prefix of single files and all of an archive
func Fetch(ctx context.Context, store Store, obj Object, plan Plan) ([]byte, error) {
	switch plan.Action {
	case Single:
		data, err := store.GetRange(ctx, obj.Bucket, obj.Key, 0, SingleFileReadLength)
		if err != nil {
			return nil, fmt.Errorf("reading first %d bytes of %s: %w", SingleFileReadLength, obj.URI(), err)
		}
		return data, nil
	case Archive:
		data, err := store.Get(ctx, obj.Bucket, obj.Key)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", obj.URI(), err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("nothing to fetch for a %v plan", plan.Action)
}
