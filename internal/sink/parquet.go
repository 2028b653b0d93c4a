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

package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/normalize"
	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/record"
	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/source"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	writerfile "github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"golang.org/x/time/rate"
)

const (
	// LineageBucketTag and LineageKeyTag name the object tags that point back at the input
	LineageBucketTag = "S3_BUCKET"
	LineageKeyTag    = "S3_KEY"

	// HiveNullPartition is the directory value of a null partition value
	HiveNullPartition = "__HIVE_DEFAULT_PARTITION__"

	fileSuffix      = ".snappy.parquet"
	parquetParallel = 4
)

// ObjectWriter stores and removes objects
type ObjectWriter interface {
	PutObject(ctx context.Context, bucket, key string, data []byte, opts source.PutOptions) error
	RemoveObject(ctx context.Context, bucket, key string) error
}

// Lineage identifies the input object a batch was extracted from
type Lineage struct {
	Bucket string
	Key    string
}

// Options configures a ParquetWriter
type Options struct {
	Bucket string
	// Prefix is the key prefix of the dataset
	Prefix string
	// UploadRPS limits uploads per second. Zero or less is unlimited.
	UploadRPS float64
}

// WriteError reports a failed batch write. No object of the batch is left in the store.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("writing dataset: %v", e.Err)
	}
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ParquetWriter writes record batches as snappy compressed parquet files, one file per
// partition value and batch.
type ParquetWriter struct {
	store   ObjectWriter
	opts    Options
	limiter *rate.Limiter
	log     zerolog.Logger
	newName func() string
}

// NewParquetWriter creates a writer that uploads through store
func NewParquetWriter(store ObjectWriter, opts Options, log zerolog.Logger) *ParquetWriter {
	limit := rate.Inf
	if opts.UploadRPS > 0 {
		limit = rate.Limit(opts.UploadRPS)
	}
	return &ParquetWriter{
		store:   store,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
		newName: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// partition is the encoded file of one partition value
type partition struct {
	dir  string
	rows []map[string]normalize.Value
	data []byte
}

// Write encodes batch and uploads one file per partition. It returns the s3:// paths of the
// files in the order their partitions first occur in batch. Either every file is stored or none.
func (w *ParquetWriter) Write(ctx context.Context, batch []*record.Record, lineage Lineage) ([]string, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	partitionColumn := SanitizeColumn(batch[0].PartitionKey())

	rows := make([]map[string]normalize.Value, len(batch))
	for i, r := range batch {
		rows[i] = r.Map()
	}
	rows = sanitizeRows(rows)
	cols := DropNullColumns(rows)

	var dataCols []string
	for _, c := range cols {
		if c != partitionColumn {
			dataCols = append(dataCols, c)
		}
	}
	if len(dataCols) == 0 {
		return nil, &WriteError{Err: errors.New("batch has no columns besides the partition column")}
	}
	schema := inferSchema(dataCols, rows)

	var parts []*partition
	byDir := make(map[string]*partition)
	for _, row := range rows {
		dir := partitionColumn + "=" + partitionValue(row[partitionColumn])
		p, ok := byDir[dir]
		if !ok {
			p = &partition{dir: dir}
			byDir[dir] = p
			parts = append(parts, p)
		}
		p.rows = append(p.rows, row)
	}

	for _, p := range parts {
		data, err := encodeParquet(schema, p.rows)
		if err != nil {
			return nil, &WriteError{Path: p.dir, Err: err}
		}
		p.data = data
	}

	putOpts := source.PutOptions{
		ContentType: "application/vnd.apache.parquet",
		Encrypt:     true,
		Tags: map[string]string{
			LineageBucketTag: lineage.Bucket,
			LineageKeyTag:    lineage.Key,
		},
	}
	var written []string
	var paths []string
	for _, p := range parts {
		key := path.Join(w.opts.Prefix, p.dir, w.newName()+fileSuffix)
		err := w.limiter.Wait(ctx)
		if err == nil {
			err = w.store.PutObject(ctx, w.opts.Bucket, key, p.data, putOpts)
		}
		if err != nil {
			w.rollback(ctx, written)
			return nil, &WriteError{Path: w.uri(key), Err: err}
		}
		written = append(written, key)
		paths = append(paths, w.uri(key))
		w.log.Debug().Str("path", w.uri(key)).Int("rows", len(p.rows)).Int("bytes", len(p.data)).Msg("wrote partition file")
	}
	return paths, nil
}

// rollback removes the objects already uploaded for a failed batch
func (w *ParquetWriter) rollback(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := w.store.RemoveObject(ctx, w.opts.Bucket, key); err != nil {
			w.log.Error().Err(err).Str("path", w.uri(key)).Msg("failed to remove partial output")
		}
	}
}

func (w *ParquetWriter) uri(key string) string {
	return "s3://" + w.opts.Bucket + "/" + key
}

// encodeParquet writes rows to an in-memory parquet file
func encodeParquet(cols []column, rows []map[string]normalize.Value) ([]byte, error) {
	schema, err := schemaJSON(cols)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	pfw := writerfile.NewWriterFile(buf)
	pw, err := writer.NewJSONWriter(schema, pfw, parquetParallel)
	if err != nil {
		return nil, fmt.Errorf("creating parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i, row := range rows {
		doc, err := encodeRow(cols, row)
		if err == nil {
			err = pw.Write(doc)
		}
		if err != nil {
			_ = pw.WriteStop()
			_ = pfw.Close()
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = pfw.Close()
		return nil, fmt.Errorf("finishing parquet file: %w", err)
	}
	if err := pfw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// partitionValue renders a partition value as a Hive directory value
func partitionValue(v normalize.Value) string {
	var s string
	switch v.Kind() {
	case normalize.NullKind:
		return HiveNullPartition
	case normalize.StringKind:
		s, _ = v.Str()
	case normalize.IntKind:
		i, _ := v.Int()
		s = strconv.FormatInt(i, 10)
	case normalize.FloatKind:
		f, _ := v.Float()
		if math.IsNaN(f) {
			return HiveNullPartition
		}
		s = strconv.FormatFloat(f, 'g', -1, 64)
	case normalize.DateKind:
		t, _ := v.Time()
		s = t.Format(normalize.DateLayout)
	case normalize.DateTimeKind:
		t, _ := v.Time()
		s = t.Format("2006-01-02 15:04:05.999999")
	default:
		s, _ = text(v)
	}
	if s == "" {
		return HiveNullPartition
	}
	return hiveEscape(s)
}

// hiveEscape percent encodes the characters Hive escapes in partition directory names
func hiveEscape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c == 0x7f || strings.IndexByte("\"#%'*/:=?\\{[]^", c) >= 0 {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
