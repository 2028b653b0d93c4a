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
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/dicom"
	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/archive"
	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/config"
	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/metrics"
	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/normalize"
	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/record"
	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/router"
	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/sink"
	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/source"
	"github.com/rs/zerolog"
)

// Invocation modes, used as metric labels
const (
	ModeEvent = "event"
	ModeJob   = "job"
)

// Request is one object to process
type Request struct {
	Object source.Object
	// Inline processes the object in this invocation whatever its size
	Inline bool
	Mode   string
}

// Result describes a successful invocation
type Result struct {
	Message string
	// Paths lists the uploaded parquet files
	Paths   []string
	Records int
	// Empty is set when the object held no DICOM file or its extension is ignored
	Empty bool
	// JobID is set when the object was routed to the job queue
	JobID string
}

// Handler runs invocations against one configuration
type Handler struct {
	cfg          config.Config
	store        source.Store
	output       sink.ObjectWriter
	submitter    router.Submitter
	normalizer   *normalize.Normalizer
	parseOptions []dicom.ParseOption
	metrics      *metrics.Metrics
	log          zerolog.Logger
}

// New creates a handler. submitter may be nil when every request is processed inline.
func New(cfg config.Config, store source.Store, output sink.ObjectWriter, submitter router.Submitter, m *metrics.Metrics, log zerolog.Logger) *Handler {
	if m == nil {
		m = metrics.NewMetrics()
	}
	opts := []dicom.ParseOption{dicom.DropMetaElements, dicom.DropGroupLengths, dicom.DropPrivateTags, dicom.StopBeforePixelData}
	if cfg.RedactBinary {
		opts = append(opts, dicom.ReferenceBulkData(dicom.DefaultBulkDataDefinition))
	}
	return &Handler{
		cfg:       cfg,
		store:     store,
		output:    output,
		submitter: submitter,
		normalizer: &normalize.Normalizer{
			RedactBinary: cfg.RedactBinary,
			MaxDepth:     cfg.MaxSequenceDepth,
		},
		parseOptions: opts,
		metrics:      m,
		log:          log,
	}
}

// Handle processes req. Any error aborts the whole invocation and nothing is written.
func (h *Handler) Handle(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	mode := req.Mode
	if mode == "" {
		mode = ModeEvent
	}
	obj := req.Object
	log := h.log.With().Str("input", obj.URI()).Logger()
	defer func() {
		h.metrics.RecordInvocation(mode, outcome(res, err), time.Since(start))
		if err != nil {
			log.Error().Err(err).Dur("duration", time.Since(start)).Msg("invocation failed")
			return
		}
		log.Info().Dur("duration", time.Since(start)).Int("record_count", res.Records).Msg(res.Message)
	}()

	if err := validateObject(obj); err != nil {
		return nil, err
	}
	log.Info().Int64("size", obj.Size).Msg("S3 input values")

	plan, err := source.Classify(obj.Key, source.Rules{
		DefaultExtension: h.cfg.DefaultExtension,
		Ignored:          h.cfg.IgnoredExtensions,
	})
	if err != nil {
		return nil, err
	}
	if plan.Action == source.Ignore {
		log.Info().Str("extension", plan.Extension).Msg("ignoring file extension")
		return emptyResult(obj, plan), nil
	}

	if !req.Inline && router.ShouldRoute(obj.Size, h.cfg.MaxInlineBytes, plan) {
		return h.route(ctx, obj, log)
	}

	if h.cfg.Output.Bucket == "" {
		return nil, errors.New("output bucket is not configured")
	}

	stage := time.Now()
	data, err := source.Fetch(ctx, h.store, obj, plan)
	if err != nil {
		return nil, err
	}
	h.metrics.RecordStage("fetch", time.Since(stage))

	stage = time.Now()
	sources, err := h.sources(data, obj, plan, log)
	if err != nil {
		return nil, err
	}
	h.metrics.RecordStage("scan", time.Since(stage))
	if len(sources) == 0 {
		log.Info().Str("extension", plan.Extension).Msg("no DICOM file found")
		return emptyResult(obj, plan), nil
	}

	stage = time.Now()
	batch := make([]*record.Record, 0, len(sources))
	for _, src := range sources {
		r, err := h.extract(src, obj, log)
		if err != nil {
			return nil, err
		}
		batch = append(batch, r)
	}
	h.metrics.RecordStage("extract", time.Since(stage))
	log.Info().Int("files", len(batch)).Msg("completed DICOM parsing")

	stage = time.Now()
	w := sink.NewParquetWriter(h.output, sink.Options{
		Bucket:    h.cfg.Output.Bucket,
		Prefix:    h.cfg.Output.Prefix,
		UploadRPS: h.cfg.Output.UploadRPS,
	}, log.With().Str("component", "sink").Logger())
	paths, err := w.Write(ctx, batch, sink.Lineage{Bucket: obj.Bucket, Key: obj.Key})
	if err != nil {
		return nil, err
	}
	h.metrics.RecordStage("write", time.Since(stage))
	h.metrics.RecordsWrittenTotal.Add(float64(len(batch)))
	h.metrics.FilesWrittenTotal.Add(float64(len(paths)))

	return &Result{
		Message: fmt.Sprintf("Completed job INPUT %s, OUTPUT [%s]", obj.URI(), strings.Join(paths, ", ")),
		Paths:   paths,
		Records: len(batch),
	}, nil
}

// sources returns the DICOM files held by data
func (h *Handler) sources(data []byte, obj source.Object, plan source.Plan, log zerolog.Logger) ([]archive.Source, error) {
	if plan.Action == source.Single {
		h.metrics.MembersScannedTotal.Inc()
		return []archive.Source{archive.NewPlainFile(obj.Key, data)}, nil
	}

	scanner, err := archive.NewScanner(data, plan.Kind, log.With().Str("component", "archive").Logger())
	if err != nil {
		return nil, err
	}
	defer scanner.Close()
	var out []archive.Source
	for {
		m, err := scanner.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		h.metrics.MembersScannedTotal.Inc()
		out = append(out, m)
	}
	return out, nil
}

// extract decodes one DICOM file and flattens it into a record
func (h *Handler) extract(src archive.Source, obj source.Object, log zerolog.Logger) (*record.Record, error) {
	log.Info().Str("archive_path", src.Name()).Msg("processing file")
	rc, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", src.Name(), err)
	}
	defer rc.Close()

	ds, err := dicom.Parse(rc, h.parseOptions...)
	if err != nil {
		return nil, fmt.Errorf("invalid DICOM file %s: %w", src.Name(), err)
	}
	prov := record.Provenance{
		Bucket:      obj.Bucket,
		Region:      obj.Region,
		Key:         obj.Key,
		ArchivePath: src.Name(),
	}
	return record.Build(ds, h.normalizer, prov, h.cfg.PartitionColumn, log)
}

// route hands obj off to the job queue
func (h *Handler) route(ctx context.Context, obj source.Object, log zerolog.Logger) (*Result, error) {
	if h.submitter == nil {
		return nil, fmt.Errorf("%s is larger than %d bytes and no job queue is configured", obj.URI(), h.cfg.MaxInlineBytes)
	}
	name := router.JobName(obj.Key)
	log.Info().Int64("max_inline_bytes", h.cfg.MaxInlineBytes).Str("queue", h.cfg.Batch.Queue).
		Str("job_name", name).Msg("file size over the inline limit, submitting to job queue")

	id, err := h.submitter.Submit(ctx, name, router.JobRequest{
		Bucket:          obj.Bucket,
		Key:             obj.Key,
		Region:          obj.Region,
		Size:            obj.Size,
		OutputBucket:    h.cfg.Output.Bucket,
		OutputRegion:    h.cfg.Output.Region,
		OutputPrefix:    h.cfg.Output.Prefix,
		PartitionColumn: h.cfg.PartitionColumn,
		LogLevel:        h.cfg.LogLevel,
	})
	h.metrics.RecordRoutedJob(err)
	if err != nil {
		return nil, fmt.Errorf("submitting job %s: %w", name, err)
	}
	return &Result{
		Message: fmt.Sprintf("Forwarded request to job queue %s, INPUT %s, JOB_ID: %s", h.cfg.Batch.Queue, obj.URI(), id),
		JobID:   id,
	}, nil
}

// RunJob processes a routed request inline. The request's output settings replace the
// configured ones.
func (h *Handler) RunJob(ctx context.Context, jobID string, req router.JobRequest) (*router.JobResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	job := *h
	job.cfg.Output.Bucket = req.OutputBucket
	job.cfg.Output.Region = req.OutputRegion
	job.cfg.Output.Prefix = req.OutputPrefix
	job.cfg.PartitionColumn = req.PartitionColumn
	job.log = h.log.With().Str("batch_job_id", jobID).Logger()
	if lvl, err := zerolog.ParseLevel(strings.ToLower(req.LogLevel)); err == nil && lvl != zerolog.NoLevel {
		job.log = job.log.Level(lvl)
	}

	res, err := job.Handle(ctx, Request{Object: req.Object(), Inline: true, Mode: ModeJob})
	if err != nil {
		return nil, err
	}
	return &router.JobResult{Message: res.Message, Paths: res.Paths, Records: res.Records}, nil
}

func emptyResult(obj source.Object, plan source.Plan) *Result {
	return &Result{
		Message: fmt.Sprintf("Completed job INPUT %s, OUTPUT No file found, file ext: %s", obj.URI(), plan.Extension),
		Empty:   true,
	}
}

func outcome(res *Result, err error) string {
	switch {
	case err != nil:
		return "error"
	case res.JobID != "":
		return "routed"
	case res.Empty:
		return "empty"
	}
	return "success"
}
