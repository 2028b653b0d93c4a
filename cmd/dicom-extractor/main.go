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

// Command dicom-extractor extracts the metadata of DICOM files stored in S3 into a partitioned
// parquet dataset.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/config"
	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/extractor"
	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/logger"
	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/metrics"
	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/router"
	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/source"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	var code int
	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "event":
		code = runEvent(ctx, os.Args[2:])
	case "job":
		code = runJob(ctx, os.Args[2:])
	case "worker":
		code = runWorker(ctx, os.Args[2:])
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		code = 2
	}
	stop()
	os.Exit(code)
}

// app is what every command shares
type app struct {
	cfg     config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	input   *source.S3Store
	output  *source.S3Store
}

func setup(ctx context.Context, command string, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.NewLogger(loggerConfig(cfg, os.Getenv))

	s3opts := source.S3Options{
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		UseSSL:          cfg.S3.UseSSL,
	}
	input, err := source.NewS3Store(s3opts)
	if err != nil {
		return nil, fmt.Errorf("input store: %w", err)
	}
	s3opts.Region = cfg.Output.Region
	output, err := source.NewS3Store(s3opts)
	if err != nil {
		return nil, fmt.Errorf("output store: %w", err)
	}

	rt := &app{cfg: cfg, log: log, metrics: metrics.NewMetrics(), input: input, output: output}
	if cfg.MetricsAddr != "" {
		go func() {
			if err := rt.metrics.Serve(ctx, cfg.MetricsAddr, log.Component("metrics")); err != nil {
				log.GetZerolog().Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}
	log.LogStartup(command, map[string]interface{}{
		"max_inline_bytes": cfg.MaxInlineBytes,
		"partition_column": cfg.PartitionColumn,
		"output_bucket":    cfg.Output.Bucket,
		"queue":            cfg.Batch.Queue,
	})
	return rt, nil
}

// loggerConfig keeps stdout for the invocation report
func loggerConfig(cfg config.Config, getenv func(string) string) logger.Config {
	return logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
		JobID:  getenv("AWS_BATCH_JOB_ID"),
	}
}

func (rt *app) temporalOptions() client.Options {
	return client.Options{
		HostPort:  rt.cfg.Temporal.Address,
		Namespace: rt.cfg.Temporal.Namespace,
	}
}

func runEvent(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("event", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "Optional YAML config file (env overrides it)")
	eventPath := fs.String("file", "-", "S3 notification event JSON, - reads stdin")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rt, err := setup(ctx, "event", *configPath)
	if err == nil && rt.cfg.Output.Bucket == "" {
		err = errors.New("S3_OUTPUT_BUCKET is required")
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
		return 2
	}
	data, err := readInput(*eventPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "reading event: %s\n", err)
		return 2
	}
	obj, err := extractor.ParseEvent(data)
	if err != nil {
		rt.log.GetZerolog().Error().Err(err).Msg("invalid event")
		return 1
	}

	// The Temporal connection is only made when an object is routed.
	c, err := client.NewLazyClient(rt.temporalOptions())
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "temporal config error: %s\n", err)
		return 2
	}
	defer c.Close()
	submitter := router.NewTemporalSubmitter(c, rt.cfg.Batch.Queue, rt.cfg.Batch.Definition)

	rt.log = rt.log.WithFields(map[string]interface{}{"s3_bucket": obj.Bucket, "s3_key": obj.Key})
	h := extractor.New(rt.cfg, rt.input, rt.output, submitter, rt.metrics, rt.log.Component("extractor"))
	res, err := h.Handle(ctx, extractor.Request{Object: obj, Mode: extractor.ModeEvent})
	return report(os.Stdout, res, err)
}

func runJob(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("job", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "Optional YAML config file (env overrides it)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rt, err := setup(ctx, "job", *configPath)
	if err == nil && rt.cfg.Output.Bucket == "" {
		err = errors.New("S3_OUTPUT_BUCKET is required")
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
		return 2
	}
	obj, err := extractor.ObjectFromEnv(os.Getenv)
	if err != nil {
		rt.log.GetZerolog().Error().Err(err).Msg("invalid job input")
		return 2
	}
	rt.log = rt.log.WithFields(map[string]interface{}{"s3_bucket": obj.Bucket, "s3_key": obj.Key})
	h := extractor.New(rt.cfg, rt.input, rt.output, nil, rt.metrics, rt.log.Component("extractor"))
	res, err := h.Handle(ctx, extractor.Request{Object: obj, Inline: true, Mode: extractor.ModeJob})
	return report(os.Stdout, res, err)
}

func runWorker(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "Optional YAML config file (env overrides it)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rt, err := setup(ctx, "worker", *configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
		return 2
	}
	zlog := rt.log.GetZerolog()
	h := extractor.New(rt.cfg, rt.input, rt.output, nil, rt.metrics, rt.log.Component("extractor"))

	c, err := client.Dial(rt.temporalOptions())
	if err != nil {
		zlog.Error().Err(err).Str("address", rt.cfg.Temporal.Address).Msg("failed to connect to Temporal")
		return 1
	}
	defer c.Close()

	w := worker.New(c, rt.cfg.Batch.Queue, worker.Options{})
	w.RegisterWorkflowWithOptions(router.ExtractObjectWorkflow, workflow.RegisterOptions{Name: rt.cfg.Batch.Definition})
	w.RegisterActivityWithOptions(router.NewActivities(h).ExtractObject, activity.RegisterOptions{Name: router.ExtractObjectActivity})

	zlog.Info().Str("queue", rt.cfg.Batch.Queue).Str("workflow", rt.cfg.Batch.Definition).Msg("worker starting")
	interrupt := make(chan interface{})
	go func() {
		<-ctx.Done()
		close(interrupt)
	}()
	if err := w.Run(interrupt); err != nil {
		zlog.Error().Err(err).Msg("worker stopped")
		return 1
	}
	return 0
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// invocationResult is printed after each invocation
type invocationResult struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Paths   []string `json:"paths,omitempty"`
	Records int      `json:"records"`
	JobID   string   `json:"jobId,omitempty"`
}

func report(w io.Writer, res *extractor.Result, err error) int {
	out := invocationResult{Code: 200}
	code := 0
	if err != nil {
		out = invocationResult{Code: 500, Message: err.Error()}
		code = 1
	} else {
		out.Message, out.Paths, out.Records, out.JobID = res.Message, res.Paths, res.Records, res.JobID
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
	return code
}

func usage(w *os.File) {
	_, _ = fmt.Fprint(w, `dicom-extractor extracts DICOM metadata from S3 objects into a parquet dataset.

Usage:
  dicom-extractor event  [--config FILE] [--file EVENT.json]
  dicom-extractor job    [--config FILE]
  dicom-extractor worker [--config FILE]

Commands:
  event   Process one S3 notification event. Objects over the inline limit are routed to the
          job queue.
  job     Process the object named by S3_BUCKET, S3_KEY, S3_REGION and OBJ_SIZE inline.
  worker  Run the Temporal worker that processes routed objects.

Environment:
  S3_OUTPUT_BUCKET            Output bucket (required by event and job)
  S3_OUTPUT_BUCKET_REGION     Output bucket region (default us-east-1)
  S3_OUTPUT_PREFIX            Key prefix of the dataset
  PARTITION_COL               Partition column (default study_date)
  MAX_LAMBDA_SIZE             Inline limit in MB (default 500), MAX_INLINE_BYTES in bytes
  DEFAULT_S3_FILE_EXTENTSION  Extension assumed when a key has none (default .dcm)
  IGNORE_FILE_EXT             Comma separated extensions acknowledged without processing
  IGNORE_OB                   Redact binary values (default true)
  AWS_BATCH_QUEUE             Task queue of routed objects (default dicom-queue)
  AWS_BATCH_DEFINITION        Workflow name of routed objects (default dicom-parser)
  TEMPORAL_ADDRESS            Temporal frontend (default localhost:7233)
  TEMPORAL_NAMESPACE          Temporal namespace (default default)
  S3_ENDPOINT                 Object store endpoint (default s3.amazonaws.com)
  S3_ACCESS_KEY_ID            Static credentials, otherwise the AWS credential chain is used
  S3_SECRET_ACCESS_KEY
  LOGLEVEL                    debug, info, warn or error (default info)
  METRICS_ADDR                Serve /metrics and /health on this address
`)
}
