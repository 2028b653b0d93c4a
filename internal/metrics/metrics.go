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

// Package metrics provides Prometheus metrics for the extractor
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics holds the collectors of one process, registered on a private registry
type Metrics struct {
	Registry *prometheus.Registry

	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	StageDuration      *prometheus.HistogramVec

	MembersScannedTotal prometheus.Counter
	MembersSkippedTotal prometheus.Counter
	RecordsWrittenTotal prometheus.Counter
	FilesWrittenTotal   prometheus.Counter
	RoutedJobsTotal     *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on a new registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		InvocationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dicom_extractor_invocations_total",
				Help: "Total number of invocations by outcome",
			},
			[]string{"mode", "outcome"},
		),
		InvocationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dicom_extractor_invocation_duration_seconds",
				Help:    "Duration of invocations in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300, 900},
			},
			[]string{"mode"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dicom_extractor_stage_duration_seconds",
				Help:    "Duration of the stages of an invocation in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		MembersScannedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "dicom_extractor_members_scanned_total",
			Help: "Total number of valid DICOM files found",
		}),
		MembersSkippedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "dicom_extractor_members_skipped_total",
			Help: "Total number of archive members skipped",
		}),
		RecordsWrittenTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "dicom_extractor_records_written_total",
			Help: "Total number of records written to the dataset",
		}),
		FilesWrittenTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "dicom_extractor_files_written_total",
			Help: "Total number of parquet files uploaded",
		}),
		RoutedJobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dicom_extractor_routed_jobs_total",
				Help: "Total number of oversized objects handed off to the job queue",
			},
			[]string{"status"},
		),
	}
}

// RecordInvocation records the outcome and duration of one invocation
func (m *Metrics) RecordInvocation(mode, outcome string, duration time.Duration) {
	m.InvocationsTotal.WithLabelValues(mode, outcome).Inc()
	m.InvocationDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordStage records the duration of one stage
func (m *Metrics) RecordStage(stage string, duration time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordRoutedJob counts a job submission
func (m *Metrics) RecordRoutedJob(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RoutedJobsTotal.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics and /health on addr until ctx is done
func (m *Metrics) Serve(ctx context.Context, addr string, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"dicom-extractor"}`))
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("serving metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
