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

package router

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/archive"
	"github.com/GoogleCloudPlatform/dicom-metadata-extractor/internal/source"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"
)

func TestShouldRoute(t *testing.T) {
	zipPlan := source.Plan{Action: source.Archive, Extension: ".zip", Kind: archive.Zip}
	single := source.Plan{Action: source.Single, Extension: ".dcm"}
	tests := []struct {
		name      string
		size      int64
		threshold int64
		plan      source.Plan
		want      bool
	}{
		{"archive at threshold is inline", 500, 500, zipPlan, false},
		{"archive one byte over threshold is routed", 501, 500, zipPlan, true},
		{"large single file is inline", 10000, 500, single, false},
		{"small archive is inline", 10, 500, zipPlan, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldRoute(tc.size, tc.threshold, tc.plan); got != tc.want {
				t.Fatalf("ShouldRoute(%d, %d) = %v, want %v", tc.size, tc.threshold, got, tc.want)
			}
		})
	}
}

func TestJobName(t *testing.T) {
	long := strings.Repeat("a", 120) + "/b.c-d_e0123456789"
	tests := []struct {
		key  string
		want string
	}{
		{"studies/2020/ct scan.zip", "studies2020ctscanzip"},
		{"under_score-dash.tar.gz", "under_scoredashtargz"},
		{"ünï/cødé.zip", "ünïcødézip"},
		{long, strings.Repeat("a", 120) + "bcd_e"},
		{"///", ""},
	}
	for _, tc := range tests {
		if got := JobName(tc.key); got != tc.want {
			t.Errorf("JobName(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func validRequest() JobRequest {
	return JobRequest{
		Bucket:          "in",
		Key:             "studies/a.zip",
		Region:          "us-east-1",
		Size:            600 << 20,
		OutputBucket:    "out",
		OutputRegion:    "us-west-2",
		PartitionColumn: "study_date",
		LogLevel:        "info",
	}
}

func TestJobRequestValidate(t *testing.T) {
	if err := validRequest().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	req := validRequest()
	req.Key = ""
	req.OutputRegion = " "
	err := req.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	if !strings.Contains(err.Error(), "S3_KEY") || !strings.Contains(err.Error(), "S3_OUTPUT_BUCKET_REGION") {
		t.Fatalf("Validate() = %v, want both missing fields named", err)
	}
	req = validRequest()
	req.Size = -1
	if err := req.Validate(); err == nil {
		t.Fatal("Validate() with negative size = nil, want error")
	}
}

type fakeRun struct {
	client.WorkflowRun
	id string
}

func (r fakeRun) GetID() string    { return r.id }
func (r fakeRun) GetRunID() string { return "run" }

type fakeClient struct {
	client.Client
	opts     client.StartWorkflowOptions
	workflow interface{}
	args     []interface{}
	err      error
}

func (c *fakeClient) ExecuteWorkflow(_ context.Context, opts client.StartWorkflowOptions, wf interface{}, args ...interface{}) (client.WorkflowRun, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.opts = opts
	c.workflow = wf
	c.args = args
	return fakeRun{id: opts.ID}, nil
}

func TestTemporalSubmitterSubmit(t *testing.T) {
	c := &fakeClient{}
	s := NewTemporalSubmitter(c, "dicom-queue", "dicom-parser")
	req := validRequest()
	id, err := s.Submit(context.Background(), JobName(req.Key), req)
	if err != nil {
		t.Fatalf("Submit() = %v", err)
	}
	if !strings.HasPrefix(id, "studiesazip-") {
		t.Errorf("Submit() id = %q, want prefix %q", id, "studiesazip-")
	}
	if c.opts.TaskQueue != "dicom-queue" {
		t.Errorf("TaskQueue = %q, want %q", c.opts.TaskQueue, "dicom-queue")
	}
	if c.workflow != "dicom-parser" {
		t.Errorf("workflow = %v, want %q", c.workflow, "dicom-parser")
	}
	if !reflect.DeepEqual(c.args, []interface{}{req}) {
		t.Errorf("args = %+v, want %+v", c.args, []interface{}{req})
	}
}

func TestTemporalSubmitterErrors(t *testing.T) {
	s := NewTemporalSubmitter(&fakeClient{err: errors.New("unavailable")}, "q", "wf")
	if _, err := s.Submit(context.Background(), "name", validRequest()); err == nil {
		t.Fatal("Submit() with failing client = nil, want error")
	}
	c := &fakeClient{}
	s = NewTemporalSubmitter(c, "q", "wf")
	if _, err := s.Submit(context.Background(), "name", JobRequest{}); err == nil {
		t.Fatal("Submit() with invalid request = nil, want error")
	}
	if c.workflow != nil {
		t.Fatal("workflow started for an invalid request")
	}
}

func TestWorkflowOptionsDefaultName(t *testing.T) {
	s := NewTemporalSubmitter(&fakeClient{}, "q", "wf")
	a, b := s.WorkflowOptions(""), s.WorkflowOptions("")
	if !strings.HasPrefix(a.ID, defaultJobName+"-") {
		t.Errorf("ID = %q, want prefix %q", a.ID, defaultJobName)
	}
	if a.ID == b.ID {
		t.Errorf("two runs share the workflow id %q", a.ID)
	}
}

type runnerFunc func(ctx context.Context, jobID string, req JobRequest) (*JobResult, error)

func (f runnerFunc) RunJob(ctx context.Context, jobID string, req JobRequest) (*JobResult, error) {
	return f(ctx, jobID, req)
}

func newWorkflowEnv(r Runner) *testsuite.TestWorkflowEnvironment {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(ExtractObjectWorkflow, workflow.RegisterOptions{Name: "dicom-parser"})
	env.RegisterActivityWithOptions(NewActivities(r).ExtractObject, activity.RegisterOptions{Name: ExtractObjectActivity})
	return env
}

func TestExtractObjectWorkflow(t *testing.T) {
	var got JobRequest
	env := newWorkflowEnv(runnerFunc(func(_ context.Context, _ string, req JobRequest) (*JobResult, error) {
		got = req
		return &JobResult{Message: "done", Paths: []string{"s3://out/x.parquet"}, Records: 2}, nil
	}))
	req := validRequest()
	env.ExecuteWorkflow("dicom-parser", req)
	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error = %v", err)
	}
	var result JobResult
	if err := env.GetWorkflowResult(&result); err != nil {
		t.Fatalf("GetWorkflowResult() = %v", err)
	}
	want := JobResult{Message: "done", Paths: []string{"s3://out/x.parquet"}, Records: 2}
	if !reflect.DeepEqual(result, want) {
		t.Errorf("result = %+v, want %+v", result, want)
	}
	if !reflect.DeepEqual(got, req) {
		t.Errorf("activity got %+v, want %+v", got, req)
	}
}

func TestExtractObjectWorkflowDoesNotRetryExtractionFailures(t *testing.T) {
	calls := 0
	env := newWorkflowEnv(runnerFunc(func(context.Context, string, JobRequest) (*JobResult, error) {
		calls++
		return nil, errors.New("invalid container")
	}))
	env.ExecuteWorkflow("dicom-parser", validRequest())
	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err == nil {
		t.Fatal("workflow error = nil, want error")
	}
	if calls != 1 {
		t.Errorf("activity ran %d times, want 1", calls)
	}
}

func TestExtractObjectWorkflowRejectsInvalidRequest(t *testing.T) {
	env := newWorkflowEnv(runnerFunc(func(context.Context, string, JobRequest) (*JobResult, error) {
		t.Error("activity ran for an invalid request")
		return nil, nil
	}))
	env.ExecuteWorkflow("dicom-parser", JobRequest{Key: "a.zip"})
	if err := env.GetWorkflowError(); err == nil {
		t.Fatal("workflow error = nil, want error")
	}
}
