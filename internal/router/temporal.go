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
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ExtractObjectActivity is the registered name of Activities.ExtractObject
const ExtractObjectActivity = "ExtractObject"

const defaultJobName = "dicom_extract"

var activityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 6 * time.Hour,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:    10 * time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    5 * time.Minute,
		MaximumAttempts:    3,
		NonRetryableErrorTypes: []string{
			extractionFailed,
		},
	},
}

const extractionFailed = "ExtractionFailed"

// ExtractObjectWorkflow runs one job. The worker registers it under the job definition name.
func ExtractObjectWorkflow(ctx workflow.Context, req JobRequest) (*JobResult, error) {
	logger := workflow.GetLogger(ctx)
	if err := req.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidInput", err)
	}
	logger.Info("extracting object", "bucket", req.Bucket, "key", req.Key, "size", req.Size)

	actCtx := workflow.WithActivityOptions(ctx, activityOptions)
	var result JobResult
	if err := workflow.ExecuteActivity(actCtx, ExtractObjectActivity, req).Get(actCtx, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Runner processes the object of a job request inline
type Runner interface {
	RunJob(ctx context.Context, jobID string, req JobRequest) (*JobResult, error)
}

// Activities holds the activity implementations of the job worker
type Activities struct {
	runner Runner
}

// NewActivities creates the activities backed by runner
func NewActivities(runner Runner) *Activities {
	return &Activities{runner: runner}
}

// ExtractObject processes the object of req. Extraction failures are not retried.
func (a *Activities) ExtractObject(ctx context.Context, req JobRequest) (*JobResult, error) {
	logger := activity.GetLogger(ctx)
	info := activity.GetInfo(ctx)
	logger.Info("running extraction", "workflowId", info.WorkflowExecution.ID, "attempt", info.Attempt)

	result, err := a.runner.RunJob(ctx, info.WorkflowExecution.ID, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), extractionFailed, err)
	}
	return result, nil
}

// TemporalSubmitter starts ExtractObjectWorkflow runs
type TemporalSubmitter struct {
	client    client.Client
	taskQueue string
	workflow  string
}

// NewTemporalSubmitter submits to taskQueue the workflow registered as workflowName
func NewTemporalSubmitter(c client.Client, taskQueue, workflowName string) *TemporalSubmitter {
	return &TemporalSubmitter{client: c, taskQueue: taskQueue, workflow: workflowName}
}

// WorkflowOptions returns the options of the run started for a job name
func (s *TemporalSubmitter) WorkflowOptions(name string) client.StartWorkflowOptions {
	if name == "" {
		name = defaultJobName
	}
	return client.StartWorkflowOptions{
		ID:                       name + "-" + uuid.NewString(),
		TaskQueue:                s.taskQueue,
		WorkflowExecutionTimeout: 24 * time.Hour,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
}

// Submit starts a workflow run for req and returns the workflow id
func (s *TemporalSubmitter) Submit(ctx context.Context, name string, req JobRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	run, err := s.client.ExecuteWorkflow(ctx, s.WorkflowOptions(name), s.workflow, req)
	if err != nil {
		return "", fmt.Errorf("starting workflow %s on %s: %w", s.workflow, s.taskQueue, err)
	}
	return run.GetID(), nil
}
