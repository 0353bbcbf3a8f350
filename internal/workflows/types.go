package workflows

import (
	"context"
	"fmt"
	"log"

	"github.com/tendant/simple-image-pipeline/pkg/pipeline"
)

// WorkflowContext contains context for workflow execution
type WorkflowContext struct {
	Ctx     context.Context
	Request pipeline.ProcessRequest
	RunID   string
}

// WorkflowResult contains the result of workflow execution
type WorkflowResult struct {
	Success bool
	Error   error
	Outputs map[string]interface{}
}

// Workflow defines the interface for processing workflows
type Workflow interface {
	// Execute runs the workflow
	Execute(wctx *WorkflowContext) (*WorkflowResult, error)

	// Name returns the workflow name
	Name() string
}

// WorkflowRunner executes workflows
type WorkflowRunner struct {
	workflows map[string]Workflow
}

// NewWorkflowRunner creates a new workflow runner
func NewWorkflowRunner() *WorkflowRunner {
	return &WorkflowRunner{
		workflows: make(map[string]Workflow),
	}
}

// Register registers a workflow
func (r *WorkflowRunner) Register(job string, workflow Workflow) {
	r.workflows[job] = workflow
	log.Printf("✓ Registered workflow: %s for job: %s", workflow.Name(), job)
}

// Run executes the workflow registered for the request's job
func (r *WorkflowRunner) Run(wctx *WorkflowContext) (*WorkflowResult, error) {
	if wctx.Request.Job == "" {
		err := fmt.Errorf("%w: job is required", ErrInvalidRequest)
		return &WorkflowResult{Success: false, Error: err}, err
	}

	workflow, ok := r.workflows[wctx.Request.Job]
	if !ok {
		return &WorkflowResult{
			Success: false,
			Error:   ErrWorkflowNotFound,
		}, ErrWorkflowNotFound
	}

	return workflow.Execute(wctx)
}

// NewProcessResponse summarizes a finished run for the caller
func NewProcessResponse(wctx *WorkflowContext, result *WorkflowResult) pipeline.ProcessResponse {
	resp := pipeline.ProcessResponse{
		Job:   wctx.Request.Job,
		RunID: wctx.RunID,
	}
	if result == nil {
		return resp
	}
	resp.Success = result.Success
	if runID, ok := result.Outputs["run_id"].(string); ok {
		resp.RunID = runID
	}
	if failures, ok := result.Outputs["failures"].(int); ok {
		resp.Failures = failures
	}
	return resp
}
