package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/tendant/simple-image-pipeline/pkg/pipeline"
)

func TestWorkflowRunnerDispatch(t *testing.T) {
	store := newStore(t)
	writeJPEG(t, store.Dir(), "coastal-clean.jpg", gradientImage(600, 400), 90)
	cfg := testConfig(store.Dir())

	runner := NewWorkflowRunner()
	runner.Register(pipeline.JobVariants, NewVariantWorkflow(cfg, store, store, &fakeEncoder{}))
	runner.Register(pipeline.JobHeroRecompress, NewHeroWorkflow(cfg, store, &fakeEncoder{}, nil))

	result, err := runner.Run(&WorkflowContext{
		Ctx:     context.Background(),
		Request: pipeline.ProcessRequest{Job: pipeline.JobVariants},
		RunID:   "dispatch",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outputs["run_id"] != "dispatch" || result.Outputs["variants"] != 3 {
		t.Fatalf("outputs = %+v", result.Outputs)
	}
	resp := NewProcessResponse(&WorkflowContext{Request: pipeline.ProcessRequest{Job: pipeline.JobVariants}, RunID: "dispatch"}, result)
	want := pipeline.ProcessResponse{Job: pipeline.JobVariants, RunID: "dispatch", Success: true, Failures: 0}
	if resp != want {
		t.Fatalf("response = %+v, want %+v", resp, want)
	}

	result, err = runner.Run(&WorkflowContext{
		Ctx:     context.Background(),
		Request: pipeline.ProcessRequest{Job: pipeline.JobHeroRecompress},
	})
	if err != nil || !result.Success {
		t.Fatalf("hero Run = %+v, %v", result, err)
	}
}

func TestWorkflowRunnerErrors(t *testing.T) {
	runner := NewWorkflowRunner()

	_, err := runner.Run(&WorkflowContext{Ctx: context.Background()})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("empty job error = %v", err)
	}

	result, err := runner.Run(&WorkflowContext{
		Ctx:     context.Background(),
		Request: pipeline.ProcessRequest{Job: "ocr"},
	})
	if !errors.Is(err, ErrWorkflowNotFound) || result.Success {
		t.Fatalf("unknown job = %+v, %v", result, err)
	}
}

func TestFailureError(t *testing.T) {
	inner := errors.New("disk full")
	f := Failure{Source: "forest.jpg", Output: "forest-320w.webp", Err: inner}
	if f.Error() != "forest.jpg -> forest-320w.webp: disk full" {
		t.Fatalf("Error() = %q", f.Error())
	}
	if !errors.Is(f, inner) {
		t.Fatal("Failure does not unwrap")
	}
	if (Failure{Source: "a.jpg", Err: inner}).Error() != "a.jpg: disk full" {
		t.Fatal("whole-file failure formatting")
	}
	if joinFailures(nil) != nil {
		t.Fatal("joinFailures(nil) != nil")
	}
}

func TestSavings(t *testing.T) {
	if got := Savings(0, 10); got != 0 {
		t.Fatalf("Savings(0, 10) = %v", got)
	}
	if got := Savings(200, 50); got != 75 {
		t.Fatalf("Savings(200, 50) = %v", got)
	}
	if got := Size(2048); got != "2.0 KiB" {
		t.Fatalf("Size(2048) = %q", got)
	}
}

func TestNewProcessResponse(t *testing.T) {
	wctx := &WorkflowContext{Request: pipeline.ProcessRequest{Job: pipeline.JobHeroRecompress}, RunID: "run-7"}

	resp := NewProcessResponse(wctx, &WorkflowResult{
		Success: false,
		Error:   ErrFilesFailed,
		Outputs: map[string]interface{}{"run_id": "run-7", "failures": 2},
	})
	want := pipeline.ProcessResponse{Job: pipeline.JobHeroRecompress, RunID: "run-7", Success: false, Failures: 2}
	if resp != want {
		t.Fatalf("response = %+v, want %+v", resp, want)
	}

	// setup failures carry no outputs
	resp = NewProcessResponse(wctx, &WorkflowResult{Success: false, Error: ErrSetup})
	if resp.RunID != "run-7" || resp.Failures != 0 || resp.Success {
		t.Fatalf("response = %+v", resp)
	}

	if resp := NewProcessResponse(wctx, nil); resp.Job != pipeline.JobHeroRecompress {
		t.Fatalf("response = %+v", resp)
	}
}
