// Command generate-variants writes responsive WebP variants for every JPEG
// in the configured source directory.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/tendant/simple-image-pipeline/internal/codec/libwebp"
	"github.com/tendant/simple-image-pipeline/internal/config"
	"github.com/tendant/simple-image-pipeline/internal/metrics"
	"github.com/tendant/simple-image-pipeline/internal/storage"
	"github.com/tendant/simple-image-pipeline/internal/workflows"
	"github.com/tendant/simple-image-pipeline/pkg/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("❌ %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ensure output directory exists
	output, err := storage.NewFilesystemStorage(cfg.OutputDir)
	if err != nil {
		log.Printf("❌ Error generating images: %v", err)
		return 1
	}
	source := output
	if cfg.SourceDir != cfg.OutputDir {
		// A missing source directory surfaces as a listing error
		source = storage.OpenFilesystemStorage(cfg.SourceDir)
	}

	m := metrics.New()
	variantWorkflow := workflows.NewVariantWorkflow(cfg, source, output, libwebp.NewEncoder()).
		WithReporter(workflows.NewReporter(os.Stdout)).
		WithMetrics(m)

	workflowRunner := workflows.NewWorkflowRunner()
	workflowRunner.Register(pipeline.JobVariants, variantWorkflow)

	wctx := &workflows.WorkflowContext{
		Ctx:     ctx,
		Request: pipeline.ProcessRequest{Job: pipeline.JobVariants},
		RunID:   uuid.New().String(),
	}
	result, err := workflowRunner.Run(wctx)
	resp := workflows.NewProcessResponse(wctx, result)
	log.Printf("[%s] Job %s finished: success=%v failures=%d", resp.RunID, resp.Job, resp.Success, resp.Failures)

	if mErr := m.WriteTextfile(cfg.MetricsTextfile); mErr != nil {
		log.Printf("Warning: %v", mErr)
	}

	switch {
	case errors.Is(err, workflows.ErrSetup):
		log.Printf("❌ Error generating images: %v", err)
		return 1
	case err != nil:
		log.Printf("❌ Generation interrupted: %v", err)
		return 1
	case result.Error != nil:
		// Individual outputs failed; they were reported and the run still counts as complete
		log.Printf("Completed with errors: %v", result.Error)
	}
	return 0
}
