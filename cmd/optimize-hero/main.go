// Command optimize-hero re-encodes generated hero variants at an ultra-low
// quality to shrink above-the-fold images.
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
	"github.com/tendant/simple-image-pipeline/internal/ledger"
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

	store, err := storage.NewFilesystemStorage(cfg.OutputDir)
	if err != nil {
		log.Printf("❌ Error optimizing hero images: %v", err)
		return 1
	}

	// A nil PassLedger disables the already-optimized guard
	var passes workflows.PassLedger
	tracker, err := ledger.Open(cfg.LedgerDSN)
	switch {
	case errors.Is(err, ledger.ErrDisabled):
		log.Printf("Ledger disabled: hero files will be re-compressed on every run")
	case err != nil:
		log.Printf("❌ Error opening ledger: %v", err)
		return 1
	default:
		defer tracker.Close()
		passes = tracker
	}

	m := metrics.New()
	heroWorkflow := workflows.NewHeroWorkflow(cfg, store, libwebp.NewEncoder(), passes).
		WithReporter(workflows.NewReporter(os.Stdout)).
		WithMetrics(m)

	workflowRunner := workflows.NewWorkflowRunner()
	workflowRunner.Register(pipeline.JobHeroRecompress, heroWorkflow)

	wctx := &workflows.WorkflowContext{
		Ctx:     ctx,
		Request: pipeline.ProcessRequest{Job: pipeline.JobHeroRecompress},
		RunID:   uuid.New().String(),
	}
	result, err := workflowRunner.Run(wctx)
	resp := workflows.NewProcessResponse(wctx, result)
	log.Printf("[%s] Job %s finished: success=%v failures=%d", resp.RunID, resp.Job, resp.Success, resp.Failures)

	if mErr := m.WriteTextfile(cfg.MetricsTextfile); mErr != nil {
		log.Printf("Warning: %v", mErr)
	}

	if err != nil {
		log.Printf("❌ Error optimizing hero images: %v", err)
		return 1
	}
	return 0
}
