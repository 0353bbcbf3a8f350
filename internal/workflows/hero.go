package workflows

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-image-pipeline/internal/codec"
	"github.com/tendant/simple-image-pipeline/internal/config"
	"github.com/tendant/simple-image-pipeline/internal/ledger"
	"github.com/tendant/simple-image-pipeline/internal/metrics"
	"github.com/tendant/simple-image-pipeline/internal/storage"
	"github.com/tendant/simple-image-pipeline/pkg/pipeline"
)

// AssetStore lists, reads and atomically replaces generated variants
type AssetStore interface {
	storage.Lister
	storage.Reader
	storage.Writer
}

// PassLedger remembers which bytes the re-compressor last produced per file
type PassLedger interface {
	Lookup(ctx context.Context, fileName string) (*ledger.Pass, error)
	Record(ctx context.Context, p ledger.Pass) (int, error)
}

// HeroFile describes one re-compressed file
type HeroFile struct {
	File        string
	Width       int // tier width parsed from the name, 0 if not a tier variant
	BytesBefore int64
	BytesAfter  int64
	PassCount   int
}

// HeroReport summarizes one hero re-compression run
type HeroReport struct {
	RunID            string
	Optimized        []HeroFile
	AlreadyOptimized int
	NoGain           int
	Failures         []Failure
	BytesBefore      int64
	BytesAfter       int64
}

// Err returns the aggregated per-file failures, or nil
func (r *HeroReport) Err() error {
	return joinFailures(r.Failures)
}

// HeroWorkflow re-encodes hero variants in place at the ultra-low quality
type HeroWorkflow struct {
	cfg      config.Config
	store    AssetStore
	encoder  codec.Encoder
	ledger   PassLedger
	reporter *Reporter
	metrics  *metrics.Metrics
}

// NewHeroWorkflow creates a hero re-compressor. passes may be nil, which
// disables the already-optimized guard.
func NewHeroWorkflow(cfg config.Config, store AssetStore, encoder codec.Encoder, passes PassLedger) *HeroWorkflow {
	return &HeroWorkflow{
		cfg:      cfg,
		store:    store,
		encoder:  encoder,
		ledger:   passes,
		reporter: NewReporter(nil),
		metrics:  metrics.New(),
	}
}

// WithReporter sets the console reporter
func (w *HeroWorkflow) WithReporter(r *Reporter) *HeroWorkflow {
	w.reporter = r
	return w
}

// WithMetrics sets the metrics sink
func (w *HeroWorkflow) WithMetrics(m *metrics.Metrics) *HeroWorkflow {
	w.metrics = m
	return w
}

// Name returns the workflow name
func (w *HeroWorkflow) Name() string {
	return "HeroWorkflow"
}

// Execute runs the hero re-compressor. Any failed file fails the workflow,
// but only after every matching file was attempted.
func (w *HeroWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	report, err := w.Recompress(wctx.Ctx, wctx.RunID)
	if err == nil {
		err = report.Err()
	}

	outputs := map[string]interface{}{
		"run_id":            report.RunID,
		"optimized":         len(report.Optimized),
		"already_optimized": report.AlreadyOptimized,
		"no_gain":           report.NoGain,
		"failures":          len(report.Failures),
		"report":            report,
	}
	if err != nil {
		return &WorkflowResult{
			Success: false,
			Error:   err,
			Outputs: outputs,
		}, err
	}

	return &WorkflowResult{
		Success: true,
		Outputs: outputs,
	}, nil
}

// Recompress processes every file matching the hero prefix and target
// extension. Per-file failures are collected in the report; the returned
// error is non-nil only for listing failures (ErrSetup) or cancellation.
func (w *HeroWorkflow) Recompress(ctx context.Context, runID string) (*HeroReport, error) {
	if runID == "" {
		runID = uuid.New().String()
	}
	report := &HeroReport{RunID: runID}
	log.Printf("[%s] Starting hero workflow", runID)

	w.reporter.printf("🎯 Optimizing hero images for LCP performance...\n\n")

	if err := ctx.Err(); err != nil {
		return report, err
	}
	ext := w.encoder.Ext()
	files, err := w.store.List(ctx, func(name string) bool {
		return w.cfg.IsHeroOutput(name, ext)
	})
	if err != nil {
		log.Printf("[%s] Failed to list hero files: %v", runID, err)
		return report, fmt.Errorf("%w: list hero files: %w", ErrSetup, err)
	}

	w.reporter.printf("Found %d hero images to optimize\n\n", len(files))

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			log.Printf("[%s] Interrupted before %s: %v", runID, file, err)
			w.reporter.HeroSummary(report)
			return report, err
		}

		if _, width, _ := pipeline.ParseVariantFileName(file, ext); width > 0 {
			w.reporter.printf("📸 Optimizing: %s (%dw)\n", file, width)
		} else {
			w.reporter.printf("📸 Optimizing: %s\n", file)
		}
		if err := w.recompressFile(ctx, report, file); err != nil {
			log.Printf("[%s] %s: %v", runID, file, err)
			w.reporter.printf("  ✗ %v\n\n", err)
			report.Failures = append(report.Failures, Failure{Source: file, Err: err})
			w.metrics.HeroFiles.WithLabelValues(metrics.OutcomeFailed).Inc()
		}
	}

	w.reporter.HeroSummary(report)
	if err := ctx.Err(); err != nil {
		log.Printf("[%s] Interrupted: %v", runID, err)
		return report, err
	}
	log.Printf("[%s] Hero workflow completed: optimized=%d skipped=%d no_gain=%d failures=%d",
		runID, len(report.Optimized), report.AlreadyOptimized, report.NoGain, len(report.Failures))

	return report, nil
}

// recompressFile decodes file once, encodes once at the ultra-low quality and
// atomically replaces the original when the result is smaller.
func (w *HeroWorkflow) recompressFile(ctx context.Context, report *HeroReport, file string) error {
	runID := report.RunID
	quality := w.cfg.HeroUltraQuality

	original, err := w.readAll(ctx, file)
	if err != nil {
		return err
	}
	before := int64(len(original))

	currentSum, err := ledger.Checksum(bytes.NewReader(original))
	if err != nil {
		return err
	}

	if w.ledger != nil {
		pass, err := w.ledger.Lookup(ctx, file)
		if err != nil {
			// Continue anyway - the guard is best effort
			log.Printf("[%s] Failed to look up ledger for %s: %v", runID, file, err)
		} else if pass != nil && pass.Checksum == currentSum {
			log.Printf("[%s] %s already optimized (pass %d, run %s) - skipping", runID, file, pass.PassCount, pass.RunID)
			w.reporter.printf("  ↷ Already optimized (%d pass(es)), skipping\n\n", pass.PassCount)
			report.AlreadyOptimized++
			w.metrics.HeroFiles.WithLabelValues(metrics.OutcomeSkipped).Inc()
			return nil
		}
	}

	img, err := codec.Decode(bytes.NewReader(original))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	start := time.Now()
	if err := w.encoder.Encode(&buf, img, quality); err != nil {
		return err
	}
	w.metrics.ObserveEncode(start)

	if int64(buf.Len()) >= before {
		log.Printf("[%s] %s: re-encode is not smaller (%d >= %d bytes) - keeping original", runID, file, buf.Len(), before)
		w.reporter.printf("  ↷ No gain at quality %d (%s → %s), keeping original\n\n", quality, Size(before), Size(int64(buf.Len())))
		report.NoGain++
		w.metrics.HeroFiles.WithLabelValues(metrics.OutcomeNoGain).Inc()
		w.record(ctx, runID, file, currentSum, quality)
		return nil
	}

	newSum, err := ledger.Checksum(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return err
	}

	// Replace original with optimized
	after, err := w.store.PutAtomic(ctx, file, func(out io.Writer) error {
		_, err := out.Write(buf.Bytes())
		return err
	})
	if err != nil {
		return err
	}

	passCount := w.record(ctx, runID, file, newSum, quality)

	_, width, _ := pipeline.ParseVariantFileName(file, w.encoder.Ext())
	report.Optimized = append(report.Optimized, HeroFile{
		File:        file,
		Width:       width,
		BytesBefore: before,
		BytesAfter:  after,
		PassCount:   passCount,
	})
	report.BytesBefore += before
	report.BytesAfter += after
	w.metrics.HeroFiles.WithLabelValues(metrics.OutcomeOptimized).Inc()
	w.metrics.BytesIn.Add(float64(before))
	w.metrics.BytesOut.Add(float64(after))

	w.reporter.printf("  ✓ %s → %s (%.1f%% reduction)\n\n", Size(before), Size(after), Savings(before, after))
	return nil
}

func (w *HeroWorkflow) readAll(ctx context.Context, file string) ([]byte, error) {
	r, err := w.store.GetReader(ctx, file)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	return data, nil
}

// record stores the checksum of the bytes now on disk; ledger errors are logged only
func (w *HeroWorkflow) record(ctx context.Context, runID, file, checksum string, quality int) int {
	if w.ledger == nil {
		return 0
	}
	count, err := w.ledger.Record(ctx, ledger.Pass{
		FileName: file,
		Checksum: checksum,
		Quality:  quality,
		RunID:    runID,
	})
	if err != nil {
		log.Printf("[%s] Failed to record ledger pass for %s: %v", runID, file, err)
		return 0
	}
	return count
}
