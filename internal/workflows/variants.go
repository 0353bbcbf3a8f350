package workflows

import (
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-image-pipeline/internal/codec"
	"github.com/tendant/simple-image-pipeline/internal/config"
	"github.com/tendant/simple-image-pipeline/internal/metrics"
	"github.com/tendant/simple-image-pipeline/internal/storage"
	"github.com/tendant/simple-image-pipeline/pkg/pipeline"
)

// SourceReader lists and reads source images
type SourceReader interface {
	storage.Lister
	storage.ReaderWithMetadata
}

// Variant describes one written output file
type Variant struct {
	Source  string
	File    string
	Kind    string // pipeline.KindTier or pipeline.KindFull
	Width   int
	Height  int
	Bytes   int64
	Quality int
}

// VariantReport summarizes one variant generator run
type VariantReport struct {
	RunID         string
	Images        int
	Variants      []Variant
	Failures      []Failure
	OriginalBytes int64
	OutputBytes   int64
}

// Err returns the aggregated per-output failures, or nil
func (r *VariantReport) Err() error {
	return joinFailures(r.Failures)
}

// VariantWorkflow derives width-tiered and full-size variants from every JPEG source
type VariantWorkflow struct {
	cfg      config.Config
	source   SourceReader
	output   storage.Writer
	encoder  codec.Encoder
	reporter *Reporter
	metrics  *metrics.Metrics
}

// NewVariantWorkflow creates a variant generator. source and output may be the same storage.
func NewVariantWorkflow(cfg config.Config, source SourceReader, output storage.Writer, encoder codec.Encoder) *VariantWorkflow {
	return &VariantWorkflow{
		cfg:      cfg,
		source:   source,
		output:   output,
		encoder:  encoder,
		reporter: NewReporter(nil),
		metrics:  metrics.New(),
	}
}

// WithReporter sets the console reporter
func (w *VariantWorkflow) WithReporter(r *Reporter) *VariantWorkflow {
	w.reporter = r
	return w
}

// WithMetrics sets the metrics sink
func (w *VariantWorkflow) WithMetrics(m *metrics.Metrics) *VariantWorkflow {
	w.metrics = m
	return w
}

// Name returns the workflow name
func (w *VariantWorkflow) Name() string {
	return "VariantWorkflow"
}

// Execute runs the variant generator. Per-output failures do not fail the
// workflow; they are reported in result.Error and the report.
func (w *VariantWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	report, err := w.Generate(wctx.Ctx, wctx.RunID)
	if err != nil {
		return &WorkflowResult{
			Success: false,
			Error:   err,
		}, err
	}

	return &WorkflowResult{
		Success: true,
		Error:   report.Err(),
		Outputs: map[string]interface{}{
			"run_id":   report.RunID,
			"images":   report.Images,
			"variants": len(report.Variants),
			"failures": len(report.Failures),
			"report":   report,
		},
	}, nil
}

// Generate processes every source image in listing order. It returns an
// error only when the source directory cannot be listed (wrapped in
// ErrSetup) or ctx was canceled at any point of the run; the report is
// returned in both cases.
func (w *VariantWorkflow) Generate(ctx context.Context, runID string) (*VariantReport, error) {
	if runID == "" {
		runID = uuid.New().String()
	}
	report := &VariantReport{RunID: runID}
	log.Printf("[%s] Starting variant workflow", runID)

	w.reporter.printf("🖼️  Generating responsive WebP images...\n\n")

	if err := ctx.Err(); err != nil {
		return report, err
	}
	files, err := w.source.List(ctx, pipeline.IsSourceImage)
	if err != nil {
		log.Printf("[%s] Failed to list sources: %v", runID, err)
		return report, fmt.Errorf("%w: list sources: %w", ErrSetup, err)
	}

	w.reporter.printf("Found %d JPEG images to process\n\n", len(files))

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			log.Printf("[%s] Interrupted before %s: %v", runID, file, err)
			w.reporter.VariantSummary(report)
			return report, err
		}
		w.processImage(ctx, report, file)
	}

	w.reporter.VariantSummary(report)
	// An interrupt during the last image still ends the run as interrupted
	if err := ctx.Err(); err != nil {
		log.Printf("[%s] Interrupted: %v", runID, err)
		return report, err
	}
	log.Printf("[%s] Variant workflow completed: images=%d variants=%d failures=%d",
		runID, report.Images, len(report.Variants), len(report.Failures))

	return report, nil
}

// processImage writes every variant of one source, isolating failures per output
func (w *VariantWorkflow) processImage(ctx context.Context, report *VariantReport, file string) {
	runID := report.RunID
	base := pipeline.BaseName(file)
	ext := w.encoder.Ext()
	report.Images++

	w.reporter.printf("📸 Processing: %s\n", file)

	// Size is only used for reporting; a missing size counts as zero
	var originalSize int64
	if meta, err := w.source.GetMetadata(ctx, file); err != nil {
		log.Printf("[%s] Failed to read size of %s: %v", runID, file, err)
	} else {
		originalSize = meta.Size
	}
	report.OriginalBytes += originalSize
	w.metrics.BytesIn.Add(float64(originalSize))

	hdr, err := w.readHeader(ctx, file)
	if err != nil {
		w.fail(report, Failure{Source: file, Err: err})
		return
	}

	quality := w.cfg.QualityFor(base)
	log.Printf("[%s] %s: %dx%d, quality %d", runID, file, hdr.Width, hdr.Height, quality)

	// Outputs planned for this source, tiers first then full size
	type target struct {
		name  string
		kind  string
		width int
	}
	var targets []target
	for _, width := range w.cfg.SizeTiers {
		// Skip if target size is larger than original
		if width > hdr.Width {
			continue
		}
		targets = append(targets, target{pipeline.VariantFileName(base, width, ext), pipeline.KindTier, width})
	}
	targets = append(targets, target{pipeline.FullFileName(base, ext), pipeline.KindFull, hdr.Width})

	img, err := w.decode(ctx, file)
	if err != nil {
		w.reporter.printf("  ✗ Error decoding %s: %v\n\n", file, err)
		for _, t := range targets {
			w.fail(report, Failure{Source: file, Output: t.name, Err: err})
		}
		return
	}

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			w.fail(report, Failure{Source: file, Output: t.name, Err: err})
			continue
		}

		out := img
		if t.kind == pipeline.KindTier {
			out = codec.ResizeToWidth(img, t.width)
		}

		v, err := w.writeVariant(ctx, file, t.name, t.kind, out, quality)
		if err != nil {
			if t.kind == pipeline.KindFull {
				w.reporter.printf("  ✗ Error creating full WebP: %v\n", err)
			} else {
				w.reporter.printf("  ✗ Error creating %dw: %v\n", t.width, err)
			}
			w.fail(report, Failure{Source: file, Output: t.name, Err: err})
			continue
		}

		if t.kind == pipeline.KindFull {
			w.reporter.printf("  ✓ Full size WebP: %s\n", Size(v.Bytes))
		} else {
			w.reporter.printf("  ✓ %dw: %s\n", t.width, Size(v.Bytes))
		}
		report.Variants = append(report.Variants, v)
		report.OutputBytes += v.Bytes
	}

	w.reporter.printf("  Original JPEG: %s\n\n", Size(originalSize))
}

func (w *VariantWorkflow) readHeader(ctx context.Context, file string) (codec.Config, error) {
	r, err := w.source.GetReader(ctx, file)
	if err != nil {
		return codec.Config{}, err
	}
	defer r.Close()
	return codec.DecodeConfig(r)
}

func (w *VariantWorkflow) decode(ctx context.Context, file string) (image.Image, error) {
	r, err := w.source.GetReader(ctx, file)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return codec.Decode(r)
}

func (w *VariantWorkflow) writeVariant(ctx context.Context, source, name, kind string, img image.Image, quality int) (Variant, error) {
	start := time.Now()
	n, err := w.output.PutAtomic(ctx, name, func(out io.Writer) error {
		return w.encoder.Encode(out, img, quality)
	})
	w.metrics.ObserveEncode(start)
	if err != nil {
		return Variant{}, err
	}

	w.metrics.VariantsWritten.WithLabelValues(kind).Inc()
	w.metrics.BytesOut.Add(float64(n))

	b := img.Bounds()
	return Variant{
		Source:  source,
		File:    name,
		Kind:    kind,
		Width:   b.Dx(),
		Height:  b.Dy(),
		Bytes:   n,
		Quality: quality,
	}, nil
}

func (w *VariantWorkflow) fail(report *VariantReport, f Failure) {
	log.Printf("[%s] %v", report.RunID, f)
	if f.Output == "" {
		w.reporter.printf("  ✗ Error reading %s: %v\n\n", f.Source, f.Err)
	}
	report.Failures = append(report.Failures, f)
	w.metrics.VariantFailures.Inc()
}
