package workflows

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// Reporter prints human-readable progress for the console
type Reporter struct {
	w io.Writer
}

// NewReporter returns a reporter writing to w (io.Discard when nil)
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = io.Discard
	}
	return &Reporter{w: w}
}

func (r *Reporter) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.w, format, args...)
}

// Size formats a byte count
func Size(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// Savings returns the percentage saved going from before to after bytes.
// Returns 0 when before is 0.
func Savings(before, after int64) float64 {
	if before <= 0 {
		return 0
	}
	return float64(before-after) / float64(before) * 100
}

func (r *Reporter) failures(failures []Failure) {
	if len(failures) == 0 {
		return
	}
	r.printf("\n⚠️  %d error(s):\n", len(failures))
	for _, f := range failures {
		r.printf("  ✗ %s\n", f.Error())
	}
}

// VariantSummary prints the end-of-run totals for the variant generator
func (r *Reporter) VariantSummary(rep *VariantReport) {
	r.printf("\n✨ Generation complete!\n")
	r.printf("📊 Images processed: %d, variants written: %d\n", rep.Images, len(rep.Variants))
	r.printf("📊 Total original size: %s\n", Size(rep.OriginalBytes))
	r.printf("📊 Total WebP size: %s\n", Size(rep.OutputBytes))
	if rep.OriginalBytes > 0 {
		r.printf("💰 Estimated savings: %.1f%% when serving WebP\n", Savings(rep.OriginalBytes, rep.OutputBytes))
	}
	r.failures(rep.Failures)
}

// HeroSummary prints the end-of-run totals for the hero re-compressor
func (r *Reporter) HeroSummary(rep *HeroReport) {
	r.printf("✨ Hero image optimization complete!\n")
	r.printf("📊 Optimized: %d, already optimized: %d, no gain: %d\n", len(rep.Optimized), rep.AlreadyOptimized, rep.NoGain)
	if rep.BytesBefore > 0 {
		r.printf("📊 %s → %s (%.1f%% reduction)\n", Size(rep.BytesBefore), Size(rep.BytesAfter), Savings(rep.BytesBefore, rep.BytesAfter))
	}
	r.failures(rep.Failures)
}
