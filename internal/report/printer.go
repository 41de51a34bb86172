// Package report renders run progress and results for humans (progress lines
// and a closing summary) and for machines (a YAML manifest).
package report

import (
	"context"
	"fmt"
	"io"

	"github.com/specialistvlad/storeysplit/internal/orchestrator"
)

const mib = 1024 * 1024

// Printer writes one line per finished partition and a closing summary.
// A nil or quiet Printer prints nothing.
type Printer struct {
	w     io.Writer
	quiet bool
	total int
	done  int
}

// NewPrinter creates a Printer for a run over total containers.
func NewPrinter(w io.Writer, quiet bool, total int) *Printer {
	return &Printer{w: w, quiet: quiet, total: total}
}

// PartitionDone implements orchestrator.Observer.
func (p *Printer) PartitionDone(_ context.Context, r orchestrator.PartitionReport) {
	if p == nil || p.quiet {
		return
	}
	p.done++
	if !r.OK() {
		fmt.Fprintf(p.w, "[%d/%d] %s: failed: %v\n", p.done, p.total, r.Name, r.Err)
		return
	}
	fmt.Fprintf(p.w, "[%d/%d] %s: %d members, %d roots, %d closure, %.2f MB (%.1f%% smaller than original) -> %s\n",
		p.done, p.total, r.Name, r.Members, r.Roots, r.Closure, float64(r.Bytes)/mib, r.Reduction, r.Location)
}

// Summary prints the run totals.
func (p *Printer) Summary(s *orchestrator.Summary) {
	if p == nil || p.quiet || s == nil {
		return
	}
	fmt.Fprintf(p.w, "\nComplete: %d of %d partitions written\n", s.Succeeded, s.Containers)
	if s.Succeeded == 0 {
		return
	}
	fmt.Fprintf(p.w, "Original: %.2f MB\n", float64(s.OriginalSize)/mib)
	fmt.Fprintf(p.w, "Total output: %.2f MB\n", float64(s.TotalBytes)/mib)
	fmt.Fprintf(p.w, "Average per partition: %.2f MB\n", float64(s.AverageBytes())/mib)
	if s.TotalBytes < s.OriginalSize {
		fmt.Fprintf(p.w, "Saved %.1f%% in total size\n", s.Reduction)
	}
}
