// Package convertpipeline orchestrates the full stage table of spec
// section 2: per-page analyses run data-parallel via internal/workerpool,
// aggregation stages combine them into an internal/bookdecision.BookDecision,
// and per-page apply stages run data-parallel again reading only that
// immutable decision plus their own raster. Grounded on the teacher's
// internal/pipeline/pipeline.go and internal/batch/processing.go
// build-pipeline-then-drive-workers shape.
package convertpipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/inkwell-labs/bookrestore/internal/bookdecision"
	"github.com/inkwell-labs/bookrestore/internal/bookerr"
	"github.com/inkwell-labs/bookrestore/internal/colorcorrect"
	"github.com/inkwell-labs/bookrestore/internal/common"
	"github.com/inkwell-labs/bookrestore/internal/external"
	"github.com/inkwell-labs/bookrestore/internal/finalize"
	"github.com/inkwell-labs/bookrestore/internal/margin"
	"github.com/inkwell-labs/bookrestore/internal/pagenumber"
	"github.com/inkwell-labs/bookrestore/internal/pageraster"
	"github.com/inkwell-labs/bookrestore/internal/pdfio"
	"github.com/inkwell-labs/bookrestore/internal/telemetry"
	"github.com/inkwell-labs/bookrestore/internal/workerpool"
)

// Collaborators bundles the external capability interfaces a run needs.
// Any field may be nil/Noop to disable that feature (spec section 7:
// DependencyError silently disables an unrequested feature).
type Collaborators struct {
	Rasterizer    external.Rasterizer
	PageNumberOCR external.PageNumberOCR
	JapaneseOCR   external.JapaneseOCR
	Upscaler      external.Upscaler
	Deskewer      external.Deskewer
}

// BookOptions configures one convert run.
type BookOptions struct {
	Book          string // identifier used for telemetry labels
	InputPDF      string
	OutputPDF     string
	DPI           int
	EnableOCR     bool
	EnableUpscale bool
	EnableDeskew  bool
	EnableColor   bool
	EnableOffset  bool
	Margin        margin.Options
	Color         colorcorrect.Options
	PageNumber    pagenumber.Options
	Finalize      finalize.Options
	Workers       int
	Broadcaster   *telemetry.Broadcaster
}

// Summary reports the outcome of a run.
type Summary struct {
	PagesTotal   int
	PagesSkipped int
	TextRuns     int // total Japanese-OCR text runs recognized, when --ocr is enabled
	Decision     bookdecision.BookDecision
}

// Run executes the full pipeline: extract, per-page analyze, aggregate,
// per-page apply, assemble (spec section 2/5).
func Run(ctx context.Context, opts BookOptions, collab Collaborators) (Summary, error) {
	stop := telemetry.StageTimer("extract")
	pages, err := pdfio.ExtractPages(ctx, opts.InputPDF, opts.DPI, collab.Rasterizer)
	stop()
	if err != nil {
		return Summary{}, bookerr.Input("extract-pages", err)
	}
	if len(pages) == 0 {
		return Summary{}, bookerr.Input("extract-pages", fmt.Errorf("pdf has no pages"))
	}

	poolOpts := workerpool.Options{Workers: opts.Workers}

	marginResults, err := analyzeMargins(ctx, pages, opts, poolOpts)
	if err != nil {
		return Summary{}, err
	}
	unified := margin.Unify(marginResults)
	sizes := pageSizes(pages)
	cropRegions := margin.GroupCrop(marginResults, sizes, unified)

	colorParam := colorcorrect.Identity(opts.Color)
	if opts.EnableColor {
		colorParam, err = analyzeColor(ctx, pages, opts, poolOpts)
		if err != nil {
			return Summary{}, err
		}
	}

	offsetAnalysis := pagenumber.Analysis{}
	if opts.EnableOffset {
		offsetAnalysis, err = analyzeOffsets(ctx, pages, opts, poolOpts, collab.PageNumberOCR)
		if err != nil {
			return Summary{}, err
		}
	}

	decision := bookdecision.Build(unified, cropRegions, colorParam, offsetAnalysis)

	finalized, skipped, err := applyPages(ctx, pages, decision, opts, poolOpts, collab)
	if err != nil {
		return Summary{}, err
	}

	textRuns := 0
	if opts.EnableOCR && collab.JapaneseOCR != nil {
		textRuns, err = recognizeText(ctx, pages, poolOpts, collab.JapaneseOCR)
		if err != nil {
			return Summary{}, err
		}
	}

	stop = telemetry.StageTimer("assemble")
	err = pdfio.AssemblePDF(finalized, opts.OutputPDF)
	stop()
	if err != nil {
		return Summary{}, bookerr.Output("assemble-pdf", err)
	}

	telemetry.RecordBookCompleted()
	return Summary{PagesTotal: len(pages), PagesSkipped: skipped, TextRuns: textRuns, Decision: decision}, nil
}

// recognizeText runs the Japanese-OCR collaborator over every page. The
// spec places embedding a searchable text layer into the assembled PDF
// out of scope (section 1: "Japanese OCR bridge... specified only at its
// interface"), so this records recognized runs for the caller to use
// rather than mutating the output PDF.
func recognizeText(ctx context.Context, pages []pageraster.PageRaster, pool workerpool.Options, ocr external.JapaneseOCR) (int, error) {
	timer := common.NewNamedTimer("ocr-text-layer")
	defer func() { timer.Stop() }()

	runs, err := workerpool.Run(ctx, pages, pool, func(ctx context.Context, p pageraster.PageRaster) ([]external.TextRun, error) {
		return ocr.Recognize(ctx, p)
	})
	if err != nil {
		return 0, bookerr.Page("ocr-text-layer", err)
	}
	total := 0
	for _, r := range runs {
		total += len(r)
	}
	return total, nil
}

func pageSizes(pages []pageraster.PageRaster) []margin.PageSize {
	sizes := make([]margin.PageSize, len(pages))
	for i, p := range pages {
		sizes[i] = margin.PageSize{W: p.Width(), H: p.Height()}
	}
	return sizes
}

func analyzeMargins(ctx context.Context, pages []pageraster.PageRaster, opts BookOptions, pool workerpool.Options) ([]margin.PageResult, error) {
	timer := common.NewNamedTimer("margin-detect")
	defer func() { timer.Stop() }()

	results, err := workerpool.Run(ctx, pages, pool, func(_ context.Context, p pageraster.PageRaster) (margin.PageResult, error) {
		return margin.DetectPage(p, opts.Margin), nil
	})
	if err != nil {
		return nil, bookerr.Page("margin-detect", err)
	}
	for i := range results {
		results[i].PhysicalIndex = i
	}
	return results, nil
}

func analyzeColor(ctx context.Context, pages []pageraster.PageRaster, opts BookOptions, pool workerpool.Options) (colorcorrect.GlobalParam, error) {
	timer := common.NewNamedTimer("color-stats")
	defer func() { timer.Stop() }()

	stats, err := workerpool.Run(ctx, pages, pool, func(_ context.Context, p pageraster.PageRaster) (colorcorrect.Stats, error) {
		return colorcorrect.Analyze(p, opts.Color), nil
	})
	if err != nil {
		return colorcorrect.Identity(opts.Color), bookerr.Aggregation("color-decide", err)
	}
	return colorcorrect.Decide(stats, opts.Color), nil
}

func analyzeOffsets(
	ctx context.Context, pages []pageraster.PageRaster, opts BookOptions, pool workerpool.Options, ocr external.PageNumberOCR,
) (pagenumber.Analysis, error) {
	timer := common.NewNamedTimer("page-number-analyze")
	defer func() { timer.Stop() }()

	detections, err := workerpool.Run(ctx, pages, pool, func(ctx context.Context, p pageraster.PageRaster) (pagenumber.Detection, error) {
		return pagenumber.Detect(ctx, p, 0, ocr, opts.PageNumber), nil
	})
	if err != nil {
		return pagenumber.Analysis{}, bookerr.Aggregation("page-number-analyze", err)
	}
	for i := range detections {
		detections[i].PhysicalIndex = i
	}

	maxW, maxH := 0, 0
	for _, p := range pages {
		maxW, maxH = max(maxW, p.Width()), max(maxH, p.Height())
	}
	return pagenumber.AnalyzeOffsets(detections, maxW, maxH, opts.PageNumber), nil
}

func applyPages(
	ctx context.Context, pages []pageraster.PageRaster, decision bookdecision.BookDecision,
	opts BookOptions, pool workerpool.Options, collab Collaborators,
) ([]pageraster.PageRaster, int, error) {
	timer := common.NewNamedTimer("apply")
	defer func() { timer.Stop() }()

	type indexed struct {
		Page  pageraster.PageRaster
		Index int
	}
	items := make([]indexed, len(pages))
	for i, p := range pages {
		items[i] = indexed{Page: p, Index: i}
	}

	var skipped atomic.Int64
	var done atomic.Int64
	total := len(pages)
	results, err := workerpool.Run(ctx, items, pool, func(ctx context.Context, it indexed) (pageraster.PageRaster, error) {
		page, err := applyOnePage(ctx, it.Page, it.Index, decision, opts, collab, &skipped)
		if err == nil {
			broadcastProgress(opts, "apply", int(done.Add(1)), total, "running")
		}
		return page, err
	})
	if err != nil {
		broadcastProgress(opts, "apply", int(done.Load()), total, "error")
		return nil, int(skipped.Load()), bookerr.Page("apply", err)
	}

	for range results {
		telemetry.RecordPage(opts.Book, "ok")
	}
	broadcastProgress(opts, "apply", total, total, "done")
	return results, int(skipped.Load()), nil
}

// broadcastProgress streams a ProgressEvent when opts.Broadcaster is
// configured (--progress-ws), a no-op otherwise.
func broadcastProgress(opts BookOptions, stage string, done, total int, status string) {
	if opts.Broadcaster == nil {
		return
	}
	opts.Broadcaster.Broadcast(telemetry.ProgressEvent{
		Book:          opts.Book,
		Stage:         stage,
		PagesDone:     done,
		PagesTotal:    total,
		CurrentStatus: status,
	})
}

func applyOnePage(
	ctx context.Context, page pageraster.PageRaster, index int, decision bookdecision.BookDecision,
	opts BookOptions, collab Collaborators, skipped *atomic.Int64,
) (pageraster.PageRaster, error) {
	if opts.EnableColor {
		page = colorcorrect.Apply(page, decision.GlobalColor())
	}

	if opts.EnableDeskew && collab.Deskewer != nil {
		deskewed, err := collab.Deskewer.Deskew(ctx, page)
		if err == nil {
			page = deskewed
		} else {
			skipped.Add(1)
			telemetry.RecordPageSkipped(opts.Book, "deskew_failed")
		}
	}

	if opts.EnableUpscale && collab.Upscaler != nil {
		upscaled, err := collab.Upscaler.Upscale(ctx, page)
		if err == nil {
			page = upscaled
		} else {
			skipped.Add(1)
			telemetry.RecordPageSkipped(opts.Book, "upscale_failed")
		}
	}

	parity := pageraster.ParityOf(index + 1)
	crop := decision.CropRegionFor(parity)
	shift := decision.ShiftFor(index)

	return finalize.Page(page, crop, shift.X, shift.Y, opts.Finalize), nil
}
