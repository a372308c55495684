// Package bookdecision defines the book-wide aggregation contract of spec
// section 4.5: a single immutable record, published once all per-page
// analyses complete and read-only for the remainder of the pipeline pass.
package bookdecision

import (
	"github.com/inkwell-labs/bookrestore/internal/colorcorrect"
	"github.com/inkwell-labs/bookrestore/internal/margin"
	"github.com/inkwell-labs/bookrestore/internal/pagenumber"
	"github.com/inkwell-labs/bookrestore/internal/pageraster"
)

// BookDecision is the aggregate record produced once per book, after every
// per-page analysis has run and before any per-page apply stage starts
// (spec section 4.5). It is never mutated after construction.
type BookDecision struct {
	unifiedMargins pageraster.UnifiedMargins
	cropRegions    margin.CropRegions
	globalColor    colorcorrect.GlobalParam
	offsetAnalysis pagenumber.Analysis
}

// UnifiedMargins returns the book-wide margin floor (spec section 4.1).
func (d BookDecision) UnifiedMargins() pageraster.UnifiedMargins { return d.unifiedMargins }

// CropRegions returns the odd/even group-crop regions (spec section 4.1).
func (d BookDecision) CropRegions() margin.CropRegions { return d.cropRegions }

// GlobalColor returns the book-wide color-correction parameters (spec section 4.2).
func (d BookDecision) GlobalColor() colorcorrect.GlobalParam { return d.globalColor }

// OffsetAnalysis returns the page-number shift and per-page alignment offsets
// (spec section 4.3).
func (d BookDecision) OffsetAnalysis() pagenumber.Analysis { return d.offsetAnalysis }

// Build assembles the BookDecision from the four independent aggregation
// results. Its signature requires all four analyses to exist before a
// BookDecision can be constructed at all, structurally enforcing the "all
// per-page analyses complete before any apply stage runs" ordering from
// spec section 4.5 rather than relying on caller discipline.
func Build(
	unifiedMargins pageraster.UnifiedMargins,
	cropRegions margin.CropRegions,
	globalColor colorcorrect.GlobalParam,
	offsetAnalysis pagenumber.Analysis,
) BookDecision {
	return BookDecision{
		unifiedMargins: unifiedMargins,
		cropRegions:    cropRegions,
		globalColor:    globalColor,
		offsetAnalysis: offsetAnalysis,
	}
}

// CropRegionFor returns the crop region for a physical page's parity.
func (d BookDecision) CropRegionFor(parity pageraster.Parity) pageraster.CropRegion {
	if parity == pageraster.Odd {
		return d.cropRegions.Odd
	}
	return d.cropRegions.Even
}

// ShiftFor returns the per-page alignment shift for a 0-based physical index,
// or the zero shift if the index has no entry (e.g. index out of range).
func (d BookDecision) ShiftFor(physicalIndex int) pagenumber.Shift {
	if physicalIndex < 0 || physicalIndex >= len(d.offsetAnalysis.PerPageShifts) {
		return pagenumber.Shift{}
	}
	return d.offsetAnalysis.PerPageShifts[physicalIndex]
}
