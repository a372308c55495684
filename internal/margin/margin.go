// Package margin implements margin detection and the odd/even Tukey-fence
// group-crop analyzer (spec section 4.1).
package margin

import (
	"github.com/inkwell-labs/bookrestore/internal/pageraster"
	"github.com/inkwell-labs/bookrestore/internal/stats"
)

// Options configures margin detection. Defaults follow spec section 4.1.
type Options struct {
	BackgroundThreshold float64 // luminance below this is "content"; default 240
	MinContentRatio     float64 // row/column content-pixel ratio to count as a content row/col; default 0.01
}

// DefaultOptions returns the spec-default detection options.
func DefaultOptions() Options {
	return Options{
		BackgroundThreshold: 240,
		MinContentRatio:     0.01,
	}
}

// PageResult is the per-page outcome of margin detection.
type PageResult struct {
	PhysicalIndex int // 0-based
	Margins       pageraster.PageMargins
	Box           pageraster.BoundingBox
	Empty         bool // true if the page has no content row/column at all
}

// DetectPage computes the content bounding box and margins of a single
// page raster. A pixel is "content" iff its luminance is below
// opts.BackgroundThreshold. A row/column is a content row/column iff its
// content-pixel count is at least opts.MinContentRatio * W (for rows) or
// * H (for columns, symmetric by spec wording).
func DetectPage(r pageraster.PageRaster, opts Options) PageResult {
	w, h := r.Width(), r.Height()
	if w == 0 || h == 0 {
		return PageResult{Empty: true}
	}

	rowContent := make([]bool, h)
	colCount := make([]int, w)
	rowMinRatio := opts.MinContentRatio * float64(w)
	colMinRatio := opts.MinContentRatio * float64(h)

	for y := range h {
		count := 0
		for x := range w {
			if pageraster.Luminance(r.At(x, y)) < opts.BackgroundThreshold {
				count++
				colCount[x]++
			}
		}
		rowContent[y] = float64(count) >= rowMinRatio
	}

	colContent := make([]bool, w)
	for x := range w {
		colContent[x] = float64(colCount[x]) >= colMinRatio
	}

	top, bottom, ok1 := firstLastTrue(rowContent)
	left, right, ok2 := firstLastTrue(colContent)
	if !ok1 || !ok2 {
		return PageResult{Empty: true}
	}

	box := pageraster.Rect{X: left, Y: top, W: right - left + 1, H: bottom - top + 1}
	margins := pageraster.PageMargins{
		Top:    top,
		Bottom: h - bottom - 1,
		Left:   left,
		Right:  w - right - 1,
	}
	return PageResult{Margins: margins, Box: box}
}

func firstLastTrue(vs []bool) (first, last int, ok bool) {
	first, last = -1, -1
	for i, v := range vs {
		if v {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	return first, last, first != -1
}

// Unify computes the componentwise-minimum safety margins across all valid
// (non-empty) per-page results.
func Unify(results []PageResult) pageraster.UnifiedMargins {
	var valid []pageraster.PageMargins
	for _, r := range results {
		if !r.Empty {
			valid = append(valid, r.Margins)
		}
	}
	return pageraster.Unify(valid)
}

// CropRegions holds the odd/even Tukey-fence crop regions.
type CropRegions struct {
	Odd, Even pageraster.CropRegion
}

// PageSize carries the raw dimensions needed when a parity class falls back
// to the whole page or to unified margins.
type PageSize struct {
	W, H int
}

// GroupCrop computes the odd/even CropRegions per spec section 4.1. results
// must be indexed by physical page (0-based); pageSize gives each result's
// raster dimensions for fallback and whole-page cases. unified is the
// pre-computed safety margin set used as the fallback when a parity class
// has fewer than four valid pages.
func GroupCrop(results []PageResult, sizes []PageSize, unified pageraster.UnifiedMargins) CropRegions {
	odd := groupCropForParity(results, sizes, unified, pageraster.Odd)
	even := groupCropForParity(results, sizes, unified, pageraster.Even)
	return CropRegions{Odd: odd, Even: even}
}

func groupCropForParity(
	results []PageResult, sizes []PageSize, unified pageraster.UnifiedMargins, parity pageraster.Parity,
) pageraster.CropRegion {
	type box struct {
		left, top, right, bottom float64
	}
	var boxes []box
	var anyPage *PageSize

	for i, r := range results {
		if pageraster.ParityOf(i+1) != parity {
			continue
		}
		if anyPage == nil {
			anyPage = &sizes[i]
		}
		if r.Empty {
			continue
		}
		boxes = append(boxes, box{
			left:   float64(r.Box.X),
			top:    float64(r.Box.Y),
			right:  float64(r.Box.Right()),
			bottom: float64(r.Box.Bottom()),
		})
	}

	if anyPage == nil {
		// Empty parity class: no page of this parity exists at all (e.g. a
		// single-page book has no even pages). Fall back to the whole page,
		// using any page's size since every page in a book shares one.
		if len(sizes) > 0 {
			return pageraster.Rect{X: 0, Y: 0, W: sizes[0].W, H: sizes[0].H}
		}
		return pageraster.Rect{}
	}

	if len(boxes) < 4 {
		return unified.ContentRect(anyPage.W, anyPage.H)
	}

	lefts := make([]float64, len(boxes))
	tops := make([]float64, len(boxes))
	rights := make([]float64, len(boxes))
	bottoms := make([]float64, len(boxes))
	for i, b := range boxes {
		lefts[i], tops[i], rights[i], bottoms[i] = b.left, b.top, b.right, b.bottom
	}

	inlierLefts := stats.TukeyInliers(lefts)
	inlierTops := stats.TukeyInliers(tops)
	inlierRights := stats.TukeyInliers(rights)
	inlierBottoms := stats.TukeyInliers(bottoms)

	minLeft := minOf(inlierLefts)
	minTop := minOf(inlierTops)
	maxRight := maxOf(inlierRights)
	maxBottom := maxOf(inlierBottoms)

	return pageraster.Rect{
		X: int(minLeft),
		Y: int(minTop),
		W: int(maxRight) - int(minLeft),
		H: int(maxBottom) - int(minTop),
	}
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
