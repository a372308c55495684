package margin

import (
	"image/color"
	"testing"

	"github.com/inkwell-labs/bookrestore/internal/pageraster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticPage builds a W x H white page with a black content rectangle at
// the given margins.
func syntheticPage(w, h, top, bottom, left, right int) pageraster.PageRaster {
	r := pageraster.NewPageRaster(w, h, color.White)
	for y := top; y < h-bottom; y++ {
		for x := left; x < w-right; x++ {
			r.Set(x, y, color.RGBA{R: 0, G: 0, B: 0, A: 255})
		}
	}
	return r
}

func TestDetectPageBasicMargins(t *testing.T) {
	r := syntheticPage(100, 200, 10, 20, 5, 15)
	res := DetectPage(r, DefaultOptions())
	require.False(t, res.Empty)
	assert.Equal(t, 10, res.Margins.Top)
	assert.Equal(t, 20, res.Margins.Bottom)
	assert.Equal(t, 5, res.Margins.Left)
	assert.Equal(t, 15, res.Margins.Right)
}

func TestDetectPageAllWhiteIsEmpty(t *testing.T) {
	r := pageraster.NewPageRaster(50, 50, color.White)
	res := DetectPage(r, DefaultOptions())
	assert.True(t, res.Empty)
}

// TestMarginInvariant_PreservesContent verifies spec section 8's invariant:
// applying unified margins to any page preserves every content pixel of
// that page (by the detector's own 240 threshold).
func TestMarginInvariant_PreservesContent(t *testing.T) {
	pages := []pageraster.PageRaster{
		syntheticPage(100, 100, 10, 10, 10, 10),
		syntheticPage(100, 100, 5, 30, 20, 8),
		syntheticPage(100, 100, 15, 15, 15, 15),
	}
	var results []PageResult
	for i, p := range pages {
		res := DetectPage(p, DefaultOptions())
		res.PhysicalIndex = i
		results = append(results, res)
	}
	unified := Unify(results)

	for _, p := range pages {
		content := DetectPage(p, DefaultOptions())
		trimmed := unified.ContentRect(p.Width(), p.Height())
		// Every content pixel of p must lie within trimmed.
		assert.GreaterOrEqual(t, content.Box.X, trimmed.X)
		assert.GreaterOrEqual(t, content.Box.Y, trimmed.Y)
		assert.LessOrEqual(t, content.Box.Right(), trimmed.Right())
		assert.LessOrEqual(t, content.Box.Bottom(), trimmed.Bottom())
	}
}

func TestGroupCropOutlierRejected(t *testing.T) {
	// 19 odd pages with top margin ~100, one outlier at 700, on a tall page.
	const w, h = 2400, 3600
	var results []PageResult
	var sizes []PageSize
	physIdx := 0
	for i := range 20 {
		top := 100
		if i == 10 {
			top = 700
		}
		r := syntheticPage(w, h, top, 100, 100, 100)
		res := DetectPage(r, DefaultOptions())
		res.PhysicalIndex = physIdx
		results = append(results, res)
		sizes = append(sizes, PageSize{W: w, H: h})
		physIdx += 2 // keep them all on the same (odd) parity class
	}
	// Pad even slots between odd pages so ParityOf aligns; rebuild contiguous slices.
	full := make([]PageResult, physIdx)
	fullSizes := make([]PageSize, physIdx)
	for i, r := range results {
		full[i*2] = r
		fullSizes[i*2] = sizes[i]
	}
	for i := range full {
		if full[i].Box.W == 0 && full[i].Box.H == 0 && fullSizes[i].W == 0 {
			fullSizes[i] = PageSize{W: w, H: h}
			full[i] = PageResult{Empty: true}
		}
	}

	unified := Unify(full)
	regions := GroupCrop(full, fullSizes, unified)
	assert.InDelta(t, 100, regions.Odd.Y, 1)
}

// TestGroupCropSinglePageBookUsesWholePage covers the boundary case of a
// single-page book: its sole page is odd (ParityOf(1) == Odd), so the even
// parity class is empty and must crop to the whole page rather than a
// zero-area rect.
func TestGroupCropSinglePageBookUsesWholePage(t *testing.T) {
	const w, h = 800, 600
	r := syntheticPage(w, h, 20, 20, 20, 20)
	res := DetectPage(r, DefaultOptions())
	res.PhysicalIndex = 0

	results := []PageResult{res}
	sizes := []PageSize{{W: w, H: h}}
	unified := Unify(results)

	regions := GroupCrop(results, sizes, unified)
	assert.Equal(t, pageraster.Rect{X: 0, Y: 0, W: w, H: h}, regions.Even)
	assert.NotEqual(t, pageraster.Rect{}, regions.Odd)
}
