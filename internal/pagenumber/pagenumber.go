// Package pagenumber implements page-number detection (via an external OCR
// collaborator) and the physical<->logical shift/offset analysis of spec
// section 4.3.
package pagenumber

import (
	"context"
	"math"

	"github.com/inkwell-labs/bookrestore/internal/external"
	"github.com/inkwell-labs/bookrestore/internal/pageraster"
)

// Options configures detection and shift inference. Defaults follow spec
// section 4.3.
type Options struct {
	ScanRegionRatio float64 // bottom-band height as a fraction of H; default 0.15
	MinShift        int     // default -300
	MaxShift        int     // default 300
	MinMatchCount   int     // default 5
	MinMatchRatio   float64 // default 0.333
	MaxShiftPx      float64 // clamp for per-page shift_x/shift_y; 0 means "derive from page size"
}

// DefaultOptions returns the spec-default options.
func DefaultOptions() Options {
	return Options{
		ScanRegionRatio: 0.15,
		MinShift:        -300,
		MaxShift:        300,
		MinMatchCount:   5,
		MinMatchRatio:   0.333,
	}
}

// Detection is the per-page outcome of page-number OCR (spec:
// PageNumberDetection). Number and Position are nil when there is no
// confident detection.
type Detection struct {
	PhysicalIndex int // 0-based
	Number        *int
	Position      *pageraster.Rect
}

// Detect runs the bottom-band OCR scan for a single page. It never returns
// an error: OCR unavailability, recognizer exceptions, or an empty band all
// produce a Detection with Number == nil (spec section 4.3's Failure
// clause).
func Detect(ctx context.Context, r pageraster.PageRaster, physicalIndex int, ocr external.PageNumberOCR, opts Options) Detection {
	h := r.Height()
	bandHeight := int(float64(h) * opts.ScanRegionRatio)
	if bandHeight <= 0 || ocr == nil {
		return Detection{PhysicalIndex: physicalIndex}
	}
	band := pageraster.Rect{X: 0, Y: h - bandHeight, W: r.Width(), H: bandHeight}.ClipTo(r.Width(), h)
	if band.Empty() {
		return Detection{PhysicalIndex: physicalIndex}
	}

	tokens, err := ocr.Detect(ctx, r, band)
	if err != nil || len(tokens) == 0 {
		return Detection{PhysicalIndex: physicalIndex}
	}

	best, ok := pickBestToken(tokens, band)
	if !ok {
		return Detection{PhysicalIndex: physicalIndex}
	}

	n := best.Number
	pos := best.Box
	return Detection{PhysicalIndex: physicalIndex, Number: &n, Position: &pos}
}

// pickBestToken applies spec section 4.3's acceptance and tie-break rules:
// purely-decimal digits in [1,9999], bounding box entirely within the band,
// largest area wins, ties broken by lowest Y (closest to page bottom).
func pickBestToken(tokens []external.PageNumberToken, band pageraster.Rect) (external.PageNumberToken, bool) {
	var best external.PageNumberToken
	found := false
	for _, tok := range tokens {
		if tok.Number < 1 || tok.Number > 9999 {
			continue
		}
		if !withinBand(tok.Box, band) {
			continue
		}
		if !found {
			best, found = tok, true
			continue
		}
		areaTok := area(tok.Box)
		areaBest := area(best.Box)
		switch {
		case areaTok > areaBest:
			best = tok
		case areaTok == areaBest && tok.Box.Y < best.Box.Y:
			best = tok
		}
	}
	return best, found
}

func withinBand(box, band pageraster.Rect) bool {
	return box.X >= band.X && box.Y >= band.Y && box.Right() <= band.Right() && box.Bottom() <= band.Bottom()
}

func area(r pageraster.Rect) int { return r.W * r.H }

// Analysis is the book-wide offset analysis result (spec: OffsetAnalysis).
type Analysis struct {
	PageNumberShift int
	Confidence      float64
	OddAvgX         float64
	EvenAvgX        float64
	AvgY            float64
	PerPageShifts   []Shift // indexed by physical index
}

// Shift is a page's resolved (shift_x, shift_y) after interpolation.
type Shift struct {
	X, Y float64
}

// AnalyzeOffsets infers the book-wide page-number shift and per-page
// (shift_x, shift_y), interpolating pages without a matching detection
// (spec section 4.3).
func AnalyzeOffsets(detections []Detection, pageW, pageH int, opts Options) Analysis {
	n := len(detections)
	withDetection := 0
	for _, d := range detections {
		if d.Number != nil {
			withDetection++
		}
	}

	shift, matchCount := chooseShift(detections, opts)
	requiredCount := max(opts.MinMatchCount, int(math.Ceil(opts.MinMatchRatio*float64(withDetection))))
	if withDetection == 0 || matchCount < requiredCount {
		return Analysis{PageNumberShift: 0, Confidence: 0, PerPageShifts: make([]Shift, n)}
	}

	confidence := float64(matchCount) / float64(withDetection)

	var oddSum, oddN, evenSum, evenN, ySum, yN float64
	matched := make([]bool, n)
	for i, d := range detections {
		if d.Number == nil || *d.Number != i+shift {
			continue
		}
		matched[i] = true
		x := float64(d.Position.X)
		y := float64(d.Position.Y)
		if pageraster.ParityOf(i+1) == pageraster.Odd {
			oddSum += x
			oddN++
		} else {
			evenSum += x
			evenN++
		}
		ySum += y
		yN++
	}

	oddAvgX := safeAvg(oddSum, oddN)
	evenAvgX := safeAvg(evenSum, evenN)
	avgY := safeAvg(ySum, yN)

	maxShiftPx := opts.MaxShiftPx
	if maxShiftPx <= 0 {
		maxShiftPx = 0.05 * float64(min(pageW, pageH))
	}

	perPage := make([]Shift, n)
	hasShift := make([]bool, n)
	for i, d := range detections {
		if !matched[i] {
			continue
		}
		targetX := oddAvgX
		if pageraster.ParityOf(i+1) == pageraster.Even {
			targetX = evenAvgX
		}
		sx := clampf(targetX-float64(d.Position.X), -maxShiftPx, maxShiftPx)
		sy := clampf(avgY-float64(d.Position.Y), -maxShiftPx, maxShiftPx)
		perPage[i] = Shift{X: sx, Y: sy}
		hasShift[i] = true
	}

	interpolateParity(perPage, hasShift, pageraster.Odd)
	interpolateParity(perPage, hasShift, pageraster.Even)

	return Analysis{
		PageNumberShift: shift,
		Confidence:      confidence,
		OddAvgX:         oddAvgX,
		EvenAvgX:        evenAvgX,
		AvgY:            avgY,
		PerPageShifts:   perPage,
	}
}

func safeAvg(sum, n float64) float64 {
	if n == 0 {
		return 0
	}
	return sum / n
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// chooseShift finds the shift s maximizing the count of pages whose
// physical_index + s equals the detected number, ties broken toward s
// closest to 0, then toward smaller |s| (spec's own resolution of its open
// question, see DESIGN.md).
func chooseShift(detections []Detection, opts Options) (best int, bestCount int) {
	bestCount = -1
	for s := opts.MinShift; s <= opts.MaxShift; s++ {
		count := 0
		for i, d := range detections {
			if d.Number != nil && *d.Number == i+s {
				count++
			}
		}
		if count > bestCount || (count == bestCount && isCloserToZero(s, best)) {
			best, bestCount = s, count
		}
	}
	if bestCount < 0 {
		bestCount = 0
	}
	return best, bestCount
}

func isCloserToZero(candidate, current int) bool {
	return absInt(candidate) < absInt(current)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
