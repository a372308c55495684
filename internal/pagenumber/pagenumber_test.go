package pagenumber

import (
	"context"
	"testing"

	"github.com/inkwell-labs/bookrestore/internal/external"
	"github.com/inkwell-labs/bookrestore/internal/pageraster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detectionFor(physical, number, x, y int) Detection {
	n := number
	pos := pageraster.Rect{X: x, Y: y, W: 40, H: 20}
	return Detection{PhysicalIndex: physical, Number: &n, Position: &pos}
}

// TestContinuousNumbering follows spec section 8 scenario 1: 10 pages,
// detected numbers at indices 2..9 are index-2 (0..7), expected shift = -2,
// confidence = 1.0.
func TestContinuousNumbering(t *testing.T) {
	var dets []Detection
	for i := range 10 {
		dets = append(dets, Detection{PhysicalIndex: i})
	}
	for i := 2; i <= 9; i++ {
		dets[i] = detectionFor(i, i-2, 500, 3000)
	}

	analysis := AnalyzeOffsets(dets, 2000, 3000, DefaultOptions())
	assert.Equal(t, -2, analysis.PageNumberShift)
	assert.InDelta(t, 1.0, analysis.Confidence, 1e-9)
}

// TestMissingNumbersInterpolated matches spec section 8 scenario 2.
func TestMissingNumbersInterpolated(t *testing.T) {
	var dets []Detection
	for i := range 10 {
		dets = append(dets, Detection{PhysicalIndex: i})
	}
	matchedIdx := []int{2, 3, 5, 7, 9}
	for _, i := range matchedIdx {
		dets[i] = detectionFor(i, i-2, 500+i*10, 3000)
	}

	analysis := AnalyzeOffsets(dets, 2000, 3000, DefaultOptions())
	require.Equal(t, -2, analysis.PageNumberShift)

	// Index 4 is odd-parity (physical page 5); the only odd-parity match is
	// index 2, so index 4 must extend that neighbor's shift by constant.
	assert.Equal(t, analysis.PerPageShifts[2], analysis.PerPageShifts[4])
}

// TestRomanNumeralsRejected matches spec section 8 scenario 3: non-digit
// tokens never become detections, so shift inference proceeds only over
// the Arabic-numbered pages.
func TestRomanNumeralsRejected(t *testing.T) {
	ocr := external.PerPageOCR{Tokens: []external.PageNumberToken{
		{Text: "iv", Number: -1, Box: pageraster.Rect{X: 10, Y: 10, W: 20, H: 10}},
	}}
	page := pageraster.NewPageRaster(1000, 1500, nil)
	d := Detect(context.Background(), page, 0, ocr, DefaultOptions())
	assert.Nil(t, d.Number)
}

func TestDetectAcceptsDigitToken(t *testing.T) {
	band := pageraster.Rect{X: 0, Y: 1275, W: 1000, H: 225}
	ocr := external.PerPageOCR{Tokens: []external.PageNumberToken{
		{Text: "12", Number: 12, Box: pageraster.Rect{X: 450, Y: 1300, W: 40, H: 20}},
	}}
	page := pageraster.NewPageRaster(1000, 1500, nil)
	d := Detect(context.Background(), page, 11, ocr, DefaultOptions())
	require.NotNil(t, d.Number)
	assert.Equal(t, 12, *d.Number)
	_ = band
}

// TestOddEvenDivergence matches spec section 8 scenario 6: per-page shift_x
// aligns each parity to its own centroid.
func TestOddEvenDivergence(t *testing.T) {
	var dets []Detection
	for i := range 4 {
		dets = append(dets, Detection{PhysicalIndex: i})
	}
	// physical 0 is page 1 (odd), detected number must equal i+shift; use shift=0.
	dets[0] = detectionFor(0, 0, 500, 100)  // odd
	dets[1] = detectionFor(1, 1, 1800, 100) // even
	dets[2] = detectionFor(2, 2, 500, 100)  // odd
	dets[3] = detectionFor(3, 3, 1800, 100) // even

	opts := DefaultOptions()
	opts.MinMatchCount = 4
	analysis := AnalyzeOffsets(dets, 2300, 3000, opts)
	assert.InDelta(t, 500, analysis.OddAvgX, 1e-6)
	assert.InDelta(t, 1800, analysis.EvenAvgX, 1e-6)
	// shift_x aligns each page to its own parity's centroid (zero shift, already there).
	assert.InDelta(t, 0, analysis.PerPageShifts[0].X, 1e-6)
	assert.InDelta(t, 0, analysis.PerPageShifts[1].X, 1e-6)
}

func TestInsufficientMatchesYieldsZeroShift(t *testing.T) {
	var dets []Detection
	for i := range 10 {
		dets = append(dets, Detection{PhysicalIndex: i})
	}
	dets[0] = detectionFor(0, 99, 0, 0) // single implausible match
	analysis := AnalyzeOffsets(dets, 1000, 1000, DefaultOptions())
	assert.Equal(t, 0, analysis.PageNumberShift)
	assert.Equal(t, 0.0, analysis.Confidence)
}
