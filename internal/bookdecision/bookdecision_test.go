package bookdecision

import (
	"testing"

	"github.com/inkwell-labs/bookrestore/internal/colorcorrect"
	"github.com/inkwell-labs/bookrestore/internal/margin"
	"github.com/inkwell-labs/bookrestore/internal/pagenumber"
	"github.com/inkwell-labs/bookrestore/internal/pageraster"
	"github.com/stretchr/testify/assert"
)

func TestBuildRoundTripsAllFields(t *testing.T) {
	margins := pageraster.UnifiedMargins{Top: 10, Bottom: 12, Left: 8, Right: 9}
	regions := margin.CropRegions{
		Odd:  pageraster.CropRegion{X: 0, Y: 0, W: 100, H: 200},
		Even: pageraster.CropRegion{X: 5, Y: 5, W: 90, H: 190},
	}
	color := colorcorrect.Identity(colorcorrect.DefaultOptions())
	offsets := pagenumber.Analysis{
		PageNumberShift: -2,
		Confidence:      1,
		PerPageShifts:   []pagenumber.Shift{{X: 1, Y: 2}, {X: 3, Y: 4}},
	}

	d := Build(margins, regions, color, offsets)

	assert.Equal(t, margins, d.UnifiedMargins())
	assert.Equal(t, regions, d.CropRegions())
	assert.Equal(t, color, d.GlobalColor())
	assert.Equal(t, offsets, d.OffsetAnalysis())
	assert.Equal(t, regions.Odd, d.CropRegionFor(pageraster.Odd))
	assert.Equal(t, regions.Even, d.CropRegionFor(pageraster.Even))
	assert.Equal(t, pagenumber.Shift{X: 1, Y: 2}, d.ShiftFor(0))
	assert.Equal(t, pagenumber.Shift{}, d.ShiftFor(99))
}
