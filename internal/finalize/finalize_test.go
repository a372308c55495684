package finalize

import (
	"image/color"
	"testing"

	"github.com/inkwell-labs/bookrestore/internal/pageraster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPage(w, h int, c color.RGBA) pageraster.PageRaster {
	return pageraster.NewPageRaster(w, h, c)
}

func TestPageProducesTargetHeight(t *testing.T) {
	src := solidPage(1000, 1500, color.RGBA{R: 250, G: 250, B: 250, A: 255})
	opts := Options{TargetHeight: 800}
	out := Page(src, pageraster.CropRegion{X: 0, Y: 0, W: 1000, H: 1500}, 0, 0, opts)
	assert.Equal(t, 800, out.Height())
}

func TestPageIdentityCropNoShiftIsNoop(t *testing.T) {
	src := solidPage(200, 300, color.RGBA{R: 240, G: 240, B: 240, A: 255})
	opts := Options{TargetHeight: 300}
	out := Page(src, pageraster.CropRegion{X: 0, Y: 0, W: 200, H: 300}, 0, 0, opts)
	require.Equal(t, src.Width(), out.Width())
	require.Equal(t, src.Height(), out.Height())
	assert.Equal(t, src.At(100, 150), out.At(100, 150))
}

func TestBatchEqualsSequentialPage(t *testing.T) {
	opts := DefaultOptions()
	opts.TargetHeight = 400
	items := []BatchItem{
		{Src: solidPage(300, 400, color.RGBA{R: 255, G: 255, B: 255, A: 255}), Crop: pageraster.CropRegion{X: 0, Y: 0, W: 300, H: 400}, ShiftX: 5, ShiftY: -3},
		{Src: solidPage(280, 420, color.RGBA{R: 230, G: 230, B: 230, A: 255}), Crop: pageraster.CropRegion{X: 10, Y: 10, W: 260, H: 400}, ShiftX: -2, ShiftY: 4},
	}

	got := Batch(items, opts)
	require.Len(t, got, len(items))
	for i, it := range items {
		want := Page(it.Src, it.Crop, it.ShiftX, it.ShiftY, opts)
		assert.Equal(t, want.Img.Pix, got[i].Img.Pix)
	}
}

func TestShiftRevealsPaperColorStrip(t *testing.T) {
	paper := color.RGBA{R: 245, G: 245, B: 245, A: 255}
	src := solidPage(100, 100, paper)
	// paint a dark square to keep corner-patch estimation honest, away from
	// the edges that will be revealed by the shift.
	for y := 40; y < 60; y++ {
		for x := 40; x < 60; x++ {
			src.Set(x, y, color.RGBA{R: 10, G: 10, B: 10, A: 255})
		}
	}

	out := Page(src, pageraster.CropRegion{X: 0, Y: 0, W: 100, H: 100}, 10, 0, Options{TargetHeight: 100})
	revealed := out.At(2, 50)
	assert.InDelta(t, float64(paper.R), float64(revealed.R), 1)
}

func TestEstimatePaperColorRejectsHighVariancePatch(t *testing.T) {
	img := pageraster.NewPageRaster(64, 64, color.RGBA{R: 250, G: 250, B: 250, A: 255})
	// corrupt the top-left corner with a checkerboard so its variance is high.
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.RGBA{R: 0, G: 0, B: 0, A: 255})
			}
		}
	}
	c := estimatePaperColor(img)
	assert.InDelta(t, 250, float64(c.R), 2)
}
