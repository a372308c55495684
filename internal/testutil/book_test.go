package testutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneratePageHasRequestedSize(t *testing.T) {
	cfg := DefaultPageConfig()
	p := GeneratePage(cfg)
	assert.Equal(t, cfg.Width, p.Width())
	assert.Equal(t, cfg.Height, p.Height())
}

func TestGeneratePageMarginsAreBlank(t *testing.T) {
	cfg := DefaultPageConfig()
	p := GeneratePage(cfg)
	for x := 0; x < cfg.MarginLeft; x++ {
		assert.Equal(t, cfg.Paper, p.At(x, cfg.Height/2))
	}
}

func TestGeneratePageWithPageNumberDarkensHeaderBand(t *testing.T) {
	cfg := DefaultPageConfig()
	cfg.PageNumber = 42
	p := GeneratePage(cfg)

	// The label's baseline is MarginTop/2; its glyphs sit in the 13 rows
	// above it.
	darkest := uint8(255)
	for y := cfg.MarginTop/2 - 13; y <= cfg.MarginTop/2; y++ {
		for x := 0; x < cfg.Width; x++ {
			c := p.At(x, y)
			if c.R < darkest {
				darkest = c.R
			}
		}
	}
	assert.Less(t, darkest, cfg.Paper.R)
}

func TestToRomanKnownValues(t *testing.T) {
	assert.Equal(t, "i", toRoman(1))
	assert.Equal(t, "iv", toRoman(4))
	assert.Equal(t, "ix", toRoman(9))
	assert.Equal(t, "xiv", toRoman(14))
}

func TestGenerateBookAppliesOutlierPaperColor(t *testing.T) {
	outlier := color.RGBA{200, 170, 120, 255}
	pages := GenerateBook(5, 1, 1, map[int]color.RGBA{3: outlier})
	assert.Equal(t, outlier, pages[2].At(10, 10))
	assert.NotEqual(t, outlier, pages[0].At(10, 10))
}

func TestGenerateBookReturnsRequestedPageCount(t *testing.T) {
	pages := GenerateBook(3, 1, 5, nil)
	assert.Len(t, pages, 3)
}
