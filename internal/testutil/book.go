package testutil

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/inkwell-labs/bookrestore/internal/pageraster"
)

// PageConfig describes one synthetic scanned book page.
type PageConfig struct {
	Width, Height            int
	Paper, Ink               color.RGBA
	MarginTop, MarginLeft    int
	MarginBottom, MarginRight int
	PageNumber               int  // 0 means no printed number
	PageNumberAtBottom       bool // false prints it at the top (running head style)
	Roman                    bool // print PageNumber as a lowercase roman numeral
}

// DefaultPageConfig returns a plausible A4-at-300dpi page with generous
// margins, ready to have its page number fields overridden per page.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		Width:        2480,
		Height:       3508,
		Paper:        color.RGBA{250, 248, 245, 255},
		Ink:          color.RGBA{20, 20, 20, 255},
		MarginTop:    200,
		MarginLeft:   180,
		MarginBottom: 220,
		MarginRight:  180,
	}
}

// GeneratePage rasterizes one synthetic page: a solid paper background, a
// block of "body text" filling the content rect, and an optional printed
// page number, used as fixtures across margin/colorcorrect/pagenumber/
// convertpipeline tests.
func GeneratePage(cfg PageConfig) pageraster.PageRaster {
	p := pageraster.NewPageRaster(cfg.Width, cfg.Height, cfg.Paper)

	content := pageraster.Rect{
		X: cfg.MarginLeft,
		Y: cfg.MarginTop,
		W: max(cfg.Width-cfg.MarginLeft-cfg.MarginRight, 0),
		H: max(cfg.Height-cfg.MarginTop-cfg.MarginBottom, 0),
	}
	drawTextBlock(p, content, cfg.Ink)

	if cfg.PageNumber > 0 {
		label := fmt.Sprintf("%d", cfg.PageNumber)
		if cfg.Roman {
			label = toRoman(cfg.PageNumber)
		}
		y := cfg.MarginTop / 2
		if cfg.PageNumberAtBottom {
			y = cfg.Height - cfg.MarginBottom/2
		}
		drawLabel(p, label, cfg.Width/2, y, cfg.Ink)
	}
	return p
}

// drawTextBlock paints a few horizontal ink bars inside r to stand in for
// body text without depending on a real font render for every pixel.
func drawTextBlock(p pageraster.PageRaster, r pageraster.Rect, ink color.RGBA) {
	if r.Empty() {
		return
	}
	lineHeight := 40
	gap := 20
	for y := r.Y; y+lineHeight < r.Bottom(); y += lineHeight + gap {
		for yy := y; yy < y+lineHeight && yy < r.Bottom(); yy++ {
			for x := r.X; x < r.Right(); x++ {
				p.Set(x, yy, ink)
			}
		}
	}
}

// drawLabel draws text centered horizontally at (centerX, baselineY) using
// golang.org/x/image's basicfont, the same facility the teacher uses for synthetic
// OCR fixtures (internal/testutil/image.go's font.Drawer usage).
func drawLabel(p pageraster.PageRaster, text string, centerX, baselineY int, ink color.RGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	drawer := &font.Drawer{
		Dst:  p.Img,
		Src:  &image.Uniform{C: ink},
		Face: face,
		Dot:  fixed.P(centerX-width/2, baselineY),
	}
	drawer.DrawString(text)
}

var romanDigits = []struct {
	Value  int
	Symbol string
}{
	{1000, "m"}, {900, "cm"}, {500, "d"}, {400, "cd"},
	{100, "c"}, {90, "xc"}, {50, "l"}, {40, "xl"},
	{10, "x"}, {9, "ix"}, {5, "v"}, {4, "iv"}, {1, "i"},
}

// toRoman converts a positive integer to a lowercase roman numeral, used
// for generating preface-page fixtures (spec section 8's roman-numeral
// preface scenario).
func toRoman(n int) string {
	out := ""
	for _, d := range romanDigits {
		for n >= d.Value {
			out += d.Symbol
			n -= d.Value
		}
	}
	return out
}

// GenerateBook produces a full synthetic book: pageCount pages sharing the
// same margins and paper color (except those listed in outlierPages, whose
// paper color is replaced, simulating a yellowed or foxed page), with
// printed page numbers starting at startNumber on physical page
// startPhysical (1-based), continuing sequentially.
func GenerateBook(pageCount int, startPhysical, startNumber int, outlierPages map[int]color.RGBA) []pageraster.PageRaster {
	pages := make([]pageraster.PageRaster, pageCount)
	num := startNumber
	for i := range pageCount {
		physical := i + 1
		cfg := DefaultPageConfig()
		if c, ok := outlierPages[physical]; ok {
			cfg.Paper = c
		}
		if physical >= startPhysical {
			cfg.PageNumber = num
			cfg.PageNumberAtBottom = true
			num++
		}
		pages[i] = GeneratePage(cfg)
	}
	return pages
}
