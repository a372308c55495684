package external

import (
	"context"
	"errors"
	"image"

	"github.com/inkwell-labs/bookrestore/internal/pageraster"
)

// PerPageOCR is a deterministic PageNumberOCR test double that always
// returns the same fixed set of tokens, regardless of which page or band
// is requested. Tests construct one PerPageOCR per physical page to drive
// pagenumber.Detect with known fixtures (spec section 9: "inject a test
// double in property tests").
type PerPageOCR struct {
	Tokens []PageNumberToken
}

func (p PerPageOCR) Detect(_ context.Context, _ pageraster.PageRaster, _ pageraster.Rect) ([]PageNumberToken, error) {
	return p.Tokens, nil
}

// NoopDeskewer returns the page unchanged; used when --deskew is disabled
// or no deskew collaborator is configured.
type NoopDeskewer struct{}

func (NoopDeskewer) Deskew(_ context.Context, page pageraster.PageRaster) (pageraster.PageRaster, error) {
	return page, nil
}

// NoopUpscaler returns the page unchanged.
type NoopUpscaler struct{}

func (NoopUpscaler) Upscale(_ context.Context, page pageraster.PageRaster) (pageraster.PageRaster, error) {
	return page, nil
}

// NoopJapaneseOCR reports no text runs.
type NoopJapaneseOCR struct{}

func (NoopJapaneseOCR) Recognize(_ context.Context, _ pageraster.PageRaster) ([]TextRun, error) {
	return nil, nil
}

// FakeRasterizer serves pre-decoded in-memory pages, for tests that build a
// book's pages programmatically rather than through a real rasterizer
// binary.
type FakeRasterizer struct {
	Pages []image.Image
}

var errPageOutOfRange = errors.New("page index out of range")

func (f FakeRasterizer) Rasterize(_ context.Context, _ string, page int, _ int) (image.Image, error) {
	if page < 0 || page >= len(f.Pages) {
		return nil, errPageOutOfRange
	}
	return f.Pages[page], nil
}

func (f FakeRasterizer) PageCount(_ context.Context, _ string) (int, error) {
	return len(f.Pages), nil
}
