// Package external defines the capability interfaces for the collaborators
// spec section 6 places outside the core: the PDF rasterizer, the
// page-number OCR recognizer, the Japanese-OCR text-layer recognizer, the
// AI upscaler, and the deskew rotation corrector. The core depends only on
// these interfaces; production implementations launch external processes
// (grounded on other_examples' cpcloud-micasa subprocess bridge), and tests
// inject deterministic fakes.
package external

import (
	"context"
	"image"

	"github.com/inkwell-labs/bookrestore/internal/pageraster"
)

// Rasterizer extracts one page of a PDF as a raster at the given DPI
// (spec section 6: "input.pdf, page, dpi -> png").
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath string, page int, dpi int) (image.Image, error)
	PageCount(ctx context.Context, pdfPath string) (int, error)
}

// PageNumberToken is one OCR-recognized text token with its bounding box
// in page coordinates, as returned by a PageNumberOCR collaborator. Number
// is the parsed integer value; it is only meaningful when the token is
// purely decimal digits (callers still validate per spec section 4.3).
type PageNumberToken struct {
	Text   string
	Number int
	Box    pageraster.Rect
}

// PageNumberOCR recognizes page-number candidates within a cropped band of
// a page (spec: "image, crop_band -> list of (text, rect)").
type PageNumberOCR interface {
	Detect(ctx context.Context, page pageraster.PageRaster, band pageraster.Rect) ([]PageNumberToken, error)
}

// TextRun is one recognized run of text with its bounding box, used to
// build a searchable OCR text layer.
type TextRun struct {
	Text string
	Box  pageraster.Rect
}

// JapaneseOCR recognizes full-page text runs for the optional searchable
// text layer (spec: "image -> text runs with bounding boxes").
type JapaneseOCR interface {
	Recognize(ctx context.Context, page pageraster.PageRaster) ([]TextRun, error)
}

// Upscaler improves page resolution via an external AI model
// (spec: "image -> image").
type Upscaler interface {
	Upscale(ctx context.Context, page pageraster.PageRaster) (pageraster.PageRaster, error)
}

// Deskewer corrects page rotation. It is specified only at the interface:
// the core treats rotation correction as an external collaborator and does
// not implement the detection/rotation algorithm itself.
type Deskewer interface {
	Deskew(ctx context.Context, page pageraster.PageRaster) (pageraster.PageRaster, error)
}
