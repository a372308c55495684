// Package pageraster defines the core geometry and image value types shared
// by every stage of the book-restoration pipeline (spec section 3).
package pageraster

import (
	"fmt"
	"image"
	"image/color"
)

// PageRaster is an 8-bit RGB raster. Pixel (0,0) is top-left. It wraps
// image.RGBA so every stage can hand it straight to disintegration/imaging.
// Values are immutable across a stage: stages produce new PageRasters.
type PageRaster struct {
	Img *image.RGBA
}

// NewPageRaster allocates a blank raster of the given size filled with fill.
func NewPageRaster(w, h int, fill color.Color) PageRaster {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if fill != nil {
		c := color.RGBAModel.Convert(fill).(color.RGBA) //nolint:errcheck // model conversion is total
		for y := range h {
			for x := range w {
				img.SetRGBA(x, y, c)
			}
		}
	}
	return PageRaster{Img: img}
}

// FromImage copies any image.Image into a PageRaster.
func FromImage(src image.Image) PageRaster {
	if rgba, ok := src.(*image.RGBA); ok {
		b := rgba.Bounds()
		out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			srcOff := rgba.PixOffset(b.Min.X, b.Min.Y+y)
			dstOff := out.PixOffset(0, y)
			copy(out.Pix[dstOff:dstOff+b.Dx()*4], rgba.Pix[srcOff:srcOff+b.Dx()*4])
		}
		return PageRaster{Img: out}
	}
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.SetRGBA(x, y, color.RGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)) //nolint:errcheck
		}
	}
	return PageRaster{Img: out}
}

// Width returns the raster's pixel width.
func (p PageRaster) Width() int { return p.Img.Bounds().Dx() }

// Height returns the raster's pixel height.
func (p PageRaster) Height() int { return p.Img.Bounds().Dy() }

// At returns the RGB pixel at (x, y). Out-of-bounds access follows
// image.RGBA semantics (returns the zero color).
func (p PageRaster) At(x, y int) color.RGBA {
	return p.Img.RGBAAt(x, y)
}

// Set writes the RGB pixel at (x, y), alpha forced to opaque.
func (p PageRaster) Set(x, y int, c color.RGBA) {
	c.A = 255
	p.Img.SetRGBA(x, y, c)
}

// Luminance returns the Rec.601 luma (spec section 4.2: Y = 0.299R + 0.587G + 0.114B).
func Luminance(c color.RGBA) float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

// Chroma returns max(R,G,B) - min(R,G,B), used to reject saturated (illustration) pixels.
func Chroma(c color.RGBA) int {
	maxC, minC := int(c.R), int(c.R)
	for _, v := range []int{int(c.G), int(c.B)} {
		if v > maxC {
			maxC = v
		}
		if v < minC {
			minC = v
		}
	}
	return maxC - minC
}

// Rect is a half-open rectangle: x+w <= W, y+h <= H, w>0, h>0 (spec section 3).
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether the rect has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Right is the exclusive right edge (x + w).
func (r Rect) Right() int { return r.X + r.W }

// Bottom is the exclusive bottom edge (y + h).
func (r Rect) Bottom() int { return r.Y + r.H }

// ClipTo clips r to the [0,0)-(w,h) bounds of a raster of size w x h.
// A rect that falls entirely outside bounds clips to an empty rect.
func (r Rect) ClipTo(w, h int) Rect {
	x0, y0 := max(r.X, 0), max(r.Y, 0)
	x1, y1 := min(r.Right(), w), min(r.Bottom(), h)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// ToImageRect converts to the stdlib image.Rectangle used by imaging.Crop.
func (r Rect) ToImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.Right(), r.Bottom())
}

// Union returns the minimal rect containing both r and o. An empty operand
// is ignored; Union of two empty rects is empty.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0, y0 := min(r.X, o.X), min(r.Y, o.Y)
	x1, y1 := max(r.Right(), o.Right()), max(r.Bottom(), o.Bottom())
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) String() string {
	return fmt.Sprintf("Rect(%d,%d,%d,%d)", r.X, r.Y, r.W, r.H)
}

// PageMargins are non-negative pixel margins with top+bottom<H and left+right<W.
// The rectangle they define contains every content pixel of the page by the
// detector's threshold (spec section 3).
type PageMargins struct {
	Top, Bottom, Left, Right int
}

// ContentRect returns the rectangle remaining after trimming the margins
// from a page of size w x h.
func (m PageMargins) ContentRect(w, h int) Rect {
	return Rect{
		X: m.Left,
		Y: m.Top,
		W: max(w-m.Left-m.Right, 0),
		H: max(h-m.Top-m.Bottom, 0),
	}.ClipTo(w, h)
}

// UnifiedMargins is the componentwise minimum of a set of PageMargins.
// Applying it to any page never removes content from any page.
type UnifiedMargins = PageMargins

// Unify computes the componentwise minimum margins across a set of pages.
// An empty input yields zero margins (no trim).
func Unify(all []PageMargins) UnifiedMargins {
	if len(all) == 0 {
		return UnifiedMargins{}
	}
	u := all[0]
	for _, m := range all[1:] {
		u.Top = min(u.Top, m.Top)
		u.Bottom = min(u.Bottom, m.Bottom)
		u.Left = min(u.Left, m.Left)
		u.Right = min(u.Right, m.Right)
	}
	return u
}

// BoundingBox is the per-page content region used by group-crop: a region
// to keep, as opposed to PageMargins which names margins to remove.
type BoundingBox = Rect

// CropRegion is an odd- or even-parity bounding box chosen as the Tukey
// fence inlier hull (spec section 4.1).
type CropRegion = Rect

// Parity identifies a physical page's 1-based odd/even class.
type Parity int

const (
	Odd Parity = iota
	Even
)

// ParityOf returns the parity of a 1-based physical page number.
func ParityOf(physicalPageNumber1Based int) Parity {
	if physicalPageNumber1Based%2 == 1 {
		return Odd
	}
	return Even
}
