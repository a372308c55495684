// Package finalize implements the per-page output assembly of spec section
// 4.4: crop, resize to a fixed target height, shift, and paper-color
// padding/feathering, deterministically composed.
package finalize

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/inkwell-labs/bookrestore/internal/pageraster"
)

// Options configures the finalize stage. Defaults follow spec section 4.4
// and section 6 (--output-height).
type Options struct {
	TargetHeight  int // default 3508
	FeatherPixels int // 0 disables feathering
}

// DefaultOptions returns the spec-default options.
func DefaultOptions() Options {
	return Options{TargetHeight: 3508, FeatherPixels: 0}
}

// Page produces page at a fixed target height with crop and shift applied,
// padding exposed regions with the book's paper color (spec section 4.4's
// deterministic operation order: crop, resize, shift, feather).
func Page(src pageraster.PageRaster, crop pageraster.CropRegion, shiftX, shiftY float64, opts Options) pageraster.PageRaster {
	cropped := cropToBounds(src, crop)
	resized := resizeToHeight(cropped, opts.TargetHeight)
	paper := estimatePaperColor(resized)
	shifted := shiftCanvas(resized, shiftX, shiftY, paper)
	if opts.FeatherPixels > 0 {
		shifted = featherEdges(shifted, opts.FeatherPixels, paper)
	}
	return shifted
}

// BatchItem is one page's finalize inputs for the batch variant.
type BatchItem struct {
	Src            pageraster.PageRaster
	Crop           pageraster.CropRegion
	ShiftX, ShiftY float64
}

// Batch finalizes every item, producing results identical to calling Page
// sequentially for each one (spec section 4.4 and section 8's batch
// property).
func Batch(items []BatchItem, opts Options) []pageraster.PageRaster {
	out := make([]pageraster.PageRaster, len(items))
	for i, it := range items {
		out[i] = Page(it.Src, it.Crop, it.ShiftX, it.ShiftY, opts)
	}
	return out
}

func cropToBounds(src pageraster.PageRaster, crop pageraster.CropRegion) pageraster.PageRaster {
	w, h := src.Width(), src.Height()
	clipped := crop.ClipTo(w, h)
	if clipped.Empty() {
		return src
	}
	cropped := imaging.Crop(src.Img, clipped.ToImageRect())
	return pageraster.FromImage(cropped)
}

func resizeToHeight(src pageraster.PageRaster, targetHeight int) pageraster.PageRaster {
	if src.Height() == targetHeight {
		return src
	}
	width := int(math.Round(float64(src.Width()) * float64(targetHeight) / float64(src.Height())))
	resized := imaging.Resize(src.Img, width, targetHeight, imaging.Lanczos)
	return pageraster.FromImage(resized)
}

// shiftCanvas translates the resized image by (shiftX, shiftY) in the
// target coordinate system. Pixels shifted off-canvas are discarded;
// pixels revealed on-canvas are filled with paper.
func shiftCanvas(src pageraster.PageRaster, shiftX, shiftY float64, paper color.RGBA) pageraster.PageRaster {
	dx, dy := int(math.Round(shiftX)), int(math.Round(shiftY))
	if dx == 0 && dy == 0 {
		return src
	}
	w, h := src.Width(), src.Height()
	out := pageraster.NewPageRaster(w, h, paper)
	draw.Draw(out.Img, out.Img.Bounds(), src.Img, image.Pt(-dx, -dy), draw.Src)
	// draw.Draw above would also overwrite revealed regions with zero-value
	// pixels from outside src's bounds; re-fill revealed strips explicitly.
	fillRevealed(out, w, h, dx, dy, paper)
	return out
}

// fillRevealed paints the strips of the canvas not covered by the shifted
// source with paper, since draw.Draw with image.Src leaves out-of-bounds
// source reads as the image's zero value (transparent black), not paper.
func fillRevealed(out pageraster.PageRaster, w, h, dx, dy int, paper color.RGBA) {
	if dx > 0 {
		paintRect(out, pageraster.Rect{X: 0, Y: 0, W: min(dx, w), H: h}, paper)
	} else if dx < 0 {
		start := max(w+dx, 0)
		paintRect(out, pageraster.Rect{X: start, Y: 0, W: w - start, H: h}, paper)
	}
	if dy > 0 {
		paintRect(out, pageraster.Rect{X: 0, Y: 0, W: w, H: min(dy, h)}, paper)
	} else if dy < 0 {
		start := max(h+dy, 0)
		paintRect(out, pageraster.Rect{X: 0, Y: start, W: w, H: h - start}, paper)
	}
}

func paintRect(out pageraster.PageRaster, r pageraster.Rect, c color.RGBA) {
	r = r.ClipTo(out.Width(), out.Height())
	for y := r.Y; y < r.Bottom(); y++ {
		for x := r.X; x < r.Right(); x++ {
			out.Set(x, y, c)
		}
	}
}

// estimatePaperColor samples the four corner 32x32 patches of the pre-shift
// resized image, rejects patches whose variance exceeds a small threshold
// (non-paper), and averages the surviving patches' RGB means. If none
// survive, it falls back to white.
func estimatePaperColor(img pageraster.PageRaster) color.RGBA {
	const patch = 32
	const varianceThreshold = 200.0 // small threshold on per-channel variance

	w, h := img.Width(), img.Height()
	ps := min(patch, w, h)
	if ps <= 0 {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}

	corners := []pageraster.Rect{
		{X: 0, Y: 0, W: ps, H: ps},
		{X: w - ps, Y: 0, W: ps, H: ps},
		{X: 0, Y: h - ps, W: ps, H: ps},
		{X: w - ps, Y: h - ps, W: ps, H: ps},
	}

	var sumR, sumG, sumB float64
	var n int
	for _, c := range corners {
		meanR, meanG, meanB, varMax := patchStats(img, c)
		if varMax > varianceThreshold {
			continue
		}
		sumR += meanR
		sumG += meanG
		sumB += meanB
		n++
	}
	if n == 0 {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return color.RGBA{
		R: clampByte(sumR / float64(n)),
		G: clampByte(sumG / float64(n)),
		B: clampByte(sumB / float64(n)),
		A: 255,
	}
}

func patchStats(img pageraster.PageRaster, r pageraster.Rect) (meanR, meanG, meanB, varMax float64) {
	n := float64(r.W * r.H)
	var sumR, sumG, sumB, sumR2, sumG2, sumB2 float64
	for y := r.Y; y < r.Bottom(); y++ {
		for x := r.X; x < r.Right(); x++ {
			c := img.At(x, y)
			fr, fg, fb := float64(c.R), float64(c.G), float64(c.B)
			sumR += fr
			sumG += fg
			sumB += fb
			sumR2 += fr * fr
			sumG2 += fg * fg
			sumB2 += fb * fb
		}
	}
	meanR, meanG, meanB = sumR/n, sumG/n, sumB/n
	varR := sumR2/n - meanR*meanR
	varG := sumG2/n - meanG*meanG
	varB := sumB2/n - meanB*meanB
	varMax = math.Max(varR, math.Max(varG, varB))
	return
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(math.Round(v))
}

// featherEdges blends pixels within featherPixels of any of the four canvas
// edges toward paper with a linear ramp. It feathers every edge, whether or
// not the shift exposed it.
func featherEdges(img pageraster.PageRaster, featherPixels int, paper color.RGBA) pageraster.PageRaster {
	w, h := img.Width(), img.Height()
	out := pageraster.NewPageRaster(w, h, nil)
	for y := range h {
		for x := range w {
			distToEdge := min(x, w-1-x, y, h-1-y)
			c := img.At(x, y)
			if distToEdge >= featherPixels {
				out.Set(x, y, c)
				continue
			}
			t := 1 - float64(distToEdge)/float64(featherPixels)
			out.Set(x, y, blendColor(c, paper, t))
		}
	}
	return out
}

func blendColor(c, target color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: clampByte(float64(c.R) + t*(float64(target.R)-float64(c.R))),
		G: clampByte(float64(c.G) + t*(float64(target.G)-float64(c.G))),
		B: clampByte(float64(c.B) + t*(float64(target.B)-float64(c.B))),
		A: 255,
	}
}
