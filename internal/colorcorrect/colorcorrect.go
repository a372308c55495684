// Package colorcorrect implements the global color normalization pipeline
// (spec section 4.2): per-page paper/ink statistics, book-wide affine
// decision with MAD outlier rejection, and per-pixel apply with ghost
// suppression.
package colorcorrect

import (
	"image/color"
	"math"
	"sort"

	"github.com/inkwell-labs/bookrestore/internal/pageraster"
	"github.com/inkwell-labs/bookrestore/internal/stats"
)

// Options configures color analysis and application. Defaults follow spec
// section 4.2.
type Options struct {
	SampleStep           int     // sub-sampling lattice stride; default 4
	SaturationThreshold  int     // chroma above this is discarded as illustration; default 30
	MinAchromaticSamples int     // page invalid below this many achromatic samples; default 100
	MinDynamicRange      float64 // page invalid if paper-ink luminance gap is below this; default 32
	MADThreshold         float64 // MAD outlier threshold multiplier; default 2.5
	MinScaleSpread       float64 // channel treated as identity if p*-i* below this; default 8
	MinScale             float64 // clamp lower bound; default 0.5
	MaxScale             float64 // clamp upper bound; default 4.0
	GhostSuppressThresh  float64 // default 245
	WhiteClipRange       int     // default 5
}

// DefaultOptions returns the spec-default options.
func DefaultOptions() Options {
	return Options{
		SampleStep:           4,
		SaturationThreshold:  30,
		MinAchromaticSamples: 100,
		MinDynamicRange:      32,
		MADThreshold:         2.5,
		MinScaleSpread:       8,
		MinScale:             0.5,
		MaxScale:             4.0,
		GhostSuppressThresh:  245,
		WhiteClipRange:       5,
	}
}

// RGB is an RGB triple of float channel values.
type RGB struct{ R, G, B float64 }

// Stats is the per-page color statistics of spec section 4.2.
type Stats struct {
	Paper RGB
	Ink   RGB
	Valid bool
}

// Analyze computes per-page paper/ink color statistics.
func Analyze(r pageraster.PageRaster, opts Options) Stats {
	w, h := r.Width(), r.Height()
	step := opts.SampleStep
	if step <= 0 {
		step = 1
	}

	samples := make([]colorSample, 0, (w/step+1)*(h/step+1))
	for y := 0; y < h; y += step {
		for x := 0; x < w; x += step {
			c := r.At(x, y)
			if pageraster.Chroma(c) > opts.SaturationThreshold {
				continue
			}
			samples = append(samples, colorSample{lum: pageraster.Luminance(c), c: c})
		}
	}

	if len(samples) < opts.MinAchromaticSamples {
		return Stats{Valid: false}
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].lum < samples[j].lum })

	n := len(samples)
	topN := max(1, n/20) // top 5%
	bottomN := max(1, n/20)

	paper := meanRGB(samples[n-topN:])
	ink := meanRGB(samples[:bottomN])

	paperLum := meanLum(samples[n-topN:])
	inkLum := meanLum(samples[:bottomN])

	if paperLum-inkLum < opts.MinDynamicRange {
		return Stats{Valid: false}
	}

	return Stats{Paper: paper, Ink: ink, Valid: true}
}

type colorSample struct {
	lum float64
	c   color.RGBA
}

func meanRGB(samples []colorSample) RGB {
	var sr, sg, sb float64
	for _, s := range samples {
		sr += float64(s.c.R)
		sg += float64(s.c.G)
		sb += float64(s.c.B)
	}
	n := float64(len(samples))
	return RGB{R: sr / n, G: sg / n, B: sb / n}
}

func meanLum(samples []colorSample) float64 {
	var sum float64
	for _, s := range samples {
		sum += s.lum
	}
	return sum / float64(len(samples))
}

// GlobalParam is the book-wide affine color transform plus ghost-suppression
// curve (spec section 4.2).
type GlobalParam struct {
	Scale               [3]float64
	Offset              [3]float64
	GhostThreshold      float64
	SaturationThreshold float64
	WhiteClipRange      int
}

// Identity returns the no-op transform used as the fallback when inlier
// pools are empty (spec: "the stage never fails fatally").
func Identity(opts Options) GlobalParam {
	return GlobalParam{
		Scale:               [3]float64{1, 1, 1},
		Offset:              [3]float64{0, 0, 0},
		GhostThreshold:      opts.GhostSuppressThresh,
		SaturationThreshold: float64(opts.SaturationThreshold),
		WhiteClipRange:      opts.WhiteClipRange,
	}
}

// Decide computes the book-wide GlobalParam from per-page stats, rejecting
// outliers per-channel-per-pool via MAD (spec section 4.2).
func Decide(all []Stats, opts Options) GlobalParam {
	var paperR, paperG, paperB []float64
	var inkR, inkG, inkB []float64
	for _, s := range all {
		if !s.Valid {
			continue
		}
		paperR = append(paperR, s.Paper.R)
		paperG = append(paperG, s.Paper.G)
		paperB = append(paperB, s.Paper.B)
		inkR = append(inkR, s.Ink.R)
		inkG = append(inkG, s.Ink.G)
		inkB = append(inkB, s.Ink.B)
	}
	if len(paperR) == 0 {
		return Identity(opts)
	}

	paperInlier := combinedMask(opts.MADThreshold, paperR, paperG, paperB)
	inkInlier := combinedMask(opts.MADThreshold, inkR, inkG, inkB)
	for i := range paperInlier {
		both := paperInlier[i] && inkInlier[i]
		paperInlier[i], inkInlier[i] = both, both
	}

	paperStarR, okP := medianWhere(paperR, paperInlier)
	paperStarG, _ := medianWhere(paperG, paperInlier)
	paperStarB, _ := medianWhere(paperB, paperInlier)
	inkStarR, okI := medianWhere(inkR, inkInlier)
	inkStarG, _ := medianWhere(inkG, inkInlier)
	inkStarB, _ := medianWhere(inkB, inkInlier)

	if !okP || !okI {
		return Identity(opts)
	}

	scale, offset := [3]float64{}, [3]float64{}
	pStars := [3]float64{paperStarR, paperStarG, paperStarB}
	iStars := [3]float64{inkStarR, inkStarG, inkStarB}
	for c := range 3 {
		spread := pStars[c] - iStars[c]
		if spread < opts.MinScaleSpread {
			scale[c], offset[c] = 1, 0
			continue
		}
		s := 255.0 / spread
		s = clamp(s, opts.MinScale, opts.MaxScale)
		o := 0 - s*iStars[c]
		scale[c], offset[c] = s, o
	}

	return GlobalParam{
		Scale:               scale,
		Offset:              offset,
		GhostThreshold:      opts.GhostSuppressThresh,
		SaturationThreshold: float64(opts.SaturationThreshold),
		WhiteClipRange:      opts.WhiteClipRange,
	}
}

// combinedMask ANDs the per-channel MAD inlier masks of one pool. Decide then
// ANDs the paper and ink masks, so a page is dropped from both pools if it is
// an outlier "in any channel of any pool" (spec wording).
func combinedMask(threshold float64, r, g, b []float64) []bool {
	mr := stats.MADInlierMask(r, threshold)
	mg := stats.MADInlierMask(g, threshold)
	mb := stats.MADInlierMask(b, threshold)
	out := make([]bool, len(r))
	for i := range out {
		out[i] = mr[i] && mg[i] && mb[i]
	}
	return out
}

func medianWhere(vs []float64, mask []bool) (float64, bool) {
	var kept []float64
	for i, v := range vs {
		if mask[i] {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return 0, false
	}
	return stats.Median(kept), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Apply applies the global color transform to a page: per-pixel affine
// correction, then ghost suppression, then white-clip snap (spec section
// 4.2's own operation order). It returns a new raster; the input is left
// untouched.
func Apply(r pageraster.PageRaster, g GlobalParam) pageraster.PageRaster {
	w, h := r.Width(), r.Height()
	out := pageraster.NewPageRaster(w, h, nil)

	for y := range h {
		for x := range w {
			c := r.At(x, y)
			rC := clampByte(math.Round(g.Scale[0]*float64(c.R) + g.Offset[0]))
			gC := clampByte(math.Round(g.Scale[1]*float64(c.G) + g.Offset[1]))
			bC := clampByte(math.Round(g.Scale[2]*float64(c.B) + g.Offset[2]))

			yPrime := pageraster.Luminance(color.RGBA{R: rC, G: gC, B: bC, A: 255})
			if yPrime > g.GhostThreshold {
				t := clamp((yPrime-g.GhostThreshold)/(255-g.GhostThreshold), 0, 1)
				rC = blendByte(rC, 255, t)
				gC = blendByte(gC, 255, t)
				bC = blendByte(bC, 255, t)
			}

			out.Set(x, y, snapWhite(color.RGBA{R: rC, G: gC, B: bC, A: 255}, g.WhiteClipRange))
		}
	}
	return out
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func blendByte(v, target uint8, t float64) uint8 {
	return clampByte(float64(v) + t*(float64(target)-float64(v)))
}

func whiteDist(r, g, b uint8) int {
	dr := 255 - int(r)
	dg := 255 - int(g)
	db := 255 - int(b)
	d := dr
	if dg > d {
		d = dg
	}
	if db > d {
		d = db
	}
	return d
}

func snapWhite(c color.RGBA, clipRange int) color.RGBA {
	if whiteDist(c.R, c.G, c.B) <= clipRange {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return c
}
