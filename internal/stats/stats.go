// Package stats provides the robust-statistics primitives shared by the
// margin and color-correction modules: median, quartiles, median absolute
// deviation, and the Tukey fence. Style grounded on the teacher's
// probability-map statistics in detector/adaptive_threshold.go
// (sort-then-index percentiles over a float slice).
package stats

import "sort"

// Median returns the median of vs. vs is not mutated. Panics on empty input;
// callers are expected to guard for that (aggregation stages never call
// Median on an empty pool).
func Median(vs []float64) float64 {
	s := sortedCopy(vs)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// Quartiles returns (Q1, Q3) using the simple "split at the median" method:
// Q1 is the median of the lower half, Q3 the median of the upper half,
// excluding the overall median element for odd-length input. This matches
// the inclusive convention implied by spec section 4.1's Tukey-fence example
// (IQR=0 for identical inputs).
func Quartiles(vs []float64) (q1, q3 float64) {
	s := sortedCopy(vs)
	n := len(s)
	if n == 0 {
		return 0, 0
	}
	if n == 1 {
		return s[0], s[0]
	}
	mid := n / 2
	lower := s[:mid]
	var upper []float64
	if n%2 == 0 {
		upper = s[mid:]
	} else {
		upper = s[mid+1:]
	}
	return Median(lower), Median(upper)
}

// TukeyFence returns the [lower, upper] inlier bounds for vs using
// k=1.5 (Glossary: Tukey fence). Identical inputs produce IQR=0, so the
// fence degenerates to the single value and every element is an inlier.
func TukeyFence(vs []float64) (lower, upper float64) {
	const k = 1.5
	q1, q3 := Quartiles(vs)
	iqr := q3 - q1
	return q1 - k*iqr, q3 + k*iqr
}

// TukeyInliers returns the subset of vs lying within the Tukey fence,
// preserving order.
func TukeyInliers(vs []float64) []float64 {
	if len(vs) == 0 {
		return nil
	}
	lower, upper := TukeyFence(vs)
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		if v >= lower && v <= upper {
			out = append(out, v)
		}
	}
	return out
}

// MAD returns the median absolute deviation of vs around its own median:
// d = median(|v - median(vs)|).
func MAD(vs []float64) (median, mad float64) {
	m := Median(vs)
	devs := make([]float64, len(vs))
	for i, v := range vs {
		devs[i] = absf(v - m)
	}
	return m, Median(devs)
}

// MADInlierMask returns a bool slice, true where vs[i] falls within
// [median - threshold*mad, median + threshold*mad]. When mad is zero every
// value equal to the median is an inlier and all others are outliers,
// matching the degenerate Tukey-fence behavior for constant input.
func MADInlierMask(vs []float64, threshold float64) []bool {
	median, mad := MAD(vs)
	mask := make([]bool, len(vs))
	bound := threshold * mad
	for i, v := range vs {
		if mad == 0 {
			mask[i] = v == median
			continue
		}
		mask[i] = absf(v-median) <= bound
	}
	return mask
}

func sortedCopy(vs []float64) []float64 {
	s := make([]float64, len(vs))
	copy(s, vs)
	sort.Float64s(s)
	return s
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
