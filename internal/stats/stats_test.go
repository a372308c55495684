package stats

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestMedianOddEven(t *testing.T) {
	assert.InDelta(t, 3.0, Median([]float64{1, 3, 5}), 1e-9)
	assert.InDelta(t, 3.0, Median([]float64{1, 2, 4, 5}), 1e-9)
}

func TestTukeyFenceIdenticalInputs(t *testing.T) {
	vs := []float64{7, 7, 7, 7, 7}
	lower, upper := TukeyFence(vs)
	assert.InDelta(t, 7.0, lower, 1e-9)
	assert.InDelta(t, 7.0, upper, 1e-9)
	assert.Equal(t, vs, TukeyInliers(vs))
}

func TestTukeyFenceExcludesOutlier(t *testing.T) {
	vs := make([]float64, 0, 20)
	for range 19 {
		vs = append(vs, 100)
	}
	vs = append(vs, 700)
	inliers := TukeyInliers(vs)
	assert.Len(t, inliers, 19)
	for _, v := range inliers {
		assert.InDelta(t, 100.0, v, 1e-9)
	}
}

func TestMADInlierMaskConstant(t *testing.T) {
	mask := MADInlierMask([]float64{5, 5, 5}, 2.5)
	assert.Equal(t, []bool{true, true, true}, mask)
}

// TestTukeyInliersSubsetOfIdentical verifies spec section 8's invariant:
// for all Tukey inputs V with |V| >= 4 and all identical elements, inliers = V.
func TestTukeyInliersSubsetOfIdentical(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("identical inputs of length >= 4 are all inliers", prop.ForAll(
		func(v float64, n int) bool {
			vs := make([]float64, n)
			for i := range vs {
				vs[i] = v
			}
			inliers := TukeyInliers(vs)
			return len(inliers) == n
		},
		gen.Float64Range(-1000, 1000),
		gen.IntRange(4, 50),
	))

	properties.TestingRun(t)
}
