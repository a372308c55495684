package pagenumber

import "github.com/inkwell-labs/bookrestore/internal/pageraster"

// interpolateParity linearly interpolates missing shifts within a parity
// class from its nearest matched same-parity neighbors, extending by
// constant at the ends. If no page of the parity has a match, it leaves
// (0,0) for that parity (its zero value). Split out on its own so the
// interpolation math can be property-tested independent of OCR/shift
// detection.
func interpolateParity(shifts []Shift, has []bool, parity pageraster.Parity) {
	var idxs []int
	for i := range shifts {
		if pageraster.ParityOf(i+1) == parity && has[i] {
			idxs = append(idxs, i)
		}
	}
	if len(idxs) == 0 {
		return
	}

	classIdxs := make([]int, 0, len(shifts)/2+1)
	for i := range shifts {
		if pageraster.ParityOf(i+1) == parity {
			classIdxs = append(classIdxs, i)
		}
	}

	for _, i := range classIdxs {
		if has[i] {
			continue
		}
		prev, next, okPrev, okNext := neighbors(i, idxs)
		switch {
		case okPrev && okNext:
			shifts[i] = lerp(shifts[prev], shifts[next], prev, next, i)
		case okPrev:
			shifts[i] = shifts[prev]
		case okNext:
			shifts[i] = shifts[next]
		}
	}
}

func neighbors(i int, matched []int) (prev, next int, okPrev, okNext bool) {
	for _, m := range matched {
		if m < i {
			prev, okPrev = m, true
		}
		if m > i && !okNext {
			next, okNext = m, true
		}
	}
	return
}

func lerp(a, b Shift, ia, ib, i int) Shift {
	t := float64(i-ia) / float64(ib-ia)
	return Shift{
		X: a.X + t*(b.X-a.X),
		Y: a.Y + t*(b.Y-a.Y),
	}
}
