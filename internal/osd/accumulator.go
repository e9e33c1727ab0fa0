package osd

import "slices"

// accumulator is a dense scratch row over control vertices. Weights for
// the position, du and dv channels are summed per control index and
// flushed in ascending index order.
type accumulator struct {
	w       [][3]float64
	seen    []bool
	touched []int
}

func newAccumulator(n int) *accumulator {
	return &accumulator{
		w:       make([][3]float64, n),
		seen:    make([]bool, n),
		touched: make([]int, 0, 64),
	}
}

func (a *accumulator) add(idx int, w [3]float64) {
	if !a.seen[idx] {
		a.seen[idx] = true
		a.touched = append(a.touched, idx)
	}
	a.w[idx][0] += w[0]
	a.w[idx][1] += w[1]
	a.w[idx][2] += w[2]
}

// flush calls fn for every touched index in ascending order and resets
// the row. Indices whose three weights are all exactly zero are skipped.
func (a *accumulator) flush(fn func(idx int, w [3]float64)) {
	slices.Sort(a.touched)
	for _, idx := range a.touched {
		w := a.w[idx]
		if w != [3]float64{} {
			fn(idx, w)
		}
		a.w[idx] = [3]float64{}
		a.seen[idx] = false
	}
	a.touched = a.touched[:0]
}
