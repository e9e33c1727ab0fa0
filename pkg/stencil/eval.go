package stencil

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/figure-subdiv/pkg/packed"
)

// Apply evaluates one value per stencil as the weighted sum of control
// points. dst is reused when it has enough capacity. Every Index must lie
// inside control.
func Apply(s packed.Lists[WeightedIndex], control []r3.Vec, dst []r3.Vec) []r3.Vec {
	dst = resize(dst, s.Len())
	for i := range dst {
		var sum r3.Vec
		for _, w := range s.At(i) {
			sum = r3.Add(sum, r3.Scale(float64(w.Weight), control[w.Index]))
		}
		dst[i] = sum
	}
	return dst
}

// Evaluate computes limit positions and du/dv tangents for every merged
// stencil in a single pass over the stencil data. The three destination
// slices are reused when large enough and returned resized.
func Evaluate(s packed.Lists[WeightedIndexWithDerivatives], control, pos, du, dv []r3.Vec) ([]r3.Vec, []r3.Vec, []r3.Vec) {
	n := s.Len()
	pos, du, dv = resize(pos, n), resize(du, n), resize(dv, n)

	offsets, values := s.Offsets(), s.Values()
	for i := 0; i < n; i++ {
		var p, u, v r3.Vec
		for _, w := range values[offsets[i]:offsets[i+1]] {
			c := control[w.Index]
			p = r3.Add(p, r3.Scale(float64(w.Weight), c))
			u = r3.Add(u, r3.Scale(float64(w.DuWeight), c))
			v = r3.Add(v, r3.Scale(float64(w.DvWeight), c))
		}
		pos[i], du[i], dv[i] = p, u, v
	}
	return pos, du, dv
}

func resize(s []r3.Vec, n int) []r3.Vec {
	if cap(s) < n {
		return make([]r3.Vec, n)
	}
	return s[:n]
}
