// Package stencil provides weighted combinations of control vertices and
// the merge of position, du and dv stencil sets into one.
package stencil

import (
	"errors"
	"fmt"

	"github.com/Faultbox/figure-subdiv/pkg/packed"
)

// ErrShapeMismatch reports position/du/dv stencil sets that do not share
// one index basis.
var ErrShapeMismatch = errors.New("stencil shapes do not match")

// Kind selects one of the three stencil sets a refinement produces.
type Kind int

const (
	LimitStencils   Kind = iota // limit position
	LimitDuStencils             // limit tangent along u
	LimitDvStencils             // limit tangent along v
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case LimitStencils:
		return "limit"
	case LimitDuStencils:
		return "limit-du"
	case LimitDvStencils:
		return "limit-dv"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// WeightedIndex contributes Weight times control vertex Index.
// A stencil may hold several entries with the same Index.
type WeightedIndex struct {
	Index  int
	Weight float32
}

// WeightedIndexWithDerivatives carries the position weight of a control
// vertex together with its du and dv tangent weights.
type WeightedIndexWithDerivatives struct {
	Index    int
	Weight   float32
	DuWeight float32
	DvWeight float32
}

// Merge zips position, du and dv stencils into one set. The three inputs
// must have the same number of stencils and, stencil by stencil, the same
// length and the same Index at every position. A mismatch means the
// producer broke its contract and is returned as ErrShapeMismatch; no
// partial result is returned.
func Merge(pos, du, dv packed.Lists[WeightedIndex]) (packed.Lists[WeightedIndexWithDerivatives], error) {
	n := pos.Len()
	if du.Len() != n || dv.Len() != n {
		return packed.Lists[WeightedIndexWithDerivatives]{}, fmt.Errorf(
			"%w: stencil counts %d/%d/%d", ErrShapeMismatch, n, du.Len(), dv.Len())
	}

	b := packed.NewBuilder[WeightedIndexWithDerivatives](n, pos.Count())
	for i := 0; i < n; i++ {
		p, u, v := pos.At(i), du.At(i), dv.At(i)
		if len(u) != len(p) || len(v) != len(p) {
			return packed.Lists[WeightedIndexWithDerivatives]{}, fmt.Errorf(
				"%w: vertex %d has lengths %d/%d/%d", ErrShapeMismatch, i, len(p), len(u), len(v))
		}
		for j := range p {
			if u[j].Index != p[j].Index || v[j].Index != p[j].Index {
				return packed.Lists[WeightedIndexWithDerivatives]{}, fmt.Errorf(
					"%w: vertex %d entry %d indexes %d/%d/%d",
					ErrShapeMismatch, i, j, p[j].Index, u[j].Index, v[j].Index)
			}
			b.Add(WeightedIndexWithDerivatives{
				Index:    p[j].Index,
				Weight:   p[j].Weight,
				DuWeight: u[j].Weight,
				DvWeight: v[j].Weight,
			})
		}
		b.EndList()
	}

	return b.Build(), nil
}

// Identity returns n one-entry stencils {i, 1}.
func Identity(n int) packed.Lists[WeightedIndex] {
	b := packed.NewBuilder[WeightedIndex](n, n)
	for i := 0; i < n; i++ {
		b.Add(WeightedIndex{Index: i, Weight: 1})
		b.EndList()
	}
	return b.Build()
}

// IdentityOver returns identity position stencils laid out on the index
// basis of an existing stencil set: stencil i gets weight 1 on its first
// entry with index i and weight 0 on every other entry, so the result
// merges with the basis set. Every basis stencil must reference its own
// vertex index; otherwise ErrShapeMismatch is returned.
func IdentityOver(basis packed.Lists[WeightedIndex]) (packed.Lists[WeightedIndex], error) {
	n := basis.Len()
	b := packed.NewBuilder[WeightedIndex](n, basis.Count())
	for i := 0; i < n; i++ {
		placed := false
		for _, w := range basis.At(i) {
			e := WeightedIndex{Index: w.Index}
			if w.Index == i && !placed {
				e.Weight = 1
				placed = true
			}
			b.Add(e)
		}
		if !placed {
			return packed.Lists[WeightedIndex]{}, fmt.Errorf(
				"%w: stencil %d does not reference its own vertex", ErrShapeMismatch, i)
		}
		b.EndList()
	}
	return b.Build(), nil
}

// MaxIndex returns the largest Index referenced by any stencil, or -1 when
// the set holds no entries.
func MaxIndex[T WeightedIndex | WeightedIndexWithDerivatives](lists packed.Lists[T]) int {
	maxIdx := -1
	for _, w := range lists.Values() {
		var idx int
		switch e := any(w).(type) {
		case WeightedIndex:
			idx = e.Index
		case WeightedIndexWithDerivatives:
			idx = e.Index
		}
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	return maxIdx
}

// Offset returns a copy of s with every Index shifted by delta.
func Offset(s packed.Lists[WeightedIndexWithDerivatives], delta int) packed.Lists[WeightedIndexWithDerivatives] {
	return packed.Map(s, func(w WeightedIndexWithDerivatives) WeightedIndexWithDerivatives {
		w.Index += delta
		return w
	})
}
