package osd

import (
	"math"

	"github.com/Faultbox/figure-subdiv/pkg/topology"
)

// maskEntry weights one parent-level vertex in the position, du and dv
// channels. Refinement masks use only the position channel.
type maskEntry struct {
	idx int
	w   [3]float64
}

func pos(idx int, w float64) maskEntry {
	return maskEntry{idx: idx, w: [3]float64{w, 0, 0}}
}

func facePointMask(dst []maskEntry, q topology.Quad) []maskEntry {
	for _, v := range q {
		dst = append(dst, pos(v, 0.25))
	}
	return dst
}

func edgePointMask(dst []maskEntry, adj *topology.Adjacency, e int) []maskEntry {
	edge := adj.Edges[e]
	if adj.IsBoundaryEdge(e) {
		return append(dst, pos(edge.V0, 0.5), pos(edge.V1, 0.5))
	}

	// (v0 + v1 + fp0 + fp1) / 4 with each face point expanded.
	dst = append(dst, pos(edge.V0, 0.25), pos(edge.V1, 0.25))
	for _, f := range adj.EdgeFaces[e] {
		dst = facePointMaskScaled(dst, adj.Topology.Faces[f], 0.25)
	}
	return dst
}

func facePointMaskScaled(dst []maskEntry, q topology.Quad, s float64) []maskEntry {
	for _, v := range q {
		dst = append(dst, pos(v, 0.25*s))
	}
	return dst
}

// vertexKind classifies the neighbourhood of a vertex for the subdivision
// and limit rules.
type vertexKind int

const (
	isolatedVertex vertexKind = iota
	interiorVertex
	boundaryVertex
	cornerVertex
)

func classify(r topology.Ring, mode BoundaryInterpolation) vertexKind {
	switch {
	case r.Valence() == 0:
		return isolatedVertex
	case r.Partial:
		// Non-manifold vertex joining several fans.
		return cornerVertex
	case r.Closed:
		return interiorVertex
	case r.Valence() == 1 && mode == EdgeAndCorner:
		return cornerVertex
	default:
		return boundaryVertex
	}
}

func vertexPointMask(dst []maskEntry, r topology.Ring, mode BoundaryInterpolation) []maskEntry {
	v := r.Vertex
	switch classify(r, mode) {
	case interiorVertex:
		n := float64(r.Valence())
		inv := 1 / (n * n)
		dst = append(dst, pos(v, (n-2)/n))
		for i := 0; i < r.Valence(); i++ {
			dst = append(dst, pos(r.Next(i), inv))
		}
		for i := 0; i < r.Valence(); i++ {
			q := topology.Quad{v, r.Next(i), r.Opposite(i), r.Prev(i)}
			dst = facePointMaskScaled(dst, q, inv)
		}
		return dst
	case boundaryVertex:
		nb := r.EdgeNeighbors()
		return append(dst,
			pos(v, 0.75),
			pos(nb[0], 0.125),
			pos(nb[len(nb)-1], 0.125))
	default:
		return append(dst, pos(v, 1))
	}
}

// limitMask returns the limit position and tangent masks at a vertex.
//
// The du tangent points from the centre towards the first edge neighbour
// of the fan and dv a quarter turn counter-clockwise from it, so du × dv
// follows the face winding. Tangents are scaled so that a regular vertex
// gives the parametric derivative of its bicubic limit patch.
func limitMask(dst []maskEntry, r topology.Ring, mode BoundaryInterpolation) []maskEntry {
	v := r.Vertex
	switch classify(r, mode) {
	case interiorVertex:
		return interiorLimitMask(dst, r)
	case boundaryVertex:
		return boundaryLimitMask(dst, r)
	case cornerVertex:
		return append(dst,
			maskEntry{idx: v, w: [3]float64{1, -1, -1}},
			maskEntry{idx: r.Next(0), w: [3]float64{0, 1, 0}},
			maskEntry{idx: r.Prev(0), w: [3]float64{0, 0, 1}})
	default:
		return append(dst, pos(v, 1))
	}
}

func interiorLimitMask(dst []maskEntry, r topology.Ring) []maskEntry {
	n := r.Valence()
	fn := float64(n)
	denom := fn * (fn + 5)

	theta := 2 * math.Pi / fn
	a := 1 + math.Cos(theta) + math.Cos(math.Pi/fn)*math.Sqrt(2*(9+math.Cos(theta)))
	s := 2 / (fn * (a + 2))

	dst = append(dst, pos(r.Vertex, fn/(fn+5)))
	for i := 0; i < n; i++ {
		c0, s0 := math.Cos(theta*float64(i)), math.Sin(theta*float64(i))
		c1, s1 := math.Cos(theta*float64(i+1)), math.Sin(theta*float64(i+1))
		dst = append(dst,
			maskEntry{idx: r.Next(i), w: [3]float64{4 / denom, s * a * c0, s * a * s0}},
			maskEntry{idx: r.Opposite(i), w: [3]float64{1 / denom, s * (c0 + c1), s * (s0 + s1)}})
	}
	return dst
}

func boundaryLimitMask(dst []maskEntry, r topology.Ring) []maskEntry {
	n := r.Valence()
	b0, b1 := r.Next(0), r.Prev(n-1)

	// Cross-boundary tangent: interior average minus the boundary limit
	// mask, exact for the regular (two-face) boundary.
	const edgeShare, faceShare = 2.0 / 3, 1.0 / 3
	dst = append(dst,
		maskEntry{idx: r.Vertex, w: [3]float64{4.0 / 6, 0, -4.0 / 6}},
		maskEntry{idx: b0, w: [3]float64{1.0 / 6, 0.5, -1.0 / 6}},
		maskEntry{idx: b1, w: [3]float64{1.0 / 6, -0.5, -1.0 / 6}})

	faceW := faceShare / float64(n)
	if n == 1 {
		faceW = 1
	} else {
		edgeW := edgeShare / float64(n-1)
		for i := 1; i < n; i++ {
			dst = append(dst, maskEntry{idx: r.Next(i), w: [3]float64{0, 0, edgeW}})
		}
	}
	for i := 0; i < n; i++ {
		dst = append(dst, maskEntry{idx: r.Opposite(i), w: [3]float64{0, 0, faceW}})
	}
	return dst
}
