// Package osd evaluates uniform Catmull-Clark subdivision of quad meshes
// and produces limit stencils expressed over the level-0 control vertices.
//
// Each refinement level orders its child vertices as face points, then
// edge points, then vertex points. Child face j of parent face p is the
// quad at parent corner j and has index 4p+j.
package osd

import (
	"errors"
	"fmt"

	"github.com/Faultbox/figure-subdiv/pkg/packed"
	"github.com/Faultbox/figure-subdiv/pkg/stencil"
	"github.com/Faultbox/figure-subdiv/pkg/topology"
)

// MaxLevel is the deepest supported uniform refinement.
const MaxLevel = 8

// Refiner errors.
var (
	ErrInvalidLevel = errors.New("invalid refinement level")
	ErrClosed       = errors.New("refiner is closed")
)

// BoundaryInterpolation selects how boundary corners are treated.
type BoundaryInterpolation int

const (
	// EdgeAndCorner smooths boundary edges and keeps corners (boundary
	// vertices with a single face) fixed.
	EdgeAndCorner BoundaryInterpolation = iota
	// EdgeOnly smooths boundary edges and corners alike.
	EdgeOnly
)

// String returns the config name of the mode.
func (b BoundaryInterpolation) String() string {
	switch b {
	case EdgeAndCorner:
		return "edge-and-corner"
	case EdgeOnly:
		return "edge-only"
	default:
		return fmt.Sprintf("Unknown(%d)", int(b))
	}
}

// ParseBoundary converts a config name into a BoundaryInterpolation.
// The empty string selects EdgeAndCorner.
func ParseBoundary(s string) (BoundaryInterpolation, error) {
	switch s {
	case "", "edge-and-corner":
		return EdgeAndCorner, nil
	case "edge-only":
		return EdgeOnly, nil
	default:
		return 0, fmt.Errorf("unknown boundary interpolation %q", s)
	}
}

// Options configures a refinement.
type Options struct {
	Boundary BoundaryInterpolation
}

// weight is one term of an intermediate-level stencil over control vertices.
type weight struct {
	idx int
	w   float64
}

// level is one refinement level: its topology, adjacency and the stencils
// of its vertices over the control vertices.
type level struct {
	topo     topology.QuadTopology
	adj      *topology.Adjacency
	stencils packed.Lists[weight]
}

// Refiner holds a uniformly refined mesh hierarchy. It keeps per-level
// tables and a dense scratch row sized to the control mesh until Close.
// A Refiner is not safe for concurrent use.
type Refiner struct {
	opts    Options
	control int
	levels  []level
	faceMap []int
	acc     *accumulator
	limit   *[3]packed.Lists[stencil.WeightedIndex]
	closed  bool
}

// Refine subdivides ctrl uniformly n times.
func Refine(ctrl topology.QuadTopology, n int, opts Options) (*Refiner, error) {
	if n < 0 || n > MaxLevel {
		return nil, fmt.Errorf("%w: %d (want 0..%d)", ErrInvalidLevel, n, MaxLevel)
	}
	if err := ctrl.Validate(); err != nil {
		return nil, fmt.Errorf("control topology: %w", err)
	}

	adj, err := topology.BuildAdjacency(ctrl)
	if err != nil {
		return nil, fmt.Errorf("control topology: %w", err)
	}

	r := &Refiner{
		opts:    opts,
		control: ctrl.VertexCount,
		levels:  make([]level, 0, n+1),
		acc:     newAccumulator(ctrl.VertexCount),
	}

	identity := packed.NewBuilder[weight](ctrl.VertexCount, ctrl.VertexCount)
	for v := 0; v < ctrl.VertexCount; v++ {
		identity.Add(weight{idx: v, w: 1})
		identity.EndList()
	}
	r.levels = append(r.levels, level{topo: ctrl, adj: adj, stencils: identity.Build()})

	r.faceMap = make([]int, len(ctrl.Faces))
	for f := range r.faceMap {
		r.faceMap[f] = f
	}

	for i := 1; i <= n; i++ {
		next, err := r.subdivide(r.levels[i-1])
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", i, err)
		}
		r.levels = append(r.levels, next)
	}

	return r, nil
}

// Level returns the refinement depth.
func (r *Refiner) Level() int {
	return len(r.levels) - 1
}

// ControlVertexCount returns the number of level-0 vertices.
func (r *Refiner) ControlVertexCount() int {
	return r.control
}

// Topology returns the topology of the deepest level.
func (r *Refiner) Topology() (topology.QuadTopology, error) {
	if r.closed {
		return topology.QuadTopology{}, ErrClosed
	}
	t := r.levels[len(r.levels)-1].topo
	return topology.QuadTopology{
		VertexCount: t.VertexCount,
		Faces:       append([]topology.Quad(nil), t.Faces...),
	}, nil
}

// FaceMap returns, for every face of the deepest level, the control face
// it descends from.
func (r *Refiner) FaceMap() ([]int, error) {
	if r.closed {
		return nil, ErrClosed
	}
	return append([]int(nil), r.faceMap...), nil
}

// LimitStencils returns one stencil per deepest-level vertex over control
// vertices. The three kinds share the same index sequence per vertex.
func (r *Refiner) LimitStencils(kind stencil.Kind) (packed.Lists[stencil.WeightedIndex], error) {
	if r.closed {
		return packed.Lists[stencil.WeightedIndex]{}, ErrClosed
	}
	if kind < stencil.LimitStencils || kind > stencil.LimitDvStencils {
		return packed.Lists[stencil.WeightedIndex]{}, fmt.Errorf("unknown stencil kind %v", kind)
	}
	if r.limit == nil {
		r.limit = r.buildLimitStencils()
	}
	return r.limit[kind], nil
}

// Close releases the level tables and scratch storage. It is safe to call
// more than once.
func (r *Refiner) Close() error {
	r.closed = true
	r.levels = nil
	r.faceMap = nil
	r.acc = nil
	r.limit = nil
	return nil
}

// compose expresses a mask over parent-level vertices as a row over
// control vertices and passes it to emit.
func (r *Refiner) compose(parent packed.Lists[weight], mask []maskEntry, emit func(idx int, w [3]float64)) {
	for _, m := range mask {
		for _, pw := range parent.At(m.idx) {
			r.acc.add(pw.idx, [3]float64{m.w[0] * pw.w, m.w[1] * pw.w, m.w[2] * pw.w})
		}
	}
	r.acc.flush(emit)
}

// subdivide performs one Catmull-Clark step.
func (r *Refiner) subdivide(p level) (level, error) {
	t, adj := p.topo, p.adj
	nf, ne, nv := len(t.Faces), len(adj.Edges), t.VertexCount

	facePoint := func(f int) int { return f }
	edgePoint := func(e int) int { return nf + e }
	vertexPoint := func(v int) int { return nf + ne + v }

	childCount := nf + ne + nv
	b := packed.NewBuilder[weight](childCount, p.stencils.Count()*4)
	emit := func(idx int, w [3]float64) {
		b.Add(weight{idx: idx, w: w[0]})
	}

	var mask []maskEntry
	for f := 0; f < nf; f++ {
		mask = facePointMask(mask[:0], t.Faces[f])
		r.compose(p.stencils, mask, emit)
		b.EndList()
	}
	for e := 0; e < ne; e++ {
		mask = edgePointMask(mask[:0], adj, e)
		r.compose(p.stencils, mask, emit)
		b.EndList()
	}
	for v := 0; v < nv; v++ {
		mask = vertexPointMask(mask[:0], adj.VertexRing(v), r.opts.Boundary)
		r.compose(p.stencils, mask, emit)
		b.EndList()
	}

	faces := make([]topology.Quad, 0, 4*nf)
	faceMap := make([]int, 0, 4*nf)
	for f, q := range t.Faces {
		fe := adj.FaceEdges[f]
		for j := 0; j < 4; j++ {
			faces = append(faces, topology.Quad{
				vertexPoint(q[j]),
				edgePoint(fe[j]),
				facePoint(f),
				edgePoint(fe[(j+3)%4]),
			})
			faceMap = append(faceMap, r.faceMap[f])
		}
	}
	r.faceMap = faceMap

	child := topology.QuadTopology{VertexCount: childCount, Faces: faces}
	childAdj, err := topology.BuildAdjacency(child)
	if err != nil {
		return level{}, err
	}

	return level{topo: child, adj: childAdj, stencils: b.Build()}, nil
}

// buildLimitStencils evaluates limit masks at every deepest-level vertex
// and composes them down to control vertices.
func (r *Refiner) buildLimitStencils() *[3]packed.Lists[stencil.WeightedIndex] {
	last := r.levels[len(r.levels)-1]
	n := last.topo.VertexCount
	hint := last.stencils.Count() * 2

	var builders [3]*packed.Builder[stencil.WeightedIndex]
	for k := range builders {
		builders[k] = packed.NewBuilder[stencil.WeightedIndex](n, hint)
	}
	emit := func(idx int, w [3]float64) {
		for k := range builders {
			builders[k].Add(stencil.WeightedIndex{Index: idx, Weight: float32(w[k])})
		}
	}

	var mask []maskEntry
	for v := 0; v < n; v++ {
		mask = limitMask(mask[:0], last.adj.VertexRing(v), r.opts.Boundary)
		r.compose(last.stencils, mask, emit)
		for k := range builders {
			builders[k].EndList()
		}
	}

	var out [3]packed.Lists[stencil.WeightedIndex]
	for k := range builders {
		out[k] = builders[k].Build()
	}
	return &out
}
