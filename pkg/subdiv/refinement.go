package subdiv

import (
	"github.com/Faultbox/figure-subdiv/internal/osd"
	"github.com/Faultbox/figure-subdiv/pkg/packed"
	"github.com/Faultbox/figure-subdiv/pkg/stencil"
	"github.com/Faultbox/figure-subdiv/pkg/topology"
)

// BoundaryInterpolation selects how boundary corners are subdivided.
type BoundaryInterpolation = osd.BoundaryInterpolation

// Boundary interpolation modes.
const (
	EdgeAndCorner = osd.EdgeAndCorner
	EdgeOnly      = osd.EdgeOnly
)

// MaxLevel is the deepest supported refinement level.
const MaxLevel = osd.MaxLevel

// ParseBoundary converts a config name ("edge-and-corner", "edge-only")
// into a BoundaryInterpolation.
func ParseBoundary(s string) (BoundaryInterpolation, error) {
	return osd.ParseBoundary(s)
}

// Refinement is one refinement pass over a control topology. It holds the
// evaluator's level tables until Close; use it from a single goroutine and
// do not retain it past the scope that opened it.
type Refinement struct {
	ref *osd.Refiner
}

// NewRefinement refines ctrl uniformly level times. The caller must Close
// the returned Refinement.
func NewRefinement(ctrl topology.QuadTopology, level int, boundary BoundaryInterpolation) (*Refinement, error) {
	ref, err := osd.Refine(ctrl, level, osd.Options{Boundary: boundary})
	if err != nil {
		return nil, err
	}
	return &Refinement{ref: ref}, nil
}

// Stencils returns one stencil per refined vertex over control vertices.
func (r *Refinement) Stencils(kind stencil.Kind) (packed.Lists[stencil.WeightedIndex], error) {
	return r.ref.LimitStencils(kind)
}

// Topology returns the refined topology.
func (r *Refinement) Topology() (topology.QuadTopology, error) {
	return r.ref.Topology()
}

// FaceMap returns the control face of every refined face.
func (r *Refinement) FaceMap() ([]int, error) {
	return r.ref.FaceMap()
}

// Close releases the evaluator's storage. Later calls to the accessors
// return ErrRefinementClosed.
func (r *Refinement) Close() error {
	return r.ref.Close()
}

// refinedData is everything Make needs from a Refinement; it outlives the
// Refinement that produced it.
type refinedData struct {
	limit, du, dv packed.Lists[stencil.WeightedIndex]
	topo          topology.QuadTopology
	faceMap       []int
}

// withRefinement opens a Refinement, hands it to fn and closes it on every
// exit path, panics included.
func withRefinement(ctrl topology.QuadTopology, level int, boundary BoundaryInterpolation, fn func(*Refinement) error) error {
	r, err := NewRefinement(ctrl, level, boundary)
	if err != nil {
		return err
	}
	defer r.Close()
	return fn(r)
}

func extract(r *Refinement) (refinedData, error) {
	var d refinedData
	var err error
	if d.limit, err = r.Stencils(stencil.LimitStencils); err != nil {
		return d, err
	}
	if d.du, err = r.Stencils(stencil.LimitDuStencils); err != nil {
		return d, err
	}
	if d.dv, err = r.Stencils(stencil.LimitDvStencils); err != nil {
		return d, err
	}
	if d.topo, err = r.Topology(); err != nil {
		return d, err
	}
	if d.faceMap, err = r.FaceMap(); err != nil {
		return d, err
	}
	return d, nil
}
