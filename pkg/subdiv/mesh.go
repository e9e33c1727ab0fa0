// Package subdiv builds subdivision meshes: refined quad topology plus one
// merged position/du/dv stencil per refined vertex over the control
// vertices, cheap to re-evaluate whenever control positions change.
package subdiv

import (
	"errors"
	"fmt"

	"github.com/Faultbox/figure-subdiv/internal/osd"
	"github.com/Faultbox/figure-subdiv/pkg/packed"
	"github.com/Faultbox/figure-subdiv/pkg/stencil"
	"github.com/Faultbox/figure-subdiv/pkg/topology"
)

// Errors returned by this package.
var (
	ErrInvalidConfiguration = errors.New("invalid refinement configuration")
	ErrInvalidMesh          = errors.New("invalid subdivision mesh")
	ErrControlCountMismatch = errors.New("control position count does not match mesh")

	ErrInvalidLevel     = osd.ErrInvalidLevel
	ErrRefinementClosed = osd.ErrClosed
)

// SubdivisionMesh is a refined topology with one stencil per refined
// vertex. Stencil indices refer to control vertices in
// [0, ControlVertexCount). A mesh is immutable once built.
type SubdivisionMesh struct {
	ControlVertexCount int
	Topology           topology.QuadTopology
	Stencils           packed.Lists[stencil.WeightedIndexWithDerivatives]
}

// EmptyMesh has no control vertices, no topology and no stencils. It is
// the identity for CombineMeshes.
var EmptyMesh = SubdivisionMesh{
	Topology: topology.Empty,
	Stencils: packed.Pack[stencil.WeightedIndexWithDerivatives](nil),
}

// VertexCount returns the number of refined vertices.
func (m SubdivisionMesh) VertexCount() int {
	return m.Topology.VertexCount
}

// FaceCount returns the number of refined faces.
func (m SubdivisionMesh) FaceCount() int {
	return len(m.Topology.Faces)
}

// Validate checks the topology, that there is exactly one stencil per
// refined vertex and that every stencil index is a control vertex.
func (m SubdivisionMesh) Validate() error {
	if m.ControlVertexCount < 0 {
		return fmt.Errorf("%w: negative control vertex count %d", ErrInvalidMesh, m.ControlVertexCount)
	}
	if err := m.Topology.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMesh, err)
	}
	if m.Stencils.Len() != m.Topology.VertexCount {
		return fmt.Errorf("%w: %d stencils for %d refined vertices",
			ErrInvalidMesh, m.Stencils.Len(), m.Topology.VertexCount)
	}
	for v := 0; v < m.Stencils.Len(); v++ {
		for _, w := range m.Stencils.At(v) {
			if w.Index < 0 || w.Index >= m.ControlVertexCount {
				return fmt.Errorf("%w: vertex %d references control vertex %d of %d",
					ErrInvalidMesh, v, w.Index, m.ControlVertexCount)
			}
		}
	}
	return nil
}

// Equal reports whether two meshes have the same content.
func (m SubdivisionMesh) Equal(o SubdivisionMesh) bool {
	return m.ControlVertexCount == o.ControlVertexCount &&
		topology.Equal(m.Topology, o.Topology) &&
		packed.Equal(m.Stencils, o.Stencils)
}

// CombineMeshes concatenates b after a as if both had been refined from a
// single control mesh holding a's control vertices followed by b's.
// b's stencil indices shift by a.ControlVertexCount and its refined vertex
// indices by a's refined vertex count. Neither input is aliased.
func CombineMeshes(a, b SubdivisionMesh) SubdivisionMesh {
	offset := a.ControlVertexCount
	return SubdivisionMesh{
		ControlVertexCount: a.ControlVertexCount + b.ControlVertexCount,
		Topology:           topology.Combine(a.Topology, b.Topology),
		Stencils: packed.Concat(a.Stencils, b.Stencils,
			func(w stencil.WeightedIndexWithDerivatives) stencil.WeightedIndexWithDerivatives {
				w.Index += offset
				return w
			}),
	}
}
