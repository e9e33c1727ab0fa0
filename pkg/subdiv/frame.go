package subdiv

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/figure-subdiv/pkg/stencil"
)

// Frame holds the limit positions and tangents of every refined vertex for
// one set of control positions. Reuse a Frame across EvaluateInto calls to
// avoid reallocating per frame.
type Frame struct {
	Positions []r3.Vec
	Du        []r3.Vec
	Dv        []r3.Vec
}

// Evaluate computes a new Frame from control positions indexed by control
// vertex.
func (m SubdivisionMesh) Evaluate(control []r3.Vec) (Frame, error) {
	var f Frame
	if err := m.EvaluateInto(&f, control); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// EvaluateInto recomputes f in place, reusing its slices when they are
// large enough.
func (m SubdivisionMesh) EvaluateInto(f *Frame, control []r3.Vec) error {
	if len(control) != m.ControlVertexCount {
		return fmt.Errorf("%w: got %d positions, mesh has %d control vertices",
			ErrControlCountMismatch, len(control), m.ControlVertexCount)
	}
	f.Positions, f.Du, f.Dv = stencil.Evaluate(m.Stencils, control, f.Positions, f.Du, f.Dv)
	return nil
}

// Normals returns unit du × dv per vertex, written into dst when it has
// enough capacity. Vertices with degenerate tangents get a zero normal.
func (f Frame) Normals(dst []r3.Vec) []r3.Vec {
	if cap(dst) < len(f.Du) {
		dst = make([]r3.Vec, len(f.Du))
	}
	dst = dst[:len(f.Du)]
	for i := range dst {
		n := r3.Cross(f.Du[i], f.Dv[i])
		if l := r3.Norm(n); l > 1e-12 {
			dst[i] = r3.Scale(1/l, n)
		} else {
			dst[i] = r3.Vec{}
		}
	}
	return dst
}
