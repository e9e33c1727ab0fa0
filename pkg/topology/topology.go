// Package topology provides quad mesh connectivity for control and refined meshes.
package topology

import (
	"errors"
	"fmt"
)

// Topology errors.
var (
	ErrNegativeVertexCount = errors.New("negative vertex count")
	ErrFaceIndexOutOfRange = errors.New("face vertex index out of range")
	ErrDegenerateFace      = errors.New("degenerate quad repeats a vertex")
)

// Quad is one face given as four vertex indices in winding order.
type Quad [4]int

// QuadTopology is the connectivity of a quad mesh. It is immutable once
// built; callers must not modify Faces.
type QuadTopology struct {
	VertexCount int
	Faces       []Quad
}

// Empty is the topology with no vertices and no faces.
var Empty = QuadTopology{}

// New validates faces against vertexCount and returns a topology that owns
// a copy of the face slice.
func New(vertexCount int, faces []Quad) (QuadTopology, error) {
	t := QuadTopology{
		VertexCount: vertexCount,
		Faces:       append([]Quad(nil), faces...),
	}
	if err := t.Validate(); err != nil {
		return QuadTopology{}, err
	}
	return t, nil
}

// Validate checks that every face index lies in [0, VertexCount) and that
// no quad repeats a vertex.
func (t QuadTopology) Validate() error {
	if t.VertexCount < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeVertexCount, t.VertexCount)
	}
	for f, q := range t.Faces {
		for c, v := range q {
			if v < 0 || v >= t.VertexCount {
				return fmt.Errorf("%w: face %d corner %d = %d (vertex count %d)",
					ErrFaceIndexOutOfRange, f, c, v, t.VertexCount)
			}
		}
		if q[0] == q[1] || q[0] == q[2] || q[0] == q[3] ||
			q[1] == q[2] || q[1] == q[3] || q[2] == q[3] {
			return fmt.Errorf("%w: face %d %v", ErrDegenerateFace, f, q)
		}
	}
	return nil
}

// IsEmpty reports whether the topology has neither vertices nor faces.
func (t QuadTopology) IsEmpty() bool {
	return t.VertexCount == 0 && len(t.Faces) == 0
}

// FaceCount returns the number of faces.
func (t QuadTopology) FaceCount() int {
	return len(t.Faces)
}

// Combine concatenates b after a, offsetting b's vertex indices by
// a.VertexCount. Neither input is aliased.
func Combine(a, b QuadTopology) QuadTopology {
	faces := make([]Quad, 0, len(a.Faces)+len(b.Faces))
	faces = append(faces, a.Faces...)
	for _, q := range b.Faces {
		faces = append(faces, Quad{
			q[0] + a.VertexCount,
			q[1] + a.VertexCount,
			q[2] + a.VertexCount,
			q[3] + a.VertexCount,
		})
	}
	return QuadTopology{
		VertexCount: a.VertexCount + b.VertexCount,
		Faces:       faces,
	}
}

// Equal reports whether a and b have the same vertex count and faces.
func Equal(a, b QuadTopology) bool {
	if a.VertexCount != b.VertexCount || len(a.Faces) != len(b.Faces) {
		return false
	}
	for i := range a.Faces {
		if a.Faces[i] != b.Faces[i] {
			return false
		}
	}
	return true
}

// Grid returns a w×h grid of quads over (w+1)×(h+1) vertices laid out
// row-major, wound counter-clockwise when x grows right and y grows up.
func Grid(w, h int) QuadTopology {
	faces := make([]Quad, 0, w*h)
	stride := w + 1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := y*stride + x
			faces = append(faces, Quad{v, v + 1, v + 1 + stride, v + stride})
		}
	}
	return QuadTopology{VertexCount: stride * (h + 1), Faces: faces}
}

// Cube returns a closed cube of 6 quads over 8 vertices with outward
// winding. Vertex i has coordinates (i&1, (i>>1)&1, (i>>2)&1).
func Cube() QuadTopology {
	return QuadTopology{
		VertexCount: 8,
		Faces: []Quad{
			{0, 2, 3, 1}, // z = 0
			{4, 5, 7, 6}, // z = 1
			{0, 1, 5, 4}, // y = 0
			{2, 6, 7, 3}, // y = 1
			{0, 4, 6, 2}, // x = 0
			{1, 3, 7, 5}, // x = 1
		},
	}
}
