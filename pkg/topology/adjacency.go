package topology

import (
	"errors"
	"fmt"

	"github.com/Faultbox/figure-subdiv/pkg/packed"
)

// Adjacency errors.
var (
	ErrNonManifoldEdge     = errors.New("edge shared by more than two faces")
	ErrInconsistentWinding = errors.New("adjacent faces have inconsistent winding")
)

// NoFace marks a missing neighbour across a boundary edge.
const NoFace = -1

// Edge is an undirected edge. V0 -> V1 is the direction in which the
// first face using the edge traverses it.
type Edge struct {
	V0, V1 int
}

// Incidence is one face corner touching a vertex.
type Incidence struct {
	Face   int
	Corner int
}

// Adjacency holds the derived edge and vertex connectivity of a topology.
type Adjacency struct {
	Topology QuadTopology

	// Edges in order of first appearance when scanning faces and corners.
	Edges []Edge
	// EdgeFaces[e] holds the one or two faces using edge e; the second
	// slot is NoFace on boundary edges.
	EdgeFaces [][2]int
	// FaceEdges[f][c] is the edge from corner c to corner c+1 of face f.
	FaceEdges [][4]int
	// VertexFaces lists the face corners incident to each vertex.
	VertexFaces packed.Lists[Incidence]
}

// BuildAdjacency derives edges and vertex incidence from t. It rejects
// non-manifold edges and neighbouring faces wound in opposite directions.
func BuildAdjacency(t QuadTopology) (*Adjacency, error) {
	adj := &Adjacency{
		Topology:  t,
		Edges:     make([]Edge, 0, 2*len(t.Faces)+4),
		EdgeFaces: make([][2]int, 0, 2*len(t.Faces)+4),
		FaceEdges: make([][4]int, len(t.Faces)),
	}

	lookup := make(map[[2]int]int, 2*len(t.Faces))
	for f, q := range t.Faces {
		for c := 0; c < 4; c++ {
			v0, v1 := q[c], q[(c+1)%4]
			key := [2]int{min(v0, v1), max(v0, v1)}

			e, ok := lookup[key]
			if !ok {
				e = len(adj.Edges)
				lookup[key] = e
				adj.Edges = append(adj.Edges, Edge{V0: v0, V1: v1})
				adj.EdgeFaces = append(adj.EdgeFaces, [2]int{f, NoFace})
				adj.FaceEdges[f][c] = e
				continue
			}

			if adj.EdgeFaces[e][1] != NoFace {
				return nil, fmt.Errorf("%w: edge %d-%d", ErrNonManifoldEdge, key[0], key[1])
			}
			if adj.Edges[e].V0 == v0 {
				return nil, fmt.Errorf("%w: faces %d and %d both traverse %d->%d",
					ErrInconsistentWinding, adj.EdgeFaces[e][0], f, v0, v1)
			}
			adj.EdgeFaces[e][1] = f
			adj.FaceEdges[f][c] = e
		}
	}

	incident := make([][]Incidence, t.VertexCount)
	for f, q := range t.Faces {
		for c, v := range q {
			incident[v] = append(incident[v], Incidence{Face: f, Corner: c})
		}
	}
	adj.VertexFaces = packed.Pack(incident)

	return adj, nil
}

// IsBoundaryEdge reports whether edge e has only one face.
func (a *Adjacency) IsBoundaryEdge(e int) bool {
	return a.EdgeFaces[e][1] == NoFace
}

// OtherFace returns the face across edge e from f, or NoFace.
func (a *Adjacency) OtherFace(e, f int) int {
	ef := a.EdgeFaces[e]
	if ef[0] == f {
		return ef[1]
	}
	return ef[0]
}

// Ring is the ordered fan of faces around a vertex, counter-clockwise
// with respect to face winding.
//
// For fan position i, Next(i) is the vertex following the centre in face
// i and Prev(i) the vertex preceding it; in a closed fan Prev(i) equals
// Next(i+1). Opposite(i) is the diagonal corner.
type Ring struct {
	Vertex  int
	Faces   []Incidence
	quads   []Quad
	Closed  bool // fan returns to its first face
	Partial bool // more incident faces exist than the fan reached
}

// Valence returns the number of faces in the fan.
func (r Ring) Valence() int {
	return len(r.Faces)
}

// Next returns the vertex after the centre in fan face i.
func (r Ring) Next(i int) int {
	return r.quads[i][(r.Faces[i].Corner+1)%4]
}

// Opposite returns the vertex diagonal to the centre in fan face i.
func (r Ring) Opposite(i int) int {
	return r.quads[i][(r.Faces[i].Corner+2)%4]
}

// Prev returns the vertex before the centre in fan face i.
func (r Ring) Prev(i int) int {
	return r.quads[i][(r.Faces[i].Corner+3)%4]
}

// EdgeNeighbors returns the vertices joined to the centre by an edge of
// the fan, in fan order. A closed fan of valence n yields n neighbours;
// an open fan yields n+1, first and last being the boundary neighbours.
func (r Ring) EdgeNeighbors() []int {
	n := len(r.Faces)
	if n == 0 {
		return nil
	}
	out := make([]int, 0, n+1)
	for i := 0; i < n; i++ {
		out = append(out, r.Next(i))
	}
	if !r.Closed {
		out = append(out, r.Prev(n-1))
	}
	return out
}

// VertexRing walks the faces around v. Open fans start at the face whose
// leading edge is a boundary; when v joins several fans (a "bowtie") the
// fan through the lowest-numbered starting face is returned and Partial
// is set.
func (a *Adjacency) VertexRing(v int) Ring {
	incident := a.VertexFaces.At(v)
	ring := Ring{Vertex: v}
	if len(incident) == 0 {
		return ring
	}

	start := incident[0]
	open := false
	for _, inc := range incident {
		if a.IsBoundaryEdge(a.FaceEdges[inc.Face][inc.Corner]) {
			start = inc
			open = true
			break
		}
	}

	faces := a.Topology.Faces
	cur := start
	for {
		ring.Faces = append(ring.Faces, cur)
		ring.quads = append(ring.quads, faces[cur.Face])
		if len(ring.Faces) > len(incident) {
			// Only reachable on inputs BuildAdjacency would reject.
			break
		}

		trailing := a.FaceEdges[cur.Face][(cur.Corner+3)%4]
		nf := a.OtherFace(trailing, cur.Face)
		if nf == NoFace {
			break
		}
		if nf == start.Face {
			ring.Closed = !open
			break
		}
		cur = Incidence{Face: nf, Corner: cornerOf(faces[nf], v)}
	}

	ring.Partial = len(ring.Faces) < len(incident)
	return ring
}

func cornerOf(q Quad, v int) int {
	for c := range q {
		if q[c] == v {
			return c
		}
	}
	return -1
}
