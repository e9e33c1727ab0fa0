// Package formats provides readers and writers for mesh file formats.
// OBJ (Wavefront) support is limited to quad-only polygon meshes.
package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/figure-subdiv/pkg/topology"
)

// OBJ format errors.
var (
	ErrNonQuadFace      = errors.New("face is not a quad")
	ErrInvalidFaceIndex = errors.New("invalid OBJ face index")
	ErrInvalidVertex    = errors.New("invalid OBJ vertex")
)

// DefaultGroup names faces that appear before any g/o/usemtl statement.
const DefaultGroup = "default"

// OBJ is a parsed quad mesh.
type OBJ struct {
	Positions  []r3.Vec
	Faces      []topology.Quad
	FaceGroups []int    // index into Groups for every face
	Groups     []string // surface names in order of first use
}

// Topology returns the control topology of the mesh.
func (o *OBJ) Topology() topology.QuadTopology {
	return topology.QuadTopology{
		VertexCount: len(o.Positions),
		Faces:       append([]topology.Quad(nil), o.Faces...),
	}
}

// SurfaceMap returns the surface (group) index of every face.
func (o *OBJ) SurfaceMap() []int {
	return append([]int(nil), o.FaceGroups...)
}

// ParseOBJ parses OBJ data. Supported statements are v, f, g, o and
// usemtl; the rest (vt, vn, s, mtllib, ...) is ignored. Face corners may
// be written as i, i/t, i//n or i/t/n, with negative indices counting back
// from the latest vertex.
func ParseOBJ(data []byte) (*OBJ, error) {
	obj := &OBJ{}
	groupIndex := make(map[string]int)
	current := -1

	useGroup := func(name string) {
		idx, ok := groupIndex[name]
		if !ok {
			idx = len(obj.Groups)
			groupIndex[name] = idx
			obj.Groups = append(obj.Groups, name)
		}
		current = idx
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			p, err := parseVertex(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			obj.Positions = append(obj.Positions, p)

		case "f":
			if len(fields) != 5 {
				return nil, fmt.Errorf("line %d: %w: %d corners", lineNo, ErrNonQuadFace, len(fields)-1)
			}
			var q topology.Quad
			for c := 0; c < 4; c++ {
				idx, err := parseFaceIndex(fields[c+1], len(obj.Positions))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				q[c] = idx
			}
			if current < 0 {
				useGroup(DefaultGroup)
			}
			obj.Faces = append(obj.Faces, q)
			obj.FaceGroups = append(obj.FaceGroups, current)

		case "g", "o", "usemtl":
			name := DefaultGroup
			if len(fields) > 1 {
				name = strings.Join(fields[1:], " ")
			}
			useGroup(name)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}

	return obj, nil
}

// ParseOBJFile parses an OBJ file from disk.
func ParseOBJFile(path string) (*OBJ, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading OBJ file: %w", err)
	}
	return ParseOBJ(data)
}

func parseVertex(fields []string) (r3.Vec, error) {
	if len(fields) < 3 {
		return r3.Vec{}, fmt.Errorf("%w: %d coordinates", ErrInvalidVertex, len(fields))
	}
	var xyz [3]float64
	for i := range xyz {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("%w: %q", ErrInvalidVertex, fields[i])
		}
		xyz[i] = f
	}
	return r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

// parseFaceIndex resolves the position part of a face corner to a
// zero-based vertex index.
func parseFaceIndex(corner string, vertexCount int) (int, error) {
	ref, _, _ := strings.Cut(corner, "/")
	n, err := strconv.Atoi(ref)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFaceIndex, corner)
	}

	idx := n - 1
	if n < 0 {
		idx = vertexCount + n
	}
	if idx < 0 || idx >= vertexCount {
		return 0, fmt.Errorf("%w: %q with %d vertices", ErrInvalidFaceIndex, corner, vertexCount)
	}
	return idx, nil
}

// OBJWriteOptions controls WriteOBJ output.
type OBJWriteOptions struct {
	// Normals writes one vn per vertex and references them from faces.
	Normals []r3.Vec
	// FaceGroups and Groups, when set, emit a g statement whenever the
	// group changes between consecutive faces.
	FaceGroups []int
	Groups     []string
}

// WriteOBJ writes positions and quad faces as OBJ.
func WriteOBJ(w io.Writer, positions []r3.Vec, faces []topology.Quad, opts OBJWriteOptions) error {
	if opts.Normals != nil && len(opts.Normals) != len(positions) {
		return fmt.Errorf("%d normals for %d positions", len(opts.Normals), len(positions))
	}
	if opts.FaceGroups != nil && len(opts.FaceGroups) != len(faces) {
		return fmt.Errorf("%d face groups for %d faces", len(opts.FaceGroups), len(faces))
	}

	bw := bufio.NewWriter(w)
	for _, p := range positions {
		fmt.Fprintf(bw, "v %s %s %s\n", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	}
	for _, n := range opts.Normals {
		fmt.Fprintf(bw, "vn %s %s %s\n", formatFloat(n.X), formatFloat(n.Y), formatFloat(n.Z))
	}

	lastGroup := -1
	for f, q := range faces {
		if opts.FaceGroups != nil && opts.FaceGroups[f] != lastGroup {
			lastGroup = opts.FaceGroups[f]
			name := DefaultGroup
			if lastGroup >= 0 && lastGroup < len(opts.Groups) {
				name = opts.Groups[lastGroup]
			}
			fmt.Fprintf(bw, "g %s\n", name)
		}

		bw.WriteString("f")
		for _, v := range q {
			if opts.Normals != nil {
				fmt.Fprintf(bw, " %d//%d", v+1, v+1)
			} else {
				fmt.Fprintf(bw, " %d", v+1)
			}
		}
		bw.WriteString("\n")
	}

	return bw.Flush()
}

// WriteOBJFile writes an OBJ file to disk.
func WriteOBJFile(path string, positions []r3.Vec, faces []topology.Quad, opts OBJWriteOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating OBJ file: %w", err)
	}
	if err := WriteOBJ(f, positions, faces, opts); err != nil {
		f.Close()
		return fmt.Errorf("writing OBJ file: %w", err)
	}
	return f.Close()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
