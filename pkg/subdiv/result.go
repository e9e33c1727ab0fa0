package subdiv

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/figure-subdiv/pkg/stencil"
	"github.com/Faultbox/figure-subdiv/pkg/topology"
)

// RefinementResult is a subdivision mesh plus, for every refined face, the
// control face it descends from. Results are immutable and own their slices.
type RefinementResult struct {
	Mesh           SubdivisionMesh
	ControlFaceMap []int
}

// Empty is the result of refining an empty control mesh.
var Empty = RefinementResult{
	Mesh:           EmptyMesh,
	ControlFaceMap: []int{},
}

// Equal reports whether two results have the same content.
func (r RefinementResult) Equal(o RefinementResult) bool {
	if !r.Mesh.Equal(o.Mesh) || len(r.ControlFaceMap) != len(o.ControlFaceMap) {
		return false
	}
	for i := range r.ControlFaceMap {
		if r.ControlFaceMap[i] != o.ControlFaceMap[i] {
			return false
		}
	}
	return true
}

// Validate checks the mesh and that the face map covers every refined face.
func (r RefinementResult) Validate() error {
	if err := r.Mesh.Validate(); err != nil {
		return err
	}
	if len(r.ControlFaceMap) != r.Mesh.FaceCount() {
		return fmt.Errorf("%w: face map has %d entries for %d faces",
			ErrInvalidMesh, len(r.ControlFaceMap), r.Mesh.FaceCount())
	}
	return nil
}

// RefinedSurfaceMap maps a per-control-face value (a material or surface
// id, say) onto the refined faces through ControlFaceMap.
func (r RefinementResult) RefinedSurfaceMap(controlSurfaceMap []int) ([]int, error) {
	out := make([]int, len(r.ControlFaceMap))
	for f, cf := range r.ControlFaceMap {
		if cf < 0 || cf >= len(controlSurfaceMap) {
			return nil, fmt.Errorf("refined face %d maps to control face %d, surface map has %d entries",
				f, cf, len(controlSurfaceMap))
		}
		out[f] = controlSurfaceMap[cf]
	}
	return out, nil
}

// Refiner builds RefinementResults. The zero value is ready to use: it
// logs nothing and keeps boundary corners fixed.
type Refiner struct {
	Logger   *zap.Logger
	Boundary BoundaryInterpolation
}

func (rf Refiner) logger() *zap.Logger {
	if rf.Logger == nil {
		return zap.NewNop()
	}
	return rf.Logger
}

// Make refines ctrl with the zero Refiner.
func Make(ctrl topology.QuadTopology, controlSurfaceMap []int, level int, derivativesOnly bool) (RefinementResult, error) {
	return Refiner{}.Make(ctrl, controlSurfaceMap, level, derivativesOnly)
}

// Make refines ctrl level times and merges the limit position, du and dv
// stencils into one SubdivisionMesh.
//
// An empty control topology (no faces, no vertices) yields Empty without
// running the evaluator. With derivativesOnly the mesh keeps the control
// positions unchanged (identity position stencils) while still carrying
// the evaluator's du/dv stencils; it is only valid at level 0.
//
// controlSurfaceMap is accepted for the caller's bookkeeping and is not
// consulted; see RefinedSurfaceMap.
func (rf Refiner) Make(ctrl topology.QuadTopology, controlSurfaceMap []int, level int, derivativesOnly bool) (RefinementResult, error) {
	log := rf.logger()

	if ctrl.IsEmpty() {
		log.Debug("empty control topology, skipping refinement")
		return Empty, nil
	}
	if derivativesOnly && level != 0 {
		return RefinementResult{}, fmt.Errorf(
			"%w: derivatives-only mode can only be used at refinement level 0 (got %d)",
			ErrInvalidConfiguration, level)
	}

	start := time.Now()

	var data refinedData
	err := withRefinement(ctrl, level, rf.Boundary, func(r *Refinement) error {
		var err error
		data, err = extract(r)
		return err
	})
	if err != nil {
		return RefinementResult{}, fmt.Errorf("refining: %w", err)
	}

	positions := data.limit
	if derivativesOnly {
		positions, err = stencil.IdentityOver(data.du)
		if err != nil {
			return RefinementResult{}, fmt.Errorf("identity stencils: %w", err)
		}
	}

	merged, err := stencil.Merge(positions, data.du, data.dv)
	if err != nil {
		return RefinementResult{}, fmt.Errorf("merging stencils: %w", err)
	}

	result := RefinementResult{
		Mesh: SubdivisionMesh{
			ControlVertexCount: ctrl.VertexCount,
			Topology:           data.topo,
			Stencils:           merged,
		},
		ControlFaceMap: data.faceMap,
	}
	if err := result.Validate(); err != nil {
		return RefinementResult{}, err
	}

	log.Debug("refined control mesh",
		zap.Int("control_vertices", ctrl.VertexCount),
		zap.Int("control_faces", len(ctrl.Faces)),
		zap.Int("level", level),
		zap.Bool("derivatives_only", derivativesOnly),
		zap.Int("refined_vertices", result.Mesh.VertexCount()),
		zap.Int("refined_faces", result.Mesh.FaceCount()),
		zap.Int("stencil_entries", merged.Count()),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// Combine joins two independently refined results into one. The mesh is
// CombineMeshes(a.Mesh, b.Mesh); the face map is a's followed by b's,
// unrenumbered, so each half still refers to its own control topology.
func Combine(a, b RefinementResult) RefinementResult {
	faceMap := make([]int, 0, len(a.ControlFaceMap)+len(b.ControlFaceMap))
	faceMap = append(faceMap, a.ControlFaceMap...)
	faceMap = append(faceMap, b.ControlFaceMap...)

	return RefinementResult{
		Mesh:           CombineMeshes(a.Mesh, b.Mesh),
		ControlFaceMap: faceMap,
	}
}

// CombineAll folds Combine over results from left to right. With no
// arguments it returns Empty.
func CombineAll(results ...RefinementResult) RefinementResult {
	acc := Empty
	for _, r := range results {
		acc = Combine(acc, r)
	}
	return acc
}
