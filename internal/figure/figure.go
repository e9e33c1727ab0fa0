// Package figure assembles multi-part figures: every part is a quad control
// mesh refined on its own, and the parts are joined into one subdivision
// mesh that is evaluated against the concatenated control positions.
package figure

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/figure-subdiv/internal/assets"
	"github.com/Faultbox/figure-subdiv/internal/config"
	"github.com/Faultbox/figure-subdiv/pkg/formats"
	"github.com/Faultbox/figure-subdiv/pkg/subdiv"
	"github.com/Faultbox/figure-subdiv/pkg/topology"
)

// Pipeline errors.
var (
	ErrNoParts       = errors.New("figure has no parts")
	ErrBadSurfaceMap = errors.New("invalid part surface map")
)

// Part is one control mesh of a figure.
type Part struct {
	Name       string
	Control    []r3.Vec
	Topology   topology.QuadTopology
	Groups     []string // surface names local to the part
	SurfaceMap []int    // per control face, index into Groups
}

// PartFromOBJ converts a parsed OBJ into a Part.
func PartFromOBJ(name string, obj *formats.OBJ) Part {
	return Part{
		Name:       name,
		Control:    append([]r3.Vec(nil), obj.Positions...),
		Topology:   obj.Topology(),
		Groups:     append([]string(nil), obj.Groups...),
		SurfaceMap: obj.SurfaceMap(),
	}
}

// LoadParts parses every path as an OBJ part named after its file.
func LoadParts(paths []string) ([]Part, error) {
	parts := make([]Part, 0, len(paths))
	for _, path := range paths {
		obj, err := formats.ParseOBJFile(path)
		if err != nil {
			return nil, fmt.Errorf("part %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		parts = append(parts, PartFromOBJ(name, obj))
	}
	return parts, nil
}

// PartSpan locates a part inside the combined figure.
type PartSpan struct {
	Name          string
	ControlOffset int
	ControlCount  int
	VertexOffset  int // first refined vertex
	VertexCount   int
	FaceOffset    int // first refined face
	FaceCount     int
}

// Figure is a refined multi-part figure.
type Figure struct {
	Parts    []PartSpan
	Control  []r3.Vec
	Result   subdiv.RefinementResult
	Surfaces []string // global surface names, shared by name across parts
	// RefinedSurfaces holds the index into Surfaces of every refined face.
	RefinedSurfaces []int
}

// Builder refines parts into a Figure.
type Builder struct {
	Refiner         subdiv.Refiner
	Level           int
	DerivativesOnly bool
	Workers         int // parts refined at once, <= 0 means unbounded
	Logger          *zap.Logger
	// Cache, when set, shares results between parts with equal topology.
	Cache *assets.Cache
}

// NewBuilder configures a Builder from cfg.
func NewBuilder(cfg *config.Config, log *zap.Logger) (Builder, error) {
	boundary, err := subdiv.ParseBoundary(cfg.Refine.Boundary)
	if err != nil {
		return Builder{}, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return Builder{
		Refiner:         subdiv.Refiner{Logger: log.Named("subdiv"), Boundary: boundary},
		Level:           cfg.Refine.Level,
		DerivativesOnly: cfg.Refine.DerivativesOnly,
		Workers:         cfg.WorkerLimit(),
		Logger:          log,
		Cache:           assets.NewCache(),
	}, nil
}

func (b Builder) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

// Build refines every part concurrently and combines the results in part
// order. A part's refinement runs to completion once started; ctx is
// checked before each part begins.
func (b Builder) Build(ctx context.Context, parts []Part) (*Figure, error) {
	if len(parts) == 0 {
		return nil, ErrNoParts
	}
	log := b.logger()

	for i, p := range parts {
		if len(p.Control) != p.Topology.VertexCount {
			return nil, fmt.Errorf("part %d (%s): %w: %d positions for %d vertices",
				i, p.Name, subdiv.ErrControlCountMismatch, len(p.Control), p.Topology.VertexCount)
		}
		if err := checkSurfaces(p); err != nil {
			return nil, fmt.Errorf("part %d (%s): %w", i, p.Name, err)
		}
	}

	start := time.Now()
	results := make([]subdiv.RefinementResult, len(parts))

	g, ctx := errgroup.WithContext(ctx)
	if b.Workers > 0 {
		g.SetLimit(b.Workers)
	}
	for i := range parts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := parts[i]
			partStart := time.Now()
			res, cached, err := b.refine(p)
			if err != nil {
				return fmt.Errorf("part %d (%s): %w", i, p.Name, err)
			}
			results[i] = res
			log.Debug("refined part",
				zap.String("part", p.Name),
				zap.Bool("cached", cached),
				zap.Int("refined_faces", res.Mesh.FaceCount()),
				zap.Duration("elapsed", time.Since(partStart)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fig, err := assemble(parts, results)
	if err != nil {
		return nil, err
	}
	log.Info("figure built",
		zap.Int("parts", len(parts)),
		zap.Int("level", b.Level),
		zap.Int("control_vertices", len(fig.Control)),
		zap.Int("refined_vertices", fig.Result.Mesh.VertexCount()),
		zap.Int("refined_faces", fig.Result.Mesh.FaceCount()),
		zap.Duration("elapsed", time.Since(start)))
	return fig, nil
}

func (b Builder) refine(p Part) (subdiv.RefinementResult, bool, error) {
	if b.Cache == nil {
		res, err := b.Refiner.Make(p.Topology, p.SurfaceMap, b.Level, b.DerivativesOnly)
		return res, false, err
	}

	key := assets.KeyFor(p.Topology, b.Level, b.Refiner.Boundary, b.DerivativesOnly)
	if res, ok := b.Cache.Get(key, p.Topology); ok {
		return res, true, nil
	}
	res, err := b.Refiner.Make(p.Topology, p.SurfaceMap, b.Level, b.DerivativesOnly)
	if err != nil {
		return subdiv.RefinementResult{}, false, err
	}
	b.Cache.Set(key, p.Topology, res)
	return res, false, nil
}

// checkSurfaces accepts a part with no surface map at all, or one entry per
// control face indexing Groups.
func checkSurfaces(p Part) error {
	if len(p.SurfaceMap) == 0 {
		return nil
	}
	if len(p.SurfaceMap) != p.Topology.FaceCount() {
		return fmt.Errorf("%w: %d surface entries for %d faces",
			ErrBadSurfaceMap, len(p.SurfaceMap), p.Topology.FaceCount())
	}
	for f, g := range p.SurfaceMap {
		if g < 0 || g >= len(p.Groups) {
			return fmt.Errorf("%w: face %d uses group %d of %d", ErrBadSurfaceMap, f, g, len(p.Groups))
		}
	}
	return nil
}

// assemble joins refined parts in order. Surface names are unified across
// parts so equal names share one global index; faces of a part without a
// surface map get -1.
func assemble(parts []Part, results []subdiv.RefinementResult) (*Figure, error) {
	fig := &Figure{
		Parts:  make([]PartSpan, len(parts)),
		Result: subdiv.CombineAll(results...),
	}
	surfaceIndex := make(map[string]int)

	var ctrlOff, vertOff, faceOff int
	for i, p := range parts {
		res := results[i]
		fig.Parts[i] = PartSpan{
			Name:          p.Name,
			ControlOffset: ctrlOff,
			ControlCount:  len(p.Control),
			VertexOffset:  vertOff,
			VertexCount:   res.Mesh.VertexCount(),
			FaceOffset:    faceOff,
			FaceCount:     res.Mesh.FaceCount(),
		}
		ctrlOff += len(p.Control)
		vertOff += res.Mesh.VertexCount()
		faceOff += res.Mesh.FaceCount()

		fig.Control = append(fig.Control, p.Control...)

		global := make([]int, len(p.Groups))
		for g, name := range p.Groups {
			idx, ok := surfaceIndex[name]
			if !ok {
				idx = len(fig.Surfaces)
				surfaceIndex[name] = idx
				fig.Surfaces = append(fig.Surfaces, name)
			}
			global[g] = idx
		}
		if len(p.SurfaceMap) == 0 {
			for range res.ControlFaceMap {
				fig.RefinedSurfaces = append(fig.RefinedSurfaces, -1)
			}
			continue
		}
		local, err := res.RefinedSurfaceMap(p.SurfaceMap)
		if err != nil {
			return nil, fmt.Errorf("part %d (%s): %w", i, p.Name, err)
		}
		for _, g := range local {
			fig.RefinedSurfaces = append(fig.RefinedSurfaces, global[g])
		}
	}
	return fig, nil
}

// Evaluate computes limit positions and tangents for the figure's current
// control positions.
func (f *Figure) Evaluate() (subdiv.Frame, error) {
	return f.Result.Mesh.Evaluate(f.Control)
}

// WriteOBJ writes the evaluated frame as an OBJ file with one group per
// surface run.
func (f *Figure) WriteOBJ(path string, frame subdiv.Frame, withNormals bool) error {
	opts := formats.OBJWriteOptions{
		FaceGroups: f.RefinedSurfaces,
		Groups:     f.Surfaces,
	}
	if withNormals {
		opts.Normals = frame.Normals(nil)
	}
	return formats.WriteOBJFile(path, frame.Positions, f.Result.Mesh.Topology.Faces, opts)
}
