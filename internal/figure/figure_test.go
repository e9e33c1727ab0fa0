package figure

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/figure-subdiv/internal/assets"
	"github.com/Faultbox/figure-subdiv/internal/config"
	"github.com/Faultbox/figure-subdiv/pkg/formats"
	"github.com/Faultbox/figure-subdiv/pkg/subdiv"
	"github.com/Faultbox/figure-subdiv/pkg/topology"
)

func cubePart(name string, offset r3.Vec) Part {
	ctrl := make([]r3.Vec, 8)
	for i := range ctrl {
		ctrl[i] = r3.Add(offset, r3.Vec{X: float64(i & 1), Y: float64((i >> 1) & 1), Z: float64((i >> 2) & 1)})
	}
	return Part{
		Name:       name,
		Control:    ctrl,
		Topology:   topology.Cube(),
		Groups:     []string{"skin", "sole"},
		SurfaceMap: []int{1, 0, 0, 0, 0, 0},
	}
}

func quadPart(name string) Part {
	return Part{
		Name:       name,
		Control:    []r3.Vec{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}},
		Topology:   topology.Grid(1, 1),
		Groups:     []string{"skin"},
		SurfaceMap: []int{0},
	}
}

func TestBuild(t *testing.T) {
	parts := []Part{cubePart("body", r3.Vec{}), quadPart("cape"), cubePart("head", r3.Vec{Z: 3})}

	fig, err := Builder{Level: 1, Workers: 2}.Build(context.Background(), parts)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	wantSpans := []PartSpan{
		{Name: "body", ControlOffset: 0, ControlCount: 8, VertexOffset: 0, VertexCount: 26, FaceOffset: 0, FaceCount: 24},
		{Name: "cape", ControlOffset: 8, ControlCount: 4, VertexOffset: 26, VertexCount: 9, FaceOffset: 24, FaceCount: 4},
		{Name: "head", ControlOffset: 12, ControlCount: 8, VertexOffset: 35, VertexCount: 26, FaceOffset: 28, FaceCount: 24},
	}
	for i, want := range wantSpans {
		if fig.Parts[i] != want {
			t.Errorf("part %d span = %+v, want %+v", i, fig.Parts[i], want)
		}
	}

	if len(fig.Control) != 20 || fig.Result.Mesh.ControlVertexCount != 20 {
		t.Errorf("control = %d / %d, want 20", len(fig.Control), fig.Result.Mesh.ControlVertexCount)
	}
	if err := fig.Result.Validate(); err != nil {
		t.Errorf("combined result invalid: %v", err)
	}

	if len(fig.Surfaces) != 2 || fig.Surfaces[0] != "skin" || fig.Surfaces[1] != "sole" {
		t.Errorf("surfaces = %v, want [skin sole]", fig.Surfaces)
	}
	if len(fig.RefinedSurfaces) != fig.Result.Mesh.FaceCount() {
		t.Fatalf("refined surfaces = %d, want %d", len(fig.RefinedSurfaces), fig.Result.Mesh.FaceCount())
	}
	// Refined faces 4p..4p+3 descend from control face p; the bottom face
	// of each cube is the sole.
	for f, s := range fig.RefinedSurfaces {
		want := 0
		if (f < 4) || (f >= 28 && f < 32) {
			want = 1
		}
		if s != want {
			t.Errorf("refined face %d surface = %d, want %d", f, s, want)
		}
	}
}

func TestBuildDeterministicAcrossWorkers(t *testing.T) {
	parts := []Part{cubePart("a", r3.Vec{}), quadPart("b"), cubePart("c", r3.Vec{X: 5}), quadPart("d")}

	serial, err := Builder{Level: 2, Workers: 1}.Build(context.Background(), parts)
	if err != nil {
		t.Fatal(err)
	}
	for _, workers := range []int{0, 2, 8} {
		fig, err := Builder{Level: 2, Workers: workers}.Build(context.Background(), parts)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if !fig.Result.Equal(serial.Result) {
			t.Errorf("workers=%d: result differs from serial build", workers)
		}
	}
}

func TestBuildMatchesCombine(t *testing.T) {
	a, b := cubePart("a", r3.Vec{}), quadPart("b")

	fig, err := Builder{Level: 1}.Build(context.Background(), []Part{a, b})
	if err != nil {
		t.Fatal(err)
	}

	ra, err := subdiv.Make(a.Topology, a.SurfaceMap, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	rb, err := subdiv.Make(b.Topology, b.SurfaceMap, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if !fig.Result.Equal(subdiv.Combine(ra, rb)) {
		t.Error("Build result differs from Combine of individually made parts")
	}
}

func TestBuildErrors(t *testing.T) {
	short := quadPart("short")
	short.Control = short.Control[:3]

	badMap := quadPart("bad map")
	badMap.SurfaceMap = []int{3}

	tests := []struct {
		name    string
		builder Builder
		parts   []Part
		wantErr error
	}{
		{"no parts", Builder{}, nil, ErrNoParts},
		{"control count", Builder{}, []Part{short}, subdiv.ErrControlCountMismatch},
		{"surface map", Builder{}, []Part{badMap}, ErrBadSurfaceMap},
		{"level", Builder{Level: 9}, []Part{quadPart("q")}, subdiv.ErrInvalidLevel},
		{"derivatives only", Builder{Level: 1, DerivativesOnly: true}, []Part{quadPart("q")}, subdiv.ErrInvalidConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fig, err := tt.builder.Build(context.Background(), tt.parts)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v, want %v", err, tt.wantErr)
			}
			if fig != nil {
				t.Error("Build() returned a figure alongside an error")
			}
		})
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Builder{Level: 1}.Build(ctx, []Part{quadPart("a"), quadPart("b")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Build() error = %v, want context.Canceled", err)
	}
}

func TestBuildEmptyPart(t *testing.T) {
	empty := Part{Name: "empty", Topology: topology.Empty}

	fig, err := Builder{Level: 1}.Build(context.Background(), []Part{empty, quadPart("q")})
	if err != nil {
		t.Fatal(err)
	}
	if fig.Parts[0].FaceCount != 0 || fig.Parts[1].FaceOffset != 0 {
		t.Errorf("spans = %+v", fig.Parts)
	}
	if fig.Result.Mesh.FaceCount() != 4 {
		t.Errorf("faces = %d, want 4", fig.Result.Mesh.FaceCount())
	}
}

func TestBuildSharesCachedTopology(t *testing.T) {
	cache := assets.NewCache()
	b := Builder{Level: 1, Workers: 1, Cache: cache}
	parts := []Part{cubePart("left", r3.Vec{}), cubePart("right", r3.Vec{X: 4}), quadPart("cape")}

	fig, err := b.Build(context.Background(), parts)
	if err != nil {
		t.Fatal(err)
	}
	hits, misses := cache.Stats()
	if hits != 1 || misses != 2 {
		t.Errorf("cache stats = %d hits, %d misses, want 1, 2", hits, misses)
	}

	uncached, err := Builder{Level: 1}.Build(context.Background(), parts)
	if err != nil {
		t.Fatal(err)
	}
	if !fig.Result.Equal(uncached.Result) {
		t.Error("cached build differs from uncached build")
	}

	// A different level must not reuse level-1 results.
	if _, err := (Builder{Level: 2, Workers: 1, Cache: cache}).Build(context.Background(), parts[:1]); err != nil {
		t.Fatal(err)
	}
	if cache.Len() != 3 {
		t.Errorf("cache entries = %d, want 3", cache.Len())
	}
}

func TestNewBuilder(t *testing.T) {
	cfg := config.Default()
	cfg.Refine.Level = 3
	cfg.Refine.Boundary = "edge-only"
	cfg.Refine.Workers = 4

	b, err := NewBuilder(cfg, nil)
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	if b.Level != 3 || b.Workers != 4 || b.Refiner.Boundary != subdiv.EdgeOnly {
		t.Errorf("builder = %+v", b)
	}
	if b.Cache == nil {
		t.Error("NewBuilder left the cache unset")
	}

	cfg.Refine.Boundary = "crease"
	if _, err := NewBuilder(cfg, nil); err == nil {
		t.Error("NewBuilder accepted an unknown boundary mode")
	}
}

func TestBuildLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	_, err := Builder{Level: 1, Logger: zap.New(core)}.Build(context.Background(), []Part{quadPart("q")})
	if err != nil {
		t.Fatal(err)
	}

	if n := logs.FilterMessage("refined part").Len(); n != 1 {
		t.Errorf("refined part entries = %d, want 1", n)
	}
	built := logs.FilterMessage("figure built").All()
	if len(built) != 1 {
		t.Fatalf("figure built entries = %d, want 1", len(built))
	}
	if got := built[0].ContextMap()["refined_faces"]; got != int64(4) {
		t.Errorf("refined_faces = %v, want 4", got)
	}
}

func TestEvaluateAndWriteOBJ(t *testing.T) {
	dir := t.TempDir()
	cubePath := filepath.Join(dir, "body.obj")
	quadPath := filepath.Join(dir, "cape.obj")

	body := cubePart("body", r3.Vec{})
	if err := formats.WriteOBJFile(cubePath, body.Control, body.Topology.Faces, formats.OBJWriteOptions{
		FaceGroups: body.SurfaceMap, Groups: body.Groups,
	}); err != nil {
		t.Fatal(err)
	}
	cape := quadPart("cape")
	if err := formats.WriteOBJFile(quadPath, cape.Control, cape.Topology.Faces, formats.OBJWriteOptions{}); err != nil {
		t.Fatal(err)
	}

	parts, err := LoadParts([]string{cubePath, quadPath})
	if err != nil {
		t.Fatalf("LoadParts() error = %v", err)
	}
	if parts[0].Name != "body" || parts[1].Name != "cape" {
		t.Errorf("part names = %q, %q", parts[0].Name, parts[1].Name)
	}

	fig, err := Builder{Level: 1}.Build(context.Background(), parts)
	if err != nil {
		t.Fatal(err)
	}
	frame, err := fig.Evaluate()
	if err != nil {
		t.Fatal(err)
	}
	if len(frame.Positions) != fig.Result.Mesh.VertexCount() {
		t.Fatalf("positions = %d, want %d", len(frame.Positions), fig.Result.Mesh.VertexCount())
	}

	out := filepath.Join(dir, "out.obj")
	if err := fig.WriteOBJ(out, frame, true); err != nil {
		t.Fatalf("WriteOBJ() error = %v", err)
	}

	got, err := formats.ParseOBJFile(out)
	if err != nil {
		t.Fatalf("re-parse error = %v", err)
	}
	if !topology.Equal(got.Topology(), fig.Result.Mesh.Topology) {
		t.Error("written topology differs from the figure")
	}
	// The cape's faces fall under the OBJ default group.
	wantGroups := map[string]bool{"sole": true, "skin": true, formats.DefaultGroup: true}
	for _, g := range got.Groups {
		if !wantGroups[g] {
			t.Errorf("unexpected group %q", g)
		}
	}

	if _, err := LoadParts([]string{filepath.Join(dir, "missing.obj")}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadParts(missing) error = %v, want os.ErrNotExist", err)
	}
}
