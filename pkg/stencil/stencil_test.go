package stencil

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/figure-subdiv/pkg/packed"
)

func wi(idx int, w float32) WeightedIndex {
	return WeightedIndex{Index: idx, Weight: w}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{LimitStencils, "limit"},
		{LimitDuStencils, "limit-du"},
		{LimitDvStencils, "limit-dv"},
		{Kind(7), "Unknown(7)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	pos := packed.Pack([][]WeightedIndex{{wi(0, 0.5), wi(2, 0.5)}, {wi(1, 1)}})
	du := packed.Pack([][]WeightedIndex{{wi(0, -1), wi(2, 1)}, {wi(1, 0)}})
	dv := packed.Pack([][]WeightedIndex{{wi(0, 0.25), wi(2, -0.25)}, {wi(1, 0)}})

	got, err := Merge(pos, du, dv)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	want := packed.Pack([][]WeightedIndexWithDerivatives{
		{{0, 0.5, -1, 0.25}, {2, 0.5, 1, -0.25}},
		{{1, 1, 0, 0}},
	})
	if !packed.Equal(got, want) {
		t.Errorf("Merge() = %v, want %v", got.Unpack(), want.Unpack())
	}
}

func TestMergeShapeMismatch(t *testing.T) {
	base := packed.Pack([][]WeightedIndex{{wi(0, 1), wi(1, 0)}})

	tests := []struct {
		name   string
		du, dv packed.Lists[WeightedIndex]
	}{
		{
			name: "stencil count",
			du:   packed.Pack([][]WeightedIndex{{wi(0, 1), wi(1, 0)}, {}}),
			dv:   base,
		},
		{
			name: "stencil length",
			du:   base,
			dv:   packed.Pack([][]WeightedIndex{{wi(0, 1)}}),
		},
		{
			name: "index order",
			du:   packed.Pack([][]WeightedIndex{{wi(1, 0), wi(0, 1)}}),
			dv:   base,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Merge(base, tt.du, tt.dv)
			if !errors.Is(err, ErrShapeMismatch) {
				t.Fatalf("Merge() error = %v, want ErrShapeMismatch", err)
			}
			if got.Len() != 0 {
				t.Errorf("Merge() returned %d stencils alongside an error", got.Len())
			}
		})
	}
}

func TestIdentity(t *testing.T) {
	got := Identity(3)
	want := packed.Pack([][]WeightedIndex{{wi(0, 1)}, {wi(1, 1)}, {wi(2, 1)}})
	if !packed.Equal(got, want) {
		t.Errorf("Identity(3) = %v, want %v", got.Unpack(), want.Unpack())
	}
}

func TestIdentityOver(t *testing.T) {
	basis := packed.Pack([][]WeightedIndex{
		{wi(0, 0), wi(1, 0.5), wi(2, -0.5)},
		{wi(0, 0.25), wi(1, 0), wi(1, 0)},
	})

	got, err := IdentityOver(basis)
	if err != nil {
		t.Fatalf("IdentityOver() error = %v", err)
	}
	want := packed.Pack([][]WeightedIndex{
		{wi(0, 1), wi(1, 0), wi(2, 0)},
		{wi(0, 0), wi(1, 1), wi(1, 0)},
	})
	if !packed.Equal(got, want) {
		t.Errorf("IdentityOver() = %v, want %v", got.Unpack(), want.Unpack())
	}

	if _, err := Merge(got, basis, basis); err != nil {
		t.Errorf("identity over basis does not merge with basis: %v", err)
	}
}

func TestIdentityOverMissingSelf(t *testing.T) {
	basis := packed.Pack([][]WeightedIndex{{wi(1, 1)}})
	if _, err := IdentityOver(basis); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("IdentityOver() error = %v, want ErrShapeMismatch", err)
	}
}

func TestMaxIndex(t *testing.T) {
	if got := MaxIndex(packed.Pack[WeightedIndex](nil)); got != -1 {
		t.Errorf("MaxIndex(empty) = %d, want -1", got)
	}
	s := packed.Pack([][]WeightedIndexWithDerivatives{{{Index: 3}}, {{Index: 7}, {Index: 1}}})
	if got := MaxIndex(s); got != 7 {
		t.Errorf("MaxIndex() = %d, want 7", got)
	}
}

func TestOffset(t *testing.T) {
	s := packed.Pack([][]WeightedIndexWithDerivatives{{{Index: 0, Weight: 1}}, {{Index: 2, DuWeight: 1}}})
	got := Offset(s, 4)
	if got.At(0)[0].Index != 4 || got.At(1)[0].Index != 6 {
		t.Errorf("Offset() = %v", got.Unpack())
	}
	if s.At(0)[0].Index != 0 {
		t.Error("Offset modified its input")
	}
}

func TestApply(t *testing.T) {
	control := []r3.Vec{{X: 0}, {X: 2}, {Y: 4}}
	s := packed.Pack([][]WeightedIndex{{wi(0, 0.5), wi(1, 0.5)}, {wi(2, 0.25)}, {}})

	got := Apply(s, control, nil)
	want := []r3.Vec{{X: 1}, {Y: 1}, {}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Apply()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEvaluate(t *testing.T) {
	control := []r3.Vec{{X: 1}, {Y: 1}}
	s := packed.Pack([][]WeightedIndexWithDerivatives{
		{{Index: 0, Weight: 1, DuWeight: -1, DvWeight: 0}, {Index: 1, Weight: 0, DuWeight: 1, DvWeight: 2}},
	})

	dst := make([]r3.Vec, 0, 4)
	pos, du, dv := Evaluate(s, control, dst, nil, nil)
	if len(pos) != 1 || len(du) != 1 || len(dv) != 1 {
		t.Fatalf("Evaluate() lengths = %d/%d/%d, want 1/1/1", len(pos), len(du), len(dv))
	}
	if pos[0] != (r3.Vec{X: 1}) {
		t.Errorf("pos = %v, want {1 0 0}", pos[0])
	}
	if du[0] != (r3.Vec{X: -1, Y: 1}) {
		t.Errorf("du = %v, want {-1 1 0}", du[0])
	}
	if dv[0] != (r3.Vec{Y: 2}) {
		t.Errorf("dv = %v, want {0 2 0}", dv[0])
	}
	if &pos[0] != &dst[:1][0] {
		t.Error("Evaluate did not reuse the destination slice")
	}
}
