package packed

import (
	"reflect"
	"testing"
)

func TestPack(t *testing.T) {
	tests := []struct {
		name    string
		lists   [][]int
		offsets []int
		count   int
	}{
		{"nil", nil, []int{0}, 0},
		{"single empty list", [][]int{{}}, []int{0, 0}, 0},
		{"mixed", [][]int{{1, 2}, {}, {3}, {4, 5, 6}}, []int{0, 2, 2, 3, 6}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Pack(tt.lists)
			if p.Len() != len(tt.lists) {
				t.Errorf("Len() = %d, want %d", p.Len(), len(tt.lists))
			}
			if p.Count() != tt.count {
				t.Errorf("Count() = %d, want %d", p.Count(), tt.count)
			}
			if !reflect.DeepEqual(p.Offsets(), tt.offsets) {
				t.Errorf("Offsets() = %v, want %v", p.Offsets(), tt.offsets)
			}
			for i, want := range tt.lists {
				got := p.At(i)
				if len(got) != len(want) {
					t.Fatalf("At(%d) = %v, want %v", i, got, want)
				}
				for j := range want {
					if got[j] != want[j] {
						t.Errorf("At(%d)[%d] = %d, want %d", i, j, got[j], want[j])
					}
				}
				if p.LenAt(i) != len(want) {
					t.Errorf("LenAt(%d) = %d, want %d", i, p.LenAt(i), len(want))
				}
			}
		})
	}
}

func TestZeroValue(t *testing.T) {
	var p Lists[int]
	if p.Len() != 0 || p.Count() != 0 {
		t.Errorf("zero Lists: Len=%d Count=%d, want 0 0", p.Len(), p.Count())
	}
	if !Equal(p, Pack[int](nil)) {
		t.Error("zero Lists should equal Pack(nil)")
	}
}

func TestAtCapacityClipped(t *testing.T) {
	p := Pack([][]int{{1}, {2}})
	first := p.At(0)
	_ = append(first, 99)
	if got := p.At(1)[0]; got != 2 {
		t.Errorf("append to At(0) overwrote At(1): got %d, want 2", got)
	}
}

func TestPackDoesNotAliasInput(t *testing.T) {
	in := [][]int{{1, 2}}
	p := Pack(in)
	in[0][0] = 42
	if p.At(0)[0] != 1 {
		t.Error("Pack aliases its input")
	}
}

func TestConcat(t *testing.T) {
	a := Pack([][]int{{0, 1}, {2}})
	b := Pack([][]int{{0}, {}, {1, 2}})

	got := Concat(a, b, func(v int) int { return v + 10 })
	want := [][]int{{0, 1}, {2}, {10}, {}, {11, 12}}

	if !Equal(got, Pack(want)) {
		t.Errorf("Concat() = %v, want %v", got.Unpack(), want)
	}
	if b.At(0)[0] != 0 {
		t.Error("Concat modified its second input")
	}
}

func TestConcatIdentity(t *testing.T) {
	x := Pack([][]int{{1}, {2, 3}})
	empty := Pack[int](nil)

	if !Equal(Concat(empty, x, nil), x) {
		t.Error("Concat(empty, x) != x")
	}
	if !Equal(Concat(x, empty, nil), x) {
		t.Error("Concat(x, empty) != x")
	}
}

func TestMap(t *testing.T) {
	p := Pack([][]int{{1, 2}, {}, {3}})
	got := Map(p, func(v int) float64 { return float64(v) / 2 })

	if got.Len() != p.Len() || got.Count() != p.Count() {
		t.Fatalf("Map changed shape: %d/%d vs %d/%d", got.Len(), got.Count(), p.Len(), p.Count())
	}
	if got.At(2)[0] != 1.5 {
		t.Errorf("Map()[2][0] = %v, want 1.5", got.At(2)[0])
	}
}

func TestBuilder(t *testing.T) {
	b := NewBuilder[string](3, 4)
	b.Add("a", "b")
	b.EndList()
	b.EndList()
	b.Add("c")
	b.EndList()
	b.Add("dropped")

	if b.Len() != 3 {
		t.Errorf("Builder.Len() = %d, want 3", b.Len())
	}

	got := b.Build()
	want := Pack([][]string{{"a", "b"}, {}, {"c"}})
	if !Equal(got, want) {
		t.Errorf("Build() = %v, want %v", got.Unpack(), want.Unpack())
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b [][]int
		want bool
	}{
		{"same", [][]int{{1}, {2}}, [][]int{{1}, {2}}, true},
		{"different split", [][]int{{1, 2}}, [][]int{{1}, {2}}, false},
		{"different value", [][]int{{1}}, [][]int{{2}}, false},
		{"empty lists", [][]int{{}, {}}, [][]int{{}, {}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(Pack(tt.a), Pack(tt.b)); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}
