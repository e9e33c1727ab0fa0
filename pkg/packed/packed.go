// Package packed provides a flat storage layout for one variable-length
// list per index (one stencil per vertex, for example).
//
// All elements live in a single backing slice; an offset table of length
// N+1 marks where each sub-list starts, so sub-list i occupies
// values[offsets[i]:offsets[i+1]].
package packed

// Lists stores N variable-length sub-lists in contiguous memory.
// The zero value is an empty set of lists.
type Lists[T any] struct {
	offsets []int
	values  []T
}

// Pack flattens a slice of lists into a Lists.
func Pack[T any](lists [][]T) Lists[T] {
	total := 0
	for _, l := range lists {
		total += len(l)
	}

	offsets := make([]int, len(lists)+1)
	values := make([]T, 0, total)
	for i, l := range lists {
		values = append(values, l...)
		offsets[i+1] = len(values)
	}

	return Lists[T]{offsets: offsets, values: values}
}

// Len returns the number of sub-lists.
func (p Lists[T]) Len() int {
	if len(p.offsets) == 0 {
		return 0
	}
	return len(p.offsets) - 1
}

// Count returns the total number of stored elements.
func (p Lists[T]) Count() int {
	return len(p.values)
}

// At returns sub-list i. The returned slice aliases the backing storage
// and its capacity is clipped so appending to it cannot clobber sub-list i+1.
// Panics if i is out of range.
func (p Lists[T]) At(i int) []T {
	start, end := p.offsets[i], p.offsets[i+1]
	return p.values[start:end:end]
}

// LenAt returns the length of sub-list i.
func (p Lists[T]) LenAt(i int) int {
	return p.offsets[i+1] - p.offsets[i]
}

// Offsets returns the offset table (length Len()+1, or 0 for the zero value).
// Callers must not modify it.
func (p Lists[T]) Offsets() []int {
	return p.offsets
}

// Values returns the backing slice. Callers must not modify it.
func (p Lists[T]) Values() []T {
	return p.values
}

// Unpack copies the lists back into a slice of slices.
func (p Lists[T]) Unpack() [][]T {
	out := make([][]T, p.Len())
	for i := range out {
		out[i] = append([]T(nil), p.At(i)...)
	}
	return out
}

// Map returns a Lists with the same shape whose elements are fn(element).
func Map[T, U any](src Lists[T], fn func(T) U) Lists[U] {
	values := make([]U, len(src.values))
	for i, v := range src.values {
		values[i] = fn(v)
	}
	return Lists[U]{offsets: cloneOffsets(src.offsets), values: values}
}

// Concat appends the sub-lists of b after those of a. Every element of b
// passes through fn first (nil fn copies b unchanged). Neither input is
// aliased by the result.
func Concat[T any](a, b Lists[T], fn func(T) T) Lists[T] {
	n := a.Len() + b.Len()
	offsets := make([]int, n+1)
	values := make([]T, 0, len(a.values)+len(b.values))

	values = append(values, a.values...)
	copy(offsets, a.offsets)

	base := len(a.values)
	for i := 1; i < len(b.offsets); i++ {
		offsets[a.Len()+i] = base + b.offsets[i]
	}
	for _, v := range b.values {
		if fn != nil {
			v = fn(v)
		}
		values = append(values, v)
	}

	return Lists[T]{offsets: offsets, values: values}
}

// Equal reports whether a and b hold the same sub-lists with equal elements.
func Equal[T comparable](a, b Lists[T]) bool {
	if a.Len() != b.Len() || a.Count() != b.Count() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		la, lb := a.At(i), b.At(i)
		if len(la) != len(lb) {
			return false
		}
		for j := range la {
			if la[j] != lb[j] {
				return false
			}
		}
	}
	return true
}

func cloneOffsets(offsets []int) []int {
	if offsets == nil {
		return nil
	}
	return append([]int(nil), offsets...)
}

// Builder assembles a Lists one sub-list at a time without an
// intermediate [][]T.
type Builder[T any] struct {
	offsets []int
	values  []T
}

// NewBuilder returns a Builder sized for the expected number of lists and
// elements. Both hints may be zero.
func NewBuilder[T any](listHint, valueHint int) *Builder[T] {
	offsets := make([]int, 1, listHint+1)
	return &Builder[T]{
		offsets: offsets,
		values:  make([]T, 0, valueHint),
	}
}

// Add appends items to the current sub-list.
func (b *Builder[T]) Add(items ...T) {
	b.values = append(b.values, items...)
}

// EndList closes the current sub-list and starts the next one.
func (b *Builder[T]) EndList() {
	b.offsets = append(b.offsets, len(b.values))
}

// Len returns the number of closed sub-lists.
func (b *Builder[T]) Len() int {
	return len(b.offsets) - 1
}

// Build returns the packed lists. Elements added after the last EndList
// are dropped. The Builder must not be used afterwards.
func (b *Builder[T]) Build() Lists[T] {
	last := b.offsets[len(b.offsets)-1]
	out := Lists[T]{offsets: b.offsets, values: b.values[:last:last]}
	b.offsets, b.values = nil, nil
	return out
}
