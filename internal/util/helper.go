package util

import "cmp"

// CloneSlice clones slice with cloneSize.
// This function will use src length as the clone size if cloneSize is 0.
func CloneSlice[T any](src []T, cloneSize int) []T {
	if cloneSize == 0 {
		cloneSize = len(src)
	}
	clone := make([]T, cloneSize)
	copy(clone, src)

	return clone
}

// InRange reports whether lo <= v <= hi.
func InRange[T cmp.Ordered](v, lo, hi T) bool {
	return lo <= v && v <= hi
}

// Every returns every stride-th element of src starting at offset. Watlow
// controllers lay 16-bit values out in 32-bit register slots, so stride 2
// picks the meaningful words.
func Every[T any](src []T, offset, stride int) []T {
	if stride < 1 {
		stride = 1
	}
	out := make([]T, 0, max(0, (len(src)-offset+stride-1)/stride))
	for i := offset; i < len(src); i += stride {
		out = append(out, src[i])
	}

	return out
}

// Pad returns src extended with fill up to n elements. Longer slices are
// returned unchanged.
func Pad[T any](src []T, n int, fill T) []T {
	out := CloneSlice(src, 0)
	for len(out) < n {
		out = append(out, fill)
	}

	return out
}
