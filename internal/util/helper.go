// Package util holds small helpers shared by the trgen packages.
package util

import "math/bits"

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

// SetBits returns the positions of the set bits of v within its 8-bit
// representation, in ascending order.
//
// With msbFirst the leftmost digit of the binary string is position 0, so
// 0b00000101 yields [5 7]. Otherwise bit i is position i and the same value
// yields [0 2].
func SetBits(v uint8, msbFirst bool) []int {
	if msbFirst {
		v = bits.Reverse8(v)
	}

	positions := make([]int, 0, bits.OnesCount8(v))
	for i := 0; i < 8; i++ {
		if v&(1<<i) != 0 {
			positions = append(positions, i)
		}
	}

	return positions
}
