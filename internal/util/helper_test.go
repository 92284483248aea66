package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneSlice(t *testing.T) {
	src := []uint32{1, 2, 3}

	clone := CloneSlice(src, 0)
	assert.Equal(t, src, clone)

	clone[0] = 9
	assert.Equal(t, uint32(1), src[0])

	padded := CloneSlice(src, 5)
	assert.Equal(t, []uint32{1, 2, 3, 0, 0}, padded)
}

func TestSetBits(t *testing.T) {
	tests := []struct {
		name     string
		value    uint8
		msbFirst bool
		expected []int
	}{
		{"zero", 0, true, []int{}},
		{"five msb first", 5, true, []int{5, 7}},
		{"five lsb first", 5, false, []int{0, 2}},
		{"top bit msb first", 0x80, true, []int{0}},
		{"top bit lsb first", 0x80, false, []int{7}},
		{"all", 0xFF, true, []int{0, 1, 2, 3, 4, 5, 6, 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SetBits(tt.value, tt.msbFirst))
		})
	}
}
