package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneSlice(t *testing.T) {
	src := []int{1, 2, 3}
	clone := CloneSlice(src, 0)
	clone[0] = 9
	assert.Equal(t, []int{1, 2, 3}, src)
	assert.Equal(t, []int{9, 2, 3}, clone)

	assert.Equal(t, []int{1, 2, 3, 0, 0}, CloneSlice(src, 5))
	assert.Equal(t, []int{1}, CloneSlice(src, 1))
}

func TestInRange(t *testing.T) {
	assert.True(t, InRange(1, 1, 40))
	assert.True(t, InRange(40, 1, 40))
	assert.False(t, InRange(0, 1, 40))
	assert.False(t, InRange(2.5, 3.0, 1.0))
}

func TestEvery(t *testing.T) {
	regs := []uint16{5, 0, 30, 0, 12, 0}
	assert.Equal(t, []uint16{5, 30, 12}, Every(regs, 0, 2))
	assert.Equal(t, []uint16{0, 0, 0}, Every(regs, 1, 2))
	assert.Empty(t, Every(regs, 6, 2))
}

func TestPad(t *testing.T) {
	assert.Equal(t, []string{"a", "", ""}, Pad([]string{"a"}, 3, ""))
	assert.Equal(t, []int{1, 2}, Pad([]int{1, 2}, 1, 0))
}
