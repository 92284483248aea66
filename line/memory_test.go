package line

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosanlab/go-trgen/instr"
)

func TestNewMemory(t *testing.T) {
	m := NewMemory(0)
	assert.Equal(t, DefaultMemoryLength, m.Len())

	words := m.Words()
	assert.Equal(t, instr.End(), words[0])
	for _, w := range words[1:] {
		assert.Equal(t, instr.NotAdmissible(), w)
	}
}

func TestMemory_SetInstruction(t *testing.T) {
	m := NewMemory(4)
	w, err := instr.HoldHigh(5)
	require.NoError(t, err)

	require.NoError(t, m.SetInstruction(3, w))
	got, err := m.Instruction(3)
	require.NoError(t, err)
	assert.Equal(t, w, got)

	assert.ErrorIs(t, m.SetInstruction(4, w), ErrIndexOutOfRange)
	assert.ErrorIs(t, m.SetInstruction(-1, w), ErrIndexOutOfRange)
	_, err = m.Instruction(4)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestMemory_ProgramDefault(t *testing.T) {
	for _, n := range []int{3, 8, 32, 64} {
		m := NewMemory(n)
		require.NoError(t, m.ProgramDefault(10000))

		high, _ := instr.HoldHigh(10000)
		low, _ := instr.HoldLow(SettleDuration)
		want := []instr.Word{high, low, instr.End()}
		for i := 3; i < n; i++ {
			want = append(want, instr.NotAdmissible())
		}
		assert.Equal(t, want, m.Words())
	}
}

func TestMemory_ProgramDefaultErrors(t *testing.T) {
	m := NewMemory(2)
	assert.ErrorIs(t, m.ProgramDefault(10), ErrIndexOutOfRange)

	m = NewMemory(8)
	assert.ErrorIs(t, m.ProgramDefault(instr.MaxDuration+1), instr.ErrInvalidArgument)
	assert.True(t, m.Equal(NewMemory(8)), "failed program must leave memory untouched")
}

func TestMemory_Reset(t *testing.T) {
	m := NewMemory(8)
	require.NoError(t, m.ProgramDefault(20))
	m.Reset()
	assert.True(t, m.Equal(NewMemory(8)))
}

func TestMemory_Load(t *testing.T) {
	m := NewMemory(5)
	high, _ := instr.HoldHigh(1)
	jump, _ := instr.JumpRepeat(0, 3)

	require.NoError(t, m.Load([]instr.Word{high, jump, instr.End()}))
	assert.Equal(t, []instr.Word{high, jump, instr.End(), instr.NotAdmissible(), instr.NotAdmissible()}, m.Words())

	assert.ErrorIs(t, m.Load(make([]instr.Word, 6)), ErrIndexOutOfRange)
}

func TestMemory_WordsIsCopy(t *testing.T) {
	m := NewMemory(4)
	words := m.Words()
	words[0] = 0

	assert.Equal(t, instr.End(), m.Words()[0])
	assert.Equal(t, []uint32{4, 6, 6, 6}, m.Payload())

	c := m.Clone()
	require.NoError(t, c.SetInstruction(0, 0))
	assert.False(t, c.Equal(m))
}
