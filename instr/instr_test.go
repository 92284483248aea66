package instr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustWord returns a function that fails t on an encoder error.
func mustWord(t *testing.T) func(Word, error) Word {
	return func(w Word, err error) Word {
		t.Helper()
		require.NoError(t, err)

		return w
	}
}

func TestHold_Deterministic(t *testing.T) {
	a := mustWord(t)(HoldHigh(20))
	b := mustWord(t)(HoldHigh(20))
	low := mustWord(t)(HoldLow(20))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, low)
	assert.Equal(t, Word(20<<3|1), a)
	assert.Equal(t, Word(20<<3), low)
}

func TestEncoders_Layout(t *testing.T) {
	assert.Equal(t, Word(7<<3|2), mustWord(t)(WaitRisingEdge(7)))
	assert.Equal(t, Word(7<<3|3), mustWord(t)(WaitFallingEdge(7)))
	assert.Equal(t, Word(100<<8|2<<3|7), mustWord(t)(JumpRepeat(2, 100)))
	assert.Equal(t, Word(4), End())
	assert.Equal(t, Word(6), NotAdmissible())
}

func TestEncoders_Bounds(t *testing.T) {
	_, err := HoldHigh(MaxDuration)
	require.NoError(t, err)
	_, err = JumpRepeat(MaxTarget, MaxTimes)
	require.NoError(t, err)

	tests := []struct {
		name string
		fn   func() (Word, error)
	}{
		{"hold high", func() (Word, error) { return HoldHigh(MaxDuration + 1) }},
		{"hold low", func() (Word, error) { return HoldLow(1 << 31) }},
		{"wait rising", func() (Word, error) { return WaitRisingEdge(MaxLine + 1) }},
		{"wait falling", func() (Word, error) { return WaitFallingEdge(MaxLine + 1) }},
		{"jump target", func() (Word, error) { return JumpRepeat(MaxTarget+1, 1) }},
		{"jump times", func() (Word, error) { return JumpRepeat(0, MaxTimes+1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		word Word
		want Instruction
		text string
	}{
		{mustWord(t)(HoldHigh(10000)), Instruction{Op: OpHoldHigh, Duration: 10000}, "HOLD_HIGH 10000us"},
		{mustWord(t)(HoldLow(3)), Instruction{Op: OpHoldLow, Duration: 3}, "HOLD_LOW 3us"},
		{mustWord(t)(WaitRisingEdge(18)), Instruction{Op: OpWaitRising, Line: 18}, "WAIT_RISING line=18"},
		{mustWord(t)(WaitFallingEdge(1)), Instruction{Op: OpWaitFalling, Line: 1}, "WAIT_FALLING line=1"},
		{mustWord(t)(JumpRepeat(31, 5)), Instruction{Op: OpJumpRepeat, Target: 31, Times: 5}, "JUMP_REPEAT target=31 times=5"},
		{End(), Instruction{Op: OpEnd}, "END"},
		{NotAdmissible(), Instruction{Op: OpNotAdmissible}, "NOT_ADMISSIBLE"},
		{Word(5), Instruction{Op: 5}, "OP(5)"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := Decode(tt.word)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.text, tt.word.String())

			if tt.want.Op == 5 {
				_, err := got.Encode()
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			w, err := got.Encode()
			require.NoError(t, err)
			assert.Equal(t, tt.word, w)
		})
	}
}
