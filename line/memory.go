package line

import (
	"errors"
	"fmt"
	"slices"

	"github.com/cosanlab/go-trgen/instr"
)

// ErrIndexOutOfRange is returned for a memory slot or line outside the valid range.
var ErrIndexOutOfRange = errors.New("line: index out of range")

const (
	// DefaultMemoryLength is used until the device reports its memory size.
	DefaultMemoryLength = 32

	// MinMemoryLength is the smallest memory that holds the default pulse.
	MinMemoryLength = 3

	// SettleDuration is the low time, in microseconds, that closes the default pulse.
	SettleDuration = 3
)

// Memory is the instruction memory of one line. Its length is fixed at creation.
//
// A Memory is not safe for concurrent mutation.
type Memory struct {
	words []instr.Word
}

// NewMemory returns a memory of n slots holding the reset program.
// A non-positive n means DefaultMemoryLength.
func NewMemory(n int) *Memory {
	if n <= 0 {
		n = DefaultMemoryLength
	}
	m := &Memory{words: make([]instr.Word, n)}
	m.Reset()

	return m
}

// Len returns the number of slots.
func (m *Memory) Len() int {
	return len(m.words)
}

// SetInstruction writes w to slot index.
func (m *Memory) SetInstruction(index int, w instr.Word) error {
	if index < 0 || index >= len(m.words) {
		return fmt.Errorf("%w: slot %d of %d", ErrIndexOutOfRange, index, len(m.words))
	}
	m.words[index] = w

	return nil
}

// Instruction returns the word at slot index.
func (m *Memory) Instruction(index int) (instr.Word, error) {
	if index < 0 || index >= len(m.words) {
		return 0, fmt.Errorf("%w: slot %d of %d", ErrIndexOutOfRange, index, len(m.words))
	}

	return m.words[index], nil
}

// ProgramDefault writes a single pulse: high for duration microseconds, low
// for SettleDuration, then end. Remaining slots are filled with not-admissible.
func (m *Memory) ProgramDefault(duration uint32) error {
	if len(m.words) < MinMemoryLength {
		return fmt.Errorf("%w: memory of %d slots cannot hold a pulse", ErrIndexOutOfRange, len(m.words))
	}

	high, err := instr.HoldHigh(duration)
	if err != nil {
		return err
	}
	low, err := instr.HoldLow(SettleDuration)
	if err != nil {
		return err
	}

	m.words[0] = high
	m.words[1] = low
	m.words[2] = instr.End()
	m.fill(3)

	return nil
}

// Reset writes end at slot 0 and not-admissible everywhere else.
func (m *Memory) Reset() {
	if len(m.words) == 0 {
		return
	}
	m.words[0] = instr.End()
	m.fill(1)
}

func (m *Memory) fill(from int) {
	for i := from; i < len(m.words); i++ {
		m.words[i] = instr.NotAdmissible()
	}
}

// Load replaces the whole memory with words. Missing trailing slots are filled
// with not-admissible; extra words are an error.
func (m *Memory) Load(words []instr.Word) error {
	if len(words) > len(m.words) {
		return fmt.Errorf("%w: %d words for %d slots", ErrIndexOutOfRange, len(words), len(m.words))
	}
	copy(m.words, words)
	m.fill(len(words))

	return nil
}

// Words returns a copy of the memory image.
func (m *Memory) Words() []instr.Word {
	return slices.Clone(m.words)
}

// Payload returns the memory image as command payload words.
func (m *Memory) Payload() []uint32 {
	payload := make([]uint32, len(m.words))
	for i, w := range m.words {
		payload[i] = uint32(w)
	}

	return payload
}

// Equal reports whether both memories hold the same image.
func (m *Memory) Equal(other *Memory) bool {
	if m == nil || other == nil {
		return m == other
	}

	return slices.Equal(m.words, other.words)
}

// Clone returns an independent copy of m.
func (m *Memory) Clone() *Memory {
	return &Memory{words: slices.Clone(m.words)}
}
