// Package instr encodes the timing instructions executed by a line's memory.
//
// Every instruction is one 32-bit word. The low three bits select the opcode,
// the remaining bits carry the operands:
//
//	hold-low, hold-high       duration<<3 | op      (duration in microseconds)
//	wait-rising, wait-falling line<<3 | op          (line to watch)
//	jump-repeat               times<<8 | target<<3 | op
//	end, not-admissible       op
//
// Operands that do not fit their bit width are rejected with ErrInvalidArgument.
package instr

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when an operand does not fit its field.
var ErrInvalidArgument = errors.New("instr: invalid argument")

// Word is one encoded instruction.
type Word uint32

// Op is the 3-bit opcode of a Word.
type Op uint8

const (
	OpHoldLow       Op = 0
	OpHoldHigh      Op = 1
	OpWaitRising    Op = 2
	OpWaitFalling   Op = 3
	OpEnd           Op = 4
	OpNotAdmissible Op = 6
	OpJumpRepeat    Op = 7
)

const (
	OpBits   = 3
	OpMask   = 1<<OpBits - 1
	ArgShift = OpBits

	// MaxDuration is the largest hold duration, in microseconds.
	MaxDuration = 1<<(32-OpBits) - 1
	// MaxLine is the largest line id a wait instruction can reference.
	MaxLine = MaxDuration

	TargetShift = 3
	TargetBits  = 5
	// MaxTarget is the largest jump target address.
	MaxTarget = 1<<TargetBits - 1

	TimesShift = 8
	// MaxTimes is the largest jump repeat count.
	MaxTimes = 1<<(32-TimesShift) - 1
)

var opNames = map[Op]string{
	OpHoldLow:       "HOLD_LOW",
	OpHoldHigh:      "HOLD_HIGH",
	OpWaitRising:    "WAIT_RISING",
	OpWaitFalling:   "WAIT_FALLING",
	OpEnd:           "END",
	OpNotAdmissible: "NOT_ADMISSIBLE",
	OpJumpRepeat:    "JUMP_REPEAT",
}

// String returns the mnemonic of the opcode.
func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}

	return fmt.Sprintf("OP(%d)", uint8(op))
}

func withArg(op Op, arg, limit uint32, what string) (Word, error) {
	if arg > limit {
		return 0, fmt.Errorf("%w: %s %d exceeds %d", ErrInvalidArgument, what, arg, limit)
	}

	return Word(arg<<ArgShift | uint32(op)), nil
}

// HoldHigh drives the line high for duration microseconds.
func HoldHigh(duration uint32) (Word, error) {
	return withArg(OpHoldHigh, duration, MaxDuration, "duration")
}

// HoldLow drives the line low for duration microseconds.
func HoldLow(duration uint32) (Word, error) {
	return withArg(OpHoldLow, duration, MaxDuration, "duration")
}

// WaitRisingEdge blocks the program until line sees a rising edge.
func WaitRisingEdge(line uint32) (Word, error) {
	return withArg(OpWaitRising, line, MaxLine, "line")
}

// WaitFallingEdge blocks the program until line sees a falling edge.
func WaitFallingEdge(line uint32) (Word, error) {
	return withArg(OpWaitFalling, line, MaxLine, "line")
}

// JumpRepeat jumps back to target, times times, before falling through.
func JumpRepeat(target, times uint32) (Word, error) {
	if target > MaxTarget {
		return 0, fmt.Errorf("%w: jump target %d exceeds %d", ErrInvalidArgument, target, MaxTarget)
	}
	if times > MaxTimes {
		return 0, fmt.Errorf("%w: repeat count %d exceeds %d", ErrInvalidArgument, times, MaxTimes)
	}

	return Word(times<<TimesShift | target<<TargetShift | uint32(OpJumpRepeat)), nil
}

// End terminates the program.
func End() Word { return Word(OpEnd) }

// NotAdmissible fills the slots after the end of a program.
func NotAdmissible() Word { return Word(OpNotAdmissible) }

// Op returns the opcode of w.
func (w Word) Op() Op { return Op(w & OpMask) }

// Arg returns the operand bits above the opcode.
func (w Word) Arg() uint32 { return uint32(w) >> ArgShift }

// String renders w as an assembly-like mnemonic.
func (w Word) String() string {
	return Decode(w).String()
}
