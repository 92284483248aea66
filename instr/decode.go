package instr

import "fmt"

// Instruction is the decoded form of a Word.
type Instruction struct {
	Op       Op
	Duration uint32 // hold instructions
	Line     uint32 // wait instructions
	Target   uint32 // jump-repeat
	Times    uint32 // jump-repeat
}

// Decode splits w into its opcode and operands.
func Decode(w Word) Instruction {
	in := Instruction{Op: w.Op()}

	switch in.Op {
	case OpHoldLow, OpHoldHigh:
		in.Duration = w.Arg()
	case OpWaitRising, OpWaitFalling:
		in.Line = w.Arg()
	case OpJumpRepeat:
		in.Target = uint32(w) >> TargetShift & MaxTarget
		in.Times = uint32(w) >> TimesShift
	}

	return in
}

// Encode is the inverse of Decode.
func (in Instruction) Encode() (Word, error) {
	switch in.Op {
	case OpHoldLow:
		return HoldLow(in.Duration)
	case OpHoldHigh:
		return HoldHigh(in.Duration)
	case OpWaitRising:
		return WaitRisingEdge(in.Line)
	case OpWaitFalling:
		return WaitFallingEdge(in.Line)
	case OpJumpRepeat:
		return JumpRepeat(in.Target, in.Times)
	case OpEnd:
		return End(), nil
	case OpNotAdmissible:
		return NotAdmissible(), nil
	default:
		return 0, fmt.Errorf("%w: unknown opcode %d", ErrInvalidArgument, in.Op)
	}
}

func (in Instruction) String() string {
	switch in.Op {
	case OpHoldLow, OpHoldHigh:
		return fmt.Sprintf("%s %dus", in.Op, in.Duration)
	case OpWaitRising, OpWaitFalling:
		return fmt.Sprintf("%s line=%d", in.Op, in.Line)
	case OpJumpRepeat:
		return fmt.Sprintf("%s target=%d times=%d", in.Op, in.Target, in.Times)
	default:
		return in.Op.String()
	}
}
