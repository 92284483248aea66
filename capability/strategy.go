package capability

import (
	"fmt"
	"math/bits"
)

// MemoryLengthDecoder interprets the 6-bit memory field of the descriptor.
//
// Two encodings exist in the field: firmware that stores the instruction count
// directly (Direct), and firmware that stores log2 of the count (PowerOfTwo).
// The client does not guess; the decoder is chosen in the connection config.
type MemoryLengthDecoder interface {
	// Decode converts the raw field to a number of instructions.
	Decode(field uint32) int
	// Encode converts a number of instructions to the raw field.
	Encode(length int) (uint32, error)
	// Name identifies the encoding in configuration files and logs.
	Name() string
}

var (
	// Direct reads the memory field as the instruction count. This is the encoding
	// of the reference firmware, whose 32-instruction memory reports 32.
	Direct MemoryLengthDecoder = directDecoder{}

	// PowerOfTwo reads the memory field as an exponent: the memory holds
	// 2^field instructions. Firmware with memories larger than 63 instructions
	// reports this way.
	PowerOfTwo MemoryLengthDecoder = powerOfTwoDecoder{}
)

type directDecoder struct{}

func (directDecoder) Decode(field uint32) int { return int(field) }

func (directDecoder) Encode(length int) (uint32, error) {
	if length < 0 || length > MemoryMask {
		return 0, fmt.Errorf("capability: memory length %d not representable as a direct count", length)
	}

	return uint32(length), nil
}

func (directDecoder) Name() string { return "direct" }

type powerOfTwoDecoder struct{}

// maxExponent keeps decoded lengths within an int on every platform.
const maxExponent = 30

func (powerOfTwoDecoder) Decode(field uint32) int {
	if field > maxExponent {
		field = maxExponent
	}

	return 1 << field
}

func (powerOfTwoDecoder) Encode(length int) (uint32, error) {
	if length <= 0 || length&(length-1) != 0 || length > 1<<maxExponent {
		return 0, fmt.Errorf("capability: memory length %d is not a power of two", length)
	}

	return uint32(bits.TrailingZeros(uint(length))), nil
}

func (powerOfTwoDecoder) Name() string { return "pow2" }

// DecoderByName returns the decoder registered under name ("direct" or "pow2").
func DecoderByName(name string) (MemoryLengthDecoder, error) {
	switch name {
	case "", Direct.Name():
		return Direct, nil
	case PowerOfTwo.Name(), "power-of-two":
		return PowerOfTwo, nil
	default:
		return nil, fmt.Errorf("capability: unknown memory length encoding %q", name)
	}
}
