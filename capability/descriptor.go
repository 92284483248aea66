// Package capability decodes the hardware description reported by the device.
//
// The device answers the capability command with one packed 32-bit word:
//
//	bits  0-4   scanner A line count     (5 bits)
//	bits  5-9   scanner B line count     (5 bits)
//	bits 10-12  stimulator line count    (3 bits)
//	bits 13-15  firmware revision        (3 bits)
//	bits 16-21  general purpose lines    (6 bits)
//	bits 26-31  instruction memory field (6 bits)
//
// Firmware revisions disagree on the meaning of the memory field; see
// MemoryLengthDecoder.
package capability

import "fmt"

// Bit layout of the packed descriptor.
const (
	ScannerAShift   = 0
	ScannerBShift   = 5
	StimulatorShift = 10
	RevisionShift   = 13
	GPIOShift       = 16
	MemoryShift     = 26

	ScannerAMask   = 0x1F
	ScannerBMask   = 0x1F
	StimulatorMask = 0x07
	RevisionMask   = 0x07
	GPIOMask       = 0x3F
	MemoryMask     = 0x3F
)

// Descriptor is the decoded hardware description of a device. It is immutable
// once decoded.
type Descriptor struct {
	ScannerA     int // lines of the first scanner group
	ScannerB     int // lines of the second scanner group
	Stimulator   int // stimulator lines
	GPIO         int // general purpose lines
	Revision     int // firmware revision field
	MemoryLength int // instructions in each line's memory
}

// Default describes the reference hardware. It is used until the device reported
// its own description.
var Default = Descriptor{
	ScannerA:     8,
	ScannerB:     8,
	Stimulator:   2,
	GPIO:         8,
	MemoryLength: 32,
}

// Decode extracts a Descriptor from the packed word returned by the device,
// interpreting the memory field with dec. A nil dec means Direct.
func Decode(packed uint32, dec MemoryLengthDecoder) Descriptor {
	if dec == nil {
		dec = Direct
	}

	return Descriptor{
		ScannerA:     int(packed >> ScannerAShift & ScannerAMask),
		ScannerB:     int(packed >> ScannerBShift & ScannerBMask),
		Stimulator:   int(packed >> StimulatorShift & StimulatorMask),
		Revision:     int(packed >> RevisionShift & RevisionMask),
		GPIO:         int(packed >> GPIOShift & GPIOMask),
		MemoryLength: dec.Decode(packed >> MemoryShift & MemoryMask),
	}
}

// Encode packs d, writing the memory length with enc. It fails when a field
// does not fit its bit width or the memory length cannot be represented by enc.
func Encode(d Descriptor, enc MemoryLengthDecoder) (uint32, error) {
	if enc == nil {
		enc = Direct
	}

	fields := []struct {
		name  string
		value int
		mask  uint32
		shift uint
	}{
		{"scanner A", d.ScannerA, ScannerAMask, ScannerAShift},
		{"scanner B", d.ScannerB, ScannerBMask, ScannerBShift},
		{"stimulator", d.Stimulator, StimulatorMask, StimulatorShift},
		{"revision", d.Revision, RevisionMask, RevisionShift},
		{"gpio", d.GPIO, GPIOMask, GPIOShift},
	}

	var packed uint32
	for _, f := range fields {
		if f.value < 0 || uint32(f.value) > f.mask {
			return 0, fmt.Errorf("capability: %s field %d out of range [0, %d]", f.name, f.value, f.mask)
		}
		packed |= uint32(f.value) << f.shift
	}

	mem, err := enc.Encode(d.MemoryLength)
	if err != nil {
		return 0, err
	}
	if mem > MemoryMask {
		return 0, fmt.Errorf("capability: memory field %d out of range [0, %d]", mem, MemoryMask)
	}

	return packed | mem<<MemoryShift, nil
}

// Lines returns the total number of addressable lines.
func (d Descriptor) Lines() int {
	return d.ScannerA + d.ScannerB + d.Stimulator + d.GPIO
}

// String returns a compact human readable form.
func (d Descriptor) String() string {
	return fmt.Sprintf("scannerA=%d scannerB=%d stimulator=%d gpio=%d memory=%d revision=%d",
		d.ScannerA, d.ScannerB, d.Stimulator, d.GPIO, d.MemoryLength, d.Revision)
}
