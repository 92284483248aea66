package packet

import (
	"encoding/binary"
	"fmt"
)

// WordSize is the size of a command id, payload word or checksum on the wire.
const WordSize = 4

// MinPacketSize is the size of a packet without payload.
const MinPacketSize = WordSize + ChecksumSize

// Command identifiers understood by the device.
const (
	CmdProgramLine uint32 = 0x01 // followed by the full instruction memory of a line
	CmdStart       uint32 = 0x02
	CmdSetGPIO     uint32 = 0x03 // payload: mask
	CmdCapability  uint32 = 0x04 // ACK value: packed capability descriptor
	CmdStatus      uint32 = 0x05 // ACK value: status word
	CmdSetLevel    uint32 = 0x06 // payload: mask
	CmdGPIO        uint32 = 0x07 // ACK value: GPIO mask
	CmdLevel       uint32 = 0x08 // ACK value: level mask
	CmdStop        uint32 = 0x09
)

// lineShift is the position of the line address inside a command id.
const lineShift = 24

// LineCommand returns the command id of cmd addressed to line.
func LineCommand(cmd uint32, line uint8) uint32 {
	return cmd&0x00FFFFFF | uint32(line)<<lineShift
}

// CommandLine returns the line address carried by a command id.
func CommandLine(cmd uint32) uint8 {
	return uint8(cmd >> lineShift)
}

// AckID returns the id the device echoes when it acknowledges cmd.
func AckID(cmd uint32) uint32 {
	return cmd & 0xFF
}

// Packet is a decoded request.
type Packet struct {
	Command  uint32
	Payload  []uint32
	Checksum uint32
}

// Encode serializes a request: command id, payload words and the checksum of
// everything before it, all little-endian.
func Encode(cmd uint32, payload []uint32) []byte {
	size := MinPacketSize + len(payload)*WordSize
	buf := make([]byte, 0, size)

	buf = binary.LittleEndian.AppendUint32(buf, cmd)
	for _, w := range payload {
		buf = binary.LittleEndian.AppendUint32(buf, w)
	}

	return binary.LittleEndian.AppendUint32(buf, Checksum(buf))
}

// Parse decodes a request produced by Encode and verifies its checksum.
func Parse(b []byte) (*Packet, error) {
	if len(b) < MinPacketSize || len(b)%WordSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(b))
	}

	body := b[:len(b)-ChecksumSize]
	pkt := &Packet{
		Command:  binary.LittleEndian.Uint32(body),
		Checksum: binary.LittleEndian.Uint32(b[len(body):]),
	}

	if calc := Checksum(body); calc != pkt.Checksum {
		return nil, fmt.Errorf("%w: wire=0x%08X, computed=0x%08X", ErrChecksumMismatch, pkt.Checksum, calc)
	}

	words := (len(body) - WordSize) / WordSize
	if words > 0 {
		pkt.Payload = make([]uint32, words)
		for i := range pkt.Payload {
			pkt.Payload[i] = binary.LittleEndian.Uint32(body[WordSize*(i+1):])
		}
	}

	return pkt, nil
}

// Size returns the wire size of a packet carrying n payload words.
func Size(n int) int {
	return MinPacketSize + n*WordSize
}
