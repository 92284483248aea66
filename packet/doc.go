// Package packet implements the wire format of the trigger generator.
//
// A request on the wire is
//
//	[command id: u32][payload word: u32]*[crc32: u32]
//
// with every integer little-endian. The checksum covers the command id and the
// payload and is computed by Checksum.
//
// The device answers with a short ASCII string, "ACK<id>.<value>" on success.
// Replies carry no checksum and are not framed; DecodeAck validates them
// textually. The asymmetry is fixed by the device firmware.
//
// Commands that address a line carry the line number in the high byte of the
// command id (see LineCommand); the acknowledgement only echoes the low byte.
package packet
