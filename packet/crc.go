package packet

import "hash/crc32"

// ChecksumSize is the size of the trailing checksum in bytes.
const ChecksumSize = 4

// Polynomial is the reflected generator polynomial of the packet checksum.
const Polynomial = crc32.IEEE

var checksumTable = crc32.MakeTable(Polynomial)

// Checksum computes the 32-bit packet checksum of b: table driven, initial value
// all ones, final value complemented.
func Checksum(b []byte) uint32 {
	return crc32.Checksum(b, checksumTable)
}
