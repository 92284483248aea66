package packet

import "errors"

var (
	// ErrUnexpectedAck indicates that the device replied, but not with an
	// acknowledgement of the command that was sent.
	ErrUnexpectedAck = errors.New("packet: unexpected acknowledgement")

	// ErrMalformedAck indicates an acknowledgement that does not have the
	// ACK<id>.<value> shape.
	ErrMalformedAck = errors.New("packet: malformed acknowledgement")

	// ErrInvalidLength indicates a packet whose size is not a whole number of words
	// or is shorter than a command id plus checksum.
	ErrInvalidLength = errors.New("packet: invalid length")

	// ErrChecksumMismatch indicates a packet whose trailing checksum does not match
	// its content.
	ErrChecksumMismatch = errors.New("packet: checksum mismatch")
)
