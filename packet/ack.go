package packet

import (
	"fmt"
	"strconv"
	"strings"
)

const ackPrefix = "ACK"

// DecodeAck parses the device reply to a command whose ack id is expectedID and
// returns the acknowledged value.
//
// The reply must be exactly "ACK<id>.<value>" with decimal id and value and no
// surrounding whitespace or terminator. A reply that does not start with
// "ACK<expectedID>", including an id padded with leading zeros, yields
// ErrUnexpectedAck; one without exactly one '.' or with a non-numeric value
// yields ErrMalformedAck.
func DecodeAck(text string, expectedID uint32) (uint32, error) {
	if !strings.HasPrefix(text, ackPrefix) {
		return 0, fmt.Errorf("%w: %q", ErrUnexpectedAck, text)
	}

	head, value, found := strings.Cut(text[len(ackPrefix):], ".")
	if !found || strings.Contains(value, ".") {
		return 0, fmt.Errorf("%w: %q", ErrMalformedAck, text)
	}

	if _, err := strconv.ParseUint(head, 10, 32); err != nil {
		return 0, fmt.Errorf("%w: bad id in %q", ErrMalformedAck, text)
	}
	// the device writes ids without padding
	if want := strconv.FormatUint(uint64(expectedID), 10); head != want {
		return 0, fmt.Errorf("%w: got id %s, want %s", ErrUnexpectedAck, head, want)
	}

	v, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad value in %q", ErrMalformedAck, text)
	}

	return uint32(v), nil
}

// FormatAck renders the acknowledgement the device sends for id and value.
func FormatAck(id, value uint32) string {
	return ackPrefix + strconv.FormatUint(uint64(id), 10) + "." + strconv.FormatUint(uint64(value), 10)
}
