package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAck(t *testing.T) {
	v, err := DecodeAck("ACK4.123", 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(123), v)

	v, err = DecodeAck("ACK1.0", 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), v)

	v, err = DecodeAck("ACK4.4294967295", 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFFFFFFFF), v)
}

func TestDecodeAck_Errors(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		id       uint32
		expected error
	}{
		{"missing separator", "ACK4", 4, ErrMalformedAck},
		{"two separators", "ACK4.1.2", 4, ErrMalformedAck},
		{"negative ack", "NACK4.123", 4, ErrUnexpectedAck},
		{"empty", "", 4, ErrUnexpectedAck},
		{"lower case", "ack4.1", 4, ErrUnexpectedAck},
		{"other id", "ACK5.1", 4, ErrUnexpectedAck},
		{"padded id", "ACK004.12", 4, ErrUnexpectedAck},
		{"padded zero id", "ACK00.1", 0, ErrUnexpectedAck},
		{"empty id", "ACK.1", 4, ErrMalformedAck},
		{"empty value", "ACK4.", 4, ErrMalformedAck},
		{"non numeric value", "ACK4.abc", 4, ErrMalformedAck},
		{"trailing newline", "ACK4.1\n", 4, ErrMalformedAck},
		{"trailing nul", "ACK4.1\x00", 4, ErrMalformedAck},
		{"value overflow", "ACK4.4294967296", 4, ErrMalformedAck},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAck(tt.text, tt.id)
			require.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestFormatAck(t *testing.T) {
	text := FormatAck(4, 123)
	assert.Equal(t, "ACK4.123", text)

	v, err := DecodeAck(text, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(123), v)
}
