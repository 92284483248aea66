package trgen

import "errors"

var (
	// ErrConnectTimeout is returned when the device cannot be reached within the connect timeout.
	ErrConnectTimeout = errors.New("trgen: connect timeout")
	// ErrTransport wraps socket failures other than timeouts.
	ErrTransport = errors.New("trgen: transport error")
	// ErrTimeout is returned when a round-trip exceeds the request timeout.
	ErrTimeout = errors.New("trgen: request timeout")
	// ErrDisconnected is returned for requests submitted after Disconnect started,
	// and for requests still queued when the connection closed.
	ErrDisconnected = errors.New("trgen: disconnected")
	// ErrNotConnected is returned for requests submitted before Connect succeeded.
	ErrNotConnected = errors.New("trgen: not connected")
	// ErrAlreadyConnected is returned by Connect on a connection that is not disconnected.
	ErrAlreadyConnected = errors.New("trgen: already connected")
)
