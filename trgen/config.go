package trgen

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/cosanlab/go-trgen/capability"
	"github.com/cosanlab/go-trgen/instr"
	"github.com/cosanlab/go-trgen/logger"
)

// Default values of a ConnectionConfig.
const (
	DefaultPort           = 4242
	DefaultTimeout        = time.Second
	DefaultConnectTimeout = time.Second
	DefaultCloseTimeout   = 3 * time.Second
	DefaultPulseDuration  = 10000 // microseconds

	// DefaultResponseBufferSize fits the longest acknowledgement,
	// "ACK255.4294967295", with room to spare.
	DefaultResponseBufferSize = 64
)

// Range limits of a ConnectionConfig.
const (
	MinTimeout = time.Millisecond
	MaxTimeout = time.Minute

	MinResponseBufferSize = 16
	MaxResponseBufferSize = 4096
)

// ConnectionConfig holds the configuration of a Connection.
type ConnectionConfig struct {
	host string
	port int

	// timeout applies to the write and to the read of every round-trip.
	timeout        time.Duration
	connectTimeout time.Duration
	// closeTimeout bounds how long Disconnect lets the worker drain the queue.
	closeTimeout time.Duration

	// pulseDuration is the high time of the default pulse, in microseconds.
	pulseDuration uint32

	memDecoder     capability.MemoryLengthDecoder
	responseBufLen int

	logger logger.Logger
}

// NewConnectionConfig creates the configuration of a connection to host:port.
//
// opts are functional options applied in order; see With* functions.
func NewConnectionConfig(host string, port int, opts ...ConnOption) (*ConnectionConfig, error) {
	cfg := &ConnectionConfig{
		timeout:        DefaultTimeout,
		connectTimeout: DefaultConnectTimeout,
		closeTimeout:   DefaultCloseTimeout,
		pulseDuration:  DefaultPulseDuration,
		memDecoder:     capability.Direct,
		responseBufLen: DefaultResponseBufferSize,
		logger:         logger.GetLogger(),
	}

	if err := cfg.setHost(host); err != nil {
		return nil, err
	}
	if err := cfg.setPort(port); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (cfg *ConnectionConfig) setHost(host string) error {
	if ip := net.ParseIP(host); ip != nil {
		cfg.host = host
		return nil
	}

	host = strings.TrimPrefix(host, ".")
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return errors.New("trgen: empty host")
	}
	if _, err := net.LookupHost(host); err == nil {
		cfg.host = host
		return nil
	}

	return fmt.Errorf("trgen: invalid host %q", host)
}

func (cfg *ConnectionConfig) setPort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("trgen: port %d out of range [0, 65535]", port)
	}
	cfg.port = port

	return nil
}

// Host returns the configured host address.
func (cfg *ConnectionConfig) Host() string { return cfg.host }

// Port returns the configured TCP port.
func (cfg *ConnectionConfig) Port() int { return cfg.port }

// Addr returns "host:port".
func (cfg *ConnectionConfig) Addr() string {
	return net.JoinHostPort(cfg.host, strconv.Itoa(cfg.port))
}

// Timeout returns the round-trip timeout.
func (cfg *ConnectionConfig) Timeout() time.Duration { return cfg.timeout }

// ConnectTimeout returns the dial timeout.
func (cfg *ConnectionConfig) ConnectTimeout() time.Duration { return cfg.connectTimeout }

// CloseTimeout returns how long Disconnect waits for queued requests.
func (cfg *ConnectionConfig) CloseTimeout() time.Duration { return cfg.closeTimeout }

// PulseDuration returns the high time of the default pulse in microseconds.
func (cfg *ConnectionConfig) PulseDuration() uint32 { return cfg.pulseDuration }

// MemoryLengthDecoder returns the interpretation of the capability memory field.
func (cfg *ConnectionConfig) MemoryLengthDecoder() capability.MemoryLengthDecoder {
	return cfg.memDecoder
}

// ResponseBufferSize returns the size of the buffer a response is read into.
func (cfg *ConnectionConfig) ResponseBufferSize() int { return cfg.responseBufLen }

// GetLogger returns the configured logger.
func (cfg *ConnectionConfig) GetLogger() logger.Logger { return cfg.logger }

// ConnOption is a functional option for configuring a ConnectionConfig.
type ConnOption interface {
	apply(*ConnectionConfig) error
}

type connOptFunc func(*ConnectionConfig) error

func (f connOptFunc) apply(cfg *ConnectionConfig) error { return f(cfg) }

// WithTimeout sets the timeout applied to the write and to the read of each request.
func WithTimeout(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if d < MinTimeout || d > MaxTimeout {
			return fmt.Errorf("trgen: timeout %v out of range [%v, %v]", d, MinTimeout, MaxTimeout)
		}
		cfg.timeout = d

		return nil
	})
}

// WithConnectTimeout sets the TCP dial timeout.
func WithConnectTimeout(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if d <= 0 {
			return errors.New("trgen: connect timeout must be positive")
		}
		cfg.connectTimeout = d

		return nil
	})
}

// WithCloseTimeout sets how long Disconnect lets queued requests complete.
// Zero fails every queued request immediately.
func WithCloseTimeout(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if d < 0 {
			return errors.New("trgen: close timeout must not be negative")
		}
		cfg.closeTimeout = d

		return nil
	})
}

// WithPulseDuration sets the high time, in microseconds, of the pulse
// programmed by Client.StartTrigger and Client.SendMarker.
func WithPulseDuration(us uint32) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if us == 0 || us > instr.MaxDuration {
			return fmt.Errorf("trgen: pulse duration %d out of range [1, %d]", us, instr.MaxDuration)
		}
		cfg.pulseDuration = us

		return nil
	})
}

// WithMemoryLengthDecoder selects how the memory field of the capability
// descriptor is interpreted. The default is capability.Direct.
func WithMemoryLengthDecoder(dec capability.MemoryLengthDecoder) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if dec == nil {
			return errors.New("trgen: memory length decoder must not be nil")
		}
		cfg.memDecoder = dec

		return nil
	})
}

// WithResponseBufferSize sets the size of the buffer each response is read into.
func WithResponseBufferSize(n int) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if n < MinResponseBufferSize || n > MaxResponseBufferSize {
			return fmt.Errorf("trgen: response buffer size %d out of range [%d, %d]",
				n, MinResponseBufferSize, MaxResponseBufferSize)
		}
		cfg.responseBufLen = n

		return nil
	})
}

// WithLogger sets the logger for the connection.
func WithLogger(l logger.Logger) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if l == nil {
			return errors.New("trgen: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
