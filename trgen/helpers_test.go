package trgen

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cosanlab/go-trgen/internal/emulator"
	"github.com/cosanlab/go-trgen/logger"
)

const testTimeout = 200 * time.Millisecond

var (
	addrPool      = make(map[string]struct{})
	addrPoolMutex sync.Mutex
)

// getPort returns a localhost port that nothing listens on and that no other
// test received.
func getPort() int {
	for {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			panic("failed to get random listener: " + err.Error())
		}

		addr := listener.Addr().String()
		port := listener.Addr().(*net.TCPAddr).Port
		_ = listener.Close()

		addrPoolMutex.Lock()
		if _, existed := addrPool[addr]; existed {
			addrPoolMutex.Unlock()

			continue
		}
		addrPool[addr] = struct{}{}
		addrPoolMutex.Unlock()

		return port
	}
}

// startEmulator starts an emulator on a random port, closed at test cleanup.
func startEmulator(t *testing.T, opts ...emulator.Option) *emulator.Emulator {
	t.Helper()

	opts = append([]emulator.Option{emulator.WithLogger(logger.NewNop())}, opts...)
	emu, err := emulator.New(context.Background(), opts...)
	require.NoError(t, err)
	require.NoError(t, emu.Listen("127.0.0.1:0"))
	t.Cleanup(func() { _ = emu.Close() })

	return emu
}

// newTestConfig creates a ConnectionConfig with short timeouts suitable for tests.
func newTestConfig(t *testing.T, port int, opts ...ConnOption) *ConnectionConfig {
	t.Helper()

	defaults := []ConnOption{
		WithTimeout(testTimeout),
		WithConnectTimeout(time.Second),
		WithCloseTimeout(time.Second),
		WithLogger(logger.NewNop()),
	}

	cfg, err := NewConnectionConfig("127.0.0.1", port, append(defaults, opts...)...)
	require.NoError(t, err)

	return cfg
}

// connect returns a connected Connection to emu, disconnected at test cleanup.
func connect(t *testing.T, emu *emulator.Emulator, opts ...ConnOption) *Connection {
	t.Helper()

	conn, err := NewConnection(context.Background(), newTestConfig(t, emu.Port(), opts...))
	require.NoError(t, err)
	require.NoError(t, conn.Connect(context.Background()))
	t.Cleanup(func() { _ = conn.Disconnect() })

	return conn
}

// newConnectedClient returns a connected Client to emu, disconnected at test cleanup.
func newConnectedClient(t *testing.T, emu *emulator.Emulator, opts ...ConnOption) *Client {
	t.Helper()

	client, err := NewClient(context.Background(), newTestConfig(t, emu.Port(), opts...))
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(func() { _ = client.Disconnect() })

	return client
}

// requireSequential fails when two exchanges overlapped on the wire.
func requireSequential(t *testing.T, emu *emulator.Emulator) {
	t.Helper()

	require.Zero(t, emu.Overlaps())
	ex := emu.Exchanges()
	for i := 1; i < len(ex); i++ {
		if ex[i-1].Replied.IsZero() {
			continue
		}
		require.False(t, ex[i].Received.Before(ex[i-1].Replied),
			"request %d arrived before the reply of request %d", ex[i].Seq, ex[i-1].Seq)
	}
}
