package trgen

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/cosanlab/go-trgen/capability"
	"github.com/cosanlab/go-trgen/internal/pool"
	"github.com/cosanlab/go-trgen/internal/queue"
	"github.com/cosanlab/go-trgen/internal/task"
	"github.com/cosanlab/go-trgen/line"
	"github.com/cosanlab/go-trgen/logger"
	"github.com/cosanlab/go-trgen/packet"
)

// request is one queued round-trip.
type request struct {
	cmd     uint32
	payload []uint32
	future  *Future
}

// Connection is the command dispatcher of one device.
//
// It owns the socket and a single worker goroutine. Requests from any number
// of goroutines are queued without blocking and sent strictly one at a time,
// in submission order.
type Connection struct {
	pctx   context.Context
	cfg    *ConnectionConfig
	logger logger.Logger

	stateMgr *connStateMgr
	taskMgr  *task.Manager

	// lifecycle serializes Connect and Disconnect.
	lifecycle sync.Mutex

	// acceptMu guards rejectErr. Submitters hold the read lock while enqueueing
	// so that Disconnect, holding the write lock, knows no request is added after
	// it flipped rejectErr.
	acceptMu  sync.RWMutex
	rejectErr error

	connMutex sync.RWMutex
	tcpConn   net.Conn

	queue    *queue.LockFree[*request]
	wake     chan struct{}
	draining atomic.Bool
	drained  chan struct{}

	// broken is set by the worker when the socket reported EOF or a reset.
	broken atomic.Bool
	// stale counts timed out requests whose reply may still arrive.
	stale int
	// respBuf is owned by the worker.
	respBuf []byte

	descriptor atomic.Pointer[capability.Descriptor]

	metrics ConnectionMetrics
}

// NewConnection creates a disconnected Connection.
//
// ctx is the parent of the worker's context. Cancelling it disconnects the
// connection and fails every pending request with ErrDisconnected; a connection
// whose parent is done cannot connect again.
func NewConnection(ctx context.Context, cfg *ConnectionConfig, handlers ...ConnStateChangeHandler) (*Connection, error) {
	if cfg == nil {
		return nil, errors.New("trgen: connection config is nil")
	}

	c := &Connection{
		pctx:      ctx,
		cfg:       cfg,
		logger:    cfg.logger.With("addr", cfg.Addr()),
		rejectErr: ErrNotConnected,
		queue:     queue.NewLockFree[*request](),
		wake:      make(chan struct{}, 1),
		respBuf:   make([]byte, cfg.responseBufLen),
	}
	c.taskMgr = task.NewManager(ctx, c.logger)
	c.stateMgr = newConnStateMgr(c, c.logger)
	c.stateMgr.addHandler(handlers...)

	context.AfterFunc(ctx, func() {
		c.logger.Debug("parent context done, disconnect", "cause", context.Cause(ctx))
		_ = c.Disconnect()
	})

	return c, nil
}

// AddStateHandler registers handlers invoked on every state transition.
func (c *Connection) AddStateHandler(handlers ...ConnStateChangeHandler) {
	c.stateMgr.addHandler(handlers...)
}

// State returns the current lifecycle state.
func (c *Connection) State() ConnState {
	return c.stateMgr.State()
}

// WaitState blocks until the connection reaches state or ctx is done.
func (c *Connection) WaitState(ctx context.Context, state ConnState) error {
	return c.stateMgr.waitState(ctx, state)
}

// IsConnected reports whether the connection is connected and the last
// round-trip did not find the socket closed by the peer.
//
// The value is advisory: it may change right after it is read.
func (c *Connection) IsConnected() bool {
	return c.State() == ConnectedState && !c.broken.Load()
}

// Descriptor returns the capability descriptor read by the last successful
// Connect, or capability.Default before that.
func (c *Connection) Descriptor() capability.Descriptor {
	if d := c.descriptor.Load(); d != nil {
		return *d
	}

	return capability.Default
}

// Config returns the configuration of the connection.
func (c *Connection) Config() *ConnectionConfig {
	return c.cfg
}

// GetLogger returns the logger of the connection.
func (c *Connection) GetLogger() logger.Logger {
	return c.logger
}

// GetMetrics returns the metrics of the connection.
func (c *Connection) GetMetrics() *ConnectionMetrics {
	return &c.metrics
}

// Connect dials the device, starts the worker and reads the capability
// descriptor. The capability request is the first request of the session;
// other submissions are rejected with ErrNotConnected until Connect returns.
//
// Connect fails with ErrAlreadyConnected unless the connection is disconnected,
// with ErrDisconnected once the parent context is done, with ErrConnectTimeout
// if the dial exceeds the connect timeout, and with the request error if the
// capability request fails.
func (c *Connection) Connect(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.pctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrDisconnected, context.Cause(c.pctx))
	}

	if !c.stateMgr.toConnecting() {
		return ErrAlreadyConnected
	}

	addr := c.cfg.Addr()
	c.logger.Debug("dial device", "timeout", c.cfg.connectTimeout)

	dialer := net.Dialer{Timeout: c.cfg.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.stateMgr.toDisconnected()
		if isTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s after %v: %w", ErrConnectTimeout, addr, c.cfg.connectTimeout, err)
		}

		return fmt.Errorf("%w: dial %s: %w", ErrTransport, addr, err)
	}

	c.connMutex.Lock()
	c.tcpConn = conn
	c.connMutex.Unlock()

	c.queue.Reset()
	c.broken.Store(false)
	c.draining.Store(false)
	c.drained = make(chan struct{})
	c.stale = 0

	if err := c.taskMgr.Start("worker", c.workerTask, c.workerExit); err != nil {
		// no worker will close drained
		close(c.drained)
		c.teardown(ErrNotConnected)
		return fmt.Errorf("trgen: start worker: %w", err)
	}

	fut := c.enqueue(packet.CmdCapability, nil)
	packed, err := fut.Wait(ctx)
	if err != nil {
		c.teardown(ErrNotConnected)
		return fmt.Errorf("trgen: read capability: %w", err)
	}

	desc := capability.Decode(packed, c.cfg.memDecoder)
	if desc.MemoryLength < line.MinMemoryLength {
		c.logger.Warn("device reported an unusable memory length, using the default",
			"reported", desc.MemoryLength, "default", line.DefaultMemoryLength,
			"decoder", c.cfg.memDecoder.Name())
		desc.MemoryLength = line.DefaultMemoryLength
	}
	c.descriptor.Store(&desc)

	c.acceptMu.Lock()
	c.rejectErr = nil
	c.acceptMu.Unlock()

	c.metrics.incConnectCount()
	c.stateMgr.toConnected()
	c.logger.Info("connected to device", "capability", desc.String())

	return nil
}

// Disconnect stops accepting requests, lets the worker complete the queued
// ones for up to the close timeout, and closes the socket. Requests submitted
// after Disconnect started, and requests still queued when the timeout
// expires, fail with ErrDisconnected.
//
// Disconnect on a connection that is not connected is a no-op.
func (c *Connection) Disconnect() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.State() != ConnectedState {
		return nil
	}

	c.logger.Debug("start to disconnect", "queued", c.queue.Length())

	return c.teardown(ErrDisconnected)
}

// teardown rejects new submissions with reject, drains the queue, stops the
// worker and closes the socket.
func (c *Connection) teardown(reject error) error {
	c.acceptMu.Lock()
	c.rejectErr = reject
	c.acceptMu.Unlock()

	c.draining.Store(true)
	c.notify()

	if pool.After(c.cfg.closeTimeout, c.drained) {
		c.logger.Warn("close timeout, abandon queued requests",
			"timeout", c.cfg.closeTimeout, "queued", c.queue.Length())
	}

	c.taskMgr.Stop()

	var closeErr error
	c.connMutex.Lock()
	if c.tcpConn != nil {
		if err := c.tcpConn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			closeErr = fmt.Errorf("%w: close: %w", ErrTransport, err)
		}
		c.tcpConn = nil
	}
	c.connMutex.Unlock()

	c.taskMgr.Wait()

	for {
		req, ok := c.queue.Dequeue()
		if !ok {
			break
		}
		c.complete(req, 0, ErrDisconnected)
	}

	c.stateMgr.toDisconnected()
	c.logger.Debug("disconnected")

	return closeErr
}

// SendAsync queues a request and returns immediately. The returned Future is
// resolved with the acknowledged value once the worker completed the
// round-trip, or with the error that ended it.
func (c *Connection) SendAsync(cmd uint32, payload []uint32) *Future {
	c.acceptMu.RLock()
	defer c.acceptMu.RUnlock()

	if c.rejectErr != nil {
		return resolvedFuture(cmd, c.rejectErr)
	}

	return c.enqueue(cmd, payload)
}

// Send queues a request and waits for its result.
//
// Cancelling ctx abandons the wait but not the request.
func (c *Connection) Send(ctx context.Context, cmd uint32, payload []uint32) (uint32, error) {
	return c.SendAsync(cmd, payload).Wait(ctx)
}

func (c *Connection) enqueue(cmd uint32, payload []uint32) *Future {
	req := &request{cmd: cmd, payload: payload, future: newFuture(cmd)}
	c.metrics.incQueueGauge()
	c.queue.Enqueue(req)
	c.notify()

	return req.future
}

// notify wakes the worker without blocking.
func (c *Connection) notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Connection) complete(req *request, value uint32, err error) {
	if err != nil {
		c.metrics.incErrorCount()
	}
	c.metrics.decQueueGauge()
	req.future.resolve(value, err)
}

// workerTask drains the queue, then sleeps until notified. It ends after the
// queue was drained once draining is set, or when its context is done.
func (c *Connection) workerTask() bool {
	ctx := c.taskMgr.Context()

	for {
		if ctx.Err() != nil {
			return false
		}

		req, ok := c.queue.Dequeue()
		if !ok {
			break
		}
		c.process(ctx, req)
	}

	if c.draining.Load() && c.queue.IsEmpty() {
		return false
	}

	select {
	case <-c.wake:
		return true
	case <-ctx.Done():
		return false
	}
}

// workerExit runs once on every exit of the worker. Nothing dequeues after it,
// so it stops accepting requests and fails the ones still queued.
func (c *Connection) workerExit() {
	c.acceptMu.Lock()
	if c.rejectErr == nil {
		c.rejectErr = ErrDisconnected
	}
	c.acceptMu.Unlock()

	for {
		req, ok := c.queue.Dequeue()
		if !ok {
			break
		}
		c.complete(req, 0, ErrDisconnected)
	}

	close(c.drained)
}

func (c *Connection) process(ctx context.Context, req *request) {
	c.connMutex.RLock()
	conn := c.tcpConn
	c.connMutex.RUnlock()

	if conn == nil {
		c.complete(req, 0, ErrDisconnected)
		return
	}

	value, err := c.roundTrip(conn, req)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ErrDisconnected, err)
		}
		c.logger.Debug("request failed", "cmd", fmt.Sprintf("0x%08X", req.cmd), "error", err)
		c.complete(req, 0, err)

		return
	}

	c.metrics.incAckCount()
	c.complete(req, value, nil)
}
