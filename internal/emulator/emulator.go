// Package emulator implements an in-process stand-in for the trigger generator.
//
// The emulator accepts TCP connections, verifies each request's checksum,
// keeps the instruction memory of every line and answers with the same ASCII
// acknowledgements as the device. Replies can be delayed or dropped to
// exercise timeout handling, and every exchange is recorded so tests can check
// that a client never pipelines requests.
package emulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/cosanlab/go-trgen/capability"
	"github.com/cosanlab/go-trgen/instr"
	"github.com/cosanlab/go-trgen/internal/task"
	"github.com/cosanlab/go-trgen/internal/util"
	"github.com/cosanlab/go-trgen/line"
	"github.com/cosanlab/go-trgen/logger"
	"github.com/cosanlab/go-trgen/packet"
)

// ErrorReply is sent instead of an acknowledgement for requests the emulator
// cannot accept.
const ErrorReply = "ERR"

// Action alters how the emulator answers one request.
type Action struct {
	// Delay postpones the reply.
	Delay time.Duration
	// Drop suppresses the reply.
	Drop bool
	// Reply replaces the acknowledgement text when not empty.
	Reply string
}

// Hook decides the Action for a request. seq counts requests from 1 across
// all connections.
type Hook func(seq int64, pkt *packet.Packet) Action

// Exchange records one request and its reply.
type Exchange struct {
	Seq      int64
	Command  uint32
	Received time.Time // arrival of the first byte of the request
	Replied  time.Time // zero when the reply was dropped
	Reply    string
}

// Option configures an Emulator.
type Option func(*Emulator) error

// WithDescriptor sets the hardware the emulator reports. The default is
// capability.Default.
func WithDescriptor(d capability.Descriptor) Option {
	return func(e *Emulator) error {
		e.descriptor = d
		return nil
	}
}

// WithMemoryLengthEncoder sets how the memory length is written into the
// capability word. The default is capability.Direct.
func WithMemoryLengthEncoder(enc capability.MemoryLengthDecoder) Option {
	return func(e *Emulator) error {
		if enc == nil {
			return errors.New("emulator: nil memory length encoder")
		}
		e.encoder = enc

		return nil
	}
}

// WithCapabilityWord reports packed verbatim instead of encoding the descriptor.
// The emulator still sizes program requests from the descriptor.
func WithCapabilityWord(packed uint32) Option {
	return func(e *Emulator) error {
		e.rawCapability = &packed
		return nil
	}
}

// WithHook sets the reply hook.
func WithHook(h Hook) Option {
	return func(e *Emulator) error {
		e.SetHook(h)
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Emulator) error {
		if l == nil {
			return errors.New("emulator: nil logger")
		}
		e.logger = l

		return nil
	}
}

// Emulator is an emulated device.
type Emulator struct {
	logger  logger.Logger
	taskMgr *task.Manager

	descriptor    capability.Descriptor
	encoder       capability.MemoryLengthDecoder
	rawCapability *uint32
	capWord       uint32
	programWords  int

	listener net.Listener
	conns    *xsync.MapOf[string, net.Conn]

	lines   *xsync.MapOf[line.ID, []instr.Word]
	level   atomic.Uint32
	gpio    atomic.Uint32
	running atomic.Bool
	seq     atomic.Int64
	hook    atomic.Pointer[Hook]

	mu        sync.Mutex
	exchanges []Exchange
	overlaps  int
	errCount  int
}

// New creates an emulator. It does not listen until Listen is called.
func New(ctx context.Context, opts ...Option) (*Emulator, error) {
	e := &Emulator{
		logger:     logger.GetLogger(),
		descriptor: capability.Default,
		encoder:    capability.Direct,
		conns:      xsync.NewMapOf[string, net.Conn](),
		lines:      xsync.NewMapOf[line.ID, []instr.Word](),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	if e.rawCapability != nil {
		e.capWord = *e.rawCapability
	} else {
		packed, err := capability.Encode(e.descriptor, e.encoder)
		if err != nil {
			return nil, fmt.Errorf("emulator: %w", err)
		}
		e.capWord = packed
	}

	e.programWords = capability.Decode(e.capWord, e.encoder).MemoryLength
	if e.programWords < line.MinMemoryLength {
		e.programWords = line.DefaultMemoryLength
	}

	e.logger = e.logger.With("component", "emulator")
	e.taskMgr = task.NewManager(ctx, e.logger)

	return e, nil
}

// Listen starts accepting connections on addr, e.g. "127.0.0.1:0".
func (e *Emulator) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("emulator: listen %s: %w", addr, err)
	}
	e.listener = ln
	e.logger.Info("emulator listening", "addr", ln.Addr().String(), "capability", e.descriptor.String())

	return e.taskMgr.Start("accept", e.acceptTask, nil)
}

// Addr returns the listening address.
func (e *Emulator) Addr() net.Addr {
	if e.listener == nil {
		return nil
	}

	return e.listener.Addr()
}

// Port returns the listening TCP port.
func (e *Emulator) Port() int {
	if addr, ok := e.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}

	return 0
}

// Close stops listening and closes every connection.
func (e *Emulator) Close() error {
	e.taskMgr.Stop()

	var err error
	if e.listener != nil {
		err = e.listener.Close()
	}
	e.DropConnections()
	e.taskMgr.Wait()

	if errors.Is(err, net.ErrClosed) {
		return nil
	}

	return err
}

// DropConnections closes every accepted connection, as a device reset would.
func (e *Emulator) DropConnections() {
	e.conns.Range(func(key string, conn net.Conn) bool {
		_ = conn.Close()
		e.conns.Delete(key)

		return true
	})
}

// SetHook replaces the reply hook. A nil hook answers every request normally.
func (e *Emulator) SetHook(h Hook) {
	if h == nil {
		e.hook.Store(nil)
		return
	}
	e.hook.Store(&h)
}

// Capability returns the packed capability word the emulator reports.
func (e *Emulator) Capability() uint32 { return e.capWord }

// LineMemory returns the last image programmed into id.
func (e *Emulator) LineMemory(id line.ID) ([]instr.Word, bool) {
	words, ok := e.lines.Load(id)
	if !ok {
		return nil, false
	}

	return util.CloneSlice(words, 0), true
}

// ProgrammedLines returns the ids of every programmed line in ascending order.
func (e *Emulator) ProgrammedLines() []line.ID {
	ids := make([]line.ID, 0, e.lines.Size())
	e.lines.Range(func(id line.ID, _ []instr.Word) bool {
		ids = append(ids, id)
		return true
	})
	slices.Sort(ids)

	return ids
}

// Running reports whether the last start was not followed by a stop.
func (e *Emulator) Running() bool { return e.running.Load() }

// Level returns the last level mask.
func (e *Emulator) Level() uint32 { return e.level.Load() }

// GPIO returns the last GPIO mask.
func (e *Emulator) GPIO() uint32 { return e.gpio.Load() }

// Exchanges returns a copy of the exchange log.
func (e *Emulator) Exchanges() []Exchange {
	e.mu.Lock()
	defer e.mu.Unlock()

	return slices.Clone(e.exchanges)
}

// Commands returns the command ids of the exchange log in arrival order.
func (e *Emulator) Commands() []uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()

	cmds := make([]uint32, len(e.exchanges))
	for i, ex := range e.exchanges {
		cmds[i] = ex.Command
	}

	return cmds
}

// Overlaps returns how many requests started arriving before the previous
// reply on the same connection was sent.
func (e *Emulator) Overlaps() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.overlaps
}

// Errors returns how many requests were answered with ErrorReply.
func (e *Emulator) Errors() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.errCount
}

// ResetLog clears the exchange log and counters.
func (e *Emulator) ResetLog() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.exchanges = nil
	e.overlaps = 0
	e.errCount = 0
}

func (e *Emulator) acceptTask() bool {
	conn, err := e.listener.Accept()
	if err != nil {
		if !errors.Is(err, net.ErrClosed) {
			e.logger.Error("accept failed", "error", err)
		}

		return false
	}

	key := conn.RemoteAddr().String()
	e.conns.Store(key, conn)
	e.logger.Debug("accepted connection", "remote", key)

	chunks := make(chan chunk, 16)
	closeChunks := func() { close(chunks) }
	closeConn := func() {
		_ = conn.Close()
		e.conns.Delete(key)
	}

	if err := e.taskMgr.Start("reader-"+key, readTask(e.taskMgr.Context(), conn, chunks), closeChunks); err != nil {
		closeChunks()
		closeConn()

		return false
	}

	s := &session{emu: e, conn: conn, in: &stream{chunks: chunks}}
	if err := e.taskMgr.Start("session-"+key, s.serveOne, closeConn); err != nil {
		closeConn()
		return false
	}

	return true
}
