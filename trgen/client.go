package trgen

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/cosanlab/go-trgen/instr"
	"github.com/cosanlab/go-trgen/internal/util"
	"github.com/cosanlab/go-trgen/line"
	"github.com/cosanlab/go-trgen/logger"
	"github.com/cosanlab/go-trgen/packet"
)

// Client maps line-oriented operations onto the requests of a Connection.
//
// Each operation queues all of its requests before waiting for any of them,
// so the programming of several lines and the shared start command travel
// back to back. Every request's result is observed; the first failures are
// returned joined.
type Client struct {
	conn   *Connection
	logger logger.Logger

	// images holds the last instruction memory acknowledged for each line.
	images *xsync.MapOf[line.ID, []instr.Word]
}

// NewClient creates a client and its Connection. The client is disconnected.
func NewClient(ctx context.Context, cfg *ConnectionConfig, handlers ...ConnStateChangeHandler) (*Client, error) {
	conn, err := NewConnection(ctx, cfg, handlers...)
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:   conn,
		logger: conn.GetLogger(),
		images: xsync.NewMapOf[line.ID, []instr.Word](),
	}

	// images describe the device of one session only
	conn.AddStateHandler(func(_ *Connection, _ ConnState, newState ConnState) {
		if newState == DisconnectedState {
			c.images.Clear()
		}
	})

	return c, nil
}

// Connect connects to the device; see Connection.Connect.
func (c *Client) Connect(ctx context.Context) error {
	return c.conn.Connect(ctx)
}

// Disconnect disconnects from the device; see Connection.Disconnect.
func (c *Client) Disconnect() error {
	return c.conn.Disconnect()
}

// Connection returns the underlying dispatcher.
func (c *Client) Connection() *Connection {
	return c.conn
}

// Layout returns the line layout of the connected device.
func (c *Client) Layout() line.Layout {
	return line.NewLayout(c.conn.Descriptor())
}

// NewMemory returns a reset instruction memory sized for the connected device.
func (c *Client) NewMemory() *line.Memory {
	return line.NewMemory(c.conn.Descriptor().MemoryLength)
}

// Start starts the programs of every line.
func (c *Client) Start(ctx context.Context) error {
	_, err := c.conn.Send(ctx, packet.CmdStart, nil)
	return err
}

// Stop stops every program.
func (c *Client) Stop(ctx context.Context) error {
	_, err := c.conn.Send(ctx, packet.CmdStop, nil)
	return err
}

// SetLevel sets the idle level mask.
func (c *Client) SetLevel(ctx context.Context, mask uint32) error {
	_, err := c.conn.Send(ctx, packet.CmdSetLevel, []uint32{mask})
	return err
}

// SetGPIO sets the general purpose output mask.
func (c *Client) SetGPIO(ctx context.Context, mask uint32) error {
	_, err := c.conn.Send(ctx, packet.CmdSetGPIO, []uint32{mask})
	return err
}

// Level returns the idle level mask.
func (c *Client) Level(ctx context.Context) (uint32, error) {
	return c.conn.Send(ctx, packet.CmdLevel, nil)
}

// Status returns the device status word.
func (c *Client) Status(ctx context.Context) (uint32, error) {
	return c.conn.Send(ctx, packet.CmdStatus, nil)
}

// GPIO returns the general purpose input/output mask.
func (c *Client) GPIO(ctx context.Context) (uint32, error) {
	return c.conn.Send(ctx, packet.CmdGPIO, nil)
}

// ProgramLine writes mem into the memory of id.
func (c *Client) ProgramLine(ctx context.Context, id line.ID, mem *line.Memory) error {
	b := c.newBatch()
	if err := b.program(id, mem); err != nil {
		return err
	}

	return b.wait(ctx)
}

// ReadLineMemory returns the last image acknowledged by the device for id
// during the current session.
func (c *Client) ReadLineMemory(id line.ID) ([]instr.Word, bool) {
	words, ok := c.images.Load(id)
	if !ok {
		return nil, false
	}

	return util.CloneSlice(words, 0), true
}

// WriteLineMemory programs id with words. Missing trailing slots are filled
// with not-admissible instructions.
func (c *Client) WriteLineMemory(ctx context.Context, id line.ID, words []instr.Word) error {
	mem := c.NewMemory()
	if err := mem.Load(words); err != nil {
		return err
	}

	return c.ProgramLine(ctx, id, mem)
}

// ResetLines writes the reset program into each of ids.
func (c *Client) ResetLines(ctx context.Context, ids ...line.ID) error {
	b := c.newBatch()
	if err := b.reset(ids...); err != nil {
		return err
	}

	return b.wait(ctx)
}

// ResetAll writes the reset program into every line.
func (c *Client) ResetAll(ctx context.Context) error {
	return c.ResetLines(ctx, c.Layout().All()...)
}

// StartTrigger pulses line id once with the configured pulse duration. Every
// other line is reset first.
func (c *Client) StartTrigger(ctx context.Context, id line.ID) error {
	return c.StartTriggerList(ctx, id)
}

// StartTriggerList pulses all of ids at once. Every other line is reset, each
// of ids is programmed with the default pulse, then a single start is sent.
func (c *Client) StartTriggerList(ctx context.Context, ids ...line.ID) error {
	return c.pulse(ctx, ids)
}

// StopTrigger stops every program and resets every line.
func (c *Client) StopTrigger(ctx context.Context) error {
	b := c.newBatch()
	b.send(packet.CmdStop, nil)
	if err := b.reset(c.Layout().All()...); err != nil {
		return err
	}

	return b.wait(ctx)
}

// pulse resets the lines not in ids, programs ids with the default pulse and
// starts.
func (c *Client) pulse(ctx context.Context, ids []line.ID) error {
	layout := c.Layout()
	for _, id := range ids {
		if int(id) >= layout.Total() {
			return fmt.Errorf("%w: line %d of %d", line.ErrIndexOutOfRange, id, layout.Total())
		}
	}

	pulse := c.NewMemory()
	if err := pulse.ProgramDefault(c.conn.cfg.pulseDuration); err != nil {
		return err
	}

	var idle []line.ID
	for _, id := range layout.All() {
		if !slices.Contains(ids, id) {
			idle = append(idle, id)
		}
	}

	b := c.newBatch()
	if err := b.reset(idle...); err != nil {
		return err
	}
	for _, id := range ids {
		if err := b.program(id, pulse); err != nil {
			return err
		}
	}
	b.send(packet.CmdStart, nil)

	return b.wait(ctx)
}

// batch collects the futures of one client operation.
type batch struct {
	c       *Client
	pending []pendingReq
}

type pendingReq struct {
	future *Future
	line   line.ID
	image  []instr.Word // nil unless the request programs a line
}

func (c *Client) newBatch() *batch {
	return &batch{c: c}
}

func (b *batch) send(cmd uint32, payload []uint32) {
	b.pending = append(b.pending, pendingReq{future: b.c.conn.SendAsync(cmd, payload)})
}

func (b *batch) program(id line.ID, mem *line.Memory) error {
	want := b.c.conn.Descriptor().MemoryLength
	if mem.Len() != want {
		return fmt.Errorf("%w: memory of %d slots for a device with %d", line.ErrIndexOutOfRange, mem.Len(), want)
	}

	fut := b.c.conn.SendAsync(packet.LineCommand(packet.CmdProgramLine, uint8(id)), mem.Payload())
	b.pending = append(b.pending, pendingReq{future: fut, line: id, image: mem.Words()})

	return nil
}

func (b *batch) reset(ids ...line.ID) error {
	if len(ids) == 0 {
		return nil
	}

	mem := b.c.NewMemory()
	for _, id := range ids {
		if err := b.program(id, mem); err != nil {
			return err
		}
	}

	return nil
}

// wait waits for every request of the batch and records the acknowledged
// line images.
func (b *batch) wait(ctx context.Context) error {
	var errs []error
	for _, p := range b.pending {
		_, err := p.future.Wait(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("command 0x%08X: %w", p.future.Command(), err))
			if ctx.Err() != nil {
				break
			}

			continue
		}
		if p.image != nil {
			b.c.images.Store(p.line, p.image)
		}
	}

	return errors.Join(errs...)
}
