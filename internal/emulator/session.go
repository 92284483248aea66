package emulator

import (
	"context"
	"encoding/binary"
	"net"
	"slices"
	"time"

	"github.com/cosanlab/go-trgen/instr"
	"github.com/cosanlab/go-trgen/line"
	"github.com/cosanlab/go-trgen/packet"
)

const readBufferSize = 4096

// chunk is one Read result with its arrival time.
type chunk struct {
	data []byte
	at   time.Time
}

// readTask forwards everything read from conn to chunks until ctx is done.
func readTask(ctx context.Context, conn net.Conn, chunks chan<- chunk) func() bool {
	buf := make([]byte, readBufferSize)

	return func() bool {
		n, err := conn.Read(buf)
		if n > 0 {
			select {
			case chunks <- chunk{data: slices.Clone(buf[:n]), at: time.Now()}:
			case <-ctx.Done():
				return false
			}
		}

		return err == nil
	}
}

// stream reassembles chunks into requests.
type stream struct {
	chunks    <-chan chunk
	pending   []byte
	pendingAt time.Time
}

// next returns exactly n bytes and the arrival time of the first of them.
func (s *stream) next(ctx context.Context, n int) ([]byte, time.Time, bool) {
	for len(s.pending) < n {
		select {
		case c, ok := <-s.chunks:
			if !ok {
				return nil, time.Time{}, false
			}
			if len(s.pending) == 0 {
				s.pendingAt = c.at
			}
			s.pending = append(s.pending, c.data...)
		case <-ctx.Done():
			return nil, time.Time{}, false
		}
	}

	data := slices.Clone(s.pending[:n])
	at := s.pendingAt
	s.pending = s.pending[n:]

	return data, at, true
}

// session serves the requests of one connection, one at a time.
type session struct {
	emu       *Emulator
	conn      net.Conn
	in        *stream
	lastReply time.Time
}

// serveOne reads, executes and answers one request.
func (s *session) serveOne() bool {
	e := s.emu
	ctx := e.taskMgr.Context()

	head, received, ok := s.in.next(ctx, packet.WordSize)
	if !ok {
		return false
	}
	cmd := binary.LittleEndian.Uint32(head)

	rest, _, ok := s.in.next(ctx, packet.Size(e.payloadWords(cmd))-packet.WordSize)
	if !ok {
		return false
	}

	seq := e.seq.Add(1)
	ex := Exchange{Seq: seq, Command: cmd, Received: received}

	e.mu.Lock()
	if !s.lastReply.IsZero() && received.Before(s.lastReply) {
		e.overlaps++
		e.logger.Warn("request arrived before the previous reply", "seq", seq, "cmd", cmd)
	}
	e.mu.Unlock()

	var reply string
	pkt, err := packet.Parse(append(head, rest...))
	if err != nil {
		e.logger.Warn("reject request", "seq", seq, "error", err)
		reply = e.reject()
	} else {
		reply = e.execute(pkt)
	}

	var action Action
	if h := e.hook.Load(); h != nil && pkt != nil {
		action = (*h)(seq, pkt)
	}
	if action.Reply != "" {
		reply = action.Reply
	}

	if action.Delay > 0 {
		select {
		case <-time.After(action.Delay):
		case <-ctx.Done():
			return false
		}
	}

	if !action.Drop {
		if _, err := s.conn.Write([]byte(reply)); err != nil {
			e.logger.Debug("write reply failed", "seq", seq, "error", err)
			return false
		}
		ex.Replied = time.Now()
		ex.Reply = reply
		s.lastReply = ex.Replied
	}

	e.mu.Lock()
	e.exchanges = append(e.exchanges, ex)
	e.mu.Unlock()

	return true
}

// payloadWords returns the number of payload words that follow cmd.
func (e *Emulator) payloadWords(cmd uint32) int {
	switch packet.AckID(cmd) {
	case packet.CmdProgramLine:
		return e.programWords
	case packet.CmdSetGPIO, packet.CmdSetLevel:
		return 1
	default:
		return 0
	}
}

func (e *Emulator) reject() string {
	e.mu.Lock()
	e.errCount++
	e.mu.Unlock()

	return ErrorReply
}

// execute applies pkt to the emulated state and returns the acknowledgement.
func (e *Emulator) execute(pkt *packet.Packet) string {
	id := packet.AckID(pkt.Command)
	var value uint32

	switch id {
	case packet.CmdProgramLine:
		target := packet.CommandLine(pkt.Command)
		if int(target) >= e.descriptor.Lines() {
			e.logger.Warn("program of unknown line", "line", target)
			return e.reject()
		}
		words := make([]instr.Word, len(pkt.Payload))
		for i, w := range pkt.Payload {
			words[i] = instr.Word(w)
		}
		e.lines.Store(line.ID(target), words)
	case packet.CmdStart:
		e.running.Store(true)
	case packet.CmdStop:
		e.running.Store(false)
	case packet.CmdSetGPIO:
		e.gpio.Store(pkt.Payload[0])
	case packet.CmdSetLevel:
		e.level.Store(pkt.Payload[0])
	case packet.CmdCapability:
		value = e.capWord
	case packet.CmdStatus:
		if e.running.Load() {
			value = 1
		}
	case packet.CmdGPIO:
		value = e.gpio.Load()
	case packet.CmdLevel:
		value = e.level.Load()
	default:
		e.logger.Warn("unknown command", "cmd", pkt.Command)
		return e.reject()
	}

	return packet.FormatAck(id, value)
}
