package trgen

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/cosanlab/go-trgen/packet"
)

// ackPrefix starts every acknowledgement; it is used to count late replies.
var ackPrefix = []byte("ACK")

// roundTrip writes one request and reads its acknowledgement. Only the worker
// calls it.
//
// The configured timeout bounds the write and the read. The response is read
// with a single Read: the device sends every acknowledgement in one segment.
func (c *Connection) roundTrip(conn net.Conn, req *request) (uint32, error) {
	if c.stale > 0 {
		c.drainStale(conn)
	}

	data := packet.Encode(req.cmd, req.payload)

	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.timeout)); err != nil {
		return 0, fmt.Errorf("%w: set write deadline: %w", ErrTransport, err)
	}
	c.metrics.incRequestCount()
	if _, err := conn.Write(data); err != nil {
		return 0, c.ioError("write", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.cfg.timeout)); err != nil {
		return 0, fmt.Errorf("%w: set read deadline: %w", ErrTransport, err)
	}
	n, err := conn.Read(c.respBuf)
	if err != nil {
		return 0, c.ioError("read", err)
	}
	c.broken.Store(false)

	return packet.DecodeAck(string(c.respBuf[:n]), packet.AckID(req.cmd))
}

// ioError classifies a socket error. Timeouts leave a reply possibly in
// flight, which the next round-trip discards before writing.
func (c *Connection) ioError(op string, err error) error {
	if isTimeout(err) {
		c.stale++
		c.metrics.incTimeoutCount()

		return fmt.Errorf("%w: %s after %v", ErrTimeout, op, c.cfg.timeout)
	}

	if isPeerClosed(err) {
		if !c.broken.Swap(true) {
			c.logger.Warn("device closed the connection", "op", op, "error", err)
		}
	}

	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}

// drainStale discards the late replies of timed out requests. It waits at
// most one timeout for them; a reply that never arrives is given up.
func (c *Connection) drainStale(conn net.Conn) {
	deadline := time.Now().Add(c.cfg.timeout)
	if err := conn.SetReadDeadline(deadline); err != nil {
		c.stale = 0
		return
	}

	for c.stale > 0 {
		n, err := conn.Read(c.respBuf)
		if n > 0 {
			late := bytes.Count(c.respBuf[:n], ackPrefix)
			if late == 0 {
				late = 1
			}
			c.metrics.addStaleReplyCount(late)
			c.logger.Debug("discard late reply", "reply", string(c.respBuf[:n]))
			c.stale -= min(late, c.stale)
		}
		if err != nil {
			if isPeerClosed(err) {
				c.broken.Store(true)
			}

			break
		}
	}

	c.stale = 0
}

func isTimeout(err error) bool {
	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

func isPeerClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, net.ErrClosed)
}
