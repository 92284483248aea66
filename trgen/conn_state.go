package trgen

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cosanlab/go-trgen/logger"
)

// ConnState is the lifecycle stage of a Connection.
type ConnState uint32

const (
	// DisconnectedState indicates that no socket is open.
	DisconnectedState ConnState = iota
	// ConnectingState indicates that the socket is being dialed or the capability
	// descriptor has not been read yet.
	ConnectingState
	// ConnectedState indicates that the connection accepts requests.
	ConnectedState
)

// String returns string representation of the state.
func (cs ConnState) String() string {
	switch cs {
	case DisconnectedState:
		return "disconnected"
	case ConnectingState:
		return "connecting"
	case ConnectedState:
		return "connected"
	default:
		return "unknown"
	}
}

// ConnStateChangeHandler is invoked after each state transition of a Connection.
//
// Note: the handler is invoked synchronously by the goroutine performing the
// transition. Take care with long-running implementations.
type ConnStateChangeHandler func(conn *Connection, prevState ConnState, newState ConnState)

// connStateMgr holds the state of a Connection and notifies handlers and waiters
// of transitions.
type connStateMgr struct {
	mu       sync.Mutex
	cond     *sync.Cond
	state    atomic.Uint32
	conn     *Connection
	logger   logger.Logger
	handlers []ConnStateChangeHandler
}

func newConnStateMgr(conn *Connection, l logger.Logger) *connStateMgr {
	cs := &connStateMgr{conn: conn, logger: l}
	cs.cond = sync.NewCond(&cs.mu)
	cs.state.Store(uint32(DisconnectedState))

	return cs
}

func (cs *connStateMgr) State() ConnState {
	return ConnState(cs.state.Load())
}

func (cs *connStateMgr) addHandler(handlers ...ConnStateChangeHandler) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.handlers = append(cs.handlers, handlers...)
}

// transition moves from one of the allowed states to newState. It reports
// false, without side effects, when the current state is not allowed.
func (cs *connStateMgr) transition(newState ConnState, allowed ...ConnState) bool {
	cs.mu.Lock()
	curState := cs.State()

	ok := len(allowed) == 0
	for _, s := range allowed {
		if s == curState {
			ok = true
			break
		}
	}
	if !ok || curState == newState {
		cs.mu.Unlock()
		return false
	}

	cs.state.Store(uint32(newState))
	cs.cond.Broadcast()
	handlers := append([]ConnStateChangeHandler(nil), cs.handlers...)
	cs.mu.Unlock()

	cs.logger.Debug("connection state changed", "prevState", curState, "newState", newState)
	for _, handler := range handlers {
		if handler != nil {
			handler(cs.conn, curState, newState)
		}
	}

	return true
}

func (cs *connStateMgr) toConnecting() bool {
	return cs.transition(ConnectingState, DisconnectedState)
}

func (cs *connStateMgr) toConnected() bool {
	return cs.transition(ConnectedState, ConnectingState)
}

func (cs *connStateMgr) toDisconnected() bool {
	return cs.transition(DisconnectedState)
}

// waitState waits until the state equals state or ctx is done.
func (cs *connStateMgr) waitState(ctx context.Context, state ConnState) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.State() == state {
		return nil
	}

	stopFunc := context.AfterFunc(ctx, func() {
		cs.mu.Lock()
		cs.cond.Broadcast()
		cs.mu.Unlock()
	})
	defer stopFunc()

	for cs.State() != state {
		if err := ctx.Err(); err != nil {
			return err
		}
		cs.cond.Wait()
	}

	return nil
}
