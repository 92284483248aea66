package trgen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cosanlab/go-trgen/logger"
)

func TestConnState_String(t *testing.T) {
	assert.Equal(t, "disconnected", DisconnectedState.String())
	assert.Equal(t, "connecting", ConnectingState.String())
	assert.Equal(t, "connected", ConnectedState.String())
	assert.Equal(t, "unknown", ConnState(9).String())
}

func TestConnStateMgr_Transitions(t *testing.T) {
	cs := newConnStateMgr(nil, logger.NewNop())

	var calls [][2]ConnState
	cs.addHandler(func(_ *Connection, prev, cur ConnState) {
		calls = append(calls, [2]ConnState{prev, cur})
	})

	assert.False(t, cs.toConnected(), "connected requires connecting")
	assert.False(t, cs.toDisconnected(), "already disconnected")
	assert.True(t, cs.toConnecting())
	assert.False(t, cs.toConnecting())
	assert.True(t, cs.toConnected())
	assert.True(t, cs.toDisconnected())

	assert.Equal(t, [][2]ConnState{
		{DisconnectedState, ConnectingState},
		{ConnectingState, ConnectedState},
		{ConnectedState, DisconnectedState},
	}, calls)
}
