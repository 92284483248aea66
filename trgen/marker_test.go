package trgen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosanlab/go-trgen/capability"
	"github.com/cosanlab/go-trgen/line"
)

func TestMarker_Lines(t *testing.T) {
	layout := line.DefaultLayout()

	tests := []struct {
		name     string
		marker   Marker
		lsbFirst bool
		want     []line.ID
	}{
		{"msb first", Marker{ScannerA: 5}, false, []line.ID{5, 7}},
		{"lsb first", Marker{ScannerA: 5}, true, []line.ID{0, 2}},
		{"scanner B", Marker{ScannerB: 0x80}, false, []line.ID{8}},
		{"gpio", Marker{GPIO: 0x01}, true, []line.ID{18}},
		{"all groups", Marker{ScannerA: 0x80, ScannerB: 0x01, GPIO: 0xFF}, false,
			[]line.ID{0, 15, 18, 19, 20, 21, 22, 23, 24, 25}},
		{"zero", Marker{}, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := tt.marker.Lines(layout, tt.lsbFirst)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids)
		})
	}

	assert.True(t, Marker{}.IsZero())
	assert.False(t, Marker{GPIO: 1}.IsZero())
}

func TestMarker_LinesSmallGroup(t *testing.T) {
	layout := line.NewLayout(capability.Descriptor{ScannerA: 4, ScannerB: 8, GPIO: 8})

	_, err := Marker{ScannerA: 0x01}.Lines(layout, false)
	assert.ErrorIs(t, err, line.ErrIndexOutOfRange)

	ids, err := Marker{ScannerA: 0x01}.Lines(layout, true)
	require.NoError(t, err)
	assert.Equal(t, []line.ID{0}, ids)
}

func TestClient_SendMarker(t *testing.T) {
	emu := startEmulator(t)
	client := newConnectedClient(t, emu)

	require.NoError(t, client.SendMarker(context.Background(), Marker{ScannerA: 5}, false))

	pulse := pulseWords(t, line.DefaultMemoryLength, DefaultPulseDuration)
	reset := resetWords(line.DefaultMemoryLength)
	for _, id := range client.Layout().All() {
		words, ok := emu.LineMemory(id)
		require.True(t, ok)
		if id == 5 || id == 7 {
			assert.Equal(t, pulse, words, "line %d", id)
		} else {
			assert.Equal(t, reset, words, "line %d", id)
		}
	}
	assert.True(t, emu.Running())

	require.NoError(t, client.SendMarker(context.Background(), Marker{ScannerA: 5}, true))
	for _, id := range []line.ID{0, 2} {
		words, _ := emu.LineMemory(id)
		assert.Equal(t, pulse, words, "line %d", id)
	}
	for _, id := range []line.ID{5, 7} {
		words, _ := emu.LineMemory(id)
		assert.Equal(t, reset, words, "line %d", id)
	}
	requireSequential(t, emu)
}
