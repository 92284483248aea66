package line

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosanlab/go-trgen/capability"
)

func TestDefaultLayout(t *testing.T) {
	l := DefaultLayout()
	assert.Equal(t, 26, l.Total())

	tests := []struct {
		group Group
		first ID
		count int
	}{
		{ScannerA, 0, 8},
		{ScannerB, 8, 8},
		{Stimulator, 16, 2},
		{GPIO, 18, 8},
	}

	for _, tt := range tests {
		t.Run(tt.group.String(), func(t *testing.T) {
			assert.Equal(t, tt.count, l.Count(tt.group))
			id, err := l.Line(tt.group, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.first, id)

			_, err = l.Line(tt.group, tt.count)
			assert.ErrorIs(t, err, ErrIndexOutOfRange)

			g, ok := l.GroupOf(tt.first)
			assert.True(t, ok)
			assert.Equal(t, tt.group, g)
		})
	}

	_, ok := l.GroupOf(26)
	assert.False(t, ok)
	assert.Len(t, l.All(), 26)
}

func TestNewLayout_FromDescriptor(t *testing.T) {
	l := NewLayout(capability.Descriptor{ScannerA: 4, ScannerB: 0, Stimulator: 1, GPIO: 2})

	assert.Equal(t, []ID{0, 1, 2, 3}, l.Lines(ScannerA))
	assert.Empty(t, l.Lines(ScannerB))
	assert.Equal(t, []ID{4}, l.Lines(Stimulator))
	assert.Equal(t, []ID{5, 6}, l.Lines(GPIO))
	assert.Equal(t, "group(9)", Group(9).String())

	_, err := l.Line(Group(9), 0)
	assert.Error(t, err)
}
