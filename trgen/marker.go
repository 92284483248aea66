package trgen

import (
	"context"
	"fmt"

	"github.com/cosanlab/go-trgen/internal/util"
	"github.com/cosanlab/go-trgen/line"
)

// Marker is an 8-bit value per line group, sent as one pulse on the line of
// every set bit.
type Marker struct {
	ScannerA uint8
	ScannerB uint8
	GPIO     uint8
}

// IsZero reports whether no bit is set in any group.
func (m Marker) IsZero() bool {
	return m == Marker{}
}

// Lines returns the lines that carry m.
//
// By default bits are read most significant first: position p of a group is
// active when bit 7-p is set, so 0b00000101 selects positions 5 and 7. With
// lsbFirst position p is active when bit p is set.
func (m Marker) Lines(layout line.Layout, lsbFirst bool) ([]line.ID, error) {
	groups := []struct {
		group line.Group
		value uint8
	}{
		{line.ScannerA, m.ScannerA},
		{line.ScannerB, m.ScannerB},
		{line.GPIO, m.GPIO},
	}

	var ids []line.ID
	for _, g := range groups {
		for _, pos := range util.SetBits(g.value, !lsbFirst) {
			id, err := layout.Line(g.group, pos)
			if err != nil {
				return nil, fmt.Errorf("marker %s=0x%02X: %w", g.group, g.value, err)
			}
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// SendMarker pulses the lines selected by m, in all three groups at once, and
// resets every other line.
func (c *Client) SendMarker(ctx context.Context, m Marker, lsbFirst bool) error {
	ids, err := m.Lines(c.Layout(), lsbFirst)
	if err != nil {
		return err
	}
	c.logger.Debug("send marker", "scannerA", m.ScannerA, "scannerB", m.ScannerB, "gpio", m.GPIO,
		"lsbFirst", lsbFirst, "lines", ids)

	return c.pulse(ctx, ids)
}
