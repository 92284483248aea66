// Package line models the addressable output lines of the device and the
// instruction memory attached to each of them.
package line

import (
	"fmt"

	"github.com/cosanlab/go-trgen/capability"
)

// ID addresses one output line. It is sent in the high byte of the program
// command, so at most 256 lines are addressable.
type ID uint8

// Group is a family of lines. Groups are laid out contiguously in declaration
// order: scanner A first, general purpose last.
type Group uint8

const (
	ScannerA Group = iota
	ScannerB
	Stimulator
	GPIO

	numGroups
)

var groupNames = [numGroups]string{"scannerA", "scannerB", "stimulator", "gpio"}

func (g Group) String() string {
	if g < numGroups {
		return groupNames[g]
	}

	return fmt.Sprintf("group(%d)", uint8(g))
}

// Groups lists every group in layout order.
func Groups() []Group {
	return []Group{ScannerA, ScannerB, Stimulator, GPIO}
}

// Layout maps each group to its range of line ids.
type Layout struct {
	base  [numGroups]int
	count [numGroups]int
}

// NewLayout builds the layout reported by d.
func NewLayout(d capability.Descriptor) Layout {
	var l Layout
	counts := [numGroups]int{d.ScannerA, d.ScannerB, d.Stimulator, d.GPIO}

	next := 0
	for g := range counts {
		l.base[g] = next
		l.count[g] = counts[g]
		next += counts[g]
	}

	return l
}

// DefaultLayout is the layout of the reference hardware: 26 lines.
func DefaultLayout() Layout {
	return NewLayout(capability.Default)
}

// Count returns the number of lines in g.
func (l Layout) Count(g Group) int {
	if g >= numGroups {
		return 0
	}

	return l.count[g]
}

// Line returns the id of the index-th line of g.
func (l Layout) Line(g Group, index int) (ID, error) {
	if g >= numGroups {
		return 0, fmt.Errorf("line: unknown group %d", g)
	}
	if index < 0 || index >= l.count[g] {
		return 0, fmt.Errorf("%w: %s line %d of %d", ErrIndexOutOfRange, g, index, l.count[g])
	}

	id := l.base[g] + index
	if id > 0xFF {
		return 0, fmt.Errorf("%w: line id %d not addressable", ErrIndexOutOfRange, id)
	}

	return ID(id), nil
}

// Lines returns the ids of every line in g.
func (l Layout) Lines(g Group) []ID {
	ids := make([]ID, 0, l.Count(g))
	for i := 0; i < l.Count(g); i++ {
		id, err := l.Line(g, i)
		if err != nil {
			break
		}
		ids = append(ids, id)
	}

	return ids
}

// All returns every line id in layout order.
func (l Layout) All() []ID {
	ids := make([]ID, 0, l.Total())
	for _, g := range Groups() {
		ids = append(ids, l.Lines(g)...)
	}

	return ids
}

// Total returns the number of lines of all groups.
func (l Layout) Total() int {
	total := 0
	for _, c := range l.count {
		total += c
	}

	return total
}

// GroupOf returns the group that contains id.
func (l Layout) GroupOf(id ID) (Group, bool) {
	for g := range l.count {
		if int(id) >= l.base[g] && int(id) < l.base[g]+l.count[g] {
			return Group(g), true
		}
	}

	return 0, false
}
