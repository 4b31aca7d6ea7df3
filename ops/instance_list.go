package ops

import (
	"github.com/gogpu/atlasfill"
	"github.com/gogpu/atlasfill/internal/arena"
)

// instance is one recorded rectangle fill.
type instance struct {
	fillBounds    atlasfill.IRect
	localToDevice atlasfill.Matrix
	color         atlasfill.PMColor4f
	atlas         AtlasInstance
}

// instanceList is an append-only list of instances stored in the op list
// arena. Records keep their insertion order and are never removed.
type instanceList struct {
	items []instance
}

func (l *instanceList) append(a *arena.Arena, i instance) {
	l.items = arena.Append(a, l.items, i)
}

// concat appends every record of o after those of l.
func (l *instanceList) concat(a *arena.Arena, o *instanceList) {
	l.items = arena.Append(a, l.items, o.items...)
}

func (l *instanceList) len() int { return len(l.items) }

// head returns the first record. The list must not be empty.
func (l *instanceList) head() *instance { return &l.items[0] }
