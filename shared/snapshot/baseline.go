package snapshot

import (
	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/schema"
	"github.com/automoto/ghostsync/shared/tick"
)

// SelectBaselines picks the reference set for encoding a ghost at target from
// the snapshots previously sent to a connection. It returns the newest acked
// entries: three when prediction is enabled and three exist, otherwise at
// most one. Entries not older than target are skipped.
func SelectBaselines(history *Ring, acks *AckWindow, target tick.Tick, predict bool) []Baseline {
	want := 1
	if predict {
		want = MaxBaselines
	}
	out := make([]Baseline, 0, want)
	history.Each(func(e Entry) bool {
		if !tick.IsNewer(target, e.Tick) || !acks.Contains(e.Tick) {
			return true
		}
		out = append(out, Baseline{Tick: e.Tick, Snapshot: e.Snapshot})
		return len(out) < want
	})
	if len(out) > 1 && len(out) < MaxBaselines {
		out = out[:1]
	}
	return out
}

// History keeps the snapshot ring of every ghost known to one side of a
// connection. It is a BaselineSource for the decoder.
type History struct {
	capacity int
	rings    map[ghostid.ID]*Ring
}

func NewHistory(capacity int) *History {
	return &History{capacity: capacity, rings: make(map[ghostid.ID]*Ring)}
}

// Ring returns the ring of id, creating it on first use.
func (h *History) Ring(id ghostid.ID) *Ring {
	r, ok := h.rings[id]
	if !ok {
		r = NewRing(h.capacity)
		h.rings[id] = r
	}
	return r
}

// Lookup returns the ring of id without creating it.
func (h *History) Lookup(id ghostid.ID) (*Ring, bool) {
	r, ok := h.rings[id]
	return r, ok
}

func (h *History) Push(id ghostid.ID, t tick.Tick, s *schema.Snapshot) error {
	return h.Ring(id).Push(t, s)
}

func (h *History) Remove(id ghostid.ID) { delete(h.rings, id) }

func (h *History) Len() int { return len(h.rings) }

// IDs returns every ghost with a ring, in no particular order.
func (h *History) IDs() []ghostid.ID {
	ids := make([]ghostid.ID, 0, len(h.rings))
	for id := range h.rings {
		ids = append(ids, id)
	}
	return ids
}

func (h *History) Baseline(id ghostid.ID, t tick.Tick) (*schema.Snapshot, bool) {
	r, ok := h.rings[id]
	if !ok {
		return nil, false
	}
	e, ok := r.At(t)
	if !ok {
		return nil, false
	}
	return e.Snapshot, true
}
