package snapshot

import (
	"fmt"

	"github.com/automoto/ghostsync/shared/schema"
	"github.com/automoto/ghostsync/shared/tick"
)

// Entry is one stored snapshot.
type Entry struct {
	Tick     tick.Tick
	Snapshot *schema.Snapshot
}

// Ring is a fixed-capacity history of one ghost's snapshots. Entries are
// strictly increasing by tick; when full the oldest is evicted.
type Ring struct {
	entries []Entry
	head    int
	count   int
}

func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{entries: make([]Entry, capacity)}
}

func (r *Ring) Cap() int { return len(r.entries) }
func (r *Ring) Len() int { return r.count }

// at returns the i-th entry counting from the oldest.
func (r *Ring) at(i int) *Entry {
	return &r.entries[(r.head+i)%len(r.entries)]
}

// Push appends a snapshot for t. Pushing the newest tick again replaces it;
// pushing anything older fails.
func (r *Ring) Push(t tick.Tick, s *schema.Snapshot) error {
	if r.count > 0 {
		newest := r.at(r.count - 1)
		if newest.Tick == t {
			newest.Snapshot = s
			return nil
		}
		if !tick.IsNewer(t, newest.Tick) {
			return fmt.Errorf("%w: %d is not after %d", ErrOutOfOrder, t, newest.Tick)
		}
	}
	if r.count == len(r.entries) {
		r.entries[r.head] = Entry{}
		r.head = (r.head + 1) % len(r.entries)
		r.count--
	}
	*r.at(r.count) = Entry{Tick: t, Snapshot: s}
	r.count++
	return nil
}

func (r *Ring) Newest() (Entry, bool) {
	if r.count == 0 {
		return Entry{}, false
	}
	return *r.at(r.count - 1), true
}

func (r *Ring) Oldest() (Entry, bool) {
	if r.count == 0 {
		return Entry{}, false
	}
	return *r.at(0), true
}

// At returns the entry stamped exactly t.
func (r *Ring) At(t tick.Tick) (Entry, bool) {
	for i := r.count - 1; i >= 0; i-- {
		e := r.at(i)
		if e.Tick == t {
			return *e, true
		}
		if tick.IsNewer(t, e.Tick) {
			break
		}
	}
	return Entry{}, false
}

// AtOrBefore returns the newest entry whose tick is not after t.
func (r *Ring) AtOrBefore(t tick.Tick) (Entry, bool) {
	for i := r.count - 1; i >= 0; i-- {
		e := r.at(i)
		if tick.IsNewerOrEqual(t, e.Tick) {
			return *e, true
		}
	}
	return Entry{}, false
}

// Bracket returns the entries around t: from is the newest at or before t and
// to the one after it. hasTo is false when from is the newest entry.
func (r *Ring) Bracket(t tick.Tick) (from, to Entry, ok, hasTo bool) {
	for i := r.count - 1; i >= 0; i-- {
		e := r.at(i)
		if tick.IsNewerOrEqual(t, e.Tick) {
			if i+1 < r.count {
				return *e, *r.at(i + 1), true, true
			}
			return *e, Entry{}, true, false
		}
	}
	return Entry{}, Entry{}, false, false
}

// Each calls fn from newest to oldest until it returns false.
func (r *Ring) Each(fn func(Entry) bool) {
	for i := r.count - 1; i >= 0; i-- {
		if !fn(*r.at(i)) {
			return
		}
	}
}

func (r *Ring) Clear() {
	clear(r.entries)
	r.head, r.count = 0, 0
}
