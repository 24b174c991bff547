package snapshot

import "github.com/automoto/ghostsync/shared/tick"

// AckWindowSize is the number of ticks an AckWindow can describe.
const AckWindowSize = 64

// AckWindow tracks which of the last 64 ticks were received. Bit i of the
// mask stands for Newest-i. The client marks fully applied snapshots and
// reports its window in every command packet; the server merges the reports
// and only picks baselines from ticks in its window.
type AckWindow struct {
	newest tick.Tick
	mask   uint64
}

// Mark records t as received.
func (a *AckWindow) Mark(t tick.Tick) { a.Merge(t, 1) }

// Merge folds a reported (newest, mask) pair into the window. Stale reports
// still contribute the bits that overlap the window.
func (a *AckWindow) Merge(newest tick.Tick, mask uint64) {
	if !newest.IsValid() {
		return
	}
	if !a.newest.IsValid() {
		a.newest, a.mask = newest, mask
		return
	}
	d := tick.Diff(newest, a.newest)
	switch {
	case d > 0:
		if d >= AckWindowSize {
			a.mask = 0
		} else {
			a.mask <<= uint(d)
		}
		a.mask |= mask
		a.newest = newest
	case d > -AckWindowSize:
		a.mask |= mask << uint(-d)
	}
}

// Contains reports whether t was acknowledged.
func (a *AckWindow) Contains(t tick.Tick) bool {
	if !a.newest.IsValid() {
		return false
	}
	d := tick.Diff(a.newest, t)
	if d < 0 || d >= AckWindowSize {
		return false
	}
	return a.mask&(1<<uint(d)) != 0
}

// State returns the newest acknowledged tick and the mask.
func (a *AckWindow) State() (tick.Tick, uint64) { return a.newest, a.mask }

func (a *AckWindow) Reset() { a.newest, a.mask = tick.Invalid, 0 }
