package network

import (
	"time"

	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/netcomponents"
	"github.com/automoto/ghostsync/shared/schema"
	"github.com/automoto/ghostsync/shared/snapshot"
	"github.com/automoto/ghostsync/shared/tick"
	"github.com/yohamta/donburi"
)

// RenderTick returns the tick interpolated ghosts are shown at: the newest
// received snapshot minus the interpolation delay.
func (r *Replica) RenderTick() (tick.Tick, bool) {
	newest, ok := r.age.Latest()
	if !ok {
		return tick.Invalid, false
	}
	return newest.Add(-int32(r.opts.InterpolationDelay)), true
}

// Interpolate writes the state of every interpolated ghost at the render
// tick plus fraction of a tick.
func (r *Replica) Interpolate(fraction float64) {
	at, ok := r.RenderTick()
	if !ok {
		return
	}
	netcomponents.Interpolated.Each(r.world, func(entry *donburi.Entry) {
		g := netcomponents.Ghost.Get(entry)
		ring, ok := r.history.Lookup(g.ID)
		if !ok {
			return
		}
		b, ok := r.proto.Binding(g.TypeIndex)
		if !ok {
			return
		}
		out, extrapolating := r.sample(b.Type, ring, at, fraction)
		if out == nil {
			return
		}
		if err := b.Store(entry, out); err != nil {
			logf("warning: interpolate %s: %v", g.ID, err)
			return
		}
		state := netcomponents.Interpolated.Get(entry)
		state.RenderTick = at
		state.Fraction = fraction
		state.Extrapolating = extrapolating
	})
}

// sample reconstructs the state at t+fraction from a ghost's history. Before
// the oldest entry the oldest is used; past the newest the last two entries
// are extrapolated for at most MaxExtrapolation ticks.
func (r *Replica) sample(gt *schema.GhostType, ring *snapshot.Ring, t tick.Tick, fraction float64) (*schema.Snapshot, bool) {
	from, to, ok, hasTo := ring.Bracket(t)
	if !ok {
		oldest, ok := ring.Oldest()
		if !ok {
			return nil, false
		}
		return oldest.Snapshot, false
	}

	out := gt.NewSnapshot()
	if hasTo {
		span := float64(tick.Diff(to.Tick, from.Tick))
		gt.Interpolate(from.Snapshot, to.Snapshot, out, (float64(tick.Diff(t, from.Tick))+fraction)/span)
		return out, false
	}

	ahead := float64(tick.Diff(t, from.Tick)) + fraction
	if ahead <= 0 {
		return from.Snapshot, false
	}
	if limit := float64(r.opts.MaxExtrapolation); ahead > limit {
		ahead = limit
	}
	var prev snapshot.Entry
	found := false
	ring.Each(func(e snapshot.Entry) bool {
		if e.Tick == from.Tick {
			return true
		}
		prev, found = e, true
		return false
	})
	if !found {
		return from.Snapshot, false
	}
	span := float64(tick.Diff(from.Tick, prev.Tick))
	gt.Extrapolate(prev.Snapshot, from.Snapshot, out, 1+ahead/span)
	return out, true
}

// Present advances prediction switch blends by dt and records the blended
// view of each switching ghost.
func (r *Replica) Present(dt time.Duration) {
	for id := range r.visible {
		if !r.switcher.Active(id) {
			delete(r.visible, id)
		}
	}
	for _, id := range r.Ghosts() {
		if !r.switcher.Active(id) {
			continue
		}
		entry, ok := r.Entry(id)
		if !ok {
			continue
		}
		b, ok := r.proto.Binding(netcomponents.Ghost.Get(entry).TypeIndex)
		if !ok {
			continue
		}
		target, err := b.Pack(entry)
		if err != nil {
			continue
		}
		out, _ := r.switcher.Apply(id, b.Type, target, dt)
		if r.switcher.Active(id) {
			r.visible[id] = out
		} else {
			delete(r.visible, id)
		}
	}
}

// Visible returns the state of id as it should be shown: the blended view
// while the ghost is switching modes, its component value otherwise.
func (r *Replica) Visible(id ghostid.ID) (any, bool) {
	entry, ok := r.Entry(id)
	if !ok {
		return nil, false
	}
	b, ok := r.proto.Binding(netcomponents.Ghost.Get(entry).TypeIndex)
	if !ok {
		return nil, false
	}
	if snap, ok := r.visible[id]; ok {
		v := b.Type.New()
		if err := b.Type.Unpack(snap, v); err == nil {
			return v, true
		}
	}
	return b.Value(entry), true
}
