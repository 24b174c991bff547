package network

import (
	"time"

	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/schema"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// blend eases the visible state of one ghost from where it was when it
// changed mode to wherever its new mode puts it.
type blend struct {
	from  *schema.Snapshot
	tween *gween.Tween
}

// Switcher tracks ghosts that recently moved between prediction and
// interpolation. Only the presented state is blended; the ghost's own state
// follows its new mode from the first tick.
type Switcher struct {
	blends map[ghostid.ID]*blend
}

func NewSwitcher() *Switcher {
	return &Switcher{blends: make(map[ghostid.ID]*blend)}
}

// Begin starts a blend away from from. A non-positive duration cancels any
// blend in progress.
func (s *Switcher) Begin(id ghostid.ID, from *schema.Snapshot, d time.Duration) {
	if d <= 0 || from == nil {
		delete(s.blends, id)
		return
	}
	s.blends[id] = &blend{
		from:  from.Clone(),
		tween: gween.New(0, 1, float32(d.Seconds()), ease.InOutQuad),
	}
}

func (s *Switcher) Active(id ghostid.ID) bool {
	_, ok := s.blends[id]
	return ok
}

// Apply advances the blend of id by dt and returns the blended view of
// target. It returns false when id is not blending.
func (s *Switcher) Apply(id ghostid.ID, gt *schema.GhostType, target *schema.Snapshot, dt time.Duration) (*schema.Snapshot, bool) {
	b, ok := s.blends[id]
	if !ok {
		return nil, false
	}
	w, done := b.tween.Update(float32(dt.Seconds()))
	if done {
		delete(s.blends, id)
		return target, true
	}
	out := target.Clone()
	for i := range gt.Fields {
		f := &gt.Fields[i]
		if f.Smoothing() == schema.SmoothingClamp {
			continue
		}
		gt.LerpField(f, b.from, target, out, float64(w))
	}
	return out, true
}

// Forget drops the blend of a removed ghost.
func (s *Switcher) Forget(id ghostid.ID) {
	delete(s.blends, id)
}
