package network

import (
	"github.com/automoto/ghostsync/shared/schema"
)

// SmoothingFunc blends a corrected prediction with what was visible before
// the rollback. current is the state after resimulation, backup the state
// before it, and params whatever was registered with the function. The
// returned snapshot becomes the ghost's state; returning current snaps.
type SmoothingFunc func(gt *schema.GhostType, current, backup *schema.Snapshot, params any) *schema.Snapshot

// SmoothingParams configures DefaultSmoothing.
type SmoothingParams struct {
	// MaxDistance is the largest correction that is blended. Anything
	// further snaps. Zero blends every correction.
	MaxDistance float64
	// Rate is the share of the correction applied at once, in (0,1].
	Rate float64
}

type smoother struct {
	fn     SmoothingFunc
	params any
}

// DefaultSmoothing moves every smoothed field Rate of the way from the backup
// towards the corrected value. Fields declared with clamp smoothing, and
// corrections longer than MaxDistance, snap.
func DefaultSmoothing(gt *schema.GhostType, current, backup *schema.Snapshot, params any) *schema.Snapshot {
	p, _ := params.(SmoothingParams)
	if p.Rate <= 0 || p.Rate >= 1 {
		return current
	}
	out := current.Clone()
	for i := range gt.Fields {
		f := &gt.Fields[i]
		if f.Smoothing() == schema.SmoothingClamp {
			continue
		}
		d := gt.Distance(f, backup, current)
		if d == 0 || (p.MaxDistance > 0 && d > p.MaxDistance) {
			continue
		}
		gt.LerpField(f, backup, current, out, p.Rate)
	}
	return out
}
