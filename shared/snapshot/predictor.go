package snapshot

import (
	"github.com/automoto/ghostsync/shared/schema"
	"github.com/automoto/ghostsync/shared/tick"
)

// predictor extrapolates integer lanes from three baselines so that steady
// motion encodes as near-zero deltas. It only engages when the baselines are
// equally spaced; otherwise the reference is baseline 0.
type predictor struct {
	apply bool
	// num/den scale the baseline0-baseline1 step to the target tick.
	num, den int64
}

func newPredictor(target tick.Tick, bases []Baseline) predictor {
	if len(bases) != MaxBaselines {
		return predictor{}
	}
	d01 := tick.Diff(bases[0].Tick, bases[1].Tick)
	d12 := tick.Diff(bases[1].Tick, bases[2].Tick)
	if d01 <= 0 || d01 != d12 {
		return predictor{}
	}
	ahead := tick.Diff(target, bases[0].Tick)
	if ahead <= 0 {
		return predictor{}
	}
	return predictor{apply: true, num: int64(ahead), den: int64(d01)}
}

// predict returns the reference word for a lane.
func (p predictor) predict(b0, b1, b2 uint32) uint32 {
	v0, v1, v2 := int64(int32(b0)), int64(int32(b1)), int64(int32(b2))
	step, last := v0-v1, v1-v2
	// Only continue motion that kept its direction.
	if step == 0 || (step > 0) != (last > 0) || last == 0 {
		return b0
	}
	return uint32(int32(v0 + step*p.num/p.den))
}

// reference builds the per-word reference image a record is delta-encoded
// against. Buffers always reference baseline 0.
func reference(gt *schema.GhostType, target tick.Tick, bases []Baseline) *schema.Snapshot {
	if len(bases) == 0 {
		return gt.NewSnapshot()
	}
	p := newPredictor(target, bases)
	if !p.apply {
		return bases[0].Snapshot
	}
	ref := &schema.Snapshot{Words: make([]uint32, gt.Words), Buffers: bases[0].Snapshot.Buffers}
	w0, w1, w2 := bases[0].Snapshot.Words, bases[1].Snapshot.Words, bases[2].Snapshot.Words
	for i := range ref.Words {
		if gt.Predictable(i) {
			ref.Words[i] = p.predict(w0[i], w1[i], w2[i])
		} else {
			ref.Words[i] = w0[i]
		}
	}
	return ref
}
