// Package command stores per-tick input samples and moves them over the wire
// with redundancy, so one lost packet is recovered from the next.
package command

import "github.com/automoto/ghostsync/shared/tick"

// Capacity is the number of ticks of input a Buffer retains.
const Capacity = 64

// Sample is one tick's worth of input.
type Sample[T any] struct {
	Tick  tick.Tick
	Value T
}

// Buffer is a fixed-capacity store of input samples keyed by tick. Slots are
// not kept in tick order; lookups scan all live slots with wraparound-safe
// comparisons.
type Buffer[T any] struct {
	slots [Capacity]Sample[T]
	count int
}

// Add stores v for t. An existing sample for t is overwritten in place, so a
// resent tick never duplicates. When full, the oldest sample is evicted.
func (b *Buffer[T]) Add(t tick.Tick, v T) {
	for i := 0; i < b.count; i++ {
		if b.slots[i].Tick == t {
			b.slots[i].Value = v
			return
		}
	}
	if b.count < Capacity {
		b.slots[b.count] = Sample[T]{Tick: t, Value: v}
		b.count++
		return
	}
	oldest := 0
	for i := 1; i < b.count; i++ {
		if tick.IsNewer(b.slots[oldest].Tick, b.slots[i].Tick) {
			oldest = i
		}
	}
	b.slots[oldest] = Sample[T]{Tick: t, Value: v}
}

// AtTick returns the sample with the greatest tick not after target. When
// none exists ok is false and the zero value is returned.
func (b *Buffer[T]) AtTick(target tick.Tick) (s Sample[T], ok bool) {
	for i := 0; i < b.count; i++ {
		c := b.slots[i]
		if tick.IsNewer(c.Tick, target) {
			continue
		}
		if !ok || tick.IsNewer(c.Tick, s.Tick) {
			s, ok = c, true
		}
	}
	return s, ok
}

// Exact returns the sample stamped t.
func (b *Buffer[T]) Exact(t tick.Tick) (Sample[T], bool) {
	for i := 0; i < b.count; i++ {
		if b.slots[i].Tick == t {
			return b.slots[i], true
		}
	}
	return Sample[T]{}, false
}

// Newest returns up to n samples ordered newest first.
func (b *Buffer[T]) Newest(n int) []Sample[T] {
	out := make([]Sample[T], 0, min(n, b.count))
	used := make([]bool, b.count)
	for len(out) < n {
		best := -1
		for i := 0; i < b.count; i++ {
			if used[i] {
				continue
			}
			if best < 0 || tick.IsNewer(b.slots[i].Tick, b.slots[best].Tick) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		used[best] = true
		out = append(out, b.slots[best])
	}
	return out
}

func (b *Buffer[T]) Len() int { return b.count }

func (b *Buffer[T]) Reset() {
	clear(b.slots[:])
	b.count = 0
}
