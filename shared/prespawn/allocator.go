package prespawn

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/automoto/ghostsync/shared/ghostid"
)

type reservation struct {
	record Record
	inUse  bool
}

// Allocator hands out contiguous prespawn ID ranges on the server. A range
// stays reserved for its scene hash after release, so reloading the same
// content gets the same IDs back.
type Allocator struct {
	mu     sync.Mutex
	next   int32
	ranges map[uint64]*reservation
}

func NewAllocator() *Allocator {
	return &Allocator{next: 1, ranges: make(map[uint64]*reservation)}
}

// Acquire reserves (or re-reserves) the range for a scene.
func (a *Allocator) Acquire(sceneHash, baselineHash uint64, count int32) (Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if r, ok := a.ranges[sceneHash]; ok {
		if r.record.PrespawnCount != count {
			return Record{}, fmt.Errorf("%w: scene %016x reserved %d ids, asked for %d", ErrCountMismatch, sceneHash, r.record.PrespawnCount, count)
		}
		r.record.BaselineHash = baselineHash
		r.inUse = true
		return r.record, nil
	}
	if count < 0 || int64(a.next)+int64(count)-1 > int64(ghostid.MaxIndex) {
		return Record{}, fmt.Errorf("%w: %d prespawn ghosts from %d", ghostid.ErrRangeExhausted, count, a.next)
	}
	rec := Record{
		SubSceneHash:  sceneHash,
		BaselineHash:  baselineHash,
		FirstGhostID:  a.next,
		PrespawnCount: count,
	}
	a.next += count
	a.ranges[sceneHash] = &reservation{record: rec, inUse: true}
	return rec, nil
}

// Release marks the scene's range reusable. It reports whether the scene was
// in use.
func (a *Allocator) Release(sceneHash uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.ranges[sceneHash]
	if !ok || !r.inUse {
		return false
	}
	r.inUse = false
	return true
}

// Active returns the records of every scene in use, ordered by first ID.
func (a *Allocator) Active() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Record, 0, len(a.ranges))
	for _, r := range a.ranges {
		if r.inUse {
			out = append(out, r.record)
		}
	}
	slices.SortFunc(out, func(x, y Record) int { return cmp.Compare(x.FirstGhostID, y.FirstGhostID) })
	return out
}
