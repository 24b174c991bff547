package prespawn

import (
	"fmt"
	"sync"

	"github.com/automoto/ghostsync/shared/ghostid"
)

// Assignment is a validated scene with its derived IDs, in Scene.Ghosts order.
type Assignment struct {
	Scene  *Scene
	Record Record
	IDs    []ghostid.ID
}

// Validator is the client side of the protocol. It holds the locally loaded
// scenes and checks server records against them. A mismatch is fatal to the
// connection.
type Validator struct {
	mu        sync.Mutex
	scenes    map[uint64]*Scene
	baselines map[uint64]uint64
	assigned  map[uint64]Assignment
}

func NewValidator() *Validator {
	return &Validator{
		scenes:    make(map[uint64]*Scene),
		baselines: make(map[uint64]uint64),
		assigned:  make(map[uint64]Assignment),
	}
}

// AddScene registers a loaded scene and computes its baseline hash.
func (v *Validator) AddScene(s *Scene) {
	h := s.BaselinesHash()
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scenes[s.Hash] = s
	v.baselines[s.Hash] = h
}

// RemoveScene forgets an unloaded scene and its assignment.
func (v *Validator) RemoveScene(hash uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.scenes, hash)
	delete(v.baselines, hash)
	delete(v.assigned, hash)
}

// Validate checks rec against the local scene. ok is false when the scene is
// not loaded locally yet; the record should be retried after it loads.
func (v *Validator) Validate(rec Record) (a Assignment, ok bool, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, loaded := v.scenes[rec.SubSceneHash]
	if !loaded {
		return Assignment{}, false, nil
	}
	if prev, done := v.assigned[rec.SubSceneHash]; done && prev.Record == rec {
		return prev, true, nil
	}
	if local := v.baselines[rec.SubSceneHash]; local != rec.BaselineHash {
		return Assignment{}, false, fmt.Errorf("%w: scene %016x local %016x server %016x", ErrBaselineHashMismatch, rec.SubSceneHash, local, rec.BaselineHash)
	}
	if s.Count() != rec.PrespawnCount {
		return Assignment{}, false, fmt.Errorf("%w: scene %016x local %d server %d", ErrCountMismatch, rec.SubSceneHash, s.Count(), rec.PrespawnCount)
	}
	ids, err := s.AssignIDs(rec.FirstGhostID)
	if err != nil {
		return Assignment{}, false, err
	}
	a = Assignment{Scene: s, Record: rec, IDs: ids}
	v.assigned[rec.SubSceneHash] = a
	return a, true, nil
}

// Loaded returns the hashes of every local scene.
func (v *Validator) Loaded() []uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]uint64, 0, len(v.scenes))
	for h := range v.scenes {
		out = append(out, h)
	}
	return out
}
