// Package prespawn assigns ghost IDs to ghosts baked into level content.
//
// Both peers hash a subscene's content and the baselines of its baked ghosts
// independently. The server reserves a contiguous ID range per subscene hash
// and publishes it; the client accepts the range only when its own hashes and
// ghost count match, and then both sides derive every ID locally as
// PrespawnBase | (FirstGhostID + LocalIndex).
package prespawn

import (
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/schema"
	"github.com/automoto/ghostsync/shared/snapshot"
	"github.com/cespare/xxhash/v2"
)

var (
	ErrBaselineHashMismatch = errors.New("prespawn: baseline hash mismatch")
	ErrCountMismatch        = errors.New("prespawn: prespawn count mismatch")
	ErrLocalIndex           = errors.New("prespawn: local indices must run densely from 0")
)

// Ghost is one baked ghost of a subscene.
type Ghost struct {
	// LocalIndex is stable per subscene and assigned when the content is built.
	LocalIndex int32
	Type       *schema.GhostType
	Baseline   *schema.Snapshot
}

// Scene is the prespawn content of one subscene.
type Scene struct {
	Hash   uint64
	Ghosts []Ghost
}

// ContentHash hashes raw subscene content.
func ContentHash(content []byte) uint64 {
	return xxhash.Sum64(content)
}

// NewScene sorts ghosts by local index. Indices must be 0..n-1 so the
// scene's IDs fit its reserved range.
func NewScene(hash uint64, ghosts []Ghost) (*Scene, error) {
	sorted := slices.Clone(ghosts)
	slices.SortFunc(sorted, func(a, b Ghost) int { return cmp.Compare(a.LocalIndex, b.LocalIndex) })
	for i, g := range sorted {
		if g.LocalIndex != int32(i) {
			return nil, fmt.Errorf("%w: got %d at position %d", ErrLocalIndex, g.LocalIndex, i)
		}
	}
	return &Scene{Hash: hash, Ghosts: sorted}, nil
}

// Count is the number of prespawned ghosts in the scene.
func (s *Scene) Count() int32 { return int32(len(s.Ghosts)) }

// GhostHash hashes one ghost's type and serialized baseline.
func GhostHash(g Ghost) uint64 {
	d := xxhash.New()
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], g.Type.Index)
	_, _ = d.Write(idx[:])
	_, _ = d.Write(snapshot.Marshal(g.Baseline))
	return d.Sum64()
}

// BaselinesHash combines the per-ghost hashes after sorting them, so the
// result does not depend on the order ghosts were visited in.
func BaselinesHash(ghostHashes []uint64) uint64 {
	sorted := slices.Clone(ghostHashes)
	slices.Sort(sorted)
	d := xxhash.New()
	var b [8]byte
	for _, h := range sorted {
		binary.LittleEndian.PutUint64(b[:], h)
		_, _ = d.Write(b[:])
	}
	return d.Sum64()
}

// BaselinesHash computes the aggregate baseline hash of the scene.
func (s *Scene) BaselinesHash() uint64 {
	hashes := make([]uint64, len(s.Ghosts))
	for i, g := range s.Ghosts {
		hashes[i] = GhostHash(g)
	}
	return BaselinesHash(hashes)
}

// AssignIDs derives the ghost ID of every ghost, in Ghosts order.
func (s *Scene) AssignIDs(first int32) ([]ghostid.ID, error) {
	ids := make([]ghostid.ID, len(s.Ghosts))
	for i, g := range s.Ghosts {
		id, err := ghostid.Prespawn(first, g.LocalIndex)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
