package network

import (
	"fmt"
	"log"

	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/netcomponents"
	"github.com/automoto/ghostsync/shared/prespawn"
	"github.com/automoto/ghostsync/shared/protocol"
	"github.com/automoto/ghostsync/shared/tick"
)

// SceneSync is the client half of prespawn id assignment. It checks the
// server's scene records against the local subscenes, creates the baked
// ghosts under the ids the server assigned, and tracks which scenes the
// client streams.
type SceneSync struct {
	validator *prespawn.Validator
	levels    map[uint64]*protocol.Level
	active    map[uint64]prespawn.Record
}

func NewSceneSync() *SceneSync {
	return &SceneSync{
		validator: prespawn.NewValidator(),
		levels:    make(map[uint64]*protocol.Level),
		active:    make(map[uint64]prespawn.Record),
	}
}

// Load registers a locally loaded subscene.
func (s *SceneSync) Load(level *protocol.Level) {
	s.validator.AddScene(level.Scene)
	s.levels[level.Scene.Hash] = level
}

// Streaming reports whether the client streams the scene's ghosts.
func (s *SceneSync) Streaming(hash uint64) bool {
	_, ok := s.active[hash]
	return ok
}

// Apply handles a full set of server records. It returns the scenes that
// should now be streamed. A validation failure is returned as is and must
// end the connection.
func (s *SceneSync) Apply(records []prespawn.Record, r *Replica) (start []uint64, err error) {
	seen := make(map[uint64]bool, len(records))
	for _, rec := range records {
		seen[rec.SubSceneHash] = true
		a, ok, err := s.validator.Validate(rec)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if prev, ok := s.active[rec.SubSceneHash]; ok {
			if prev == rec {
				continue
			}
			// Reloaded under a different range.
			r.RemoveScene(rec.SubSceneHash)
		}
		if err := r.SpawnScene(a, s.levels[rec.SubSceneHash]); err != nil {
			return nil, err
		}
		s.active[rec.SubSceneHash] = rec
		start = append(start, rec.SubSceneHash)
		log.Printf("[prespawn] scene %016x validated: %d ghosts from id %d", rec.SubSceneHash, rec.PrespawnCount, rec.FirstGhostID)
	}
	// Scenes the server no longer announces were unloaded there.
	for hash := range s.active {
		if !seen[hash] {
			r.RemoveScene(hash)
			delete(s.active, hash)
		}
	}
	return start, nil
}

// Unload drops a local subscene. It reports whether the server must be told
// to stop streaming it.
func (s *SceneSync) Unload(hash uint64, r *Replica) bool {
	_, streamed := s.active[hash]
	r.RemoveScene(hash)
	s.validator.RemoveScene(hash)
	delete(s.levels, hash)
	delete(s.active, hash)
	return streamed
}

// SpawnScene creates the baked ghosts of a validated scene with their
// initial state.
func (r *Replica) SpawnScene(a prespawn.Assignment, level *protocol.Level) error {
	if level == nil || len(level.Props) != len(a.IDs) {
		return fmt.Errorf("scene %016x: local content does not match assignment", a.Record.SubSceneHash)
	}
	b, ok := r.proto.BindingByName(protocol.GhostProp)
	if !ok {
		return fmt.Errorf("ghost type %s not registered", protocol.GhostProp)
	}
	for i, id := range a.IDs {
		if entry, ok := r.Entry(id); ok {
			r.removeEntity(id, entry)
		}
		entry := r.create(id, b, a.Record.SubSceneHash, tick.Invalid)
		prop := level.Props[i]
		netcomponents.Prop.Set(entry, &prop)
		base, err := b.Type.Pack(&prop)
		if err != nil {
			return fmt.Errorf("prespawn baseline %s: %w", id, err)
		}
		r.prespawned[id] = base
	}
	return nil
}

// RemoveScene drops every ghost of a scene along with its history.
func (r *Replica) RemoveScene(hash uint64) {
	var ids []ghostid.ID
	for _, id := range r.Ghosts() {
		entry, ok := r.Entry(id)
		if ok && netcomponents.Ghost.Get(entry).Scene == hash {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		r.despawn(id)
	}
}
