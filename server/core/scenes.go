package core

import (
	"fmt"

	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/messages"
	"github.com/automoto/ghostsync/shared/netcomponents"
	"github.com/automoto/ghostsync/shared/prespawn"
	"github.com/automoto/ghostsync/shared/protocol"
	"github.com/automoto/ghostsync/shared/schema"
)

type loadedScene struct {
	level  *protocol.Level
	record prespawn.Record
	ids    []ghostid.ID
	// baselines is the packed baked state of every ghost, the reference of
	// its first snapshot to each connection.
	baselines map[ghostid.ID]*schema.Snapshot
}

// LoadScene reserves the prespawn id range of level and creates its baked
// ghosts. Loading a scene whose unload is still deferred cancels the unload.
func (s *Server) LoadScene(level *protocol.Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scene := level.Scene
	if _, ok := s.scenes[scene.Hash]; ok {
		s.streaming.CancelUnload(scene.Hash)
		return nil
	}

	b, ok := s.proto.BindingByName(protocol.GhostProp)
	if !ok {
		return fmt.Errorf("ghost type %s not registered", protocol.GhostProp)
	}
	rec, err := s.ranges.Acquire(scene.Hash, scene.BaselinesHash(), scene.Count())
	if err != nil {
		return err
	}
	ids, err := scene.AssignIDs(rec.FirstGhostID)
	if err != nil {
		s.ranges.Release(scene.Hash)
		return err
	}

	baselines := make(map[ghostid.ID]*schema.Snapshot, len(ids))
	for i, id := range ids {
		if baselines[id], err = b.Type.Pack(&level.Props[i]); err != nil {
			s.ranges.Release(scene.Hash)
			return fmt.Errorf("prespawn baseline %s: %w", id, err)
		}
	}
	for i, id := range ids {
		entity := s.world.Create(netcomponents.Ghost, netcomponents.Prop)
		entry := s.world.Entry(entity)
		netcomponents.Ghost.Set(entry, &netcomponents.GhostData{
			ID:        id,
			TypeIndex: b.Type.Index,
			SpawnTick: s.tick,
			Scene:     scene.Hash,
		})
		prop := level.Props[i]
		netcomponents.Prop.Set(entry, &prop)
		s.ghosts[id] = entity
	}

	s.scenes[scene.Hash] = &loadedScene{level: level, record: rec, ids: ids, baselines: baselines}
	s.broadcast(s.prespawnRecords())

	logf("scene %s loaded: %016x, %d prespawned ghosts from id %d",
		level.Name, scene.Hash, rec.PrespawnCount, rec.FirstGhostID)
	return nil
}

// UnloadScene removes a scene's ghosts and releases its range. While any
// connection still streams the scene the unload is deferred until the last
// one stops. It reports whether the unload happened now.
func (s *Server) UnloadScene(hash uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scenes[hash]; !ok {
		return false
	}
	if !s.streaming.RequestUnload(hash) {
		logf("scene %016x still streamed, unload deferred", hash)
		return false
	}
	s.finishUnloads([]uint64{hash})
	return true
}

func (s *Server) finishUnloads(hashes []uint64) {
	if len(hashes) == 0 {
		return
	}
	for _, h := range hashes {
		ls, ok := s.scenes[h]
		if !ok {
			continue
		}
		// Clients drop prespawned ghosts together with the scene, so no
		// despawn is sent for them.
		for _, id := range ls.ids {
			if entity, ok := s.ghosts[id]; ok && s.world.Valid(entity) {
				s.world.Remove(entity)
			}
			delete(s.ghosts, id)
			s.sim.RemoveBody(id)
			for _, c := range s.conns {
				c.history.Remove(id)
			}
		}
		s.ranges.Release(h)
		delete(s.scenes, h)
		logf("scene %016x unloaded", h)
	}
	s.broadcast(s.prespawnRecords())
}

// StartStreaming handles a client's StartStreamingSceneGhosts.
func (s *Server) StartStreaming(peer Peer, hash uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connection(peer)
	if !ok {
		return
	}
	if _, loaded := s.scenes[hash]; !loaded {
		logf("session %s streams unknown scene %016x", c.Session, hash)
	}
	s.streaming.Start(c.Session, hash)
}

// StopStreaming handles a client's StopStreamingSceneGhosts.
func (s *Server) StopStreaming(peer Peer, hash uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connection(peer)
	if !ok {
		return
	}
	s.finishUnloads(s.streaming.Stop(c.Session, hash))
	if ls, ok := s.scenes[hash]; ok {
		for _, id := range ls.ids {
			c.history.Remove(id)
		}
	}
}

func (s *Server) prespawnRecords() messages.PrespawnRecords {
	return messages.PrespawnRecords{Data: prespawn.EncodeRecords(s.ranges.Active())}
}

func (s *Server) levelName() string {
	for _, ls := range s.scenes {
		return ls.level.Name
	}
	return ""
}

func (s *Server) broadcast(msg any) {
	for _, c := range s.conns {
		if c.Joined {
			c.send(msg)
		}
	}
}
