package core

import (
	"fmt"
	"sort"

	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/netcomponents"
	"github.com/automoto/ghostsync/shared/protocol"
	"github.com/automoto/ghostsync/shared/sim"
	"github.com/automoto/ghostsync/shared/tick"
	"github.com/yohamta/donburi"
)

// spawnGhost allocates a runtime id and creates the entity holding its state.
func (s *Server) spawnGhost(typ string) (ghostid.ID, *donburi.Entry, error) {
	b, ok := s.proto.BindingByName(typ)
	if !ok {
		return 0, nil, fmt.Errorf("ghost type %s not registered", typ)
	}
	id, err := s.ids.Allocate()
	if err != nil {
		return 0, nil, err
	}
	entity := s.world.Create(netcomponents.Ghost, b.Component)
	entry := s.world.Entry(entity)
	netcomponents.Ghost.Set(entry, &netcomponents.GhostData{
		ID:        id,
		TypeIndex: b.Type.Index,
		SpawnTick: s.tick,
	})
	s.ghosts[id] = entity
	return id, entry, nil
}

// despawn removes the ghost now. Its id is released once every connection
// has acknowledged a snapshot carrying the despawn.
func (s *Server) despawn(id ghostid.ID) {
	entity, ok := s.ghosts[id]
	if !ok {
		return
	}
	delete(s.ghosts, id)
	if s.world.Valid(entity) {
		s.world.Remove(entity)
	}
	s.sim.RemoveBody(id)
	// Stamped with the first tick whose snapshot carries it.
	s.despawns[id] = tick.Invalid
}

func (s *Server) stampDespawns() {
	for id, at := range s.despawns {
		if !at.IsValid() {
			s.despawns[id] = s.tick
		}
	}
}

// releaseDespawns frees the ids whose despawn every connection has seen and
// drops the ghost's history from each connection.
func (s *Server) releaseDespawns() {
	for id, at := range s.despawns {
		acked := true
		for _, c := range s.conns {
			if !c.Acked(at) {
				acked = false
				break
			}
		}
		if !acked {
			continue
		}
		for _, c := range s.conns {
			c.history.Remove(id)
		}
		delete(s.despawns, id)
		if id.IsRuntime() {
			s.ids.Release(id)
		}
	}
}

// pendingDespawns lists the despawns c has not acknowledged yet.
func (s *Server) pendingDespawns(c *Connection) []ghostid.ID {
	var out []ghostid.ID
	for id, at := range s.despawns {
		if !c.Acked(at) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Server) entry(id ghostid.ID) (*donburi.Entry, bool) {
	entity, ok := s.ghosts[id]
	if !ok || !s.world.Valid(entity) {
		return nil, false
	}
	return s.world.Entry(entity), true
}

func (s *Server) player(id ghostid.ID) (*netcomponents.PlayerGhost, bool) {
	e, ok := s.entry(id)
	if !ok || !e.HasComponent(netcomponents.Player) {
		return nil, false
	}
	return netcomponents.Player.Get(e), true
}

func (s *Server) spawnPlayer(c *Connection) (ghostid.ID, error) {
	id, entry, err := s.spawnGhost(protocol.GhostPlayer)
	if err != nil {
		return 0, err
	}
	x, y := s.sim.Spawn(int(c.NetworkID - 1))
	p := sim.NewPlayer(c.NetworkID, c.Name, x, y)
	netcomponents.Player.Set(entry, &p)
	if m, ok := s.matchState(); ok {
		m.ScoreOf(c.NetworkID)
	}
	return id, nil
}

func (s *Server) despawnPlayer(id ghostid.ID) {
	if b, ok := s.activeBoomerang[id]; ok {
		s.despawnBoomerang(b)
	}
	if p, ok := s.player(id); ok {
		if m, ok := s.matchState(); ok {
			m.Scores = removeScore(m.Scores, p.Owner)
		}
	}
	s.despawn(id)
}

func (s *Server) spawnBoomerang(owner ghostid.ID, t sim.Throw) error {
	id, entry, err := s.spawnGhost(protocol.GhostBoomerang)
	if err != nil {
		return err
	}
	b := sim.NewBoomerang(owner, t)
	netcomponents.Boomerang.Set(entry, &b)
	s.boomerangHits[id] = make(map[ghostid.ID]struct{})
	s.activeBoomerang[owner] = id
	return nil
}

func (s *Server) despawnBoomerang(id ghostid.ID) {
	if e, ok := s.entry(id); ok {
		b := netcomponents.Boomerang.Get(e)
		delete(s.activeBoomerang, ghostid.ID(b.Owner))
	}
	delete(s.boomerangHits, id)
	s.despawn(id)
}

func (s *Server) spawnMatch() error {
	id, entry, err := s.spawnGhost(protocol.GhostMatch)
	if err != nil {
		return err
	}
	netcomponents.Match.Set(entry, &netcomponents.MatchGhost{})
	s.match = id
	return nil
}

func (s *Server) matchState() (*netcomponents.MatchGhost, bool) {
	e, ok := s.entry(s.match)
	if !ok {
		return nil, false
	}
	return netcomponents.Match.Get(e), true
}

func removeScore(scores []netcomponents.Score, owner uint32) []netcomponents.Score {
	out := scores[:0]
	for _, sc := range scores {
		if sc.Owner != owner {
			out = append(out, sc)
		}
	}
	return out
}

// snapToWire replaces the state of every ghost with its quantized wire form,
// so the server keeps simulating from exactly what clients receive.
func (s *Server) snapToWire() error {
	for id, entity := range s.ghosts {
		if !s.world.Valid(entity) {
			continue
		}
		e := s.world.Entry(entity)
		b, ok := s.proto.Binding(netcomponents.Ghost.Get(e).TypeIndex)
		if !ok {
			continue
		}
		snap, err := b.Pack(e)
		if err != nil {
			return fmt.Errorf("pack %s: %w", id, err)
		}
		if err := b.Store(e, snap); err != nil {
			return fmt.Errorf("store %s: %w", id, err)
		}
	}
	return nil
}

func (s *Server) ghostIDs() []ghostid.ID {
	ids := make([]ghostid.ID, 0, len(s.ghosts))
	for id := range s.ghosts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
