package core

import (
	"context"
	"sort"

	"github.com/automoto/ghostsync/config"
	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/netcomponents"
	"github.com/automoto/ghostsync/shared/netconfig"
	"github.com/automoto/ghostsync/shared/sim"
)

// simulate advances the world by one tick. It runs as the exclusive writer
// job, so it is the only code touching the ghost maps while it runs.
func (s *Server) simulate(context.Context) error {
	s.tick = s.tick.Next()

	for _, c := range s.sortedConnections() {
		p, ok := s.player(c.Player)
		if !ok {
			continue
		}
		throw, thrown := s.sim.StepPlayer(c.Player, p, c.input(s.tick))
		if !thrown {
			continue
		}
		if _, busy := s.activeBoomerang[c.Player]; busy {
			continue
		}
		if err := s.spawnBoomerang(c.Player, throw); err != nil {
			logf("failed to spawn boomerang for %s: %v", c.Player, err)
		}
	}

	s.updateBoomerangs()
	s.updateMatch()
	return s.snapToWire()
}

func (s *Server) updateBoomerangs() {
	for id, hits := range s.boomerangHits {
		e, ok := s.entry(id)
		if !ok {
			delete(s.boomerangHits, id)
			continue
		}
		b := netcomponents.Boomerang.Get(e)

		var owner *netcomponents.PlayerGhost
		if p, ok := s.player(ghostid.ID(b.Owner)); ok {
			owner = p
		}

		res := s.sim.StepBoomerang(id, b, owner, hits)
		for _, target := range res.Hits {
			s.hitPlayer(target, b)
		}
		if res.Caught {
			s.despawnBoomerang(id)
		}
	}
}

func (s *Server) hitPlayer(target ghostid.ID, b *netcomponents.BoomerangGhost) {
	tp, ok := s.player(target)
	if !ok {
		return
	}
	sim.ApplyHit(tp, b)
	tp.State = int16(netconfig.Hit)
	if tp.Health > 0 {
		return
	}

	if m, ok := s.matchState(); ok {
		m.ScoreOf(tp.Owner).Deaths++
		if killer, ok := s.player(ghostid.ID(b.Owner)); ok {
			m.ScoreOf(killer.Owner).Kills++
		}
	}
	s.respawn(tp)
}

// respawn resets a dead player in place. Input counters are kept so events
// already consumed are not replayed.
func (s *Server) respawn(p *netcomponents.PlayerGhost) {
	x, y := s.sim.Spawn(int(p.Owner))
	p.Position = [2]float32{float32(x), float32(y)}
	p.Velocity = [2]float32{}
	p.Health = int16(config.Player.Health)
	p.OnGround = false
	p.Charge = 0
	p.State = int16(netconfig.Idle)
}

func (s *Server) updateMatch() {
	m, ok := s.matchState()
	if !ok {
		return
	}
	players := 0
	for _, c := range s.conns {
		if c.Joined {
			players++
		}
	}
	switch {
	case players == 0:
		m.State = uint8(netconfig.MatchStateWaiting)
		m.Timer = 0
	case m.MatchState() == netconfig.MatchStateWaiting:
		m.State = uint8(netconfig.MatchStatePlaying)
		m.Timer = 0
	default:
		m.Timer += 1 / float32(s.opts.Netcode.TickRate)
	}
}

func (s *Server) sortedConnections() []*Connection {
	out := make([]*Connection, 0, len(s.conns))
	for _, c := range s.conns {
		if c.Joined {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NetworkID < out[j].NetworkID })
	return out
}
