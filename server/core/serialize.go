package core

import (
	"context"
	"fmt"

	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/jobs"
	"github.com/automoto/ghostsync/shared/messages"
	"github.com/automoto/ghostsync/shared/netcomponents"
	"github.com/automoto/ghostsync/shared/protocol"
	"github.com/automoto/ghostsync/shared/schema"
	"github.com/automoto/ghostsync/shared/snapshot"
	"github.com/yohamta/donburi"
)

// packedGhost is one ghost's state for the current tick, shared by every
// connection's packet.
type packedGhost struct {
	id      ghostid.ID
	scene   uint64
	binding *protocol.Binding
	entry   *donburi.Entry
	snap    *schema.Snapshot
	// prespawn is the baked baseline of a scene ghost, nil otherwise.
	prespawn *schema.Snapshot
}

// collectGhosts resolves the entries of every live ghost in id order.
func (s *Server) collectGhosts() []packedGhost {
	ids := s.ghostIDs()
	out := make([]packedGhost, 0, len(ids))
	for _, id := range ids {
		e, ok := s.entry(id)
		if !ok {
			continue
		}
		g := netcomponents.Ghost.Get(e)
		b, ok := s.proto.Binding(g.TypeIndex)
		if !ok {
			continue
		}
		pg := packedGhost{id: id, scene: g.Scene, binding: b, entry: e}
		if ls, ok := s.scenes[g.Scene]; ok {
			pg.prespawn = ls.baselines[id]
		}
		out = append(out, pg)
	}
	return out
}

// schedulePack packs every ghost in parallel batches once deps complete.
func (s *Server) schedulePack(ctx context.Context, ghosts []packedGhost, deps ...*jobs.Handle) *jobs.Handle {
	return jobs.ParallelFor(ctx, len(ghosts), s.opts.Netcode.SerializeBatch, func(_ context.Context, start, end int) error {
		for i := start; i < end; i++ {
			snap, err := ghosts[i].binding.Pack(ghosts[i].entry)
			if err != nil {
				return fmt.Errorf("pack %s: %w", ghosts[i].id, err)
			}
			ghosts[i].snap = snap
		}
		return nil
	}, deps...)
}

// scheduleSend builds and sends one packet per connection in parallel.
func (s *Server) scheduleSend(ctx context.Context, conns []*Connection, ghosts []packedGhost, deps ...*jobs.Handle) *jobs.Handle {
	return jobs.ParallelFor(ctx, len(conns), 1, func(_ context.Context, start, end int) error {
		for i := start; i < end; i++ {
			data, err := s.buildPacket(conns[i], ghosts)
			if err != nil {
				return fmt.Errorf("session %s: %w", conns[i].Session, err)
			}
			conns[i].send(messages.SnapshotPacket{Data: data})
		}
		return nil
	}, deps...)
}

// buildPacket encodes the current tick for c against the baselines c has
// acknowledged, and records what was sent in c's history.
func (s *Server) buildPacket(c *Connection, ghosts []packedGhost) ([]byte, error) {
	p := &snapshot.Packet{
		ServerTick: s.tick,
		Despawns:   s.pendingDespawns(c),
	}
	predict := s.opts.Netcode.MaxBaselines >= snapshot.MaxBaselines

	for _, g := range ghosts {
		if g.scene != 0 && !s.streaming.Relevant(c.Session, g.scene) {
			continue
		}
		ring := c.history.Ring(g.id)
		bases := snapshot.SelectBaselines(ring, &c.acks, s.tick, predict)
		if len(bases) == 0 && g.prespawn != nil {
			bases = []snapshot.Baseline{snapshot.PrespawnBaseline(g.prespawn)}
		}
		if err := ring.Push(s.tick, g.snap); err != nil {
			return nil, fmt.Errorf("history %s: %w", g.id, err)
		}
		p.Ghosts = append(p.Ghosts, snapshot.GhostDelta{
			Record: snapshot.Record{
				Tick:     s.tick,
				ID:       g.id,
				Type:     g.binding.Type,
				Snapshot: g.snap,
			},
			Baselines: bases,
		})
	}
	return snapshot.EncodePacket(p, s.proto.Model())
}
