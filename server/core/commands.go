package core

import (
	"github.com/automoto/ghostsync/shared/command"
	"github.com/automoto/ghostsync/shared/tick"
)

// ReceiveCommands handles a client's command packet: it merges the snapshot
// acknowledgements and stores the input samples for the ticks still ahead.
func (s *Server) ReceiveCommands(peer Peer, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.connection(peer)
	if !ok {
		return
	}
	p, err := command.DecodePacket(data, command.PlayerInputSerializer{}, s.proto.Model())
	if err != nil {
		logf("bad command packet from %s: %v", c.Session, err)
		return
	}

	c.acks.Merge(p.AckTick, p.AckMask)

	if p.Ghost != c.Player {
		logf("session %s sent commands for %s, owns %s", c.Session, p.Ghost, c.Player)
		return
	}
	for _, sample := range p.Samples {
		// Input for ticks already simulated can no longer apply.
		if s.tick.IsValid() && !tick.IsNewer(sample.Tick, s.tick) {
			continue
		}
		c.commands.Add(sample.Tick, sample.Value)
	}
}
