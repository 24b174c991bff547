package core

import (
	"context"
	"log"
	"time"
)

type GameLoop struct {
	server   *Server
	tickRate int
	running  bool
	stopChan chan struct{}
}

func NewGameLoop(server *Server, tickRate int) *GameLoop {
	return &GameLoop{
		server:   server,
		tickRate: tickRate,
		stopChan: make(chan struct{}),
	}
}

func (g *GameLoop) Run() {
	g.running = true
	ticker := time.NewTicker(time.Second / time.Duration(g.tickRate))
	defer ticker.Stop()

	log.Printf("[server] game loop started at %d ticks/second", g.tickRate)

	for {
		select {
		case <-g.stopChan:
			g.running = false
			log.Println("[server] game loop stopped")
			return
		case <-ticker.C:
			if err := g.server.Step(context.Background()); err != nil {
				log.Printf("[server] tick error: %v", err)
			}
		}
	}
}

func (g *GameLoop) Stop() {
	close(g.stopChan)
}

// Step runs one server tick: simulate, pack every ghost, send one snapshot
// per connection, then release acknowledged despawns. Each stage starts
// only once the previous one has completed.
func (s *Server) Step(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Schedule(ctx, s.simulate).Wait(); err != nil {
		return err
	}
	s.stampDespawns()

	ghosts := s.collectGhosts()
	packed := s.schedulePack(ctx, ghosts)
	sent := s.scheduleSend(ctx, s.sortedConnections(), ghosts, packed)
	released := s.writer.Schedule(ctx, func(context.Context) error {
		s.releaseDespawns()
		return nil
	}, sent)
	return released.Wait()
}
