package core

import (
	"errors"
	"log"
	"sync"

	"github.com/automoto/ghostsync/config"
	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/jobs"
	"github.com/automoto/ghostsync/shared/messages"
	"github.com/automoto/ghostsync/shared/prespawn"
	"github.com/automoto/ghostsync/shared/protocol"
	"github.com/automoto/ghostsync/shared/sim"
	"github.com/automoto/ghostsync/shared/tick"
	"github.com/google/uuid"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/yohamta/donburi"
)

var ErrVersionMismatch = errors.New("client version mismatch")

// Options configures a Server.
type Options struct {
	Name    string
	Version string
	Netcode config.NetcodeConfig
}

// Server owns the authoritative world and every client connection.
type Server struct {
	opts      Options
	proto     *protocol.Protocol
	world     donburi.World
	sim       *sim.World
	loop      *GameLoop
	transport *transports.WsServerTransport

	// mu guards everything below. Router callbacks and the tick both take it,
	// so a tick observes a consistent set of connections and commands.
	mu   sync.Mutex
	tick tick.Tick

	ids      *ghostid.Allocator
	ghosts   map[ghostid.ID]donburi.Entity
	despawns map[ghostid.ID]tick.Tick
	match    ghostid.ID

	// Boomerang bookkeeping, keyed by boomerang ghost.
	boomerangHits   map[ghostid.ID]map[ghostid.ID]struct{}
	activeBoomerang map[ghostid.ID]ghostid.ID // player -> boomerang

	scenes    map[uint64]*loadedScene
	ranges    *prespawn.Allocator
	streaming *prespawn.Streaming

	conns         map[Peer]*Connection
	nextNetworkID uint32

	// writer serializes every job that mutates the ghost maps.
	writer jobs.Exclusive
}

// NewServer creates a server simulating level.
func NewServer(proto *protocol.Protocol, level *protocol.Level, opts Options) *Server {
	s := &Server{
		opts:            opts,
		proto:           proto,
		world:           donburi.NewWorld(),
		sim:             sim.NewWorld(level.Data, opts.Netcode.TickRate),
		ids:             ghostid.NewAllocator(),
		ghosts:          make(map[ghostid.ID]donburi.Entity),
		despawns:        make(map[ghostid.ID]tick.Tick),
		boomerangHits:   make(map[ghostid.ID]map[ghostid.ID]struct{}),
		activeBoomerang: make(map[ghostid.ID]ghostid.ID),
		scenes:          make(map[uint64]*loadedScene),
		ranges:          prespawn.NewAllocator(),
		streaming:       prespawn.NewStreaming(),
		conns:           make(map[Peer]*Connection),
	}
	s.loop = NewGameLoop(s, opts.Netcode.TickRate)

	if err := s.spawnMatch(); err != nil {
		logf("failed to spawn match ghost: %v", err)
	}
	if err := s.LoadScene(level); err != nil {
		logf("failed to load scene %s: %v", level.Name, err)
	}
	return s
}

// Start begins the server on the given port
func (s *Server) Start(port uint) error {
	s.setupRouterCallbacks()

	// Start game loop
	go s.loop.Run()

	// Create and start WebSocket transport
	s.transport = transports.NewWsServerTransport(port, "", nil)
	return s.transport.Start()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() {
	s.loop.Stop()
}

func (s *Server) setupRouterCallbacks() {
	router.OnConnect(func(client *router.NetworkClient) {
		log.Printf("[server] client connected: %s", client.Id())
	})

	router.OnDisconnect(func(client *router.NetworkClient, err error) {
		if err != nil {
			log.Printf("[server] client %s disconnected with error: %v", client.Id(), err)
		} else {
			log.Printf("[server] client %s disconnected", client.Id())
		}
		s.Disconnect(client)
	})

	router.On(func(client *router.NetworkClient, msg messages.JoinRequest) {
		s.Join(client, msg)
	})

	router.On(func(client *router.NetworkClient, msg messages.CommandPacket) {
		s.ReceiveCommands(client, msg.Data)
	})

	router.On(func(client *router.NetworkClient, msg messages.StartStreamingSceneGhosts) {
		s.StartStreaming(client, msg.SceneHash)
	})

	router.On(func(client *router.NetworkClient, msg messages.StopStreamingSceneGhosts) {
		s.StopStreaming(client, msg.SceneHash)
	})

	router.OnError(func(client *router.NetworkClient, err error) {
		log.Printf("[server] client error: %v", err)
	})
}

// Join admits a client and spawns its player ghost.
func (s *Server) Join(peer Peer, req messages.JoinRequest) {
	if s.opts.Version != "" && req.Version != s.opts.Version {
		log.Printf("[server] rejecting join from %q: %v (%q != %q)", req.PlayerName, ErrVersionMismatch, req.Version, s.opts.Version)
		_ = peer.SendMessage(messages.JoinRejected{Reason: ErrVersionMismatch.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.conns[peer]; ok && c.Joined {
		return
	}

	s.nextNetworkID++
	c := newConnection(peer, s.nextNetworkID, s.opts.Netcode.SnapshotHistory)
	if req.ReconnectToken != uuid.Nil && !s.sessionActive(req.ReconnectToken) {
		c.Session = req.ReconnectToken
	}
	c.Name = req.PlayerName

	id, err := s.spawnPlayer(c)
	if err != nil {
		log.Printf("[server] failed to spawn player for %q: %v", req.PlayerName, err)
		_ = peer.SendMessage(messages.JoinRejected{Reason: "server full"})
		return
	}
	c.Player = id
	c.Joined = true
	s.conns[peer] = c

	c.send(messages.JoinAccepted{
		Session:    c.Session,
		PlayerID:   uint32(id),
		NetworkID:  c.NetworkID,
		ServerName: s.opts.Name,
		TickRate:   s.opts.Netcode.TickRate,
		ServerTick: uint32(s.tick),
		Level:      s.levelName(),
	})
	c.send(s.prespawnRecords())

	log.Printf("[server] %q joined as %s (session %s)", req.PlayerName, id, c.Session)
}

// Disconnect removes the client's player and its streaming acks.
func (s *Server) Disconnect(peer Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conns[peer]
	if !ok {
		return
	}
	delete(s.conns, peer)

	if c.Player.IsValid() {
		s.despawnPlayer(c.Player)
	}
	s.finishUnloads(s.streaming.Drop(c.Session))
	log.Printf("[server] session %s left", c.Session)
}

func (s *Server) sessionActive(session uuid.UUID) bool {
	for _, c := range s.conns {
		if c.Session == session {
			return true
		}
	}
	return false
}

func (s *Server) connection(peer Peer) (*Connection, bool) {
	c, ok := s.conns[peer]
	if !ok || !c.Joined {
		return nil, false
	}
	return c, true
}

// World returns the ECS world
func (s *Server) World() donburi.World {
	return s.world
}

// PlayerCount returns the number of connected players
func (s *Server) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Tick returns the last simulated tick.
func (s *Server) Tick() tick.Tick {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

func logf(format string, args ...any) {
	log.Printf("[server] "+format, args...)
}
