package network

import (
	"errors"
	"fmt"
	"time"

	"github.com/automoto/ghostsync/config"
	"github.com/automoto/ghostsync/shared/command"
	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/messages"
	"github.com/automoto/ghostsync/shared/prespawn"
	"github.com/automoto/ghostsync/shared/protocol"
	"github.com/google/uuid"
)

var ErrJoinRejected = errors.New("join rejected")

// Sender is the outgoing half of the connection. Client satisfies it.
type Sender interface {
	SendMessage(msg any) error
}

// Session runs the client side of a game: it applies server messages to the
// replica, validates prespawned scenes, predicts the local player and sends
// its commands.
type Session struct {
	opts    config.NetcodeConfig
	out     Sender
	replica *Replica
	scenes  *SceneSync

	joined     bool
	session    uuid.UUID
	err        error
	stalled    bool
	sendErrors int
}

// NewSession creates a session for a client that has loaded level.
func NewSession(proto *protocol.Protocol, level *protocol.Level, out Sender, opts config.NetcodeConfig) *Session {
	s := &Session{
		opts:    opts,
		out:     out,
		replica: NewReplica(proto, level, opts),
		scenes:  NewSceneSync(),
	}
	s.scenes.Load(level)
	return s
}

func (s *Session) Replica() *Replica    { return s.replica }
func (s *Session) Scenes() *SceneSync   { return s.scenes }
func (s *Session) Joined() bool         { return s.joined }
func (s *Session) SessionID() uuid.UUID { return s.session }
func (s *Session) Err() error           { return s.err }

// Handle applies one server message. A returned error is fatal to the
// connection; snapshots that fail to decode are only logged.
func (s *Session) Handle(msg any) error {
	if s.err != nil {
		return s.err
	}
	switch m := msg.(type) {
	case messages.JoinAccepted:
		s.joined = true
		s.session = m.Session
		s.replica.SetOwned(ghostid.ID(m.PlayerID))
	case messages.JoinRejected:
		s.err = fmt.Errorf("%w: %s", ErrJoinRejected, m.Reason)
	case messages.PrespawnRecords:
		s.err = s.handleRecords(m.Data)
	case messages.SnapshotPacket:
		if _, err := s.replica.Apply(m.Data); err != nil {
			logf("warning: dropped snapshot: %v", err)
		}
	}
	return s.err
}

func (s *Session) handleRecords(data []byte) error {
	records, err := prespawn.DecodeRecords(data)
	if err != nil {
		return fmt.Errorf("prespawn records: %w", err)
	}
	start, err := s.scenes.Apply(records, s.replica)
	if err != nil {
		logf("prespawn validation failed, disconnecting: %v", err)
		return err
	}
	for _, hash := range start {
		s.send(messages.StartStreamingSceneGhosts{SceneHash: hash})
	}
	return nil
}

// Pump handles every message the client has received since the last call.
func (s *Session) Pump(c *Client) error {
	for _, msg := range c.Drain() {
		if err := s.Handle(msg); err != nil {
			return err
		}
	}
	return nil
}

// Step runs one client tick under the local input: advance the clock,
// predict up to the command lead, send the commands with the snapshot acks,
// then update interpolated and blending ghosts.
func (s *Session) Step(in command.PlayerInput, dt time.Duration) error {
	if s.err != nil {
		return s.err
	}
	r := s.replica
	r.AdvanceClock()
	if !s.joined || !r.Now().IsValid() {
		return nil
	}

	target := r.Now().Add(int32(s.opts.CommandLead))
	r.AddCommand(target, in)
	if err := r.Predict(target); err != nil {
		return err
	}
	s.send(messages.CommandPacket{Data: r.CommandPacket()})

	r.Interpolate(0)
	r.Present(dt)

	if stale := r.Stale(); stale != s.stalled {
		s.stalled = stale
		if stale {
			logf("warning: no snapshot for %d ticks", s.opts.StaleAfter)
		}
	}
	return nil
}

// UnloadScene drops a local subscene and tells the server to stop streaming
// its ghosts.
func (s *Session) UnloadScene(hash uint64) {
	if s.scenes.Unload(hash, s.replica) {
		s.send(messages.StopStreamingSceneGhosts{SceneHash: hash})
	}
}

func (s *Session) send(msg any) {
	if err := s.out.SendMessage(msg); err != nil {
		s.sendErrors++
		if s.sendErrors == 1 || s.sendErrors%100 == 0 {
			logf("send failed (%d): %v", s.sendErrors, err)
		}
	}
}
