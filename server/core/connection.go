package core

import (
	"github.com/automoto/ghostsync/shared/command"
	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/snapshot"
	"github.com/automoto/ghostsync/shared/tick"
	"github.com/google/uuid"
)

// Peer is the sending half of a client connection. router.NetworkClient
// satisfies it.
type Peer interface {
	SendMessage(msg any) error
}

// Connection is the server's per-client replication state. Everything here
// is private to the connection, so serialization jobs for different
// connections run in parallel.
type Connection struct {
	peer      Peer
	Session   uuid.UUID
	NetworkID uint32
	Name      string
	Player    ghostid.ID
	Joined    bool

	acks     snapshot.AckWindow
	history  *snapshot.History
	commands command.Buffer[command.PlayerInput]

	lastInput  command.PlayerInput
	sendErrors int
}

func newConnection(peer Peer, networkID uint32, historySize int) *Connection {
	return &Connection{
		peer:      peer,
		Session:   uuid.New(),
		NetworkID: networkID,
		history:   snapshot.NewHistory(historySize),
	}
}

// Acked reports whether the client acknowledged a snapshot at or after t.
// Any such snapshot carried everything still pending at t.
func (c *Connection) Acked(t tick.Tick) bool {
	newest, _ := c.acks.State()
	return newest.IsValid() && tick.IsNewerOrEqual(newest, t)
}

// input returns the command to simulate at t, repeating the last known one
// when the client's sample for t has not arrived.
func (c *Connection) input(t tick.Tick) command.PlayerInput {
	if s, ok := c.commands.AtTick(t); ok {
		c.lastInput = s.Value
	}
	return c.lastInput
}

func (c *Connection) send(msg any) {
	if err := c.peer.SendMessage(msg); err != nil {
		c.sendErrors++
		if c.sendErrors == 1 || c.sendErrors%100 == 0 {
			logf("send to %s failed (%d): %v", c.Session, c.sendErrors, err)
		}
	}
}
