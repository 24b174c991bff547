package network

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/automoto/ghostsync/shared/messages"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
)

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateJoinedGame
	StateError
)

// snapshotBacklog is how many undelivered snapshots are kept. When it fills
// the oldest is dropped, which the server sees as packet loss.
const snapshotBacklog = 32

var ErrNotConnected = errors.New("not connected")

func logf(format string, args ...any) {
	log.Printf("[client] "+format, args...)
}

// Client manages a WebSocket connection to the game server.
// All shared fields are protected by mu (router callbacks run on necs goroutines).
type Client struct {
	mu sync.RWMutex

	state     ClientState
	lastError error
	accepted  *messages.JoinAccepted
	conn      *websocket.Conn

	acceptCh   chan messages.JoinAccepted    // size-1 buffered
	snapshotCh chan messages.SnapshotPacket  // drops oldest when full
	recordsCh  chan messages.PrespawnRecords // size-1 buffered; latest wins
}

func NewClient() *Client {
	return &Client{
		state:      StateDisconnected,
		acceptCh:   make(chan messages.JoinAccepted, 1),
		snapshotCh: make(chan messages.SnapshotPacket, snapshotBacklog),
		recordsCh:  make(chan messages.PrespawnRecords, 1),
	}
}

// Connect dials the server in a background goroutine and initiates the join handshake.
func (c *Client) Connect(address, version, playerName string, reconnect uuid.UUID) {
	c.mu.Lock()
	c.state = StateConnecting
	c.lastError = nil
	c.accepted = nil
	c.mu.Unlock()

	router.OnConnect(func(_ *router.NetworkClient) {
		logf("connected to server")
		c.mu.Lock()
		c.state = StateConnected
		c.mu.Unlock()

		err := c.SendMessage(messages.JoinRequest{
			Version:        version,
			PlayerName:     playerName,
			ReconnectToken: reconnect,
		})
		if err != nil {
			c.setError(fmt.Errorf("failed to send join request: %w", err))
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinAccepted) {
		logf("join accepted: session=%s player=%d server=%s tickRate=%d",
			msg.Session, msg.PlayerID, msg.ServerName, msg.TickRate)
		c.mu.Lock()
		c.accepted = &msg
		c.state = StateJoinedGame
		c.mu.Unlock()
		latest(c.acceptCh, msg)
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinRejected) {
		logf("join rejected: %s", msg.Reason)
		c.setError(fmt.Errorf("join rejected: %s", msg.Reason))
	})

	router.On(func(_ *router.NetworkClient, msg messages.SnapshotPacket) {
		for {
			select {
			case c.snapshotCh <- msg:
				return
			default:
			}
			select { // full: drop the oldest
			case <-c.snapshotCh:
			default:
			}
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.PrespawnRecords) {
		latest(c.recordsCh, msg)
	})

	router.OnDisconnect(func(_ *router.NetworkClient, err error) {
		logf("disconnected: %v", err)
		c.mu.Lock()
		if c.state != StateError {
			c.state = StateDisconnected
		}
		c.conn = nil
		c.mu.Unlock()
	})

	router.OnError(func(_ *router.NetworkClient, err error) {
		logf("error: %v", err)
	})

	go func() {
		transport := transports.NewWsClientTransport("ws://" + address)
		err := transport.Start(func(conn *websocket.Conn) {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
		})
		if err != nil {
			c.setError(fmt.Errorf("connection failed: %w", err))
		}
	}()
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	if c.state != StateError {
		c.state = StateDisconnected
	}
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}

	router.ResetRouter()
}

func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// Accepted returns the server's join answer once joined.
func (c *Client) Accepted() (messages.JoinAccepted, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.accepted == nil {
		return messages.JoinAccepted{}, false
	}
	return *c.accepted, true
}

// Drain returns every pending server message in handling order: the join
// answer, then the newest prespawn records, then snapshots oldest first.
// Non-blocking.
func (c *Client) Drain() []any {
	var out []any
	for _, m := range drainChan(c.acceptCh) {
		out = append(out, m)
	}
	for _, m := range drainChan(c.recordsCh) {
		out = append(out, m)
	}
	for _, m := range drainChan(c.snapshotCh) {
		out = append(out, m)
	}
	return out
}

func (c *Client) SendMessage(msg any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	payload, err := router.Serialize(msg)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	return conn.Write(context.Background(), websocket.MessageBinary, payload)
}

func (c *Client) setError(err error) {
	c.mu.Lock()
	c.state = StateError
	c.lastError = err
	c.mu.Unlock()
}

// latest replaces whatever is buffered in a size-1 channel with v.
func latest[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

func drainChan[T any](ch chan T) []T {
	var out []T
	for {
		select {
		case v := <-ch:
			out = append(out, v)
		default:
			return out
		}
	}
}
