package messages

import "github.com/google/uuid"

// JoinRequest is sent by a client after connecting to request joining the game.
type JoinRequest struct {
	Version    string
	PlayerName string
	// ReconnectToken is the session of a previous connection, or zero.
	ReconnectToken uuid.UUID
}

// JoinAccepted is sent by the server when a client's join request is accepted.
type JoinAccepted struct {
	Session    uuid.UUID
	PlayerID   uint32 // ghost id of the player the client controls
	NetworkID  uint32
	ServerName string
	TickRate   int
	ServerTick uint32
	Level      string
}

// JoinRejected is sent by the server when a client's join request is rejected.
type JoinRejected struct {
	Reason string
}
