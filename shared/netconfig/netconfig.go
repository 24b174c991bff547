// Package netconfig holds the small enumerations that travel inside ghost
// fields and command samples. Both sides must agree on every value, so new
// entries are only ever appended.
package netconfig

// StateID is the movement state a player ghost reports.
type StateID int

const (
	Idle StateID = iota
	Running
	Jump
	Hit
	Throw
	StateChargingBoomerang
)

var stateNames = map[StateID]string{
	Idle:                   "idle",
	Running:                "running",
	Jump:                   "jump",
	Hit:                    "hit",
	Throw:                  "throw",
	StateChargingBoomerang: "charging",
}

func (s StateID) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MatchStateID is the phase of the match ghost.
type MatchStateID int

const (
	MatchStateWaiting MatchStateID = iota
	MatchStatePlaying
	MatchStateFinished
)

// ActionID is a bit position in command.PlayerInput.Held.
type ActionID int

const (
	ActionNone ActionID = iota
	ActionMoveLeft
	ActionMoveRight
	ActionMoveUp
	ActionJump
	ActionAttack
	ActionCrouch
	ActionBoomerang
	ActionCount // must stay at most 16
)
