package netcomponents

import (
	"github.com/automoto/ghostsync/shared/schema"
	"github.com/yohamta/donburi"
)

// PlayerGhost is the replicated state of a player character. It is also the
// full simulation state, so restoring it from a snapshot is enough to
// resimulate from that tick.
type PlayerGhost struct {
	Position  schema.Float2 `ghost:"quant=100,smooth=extrap,maxdist=96"`
	Velocity  schema.Float2 `ghost:"quant=100,smooth=interp"`
	Direction int8          `ghost:""`
	State     int16         `ghost:""`
	OnGround  bool          `ghost:""`
	Health    int16         `ghost:""`

	// Owner is the network id of the controlling connection.
	Owner uint32 `ghost:""`

	// Last consumed input event counters.
	JumpCount   uint32 `ghost:""`
	AttackCount uint32 `ghost:""`

	// Charge counts sub-steps the attack button has been held.
	Charge uint16 `ghost:""`

	Name      string          `ghost:"maxlen=16"`
	Inventory []InventoryItem `ghost:"cap=8"`
}

// InventoryItem is one slot of a player's inventory buffer.
type InventoryItem struct {
	Kind  uint16 `ghost:""`
	Count int16  `ghost:""`
}

var Player = donburi.NewComponentType[PlayerGhost]()
