package netcomponents

import (
	"github.com/automoto/ghostsync/shared/schema"
	"github.com/yohamta/donburi"
)

// Boomerang flight states.
const (
	BoomerangOutbound uint8 = iota
	BoomerangInbound
)

type BoomerangGhost struct {
	Position schema.Float2 `ghost:"quant=100,smooth=extrap,maxdist=128"`
	Velocity schema.Float2 `ghost:"quant=100,smooth=interp"`
	// Owner is the ghost id of the throwing player.
	Owner    uint32  `ghost:""`
	State    uint8   `ghost:""`
	Traveled float32 `ghost:"quant=10"`
	MaxRange float32 `ghost:"quant=10"`
	Charge   float32 `ghost:"quant=100"` // 0.0-1.0, for client VFX scaling
}

var Boomerang = donburi.NewComponentType[BoomerangGhost]()
