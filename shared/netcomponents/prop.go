package netcomponents

import (
	"github.com/automoto/ghostsync/shared/schema"
	"github.com/yohamta/donburi"
)

// PropGhost is a breakable level object. Props are baked into levels and
// replicated as prespawned ghosts.
type PropGhost struct {
	Position schema.Float2     `ghost:"quant=10"`
	Rotation schema.Quaternion `ghost:"quant=1000,smooth=interp"`
	Health   int16             `ghost:""`
	Broken   bool              `ghost:""`
	// Variant indexes the placement type table of the level.
	Variant uint8 `ghost:""`
}

var Prop = donburi.NewComponentType[PropGhost]()
