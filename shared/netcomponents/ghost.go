package netcomponents

import (
	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/tick"
	"github.com/yohamta/donburi"
)

// GhostData identifies a replicated entity on either side of the connection.
type GhostData struct {
	ID        ghostid.ID
	TypeIndex uint32
	SpawnTick tick.Tick
	// Scene is the owning subscene hash of a prespawned ghost, zero otherwise.
	Scene uint64
}

var Ghost = donburi.NewComponentType[GhostData]()

// PredictedData marks a ghost the client simulates ahead of the server.
type PredictedData struct {
	// Owned is set for the ghost driven by local input.
	Owned bool
	// Tick is the simulation tick the current component value belongs to.
	Tick tick.Tick
}

var Predicted = donburi.NewComponentType[PredictedData]()

// InterpolatedData marks a ghost rendered behind the server from its history.
type InterpolatedData struct {
	RenderTick    tick.Tick
	Fraction      float64
	Extrapolating bool
}

var Interpolated = donburi.NewComponentType[InterpolatedData]()
