// Package leveldata reads the static content of a level: collision tiles,
// spawn points and the ghosts baked into the map.
package leveldata

// CollisionData is everything the simulation and the prespawn scene of a
// level are built from.
type CollisionData struct {
	SolidRects  []SolidRect
	SpawnPoints []SpawnPoint
	Ghosts      []GhostPlacement
	MapWidth    int
	MapHeight   int
}

// SolidRect represents a solid collision tile.
type SolidRect struct {
	X, Y, W, H float64
	SlopeType  string // "", "45_up_right", "45_up_left"
}

// SpawnPoint represents a player spawn location.
type SpawnPoint struct {
	X, Y  float64
	Index int
}

// GhostPlacement is a ghost baked into the level. Placements are numbered in
// object id order, so every build of the same file yields the same
// LocalIndex for the same object.
type GhostPlacement struct {
	LocalIndex int32
	ObjectID   uint32
	Type       string
	X, Y       float64
	Rotation   float64
	Health     int
}
