// Package sim is the deterministic game simulation shared by the server and
// client-side prediction. A step only reads the ghost state it is given and
// the static level, so replaying recorded input from a restored snapshot
// reproduces the server's result.
package sim

import (
	"log"

	"github.com/automoto/ghostsync/config"
	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/leveldata"
	"github.com/solarlune/resolv"
)

// resolv tags
const (
	TagSolid      = "solid"
	TagRamp       = "ramp"
	TagSlope45UpR = "45_up_right"
	TagSlope45UpL = "45_up_left"
	TagPlayer     = "player"
	TagBoomerang  = "boomerang"
)

// World holds the collision space of a level and the bodies of the ghosts
// simulated in it.
type World struct {
	Space       *resolv.Space
	SpawnPoints []leveldata.SpawnPoint
	MapWidth    int
	MapHeight   int
	SubSteps    int

	bodies map[ghostid.ID]*resolv.Object
	owners map[*resolv.Object]ghostid.ID
}

// NewWorld builds a resolv.Space from parsed collision data.
func NewWorld(data *leveldata.CollisionData, tickRate int) *World {
	space := resolv.NewSpace(data.MapWidth, data.MapHeight, 16, 16)

	for _, r := range data.SolidRects {
		var obj *resolv.Object
		switch r.SlopeType {
		case TagSlope45UpR:
			obj = resolv.NewObject(r.X, r.Y, r.W, r.H, TagRamp, TagSlope45UpR)
		case TagSlope45UpL:
			obj = resolv.NewObject(r.X, r.Y, r.W, r.H, TagRamp, TagSlope45UpL)
		default:
			obj = resolv.NewObject(r.X, r.Y, r.W, r.H, TagSolid)
		}
		obj.SetShape(resolv.NewRectangle(0, 0, r.W, r.H))
		space.Add(obj)
	}

	log.Printf("[sim] loaded level: %d solid tiles, %d spawn points, %dx%d map",
		len(data.SolidRects), len(data.SpawnPoints), data.MapWidth, data.MapHeight)

	return &World{
		Space:       space,
		SpawnPoints: data.SpawnPoints,
		MapWidth:    data.MapWidth,
		MapHeight:   data.MapHeight,
		SubSteps:    config.SubSteps(tickRate),
		bodies:      make(map[ghostid.ID]*resolv.Object),
		owners:      make(map[*resolv.Object]ghostid.ID),
	}
}

// Body returns the collision object of ghost id, creating it on first use.
func (w *World) Body(id ghostid.ID, width, height float64, tag string) *resolv.Object {
	if obj, ok := w.bodies[id]; ok {
		return obj
	}
	obj := resolv.NewObject(0, 0, width, height, tag)
	obj.SetShape(resolv.NewRectangle(0, 0, width, height))
	w.Space.Add(obj)
	w.bodies[id] = obj
	w.owners[obj] = id
	return obj
}

func (w *World) RemoveBody(id ghostid.ID) {
	obj, ok := w.bodies[id]
	if !ok {
		return
	}
	w.Space.Remove(obj)
	delete(w.bodies, id)
	delete(w.owners, obj)
}

// Owner returns the ghost whose body is obj.
func (w *World) Owner(obj *resolv.Object) (ghostid.ID, bool) {
	id, ok := w.owners[obj]
	return id, ok
}

func (w *World) Bodies() int { return len(w.bodies) }

// Spawn returns the spawn point for the n-th player, cycling through the
// level's points left to right.
func (w *World) Spawn(n int) (x, y float64) {
	if len(w.SpawnPoints) == 0 {
		return 100, 100
	}
	p := w.SpawnPoints[n%len(w.SpawnPoints)]
	return p.X, p.Y
}

// place moves obj to x, y and refreshes its space cells.
func place(obj *resolv.Object, x, y float64) {
	obj.X = x
	obj.Y = y
	obj.Update()
}
