package leveldata

import (
	"fmt"
	"io/fs"
	"sort"

	"github.com/lafriks/go-tiled"
)

// Layer names read from a TMX file.
const (
	SolidLayer = "wg-tiles"
	SpawnLayer = "PlayerSpawn"
	GhostLayer = "Ghosts"
)

// Load parses the TMX file at path within fsys. Callers pass os.DirFS on
// the server and whatever filesystem holds the client's copy of the level.
func Load(fsys fs.FS, path string) (*CollisionData, error) {
	m, err := tiled.LoadFile(path, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", path, err)
	}
	return &CollisionData{
		MapWidth:    m.Width * m.TileWidth,
		MapHeight:   m.Height * m.TileHeight,
		SolidRects:  solidRects(m),
		SpawnPoints: spawnPoints(m.ObjectGroups),
		Ghosts:      ghostPlacements(m.ObjectGroups),
	}, nil
}

// solidRects turns every tile of the solid layer into a collision rect. A
// tileset tile may carry a "slope" property naming its ramp direction.
func solidRects(m *tiled.Map) []SolidRect {
	var out []SolidRect
	w, h := float64(m.TileWidth), float64(m.TileHeight)
	for _, layer := range m.Layers {
		if layer.Name != SolidLayer {
			continue
		}
		for i, tile := range layer.Tiles {
			if tile.IsNil() {
				continue
			}
			r := SolidRect{
				X: float64(i%m.Width) * w,
				Y: float64(i/m.Width) * h,
				W: w,
				H: h,
			}
			if tt, err := tile.Tileset.GetTilesetTile(tile.ID); err == nil {
				r.SlopeType = tt.Properties.GetString("slope")
			}
			out = append(out, r)
		}
		return out
	}
	return out
}

// spawnPoints are returned left to right so players are assigned the same
// spawn on every build.
func spawnPoints(groups []*tiled.ObjectGroup) []SpawnPoint {
	var out []SpawnPoint
	for _, og := range groups {
		if og.Name != SpawnLayer {
			continue
		}
		for _, o := range og.Objects {
			out = append(out, SpawnPoint{X: o.X, Y: o.Y, Index: o.Properties.GetInt("spawnIndex")})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].X < out[j].X })
	return out
}

// ghostPlacements collects the objects of every ghost layer. Objects are
// ranked by id rather than by file order so editor re-saves that reshuffle
// the XML keep their local indices.
func ghostPlacements(groups []*tiled.ObjectGroup) []GhostPlacement {
	var out []GhostPlacement
	for _, og := range groups {
		if og.Name != GhostLayer {
			continue
		}
		for _, o := range og.Objects {
			if o.Name == "" {
				continue
			}
			out = append(out, GhostPlacement{
				ObjectID: o.ID,
				Type:     o.Name,
				X:        o.X,
				Y:        o.Y,
				Rotation: o.Rotation,
				Health:   o.Properties.GetInt("health"),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ObjectID < out[j].ObjectID })
	for i := range out {
		out[i].LocalIndex = int32(i)
	}
	return out
}
