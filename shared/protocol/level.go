package protocol

import (
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"strings"

	"github.com/automoto/ghostsync/shared/leveldata"
	"github.com/automoto/ghostsync/shared/netcomponents"
	"github.com/automoto/ghostsync/shared/prespawn"
	"github.com/automoto/ghostsync/shared/schema"
)

// PropVariants maps placement type names to PropGhost.Variant.
var PropVariants = map[string]uint8{
	"crate":  0,
	"barrel": 1,
	"sign":   2,
}

const defaultPropHealth = 30

// Level is a loaded subscene: its collision data, its prespawn content and
// the initial state of every baked ghost in local index order.
type Level struct {
	Name  string
	Data  *leveldata.CollisionData
	Scene *prespawn.Scene
	Props []netcomponents.PropGhost
}

// LoadLevel parses the TMX file at path. The subscene hash is taken over the
// raw file so server and client agree only when they load identical content.
func (p *Protocol) LoadLevel(fsys fs.FS, path string) (*Level, error) {
	raw, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read level %s: %w", path, err)
	}
	data, err := leveldata.Load(fsys, path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return p.BuildLevel(name, prespawn.ContentHash(raw), data)
}

// BuildLevel derives the prespawn scene of already parsed level data.
func (p *Protocol) BuildLevel(name string, hash uint64, data *leveldata.CollisionData) (*Level, error) {
	b, ok := p.BindingByName(GhostProp)
	if !ok {
		return nil, fmt.Errorf("level %s: %s ghost type not registered", name, GhostProp)
	}

	lvl := &Level{Name: name, Data: data}
	ghosts := make([]prespawn.Ghost, 0, len(data.Ghosts))
	for _, g := range data.Ghosts {
		prop, err := propFromPlacement(g)
		if err != nil {
			return nil, fmt.Errorf("level %s: %w", name, err)
		}
		snap, err := b.Type.Pack(&prop)
		if err != nil {
			return nil, fmt.Errorf("level %s: pack %s: %w", name, g.Type, err)
		}
		lvl.Props = append(lvl.Props, prop)
		ghosts = append(ghosts, prespawn.Ghost{LocalIndex: g.LocalIndex, Type: b.Type, Baseline: snap})
	}

	scene, err := prespawn.NewScene(hash, ghosts)
	if err != nil {
		return nil, fmt.Errorf("level %s: %w", name, err)
	}
	lvl.Scene = scene
	return lvl, nil
}

func propFromPlacement(g leveldata.GhostPlacement) (netcomponents.PropGhost, error) {
	variant, ok := PropVariants[g.Type]
	if !ok {
		return netcomponents.PropGhost{}, fmt.Errorf("object %d: unknown ghost type %q", g.ObjectID, g.Type)
	}
	health := g.Health
	if health <= 0 {
		health = defaultPropHealth
	}
	// Tiled rotates clockwise in degrees around the object origin.
	half := g.Rotation * math.Pi / 360
	return netcomponents.PropGhost{
		Position: schema.Float2{float32(g.X), float32(g.Y)},
		Rotation: schema.Quaternion{0, 0, float32(math.Sin(half)), float32(math.Cos(half))},
		Health:   int16(health),
		Variant:  variant,
	}, nil
}
