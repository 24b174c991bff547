package protocol

import (
	"fmt"

	"github.com/automoto/ghostsync/shared/codec"
	"github.com/automoto/ghostsync/shared/netcomponents"
	"github.com/automoto/ghostsync/shared/schema"
	"github.com/yohamta/donburi"
)

// Ghost type names. Registration order fixes the wire type index, so new
// types are appended at the end.
const (
	GhostPlayer    = "player"
	GhostBoomerang = "boomerang"
	GhostProp      = "prop"
	GhostMatch     = "match"
)

// Binding ties a ghost type to the donburi component holding its state.
type Binding struct {
	Type      *schema.GhostType
	Component donburi.IComponentType

	get func(*donburi.Entry) any
	set func(*donburi.Entry, any)
}

// Value returns a pointer to the ghost state stored on entry.
func (b *Binding) Value(entry *donburi.Entry) any { return b.get(entry) }

// Store unpacks s into the component on entry.
func (b *Binding) Store(entry *donburi.Entry, s *schema.Snapshot) error {
	v := b.Type.New()
	if err := b.Type.Unpack(s, v); err != nil {
		return err
	}
	b.set(entry, v)
	return nil
}

// Pack snapshots the component on entry.
func (b *Binding) Pack(entry *donburi.Entry) (*schema.Snapshot, error) {
	return b.Type.Pack(b.get(entry))
}

// Protocol is the ghost type table shared by server and client. Both sides
// must build it with the same options.
type Protocol struct {
	Registry *schema.Registry

	bindings []*Binding
	byName   map[string]*Binding
}

// New registers every ghost type of the game. It must be called by both
// server and client before any network operations.
func New(opts ...schema.Option) (*Protocol, error) {
	p := &Protocol{
		Registry: schema.NewRegistry(opts...),
		byName:   make(map[string]*Binding),
	}

	if err := bind(p, GhostPlayer, netcomponents.Player); err != nil {
		return nil, err
	}
	if err := bind(p, GhostBoomerang, netcomponents.Boomerang); err != nil {
		return nil, err
	}
	if err := bind(p, GhostProp, netcomponents.Prop); err != nil {
		return nil, err
	}
	if err := bind(p, GhostMatch, netcomponents.Match); err != nil {
		return nil, err
	}
	return p, nil
}

func bind[T any](p *Protocol, name string, ct *donburi.ComponentType[T]) error {
	gt, err := p.Registry.Register(name, new(T))
	if err != nil {
		return fmt.Errorf("register ghost type %s: %w", name, err)
	}
	b := &Binding{
		Type:      gt,
		Component: ct,
		get:       func(e *donburi.Entry) any { return ct.Get(e) },
		set:       func(e *donburi.Entry, v any) { ct.Set(e, v.(*T)) },
	}
	p.bindings = append(p.bindings, b)
	p.byName[name] = b
	return nil
}

func (p *Protocol) Model() *codec.CompressionModel { return p.Registry.Model() }

func (p *Protocol) TypeByIndex(i uint32) (*schema.GhostType, bool) {
	return p.Registry.TypeByIndex(i)
}

func (p *Protocol) Binding(i uint32) (*Binding, bool) {
	if int(i) >= len(p.bindings) {
		return nil, false
	}
	return p.bindings[i], true
}

func (p *Protocol) BindingByName(name string) (*Binding, bool) {
	b, ok := p.byName[name]
	return b, ok
}

// BindingOf finds the binding whose component is present on entry.
func (p *Protocol) BindingOf(entry *donburi.Entry) (*Binding, bool) {
	for _, b := range p.bindings {
		if entry.HasComponent(b.Component) {
			return b, true
		}
	}
	return nil, false
}
