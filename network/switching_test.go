package network

import (
	"testing"
	"time"

	"github.com/automoto/ghostsync/shared/netcomponents"
	"github.com/automoto/ghostsync/shared/protocol"
	"github.com/automoto/ghostsync/shared/schema"
)

func TestSwitcherEasesAndFinishes(t *testing.T) {
	proto, _ := newTestProtocol(t)
	b, _ := proto.BindingByName(protocol.GhostPlayer)
	from := packPlayer(t, b, netcomponents.PlayerGhost{Position: schema.Float2{0, 0}, Health: 1})
	target := packPlayer(t, b, netcomponents.PlayerGhost{Position: schema.Float2{100, 0}, Health: 5})

	s := NewSwitcher()
	if _, ok := s.Apply(9, b.Type, target, time.Millisecond); ok {
		t.Fatalf("blend applied without Begin")
	}
	s.Begin(9, from, 200*time.Millisecond)

	var xs []float32
	for i, dt := range []time.Duration{50, 50, 50, 100} {
		out, ok := s.Apply(9, b.Type, target, dt*time.Millisecond)
		if !ok {
			t.Fatalf("step %d: not blending", i)
		}
		var p netcomponents.PlayerGhost
		_ = b.Type.Unpack(out, &p)
		if p.Health != 5 {
			t.Fatalf("clamped field blended: health %d", p.Health)
		}
		xs = append(xs, p.Position[0])
	}
	for i := 1; i < len(xs); i++ {
		if xs[i] < xs[i-1] {
			t.Fatalf("blend moved backwards: %v", xs)
		}
	}
	if xs[1] != 50 {
		t.Fatalf("x at half time = %v, want 50", xs[1])
	}
	if xs[3] != 100 || s.Active(9) {
		t.Fatalf("blend did not finish on target: %v active %v", xs, s.Active(9))
	}
}

func TestSwitcherCancel(t *testing.T) {
	proto, _ := newTestProtocol(t)
	b, _ := proto.BindingByName(protocol.GhostPlayer)
	from := packPlayer(t, b, netcomponents.PlayerGhost{})

	s := NewSwitcher()
	s.Begin(9, from, time.Second)
	s.Begin(9, from, 0)
	if s.Active(9) {
		t.Fatalf("zero duration did not cancel")
	}
	s.Begin(9, from, time.Second)
	s.Forget(9)
	if s.Active(9) {
		t.Fatalf("forgotten ghost still blending")
	}
}
