package command

import (
	"github.com/automoto/ghostsync/shared/codec"
	"github.com/automoto/ghostsync/shared/netconfig"
)

// PlayerInput is the per-tick input sample of a player ghost.
type PlayerInput struct {
	// Direction is -1 for left, 0 for none and 1 for right.
	Direction int8
	// Held is a bitset of netconfig.ActionID values currently held down.
	Held   uint16
	Jump   InputEvent
	Attack InputEvent
}

// Holding reports whether action is held.
func (in PlayerInput) Holding(a netconfig.ActionID) bool {
	return in.Held&(1<<uint(a)) != 0
}

// Hold marks action as held.
func (in *PlayerInput) Hold(a netconfig.ActionID) {
	in.Held |= 1 << uint(a)
}

// PlayerInputSerializer implements Serializer for PlayerInput.
type PlayerInputSerializer struct{}

func (PlayerInputSerializer) Write(w *codec.Writer, v, base PlayerInput, m *codec.CompressionModel) {
	w.WritePackedIntDelta(int32(v.Direction), int32(base.Direction), m)
	w.WritePackedUintDelta(uint32(v.Held), uint32(base.Held), m)
	w.WritePackedIntDelta(int32(v.Jump.Count), int32(base.Jump.Count), m)
	w.WritePackedIntDelta(int32(v.Attack.Count), int32(base.Attack.Count), m)
}

func (PlayerInputSerializer) Read(r *codec.Reader, base PlayerInput, m *codec.CompressionModel) PlayerInput {
	return PlayerInput{
		Direction: int8(r.ReadPackedIntDelta(int32(base.Direction), m)),
		Held:      uint16(r.ReadPackedUintDelta(uint32(base.Held), m)),
		Jump:      InputEvent{Count: uint32(r.ReadPackedIntDelta(int32(base.Jump.Count), m))},
		Attack:    InputEvent{Count: uint32(r.ReadPackedIntDelta(int32(base.Attack.Count), m))},
	}
}
