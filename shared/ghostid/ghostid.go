// Package ghostid encodes ghost identifiers. Bit 31 separates prespawned
// (baked into level content) ghosts from runtime-spawned ghosts, and the value
// 0 is reserved for "unassigned".
package ghostid

import (
	"errors"
	"fmt"
)

// ID identifies a replicated ghost on both ends of a connection.
type ID uint32

const (
	// Unassigned is the reserved invalid ID.
	Unassigned ID = 0

	// PrespawnBase is OR'd into every prespawned ghost ID.
	PrespawnBase ID = 1 << 31

	// MaxIndex is the largest value usable below the namespace bit.
	MaxIndex = uint32(PrespawnBase - 1)
)

var (
	ErrRangeExhausted = errors.New("ghostid: id space exhausted")
	ErrInvalidIndex   = errors.New("ghostid: index out of range")
)

// Kind classifies an ID into its three mutually exclusive states.
type Kind int

const (
	KindUnassigned Kind = iota
	KindRuntime
	KindPrespawn
)

func (k Kind) String() string {
	switch k {
	case KindRuntime:
		return "runtime"
	case KindPrespawn:
		return "prespawn"
	default:
		return "unassigned"
	}
}

// Kind reports which namespace id belongs to. A prespawn namespace bit with a
// zero index is still unassigned.
func (id ID) Kind() Kind {
	switch {
	case id.Index() == 0:
		return KindUnassigned
	case id&PrespawnBase != 0:
		return KindPrespawn
	default:
		return KindRuntime
	}
}

func (id ID) IsPrespawn() bool { return id.Kind() == KindPrespawn }
func (id ID) IsRuntime() bool  { return id.Kind() == KindRuntime }
func (id ID) IsValid() bool    { return id.Kind() != KindUnassigned }

// Index strips the namespace bit.
func (id ID) Index() uint32 {
	return uint32(id &^ PrespawnBase)
}

func (id ID) String() string {
	switch id.Kind() {
	case KindPrespawn:
		return fmt.Sprintf("prespawn:%d", id.Index())
	case KindRuntime:
		return fmt.Sprintf("runtime:%d", id.Index())
	default:
		return "unassigned"
	}
}

// Prespawn builds the ID for the entity at localIndex inside a subscene whose
// reserved range starts at firstGhostID. Both peers compute this without any
// ID exchange.
func Prespawn(firstGhostID int32, localIndex int32) (ID, error) {
	if firstGhostID <= 0 || localIndex < 0 {
		return Unassigned, fmt.Errorf("%w: first=%d index=%d", ErrInvalidIndex, firstGhostID, localIndex)
	}
	idx := int64(firstGhostID) + int64(localIndex)
	if idx > int64(MaxIndex) {
		return Unassigned, fmt.Errorf("%w: first=%d index=%d", ErrRangeExhausted, firstGhostID, localIndex)
	}
	return PrespawnBase | ID(idx), nil
}
