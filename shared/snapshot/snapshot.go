// Package snapshot implements the ghost baseline and delta engine: per-ghost
// snapshot history, baseline selection from acknowledged ticks, and the
// change-masked delta encoding of ghost records inside snapshot packets.
package snapshot

import (
	"errors"

	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/schema"
	"github.com/automoto/ghostsync/shared/tick"
)

var (
	// ErrMissingBaseline means a record references a baseline tick the
	// receiver does not hold. The ghost is discarded for that tick.
	ErrMissingBaseline = errors.New("snapshot: baseline not available")
	// ErrBaselineMismatch means the baseline set of a record is not one the
	// encoder could have produced, or does not fit the ghost type.
	ErrBaselineMismatch = errors.New("snapshot: baseline mismatch")
	ErrUnknownType      = errors.New("snapshot: unknown ghost type")
	ErrMalformed        = errors.New("snapshot: malformed packet")
	ErrOutOfOrder       = errors.New("snapshot: tick is older than history")
)

// MaxBaselines is the largest baseline set a record may reference.
const MaxBaselines = 3

// prespawnCode is the baseline count sent for a record encoded against the
// ghost's prespawn baseline.
const prespawnCode = 2

// Baseline is a snapshot the peer is known to hold, used as delta reference.
type Baseline struct {
	Tick     tick.Tick
	Snapshot *schema.Snapshot
}

// PrespawnBaseline wraps the baked state of a prespawned ghost. It is keyed
// by tick.Invalid, which is also the tick a BaselineSource is asked for when
// a record references it.
func PrespawnBaseline(s *schema.Snapshot) Baseline {
	return Baseline{Tick: tick.Invalid, Snapshot: s}
}

func (b Baseline) prespawn() bool { return b.Tick == tick.Invalid }

// Record is one ghost's state at one tick.
type Record struct {
	Tick     tick.Tick
	ID       ghostid.ID
	Type     *schema.GhostType
	Snapshot *schema.Snapshot
}
