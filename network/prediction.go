package network

import (
	"fmt"
	"log"

	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/protocol"
	"github.com/automoto/ghostsync/shared/schema"
	"github.com/automoto/ghostsync/shared/snapshot"
	"github.com/automoto/ghostsync/shared/tick"
	"github.com/yohamta/donburi"
)

// PredictionState is where a predicted ghost is in reconciliation.
type PredictionState int

const (
	AwaitingFirstSnapshot PredictionState = iota
	Predicting
	Resimulating
)

func (s PredictionState) String() string {
	switch s {
	case AwaitingFirstSnapshot:
		return "awaiting"
	case Predicting:
		return "predicting"
	case Resimulating:
		return "resimulating"
	default:
		return "unknown"
	}
}

// StepFunc advances the ghost state stored on entry by the simulation tick t.
type StepFunc func(entry *donburi.Entry, t tick.Tick) error

// Predictor runs one ghost ahead of the server and reconciles it with the
// authoritative snapshots as they arrive.
type Predictor struct {
	id       ghostid.ID
	binding  *protocol.Binding
	step     StepFunc
	smoother *smoother
	report   *ErrorReport
	maxAhead int32

	state    PredictionState
	tick     tick.Tick // tick of the state on the entity
	authTick tick.Tick // newest authoritative tick applied

	// history holds the predicted state per tick at wire precision.
	history *snapshot.Ring

	corrections int
}

func newPredictor(id ghostid.ID, b *protocol.Binding, step StepFunc, historySize int, maxAhead int) *Predictor {
	return &Predictor{
		id:       id,
		binding:  b,
		step:     step,
		maxAhead: int32(maxAhead),
		history:  snapshot.NewRing(historySize),
	}
}

func (p *Predictor) ID() ghostid.ID         { return p.id }
func (p *Predictor) State() PredictionState { return p.state }

// Tick returns the tick the predicted state belongs to.
func (p *Predictor) Tick() tick.Tick { return p.tick }

// Corrections counts the rollbacks performed so far.
func (p *Predictor) Corrections() int { return p.corrections }

// Reconcile applies the authoritative state of tick t. A prediction that
// matches it bit for bit is kept; otherwise the ghost rolls back to t and
// replays every tick up to where it was.
func (p *Predictor) Reconcile(entry *donburi.Entry, t tick.Tick, auth *schema.Snapshot) error {
	if p.state == AwaitingFirstSnapshot {
		return p.adopt(entry, t, auth)
	}
	if !tick.IsNewer(t, p.authTick) {
		return nil
	}
	p.authTick = t
	if tick.IsNewerOrEqual(t, p.tick) {
		// The server is at or past our prediction.
		return p.adopt(entry, t, auth)
	}
	predicted, ok := p.history.At(t)
	if ok && predicted.Snapshot.Equal(auth) {
		return nil
	}
	if ok && p.report != nil {
		p.report.Compare(p.binding.Type, predicted.Snapshot, auth)
	}
	return p.rollback(entry, t, auth)
}

func (p *Predictor) adopt(entry *donburi.Entry, t tick.Tick, auth *schema.Snapshot) error {
	if err := p.binding.Store(entry, auth); err != nil {
		return fmt.Errorf("predict %s: %w", p.id, err)
	}
	p.history.Clear()
	if err := p.history.Push(t, auth); err != nil {
		return err
	}
	p.tick, p.authTick = t, t
	p.state = Predicting
	return nil
}

func (p *Predictor) rollback(entry *donburi.Entry, t tick.Tick, auth *schema.Snapshot) error {
	backup, err := p.binding.Pack(entry)
	if err != nil {
		return fmt.Errorf("predict %s: %w", p.id, err)
	}
	target := p.tick
	if err := p.adopt(entry, t, auth); err != nil {
		return err
	}
	p.corrections++

	p.state = Resimulating
	for p.tick != target {
		if err := p.advance(entry); err != nil {
			return err
		}
	}
	p.state = Predicting

	if p.smoother == nil {
		return nil
	}
	current, _ := p.history.Newest()
	out := p.smoother.fn(p.binding.Type, current.Snapshot, backup, p.smoother.params)
	if out == nil || out == current.Snapshot {
		return nil
	}
	if err := p.binding.Store(entry, out); err != nil {
		return fmt.Errorf("predict %s: %w", p.id, err)
	}
	return p.history.Push(target, out)
}

// Advance predicts forward until target, never further than the configured
// distance past the newest authoritative tick.
func (p *Predictor) Advance(entry *donburi.Entry, target tick.Tick) error {
	if p.state != Predicting {
		return nil
	}
	if limit := p.authTick.Add(p.maxAhead); p.maxAhead > 0 && tick.IsNewer(target, limit) {
		target = limit
	}
	for tick.IsNewer(target, p.tick) {
		if err := p.advance(entry); err != nil {
			return err
		}
	}
	return nil
}

// advance simulates one tick and snaps the result to wire precision, the
// same way the server does, so predictions compare exactly.
func (p *Predictor) advance(entry *donburi.Entry) error {
	next := p.tick.Next()
	if err := p.step(entry, next); err != nil {
		return fmt.Errorf("predict %s tick %d: %w", p.id, next, err)
	}
	snap, err := p.binding.Pack(entry)
	if err != nil {
		return fmt.Errorf("predict %s: %w", p.id, err)
	}
	if err := p.binding.Store(entry, snap); err != nil {
		return fmt.Errorf("predict %s: %w", p.id, err)
	}
	p.tick = next
	return p.history.Push(next, snap)
}

// Reset drops the prediction; the next authoritative snapshot is adopted
// as is.
func (p *Predictor) Reset() {
	if p.state != AwaitingFirstSnapshot {
		log.Printf("[predict] %s reset at tick %d", p.id, p.tick)
	}
	p.history.Clear()
	p.state = AwaitingFirstSnapshot
	p.tick, p.authTick = tick.Invalid, tick.Invalid
}
