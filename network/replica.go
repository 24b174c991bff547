package network

import (
	"fmt"
	"sort"
	"time"

	"github.com/automoto/ghostsync/config"
	"github.com/automoto/ghostsync/shared/command"
	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/netcomponents"
	"github.com/automoto/ghostsync/shared/protocol"
	"github.com/automoto/ghostsync/shared/schema"
	"github.com/automoto/ghostsync/shared/sim"
	"github.com/automoto/ghostsync/shared/snapshot"
	"github.com/automoto/ghostsync/shared/tick"
	"github.com/yohamta/donburi"
)

// Replica is the client's copy of the replicated world. Ghosts are donburi
// entities carrying the ghost state component of their type plus either
// Predicted or Interpolated.
type Replica struct {
	proto *protocol.Protocol
	opts  config.NetcodeConfig
	world donburi.World
	sim   *sim.World

	history *snapshot.History
	acks    snapshot.AckWindow
	age     *tick.AgeEstimator
	// now is the estimate of the server's current tick.
	now tick.Tick

	ghosts     map[ghostid.ID]donburi.Entity
	predictors map[ghostid.ID]*Predictor
	smoothers  map[uint32]*smoother
	switcher   *Switcher
	visible    map[ghostid.ID]*schema.Snapshot
	report     *ErrorReport
	// prespawned holds the baked state of scene ghosts, the reference of
	// their first records.
	prespawned map[ghostid.ID]*schema.Snapshot

	owned       ghostid.ID
	commands    command.Buffer[command.PlayerInput]
	lastCommand tick.Tick
}

// NewReplica creates an empty replica simulating against level's collision.
func NewReplica(proto *protocol.Protocol, level *protocol.Level, opts config.NetcodeConfig) *Replica {
	r := &Replica{
		proto:      proto,
		opts:       opts,
		world:      donburi.NewWorld(),
		sim:        sim.NewWorld(level.Data, opts.TickRate),
		history:    snapshot.NewHistory(opts.SnapshotHistory),
		age:        tick.NewAgeEstimator(opts.AgeSmoothing),
		ghosts:     make(map[ghostid.ID]donburi.Entity),
		predictors: make(map[ghostid.ID]*Predictor),
		smoothers:  make(map[uint32]*smoother),
		switcher:   NewSwitcher(),
		visible:    make(map[ghostid.ID]*schema.Snapshot),
		report:     NewErrorReport(),
		prespawned: make(map[ghostid.ID]*schema.Snapshot),
	}
	if b, ok := proto.BindingByName(protocol.GhostPlayer); ok {
		r.smoothers[b.Type.Index] = &smoother{
			fn:     DefaultSmoothing,
			params: SmoothingParams{MaxDistance: opts.SmoothingDistance, Rate: opts.SmoothingRate},
		}
	}
	return r
}

func (r *Replica) World() donburi.World { return r.world }

// Now returns the estimated server tick, or tick.Invalid before the first
// snapshot.
func (r *Replica) Now() tick.Tick { return r.now }

// SnapshotAge returns the moving average age of received snapshots in ticks.
func (r *Replica) SnapshotAge() float64 { return r.age.Average() }

// Stale reports whether no snapshot arrived for longer than StaleAfter.
func (r *Replica) Stale() bool { return r.age.Stale(r.now, r.opts.StaleAfter) }

// Report returns the accumulated prediction errors.
func (r *Replica) Report() *ErrorReport { return r.report }

// SetOwned sets the ghost driven by local input. It is predicted as soon as
// it appears.
func (r *Replica) SetOwned(id ghostid.ID) { r.owned = id }

func (r *Replica) Owned() ghostid.ID { return r.owned }

// RegisterSmoothing installs fn for predicted ghosts of the named type. A nil
// fn makes corrections snap.
func (r *Replica) RegisterSmoothing(typeName string, fn SmoothingFunc, params any) error {
	b, ok := r.proto.BindingByName(typeName)
	if !ok {
		return fmt.Errorf("smoothing for unknown ghost type %s", typeName)
	}
	if fn == nil {
		delete(r.smoothers, b.Type.Index)
	} else {
		r.smoothers[b.Type.Index] = &smoother{fn: fn, params: params}
	}
	for _, p := range r.predictors {
		if p.binding == b {
			p.smoother = r.smoothers[b.Type.Index]
		}
	}
	return nil
}

// AdvanceClock moves the server tick estimate one tick forward.
func (r *Replica) AdvanceClock() {
	if r.now.IsValid() {
		r.now = r.now.Next()
	}
}

func (r *Replica) Entry(id ghostid.ID) (*donburi.Entry, bool) {
	entity, ok := r.ghosts[id]
	if !ok || !r.world.Valid(entity) {
		return nil, false
	}
	return r.world.Entry(entity), true
}

func (r *Replica) Predictor(id ghostid.ID) (*Predictor, bool) {
	p, ok := r.predictors[id]
	return p, ok
}

// Ghosts returns the ids of every known ghost in ascending order.
func (r *Replica) Ghosts() []ghostid.ID {
	ids := make([]ghostid.ID, 0, len(r.ghosts))
	for id := range r.ghosts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Apply decodes and applies one snapshot packet. Ghosts that cannot be
// decoded this tick are logged and skipped; the packet is acknowledged only
// if every ghost in it was stored, so the server never deltas against a
// snapshot this replica lacks.
func (r *Replica) Apply(data []byte) (*snapshot.Decoded, error) {
	d, err := snapshot.DecodePacket(data, r.proto, r)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if !r.now.IsValid() || tick.IsNewer(d.ServerTick, r.now) {
		r.now = d.ServerTick
	}
	r.age.Observe(r.now, d.ServerTick)

	for _, id := range d.Despawns {
		r.despawn(id)
	}

	complete := d.Complete()
	for _, dis := range d.Discarded {
		logf("warning: ghost %s discarded at tick %d: %v", dis.ID, dis.Tick, dis.Err)
	}
	for _, rec := range d.Ghosts {
		if err := r.applyGhost(rec); err != nil {
			logf("warning: ghost %s at tick %d: %v", rec.ID, rec.Tick, err)
			complete = false
		}
	}
	if complete {
		r.acks.Mark(d.ServerTick)
	}
	return d, nil
}

// Baseline resolves the references of incoming records. tick.Invalid names
// the prespawn baseline of a scene ghost.
func (r *Replica) Baseline(id ghostid.ID, t tick.Tick) (*schema.Snapshot, bool) {
	if t == tick.Invalid {
		s, ok := r.prespawned[id]
		return s, ok
	}
	return r.history.Baseline(id, t)
}

func (r *Replica) applyGhost(rec snapshot.Record) error {
	if err := r.history.Push(rec.ID, rec.Tick, rec.Snapshot); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	b, ok := r.proto.Binding(rec.Type.Index)
	if !ok {
		return fmt.Errorf("%w: %d", snapshot.ErrUnknownType, rec.Type.Index)
	}

	entry, existed := r.Entry(rec.ID)
	if existed && netcomponents.Ghost.Get(entry).TypeIndex != rec.Type.Index {
		// The id was reused for another type before our despawn arrived.
		r.removeEntity(rec.ID, entry)
		existed = false
	}
	if !existed {
		entry = r.create(rec.ID, b, 0, rec.Tick)
		if err := b.Store(entry, rec.Snapshot); err != nil {
			return err
		}
	}

	if p, ok := r.predictors[rec.ID]; ok {
		return p.Reconcile(entry, rec.Tick, rec.Snapshot)
	}
	return nil
}

// create adds the entity of a ghost. The owned ghost starts predicted, every
// other ghost interpolated.
func (r *Replica) create(id ghostid.ID, b *protocol.Binding, scene uint64, spawn tick.Tick) *donburi.Entry {
	entity := r.world.Create(netcomponents.Ghost, b.Component)
	entry := r.world.Entry(entity)
	netcomponents.Ghost.Set(entry, &netcomponents.GhostData{
		ID:        id,
		TypeIndex: b.Type.Index,
		SpawnTick: spawn,
		Scene:     scene,
	})
	r.ghosts[id] = entity
	if id == r.owned && r.owned.IsValid() {
		r.predict(id, entry, b)
	} else {
		entry.AddComponent(netcomponents.Interpolated)
	}
	return entry
}

func (r *Replica) predict(id ghostid.ID, entry *donburi.Entry, b *protocol.Binding) *Predictor {
	entry.AddComponent(netcomponents.Predicted)
	netcomponents.Predicted.Get(entry).Owned = id == r.owned
	p := newPredictor(id, b, r.stepFor(id, b), r.opts.SnapshotHistory, r.opts.MaxPredictionTicks)
	p.smoother = r.smoothers[b.Type.Index]
	p.report = r.report
	r.predictors[id] = p
	return p
}

// stepFor returns the simulation of a predicted ghost. Players run the shared
// movement code under the buffered local input; everything else holds its
// last authoritative state between snapshots.
func (r *Replica) stepFor(id ghostid.ID, b *protocol.Binding) StepFunc {
	if b.Component != netcomponents.Player {
		return func(*donburi.Entry, tick.Tick) error { return nil }
	}
	return func(entry *donburi.Entry, t tick.Tick) error {
		var in command.PlayerInput
		if id == r.owned {
			if s, ok := r.commands.AtTick(t); ok {
				in = s.Value
			}
		}
		r.sim.StepPlayer(id, netcomponents.Player.Get(entry), in)
		return nil
	}
}

func (r *Replica) despawn(id ghostid.ID) {
	if entry, ok := r.Entry(id); ok {
		r.removeEntity(id, entry)
	}
	delete(r.ghosts, id)
	r.history.Remove(id)
}

func (r *Replica) removeEntity(id ghostid.ID, entry *donburi.Entry) {
	entry.Remove()
	delete(r.ghosts, id)
	delete(r.predictors, id)
	delete(r.visible, id)
	delete(r.prespawned, id)
	r.switcher.Forget(id)
	r.sim.RemoveBody(id)
}

// AddCommand buffers the local input for every tick from the last buffered
// one up to t. Ticks already buffered keep their input.
func (r *Replica) AddCommand(t tick.Tick, in command.PlayerInput) {
	if !r.lastCommand.IsValid() || tick.IsNewer(r.lastCommand, t) || tick.Diff(t, r.lastCommand) > int32(r.opts.CommandCapacity) {
		r.lastCommand = t.Add(-1)
	}
	for tick.IsNewer(t, r.lastCommand) {
		r.lastCommand = r.lastCommand.Next()
		r.commands.Add(r.lastCommand, in)
	}
}

// CommandPacket encodes the newest buffered commands together with the
// snapshot acknowledgements.
func (r *Replica) CommandPacket() []byte {
	newest, mask := r.acks.State()
	return command.EncodePacket(&command.Packet[command.PlayerInput]{
		AckTick: newest,
		AckMask: mask,
		Ghost:   r.owned,
		Samples: r.commands.Newest(r.opts.RedundantCommands),
	}, command.PlayerInputSerializer{}, r.proto.Model())
}

// Predict advances every predicted ghost to target.
func (r *Replica) Predict(target tick.Tick) error {
	ids := make([]ghostid.ID, 0, len(r.predictors))
	for id := range r.predictors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		entry, ok := r.Entry(id)
		if !ok {
			continue
		}
		p := r.predictors[id]
		if err := p.Advance(entry, target); err != nil {
			return err
		}
		netcomponents.Predicted.Get(entry).Tick = p.Tick()
	}
	return nil
}

// SetPredicted switches a ghost between prediction and interpolation. The
// presented state blends from the old mode over d.
func (r *Replica) SetPredicted(id ghostid.ID, predicted bool, d time.Duration) error {
	entry, ok := r.Entry(id)
	if !ok {
		return fmt.Errorf("switch %s: unknown ghost", id)
	}
	if entry.HasComponent(netcomponents.Predicted) == predicted {
		return nil
	}
	b, ok := r.proto.Binding(netcomponents.Ghost.Get(entry).TypeIndex)
	if !ok {
		return fmt.Errorf("switch %s: unknown ghost type", id)
	}
	from, err := b.Pack(entry)
	if err != nil {
		return fmt.Errorf("switch %s: %w", id, err)
	}

	if predicted {
		entry.RemoveComponent(netcomponents.Interpolated)
		p := r.predict(id, entry, b)
		if ring, ok := r.history.Lookup(id); ok {
			if newest, ok := ring.Newest(); ok {
				if err := p.Reconcile(entry, newest.Tick, newest.Snapshot); err != nil {
					return err
				}
			}
		}
	} else {
		entry.RemoveComponent(netcomponents.Predicted)
		delete(r.predictors, id)
		entry.AddComponent(netcomponents.Interpolated)
	}
	r.switcher.Begin(id, from, d)
	return nil
}
