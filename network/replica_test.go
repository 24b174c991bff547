package network

import (
	"testing"
	"time"

	"github.com/automoto/ghostsync/config"
	"github.com/automoto/ghostsync/shared/command"
	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/leveldata"
	"github.com/automoto/ghostsync/shared/netcomponents"
	"github.com/automoto/ghostsync/shared/protocol"
	"github.com/automoto/ghostsync/shared/schema"
	"github.com/automoto/ghostsync/shared/snapshot"
	"github.com/automoto/ghostsync/shared/tick"
)

// testLevel is a 640x320 map with a floor at y=288 and two baked props.
func testLevel() *leveldata.CollisionData {
	data := &leveldata.CollisionData{
		MapWidth:    640,
		MapHeight:   320,
		SpawnPoints: []leveldata.SpawnPoint{{X: 100, Y: 200}, {X: 300, Y: 200}},
		Ghosts: []leveldata.GhostPlacement{
			{LocalIndex: 0, ObjectID: 4, Type: "crate", X: 200, Y: 272},
			{LocalIndex: 1, ObjectID: 5, Type: "barrel", X: 400, Y: 272},
		},
	}
	for x := 0.0; x < 640; x += 16 {
		data.SolidRects = append(data.SolidRects, leveldata.SolidRect{X: x, Y: 288, W: 16, H: 16})
	}
	return data
}

func newTestProtocol(t *testing.T) (*protocol.Protocol, *protocol.Level) {
	t.Helper()
	proto, err := protocol.New()
	if err != nil {
		t.Fatalf("protocol.New: %v", err)
	}
	level, err := proto.BuildLevel("test", 0xfeed, testLevel())
	if err != nil {
		t.Fatalf("BuildLevel: %v", err)
	}
	return proto, level
}

type ghostAt struct {
	id ghostid.ID
	x  float32
}

// playerPacket encodes a snapshot at st holding full player records.
func playerPacket(t *testing.T, proto *protocol.Protocol, st tick.Tick, ghosts ...ghostAt) []byte {
	t.Helper()
	b, _ := proto.BindingByName(protocol.GhostPlayer)
	p := &snapshot.Packet{ServerTick: st}
	for _, g := range ghosts {
		s, err := b.Type.Pack(&netcomponents.PlayerGhost{Position: schema.Float2{g.x, 0}})
		if err != nil {
			t.Fatalf("Pack: %v", err)
		}
		p.Ghosts = append(p.Ghosts, snapshot.GhostDelta{
			Record: snapshot.Record{Tick: st, ID: g.id, Type: b.Type, Snapshot: s},
		})
	}
	data, err := snapshot.EncodePacket(p, proto.Model())
	if err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}
	return data
}

func apply(t *testing.T, r *Replica, data []byte) *snapshot.Decoded {
	t.Helper()
	d, err := r.Apply(data)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return d
}

func playerX(t *testing.T, r *Replica, id ghostid.ID) float32 {
	t.Helper()
	entry, ok := r.Entry(id)
	if !ok {
		t.Fatalf("ghost %s missing", id)
	}
	return netcomponents.Player.Get(entry).Position[0]
}

func ackedTick(t *testing.T, r *Replica, proto *protocol.Protocol) tick.Tick {
	t.Helper()
	p, err := command.DecodePacket(r.CommandPacket(), command.PlayerInputSerializer{}, proto.Model())
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	return p.AckTick
}

func TestReplicaInterpolatesBehindNewest(t *testing.T) {
	proto, level := newTestProtocol(t)
	opts := config.Netcode
	opts.InterpolationDelay = 2
	r := NewReplica(proto, level, opts)

	apply(t, r, playerPacket(t, proto, 10, ghostAt{3, 0}))
	apply(t, r, playerPacket(t, proto, 12, ghostAt{3, 10}))

	entry, _ := r.Entry(3)
	if !entry.HasComponent(netcomponents.Interpolated) {
		t.Fatalf("remote ghost is not interpolated")
	}

	r.Interpolate(1)
	if x := playerX(t, r, 3); x != 5 {
		t.Fatalf("x = %v, want 5", x)
	}
	state := netcomponents.Interpolated.Get(entry)
	if state.RenderTick != 10 || state.Extrapolating {
		t.Fatalf("interpolation state %+v", state)
	}
}

func TestReplicaExtrapolatesPastNewest(t *testing.T) {
	proto, level := newTestProtocol(t)
	opts := config.Netcode
	opts.InterpolationDelay = 0
	opts.MaxExtrapolation = 3
	r := NewReplica(proto, level, opts)

	apply(t, r, playerPacket(t, proto, 10, ghostAt{3, 0}))
	apply(t, r, playerPacket(t, proto, 12, ghostAt{3, 10}))

	r.Interpolate(1)
	if x := playerX(t, r, 3); x != 15 {
		t.Fatalf("x = %v, want 15", x)
	}
	entry, _ := r.Entry(3)
	if !netcomponents.Interpolated.Get(entry).Extrapolating {
		t.Fatalf("not flagged as extrapolating")
	}

	r.Interpolate(10)
	if x := playerX(t, r, 3); x != 25 {
		t.Fatalf("x = %v, want extrapolation capped at 25", x)
	}
}

func TestReplicaSnapsOnTeleport(t *testing.T) {
	proto, level := newTestProtocol(t)
	opts := config.Netcode
	opts.InterpolationDelay = 2
	r := NewReplica(proto, level, opts)

	apply(t, r, playerPacket(t, proto, 12, ghostAt{3, 10}))
	apply(t, r, playerPacket(t, proto, 14, ghostAt{3, 300}))

	r.Interpolate(0)
	if x := playerX(t, r, 3); x != 300 {
		t.Fatalf("x = %v, want snapped to 300", x)
	}
}

func TestReplicaAcksOnlyCompletePackets(t *testing.T) {
	proto, level := newTestProtocol(t)
	r := NewReplica(proto, level, config.Netcode)
	b, _ := proto.BindingByName(protocol.GhostPlayer)

	base, _ := b.Type.Pack(&netcomponents.PlayerGhost{})
	cur, _ := b.Type.Pack(&netcomponents.PlayerGhost{Health: 3})
	data, err := snapshot.EncodePacket(&snapshot.Packet{
		ServerTick: 12,
		Ghosts: []snapshot.GhostDelta{{
			Record:    snapshot.Record{Tick: 12, ID: 3, Type: b.Type, Snapshot: cur},
			Baselines: []snapshot.Baseline{{Tick: 10, Snapshot: base}},
		}},
	}, proto.Model())
	if err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}

	d := apply(t, r, data)
	if d.Complete() {
		t.Fatalf("packet against an unknown baseline decoded completely")
	}
	if got := ackedTick(t, r, proto); got.IsValid() {
		t.Fatalf("incomplete packet acked at %d", got)
	}
	if _, ok := r.Entry(3); ok {
		t.Fatalf("discarded ghost was created")
	}

	apply(t, r, playerPacket(t, proto, 13, ghostAt{3, 1}))
	if got := ackedTick(t, r, proto); got != 13 {
		t.Fatalf("acked %d, want 13", got)
	}
}

func TestReplicaDespawns(t *testing.T) {
	proto, level := newTestProtocol(t)
	r := NewReplica(proto, level, config.Netcode)

	apply(t, r, playerPacket(t, proto, 10, ghostAt{3, 0}, ghostAt{4, 0}))
	data, err := snapshot.EncodePacket(&snapshot.Packet{ServerTick: 11, Despawns: []ghostid.ID{3}}, proto.Model())
	if err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}
	apply(t, r, data)

	if _, ok := r.Entry(3); ok {
		t.Fatalf("despawned ghost still present")
	}
	if _, ok := r.history.Lookup(3); ok {
		t.Fatalf("despawned ghost kept its history")
	}
	if _, ok := r.Entry(4); !ok {
		t.Fatalf("unrelated ghost removed")
	}
}

func TestReplicaPredictsOwnedGhost(t *testing.T) {
	proto, level := newTestProtocol(t)
	r := NewReplica(proto, level, config.Netcode)
	r.SetOwned(3)

	apply(t, r, playerPacket(t, proto, 10, ghostAt{3, 100}, ghostAt{4, 0}))

	p, ok := r.Predictor(3)
	if !ok || p.State() != Predicting {
		t.Fatalf("owned ghost not predicting")
	}
	if _, ok := r.Predictor(4); ok {
		t.Fatalf("remote ghost predicted")
	}
	entry, _ := r.Entry(3)
	if !netcomponents.Predicted.Get(entry).Owned {
		t.Fatalf("owned flag not set")
	}

	in := command.PlayerInput{Direction: 1}
	r.AddCommand(13, in)
	if err := r.Predict(13); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if p.Tick() != 13 || netcomponents.Predicted.Get(entry).Tick != 13 {
		t.Fatalf("predicted to %d", p.Tick())
	}
}

func TestReplicaSwitchBlendsPresentation(t *testing.T) {
	proto, level := newTestProtocol(t)
	opts := config.Netcode
	opts.InterpolationDelay = 2
	r := NewReplica(proto, level, opts)

	apply(t, r, playerPacket(t, proto, 10, ghostAt{3, 0}))
	apply(t, r, playerPacket(t, proto, 12, ghostAt{3, 10}))
	r.Interpolate(0)

	if err := r.SetPredicted(3, true, 100*time.Millisecond); err != nil {
		t.Fatalf("SetPredicted: %v", err)
	}
	if _, ok := r.Predictor(3); !ok {
		t.Fatalf("no predictor after switch")
	}
	if x := playerX(t, r, 3); x != 10 {
		t.Fatalf("predicted state x = %v, want newest 10", x)
	}

	r.Present(50 * time.Millisecond)
	v, _ := r.Visible(3)
	if x := v.(*netcomponents.PlayerGhost).Position[0]; x != 5 {
		t.Fatalf("visible x mid blend = %v, want 5", x)
	}

	r.Present(60 * time.Millisecond)
	v, _ = r.Visible(3)
	if x := v.(*netcomponents.PlayerGhost).Position[0]; x != 10 {
		t.Fatalf("visible x after blend = %v, want 10", x)
	}

	if err := r.SetPredicted(3, false, 0); err != nil {
		t.Fatalf("SetPredicted: %v", err)
	}
	entry, _ := r.Entry(3)
	if !entry.HasComponent(netcomponents.Interpolated) || entry.HasComponent(netcomponents.Predicted) {
		t.Fatalf("ghost did not switch back to interpolated")
	}
}
