package network

import (
	"testing"

	"github.com/automoto/ghostsync/config"
	"github.com/automoto/ghostsync/shared/ghostid"
	"github.com/automoto/ghostsync/shared/netcomponents"
	"github.com/automoto/ghostsync/shared/prespawn"
	"github.com/automoto/ghostsync/shared/protocol"
	"github.com/automoto/ghostsync/shared/tick"
)

func sceneRecord(level *protocol.Level, first int32) prespawn.Record {
	return prespawn.Record{
		SubSceneHash:  level.Scene.Hash,
		BaselineHash:  level.Scene.BaselinesHash(),
		FirstGhostID:  first,
		PrespawnCount: int32(len(level.Props)),
	}
}

func TestSceneSyncSpawnsValidatedScene(t *testing.T) {
	proto, level := newTestProtocol(t)
	r := NewReplica(proto, level, config.Netcode)
	s := NewSceneSync()
	s.Load(level)

	start, err := s.Apply([]prespawn.Record{sceneRecord(level, 1)}, r)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(start) != 1 || start[0] != level.Scene.Hash || !s.Streaming(level.Scene.Hash) {
		t.Fatalf("start = %v", start)
	}
	second, _ := ghostid.Prespawn(1, 1)
	entry, ok := r.Entry(second)
	if !ok {
		t.Fatalf("prespawned ghost %s missing", second)
	}
	if got := netcomponents.Prop.Get(entry).Position; got != level.Props[1].Position {
		t.Fatalf("prop at %v, want baked %v", got, level.Props[1].Position)
	}
	b, _ := proto.BindingByName(protocol.GhostProp)
	want, _ := b.Type.Pack(&level.Props[1])
	if base, ok := r.Baseline(second, tick.Invalid); !ok || !base.Equal(want) {
		t.Fatalf("prespawn baseline of %s = %+v, want %+v", second, base, want)
	}

	// The same records again change nothing.
	start, err = s.Apply([]prespawn.Record{sceneRecord(level, 1)}, r)
	if err != nil || len(start) != 0 {
		t.Fatalf("repeat: start %v err %v", start, err)
	}

	// A reload under a new range moves the ghosts.
	if _, err := s.Apply([]prespawn.Record{sceneRecord(level, 9)}, r); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, ok := r.Entry(second); ok {
		t.Fatalf("ghost kept its old id after the range moved")
	}
	if _, ok := r.Baseline(second, tick.Invalid); ok {
		t.Fatalf("prespawn baseline kept under the old id")
	}
	moved, _ := ghostid.Prespawn(9, 1)
	if _, ok := r.Entry(moved); !ok {
		t.Fatalf("ghost missing under the new range")
	}

	// Records without the scene mean the server unloaded it.
	if _, err := s.Apply(nil, r); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if s.Streaming(level.Scene.Hash) || len(r.Ghosts()) != 0 {
		t.Fatalf("scene not removed: %v", r.Ghosts())
	}
}

func TestSceneSyncSkipsSceneNotLoaded(t *testing.T) {
	proto, level := newTestProtocol(t)
	r := NewReplica(proto, level, config.Netcode)
	s := NewSceneSync()

	start, err := s.Apply([]prespawn.Record{sceneRecord(level, 1)}, r)
	if err != nil || len(start) != 0 {
		t.Fatalf("start %v err %v", start, err)
	}
	if len(r.Ghosts()) != 0 {
		t.Fatalf("ghosts spawned for an unloaded scene")
	}
}

func TestSceneSyncUnload(t *testing.T) {
	proto, level := newTestProtocol(t)
	r := NewReplica(proto, level, config.Netcode)
	s := NewSceneSync()
	s.Load(level)

	if s.Unload(level.Scene.Hash, r) {
		t.Fatalf("unloading a scene that never streamed asked to stop streaming")
	}
	s.Load(level)
	if _, err := s.Apply([]prespawn.Record{sceneRecord(level, 1)}, r); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !s.Unload(level.Scene.Hash, r) {
		t.Fatalf("unloading a streamed scene did not ask to stop streaming")
	}
	if len(r.Ghosts()) != 0 {
		t.Fatalf("ghosts left after unload: %v", r.Ghosts())
	}
}
