package leveldata

import (
	"testing"

	"github.com/lafriks/go-tiled"
)

func TestGhostPlacementsRankByObjectID(t *testing.T) {
	groups := []*tiled.ObjectGroup{
		{Name: "PlayerSpawn", Objects: []*tiled.Object{{ID: 1, Name: "spawn"}}},
		{Name: GhostLayer, Objects: []*tiled.Object{
			{ID: 42, Name: "crate", X: 10},
			{ID: 7, Name: "barrel", X: 20},
			{ID: 9},
		}},
	}

	got := ghostPlacements(groups)
	if len(got) != 2 {
		t.Fatalf("expected 2 placements, got %d", len(got))
	}
	if got[0].ObjectID != 7 || got[0].LocalIndex != 0 || got[0].Type != "barrel" {
		t.Fatalf("unexpected first placement %+v", got[0])
	}
	if got[1].ObjectID != 42 || got[1].LocalIndex != 1 {
		t.Fatalf("unexpected second placement %+v", got[1])
	}
}

func TestGhostPlacementsStableAcrossFileOrder(t *testing.T) {
	a := ghostPlacements([]*tiled.ObjectGroup{{Name: GhostLayer, Objects: []*tiled.Object{
		{ID: 3, Name: "crate"}, {ID: 1, Name: "crate"}, {ID: 2, Name: "barrel"},
	}}})
	b := ghostPlacements([]*tiled.ObjectGroup{{Name: GhostLayer, Objects: []*tiled.Object{
		{ID: 2, Name: "barrel"}, {ID: 3, Name: "crate"}, {ID: 1, Name: "crate"},
	}}})
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("placement %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
