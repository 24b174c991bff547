package config

import (
	"testing"
	"time"
)

func TestSubSteps(t *testing.T) {
	cases := []struct {
		rate, want int
	}{
		{20, 3},
		{60, 1},
		{120, 1},
		{0, 1},
	}
	for _, c := range cases {
		if got := SubSteps(c.rate); got != c.want {
			t.Fatalf("SubSteps(%d) = %d, want %d", c.rate, got, c.want)
		}
	}
}

func TestSavedNetcodeApply(t *testing.T) {
	cfg := Netcode
	(&SavedNetcode{InterpolationDelay: 4, SwitchDurationMs: 100}).Apply(&cfg)

	if cfg.InterpolationDelay != 4 {
		t.Fatalf("InterpolationDelay = %d", cfg.InterpolationDelay)
	}
	if cfg.SwitchDuration != 100*time.Millisecond {
		t.Fatalf("SwitchDuration = %v", cfg.SwitchDuration)
	}
	if cfg.MaxExtrapolation != Netcode.MaxExtrapolation {
		t.Fatalf("zero override changed MaxExtrapolation")
	}

	var none *SavedNetcode
	none.Apply(&cfg)
}

func TestNilStoreIsInert(t *testing.T) {
	var s *Store
	saved, err := s.LoadNetcode()
	if saved != nil || err != nil {
		t.Fatalf("expected nothing from nil store")
	}
	if err := s.SaveNetcode(&SavedNetcode{}); err != nil {
		t.Fatalf("SaveNetcode: %v", err)
	}
}
