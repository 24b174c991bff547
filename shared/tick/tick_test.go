package tick

import (
	"math"
	"testing"
)

func TestIsNewerTranslationInvariant(t *testing.T) {
	pairs := [][2]Tick{
		{1, 0},
		{0, 1},
		{100, 100},
		{math.MaxUint32, 0},
		{0, math.MaxUint32},
		{1 << 31, 0},
		{(1 << 31) - 1, 0},
		{12345, 4000000000},
	}
	offsets := []uint32{0, 1, 7, 1 << 31, math.MaxUint32, math.MaxUint32 - 5, 3000000000}

	for _, p := range pairs {
		want := IsNewer(p[0], p[1])
		for _, k := range offsets {
			a := Tick(uint32(p[0]) + k)
			b := Tick(uint32(p[1]) + k)
			if got := IsNewer(a, b); got != want {
				t.Fatalf("IsNewer(%d,%d)=%v but shifted by %d gives %v", p[0], p[1], want, k, got)
			}
		}
	}
}

func TestIsNewerAcrossWrap(t *testing.T) {
	if !IsNewer(2, math.MaxUint32-1) {
		t.Fatalf("expected tick 2 to be newer than a tick just before wraparound")
	}
	if IsNewer(math.MaxUint32, 3) {
		t.Fatalf("expected a tick just before wraparound to be older than tick 3")
	}
	if IsNewer(5, 5) {
		t.Fatalf("a tick is never newer than itself")
	}
	if !IsNewerOrEqual(5, 5) {
		t.Fatalf("a tick is newer-or-equal to itself")
	}
}

func TestDiffAndAdd(t *testing.T) {
	base := Tick(math.MaxUint32 - 2)
	later := base.Add(5)
	if later != 2 {
		t.Fatalf("expected wrapped tick 2, got %d", later)
	}
	if d := Diff(later, base); d != 5 {
		t.Fatalf("expected diff 5, got %d", d)
	}
	if d := Diff(base, later); d != -5 {
		t.Fatalf("expected diff -5, got %d", d)
	}
	if back := later.Add(-5); back != base {
		t.Fatalf("expected %d, got %d", base, back)
	}
}

func TestNextSkipsInvalid(t *testing.T) {
	if n := Tick(math.MaxUint32).Next(); n != 1 {
		t.Fatalf("expected wraparound to skip tick 0, got %d", n)
	}
	if n := Tick(9).Next(); n != 10 {
		t.Fatalf("expected 10, got %d", n)
	}
}

func TestNewestOldest(t *testing.T) {
	a, b := Tick(math.MaxUint32), Tick(4)
	if Newest(a, b) != b || Newest(b, a) != b {
		t.Fatalf("expected %d to be newest", b)
	}
	if Oldest(a, b) != a || Oldest(b, a) != a {
		t.Fatalf("expected %d to be oldest", a)
	}
}

func TestAgeEstimator(t *testing.T) {
	e := NewAgeEstimator(0.5)
	if e.Stale(100, 1) {
		t.Fatalf("unprimed estimator must never be stale")
	}
	e.Observe(10, 8)
	if e.Average() != 2 {
		t.Fatalf("expected first observation to prime the average, got %f", e.Average())
	}
	e.Observe(12, 8)
	if e.Average() != 3 {
		t.Fatalf("expected average 3, got %f", e.Average())
	}
	e.Observe(13, 7)
	if latest, _ := e.Latest(); latest != 8 {
		t.Fatalf("out of order snapshot moved latest to %d", latest)
	}
	if !e.Stale(20, 10) {
		t.Fatalf("expected estimator to be stale 12 ticks after the newest snapshot")
	}
	if e.Stale(18, 10) {
		t.Fatalf("expected estimator to be fresh 10 ticks after the newest snapshot")
	}
}
