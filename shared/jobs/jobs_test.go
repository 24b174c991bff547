package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestScheduleRespectsDependencies(t *testing.T) {
	ctx := context.Background()
	var order []string
	first := Schedule(ctx, func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	second := Schedule(ctx, func(context.Context) error {
		order = append(order, "second")
		return nil
	}, first)
	if err := second.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestFailedDependencySkipsJob(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	failed := Schedule(ctx, func(context.Context) error { return boom })
	ran := false
	h := Schedule(ctx, func(context.Context) error {
		ran = true
		return nil
	}, failed, Completed())
	if err := h.Wait(); !errors.Is(err, boom) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if ran {
		t.Fatalf("job must not run after a failed dependency")
	}
}

func TestParallelForCoversEveryIndexOnce(t *testing.T) {
	const n = 1000
	hits := make([]int32, n)
	var batches atomic.Int32
	h := ParallelFor(context.Background(), n, 64, func(_ context.Context, start, end int) error {
		batches.Add(1)
		for i := start; i < end; i++ {
			hits[i]++
		}
		return nil
	})
	if err := h.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	for i, c := range hits {
		if c != 1 {
			t.Fatalf("index %d visited %d times", i, c)
		}
	}
	if got := batches.Load(); got != 16 {
		t.Fatalf("expected 16 batches, got %d", got)
	}
}

func TestCombineWaitsForAll(t *testing.T) {
	ctx := context.Background()
	var count atomic.Int32
	var hs []*Handle
	for i := 0; i < 8; i++ {
		hs = append(hs, Schedule(ctx, func(context.Context) error {
			count.Add(1)
			return nil
		}))
	}
	if err := Combine(hs...).Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if count.Load() != 8 {
		t.Fatalf("combine returned before all jobs ran")
	}
}

func TestExclusiveSerializesWriters(t *testing.T) {
	ctx := context.Background()
	var x Exclusive
	shared := map[int]int{}
	var hs []*Handle
	for i := 0; i < 32; i++ {
		hs = append(hs, x.Schedule(ctx, func(context.Context) error {
			shared[i%4]++
			return nil
		}))
	}
	if err := Combine(hs...).Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if shared[0]+shared[1]+shared[2]+shared[3] != 32 {
		t.Fatalf("lost writes: %v", shared)
	}
}
