//go:build !integration

package usecase

import (
	"sync"
	"testing"
	"time"
)

func TestPrepareIDSource_FrozenClock(t *testing.T) {
	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	src := NewPrepareIDSource(func() time.Time { return at })

	first := src.Next()
	if first != at.UnixMilli() {
		t.Fatalf("first id = %d, want %d", first, at.UnixMilli())
	}
	if second := src.Next(); second != first+1 {
		t.Fatalf("second id = %d, want %d", second, first+1)
	}
}

func TestPrepareIDSource_ClockStepsBack(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	src := NewPrepareIDSource(func() time.Time { return now })

	a := src.Next()
	now = now.Add(-time.Minute)
	if b := src.Next(); b <= a {
		t.Fatalf("id went backwards: %d after %d", b, a)
	}
}

func TestPrepareIDSource_ConcurrentUnique(t *testing.T) {
	src := NewPrepareIDSource(nil)

	const workers, each = 8, 500
	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{}, workers*each)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, each)
			for i := 0; i < each; i++ {
				local = append(local, src.Next())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				if _, dup := seen[id]; dup {
					t.Errorf("duplicate id %d", id)
				}
				seen[id] = struct{}{}
			}
		}()
	}
	wg.Wait()
	if len(seen) != workers*each {
		t.Fatalf("got %d ids, want %d", len(seen), workers*each)
	}
}
