package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"posterm/internal/domain"
)

func items(titles ...string) []domain.Item {
	out := make([]domain.Item, len(titles))
	for i, title := range titles {
		out[i] = domain.Item{ID: int64(i + 1), Title: title}
	}
	return out
}

func TestMemoryMissThenHit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)

	if _, err := m.Get(ctx); !errors.Is(err, ErrMiss) {
		t.Fatalf("empty cache: err = %v, want ErrMiss", err)
	}

	if err := m.Set(ctx, items("Mug", "Pot")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := m.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 2 || got[0].Title != "Mug" {
		t.Errorf("got %+v", got)
	}

	if err := m.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := m.Get(ctx); !errors.Is(err, ErrMiss) {
		t.Error("invalidated cache must miss")
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(20 * time.Millisecond)
	m.Set(ctx, items("Mug"))

	if _, err := m.Get(ctx); err != nil {
		t.Fatalf("fresh entry must hit: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	if _, err := m.Get(ctx); !errors.Is(err, ErrMiss) {
		t.Error("expired entry must miss")
	}
}

func TestMemoryCopiesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	src := items("Mug")
	m.Set(ctx, src)
	src[0].Title = "mutated"

	got, _ := m.Get(ctx)
	if got[0].Title != "Mug" {
		t.Error("cache must hold its own copy")
	}
	got[0].Title = "mutated again"
	again, _ := m.Get(ctx)
	if again[0].Title != "Mug" {
		t.Error("readers must not alias the cache")
	}
}

func TestCatalogLoadsOnceUnderConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	var loads atomic.Int32
	catalog := NewCatalog(NewMemory(0), func(ctx context.Context) ([]domain.Item, error) {
		loads.Add(1)
		time.Sleep(10 * time.Millisecond)
		return items("Mug"), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := catalog.Items(ctx); err != nil {
				t.Errorf("Items: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := loads.Load(); got != 1 {
		t.Errorf("loader ran %d times, want 1", got)
	}
}

func TestCatalogPropagatesLoaderError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend down")
	catalog := NewCatalog(NewMemory(0), func(ctx context.Context) ([]domain.Item, error) {
		return nil, boom
	})
	if _, err := catalog.Items(ctx); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want loader error", err)
	}
}
