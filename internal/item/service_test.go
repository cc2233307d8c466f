package item

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"posterm/internal/api"
	"posterm/internal/cache"
	"posterm/internal/domain"
)

func price(v float64) *float64 { return &v }

type catalogBackend struct {
	mu       sync.Mutex
	items    []domain.Item
	fetches  int
	requests []string
	server   *httptest.Server
}

func newCatalogBackend(t *testing.T, items []domain.Item) *catalogBackend {
	b := &catalogBackend{items: items}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.requests = append(b.requests, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == "GET" && r.URL.Path == "/api/items/":
			b.fetches++
			json.NewEncoder(w).Encode(b.items)
		case r.Method == "GET" && r.URL.Path == "/api/items/9/variants":
			json.NewEncoder(w).Encode([]domain.Item{
				{ID: 91, Title: "T-Shirt S", Price: price(20), ParentID: 9},
				{ID: 92, Title: "T-Shirt M", Price: price(20), ParentID: 9},
			})
		case r.Method == "POST" && r.URL.Path == "/api/items/":
			json.NewEncoder(w).Encode(domain.Item{ID: 99, Title: r.FormValue("title")})
		default:
			http.Error(w, `{"error": "unhandled"}`, http.StatusNotImplemented)
		}
	}))
	t.Cleanup(b.server.Close)
	return b
}

func catalog() []domain.Item {
	return []domain.Item{
		{ID: 1, Title: "Coffee Mug", SKU: "MUG-01", Price: price(4.5), ParentID: domain.ParentStandalone},
		{ID: 2, Title: "Tea Pot", SKU: "POT-01", Price: price(18), ParentID: domain.ParentStandalone},
		{ID: 9, Title: "T-Shirt", SKU: "TS", ParentID: domain.ParentVariant},
	}
}

func TestSearchFiltersCachedCatalog(t *testing.T) {
	b := newCatalogBackend(t, catalog())
	svc := New(api.New(api.Config{BaseURL: b.server.URL + "/api"}), cache.NewMemory(0))
	ctx := context.Background()

	all, err := svc.Search(ctx, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("%d items, want 3", len(all))
	}

	mugs, err := svc.Search(ctx, "mug")
	if err != nil {
		t.Fatalf("Search(mug): %v", err)
	}
	if len(mugs) != 1 || mugs[0].ID != 1 {
		t.Errorf("mugs = %+v", mugs)
	}

	bySKU, err := svc.Search(ctx, "pot-01")
	if err != nil {
		t.Fatalf("Search(pot-01): %v", err)
	}
	if len(bySKU) != 1 || bySKU[0].ID != 2 {
		t.Errorf("by sku = %+v", bySKU)
	}

	b.mu.Lock()
	fetches := b.fetches
	b.mu.Unlock()
	if fetches != 1 {
		t.Errorf("catalog fetched %d times, want the cache to serve repeats", fetches)
	}
}

func TestVariants(t *testing.T) {
	b := newCatalogBackend(t, catalog())
	svc := New(api.New(api.Config{BaseURL: b.server.URL + "/api"}), cache.NewMemory(0))

	variants, err := svc.Variants(context.Background(), 9)
	if err != nil {
		t.Fatalf("Variants: %v", err)
	}
	if len(variants) != 2 {
		t.Fatalf("%d variants, want 2", len(variants))
	}
}

func TestCreateInvalidatesCatalog(t *testing.T) {
	b := newCatalogBackend(t, catalog())
	svc := New(api.New(api.Config{BaseURL: b.server.URL + "/api"}), cache.NewMemory(0))
	ctx := context.Background()

	if _, err := svc.Search(ctx, ""); err != nil {
		t.Fatalf("warm search: %v", err)
	}
	if _, err := svc.Create(ctx, Input{Title: "New Thing", IsActive: true, ParentID: domain.ParentStandalone}, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Search(ctx, ""); err != nil {
		t.Fatalf("post-create search: %v", err)
	}

	b.mu.Lock()
	fetches := b.fetches
	b.mu.Unlock()
	if fetches != 2 {
		t.Errorf("catalog fetched %d times, want a re-fetch after create", fetches)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	b := newCatalogBackend(t, catalog())
	svc := New(api.New(api.Config{BaseURL: b.server.URL + "/api"}), cache.NewMemory(0))

	if _, err := svc.Create(context.Background(), Input{Title: "  "}, nil); err == nil {
		t.Error("a blank title must be rejected")
	}
	if _, err := svc.Create(context.Background(), Input{Title: "X", Price: price(-1)}, nil); err == nil {
		t.Error("a negative price must be rejected")
	}
}
