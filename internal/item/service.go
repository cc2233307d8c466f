// Package item provides catalog access: search, variants, create/update with
// photo upload, and the preloaded catalog cache the dashboard and cart lean
// on.
package item

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"posterm/internal/api"
	"posterm/internal/cache"
	"posterm/internal/domain"
	"posterm/internal/logger"
)

// ErrNotFound is returned when an item id is unknown to the backend.
var ErrNotFound = errors.New("item not found")

// Service is the item catalog service.
type Service struct {
	client  *api.Client
	catalog *cache.Catalog
	store   cache.ItemCache
	log     zerolog.Logger
}

// New creates a Service over the given backend client and cache backend.
func New(client *api.Client, store cache.ItemCache) *Service {
	s := &Service{
		client: client,
		store:  store,
		log:    logger.WithComponent("item"),
	}
	s.catalog = cache.NewCatalog(store, s.fetchAll)
	return s
}

// fetchAll pulls the active, current-version catalog from the backend.
func (s *Service) fetchAll(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	err := s.client.Get(ctx, "/items/", api.Query{
		"is_active":          "true",
		"is_current_version": "true",
	}, &items)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	return items, nil
}

// Preload warms the catalog cache. Called once at session start; a failure is
// logged and tolerated because every lookup can still go to the backend.
func (s *Service) Preload(ctx context.Context) {
	items, err := s.catalog.Items(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("catalog preload failed")
		return
	}
	s.log.Info().Int("items", len(items)).Msg("catalog preloaded")
}

// Search returns active catalog items matching the query. An empty query
// returns the whole cached catalog; a non-empty one filters the cached
// catalog by title and SKU, matching how the original searched without a
// round trip per keystroke.
func (s *Service) Search(ctx context.Context, query string) ([]domain.Item, error) {
	items, err := s.catalog.Items(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return items, nil
	}

	q := strings.ToLower(query)
	var out []domain.Item
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Title), q) ||
			strings.Contains(strings.ToLower(it.SKU), q) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Get fetches one item by id, bypassing the cache.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Item, error) {
	var it domain.Item
	if err := s.client.Get(ctx, fmt.Sprintf("/items/%d", id), nil, &it); err != nil {
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == 404 {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

// Variants lists the sellable variants of a variant-parent item.
func (s *Service) Variants(ctx context.Context, parentID int64) ([]domain.Item, error) {
	var variants []domain.Item
	if err := s.client.Get(ctx, fmt.Sprintf("/items/%d/variants", parentID), nil, &variants); err != nil {
		return nil, err
	}
	return variants, nil
}

// Input is the editable item form. A nil Price means the item has none (a
// variant parent, or an item priced per sale).
type Input struct {
	Title          string
	SKU            string
	Description    string
	Price          *float64
	StockQuantity  int
	IsStockTracked bool
	IsActive       bool
	ParentID       domain.ParentRef
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return errors.New("item title is required")
	}
	if in.Price != nil && *in.Price < 0 {
		return errors.New("item price cannot be negative")
	}
	return nil
}

func (in Input) fields() []api.FormField {
	fields := []api.FormField{
		{Name: "title", Value: strings.TrimSpace(in.Title)},
		{Name: "sku", Value: strings.TrimSpace(in.SKU)},
		{Name: "description", Value: in.Description},
		{Name: "stock_quantity", Value: strconv.Itoa(in.StockQuantity)},
		{Name: "is_stock_tracked", Value: strconv.FormatBool(in.IsStockTracked)},
		{Name: "is_active", Value: strconv.FormatBool(in.IsActive)},
		{Name: "parent_id", Value: strconv.FormatInt(int64(in.ParentID), 10)},
	}
	if in.Price != nil {
		fields = append(fields, api.FormField{Name: "price", Value: strconv.FormatFloat(*in.Price, 'f', 2, 64)})
	}
	return fields
}

// Create adds a catalog item, photos included, and invalidates the cached
// catalog so the next search sees it.
func (s *Service) Create(ctx context.Context, in Input, photos []api.FormFile) (*domain.Item, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var created domain.Item
	if err := s.client.PostForm(ctx, "POST", "/items/", in.fields(), photos, &created); err != nil {
		return nil, err
	}
	_ = s.catalog.Invalidate(ctx)
	s.log.Info().Int64("item_id", created.ID).Str("title", created.Title).Msg("item created")
	return &created, nil
}

// Update saves changes to a catalog item, new photos included.
func (s *Service) Update(ctx context.Context, id int64, in Input, photos []api.FormFile) (*domain.Item, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var updated domain.Item
	if err := s.client.PostForm(ctx, "PUT", fmt.Sprintf("/items/%d", id), in.fields(), photos, &updated); err != nil {
		return nil, err
	}
	_ = s.catalog.Invalidate(ctx)
	s.log.Info().Int64("item_id", id).Msg("item updated")
	return &updated, nil
}

// DeletePhoto removes one photo from an item.
func (s *Service) DeletePhoto(ctx context.Context, itemID, photoID int64) error {
	err := s.client.Delete(ctx, fmt.Sprintf("/items/%d/photos/%d", itemID, photoID), nil)
	if err != nil && !errors.Is(err, api.ErrNoContent) {
		return err
	}
	_ = s.catalog.Invalidate(ctx)
	return nil
}

// Invalidate drops the cached catalog. Admin flows call it after bulk edits.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.catalog.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("catalog invalidate failed")
	}
}
