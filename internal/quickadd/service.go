// Package quickadd manages the quick-add dashboard: the paged grid of tiles
// the operator taps to ring up common items. Tiles are server-owned; the
// client adds exactly one local artifact, the synthetic home tile shown on
// pages after the first, and that tile never reaches the backend.
package quickadd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"posterm/internal/api"
	"posterm/internal/domain"
	"posterm/internal/item"
	"posterm/internal/logger"
	"posterm/internal/notify"
	"posterm/internal/state"
)

var (
	// ErrSelfLink is returned when a page-link tile would point at the page
	// it sits on.
	ErrSelfLink = errors.New("page link cannot target its own page")

	// ErrSyntheticTile is returned when a locally injected tile is edited,
	// deleted or dragged. Synthetic tiles have no backend identity.
	ErrSyntheticTile = errors.New("tile is not editable")
)

// Service is the quick-add dashboard service.
type Service struct {
	client   *api.Client
	items    *item.Service
	store    *state.Store
	notifier notify.Notifier
	log      zerolog.Logger

	// OnPageChanged, when set, is called after the visible tiles change.
	OnPageChanged func()
}

// New creates a Service.
func New(client *api.Client, items *item.Service, store *state.Store, notifier notify.Notifier) *Service {
	return &Service{
		client:   client,
		items:    items,
		store:    store,
		notifier: notifier,
		log:      logger.WithComponent("quickadd"),
	}
}

// LoadPage fetches and shows a dashboard page. Pages after the first get the
// synthetic home tile prepended so the operator can always get back.
func (s *Service) LoadPage(ctx context.Context, page int) ([]domain.QuickAddItem, error) {
	if page < 1 {
		page = 1
	}
	var tiles []domain.QuickAddItem
	if err := s.client.Get(ctx, "/quick-add-items", api.Query{"page": strconv.Itoa(page)}, &tiles); err != nil {
		s.notifier.Error(fmt.Sprintf("Could not load quick-add page %d", page))
		return nil, err
	}
	if page > 1 {
		tiles = append([]domain.QuickAddItem{domain.HomeTile()}, tiles...)
	}
	s.store.SetQuickAddPage(page)
	s.store.SetQuickAddTiles(tiles)
	if s.OnPageChanged != nil {
		s.OnPageChanged()
	}
	return tiles, nil
}

// Reload re-fetches the page currently shown.
func (s *Service) Reload(ctx context.Context) {
	if _, err := s.LoadPage(ctx, s.store.QuickAddPage()); err != nil {
		s.log.Warn().Err(err).Msg("dashboard reload failed")
	}
}

// ToggleEditMode flips edit mode and returns the new value.
func (s *Service) ToggleEditMode() bool {
	editing := s.store.ToggleQuickAddEditMode()
	if s.OnPageChanged != nil {
		s.OnPageChanged()
	}
	return editing
}

// SaveItemTile creates (tileID zero) or updates a tile for a catalog item.
// The tile's type follows the item: a variant parent becomes a chooser tile.
// Label falls back to the item title when empty.
func (s *Service) SaveItemTile(ctx context.Context, tileID, itemID int64, label, color string) (*domain.QuickAddItem, error) {
	it, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	tileType := domain.TileItem
	if it.ParentID.IsVariantParent() {
		tileType = domain.TileVariantParent
	}
	if label == "" {
		label = it.Title
	}
	body := map[string]any{
		"page_number": s.store.QuickAddPage(),
		"type":        tileType,
		"label":       label,
		"color":       color,
		"item_id":     itemID,
	}
	return s.saveTile(ctx, tileID, body)
}

// SavePageLink creates (tileID zero) or updates a tile that jumps to another
// dashboard page.
func (s *Service) SavePageLink(ctx context.Context, tileID int64, label, color string, targetPage int) (*domain.QuickAddItem, error) {
	if targetPage < 1 {
		return nil, fmt.Errorf("target page %d is not a page", targetPage)
	}
	if targetPage == s.store.QuickAddPage() {
		return nil, ErrSelfLink
	}
	if label == "" {
		label = fmt.Sprintf("Page %d", targetPage)
	}
	body := map[string]any{
		"page_number":        s.store.QuickAddPage(),
		"type":               domain.TilePageLink,
		"label":              label,
		"color":              color,
		"target_page_number": targetPage,
	}
	return s.saveTile(ctx, tileID, body)
}

func (s *Service) saveTile(ctx context.Context, tileID int64, body map[string]any) (*domain.QuickAddItem, error) {
	var saved domain.QuickAddItem
	var err error
	if tileID > 0 {
		err = s.client.Put(ctx, fmt.Sprintf("/quick-add-items/%d", tileID), body, &saved)
	} else {
		err = s.client.Post(ctx, "/quick-add-items", body, &saved)
	}
	if err != nil {
		s.notifier.Error("Could not save tile")
		return nil, err
	}
	s.Reload(ctx)
	return &saved, nil
}

// DeleteTile removes a tile from the dashboard.
func (s *Service) DeleteTile(ctx context.Context, tileID int64) error {
	if tileID <= 0 {
		return ErrSyntheticTile
	}
	err := s.client.Delete(ctx, fmt.Sprintf("/quick-add-items/%d", tileID), nil)
	if err != nil && !errors.Is(err, api.ErrNoContent) {
		s.notifier.Error("Could not delete tile")
		return err
	}
	s.Reload(ctx)
	return nil
}

// BeginDrag picks a tile up for reordering. The home tile is not draggable.
func (s *Service) BeginDrag(tileID int64) error {
	if tileID <= 0 {
		return ErrSyntheticTile
	}
	s.store.BeginDrag(tileID)
	return nil
}

// Drop finishes a drag: the dragged tile is removed from the order and
// reinserted before targetTileID, or at the end when targetTileID is zero.
// The new order goes to the backend as one batched call, and the page is
// reloaded afterwards whether or not the call succeeded, so the grid always
// shows the server's ordering.
func (s *Service) Drop(ctx context.Context, targetTileID int64) error {
	draggedID, ok := s.store.EndDrag()
	if !ok {
		return nil
	}
	if draggedID == targetTileID {
		return nil
	}

	orderedIDs := reorderedIDs(s.store.QuickAddTiles(), draggedID, targetTileID)
	if orderedIDs == nil {
		return nil
	}

	body := map[string]any{
		"page_number": s.store.QuickAddPage(),
		"ordered_ids": orderedIDs,
	}
	err := s.client.Put(ctx, "/quick-add-items/reorder", body, nil)
	if errors.Is(err, api.ErrNoContent) {
		err = nil
	}
	if err != nil {
		s.notifier.Error("Could not reorder tiles")
	}
	s.Reload(ctx)
	return err
}

// reorderedIDs computes the backend payload for a drag: every real tile id
// on the page in its new order. Synthetic tiles are skipped; a dragged id
// that is not on the page yields nil.
func reorderedIDs(tiles []domain.QuickAddItem, draggedID, targetTileID int64) []int64 {
	ids := make([]int64, 0, len(tiles))
	found := false
	for _, t := range tiles {
		if t.Synthetic {
			continue
		}
		if t.ID == draggedID {
			found = true
			continue
		}
		ids = append(ids, t.ID)
	}
	if !found {
		return nil
	}

	insertAt := len(ids)
	if targetTileID > 0 {
		for i, id := range ids {
			if id == targetTileID {
				insertAt = i
				break
			}
		}
	}
	ids = append(ids, 0)
	copy(ids[insertAt+1:], ids[insertAt:])
	ids[insertAt] = draggedID
	return ids
}
