// Package state holds the session's view of the world: the sale being
// edited, the selected customer, the quick-add page and edit flag, and the
// in-flight drag payload. It replaces the browser build's global mutable
// state object with typed, mutex-guarded accessors, so a misspelled field
// is a compile error instead of a runtime warning.
//
// The store keeps denormalized, possibly stale copies; the backend owns the
// data. By convention at most one sale is being edited per store.
package state

import (
	"sync"

	"posterm/internal/domain"
)

// Store is the session state. The zero value is not usable; call New.
type Store struct {
	mu sync.RWMutex

	currentSale     *domain.Sale
	currentCustomer *domain.Customer

	quickAddPage     int
	quickAddEditMode bool
	quickAddTiles    []domain.QuickAddItem

	// draggedTileID is the tile picked up by an in-progress reorder, or nil.
	draggedTileID *int64
}

// New creates an empty session store starting on quick-add page 1.
func New() *Store {
	return &Store{quickAddPage: 1}
}

// CurrentSale returns the sale being edited, or nil.
func (s *Store) CurrentSale() *domain.Sale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSale
}

// SetCurrentSale replaces the whole current sale. Mutating actions always
// store the full server response here, never a locally patched copy.
func (s *Store) SetCurrentSale(sale *domain.Sale) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentSale = sale
}

// CurrentSaleID returns the current sale's id, or 0 when no sale is active.
func (s *Store) CurrentSaleID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentSale == nil {
		return 0
	}
	return s.currentSale.ID
}

// CurrentCustomer returns the selected customer, or nil.
func (s *Store) CurrentCustomer() *domain.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentCustomer
}

// SetCurrentCustomer selects (or clears, with nil) the session customer.
func (s *Store) SetCurrentCustomer(c *domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentCustomer = c
}

// ClearSale drops the current sale and customer together, as parking and
// voiding do.
func (s *Store) ClearSale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentSale = nil
	s.currentCustomer = nil
}

// QuickAddPage returns the dashboard page currently shown.
func (s *Store) QuickAddPage() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quickAddPage
}

// SetQuickAddPage records the dashboard page currently shown.
func (s *Store) SetQuickAddPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 1 {
		page = 1
	}
	s.quickAddPage = page
}

// QuickAddEditMode reports whether the dashboard is in edit mode.
func (s *Store) QuickAddEditMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quickAddEditMode
}

// ToggleQuickAddEditMode flips edit mode and returns the new value.
func (s *Store) ToggleQuickAddEditMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quickAddEditMode = !s.quickAddEditMode
	return s.quickAddEditMode
}

// QuickAddTiles returns the cached tiles for the current page, synthetic
// home tile included.
func (s *Store) QuickAddTiles() []domain.QuickAddItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuickAddItem, len(s.quickAddTiles))
	copy(out, s.quickAddTiles)
	return out
}

// SetQuickAddTiles replaces the cached dashboard tiles.
func (s *Store) SetQuickAddTiles(tiles []domain.QuickAddItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quickAddTiles = make([]domain.QuickAddItem, len(tiles))
	copy(s.quickAddTiles, tiles)
}

// BeginDrag records the tile picked up for reordering.
func (s *Store) BeginDrag(tileID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := tileID
	s.draggedTileID = &id
}

// EndDrag clears the drag payload and returns the dragged tile id, if a drag
// was in progress.
func (s *Store) EndDrag() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draggedTileID == nil {
		return 0, false
	}
	id := *s.draggedTileID
	s.draggedTileID = nil
	return id, true
}
