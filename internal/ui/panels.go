// Package ui renders the terminal's three-panel layout as plain text and
// keeps the panel visibility rules that stop the screen from fighting
// itself: search results and the quick-add grid share the right panel, and
// the parked list yields when the operator is picking items or customers.
package ui

import "sync"

// Panels is the layout state. The zero value is not the boot layout; use
// NewPanels.
type Panels struct {
	mu sync.Mutex

	itemResultsExpanded bool
	quickAddExpanded    bool
	parkedCollapsed     bool
	customerOpen        bool
	leftPanelShrunk     bool
}

// NewPanels returns the boot layout: quick-add grid showing, everything else
// at rest.
func NewPanels() *Panels {
	return &Panels{quickAddExpanded: true}
}

// ExpandItemResults shows the item search results. The quick-add grid
// collapses; the two never share the panel.
func (p *Panels) ExpandItemResults() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.itemResultsExpanded = true
	p.quickAddExpanded = false
	p.parkedCollapsed = true
}

// CollapseItemResults hides the search results and gives the panel back to
// the quick-add grid.
func (p *Panels) CollapseItemResults() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.itemResultsExpanded = false
	p.quickAddExpanded = true
}

// OpenCustomerPanel shows the customer list. The parked list collapses and
// the left panel shrinks to make room.
func (p *Panels) OpenCustomerPanel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customerOpen = true
	p.parkedCollapsed = true
	p.leftPanelShrunk = true
}

// CloseCustomerPanel restores the layout after customer selection.
func (p *Panels) CloseCustomerPanel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customerOpen = false
	p.parkedCollapsed = false
	p.leftPanelShrunk = false
}

// ItemResultsExpanded reports whether search results are showing.
func (p *Panels) ItemResultsExpanded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.itemResultsExpanded
}

// QuickAddExpanded reports whether the quick-add grid is showing.
func (p *Panels) QuickAddExpanded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quickAddExpanded
}

// ParkedCollapsed reports whether the parked list is collapsed.
func (p *Panels) ParkedCollapsed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parkedCollapsed
}

// CustomerOpen reports whether the customer panel is showing.
func (p *Panels) CustomerOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.customerOpen
}

// LeftPanelShrunk reports whether the left panel is in its narrow state.
func (p *Panels) LeftPanelShrunk() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leftPanelShrunk
}
