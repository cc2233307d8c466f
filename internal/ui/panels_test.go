package ui

import "testing"

func TestBootLayout(t *testing.T) {
	p := NewPanels()
	if !p.QuickAddExpanded() {
		t.Error("the quick-add grid shows at boot")
	}
	if p.ItemResultsExpanded() || p.ParkedCollapsed() || p.CustomerOpen() || p.LeftPanelShrunk() {
		t.Error("everything else starts at rest")
	}
}

func TestSearchResultsAndQuickAddInterlock(t *testing.T) {
	p := NewPanels()

	p.ExpandItemResults()
	if !p.ItemResultsExpanded() || p.QuickAddExpanded() {
		t.Error("expanding results must collapse the quick-add grid")
	}
	if !p.ParkedCollapsed() {
		t.Error("picking items collapses the parked list")
	}

	p.CollapseItemResults()
	if p.ItemResultsExpanded() || !p.QuickAddExpanded() {
		t.Error("collapsing results must give the panel back to quick-add")
	}
}

func TestCustomerPanelShrinksLeftSide(t *testing.T) {
	p := NewPanels()

	p.OpenCustomerPanel()
	if !p.CustomerOpen() || !p.ParkedCollapsed() || !p.LeftPanelShrunk() {
		t.Error("the customer panel takes over the left side")
	}

	p.CloseCustomerPanel()
	if p.CustomerOpen() || p.ParkedCollapsed() || p.LeftPanelShrunk() {
		t.Error("closing the customer panel restores the layout")
	}
}
