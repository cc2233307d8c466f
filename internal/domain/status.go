package domain

import "strings"

// Status is the lifecycle state of a Sale as reported by the backend.
type Status string

const (
	StatusOpen    Status = "Open"
	StatusQuote   Status = "Quote"
	StatusInvoice Status = "Invoice"
	StatusPaid    Status = "Paid"
	StatusVoid    Status = "Void"
)

// statusTransitions is the single source of truth for which status changes
// the client will issue. The backend is still the authority; this table only
// stops the terminal from firing requests that are guaranteed to be rejected
// or that would confuse the operator.
var statusTransitions = map[Status][]Status{
	StatusOpen:    {StatusQuote, StatusInvoice, StatusPaid, StatusVoid},
	StatusQuote:   {StatusOpen, StatusInvoice, StatusPaid, StatusVoid},
	StatusInvoice: {StatusQuote, StatusPaid, StatusVoid},
	StatusPaid:    {StatusVoid},
	StatusVoid:    {},
}

// ParseStatus returns the Status for a label (case-insensitive) and whether
// the label named a known status.
func ParseStatus(label string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "open":
		return StatusOpen, true
	case "quote":
		return StatusQuote, true
	case "invoice":
		return StatusInvoice, true
	case "paid":
		return StatusPaid, true
	case "void":
		return StatusVoid, true
	}
	return "", false
}

// CanTransition reports whether the client may request a change from one
// status to another.
func CanTransition(from, to Status) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a sale in this status is closed for editing.
// Paid and Void sales keep their lines and discounts frozen in the UI; this
// is an operator guard, not a security boundary.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusVoid
}

// Editable reports whether line items and discounts may still be changed.
func (s Status) Editable() bool {
	return !s.Terminal()
}

// AcceptsItems reports whether new lines may be added to a sale in this
// status. Only Open and Quote sales take new items; anything else forces the
// client to start a fresh sale first.
func (s Status) AcceptsItems() bool {
	return s == StatusOpen || s == StatusQuote
}
