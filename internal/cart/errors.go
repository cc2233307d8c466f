package cart

import (
	"errors"
	"fmt"

	"posterm/internal/domain"
)

var (
	// ErrNoActiveSale is returned when an action needs a current sale and
	// none is loaded.
	ErrNoActiveSale = errors.New("no active sale")

	// ErrSaleLocked is returned when editing a Paid or Void sale is
	// attempted. The backend would refuse anyway; refusing locally keeps the
	// operator's view honest.
	ErrSaleLocked = errors.New("sale is closed for editing")

	// ErrZeroQuantity is returned for a quantity update to zero. Zero is not
	// a valid line quantity; removing the line is a separate action.
	ErrZeroQuantity = errors.New("quantity cannot be zero")

	// ErrMissingPrice is returned when an item without a price is added
	// directly to a sale.
	ErrMissingPrice = errors.New("item has no price")

	// ErrBadTransition is returned for a status change the client will not
	// request.
	ErrBadTransition = errors.New("invalid status change")

	// ErrBadDiscount is returned for an unknown discount type or a negative
	// discount value.
	ErrBadDiscount = errors.New("invalid discount")
)

// VariantChoiceError is returned when a variant parent is added to the cart:
// the parent itself is not sellable, so the caller must present the variants
// and add the chosen one instead.
type VariantChoiceError struct {
	Parent domain.Item
}

func (e *VariantChoiceError) Error() string {
	return fmt.Sprintf("item %q has variants; one must be chosen", e.Parent.Title)
}
