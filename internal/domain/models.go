// Package domain holds the client-side copies of the entities owned by the
// POS backend. Every struct here is a denormalized, possibly stale snapshot:
// the backend validates and computes, the client fetches and renders. None of
// the monetary fields are ever derived locally; they arrive populated on
// every sale response.
package domain

import "time"

// Line-item discount types as the backend spells them.
const (
	DiscountPercentage = "Percentage"
	DiscountAbsolute   = "Absolute"
)

// Overall (whole-of-sale) discount types.
const (
	OverallDiscountNone        = "none"
	OverallDiscountPercentage  = "percentage"
	OverallDiscountFixed       = "fixed"
	OverallDiscountTargetTotal = "target_total"
)

// Sale is a server-owned sale. The client replaces the whole object from the
// server response after every mutation rather than patching fields.
type Sale struct {
	ID         int64     `json:"id"`
	Status     Status    `json:"status"`
	CustomerID *int64    `json:"customer_id"`
	Customer   *Customer `json:"customer,omitempty"`

	SaleItems []SaleItem `json:"sale_items"`
	Payments  []Payment  `json:"payments"`

	SaleTotal  float64 `json:"sale_total"`
	AmountPaid float64 `json:"amount_paid"`
	AmountDue  float64 `json:"amount_due"`

	SubtotalGrossOriginal        float64 `json:"subtotal_gross_original"`
	TotalLineItemDiscounts       float64 `json:"total_line_item_discounts"`
	OverallDiscountType          string  `json:"overall_discount_type"`
	OverallDiscountValue         float64 `json:"overall_discount_value"`
	OverallDiscountAmountApplied float64 `json:"overall_discount_amount_applied"`
	NetSubtotalIncTax            float64 `json:"net_subtotal_inc_tax"`
	GSTAmount                    float64 `json:"gst_amount"`
	TransactionFee               float64 `json:"transaction_fee"`
	FinalGrandTotal              float64 `json:"final_grand_total"`

	CustomerNotes       string `json:"customer_notes"`
	PurchaseOrderNumber string `json:"purchase_order_number"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineForItem returns the sale line holding the given catalog item, if any.
// Used when adding an item that is already in the cart: the quantities merge
// into one line instead of duplicating it.
func (s *Sale) LineForItem(itemID int64) *SaleItem {
	for i := range s.SaleItems {
		if s.SaleItems[i].ItemID == itemID {
			return &s.SaleItems[i]
		}
	}
	return nil
}

// Line returns the sale line with the given sale-item id, if any.
func (s *Sale) Line(saleItemID int64) *SaleItem {
	for i := range s.SaleItems {
		if s.SaleItems[i].ID == saleItemID {
			return &s.SaleItems[i]
		}
	}
	return nil
}

// EftposFeeEnabled reports whether the sale currently carries a transaction
// fee. The backend owns the amount; the client only toggles it.
func (s *Sale) EftposFeeEnabled() bool {
	return s.TransactionFee > 0
}

// SaleItem is one line of a sale. Quantity is a non-zero integer; negative
// quantities are return lines. PriceAtSale is the unit price captured when
// the line was created, SalePrice the unit price after any line discount —
// both computed server-side.
type SaleItem struct {
	ID           int64    `json:"id"`
	SaleID       int64    `json:"sale_id"`
	ItemID       int64    `json:"item_id"`
	Quantity     int      `json:"quantity"`
	PriceAtSale  float64  `json:"price_at_sale"`
	SalePrice    float64  `json:"sale_price"`
	DiscountType string   `json:"discount_type,omitempty"`
	DiscountValue *float64 `json:"discount_value,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Item         *Item    `json:"item,omitempty"`
}

// LineTotal is the display subtotal for the line. Display-only: the sale's
// authoritative totals always come from the backend.
func (si *SaleItem) LineTotal() float64 {
	return float64(si.Quantity) * si.SalePrice
}

// LineDiscount is the display discount amount for the line.
func (si *SaleItem) LineDiscount() float64 {
	return (si.PriceAtSale - si.SalePrice) * float64(si.Quantity)
}

// Customer as stored by the backend.
type Customer struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Address     string `json:"address,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
}

// Item is a catalog item. Price is a pointer because variant parents and
// freshly imported items can legitimately have no price, and a missing price
// must never silently become $0.00 in a cart.
type Item struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	SKU            string    `json:"sku,omitempty"`
	Description    string    `json:"description,omitempty"`
	Price          *float64  `json:"price"`
	StockQuantity  int       `json:"stock_quantity"`
	IsStockTracked bool      `json:"is_stock_tracked"`
	IsActive       bool      `json:"is_active"`
	ParentID       ParentRef `json:"parent_id"`
	Photos         []Photo   `json:"photos,omitempty"`
}

// HasPrice reports whether the item can be added to a cart as-is.
func (it *Item) HasPrice() bool { return it.Price != nil }

// PrimaryPhoto returns the primary photo, falling back to the first one.
func (it *Item) PrimaryPhoto() *Photo {
	for i := range it.Photos {
		if it.Photos[i].IsPrimary {
			return &it.Photos[i]
		}
	}
	if len(it.Photos) > 0 {
		return &it.Photos[0]
	}
	return nil
}

// Photo is an item image with its derived sizes.
type Photo struct {
	ID           int64  `json:"id"`
	ImageURL     string `json:"image_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	SmallURL     string `json:"small_url,omitempty"`
	IsPrimary    bool   `json:"is_primary"`
}

// Payment is a recorded payment against a sale.
type Payment struct {
	ID             int64     `json:"id"`
	SaleID         int64     `json:"sale_id"`
	Amount         float64   `json:"amount"`
	PaymentType    string    `json:"payment_type"`
	PaymentDate    time.Time `json:"payment_date"`
	PaymentDetails string    `json:"payment_details,omitempty"`
}

// Quick-add tile types.
const (
	TileItem          = "item"
	TileVariantParent = "variant_parent"
	TilePageLink      = "page_link"
)

// QuickAddItem is one tile on the quick-add dashboard. Item tiles carry a
// denormalized snapshot of the catalog item (id, price, parent sentinel, a
// small photo) so the dashboard renders without a catalog round trip; page
// links carry a target page instead.
type QuickAddItem struct {
	ID         int64  `json:"id"`
	PageNumber int    `json:"page_number"`
	Position   int    `json:"position"`
	Type       string `json:"type"`
	Label      string `json:"label"`
	Color      string `json:"color,omitempty"`

	ItemID       *int64    `json:"item_id,omitempty"`
	ItemSKU      string    `json:"item_sku,omitempty"`
	ItemPrice    *float64  `json:"item_price,omitempty"`
	ItemParentID ParentRef `json:"item_parent_id,omitempty"`

	TargetPageNumber int `json:"target_page_number,omitempty"`

	PrimaryPhotoSmallURL string `json:"primary_photo_small_url,omitempty"`

	// Synthetic marks tiles the client injects locally (the home/back tile
	// on pages after the first). Synthetic tiles are never sent to the
	// backend and never take part in reordering.
	Synthetic bool `json:"-"`
}

// HomeTile is the synthetic back-to-page-1 tile shown on every dashboard
// page after the first.
func HomeTile() QuickAddItem {
	return QuickAddItem{
		Type:             TilePageLink,
		Label:            "Home (Page 1)",
		Color:            "#EAEAEA",
		Position:         -1,
		TargetPageNumber: 1,
		Synthetic:        true,
	}
}

// ComboComponent is one entry of a combination item's component list.
type ComboComponent struct {
	ItemID   int64  `json:"item_id"`
	Quantity int    `json:"quantity"`
	Title    string `json:"title,omitempty"`
	SKU      string `json:"sku,omitempty"`
}

// ComboDetails is the backend's expansion of a combination item.
type ComboDetails struct {
	Success    bool             `json:"success"`
	ID         int64            `json:"id"`
	Title      string           `json:"title"`
	Components []ComboComponent `json:"components"`
}
