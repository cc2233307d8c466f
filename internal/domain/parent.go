package domain

// ParentRef is the parent_id field of an Item. Non-negative values point at a
// real parent item; the negative values are backend sentinels that change how
// an item behaves when it is clicked, so they get names here instead of being
// scattered through the services as magic numbers.
type ParentRef int64

const (
	// ParentStandalone marks an ordinary sellable item with no variants.
	ParentStandalone ParentRef = -1

	// ParentVariant marks a placeholder item whose concrete variants are
	// sold in its place. It has no usable price of its own.
	ParentVariant ParentRef = -2

	// ParentCombination marks a bundle that expands into its component
	// items when added to a cart.
	ParentCombination ParentRef = -3
)

// IsVariantParent reports whether the item is a variant placeholder.
func (p ParentRef) IsVariantParent() bool { return p == ParentVariant }

// IsCombination reports whether the item is a component bundle.
func (p ParentRef) IsCombination() bool { return p == ParentCombination }

// IsVariant reports whether the item is a concrete variant of a parent item.
// Zero is not a variant: item ids start at 1, and a payload that omits
// parent_id decodes to zero.
func (p ParentRef) IsVariant() bool { return p > 0 }

func (p ParentRef) String() string {
	switch p {
	case ParentStandalone, 0:
		return "standalone"
	case ParentVariant:
		return "variant-parent"
	case ParentCombination:
		return "combination"
	default:
		return "variant"
	}
}
