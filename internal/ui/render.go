package ui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"posterm/internal/domain"
)

// RenderCart writes the cart panel for the current sale. Every monetary line
// comes straight off the sale object; nothing is computed here beyond
// display subtotals the sale already implies.
func RenderCart(w io.Writer, sale *domain.Sale) {
	if sale == nil {
		fmt.Fprintln(w, "No Active Sale")
		fmt.Fprintln(w, "Add an item or resume a parked sale to begin.")
		return
	}

	fmt.Fprintf(w, "Sale %d (%s)\n", sale.ID, sale.Status)
	if sale.Customer != nil {
		fmt.Fprintf(w, "Customer: %s", sale.Customer.Name)
		if sale.Customer.CompanyName != "" {
			fmt.Fprintf(w, " (%s)", sale.Customer.CompanyName)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, strings.Repeat("-", 52))

	if len(sale.SaleItems) == 0 {
		fmt.Fprintln(w, "  (no items)")
	}
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	for _, line := range sale.SaleItems {
		title := fmt.Sprintf("item %d", line.ItemID)
		if line.Item != nil {
			title = line.Item.Title
		}
		fmt.Fprintf(tw, "  [%d]\t%d x %s\t@ $%.2f\t$%.2f\n", line.ID, line.Quantity, title, line.SalePrice, line.LineTotal())
		if d := line.LineDiscount(); d != 0 {
			fmt.Fprintf(tw, "  \t  discount\t\t-$%.2f\n", d)
		}
		if line.Notes != "" {
			fmt.Fprintf(tw, "  \t  note: %s\t\t\n", line.Notes)
		}
	}
	tw.Flush()

	fmt.Fprintln(w, strings.Repeat("-", 52))
	money := tabwriter.NewWriter(w, 2, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(money, "Subtotal\t$%.2f\n", sale.SubtotalGrossOriginal)
	if sale.TotalLineItemDiscounts > 0 {
		fmt.Fprintf(money, "Line discounts\t-$%.2f\n", sale.TotalLineItemDiscounts)
	}
	if sale.OverallDiscountAmountApplied > 0 {
		fmt.Fprintf(money, "Sale discount (%s)\t-$%.2f\n", sale.OverallDiscountType, sale.OverallDiscountAmountApplied)
	}
	fmt.Fprintf(money, "Net (inc tax)\t$%.2f\n", sale.NetSubtotalIncTax)
	fmt.Fprintf(money, "GST included\t$%.2f\n", sale.GSTAmount)
	if sale.TransactionFee > 0 {
		fmt.Fprintf(money, "Card fee\t$%.2f\n", sale.TransactionFee)
	}
	fmt.Fprintf(money, "TOTAL\t$%.2f\n", sale.FinalGrandTotal)
	if sale.AmountPaid > 0 {
		fmt.Fprintf(money, "Paid\t$%.2f\n", sale.AmountPaid)
		fmt.Fprintf(money, "Due\t$%.2f\n", sale.AmountDue)
	}
	money.Flush()

	if len(sale.Payments) > 0 {
		fmt.Fprintln(w, "Payments:")
		for _, p := range sale.Payments {
			fmt.Fprintf(w, "  $%.2f %s %s\n", p.Amount, p.PaymentType, p.PaymentDate.Format("2006-01-02 15:04"))
		}
	}
	if sale.CustomerNotes != "" {
		fmt.Fprintf(w, "Notes: %s\n", sale.CustomerNotes)
	}
	if sale.PurchaseOrderNumber != "" {
		fmt.Fprintf(w, "PO: %s\n", sale.PurchaseOrderNumber)
	}
}

// RenderQuickAdd writes the dashboard grid for the current page.
func RenderQuickAdd(w io.Writer, tiles []domain.QuickAddItem, page int, editMode bool) {
	header := fmt.Sprintf("Quick Add - page %d", page)
	if editMode {
		header += " [EDIT MODE]"
	}
	fmt.Fprintln(w, header)
	if len(tiles) == 0 {
		fmt.Fprintln(w, "  (empty page)")
		return
	}
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	for _, t := range tiles {
		switch t.Type {
		case domain.TilePageLink:
			fmt.Fprintf(tw, "  %s\t%s\t-> page %d\n", tileTag(t), t.Label, t.TargetPageNumber)
		case domain.TileVariantParent:
			fmt.Fprintf(tw, "  %s\t%s\t(choose variant)\n", tileTag(t), t.Label)
		default:
			price := "no price"
			if t.ItemPrice != nil {
				price = fmt.Sprintf("$%.2f", *t.ItemPrice)
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", tileTag(t), t.Label, price)
		}
	}
	tw.Flush()
}

func tileTag(t domain.QuickAddItem) string {
	if t.Synthetic {
		return "[home]"
	}
	return fmt.Sprintf("[%d]", t.ID)
}

// RenderParked writes the parked-sales list.
func RenderParked(w io.Writer, parked []domain.Sale) {
	fmt.Fprintln(w, "Parked sales:")
	if len(parked) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	for _, sale := range parked {
		who := "walk-in"
		if sale.Customer != nil {
			who = sale.Customer.Name
		}
		fmt.Fprintf(tw, "  %d\t%s\t%d items\t$%.2f\n", sale.ID, who, len(sale.SaleItems), sale.FinalGrandTotal)
	}
	tw.Flush()
}

// RenderItems writes an item search result list.
func RenderItems(w io.Writer, items []domain.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items found.")
		return
	}
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	for _, it := range items {
		price := "-"
		if it.Price != nil {
			price = fmt.Sprintf("$%.2f", *it.Price)
		}
		kind := ""
		switch {
		case it.ParentID.IsVariantParent():
			kind = "variants"
		case it.ParentID.IsCombination():
			kind = "combo"
		case it.ParentID.IsVariant():
			kind = "variant"
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\n", it.ID, it.Title, it.SKU, price, kind)
	}
	tw.Flush()
}

// RenderCustomers writes a customer search result list.
func RenderCustomers(w io.Writer, customers []domain.Customer) {
	if len(customers) == 0 {
		fmt.Fprintln(w, "No customers found.")
		return
	}
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	for _, c := range customers {
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.CompanyName, c.Phone, c.Email)
	}
	tw.Flush()
}

// RenderSales writes a sales search result list.
func RenderSales(w io.Writer, results []domain.Sale) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No sales found.")
		return
	}
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	for _, sale := range results {
		who := "walk-in"
		if sale.Customer != nil {
			who = sale.Customer.Name
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t$%.2f\tdue $%.2f\n", sale.ID, sale.Status, who, sale.FinalGrandTotal, sale.AmountDue)
	}
	tw.Flush()
}
