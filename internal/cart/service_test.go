package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"posterm/internal/api"
	"posterm/internal/combo"
	"posterm/internal/domain"
	"posterm/internal/sched"
	"posterm/internal/state"
)

// recordingNotifier captures operator messages for assertions.
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingNotifier) record(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, level+": "+msg)
}

func (r *recordingNotifier) Info(msg string)    { r.record("info", msg) }
func (r *recordingNotifier) Success(msg string) { r.record("success", msg) }
func (r *recordingNotifier) Warning(msg string) { r.record("warning", msg) }
func (r *recordingNotifier) Error(msg string)   { r.record("error", msg) }

func (r *recordingNotifier) errorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs {
		if strings.HasPrefix(m, "error:") {
			n++
		}
	}
	return n
}

// backend is a minimal in-memory stand-in for the POS server: it owns one
// sale, recomputes totals on every mutation, and logs each request so tests
// can assert on the exact call sequence.
type backend struct {
	mu       sync.Mutex
	sale     *domain.Sale
	nextLine int64
	combos   map[int64][]domain.ComboComponent

	// failPut, when non-zero, makes the next line PUT fail with that code.
	failPut int

	// deleteNoContent makes line deletions answer 204 instead of the sale.
	deleteNoContent bool

	requests []string
	server   *httptest.Server
}

var (
	lineRe   = regexp.MustCompile(`^/api/sales/(\d+)/items/(\d+)$`)
	itemsRe  = regexp.MustCompile(`^/api/sales/(\d+)/items$`)
	saleRe   = regexp.MustCompile(`^/api/sales/(\d+)$`)
	statusRe = regexp.MustCompile(`^/api/sales/(\d+)/status$`)
	comboRe  = regexp.MustCompile(`^/api/combination-items/(\d+)$`)
)

func newBackend(t *testing.T) *backend {
	b := &backend{nextLine: 100, combos: map[int64][]domain.ComboComponent{}}
	b.server = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.server.Close)
	return b
}

func (b *backend) recompute() {
	total := 0.0
	for _, line := range b.sale.SaleItems {
		total += float64(line.Quantity) * line.SalePrice
	}
	b.sale.SubtotalGrossOriginal = total
	b.sale.NetSubtotalIncTax = total
	b.sale.FinalGrandTotal = total
	b.sale.SaleTotal = total
	b.sale.AmountDue = total - b.sale.AmountPaid
}

func (b *backend) writeSale(w http.ResponseWriter) {
	b.recompute()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(b.sale)
}

func (b *backend) handle(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)

	path := r.URL.Path
	switch {
	case r.Method == "POST" && path == "/api/sales/":
		var body struct {
			Status     string `json:"status"`
			CustomerID *int64 `json:"customer_id"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		b.sale = &domain.Sale{ID: 42, Status: domain.Status(body.Status), CustomerID: body.CustomerID}
		b.writeSale(w)

	case r.Method == "GET" && saleRe.MatchString(path):
		if b.sale == nil {
			http.Error(w, `{"error": "not found"}`, http.StatusNotFound)
			return
		}
		b.writeSale(w)

	case r.Method == "PUT" && saleRe.MatchString(path):
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if notes, ok := body["customer_notes"].(string); ok {
			b.sale.CustomerNotes = notes
		}
		if po, ok := body["purchase_order_number"].(string); ok {
			b.sale.PurchaseOrderNumber = po
		}
		b.writeSale(w)

	case r.Method == "POST" && itemsRe.MatchString(path):
		var body struct {
			ItemID      int64    `json:"item_id"`
			Quantity    int      `json:"quantity"`
			PriceAtSale *float64 `json:"price_at_sale"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		price := 5.0
		if body.PriceAtSale != nil {
			price = *body.PriceAtSale
		}
		b.nextLine++
		b.sale.SaleItems = append(b.sale.SaleItems, domain.SaleItem{
			ID: b.nextLine, SaleID: b.sale.ID, ItemID: body.ItemID,
			Quantity: body.Quantity, PriceAtSale: price, SalePrice: price,
		})
		b.writeSale(w)

	case r.Method == "PUT" && lineRe.MatchString(path):
		if b.failPut != 0 {
			code := b.failPut
			b.failPut = 0
			http.Error(w, `{"error": "update rejected"}`, code)
			return
		}
		lineID, _ := strconv.ParseInt(lineRe.FindStringSubmatch(path)[2], 10, 64)
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		line := b.sale.Line(lineID)
		if line == nil {
			http.Error(w, `{"error": "no such line"}`, http.StatusNotFound)
			return
		}
		if q, ok := body["quantity"].(float64); ok {
			line.Quantity = int(q)
		}
		if notes, ok := body["notes"].(string); ok {
			line.Notes = notes
		}
		if dv, ok := body["discount_value"].(float64); ok {
			line.SalePrice = line.PriceAtSale - dv
		}
		b.writeSale(w)

	case r.Method == "DELETE" && lineRe.MatchString(path):
		lineID, _ := strconv.ParseInt(lineRe.FindStringSubmatch(path)[2], 10, 64)
		kept := b.sale.SaleItems[:0]
		for _, line := range b.sale.SaleItems {
			if line.ID != lineID {
				kept = append(kept, line)
			}
		}
		b.sale.SaleItems = kept
		if b.deleteNoContent {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		b.writeSale(w)

	case r.Method == "PUT" && statusRe.MatchString(path):
		var body struct {
			Status string `json:"status"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		b.sale.Status = domain.Status(body.Status)
		b.writeSale(w)

	case r.Method == "GET" && comboRe.MatchString(path):
		id, _ := strconv.ParseInt(comboRe.FindStringSubmatch(path)[1], 10, 64)
		components, ok := b.combos[id]
		if !ok {
			http.Error(w, `{"error": "not a combination"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(domain.ComboDetails{Success: true, ID: id, Components: components})

	case strings.HasSuffix(path, "/overall_discount"):
		var body struct {
			Type  string  `json:"discount_type"`
			Value float64 `json:"discount_value"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		b.sale.OverallDiscountType = body.Type
		b.sale.OverallDiscountValue = body.Value
		b.sale.OverallDiscountAmountApplied = body.Value
		b.writeSale(w)

	case strings.HasSuffix(path, "/eftpos_fee"):
		var body struct {
			Enabled bool `json:"enabled"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Enabled {
			b.sale.TransactionFee = 1.50
		} else {
			b.sale.TransactionFee = 0
		}
		b.writeSale(w)

	default:
		http.Error(w, `{"error": "unhandled route"}`, http.StatusNotImplemented)
	}
}

func (b *backend) requestLog() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

func price(v float64) *float64 { return &v }

func newService(t *testing.T, b *backend) (*Service, *state.Store, *recordingNotifier) {
	client := api.New(api.Config{BaseURL: b.server.URL + "/api"})
	store := state.New()
	notifier := &recordingNotifier{}
	svc := New(client, combo.New(client), store, notifier, sched.New(), Config{NoteDebounce: 20 * time.Millisecond})
	return svc, store, notifier
}

func TestNewSaleReplacesEmptyCart(t *testing.T) {
	b := newBackend(t)
	svc, store, _ := newService(t, b)

	sale, err := svc.NewSale(context.Background())
	if err != nil {
		t.Fatalf("NewSale: %v", err)
	}
	if sale.ID != 42 || sale.Status != domain.StatusOpen {
		t.Errorf("sale = %+v", sale)
	}
	if store.CurrentSaleID() != 42 {
		t.Error("the server's sale must become the current one")
	}
}

func TestAddItemMergesDuplicateLines(t *testing.T) {
	b := newBackend(t)
	svc, store, _ := newService(t, b)
	ctx := context.Background()

	mug := domain.Item{ID: 7, Title: "Mug", Price: price(4.50), ParentID: domain.ParentStandalone}
	if err := svc.AddItem(ctx, mug, AddOptions{}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := svc.AddItem(ctx, mug, AddOptions{}); err != nil {
		t.Fatalf("second add: %v", err)
	}

	sale := store.CurrentSale()
	if len(sale.SaleItems) != 1 {
		t.Fatalf("%d lines, want the quantities merged into 1", len(sale.SaleItems))
	}
	if sale.SaleItems[0].Quantity != 2 {
		t.Errorf("quantity = %d, want 2", sale.SaleItems[0].Quantity)
	}
	if sale.FinalGrandTotal != 9.0 {
		t.Errorf("total = %.2f, want the server's 9.00", sale.FinalGrandTotal)
	}
}

func TestAddItemWithoutPriceIsRejected(t *testing.T) {
	b := newBackend(t)
	svc, _, notifier := newService(t, b)

	err := svc.AddItem(context.Background(), domain.Item{ID: 8, Title: "Unpriced", ParentID: domain.ParentStandalone}, AddOptions{})
	if !errors.Is(err, ErrMissingPrice) {
		t.Fatalf("err = %v, want ErrMissingPrice", err)
	}
	if len(b.requestLog()) != 0 {
		t.Error("no request may be sent for an unpriced item")
	}
	if len(notifier.msgs) == 0 {
		t.Error("the operator must be told why nothing happened")
	}
}

func TestAddVariantParentRequiresChoice(t *testing.T) {
	b := newBackend(t)
	svc, _, _ := newService(t, b)

	parent := domain.Item{ID: 9, Title: "T-Shirt", ParentID: domain.ParentVariant}
	err := svc.AddItem(context.Background(), parent, AddOptions{})
	var choice *VariantChoiceError
	if !errors.As(err, &choice) {
		t.Fatalf("err = %v, want VariantChoiceError", err)
	}
	if choice.Parent.ID != 9 {
		t.Errorf("choice parent = %d", choice.Parent.ID)
	}
	if len(b.requestLog()) != 0 {
		t.Error("a parent add must not hit the backend")
	}
}

func TestAddCombinationExpandsAndMerges(t *testing.T) {
	b := newBackend(t)
	b.combos[20] = []domain.ComboComponent{
		{ItemID: 7, Quantity: 2},
		{ItemID: 8, Quantity: 1},
	}
	svc, store, _ := newService(t, b)
	ctx := context.Background()

	// Item 7 is already in the cart once; the combination's two more merge in.
	if err := svc.AddItem(ctx, domain.Item{ID: 7, Title: "Mug", Price: price(4.50), ParentID: domain.ParentStandalone}, AddOptions{}); err != nil {
		t.Fatalf("seed add: %v", err)
	}
	bundle := domain.Item{ID: 20, Title: "Gift Set", Price: price(12), ParentID: domain.ParentCombination}
	if err := svc.AddItem(ctx, bundle, AddOptions{}); err != nil {
		t.Fatalf("combination add: %v", err)
	}

	sale := store.CurrentSale()
	if len(sale.SaleItems) != 2 {
		t.Fatalf("%d lines, want 2 (merged 7, new 8)", len(sale.SaleItems))
	}
	if line := sale.LineForItem(7); line == nil || line.Quantity != 3 {
		t.Errorf("item 7 line = %+v, want quantity 3", line)
	}
	if line := sale.LineForItem(8); line == nil || line.Quantity != 1 {
		t.Errorf("item 8 line = %+v, want quantity 1", line)
	}
}

func TestFailedLineUpdateRepairsFromServer(t *testing.T) {
	b := newBackend(t)
	svc, store, notifier := newService(t, b)
	ctx := context.Background()

	mug := domain.Item{ID: 7, Title: "Mug", Price: price(4.50), ParentID: domain.ParentStandalone}
	if err := svc.AddItem(ctx, mug, AddOptions{}); err != nil {
		t.Fatalf("add: %v", err)
	}
	lineID := store.CurrentSale().SaleItems[0].ID

	b.mu.Lock()
	b.failPut = http.StatusConflict
	b.mu.Unlock()

	if err := svc.UpdateLineQuantity(ctx, lineID, 5); err == nil {
		t.Fatal("the failed update must surface an error")
	}
	if notifier.errorCount() == 0 {
		t.Error("the operator must see the failure")
	}
	// The repair re-fetch restores the server's view: quantity still 1.
	if got := store.CurrentSale().SaleItems[0].Quantity; got != 1 {
		t.Errorf("quantity after repair = %d, want the server's 1", got)
	}
	log := b.requestLog()
	if log[len(log)-1] != "GET /api/sales/42" {
		t.Errorf("last request = %q, want the repair re-fetch", log[len(log)-1])
	}
}

func TestUpdateLineQuantityZeroRejected(t *testing.T) {
	b := newBackend(t)
	svc, _, _ := newService(t, b)
	if err := svc.UpdateLineQuantity(context.Background(), 1, 0); !errors.Is(err, ErrZeroQuantity) {
		t.Fatalf("err = %v, want ErrZeroQuantity", err)
	}
}

func TestRemoveLineHandles204(t *testing.T) {
	b := newBackend(t)
	b.deleteNoContent = true
	svc, store, _ := newService(t, b)
	ctx := context.Background()

	mug := domain.Item{ID: 7, Title: "Mug", Price: price(4.50), ParentID: domain.ParentStandalone}
	svc.AddItem(ctx, mug, AddOptions{})
	lineID := store.CurrentSale().SaleItems[0].ID

	if err := svc.RemoveLine(ctx, lineID); err != nil {
		t.Fatalf("RemoveLine: %v", err)
	}
	if got := len(store.CurrentSale().SaleItems); got != 0 {
		t.Errorf("%d lines after 204 + re-fetch, want 0", got)
	}
}

func TestSetStatusRejectsBadTransitionLocally(t *testing.T) {
	b := newBackend(t)
	svc, store, _ := newService(t, b)
	store.SetCurrentSale(&domain.Sale{ID: 42, Status: domain.StatusPaid})

	err := svc.SetStatus(context.Background(), domain.StatusOpen)
	if !errors.Is(err, ErrBadTransition) {
		t.Fatalf("err = %v, want ErrBadTransition", err)
	}
	if len(b.requestLog()) != 0 {
		t.Error("a forbidden transition must not reach the backend")
	}
}

func TestEditsOnLockedSaleRejected(t *testing.T) {
	b := newBackend(t)
	svc, store, _ := newService(t, b)
	store.SetCurrentSale(&domain.Sale{
		ID: 42, Status: domain.StatusPaid,
		SaleItems: []domain.SaleItem{{ID: 101, ItemID: 7, Quantity: 1, SalePrice: 4.50}},
	})
	ctx := context.Background()

	if err := svc.UpdateLineQuantity(ctx, 101, 2); !errors.Is(err, ErrSaleLocked) {
		t.Errorf("quantity edit: err = %v, want ErrSaleLocked", err)
	}
	if err := svc.RemoveLine(ctx, 101); !errors.Is(err, ErrSaleLocked) {
		t.Errorf("remove: err = %v, want ErrSaleLocked", err)
	}
	if err := svc.ApplyOverallDiscount(ctx, domain.OverallDiscountFixed, 5); !errors.Is(err, ErrSaleLocked) {
		t.Errorf("discount: err = %v, want ErrSaleLocked", err)
	}
	if len(b.requestLog()) != 0 {
		t.Error("no edit on a locked sale may reach the backend")
	}
}

func TestVoidClearsCartAndTellsServer(t *testing.T) {
	b := newBackend(t)
	svc, store, _ := newService(t, b)
	ctx := context.Background()

	svc.NewSale(ctx)
	parkedRefreshed := false
	svc.OnParkedStale = func() { parkedRefreshed = true }

	if err := svc.Void(ctx); err != nil {
		t.Fatalf("Void: %v", err)
	}
	if store.CurrentSale() != nil {
		t.Error("voiding must clear the cart")
	}
	if !parkedRefreshed {
		t.Error("voiding must refresh the parked list")
	}
	b.mu.Lock()
	gotStatus := b.sale.Status
	b.mu.Unlock()
	if gotStatus != domain.StatusVoid {
		t.Errorf("server status = %s, want Void", gotStatus)
	}
}

func TestDebouncedNotesCollapseToOneWrite(t *testing.T) {
	b := newBackend(t)
	svc, store, _ := newService(t, b)
	ctx := context.Background()

	svc.NewSale(ctx)
	svc.SaveCustomerNotes("leave at")
	svc.SaveCustomerNotes("leave at the back door")
	time.Sleep(100 * time.Millisecond)

	puts := 0
	for _, req := range b.requestLog() {
		if req == "PUT /api/sales/42" {
			puts++
		}
	}
	if puts != 1 {
		t.Errorf("%d note writes, want the debounce to collapse them to 1", puts)
	}
	if got := store.CurrentSale().CustomerNotes; got != "leave at the back door" {
		t.Errorf("notes = %q, want the last edit", got)
	}
}

func TestClearAfterOnlyClearsMatchingSale(t *testing.T) {
	b := newBackend(t)
	svc, store, _ := newService(t, b)

	store.SetCurrentSale(&domain.Sale{ID: 42, Status: domain.StatusPaid})
	svc.ClearAfter(42, 20*time.Millisecond)

	// The operator moves on before the timer fires.
	store.SetCurrentSale(&domain.Sale{ID: 43, Status: domain.StatusOpen})
	time.Sleep(60 * time.Millisecond)
	if store.CurrentSaleID() != 43 {
		t.Error("a stale clear must not wipe the new sale")
	}

	store.SetCurrentSale(&domain.Sale{ID: 44, Status: domain.StatusPaid})
	svc.ClearAfter(44, 20*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	if store.CurrentSale() != nil {
		t.Error("a matching clear must empty the cart")
	}
}

