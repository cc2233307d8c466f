package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"posterm/internal/api"
	"posterm/internal/cart"
	"posterm/internal/combo"
	"posterm/internal/credstore"
	"posterm/internal/domain"
	"posterm/internal/sched"
	"posterm/internal/state"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingNotifier) push(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingNotifier) Info(msg string)    { r.push(msg) }
func (r *recordingNotifier) Success(msg string) { r.push(msg) }
func (r *recordingNotifier) Warning(msg string) { r.push(msg) }
func (r *recordingNotifier) Error(msg string)   { r.push(msg) }

// paymentBackend answers the payment route with a sale whose status depends
// on whether the payment covers the amount due.
type paymentBackend struct {
	mu       sync.Mutex
	due      float64
	requests []string
	server   *httptest.Server
}

func newPaymentBackend(t *testing.T, due float64) *paymentBackend {
	b := &paymentBackend{due: due}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.requests = append(b.requests, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/api/sales/42/payments":
			var body struct {
				Amount float64 `json:"amount"`
				Type   string  `json:"payment_type"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			sale := domain.Sale{ID: 42, Status: domain.StatusInvoice, AmountPaid: body.Amount, AmountDue: b.due - body.Amount, FinalGrandTotal: b.due}
			sale.Payments = []domain.Payment{{ID: 1, SaleID: 42, Amount: body.Amount, PaymentType: body.Type}}
			if sale.AmountDue <= 0 {
				sale.Status = domain.StatusPaid
				sale.AmountDue = 0
			}
			json.NewEncoder(w).Encode(sale)
		case "/api/payments/tyro/pair":
			json.NewEncoder(w).Encode(map[string]any{"success": true, "integration_key": "ik-123"})
		case "/api/payments/tyro/terminal-info":
			if r.URL.Query().Get("integration_key") != "ik-123" {
				http.Error(w, `{"error": "bad key"}`, http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(TerminalInfo{Status: "CONNECTED", MerchantID: "m1", TerminalID: "t1"})
		default:
			http.Error(w, `{"error": "unhandled"}`, http.StatusNotImplemented)
		}
	}))
	t.Cleanup(b.server.Close)
	return b
}

func newService(t *testing.T, b *paymentBackend, clearDelay time.Duration) (*Service, *state.Store, *credstore.Store) {
	client := api.New(api.Config{BaseURL: b.server.URL + "/api"})
	store := state.New()
	notifier := &recordingNotifier{}
	cartSvc := cart.New(client, combo.New(client), store, notifier, sched.New(), cart.Config{})
	creds := credstore.New(filepath.Join(t.TempDir(), "terminal.yaml"))
	svc := New(client, cartSvc, store, creds, notifier, Config{ClearCartDelay: clearDelay})
	return svc, store, creds
}

func TestRecordRejectsBadInput(t *testing.T) {
	b := newPaymentBackend(t, 10)
	svc, _, _ := newService(t, b, time.Second)
	ctx := context.Background()

	if _, err := svc.Record(ctx, 42, 0, TypeCash, ""); !errors.Is(err, ErrBadAmount) {
		t.Errorf("zero amount: err = %v, want ErrBadAmount", err)
	}
	if _, err := svc.Record(ctx, 42, -5, TypeCash, ""); !errors.Is(err, ErrBadAmount) {
		t.Errorf("negative amount: err = %v, want ErrBadAmount", err)
	}
	if _, err := svc.Record(ctx, 42, 5, "Barter", ""); !errors.Is(err, ErrBadType) {
		t.Errorf("unknown method: err = %v, want ErrBadType", err)
	}
	if len(b.requests) != 0 {
		t.Error("rejected payments must not reach the backend")
	}
}

func TestPartialPaymentKeepsSaleOnScreen(t *testing.T) {
	b := newPaymentBackend(t, 10)
	svc, store, _ := newService(t, b, 20*time.Millisecond)
	store.SetCurrentSale(&domain.Sale{ID: 42, Status: domain.StatusOpen, AmountDue: 10})

	sale, err := svc.Record(context.Background(), 42, 4, TypeCash, "")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if sale.Status != domain.StatusInvoice || sale.AmountDue != 6 {
		t.Errorf("sale = %+v", sale)
	}

	time.Sleep(60 * time.Millisecond)
	if store.CurrentSaleID() != 42 {
		t.Error("a partially paid sale must stay on screen")
	}
}

func TestFullPaymentSchedulesCartClear(t *testing.T) {
	b := newPaymentBackend(t, 10)
	svc, store, _ := newService(t, b, 20*time.Millisecond)
	store.SetCurrentSale(&domain.Sale{ID: 42, Status: domain.StatusOpen, AmountDue: 10})

	var parkedRefreshed, promptShown bool
	svc.OnParkedStale = func() { parkedRefreshed = true }
	svc.OnPaymentRecorded = func(sale *domain.Sale) { promptShown = true }

	sale, err := svc.Record(context.Background(), 42, 10, TypeEftpos, "")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if sale.Status != domain.StatusPaid {
		t.Fatalf("status = %s, want Paid", sale.Status)
	}
	if !parkedRefreshed {
		t.Error("the parked list must refresh immediately")
	}
	if !promptShown {
		t.Error("the print prompt must be surfaced")
	}
	// The paid sale lingers briefly, then the cart resets.
	if store.CurrentSaleID() != 42 {
		t.Fatal("the paid sale must stay visible until the delay passes")
	}
	time.Sleep(80 * time.Millisecond)
	if store.CurrentSale() != nil {
		t.Error("the cart must clear after the delay")
	}
}

func TestPairStoresCredentials(t *testing.T) {
	b := newPaymentBackend(t, 0)
	svc, _, creds := newService(t, b, time.Second)

	got, err := svc.Pair(context.Background(), "m1", "t1")
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	if got.IntegrationKey != "ik-123" {
		t.Errorf("integration key = %q", got.IntegrationKey)
	}

	stored, err := creds.Load()
	if err != nil {
		t.Fatalf("Load after pair: %v", err)
	}
	if stored != got {
		t.Errorf("stored = %+v, want %+v", stored, got)
	}
}

func TestInfoRequiresPairing(t *testing.T) {
	b := newPaymentBackend(t, 0)
	svc, _, _ := newService(t, b, time.Second)

	if _, err := svc.Info(context.Background()); !errors.Is(err, credstore.ErrNotPaired) {
		t.Fatalf("err = %v, want ErrNotPaired", err)
	}

	if _, err := svc.Pair(context.Background(), "m1", "t1"); err != nil {
		t.Fatalf("Pair: %v", err)
	}
	info, err := svc.Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Status != "CONNECTED" {
		t.Errorf("status = %q", info.Status)
	}
}
