// Package payment records payments against sales and manages the EFTPOS
// terminal pairing. Settlement, change calculation and status promotion are
// the backend's job; this service sends the intent and installs the
// resulting sale.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"posterm/internal/api"
	"posterm/internal/cart"
	"posterm/internal/credstore"
	"posterm/internal/domain"
	"posterm/internal/logger"
	"posterm/internal/notify"
	"posterm/internal/state"
)

// Payment methods the backend accepts.
const (
	TypeCash       = "Cash"
	TypeCheque     = "Cheque"
	TypeEftpos     = "EFTPOS"
	TypeTyroEftpos = "Tyro EFTPOS"
)

var (
	// ErrBadAmount is returned for a non-positive payment amount.
	ErrBadAmount = errors.New("payment amount must be positive")

	// ErrBadType is returned for an unknown payment method.
	ErrBadType = errors.New("unknown payment method")
)

// Config holds payment behaviour settings.
type Config struct {
	// ClearCartDelay is how long a fully paid sale stays on screen before
	// the cart resets for the next customer.
	ClearCartDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{ClearCartDelay: 2 * time.Second}
}

// Service is the payment service.
type Service struct {
	client   *api.Client
	cart     *cart.Service
	store    *state.Store
	creds    *credstore.Store
	notifier notify.Notifier
	cfg      Config
	log      zerolog.Logger

	// OnPaymentRecorded, when set, is called with the updated sale after a
	// payment lands. The session uses it to offer receipt printing.
	OnPaymentRecorded func(sale *domain.Sale)

	// OnParkedStale, when set, is called after a payment changes the
	// parked-sales list.
	OnParkedStale func()
}

// New creates a payment Service.
func New(client *api.Client, cartSvc *cart.Service, store *state.Store, creds *credstore.Store, notifier notify.Notifier, cfg Config) *Service {
	if cfg.ClearCartDelay <= 0 {
		cfg.ClearCartDelay = DefaultConfig().ClearCartDelay
	}
	return &Service{
		client:   client,
		cart:     cartSvc,
		store:    store,
		creds:    creds,
		notifier: notifier,
		cfg:      cfg,
		log:      logger.WithComponent("payment"),
	}
}

func validType(paymentType string) bool {
	switch paymentType {
	case TypeCash, TypeCheque, TypeEftpos, TypeTyroEftpos:
		return true
	}
	return false
}

// Record posts a payment against a sale. On success the server's sale
// replaces the local one (when it is the sale on screen), the parked list is
// refreshed at once, and a fully paid sale is scheduled to leave the screen
// after the configured delay.
func (s *Service) Record(ctx context.Context, saleID int64, amount float64, paymentType, details string) (*domain.Sale, error) {
	if amount <= 0 {
		return nil, ErrBadAmount
	}
	if !validType(paymentType) {
		return nil, fmt.Errorf("%w: %q", ErrBadType, paymentType)
	}

	body := map[string]any{
		"amount":       amount,
		"payment_type": paymentType,
	}
	if strings.TrimSpace(details) != "" {
		body["payment_details"] = strings.TrimSpace(details)
	}

	var updated domain.Sale
	if err := s.client.Post(ctx, fmt.Sprintf("/sales/%d/payments", saleID), body, &updated); err != nil {
		msg := "Payment failed"
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) && statusErr.Message != "" {
			msg = "Payment failed: " + statusErr.Message
		}
		s.notifier.Error(msg)
		s.cart.Reload(ctx)
		return nil, err
	}

	if s.store.CurrentSaleID() == updated.ID {
		s.cart.InstallSale(&updated)
	}
	if s.OnParkedStale != nil {
		s.OnParkedStale()
	}
	if s.OnPaymentRecorded != nil {
		s.OnPaymentRecorded(&updated)
	}

	if updated.Status == domain.StatusPaid {
		s.notifier.Success(fmt.Sprintf("Sale %d paid in full", updated.ID))
		s.cart.ClearAfter(updated.ID, s.cfg.ClearCartDelay)
	} else {
		s.notifier.Success(fmt.Sprintf("Payment of $%.2f recorded, $%.2f due", amount, updated.AmountDue))
	}
	s.log.Info().Int64("sale_id", updated.ID).Float64("amount", amount).Str("type", paymentType).Msg("payment recorded")
	return &updated, nil
}

// InvoiceAndKeepOpen promotes an Open or Quote sale to Invoice without
// touching the cart, so the operator can keep editing payments later.
func (s *Service) InvoiceAndKeepOpen(ctx context.Context) error {
	sale := s.store.CurrentSale()
	if sale == nil {
		return cart.ErrNoActiveSale
	}
	if !sale.Status.AcceptsItems() {
		return fmt.Errorf("%w: %s to %s", cart.ErrBadTransition, sale.Status, domain.StatusInvoice)
	}
	return s.cart.SetStatus(ctx, domain.StatusInvoice)
}

// pairResponse is what the pairing route answers with.
type pairResponse struct {
	Success        bool   `json:"success"`
	IntegrationKey string `json:"integration_key"`
	Message        string `json:"message"`
}

// Pair exchanges a merchant and terminal id for an integration key and
// persists all three for later sessions.
func (s *Service) Pair(ctx context.Context, merchantID, terminalID string) (credstore.Credentials, error) {
	var creds credstore.Credentials
	merchantID = strings.TrimSpace(merchantID)
	terminalID = strings.TrimSpace(terminalID)
	if merchantID == "" || terminalID == "" {
		return creds, errors.New("merchant id and terminal id are required")
	}

	body := map[string]string{"merchant_id": merchantID, "terminal_id": terminalID}
	var resp pairResponse
	if err := s.client.Post(ctx, "/payments/tyro/pair", body, &resp); err != nil {
		return creds, err
	}
	if !resp.Success || resp.IntegrationKey == "" {
		if resp.Message != "" {
			return creds, fmt.Errorf("pairing rejected: %s", resp.Message)
		}
		return creds, errors.New("pairing rejected")
	}

	creds = credstore.Credentials{
		MerchantID:     merchantID,
		TerminalID:     terminalID,
		IntegrationKey: resp.IntegrationKey,
	}
	if err := s.creds.Save(creds); err != nil {
		return creds, fmt.Errorf("pairing succeeded but credentials were not saved: %w", err)
	}
	s.notifier.Success("Terminal paired")
	s.log.Info().Str("merchant_id", merchantID).Str("terminal_id", terminalID).Msg("terminal paired")
	return creds, nil
}

// TerminalInfo is the payment provider's view of the paired terminal.
type TerminalInfo struct {
	Status     string `json:"status"`
	MerchantID string `json:"merchant_id"`
	TerminalID string `json:"terminal_id"`
	Firmware   string `json:"firmware,omitempty"`
}

// Info queries the provider for the paired terminal's status using the
// stored credentials.
func (s *Service) Info(ctx context.Context) (*TerminalInfo, error) {
	creds, err := s.creds.Load()
	if err != nil {
		return nil, err
	}
	var info TerminalInfo
	err = s.client.Get(ctx, "/payments/tyro/terminal-info", api.Query{
		"merchant_id":     creds.MerchantID,
		"terminal_id":     creds.TerminalID,
		"integration_key": creds.IntegrationKey,
	}, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}
