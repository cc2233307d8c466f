// Package cart owns the sale being rung up: every mutation of the current
// sale goes through here. The reconciliation rule is strict and uniform —
// each action calls the one backend endpoint that expresses the intent, and
// on success the entire local sale is replaced with the server's response.
// Totals, discounts, tax and fees are never computed locally. On failure the
// operator is notified and the sale is re-fetched whole, so a half-applied
// edit can never linger on screen.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"posterm/internal/api"
	"posterm/internal/combo"
	"posterm/internal/domain"
	"posterm/internal/logger"
	"posterm/internal/notify"
	"posterm/internal/sched"
	"posterm/internal/state"
)

// Config holds cart behaviour settings.
type Config struct {
	// NoteDebounce is how long customer-notes and purchase-order edits wait
	// before being written to the backend, so typing produces one request
	// instead of one per keystroke.
	NoteDebounce time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{NoteDebounce: time.Second}
}

// Service is the cart service.
type Service struct {
	client   *api.Client
	combos   *combo.Service
	store    *state.Store
	notifier notify.Notifier
	sched    *sched.Scheduler
	cfg      Config
	log      zerolog.Logger

	// OnSaleChanged, when set, is called after the current sale (or its
	// absence) changes. The session uses it to re-render the cart panel.
	OnSaleChanged func()

	// OnParkedStale, when set, is called after an action that changes the
	// parked-sales list (park, void, payment completion).
	OnParkedStale func()
}

// AddOptions modify AddItem.
type AddOptions struct {
	// AllowParent permits adding a variant parent directly. Only the rare
	// parent that is itself sellable sets this; everywhere else a parent add
	// returns a VariantChoiceError.
	AllowParent bool
}

// New creates a cart Service.
func New(client *api.Client, combos *combo.Service, store *state.Store, notifier notify.Notifier, scheduler *sched.Scheduler, cfg Config) *Service {
	if cfg.NoteDebounce <= 0 {
		cfg.NoteDebounce = DefaultConfig().NoteDebounce
	}
	return &Service{
		client:   client,
		combos:   combos,
		store:    store,
		notifier: notifier,
		sched:    scheduler,
		cfg:      cfg,
		log:      logger.WithComponent("cart"),
	}
}

// applySale installs the server's sale as the whole local truth.
func (s *Service) applySale(sale *domain.Sale) {
	s.store.SetCurrentSale(sale)
	if sale != nil && sale.Customer != nil {
		s.store.SetCurrentCustomer(sale.Customer)
	}
	if s.OnSaleChanged != nil {
		s.OnSaleChanged()
	}
}

// InstallSale replaces the local sale with a server response obtained by
// another service (payments, notably). The replacement is whole-object, same
// as every cart mutation.
func (s *Service) InstallSale(sale *domain.Sale) {
	s.applySale(sale)
}

// Reload re-fetches the current sale from the backend. It is the repair step
// after any failed mutation; a sale that has vanished server-side clears the
// cart.
func (s *Service) Reload(ctx context.Context) {
	saleID := s.store.CurrentSaleID()
	if saleID == 0 {
		return
	}
	var sale domain.Sale
	if err := s.client.Get(ctx, fmt.Sprintf("/sales/%d", saleID), nil, &sale); err != nil {
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == 404 {
			s.store.ClearSale()
			if s.OnSaleChanged != nil {
				s.OnSaleChanged()
			}
			return
		}
		s.log.Warn().Err(err).Int64("sale_id", saleID).Msg("sale re-fetch failed")
		return
	}
	s.applySale(&sale)
}

// repair notifies the operator about a failed action and re-fetches the sale.
func (s *Service) repair(ctx context.Context, action string, err error) error {
	msg := action + " failed"
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		msg = fmt.Sprintf("%s failed: %s", action, statusErr.Message)
	}
	s.notifier.Error(msg)
	s.Reload(ctx)
	return err
}

// Load makes an existing sale the current one. Resuming a parked sale goes
// through here.
func (s *Service) Load(ctx context.Context, saleID int64) error {
	var sale domain.Sale
	if err := s.client.Get(ctx, fmt.Sprintf("/sales/%d", saleID), nil, &sale); err != nil {
		s.notifier.Error(fmt.Sprintf("Could not load sale %d", saleID))
		return err
	}
	s.applySale(&sale)
	return nil
}

// NewSale starts a fresh Open sale, attaching the session's selected customer
// when one is set.
func (s *Service) NewSale(ctx context.Context) (*domain.Sale, error) {
	body := map[string]any{"status": string(domain.StatusOpen)}
	if c := s.store.CurrentCustomer(); c != nil {
		body["customer_id"] = c.ID
	}
	var sale domain.Sale
	if err := s.client.Post(ctx, "/sales/", body, &sale); err != nil {
		s.notifier.Error("Could not start a new sale")
		return nil, err
	}
	s.applySale(&sale)
	s.log.Info().Int64("sale_id", sale.ID).Msg("sale started")
	return &sale, nil
}

// ensureSale returns a sale that accepts new lines, creating one when the
// current sale is absent or already past Quote.
func (s *Service) ensureSale(ctx context.Context) (*domain.Sale, error) {
	if sale := s.store.CurrentSale(); sale != nil && sale.Status.AcceptsItems() {
		return sale, nil
	}
	return s.NewSale(ctx)
}

// AddItem puts a catalog item into the current sale, starting a sale if
// needed. Variant parents come back as a VariantChoiceError unless
// AllowParent is set; combination items expand into their component lines,
// merging quantities with lines already present.
func (s *Service) AddItem(ctx context.Context, it domain.Item, opts AddOptions) error {
	if it.ParentID.IsVariantParent() && !opts.AllowParent {
		return &VariantChoiceError{Parent: it}
	}
	if it.ParentID.IsCombination() {
		return s.addCombination(ctx, it)
	}

	if !it.HasPrice() {
		s.notifier.Warning(fmt.Sprintf("%q has no price and cannot be added", it.Title))
		return fmt.Errorf("add %q: %w", it.Title, ErrMissingPrice)
	}

	sale, err := s.ensureSale(ctx)
	if err != nil {
		return err
	}
	if err := s.addLine(ctx, sale, it.ID, 1, it.Price); err != nil {
		return s.repair(ctx, "Adding item", err)
	}
	return nil
}

// addCombination expands a combination item into its component lines.
func (s *Service) addCombination(ctx context.Context, it domain.Item) error {
	details, err := s.combos.Get(ctx, it.ID)
	if err != nil {
		s.notifier.Error(fmt.Sprintf("Could not expand combination %q", it.Title))
		return err
	}
	if _, err := s.ensureSale(ctx); err != nil {
		return err
	}
	for _, component := range details.Components {
		// Each call replaces the local sale, so later components merge
		// against the freshest line list.
		if err := s.addLine(ctx, s.store.CurrentSale(), component.ItemID, component.Quantity, nil); err != nil {
			return s.repair(ctx, fmt.Sprintf("Adding %q", it.Title), err)
		}
	}
	s.notifier.Success(fmt.Sprintf("Added combination %q", it.Title))
	return nil
}

// addLine merges qty into an existing line for the item or creates a new one.
func (s *Service) addLine(ctx context.Context, sale *domain.Sale, itemID int64, qty int, price *float64) error {
	if sale == nil {
		return ErrNoActiveSale
	}
	if line := sale.LineForItem(itemID); line != nil {
		return s.putLine(ctx, sale.ID, line.ID, map[string]any{"quantity": line.Quantity + qty})
	}

	body := map[string]any{"item_id": itemID, "quantity": qty}
	if price != nil {
		body["price_at_sale"] = *price
	}
	var updated domain.Sale
	if err := s.client.Post(ctx, fmt.Sprintf("/sales/%d/items", sale.ID), body, &updated); err != nil {
		return err
	}
	s.applySale(&updated)
	return nil
}

// putLine sends one line edit and installs the resulting sale.
func (s *Service) putLine(ctx context.Context, saleID, saleItemID int64, body map[string]any) error {
	var updated domain.Sale
	if err := s.client.Put(ctx, fmt.Sprintf("/sales/%d/items/%d", saleID, saleItemID), body, &updated); err != nil {
		return err
	}
	s.applySale(&updated)
	return nil
}

// editableSale returns the current sale when line edits are allowed on it.
func (s *Service) editableSale() (*domain.Sale, error) {
	sale := s.store.CurrentSale()
	if sale == nil {
		return nil, ErrNoActiveSale
	}
	if !sale.Status.Editable() {
		return nil, ErrSaleLocked
	}
	return sale, nil
}

// UpdateLineQuantity sets a line's quantity. Negative quantities are return
// lines; zero is rejected.
func (s *Service) UpdateLineQuantity(ctx context.Context, saleItemID int64, quantity int) error {
	if quantity == 0 {
		return ErrZeroQuantity
	}
	sale, err := s.editableSale()
	if err != nil {
		return err
	}
	if err := s.putLine(ctx, sale.ID, saleItemID, map[string]any{"quantity": quantity}); err != nil {
		return s.repair(ctx, "Updating quantity", err)
	}
	return nil
}

// SetLineDiscount applies a per-line discount (Percentage or Absolute). A nil
// value clears the discount.
func (s *Service) SetLineDiscount(ctx context.Context, saleItemID int64, discountType string, value *float64) error {
	sale, err := s.editableSale()
	if err != nil {
		return err
	}
	if !sale.Status.AcceptsItems() {
		return ErrSaleLocked
	}
	body := map[string]any{"discount_type": nil, "discount_value": nil}
	if value != nil {
		if discountType != domain.DiscountPercentage && discountType != domain.DiscountAbsolute {
			return fmt.Errorf("%w: type %q", ErrBadDiscount, discountType)
		}
		if *value < 0 {
			return fmt.Errorf("%w: negative value", ErrBadDiscount)
		}
		body["discount_type"] = discountType
		body["discount_value"] = *value
	}
	if err := s.putLine(ctx, sale.ID, saleItemID, body); err != nil {
		return s.repair(ctx, "Applying discount", err)
	}
	return nil
}

// SetLineNotes sets a line's free-text note.
func (s *Service) SetLineNotes(ctx context.Context, saleItemID int64, notes string) error {
	sale, err := s.editableSale()
	if err != nil {
		return err
	}
	if err := s.putLine(ctx, sale.ID, saleItemID, map[string]any{"notes": notes}); err != nil {
		return s.repair(ctx, "Saving line notes", err)
	}
	return nil
}

// RemoveLine deletes a line from the sale. The backend answers either with
// the updated sale or 204; on 204 the sale is re-fetched.
func (s *Service) RemoveLine(ctx context.Context, saleItemID int64) error {
	sale, err := s.editableSale()
	if err != nil {
		return err
	}
	var updated domain.Sale
	err = s.client.Delete(ctx, fmt.Sprintf("/sales/%d/items/%d", sale.ID, saleItemID), &updated)
	switch {
	case err == nil:
		s.applySale(&updated)
		return nil
	case errors.Is(err, api.ErrNoContent):
		s.Reload(ctx)
		return nil
	default:
		return s.repair(ctx, "Removing item", err)
	}
}

// ApplyOverallDiscount sets the whole-of-sale discount. Only Open and Quote
// sales accept one.
func (s *Service) ApplyOverallDiscount(ctx context.Context, discountType string, value float64) error {
	sale := s.store.CurrentSale()
	if sale == nil {
		return ErrNoActiveSale
	}
	if !sale.Status.AcceptsItems() {
		return ErrSaleLocked
	}
	switch discountType {
	case domain.OverallDiscountNone, domain.OverallDiscountPercentage,
		domain.OverallDiscountFixed, domain.OverallDiscountTargetTotal:
	default:
		return fmt.Errorf("%w: type %q", ErrBadDiscount, discountType)
	}
	if value < 0 {
		return fmt.Errorf("%w: negative value", ErrBadDiscount)
	}

	body := map[string]any{"discount_type": discountType, "discount_value": value}
	var updated domain.Sale
	if err := s.client.Put(ctx, fmt.Sprintf("/sales/%d/overall_discount", sale.ID), body, &updated); err != nil {
		return s.repair(ctx, "Applying sale discount", err)
	}
	s.applySale(&updated)
	return nil
}

// SetEftposFee toggles the card transaction fee on the sale. The fee amount
// is the backend's to compute.
func (s *Service) SetEftposFee(ctx context.Context, enabled bool) error {
	sale, err := s.editableSale()
	if err != nil {
		return err
	}
	var updated domain.Sale
	if err := s.client.Put(ctx, fmt.Sprintf("/sales/%d/eftpos_fee", sale.ID), map[string]any{"enabled": enabled}, &updated); err != nil {
		return s.repair(ctx, "Toggling card fee", err)
	}
	s.applySale(&updated)
	return nil
}

// SaveCustomerNotes schedules a debounced write of the sale's customer notes.
func (s *Service) SaveCustomerNotes(notes string) error {
	return s.debouncedSaleField("customer_notes", notes, "notes")
}

// SavePurchaseOrder schedules a debounced write of the purchase order number.
func (s *Service) SavePurchaseOrder(po string) error {
	return s.debouncedSaleField("purchase_order_number", po, "po")
}

func (s *Service) debouncedSaleField(field, value, keyPrefix string) error {
	sale, err := s.editableSale()
	if err != nil {
		return err
	}
	saleID := sale.ID
	key := fmt.Sprintf("%s:%d", keyPrefix, saleID)
	s.sched.Schedule(key, s.cfg.NoteDebounce, func() {
		ctx := context.Background()
		// The operator may have moved on; only the sale the edit belonged to
		// is written.
		if s.store.CurrentSaleID() != saleID {
			return
		}
		var updated domain.Sale
		if err := s.client.Put(ctx, fmt.Sprintf("/sales/%d", saleID), map[string]any{field: value}, &updated); err != nil {
			_ = s.repair(ctx, "Saving "+field, err)
			return
		}
		s.applySale(&updated)
	})
	return nil
}

// AttachCustomer links a customer to the current sale, or just selects them
// for the next sale when none is active.
func (s *Service) AttachCustomer(ctx context.Context, c *domain.Customer) error {
	s.store.SetCurrentCustomer(c)
	sale := s.store.CurrentSale()
	if sale == nil {
		if s.OnSaleChanged != nil {
			s.OnSaleChanged()
		}
		return nil
	}
	var body map[string]any
	if c == nil {
		body = map[string]any{"customer_id": nil}
	} else {
		body = map[string]any{"customer_id": c.ID}
	}
	var updated domain.Sale
	if err := s.client.Put(ctx, fmt.Sprintf("/sales/%d", sale.ID), body, &updated); err != nil {
		return s.repair(ctx, "Setting customer", err)
	}
	s.applySale(&updated)
	return nil
}

// DetachCustomer removes the customer from the current sale and the session.
func (s *Service) DetachCustomer(ctx context.Context) error {
	if err := s.AttachCustomer(ctx, nil); err != nil {
		return err
	}
	s.store.SetCurrentCustomer(nil)
	return nil
}

// SetStatus requests a status change. Transitions the table forbids are
// refused locally.
func (s *Service) SetStatus(ctx context.Context, to domain.Status) error {
	sale := s.store.CurrentSale()
	if sale == nil {
		return ErrNoActiveSale
	}
	if !domain.CanTransition(sale.Status, to) {
		return fmt.Errorf("%w: %s to %s", ErrBadTransition, sale.Status, to)
	}
	var updated domain.Sale
	if err := s.client.Put(ctx, fmt.Sprintf("/sales/%d/status", sale.ID), map[string]any{"status": string(to)}, &updated); err != nil {
		return s.repair(ctx, "Changing status", err)
	}
	s.applySale(&updated)
	s.log.Info().Int64("sale_id", sale.ID).Str("status", string(to)).Msg("status changed")
	return nil
}

// Park sets the sale aside: the backend already holds every edit, so parking
// only clears the local cart and refreshes the parked list.
func (s *Service) Park() error {
	sale := s.store.CurrentSale()
	if sale == nil {
		return ErrNoActiveSale
	}
	s.cancelPending(sale.ID)
	s.store.ClearSale()
	if s.OnSaleChanged != nil {
		s.OnSaleChanged()
	}
	if s.OnParkedStale != nil {
		s.OnParkedStale()
	}
	s.notifier.Info(fmt.Sprintf("Sale %d parked", sale.ID))
	return nil
}

// Void cancels the sale. The cart clears immediately so the operator can move
// on; the backend void follows, and a failure there is reported but does not
// resurrect the cleared cart.
func (s *Service) Void(ctx context.Context) error {
	sale := s.store.CurrentSale()
	if sale == nil {
		return ErrNoActiveSale
	}
	s.cancelPending(sale.ID)
	s.store.ClearSale()
	if s.OnSaleChanged != nil {
		s.OnSaleChanged()
	}

	if sale.Status != domain.StatusVoid {
		var updated domain.Sale
		if err := s.client.Put(ctx, fmt.Sprintf("/sales/%d/status", sale.ID), map[string]any{"status": string(domain.StatusVoid)}, &updated); err != nil {
			s.notifier.Error(fmt.Sprintf("Sale %d could not be voided on the server", sale.ID))
			if s.OnParkedStale != nil {
				s.OnParkedStale()
			}
			return err
		}
	}
	if s.OnParkedStale != nil {
		s.OnParkedStale()
	}
	s.notifier.Success(fmt.Sprintf("Sale %d voided", sale.ID))
	return nil
}

// ClearAfter schedules the cart to reset once a finished sale has been on
// screen long enough for the operator to see the result. The clear is keyed
// by sale id; loading another sale or voiding cancels it implicitly because
// the id no longer matches.
func (s *Service) ClearAfter(saleID int64, delay time.Duration) {
	s.sched.Schedule(clearKey(saleID), delay, func() {
		if s.store.CurrentSaleID() != saleID {
			return
		}
		s.store.ClearSale()
		if s.OnSaleChanged != nil {
			s.OnSaleChanged()
		}
	})
}

// cancelPending drops scheduled work tied to a sale: debounced note writes
// and a pending clear.
func (s *Service) cancelPending(saleID int64) {
	s.sched.Cancel(fmt.Sprintf("notes:%d", saleID))
	s.sched.Cancel(fmt.Sprintf("po:%d", saleID))
	s.sched.Cancel(clearKey(saleID))
}

func clearKey(saleID int64) string {
	return fmt.Sprintf("clear:%d", saleID)
}
