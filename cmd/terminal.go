package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"posterm/internal/api"
	"posterm/internal/cache"
	"posterm/internal/cart"
	"posterm/internal/combo"
	"posterm/internal/config"
	"posterm/internal/credstore"
	"posterm/internal/customer"
	"posterm/internal/domain"
	"posterm/internal/item"
	"posterm/internal/logger"
	"posterm/internal/notify"
	"posterm/internal/payment"
	"posterm/internal/printer"
	"posterm/internal/quickadd"
	"posterm/internal/sales"
	"posterm/internal/sched"
	"posterm/internal/state"
	"posterm/internal/ui"
)

var terminalCmd = &cobra.Command{
	Use:   "terminal",
	Short: "Run an interactive register session",
	Long: `Start the interactive point-of-sale session: a live cart, the parked
sales list, item and customer search, the quick-add dashboard, payments
and printing, all against the configured WebPOS backend.

The session keeps no pricing logic of its own. Every edit is sent to the
backend and the returned sale replaces the local view wholesale, so what
is on screen is always what the server believes.

Configuration comes from the environment (or a .env file):
  POS_API_BASE_URL - backend API root (default http://localhost:5000/api)
  CACHE_USE_REDIS  - share the item cache between terminals via Redis
  TERMINAL_CREDENTIALS_PATH - where EFTPOS pairing credentials live`,
	Example: `  # Run against the default local backend
  posterm terminal

  # Run against a shop server with a shared Redis item cache
  POS_API_BASE_URL=http://pos.local:5000/api CACHE_USE_REDIS=true posterm terminal`,
	Args: cobra.NoArgs,
	RunE: runTerminal,
}

func init() {
	rootCmd.AddCommand(terminalCmd)
}

// session wires the services to the interactive loop.
type session struct {
	cfg       *config.Config
	store     *state.Store
	panels    *ui.Panels
	hub       *notify.Hub
	scheduler *sched.Scheduler

	items     *item.Service
	combos    *combo.Service
	customers *customer.Service
	sales     *sales.Service
	cart      *cart.Service
	payments  *payment.Service
	printer   *printer.Service
	quickadd  *quickadd.Service

	out io.Writer
	log zerolog.Logger

	parked []domain.Sale
}

func runTerminal(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	client := api.New(api.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout})

	s := &session{
		cfg:       cfg,
		store:     state.New(),
		panels:    ui.NewPanels(),
		hub:       notify.NewHub(50),
		scheduler: sched.New(),
		out:       os.Stdout,
		log:       logger.WithComponent("terminal"),
	}
	defer s.scheduler.CancelAll()

	itemCache := cache.FromConfig(ctx, cfg.Cache)
	s.items = item.New(client, itemCache)
	s.combos = combo.New(client)
	s.customers = customer.New(client)
	s.sales = sales.New(client)
	s.cart = cart.New(client, s.combos, s.store, s.hub, s.scheduler, cart.Config{})
	creds := credstore.New(cfg.Terminal.CredentialsPath)
	s.payments = payment.New(client, s.cart, s.store, creds, s.hub, payment.Config{ClearCartDelay: cfg.Terminal.ClearCartDelay})
	s.printer = printer.New(cfg.API.BaseURL, s.hub)
	s.quickadd = quickadd.New(client, s.items, s.store, s.hub)

	s.cart.OnSaleChanged = s.renderCart
	s.cart.OnParkedStale = func() { s.refreshParked(ctx) }
	s.payments.OnParkedStale = func() { s.refreshParked(ctx) }
	s.payments.OnPaymentRecorded = func(sale *domain.Sale) {
		fmt.Fprintf(s.out, "Print a receipt? Use: print receipt\n")
	}
	s.quickadd.OnPageChanged = s.renderQuickAdd
	s.hub.OnNotify = func(n notify.Notification) {
		fmt.Fprintf(s.out, "** [%s] %s\n", n.Level, n.Message)
	}

	// Boot order matters for perceived speed: parked list and catalog first,
	// the dashboard a breath later.
	s.refreshParked(ctx)
	go s.items.Preload(ctx)
	s.scheduler.Schedule("quickadd:boot", cfg.Terminal.QuickAddLoadDelay, func() {
		s.quickadd.Reload(context.Background())
	})

	s.renderCart()
	fmt.Fprintln(s.out, `Type "help" for commands.`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := s.dispatch(ctx, line); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
	s.log.Info().Msg("session ended")
	return scanner.Err()
}

func (s *session) renderCart() {
	ui.RenderCart(s.out, s.store.CurrentSale())
}

func (s *session) renderQuickAdd() {
	if !s.panels.QuickAddExpanded() {
		return
	}
	ui.RenderQuickAdd(s.out, s.store.QuickAddTiles(), s.store.QuickAddPage(), s.store.QuickAddEditMode())
}

func (s *session) refreshParked(ctx context.Context) {
	parked, err := s.sales.Parked(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("parked list refresh failed")
		return
	}
	s.parked = parked
	if !s.panels.ParkedCollapsed() {
		ui.RenderParked(s.out, s.parked)
	}
}

func (s *session) dispatch(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	command, args := fields[0], fields[1:]

	switch command {
	case "help":
		s.printHelp()
		return nil
	case "refresh":
		s.cart.Reload(ctx)
		s.refreshParked(ctx)
		return nil

	case "new":
		_, err := s.cart.NewSale(ctx)
		return err
	case "load":
		id, err := argID(args, 0, "sale id")
		if err != nil {
			return err
		}
		return s.cart.Load(ctx, id)
	case "parked":
		ui.RenderParked(s.out, s.parked)
		return nil
	case "park":
		return s.cart.Park()
	case "void":
		return s.handleVoid(ctx, args)
	case "status":
		if len(args) < 1 {
			return errors.New("usage: status <Open|Quote|Invoice|Paid|Void>")
		}
		status, ok := domain.ParseStatus(args[0])
		if !ok {
			return fmt.Errorf("unknown status %q", args[0])
		}
		return s.cart.SetStatus(ctx, status)

	case "search":
		return s.handleSearch(ctx, strings.Join(args, " "))
	case "add":
		id, err := argID(args, 0, "item id")
		if err != nil {
			return err
		}
		return s.handleAdd(ctx, id)
	case "variants":
		id, err := argID(args, 0, "item id")
		if err != nil {
			return err
		}
		return s.listVariants(ctx, id)

	case "qty":
		lineID, err := argID(args, 0, "line id")
		if err != nil {
			return err
		}
		if len(args) < 2 {
			return errors.New("usage: qty <lineID> <quantity>")
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("quantity %q is not a number", args[1])
		}
		return s.cart.UpdateLineQuantity(ctx, lineID, qty)
	case "discount":
		return s.handleLineDiscount(ctx, args)
	case "nodiscount":
		lineID, err := argID(args, 0, "line id")
		if err != nil {
			return err
		}
		return s.cart.SetLineDiscount(ctx, lineID, "", nil)
	case "linenote":
		lineID, err := argID(args, 0, "line id")
		if err != nil {
			return err
		}
		return s.cart.SetLineNotes(ctx, lineID, strings.Join(args[1:], " "))
	case "rm":
		lineID, err := argID(args, 0, "line id")
		if err != nil {
			return err
		}
		return s.cart.RemoveLine(ctx, lineID)

	case "overall":
		return s.handleOverallDiscount(ctx, args)
	case "fee":
		if len(args) < 1 || (args[0] != "on" && args[0] != "off") {
			return errors.New("usage: fee <on|off>")
		}
		return s.cart.SetEftposFee(ctx, args[0] == "on")
	case "notes":
		return s.cart.SaveCustomerNotes(strings.Join(args, " "))
	case "po":
		return s.cart.SavePurchaseOrder(strings.Join(args, " "))

	case "customers":
		return s.handleCustomers(ctx, strings.Join(args, " "))
	case "customer":
		return s.handleCustomer(ctx, args)
	case "newcustomer":
		return s.handleNewCustomer(ctx, args)

	case "pay":
		return s.handlePay(ctx, args)
	case "invoice":
		return s.payments.InvoiceAndKeepOpen(ctx)
	case "pair", "terminal-info":
		return fmt.Errorf("use the top-level command: posterm %s", command)

	case "print":
		return s.handlePrint(args)
	case "email":
		sale := s.store.CurrentSale()
		if sale == nil {
			return cart.ErrNoActiveSale
		}
		recipient := ""
		if len(args) > 0 {
			recipient = args[0]
		}
		return s.printer.Email(ctx, sale.ID, recipient)
	case "label":
		id, err := argID(args, 0, "item id")
		if err != nil {
			return err
		}
		s.printer.OpenLabel(id)
		return nil

	case "qa":
		id, err := argID(args, 0, "tile id")
		if err != nil {
			return err
		}
		return s.handleTileTap(ctx, id)
	case "page":
		page, err := argID(args, 0, "page number")
		if err != nil {
			return err
		}
		_, err = s.quickadd.LoadPage(ctx, int(page))
		return err
	case "home":
		_, err := s.quickadd.LoadPage(ctx, 1)
		return err
	case "edit":
		if s.quickadd.ToggleEditMode() {
			fmt.Fprintln(s.out, "Quick-add edit mode ON")
		} else {
			fmt.Fprintln(s.out, "Quick-add edit mode OFF")
		}
		return nil
	case "tile":
		return s.handleTile(ctx, args)
	case "move":
		return s.handleMove(ctx, args)
	}

	return fmt.Errorf("unknown command %q, try \"help\"", command)
}

func (s *session) printHelp() {
	fmt.Fprint(s.out, `Sale:      new | load <saleID> | parked | park | void | status <status> | refresh
Items:     search <text> | add <itemID> | variants <itemID>
Lines:     qty <lineID> <n> | discount <lineID> <pct|abs> <value> | nodiscount <lineID>
           linenote <lineID> <text> | rm <lineID>
Totals:    overall <none|percentage|fixed|target_total> [value] | fee <on|off>
           notes <text> | po <text>
Customers: customers [text] | customer <id> | customer none | newcustomer <name>
Payment:   pay <amount> <cash|cheque|eftpos|tyro> [details] | invoice
Printing:  print [a4|receipt] | email [address] | label <itemID>
Quick add: qa <tileID> | page <n> | home | edit | move <tileID> [beforeTileID]
           tile item <itemID> [label] | tile link <page> [label]
           tile relabel <tileID> <label> | tile rm <tileID>
Other:     help | quit
`)
}

func (s *session) handleSearch(ctx context.Context, query string) error {
	results, err := s.items.Search(ctx, query)
	if err != nil {
		return err
	}
	if query == "" {
		s.panels.CollapseItemResults()
		s.renderQuickAdd()
		return nil
	}
	s.panels.ExpandItemResults()
	ui.RenderItems(s.out, results)
	return nil
}

func (s *session) handleAdd(ctx context.Context, itemID int64) error {
	it, err := s.items.Get(ctx, itemID)
	if err != nil {
		return err
	}
	err = s.cart.AddItem(ctx, *it, cart.AddOptions{})
	var choice *cart.VariantChoiceError
	if errors.As(err, &choice) {
		fmt.Fprintf(s.out, "%q comes in variants, add one of:\n", choice.Parent.Title)
		return s.listVariants(ctx, choice.Parent.ID)
	}
	return err
}

func (s *session) listVariants(ctx context.Context, parentID int64) error {
	variants, err := s.items.Variants(ctx, parentID)
	if err != nil {
		return err
	}
	ui.RenderItems(s.out, variants)
	return nil
}

func (s *session) handleVoid(ctx context.Context, args []string) error {
	sale := s.store.CurrentSale()
	if sale == nil {
		return cart.ErrNoActiveSale
	}
	// Voiding a paid sale reverses money; make the operator say it twice.
	if sale.Status == domain.StatusPaid && (len(args) == 0 || args[0] != "yes") {
		fmt.Fprintf(s.out, "Sale %d is PAID. Repeat as \"void yes\" to confirm.\n", sale.ID)
		return nil
	}
	return s.cart.Void(ctx)
}

func (s *session) handleLineDiscount(ctx context.Context, args []string) error {
	lineID, err := argID(args, 0, "line id")
	if err != nil {
		return err
	}
	if len(args) < 3 {
		return errors.New("usage: discount <lineID> <pct|abs> <value>")
	}
	var discountType string
	switch args[1] {
	case "pct":
		discountType = domain.DiscountPercentage
	case "abs":
		discountType = domain.DiscountAbsolute
	default:
		return fmt.Errorf("discount type %q is not pct or abs", args[1])
	}
	value, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("value %q is not a number", args[2])
	}
	return s.cart.SetLineDiscount(ctx, lineID, discountType, &value)
}

func (s *session) handleOverallDiscount(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: overall <none|percentage|fixed|target_total> [value]")
	}
	value := 0.0
	if len(args) > 1 {
		parsed, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("value %q is not a number", args[1])
		}
		value = parsed
	}
	return s.cart.ApplyOverallDiscount(ctx, args[0], value)
}

func (s *session) handleCustomers(ctx context.Context, query string) error {
	s.panels.OpenCustomerPanel()
	results, err := s.customers.Search(ctx, query)
	if err != nil {
		s.panels.CloseCustomerPanel()
		return err
	}
	ui.RenderCustomers(s.out, results)
	return nil
}

func (s *session) handleCustomer(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: customer <id> | customer none")
	}
	defer s.panels.CloseCustomerPanel()
	if args[0] == "none" {
		return s.cart.DetachCustomer(ctx)
	}
	id, err := argID(args, 0, "customer id")
	if err != nil {
		return err
	}
	c, err := s.customers.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.cart.AttachCustomer(ctx, c)
}

func (s *session) handleNewCustomer(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: newcustomer <name>")
	}
	created, err := s.customers.Create(ctx, customer.Input{Name: strings.Join(args, " ")})
	if err != nil {
		return err
	}
	s.panels.CloseCustomerPanel()
	return s.cart.AttachCustomer(ctx, created)
}

func (s *session) handlePay(ctx context.Context, args []string) error {
	sale := s.store.CurrentSale()
	if sale == nil {
		return cart.ErrNoActiveSale
	}
	if len(args) < 2 {
		return errors.New("usage: pay <amount> <cash|cheque|eftpos|tyro> [details]")
	}
	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("amount %q is not a number", args[0])
	}
	var paymentType string
	switch strings.ToLower(args[1]) {
	case "cash":
		paymentType = payment.TypeCash
	case "cheque":
		paymentType = payment.TypeCheque
	case "eftpos":
		paymentType = payment.TypeEftpos
	case "tyro":
		paymentType = payment.TypeTyroEftpos
	default:
		return fmt.Errorf("unknown payment method %q", args[1])
	}
	_, err = s.payments.Record(ctx, sale.ID, amount, paymentType, strings.Join(args[2:], " "))
	return err
}

func (s *session) handlePrint(args []string) error {
	sale := s.store.CurrentSale()
	if sale == nil {
		return cart.ErrNoActiveSale
	}
	format := printer.FormatA4
	if len(args) > 0 && args[0] == "receipt" {
		format = printer.FormatReceipt
	}
	s.printer.OpenDocument(sale, format)
	return nil
}

// handleTileTap is the quick-add click: item tiles go straight into the
// cart from their denormalized snapshot, chooser tiles list variants, page
// links navigate.
func (s *session) handleTileTap(ctx context.Context, tileID int64) error {
	for _, t := range s.store.QuickAddTiles() {
		if t.ID != tileID || t.Synthetic {
			continue
		}
		switch t.Type {
		case domain.TilePageLink:
			_, err := s.quickadd.LoadPage(ctx, t.TargetPageNumber)
			return err
		case domain.TileVariantParent:
			if t.ItemID == nil {
				return fmt.Errorf("tile %d has no item", tileID)
			}
			fmt.Fprintf(s.out, "%q comes in variants, add one of:\n", t.Label)
			return s.listVariants(ctx, *t.ItemID)
		default:
			if t.ItemID == nil {
				return fmt.Errorf("tile %d has no item", tileID)
			}
			it := domain.Item{
				ID:       *t.ItemID,
				Title:    t.Label,
				SKU:      t.ItemSKU,
				Price:    t.ItemPrice,
				ParentID: t.ItemParentID,
			}
			return s.cart.AddItem(ctx, it, cart.AddOptions{})
		}
	}
	return fmt.Errorf("no tile %d on this page", tileID)
}

func (s *session) handleTile(ctx context.Context, args []string) error {
	if !s.store.QuickAddEditMode() {
		return errors.New("turn edit mode on first (\"edit\")")
	}
	if len(args) < 1 {
		return errors.New("usage: tile <item|link|rm> ...")
	}
	switch args[0] {
	case "item":
		itemID, err := argID(args, 1, "item id")
		if err != nil {
			return err
		}
		_, err = s.quickadd.SaveItemTile(ctx, 0, itemID, strings.Join(args[2:], " "), "")
		return err
	case "link":
		page, err := argID(args, 1, "page number")
		if err != nil {
			return err
		}
		_, err = s.quickadd.SavePageLink(ctx, 0, strings.Join(args[2:], " "), "", int(page))
		return err
	case "relabel":
		tileID, err := argID(args, 1, "tile id")
		if err != nil {
			return err
		}
		return s.relabelTile(ctx, tileID, strings.Join(args[2:], " "))
	case "rm":
		tileID, err := argID(args, 1, "tile id")
		if err != nil {
			return err
		}
		return s.quickadd.DeleteTile(ctx, tileID)
	}
	return fmt.Errorf("unknown tile action %q", args[0])
}

// relabelTile re-saves an existing tile with a new label, keeping its kind
// and target from the copy on screen.
func (s *session) relabelTile(ctx context.Context, tileID int64, label string) error {
	if label == "" {
		return errors.New("usage: tile relabel <tileID> <label>")
	}
	for _, t := range s.store.QuickAddTiles() {
		if t.ID != tileID || t.Synthetic {
			continue
		}
		var err error
		if t.Type == domain.TilePageLink {
			_, err = s.quickadd.SavePageLink(ctx, t.ID, label, t.Color, t.TargetPageNumber)
		} else {
			if t.ItemID == nil {
				return fmt.Errorf("tile %d has no item", tileID)
			}
			_, err = s.quickadd.SaveItemTile(ctx, t.ID, *t.ItemID, label, t.Color)
		}
		return err
	}
	return fmt.Errorf("no tile %d on this page", tileID)
}

func (s *session) handleMove(ctx context.Context, args []string) error {
	if !s.store.QuickAddEditMode() {
		return errors.New("turn edit mode on first (\"edit\")")
	}
	tileID, err := argID(args, 0, "tile id")
	if err != nil {
		return err
	}
	var targetID int64
	if len(args) > 1 {
		targetID, err = argID(args, 1, "target tile id")
		if err != nil {
			return err
		}
	}
	if err := s.quickadd.BeginDrag(tileID); err != nil {
		return err
	}
	return s.quickadd.Drop(ctx, targetID)
}

func argID(args []string, index int, what string) (int64, error) {
	if len(args) <= index {
		return 0, fmt.Errorf("missing %s", what)
	}
	id, err := strconv.ParseInt(args[index], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", what, args[index])
	}
	return id, nil
}
