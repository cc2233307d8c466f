// Package printer hands sales and labels to the backend's print routes. The
// documents themselves are rendered server-side; this service builds the
// right URL for the sale's status and the chosen paper, opens it in the
// operator's browser, and drives the email-a-copy route.
package printer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/rs/zerolog"

	"posterm/internal/api"
	"posterm/internal/domain"
	"posterm/internal/logger"
	"posterm/internal/notify"
)

// Document formats the backend renders.
const (
	FormatA4      = "a4"
	FormatReceipt = "receipt"
)

// Service is the printing service.
type Service struct {
	root     string
	client   *api.Client
	notifier notify.Notifier
	log      zerolog.Logger

	// open launches a URL in the operator's browser. Swapped in tests.
	open func(url string) error
}

// New creates a Service. apiBaseURL is the same base the REST client uses;
// the print routes live at the site root beside the /api prefix.
func New(apiBaseURL string, notifier notify.Notifier) *Service {
	root := strings.TrimSuffix(strings.TrimRight(apiBaseURL, "/"), "/api")
	return &Service{
		root:     root,
		client:   api.New(api.Config{BaseURL: root}),
		notifier: notifier,
		log:      logger.WithComponent("printer"),
		open:     openInBrowser,
	}
}

// docType returns the document kind for a sale's status: quotes get quote
// paper, everything else an invoice.
func docType(status domain.Status) string {
	if status == domain.StatusQuote {
		return "quote"
	}
	return "invoice"
}

// DocumentURL builds the print route for a sale.
func (s *Service) DocumentURL(sale *domain.Sale, format string) string {
	if format != FormatReceipt {
		format = FormatA4
	}
	return fmt.Sprintf("%s/print/%s/%s/%d", s.root, docType(sale.Status), format, sale.ID)
}

// LabelURL builds the print route for an item's shelf label.
func (s *Service) LabelURL(itemID int64) string {
	return fmt.Sprintf("%s/print/label/%d", s.root, itemID)
}

// OpenDocument opens the sale's printable document in the browser. When no
// browser can be launched the URL is surfaced to the operator instead.
func (s *Service) OpenDocument(sale *domain.Sale, format string) {
	s.openURL(s.DocumentURL(sale, format))
}

// OpenLabel opens an item's label document in the browser.
func (s *Service) OpenLabel(itemID int64) {
	s.openURL(s.LabelURL(itemID))
}

func (s *Service) openURL(url string) {
	if err := s.open(url); err != nil {
		s.log.Warn().Err(err).Str("url", url).Msg("browser launch failed")
		s.notifier.Info("Open in a browser: " + url)
		return
	}
	s.log.Info().Str("url", url).Msg("document opened")
}

// Email asks the backend to email the sale's document. An empty recipient
// uses the address on the sale's customer.
func (s *Service) Email(ctx context.Context, saleID int64, recipient string) error {
	body := map[string]string{}
	if strings.TrimSpace(recipient) != "" {
		body["email"] = strings.TrimSpace(recipient)
	}
	err := s.client.Post(ctx, fmt.Sprintf("/print/email_document/%d", saleID), body, nil)
	if err != nil && !errors.Is(err, api.ErrNoContent) {
		s.notifier.Error("Could not email the document")
		return err
	}
	s.notifier.Success("Document emailed")
	return nil
}

func openInBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
