// Package combo manages combination items: catalog entries that expand into
// several component lines when added to a sale (a gift basket, a bundle
// deal). The backend stores the component list; the cart asks for the
// expansion at add time.
package combo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"posterm/internal/api"
	"posterm/internal/domain"
	"posterm/internal/logger"
)

var (
	// ErrNoComponents is returned when a combination is saved or expanded
	// with an empty component list.
	ErrNoComponents = errors.New("combination has no components")

	// ErrBadQuantity is returned when a component quantity is not positive.
	ErrBadQuantity = errors.New("component quantity must be positive")
)

// Service is the combination-item service.
type Service struct {
	client *api.Client
	log    zerolog.Logger
}

// New creates a Service.
func New(client *api.Client) *Service {
	return &Service{client: client, log: logger.WithComponent("combo")}
}

// Get fetches the component expansion of a combination item.
func (s *Service) Get(ctx context.Context, baseItemID int64) (*domain.ComboDetails, error) {
	var details domain.ComboDetails
	if err := s.client.Get(ctx, fmt.Sprintf("/combination-items/%d", baseItemID), nil, &details); err != nil {
		return nil, err
	}
	if !details.Success || len(details.Components) == 0 {
		return nil, fmt.Errorf("combination %d: %w", baseItemID, ErrNoComponents)
	}
	return &details, nil
}

// Input is the editable combination form.
type Input struct {
	Title      string
	SKU        string
	Price      *float64
	IsActive   bool
	Components []domain.ComboComponent
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return errors.New("combination title is required")
	}
	if len(in.Components) == 0 {
		return ErrNoComponents
	}
	for _, c := range in.Components {
		if c.Quantity <= 0 {
			return fmt.Errorf("item %d: %w", c.ItemID, ErrBadQuantity)
		}
	}
	return nil
}

// fields encodes the form the backend's multipart combination route expects:
// plain fields plus the component list as a JSON-encoded field.
func (in Input) fields() ([]api.FormField, error) {
	components, err := json.Marshal(in.Components)
	if err != nil {
		return nil, fmt.Errorf("encode components: %w", err)
	}
	fields := []api.FormField{
		{Name: "title", Value: strings.TrimSpace(in.Title)},
		{Name: "sku", Value: strings.TrimSpace(in.SKU)},
		{Name: "is_active", Value: strconv.FormatBool(in.IsActive)},
		{Name: "components", Value: string(components)},
	}
	if in.Price != nil {
		fields = append(fields, api.FormField{Name: "price", Value: strconv.FormatFloat(*in.Price, 'f', 2, 64)})
	}
	return fields, nil
}

// Create adds a combination item.
func (s *Service) Create(ctx context.Context, in Input, photos []api.FormFile) (*domain.Item, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	fields, err := in.fields()
	if err != nil {
		return nil, err
	}
	var created domain.Item
	if err := s.client.PostForm(ctx, "POST", "/combination-items", fields, photos, &created); err != nil {
		return nil, err
	}
	s.log.Info().Int64("item_id", created.ID).Int("components", len(in.Components)).Msg("combination created")
	return &created, nil
}

// Update saves changes to a combination item.
func (s *Service) Update(ctx context.Context, baseItemID int64, in Input, photos []api.FormFile) (*domain.Item, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	fields, err := in.fields()
	if err != nil {
		return nil, err
	}
	var updated domain.Item
	if err := s.client.PostForm(ctx, "PUT", fmt.Sprintf("/combination-items/%d", baseItemID), fields, photos, &updated); err != nil {
		return nil, err
	}
	s.log.Info().Int64("item_id", baseItemID).Msg("combination updated")
	return &updated, nil
}
