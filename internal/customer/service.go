// Package customer manages the customer list: search, create, update,
// delete. Attaching a customer to a sale belongs to the cart, which owns all
// sale mutations.
package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"posterm/internal/api"
	"posterm/internal/domain"
	"posterm/internal/logger"
)

// ErrNameRequired is returned when a customer is saved without a name.
var ErrNameRequired = errors.New("customer name is required")

// Service is the customer service.
type Service struct {
	client *api.Client
	log    zerolog.Logger
}

// New creates a Service.
func New(client *api.Client) *Service {
	return &Service{client: client, log: logger.WithComponent("customer")}
}

// Search lists customers matching the query; an empty query lists everyone.
func (s *Service) Search(ctx context.Context, query string) ([]domain.Customer, error) {
	var customers []domain.Customer
	if err := s.client.Get(ctx, "/customers/", api.Query{"q": strings.TrimSpace(query)}, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

// Get fetches one customer.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	var c domain.Customer
	if err := s.client.Get(ctx, fmt.Sprintf("/customers/%d", id), nil, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Input is the editable customer form.
type Input struct {
	Name        string
	Phone       string
	Email       string
	Address     string
	CompanyName string
}

func (in Input) body() (map[string]string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	return map[string]string{
		"name":         name,
		"phone":        strings.TrimSpace(in.Phone),
		"email":        strings.TrimSpace(in.Email),
		"address":      strings.TrimSpace(in.Address),
		"company_name": strings.TrimSpace(in.CompanyName),
	}, nil
}

// Create adds a customer.
func (s *Service) Create(ctx context.Context, in Input) (*domain.Customer, error) {
	body, err := in.body()
	if err != nil {
		return nil, err
	}
	var created domain.Customer
	if err := s.client.Post(ctx, "/customers/", body, &created); err != nil {
		return nil, err
	}
	s.log.Info().Int64("customer_id", created.ID).Msg("customer created")
	return &created, nil
}

// Update saves changes to a customer.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*domain.Customer, error) {
	body, err := in.body()
	if err != nil {
		return nil, err
	}
	var updated domain.Customer
	if err := s.client.Put(ctx, fmt.Sprintf("/customers/%d", id), body, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a customer. The backend refuses when the customer has sales;
// that surfaces as a StatusError for the caller to report.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.client.Delete(ctx, fmt.Sprintf("/customers/%d", id), nil)
	if err != nil && !errors.Is(err, api.ErrNoContent) {
		return err
	}
	s.log.Info().Int64("customer_id", id).Msg("customer deleted")
	return nil
}
