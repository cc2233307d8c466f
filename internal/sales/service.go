// Package sales provides the read side of sales: the parked (Open) list the
// left panel shows, and historical search by id, customer, or status.
package sales

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"posterm/internal/api"
	"posterm/internal/domain"
	"posterm/internal/logger"
)

// Service is the sales lookup service.
type Service struct {
	client *api.Client
	log    zerolog.Logger
}

// New creates a Service.
func New(client *api.Client) *Service {
	return &Service{client: client, log: logger.WithComponent("sales")}
}

// Parked lists the Open sales waiting to be resumed.
func (s *Service) Parked(ctx context.Context) ([]domain.Sale, error) {
	var parked []domain.Sale
	if err := s.client.Get(ctx, "/sales/status/"+string(domain.StatusOpen), nil, &parked); err != nil {
		return nil, err
	}
	return parked, nil
}

// Filter narrows a sales search. Zero-valued fields are not sent.
type Filter struct {
	SaleID        int64
	CustomerQuery string
	Status        domain.Status
}

// Search lists sales matching the filter, newest first per the backend's
// default ordering.
func (s *Service) Search(ctx context.Context, f Filter) ([]domain.Sale, error) {
	query := api.Query{
		"customer_query": strings.TrimSpace(f.CustomerQuery),
		"status":         string(f.Status),
	}
	if f.SaleID > 0 {
		query["sale_id"] = strconv.FormatInt(f.SaleID, 10)
	}

	var results []domain.Sale
	if err := s.client.Get(ctx, "/sales/", query, &results); err != nil {
		return nil, err
	}
	s.log.Debug().Int("results", len(results)).Msg("sales search")
	return results, nil
}
