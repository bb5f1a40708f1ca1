package application

import (
	"context"
	"encoding/json"

	"shopify-reorder/internal/domain"
	"shopify-reorder/internal/ports"

	"github.com/rs/zerolog"
)

// OrdersLimit is how many recent orders are fetched per listing.
const OrdersLimit = 50

// ShopifyService implements the order use cases.
// It depends on ports (interfaces) not concrete implementations
type ShopifyService struct {
	client ports.ShopifyClient
	logger zerolog.Logger
}

// NewShopifyService creates a new Shopify application service
func NewShopifyService(client ports.ShopifyClient, logger zerolog.Logger) *ShopifyService {
	return &ShopifyService{
		client: client,
		logger: logger,
	}
}

// GetOrders lists the shop's most recent orders, newest first.
func (s *ShopifyService) GetOrders(ctx context.Context, creds domain.Credentials) ([]domain.Order, error) {
	if err := validateCredentials(creds); err != nil {
		return nil, err
	}

	orders, err := s.client.ListOrders(ctx, creds, OrdersLimit)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", creds.Shop).Msg("Failed to get orders")
		return nil, err
	}
	return orders, nil
}

// Reorder creates a new pending order with the given lines and returns
// Shopify's answer unchanged.
func (s *ShopifyService) Reorder(ctx context.Context, creds domain.Credentials, lineItems []domain.ReorderLineItem) (json.RawMessage, error) {
	if err := validateCredentials(creds); err != nil {
		return nil, err
	}
	if err := domain.ValidateReorderLineItems(lineItems); err != nil {
		return nil, err
	}

	created, err := s.client.CreateOrder(ctx, creds, lineItems)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", creds.Shop).Int("line_items", len(lineItems)).Msg("Failed to create reorder")
		return nil, err
	}

	s.logger.Info().Str("shop", creds.Shop).Int("line_items", len(lineItems)).Msg("Reorder created")
	return created, nil
}

func validateCredentials(creds domain.Credentials) error {
	if creds.Shop == "" || creds.AccessToken == "" {
		return domain.NewValidationError("Missing required parameters")
	}
	return nil
}
