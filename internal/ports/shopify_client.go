package ports

import (
	"context"
	"encoding/json"
	"net/url"

	"shopify-reorder/internal/domain"
)

// ShopifyClient defines the Shopify calls this service makes
type ShopifyClient interface {
	// Authentication
	AuthorizeURL(shop string, scopes []string, redirectURI string, state string) (string, error)
	VerifyCallback(u *url.URL) error
	ExchangeToken(ctx context.Context, shop string, code string) (*AccessToken, error)

	// Order API
	ListOrders(ctx context.Context, creds domain.Credentials, limit int) ([]domain.Order, error)
	CreateOrder(ctx context.Context, creds domain.Credentials, lineItems []domain.ReorderLineItem) (json.RawMessage, error)
}

// AccessToken is the token endpoint's answer.
type AccessToken struct {
	Token  string
	Scopes []string
}
