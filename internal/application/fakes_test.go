package application

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"shopify-reorder/internal/domain"
	"shopify-reorder/internal/ports"
)

type fakeShopifyClient struct {
	verifyErr   error
	token       *ports.AccessToken
	exchangeErr error
	exchanged   []string

	orders    []domain.Order
	ordersErr error
	listCreds domain.Credentials
	listLimit int

	created    json.RawMessage
	createErr  error
	createArgs []domain.ReorderLineItem
}

func (f *fakeShopifyClient) AuthorizeURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	q := url.Values{}
	q.Set("client_id", "key")
	q.Set("scope", strings.Join(scopes, ","))
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	return "https://" + shop + "/admin/oauth/authorize?" + q.Encode(), nil
}

func (f *fakeShopifyClient) VerifyCallback(*url.URL) error { return f.verifyErr }

func (f *fakeShopifyClient) ExchangeToken(_ context.Context, shop string, code string) (*ports.AccessToken, error) {
	f.exchanged = append(f.exchanged, shop+":"+code)
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.token, nil
}

func (f *fakeShopifyClient) ListOrders(_ context.Context, creds domain.Credentials, limit int) ([]domain.Order, error) {
	f.listCreds = creds
	f.listLimit = limit
	return f.orders, f.ordersErr
}

func (f *fakeShopifyClient) CreateOrder(_ context.Context, _ domain.Credentials, lineItems []domain.ReorderLineItem) (json.RawMessage, error) {
	f.createArgs = lineItems
	return f.created, f.createErr
}

// plainEncryption is a reversible stand-in for the AES service.
type plainEncryption struct{}

func (plainEncryption) Encrypt(s string) (string, error) { return "enc:" + s, nil }

func (plainEncryption) Decrypt(s string) (string, error) {
	if !strings.HasPrefix(s, "enc:") {
		return "", errors.New("not encrypted")
	}
	return strings.TrimPrefix(s, "enc:"), nil
}
