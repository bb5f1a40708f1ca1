package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopify-reorder/internal/domain"
	"shopify-reorder/internal/infrastructure/metrics"
	"shopify-reorder/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

const (
	// DefaultAPIVersion is the Admin API version every call is pinned to.
	DefaultAPIVersion = "2023-10"

	// maxResponseBytes caps how much of an upstream body is read.
	maxResponseBytes = 10 << 20
)

// Options tunes a client. Zero values select the defaults.
type Options struct {
	APIVersion string
	HTTPClient *http.Client
	// BaseURL maps a shop domain to the scheme and host calls are sent to.
	// Defaults to https://{shop}.
	BaseURL func(shop string) string
	Logger  zerolog.Logger
}

type client struct {
	apiKey     string
	apiSecret  string
	app        goshopify.App
	apiVersion string
	httpClient *http.Client
	baseURL    func(shop string) string
	logger     zerolog.Logger
}

var _ ports.ShopifyClient = (*client)(nil)

// NewClientWithOptions creates a client with explicit transport options
func NewClientWithOptions(apiKey, apiSecret string, opts Options) ports.ShopifyClient {
	if opts.APIVersion == "" {
		opts.APIVersion = DefaultAPIVersion
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.BaseURL == nil {
		opts.BaseURL = func(shop string) string { return "https://" + shop }
	}
	return &client{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		app:        goshopify.App{ApiKey: apiKey, ApiSecret: apiSecret},
		apiVersion: opts.APIVersion,
		httpClient: opts.HTTPClient,
		baseURL:    opts.BaseURL,
		logger:     opts.Logger,
	}
}

// Authentication methods

func (c *client) AuthorizeURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	u, err := url.Parse(fmt.Sprintf("https://%s/admin/oauth/authorize", shop))
	if err != nil {
		return "", fmt.Errorf("failed to build authorize url: %w", err)
	}
	q := u.Query()
	q.Set("client_id", c.apiKey)
	q.Set("scope", strings.Join(scopes, ","))
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	u.RawQuery = q.Encode()

	c.logger.Debug().
		Str("shop", shop).
		Strs("scopes", scopes).
		Str("redirect_uri", redirectURI).
		Msg("Generated OAuth authorization URL")

	return u.String(), nil
}

// VerifyCallback checks the hmac Shopify signs callback query strings with.
func (c *client) VerifyCallback(u *url.URL) error {
	if u.Query().Get("hmac") == "" {
		return fmt.Errorf("missing hmac parameter")
	}
	ok, err := c.app.VerifyAuthorizationURL(u)
	if err != nil {
		return fmt.Errorf("failed to verify hmac: %w", err)
	}
	if !ok {
		return fmt.Errorf("hmac mismatch")
	}
	return nil
}

func (c *client) ExchangeToken(ctx context.Context, shop string, code string) (*ports.AccessToken, error) {
	payload := map[string]string{
		"client_id":     c.apiKey,
		"client_secret": c.apiSecret,
		"code":          code,
	}
	status, body, err := c.do(ctx, "exchange_token", http.MethodPost, c.baseURL(shop)+"/admin/oauth/access_token", "", payload)
	if err != nil {
		return nil, domain.NewUpstreamError("Authentication failed", "", err)
	}
	if status < 200 || status >= 300 {
		return nil, domain.NewUpstreamError("Authentication failed", fmt.Sprintf("status %d: %s", status, body), nil)
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return nil, domain.NewUpstreamError("Authentication failed", "", fmt.Errorf("failed to decode token response: %w", err))
	}
	if tokenResponse.AccessToken == "" {
		return nil, domain.NewUpstreamError("Authentication failed", "token response has no access_token", nil)
	}

	return &ports.AccessToken{
		Token:  tokenResponse.AccessToken,
		Scopes: splitScopes(tokenResponse.Scope),
	}, nil
}

// Order API

func (c *client) ListOrders(ctx context.Context, creds domain.Credentials, limit int) ([]domain.Order, error) {
	variables := map[string]any{
		"first":     limit,
		"lineItems": limit,
	}
	resp, err := postGraphQL[ordersData](ctx, c, creds, "list_orders", "Failed to fetch orders", recentOrders, variables)
	if err != nil {
		return nil, err
	}
	orders, err := resp.toDomain()
	if err != nil {
		return nil, domain.NewUpstreamError("Failed to fetch orders", "", err)
	}
	c.logger.Debug().Str("shop", creds.Shop).Int("count", len(orders)).Msg("Fetched orders")
	return orders, nil
}

func (c *client) CreateOrder(ctx context.Context, creds domain.Credentials, lineItems []domain.ReorderLineItem) (json.RawMessage, error) {
	payload := map[string]any{
		"order": map[string]any{
			"line_items":       lineItems,
			"financial_status": "pending",
		},
	}
	endpoint := fmt.Sprintf("%s/admin/api/%s/orders.json", c.baseURL(creds.Shop), c.apiVersion)
	status, body, err := c.do(ctx, "create_order", http.MethodPost, endpoint, creds.AccessToken, payload)
	if err != nil {
		return nil, domain.NewUpstreamError("Failed to create reorder", "", err)
	}
	if status < 200 || status >= 300 {
		return nil, domain.NewUpstreamError("Failed to create reorder", string(body), nil)
	}
	if !json.Valid(body) {
		return nil, domain.NewUpstreamError("Failed to create reorder", "invalid response format", nil)
	}
	return json.RawMessage(body), nil
}

// do sends one JSON request and returns the status and body. A non-nil error
// means no usable response was received.
func (c *client) do(ctx context.Context, operation, method, endpoint, accessToken string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		req.Header.Set("X-Shopify-Access-Token", accessToken)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveShopifyCall(operation, 0, start)
		c.logger.Error().Err(err).Str("operation", operation).Msg("Shopify request failed")
		return 0, nil, fmt.Errorf("failed to call shopify: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	metrics.ObserveShopifyCall(operation, resp.StatusCode, start)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().
		Str("operation", operation).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Shopify response")

	return resp.StatusCode, body, nil
}

func splitScopes(scope string) []string {
	var scopes []string
	for _, s := range strings.Split(scope, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
