package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"shopify-reorder/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey    = "api-key"
	testSecret = "api-secret"
	testShop   = "demo.myshopify.com"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClientWithOptions(testKey, testSecret, Options{
		HTTPClient: srv.Client(),
		BaseURL:    func(string) string { return srv.URL },
		Logger:     zerolog.Nop(),
	}).(*client)
}

func signQuery(q url.Values, secret string) string {
	q.Del("hmac")
	msg, _ := url.QueryUnescape(q.Encode())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestAuthorizeURL(t *testing.T) {
	c := NewClientWithOptions(testKey, testSecret, Options{Logger: zerolog.Nop()})

	raw, err := c.AuthorizeURL(testShop, []string{"read_orders", "write_orders"}, "https://app.example.com/api/auth/callback", "abc123")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, testShop, u.Host)
	assert.Equal(t, "/admin/oauth/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, testKey, q.Get("client_id"))
	assert.Equal(t, "read_orders,write_orders", q.Get("scope"))
	assert.Equal(t, "https://app.example.com/api/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "abc123", q.Get("state"))
	assert.Contains(t, raw, "redirect_uri=https%3A%2F%2Fapp.example.com%2Fapi%2Fauth%2Fcallback")
}

func TestVerifyCallback(t *testing.T) {
	c := NewClientWithOptions(testKey, testSecret, Options{Logger: zerolog.Nop()})

	q := url.Values{}
	q.Set("shop", testShop)
	q.Set("code", "the-code")
	q.Set("state", "abc")
	q.Set("timestamp", "1700000000")

	t.Run("valid", func(t *testing.T) {
		signed := cloneValues(q)
		signed.Set("hmac", signQuery(cloneValues(q), testSecret))
		u := &url.URL{Path: "/api/auth/callback", RawQuery: signed.Encode()}
		assert.NoError(t, c.VerifyCallback(u))
	})

	t.Run("wrong secret", func(t *testing.T) {
		signed := cloneValues(q)
		signed.Set("hmac", signQuery(cloneValues(q), "other-secret"))
		u := &url.URL{RawQuery: signed.Encode()}
		assert.Error(t, c.VerifyCallback(u))
	})

	t.Run("tampered", func(t *testing.T) {
		signed := cloneValues(q)
		signed.Set("hmac", signQuery(cloneValues(q), testSecret))
		signed.Set("shop", "evil.myshopify.com")
		u := &url.URL{RawQuery: signed.Encode()}
		assert.Error(t, c.VerifyCallback(u))
	})

	t.Run("missing", func(t *testing.T) {
		u := &url.URL{RawQuery: q.Encode()}
		assert.Error(t, c.VerifyCallback(u))
	})
}

func cloneValues(q url.Values) url.Values {
	out := url.Values{}
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func TestExchangeToken(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/admin/oauth/access_token", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]string{
				"client_id":     testKey,
				"client_secret": testSecret,
				"code":          "the-code",
			}, body)

			w.Write([]byte(`{"access_token":"shpat_123","scope":"read_orders,write_orders"}`))
		})

		tok, err := c.ExchangeToken(context.Background(), testShop, "the-code")
		require.NoError(t, err)
		assert.Equal(t, "shpat_123", tok.Token)
		assert.Equal(t, []string{"read_orders", "write_orders"}, tok.Scopes)
	})

	t.Run("upstream rejects code", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_request"}`))
		})

		_, err := c.ExchangeToken(context.Background(), testShop, "bad")
		require.Error(t, err)
		var derr *domain.Error
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, domain.KindUpstream, derr.Kind)
		assert.Contains(t, derr.Details, "400")
		assert.Contains(t, derr.Details, "invalid_request")
	})

	t.Run("empty token", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"scope":"read_orders"}`))
		})

		_, err := c.ExchangeToken(context.Background(), testShop, "code")
		assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
	})

	t.Run("not json", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>oops</html>`))
		})

		_, err := c.ExchangeToken(context.Background(), testShop, "code")
		assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
	})
}

const twoOrders = `{
  "data": {
    "orders": {
      "edges": [
        {"node": {
          "id": "gid://shopify/Order/5001",
          "name": "#1002",
          "createdAt": "2024-03-02T10:00:00Z",
          "displayFinancialStatus": "PAID",
          "totalPriceSet": {"shopMoney": {"amount": "59.90", "currencyCode": "EUR"}},
          "lineItems": {"edges": [
            {"node": {
              "id": "gid://shopify/LineItem/9001",
              "title": "Coffee beans",
              "quantity": 2,
              "originalUnitPriceSet": {"shopMoney": {"amount": "29.95"}},
              "variant": {"id": "gid://shopify/ProductVariant/7001"}
            }}
          ]}
        }},
        {"node": {
          "id": "gid://shopify/Order/5000",
          "name": "#1001",
          "createdAt": "2024-03-01T09:00:00Z",
          "displayFinancialStatus": "PENDING",
          "totalPriceSet": {"shopMoney": {"amount": "10.0", "currencyCode": "EUR"}},
          "lineItems": {"edges": [
            {"node": {
              "id": "gid://shopify/LineItem/9000",
              "title": "Deleted product",
              "quantity": 1,
              "originalUnitPriceSet": {"shopMoney": {"amount": "10.0"}},
              "variant": null
            }}
          ]}
        }}
      ]
    }
  }
}`

func TestListOrders(t *testing.T) {
	creds := domain.Credentials{Shop: testShop, AccessToken: "shpat_123"}

	t.Run("transforms nodes", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/admin/api/2023-10/graphql.json", r.URL.Path)
			assert.Equal(t, "shpat_123", r.Header.Get("X-Shopify-Access-Token"))

			var req graphQLRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "RecentOrders", req.OperationName)
			assert.Contains(t, req.Query, "sortKey: CREATED_AT, reverse: true")
			assert.EqualValues(t, 50, req.Variables["first"])

			w.Write([]byte(twoOrders))
		})

		orders, err := c.ListOrders(context.Background(), creds, 50)
		require.NoError(t, err)
		require.Len(t, orders, 2)

		first := orders[0]
		assert.Equal(t, "5001", first.ID)
		assert.Equal(t, 1002, first.OrderNumber)
		assert.Equal(t, "#1002", first.Name)
		assert.Equal(t, "59.90", first.TotalPrice)
		assert.Equal(t, "paid", first.Status)
		assert.False(t, first.Draft)
		require.Len(t, first.LineItems, 1)
		assert.Equal(t, domain.LineItem{ID: "7001", Title: "Coffee beans", Quantity: 2, Price: "29.95"}, first.LineItems[0])

		second := orders[1]
		assert.Equal(t, "5000", second.ID)
		assert.True(t, second.Draft)
		assert.Equal(t, "9000", second.LineItems[0].ID, "falls back to the line item id without a variant")
		assert.True(t, first.CreatedAt.After(second.CreatedAt))
	})

	t.Run("upstream error status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"errors":"[API] Invalid API key or access token"}`))
		})

		_, err := c.ListOrders(context.Background(), creds, 50)
		var derr *domain.Error
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, domain.KindUpstream, derr.Kind)
		assert.Contains(t, derr.Details, "401")
	})

	t.Run("graphql errors", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"errors":[{"message":"Throttled"}]}`))
		})

		_, err := c.ListOrders(context.Background(), creds, 50)
		var derr *domain.Error
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "Throttled", derr.Details)
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":`))
		})

		_, err := c.ListOrders(context.Background(), creds, 50)
		assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
	})

	t.Run("unexpected shape", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":{"shop":{}}}`))
		})

		_, err := c.ListOrders(context.Background(), creds, 50)
		assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
	})
}

func TestCreateOrder(t *testing.T) {
	creds := domain.Credentials{Shop: testShop, AccessToken: "shpat_123"}
	items := []domain.ReorderLineItem{{VariantID: "7001", Quantity: 2}}

	t.Run("posts pending order", func(t *testing.T) {
		upstream := `{"order":{"id":6001,"name":"#1003","financial_status":"pending"}}`
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/admin/api/2023-10/orders.json", r.URL.Path)
			assert.Equal(t, "shpat_123", r.Header.Get("X-Shopify-Access-Token"))

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.JSONEq(t, `{"order":{"line_items":[{"variant_id":"7001","quantity":2}],"financial_status":"pending"}}`, string(body))

			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(upstream))
		})

		out, err := c.CreateOrder(context.Background(), creds, items)
		require.NoError(t, err)
		assert.JSONEq(t, upstream, string(out))
	})

	t.Run("unprocessable", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"errors":{"line_items":["is invalid"]}}`))
		})

		_, err := c.CreateOrder(context.Background(), creds, items)
		var derr *domain.Error
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, domain.KindUpstream, derr.Kind)
		assert.JSONEq(t, `{"errors":{"line_items":["is invalid"]}}`, derr.Details)
	})
}

func TestRecentOrdersQueryParses(t *testing.T) {
	name, err := operationName(recentOrdersQuery)
	require.NoError(t, err)
	assert.Equal(t, "RecentOrders", name)

	_, err = operationName("query { orders ")
	assert.Error(t, err)
}
