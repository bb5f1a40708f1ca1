package application

import (
	"context"
	"encoding/json"
	"testing"

	"shopify-reorder/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = domain.Credentials{Shop: "demo.myshopify.com", AccessToken: "tok"}

func TestGetOrders(t *testing.T) {
	t.Run("asks for the recent page", func(t *testing.T) {
		client := &fakeShopifyClient{orders: []domain.Order{{ID: "2"}, {ID: "1"}}}
		svc := NewShopifyService(client, zerolog.Nop())

		orders, err := svc.GetOrders(context.Background(), testCreds)
		require.NoError(t, err)
		assert.Len(t, orders, 2)
		assert.Equal(t, OrdersLimit, client.listLimit)
		assert.Equal(t, testCreds, client.listCreds)
	})

	t.Run("missing credentials", func(t *testing.T) {
		svc := NewShopifyService(&fakeShopifyClient{}, zerolog.Nop())
		_, err := svc.GetOrders(context.Background(), domain.Credentials{Shop: "demo.myshopify.com"})
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})

	t.Run("upstream failure", func(t *testing.T) {
		client := &fakeShopifyClient{ordersErr: domain.NewUpstreamError("Failed to fetch orders", "status 500", nil)}
		svc := NewShopifyService(client, zerolog.Nop())
		_, err := svc.GetOrders(context.Background(), testCreds)
		assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
	})
}

func TestReorder(t *testing.T) {
	items := []domain.ReorderLineItem{{VariantID: "7001", Quantity: 1}}

	t.Run("returns upstream payload", func(t *testing.T) {
		client := &fakeShopifyClient{created: json.RawMessage(`{"order":{"id":1}}`)}
		svc := NewShopifyService(client, zerolog.Nop())

		out, err := svc.Reorder(context.Background(), testCreds, items)
		require.NoError(t, err)
		assert.JSONEq(t, `{"order":{"id":1}}`, string(out))
		assert.Equal(t, items, client.createArgs)
	})

	t.Run("empty line items", func(t *testing.T) {
		client := &fakeShopifyClient{}
		svc := NewShopifyService(client, zerolog.Nop())
		_, err := svc.Reorder(context.Background(), testCreds, nil)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		assert.Nil(t, client.createArgs)
	})

	t.Run("bad quantity", func(t *testing.T) {
		svc := NewShopifyService(&fakeShopifyClient{}, zerolog.Nop())
		_, err := svc.Reorder(context.Background(), testCreds, []domain.ReorderLineItem{{VariantID: "1", Quantity: 0}})
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})
}
