package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"shopify-reorder/internal/domain"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

const recentOrdersQuery = `
query RecentOrders($first: Int!, $lineItems: Int!) {
  orders(first: $first, sortKey: CREATED_AT, reverse: true) {
    edges {
      node {
        id
        name
        createdAt
        displayFinancialStatus
        totalPriceSet {
          shopMoney {
            amount
            currencyCode
          }
        }
        lineItems(first: $lineItems) {
          edges {
            node {
              id
              title
              quantity
              originalUnitPriceSet {
                shopMoney {
                  amount
                }
              }
              variant {
                id
              }
            }
          }
        }
      }
    }
  }
}
`

// operationName returns the single named operation in a query document.
func operationName(query string) (string, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: "shopify", Input: query})
	if err != nil {
		return "", fmt.Errorf("failed to parse query: %w", err)
	}
	if len(doc.Operations) != 1 {
		return "", fmt.Errorf("expected one operation, got %d", len(doc.Operations))
	}
	op := doc.Operations[0]
	if op.Operation != ast.Query || op.Name == "" {
		return "", fmt.Errorf("expected a named query operation")
	}
	return op.Name, nil
}

type graphQLOperation struct {
	name  string
	query string
}

func mustOperation(query string) graphQLOperation {
	name, err := operationName(query)
	if err != nil {
		panic(err)
	}
	return graphQLOperation{name: name, query: query}
}

var recentOrders = mustOperation(recentOrdersQuery)

type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse[T any] struct {
	Data   *T             `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// postGraphQL runs a query against the Admin GraphQL endpoint and decodes data
// into T. Transport, status, decode and GraphQL errors all come back as
// upstream errors.
func postGraphQL[T any](ctx context.Context, c *client, creds domain.Credentials, metric, failure string, op graphQLOperation, variables map[string]any) (*T, error) {
	endpoint := fmt.Sprintf("%s/admin/api/%s/graphql.json", c.baseURL(creds.Shop), c.apiVersion)
	req := graphQLRequest{
		Query:         op.query,
		OperationName: op.name,
		Variables:     variables,
	}
	status, body, err := c.do(ctx, metric, http.MethodPost, endpoint, creds.AccessToken, req)
	if err != nil {
		return nil, domain.NewUpstreamError(failure, "", err)
	}
	if status < 200 || status >= 300 {
		return nil, domain.NewUpstreamError(failure, fmt.Sprintf("status %d: %s", status, body), nil)
	}

	var resp graphQLResponse[T]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domain.NewUpstreamError(failure, "invalid response format", err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, domain.NewUpstreamError(failure, strings.Join(msgs, "; "), nil)
	}
	if resp.Data == nil {
		return nil, domain.NewUpstreamError(failure, "response has no data", nil)
	}
	return resp.Data, nil
}
