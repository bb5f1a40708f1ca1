package shopify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"shopify-reorder/internal/domain"

	"github.com/shopspring/decimal"
)

type moneyBag struct {
	ShopMoney struct {
		Amount       string `json:"amount"`
		CurrencyCode string `json:"currencyCode"`
	} `json:"shopMoney"`
}

type lineItemNode struct {
	ID                   string   `json:"id"`
	Title                string   `json:"title"`
	Quantity             int      `json:"quantity"`
	OriginalUnitPriceSet moneyBag `json:"originalUnitPriceSet"`
	Variant              *struct {
		ID string `json:"id"`
	} `json:"variant"`
}

type orderNode struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	CreatedAt              string   `json:"createdAt"`
	DisplayFinancialStatus string   `json:"displayFinancialStatus"`
	TotalPriceSet          moneyBag `json:"totalPriceSet"`
	LineItems              *struct {
		Edges []struct {
			Node lineItemNode `json:"node"`
		} `json:"edges"`
	} `json:"lineItems"`
}

type ordersData struct {
	Orders *struct {
		Edges []struct {
			Node orderNode `json:"node"`
		} `json:"edges"`
	} `json:"orders"`
}

func (d *ordersData) toDomain() ([]domain.Order, error) {
	if d.Orders == nil {
		return nil, fmt.Errorf("response has no orders connection")
	}
	orders := make([]domain.Order, 0, len(d.Orders.Edges))
	for i, edge := range d.Orders.Edges {
		order, err := edge.Node.toDomain()
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (n orderNode) toDomain() (domain.Order, error) {
	id, err := numericID(n.ID)
	if err != nil {
		return domain.Order{}, err
	}
	createdAt, err := time.Parse(time.RFC3339, n.CreatedAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("failed to parse createdAt: %w", err)
	}
	total, err := decimalString(n.TotalPriceSet.ShopMoney.Amount)
	if err != nil {
		return domain.Order{}, fmt.Errorf("total price: %w", err)
	}

	status := strings.ToLower(n.DisplayFinancialStatus)
	order := domain.Order{
		ID:          id,
		OrderNumber: orderNumber(n.Name),
		Name:        n.Name,
		TotalPrice:  total,
		CreatedAt:   createdAt,
		Status:      status,
		Draft:       status == "pending",
		LineItems:   []domain.LineItem{},
	}
	if n.LineItems == nil {
		return order, nil
	}
	for j, edge := range n.LineItems.Edges {
		li, err := edge.Node.toDomain()
		if err != nil {
			return domain.Order{}, fmt.Errorf("line item %d: %w", j, err)
		}
		order.LineItems = append(order.LineItems, li)
	}
	return order, nil
}

func (n lineItemNode) toDomain() (domain.LineItem, error) {
	gid := n.ID
	if n.Variant != nil && n.Variant.ID != "" {
		gid = n.Variant.ID
	}
	id, err := numericID(gid)
	if err != nil {
		return domain.LineItem{}, err
	}
	price, err := decimalString(n.OriginalUnitPriceSet.ShopMoney.Amount)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("price: %w", err)
	}
	return domain.LineItem{
		ID:       id,
		Title:    n.Title,
		Quantity: n.Quantity,
		Price:    price,
	}, nil
}

// numericID extracts 123 from gid://shopify/Order/123 (query suffix allowed).
func numericID(gid string) (string, error) {
	s := gid
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	if _, err := strconv.ParseUint(s, 10, 64); err != nil {
		return "", fmt.Errorf("invalid global id %q", gid)
	}
	return s, nil
}

// decimalString checks amount is a decimal and returns it unchanged, so no
// precision is lost on the way to the browser.
func decimalString(amount string) (string, error) {
	if _, err := decimal.NewFromString(amount); err != nil {
		return "", fmt.Errorf("invalid decimal %q", amount)
	}
	return amount, nil
}

// orderNumber reads the trailing digits of an order name such as "#1001".
// Shops with a custom suffix or no digits get 0.
func orderNumber(name string) int {
	end := len(name)
	start := end
	for start > 0 && name[start-1] >= '0' && name[start-1] <= '9' {
		start--
	}
	n, err := strconv.Atoi(name[start:end])
	if err != nil {
		return 0
	}
	return n
}
