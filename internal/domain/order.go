package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Order is the normalized order shape returned to the browser.
type Order struct {
	ID          string     `json:"id"`
	OrderNumber int        `json:"order_number"`
	Name        string     `json:"name"`
	TotalPrice  string     `json:"total_price"`
	CreatedAt   time.Time  `json:"created_at"`
	Status      string     `json:"status"`
	Draft       bool       `json:"draft"`
	LineItems   []LineItem `json:"line_items"`
}

// LineItem is one product line of an Order. ID is the variant id when the
// variant still exists, otherwise the line item's own id.
type LineItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// VariantID is a Shopify numeric id that browsers send either as a JSON
// string or a JSON number. It is always forwarded as a string.
type VariantID string

func (v *VariantID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = VariantID(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("variant_id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseUint(n.String(), 10, 64); err != nil {
		return fmt.Errorf("variant_id must be a positive integer: %w", err)
	}
	*v = VariantID(n.String())
	return nil
}

// ReorderLineItem is one entry of a reorder request.
type ReorderLineItem struct {
	VariantID VariantID `json:"variant_id"`
	Quantity  int       `json:"quantity"`
}

// ReorderLineItemsFrom maps an order's lines to reorder lines, carrying each
// line id over as the variant id.
func ReorderLineItemsFrom(order Order) []ReorderLineItem {
	items := make([]ReorderLineItem, 0, len(order.LineItems))
	for _, li := range order.LineItems {
		items = append(items, ReorderLineItem{VariantID: VariantID(li.ID), Quantity: li.Quantity})
	}
	return items
}

// ValidateReorderLineItems checks that there is at least one line and every
// line names a variant with a positive quantity.
func ValidateReorderLineItems(items []ReorderLineItem) error {
	if len(items) == 0 {
		return NewValidationError("Missing required parameters")
	}
	for i, item := range items {
		if item.VariantID == "" {
			return NewValidationError(fmt.Sprintf("lineItems[%d].variant_id is required", i))
		}
		if item.Quantity <= 0 {
			return NewValidationError(fmt.Sprintf("lineItems[%d].quantity must be a positive integer", i))
		}
	}
	return nil
}
