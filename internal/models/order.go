package models

import "encoding/json"

// Order status lifecycle. Orders only ever move between these states; there
// is no delete operation for orders.
const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusServed    = "served"
	OrderStatusCancelled = "cancelled"
)

// OrderStatuses lists the valid order statuses.
func OrderStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusPreparing,
		OrderStatusReady,
		OrderStatusServed,
		OrderStatusCancelled,
	}
}

// IsValidOrderStatus reports whether s is a known order status.
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady,
		OrderStatusServed, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem is a single line of an order.
type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

// Order represents a table order. Total is in minor currency units.
type Order struct {
	ID     string      `json:"id"`
	Items  []OrderItem `json:"items"`
	Total  int64       `json:"total"`
	Table  string      `json:"table"`
	Status string      `json:"status"`
}

// ToPayload converts the order to the schemaless payload stored in a Record.
func (o *Order) ToPayload() map[string]any {
	items := make([]any, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]any{
			"name":     it.Name,
			"quantity": it.Quantity,
			"price":    it.Price,
		})
	}
	return map[string]any{
		"items":  items,
		"total":  o.Total,
		"table":  o.Table,
		"status": o.Status,
	}
}

// OrderFromPayload decodes a merged record payload into an Order.
func OrderFromPayload(payload map[string]any) (*Order, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var o Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, err
	}
	return &o, nil
}
