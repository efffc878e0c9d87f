package models

import "encoding/json"

// Dish represents a menu item. Price is in minor currency units.
type Dish struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	IsAvailable bool   `json:"isAvailable"`
}

// ToPayload converts the dish to the schemaless payload stored in a Record.
// The id lives on the Record, not in the payload.
func (d *Dish) ToPayload() map[string]any {
	return map[string]any{
		"name":        d.Name,
		"price":       d.Price,
		"category":    d.Category,
		"isAvailable": d.IsAvailable,
	}
}

// DishFromPayload decodes a merged record payload into a Dish.
func DishFromPayload(payload map[string]any) (*Dish, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var d Dish
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
