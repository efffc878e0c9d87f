// Package models provides data model definitions for the offline data core.
package models

import "fmt"

// Collection identifies one of the locally replicated entity collections.
type Collection string

const (
	CollectionDishes Collection = "dishes"
	CollectionOrders Collection = "orders"
)

// Collections lists every known collection in a stable order.
func Collections() []Collection {
	return []Collection{CollectionDishes, CollectionOrders}
}

// Validate returns an error if the collection is unknown.
func (c Collection) Validate() error {
	switch c {
	case CollectionDishes, CollectionOrders:
		return nil
	}
	return fmt.Errorf("unknown collection %q", string(c))
}

// Action identifies the kind of a queued mutation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Validate returns an error if the action is unknown.
func (a Action) Validate() error {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return nil
	}
	return fmt.Errorf("unknown action %q", string(a))
}
