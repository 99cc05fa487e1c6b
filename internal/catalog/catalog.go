// Package catalog resolves menu item prices and names. The menu service
// itself is an external collaborator; this package only reads from it.
// Prices are resolved at order-creation time and snapshotted onto the
// order, so a later menu change never alters a placed order.
package catalog

import (
	"context"

	"restaurant-tables/internal/domain"
)

// Item is one priced menu entry.
type Item struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Catalog looks up a menu item by id. Implementations return a
// validation-kind error for unknown ids.
type Catalog interface {
	Item(ctx context.Context, itemID string) (Item, error)
}

// Static is a fixed in-process catalog, used in tests and when no
// catalog service is configured.
type Static struct {
	items map[string]Item
}

func NewStatic(items ...Item) *Static {
	m := make(map[string]Item, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	return &Static{items: m}
}

func (s *Static) Item(_ context.Context, itemID string) (Item, error) {
	it, ok := s.items[itemID]
	if !ok {
		return Item{}, domain.Validationf("unknown menu item %q", itemID)
	}
	return it, nil
}

// DefaultMenu is the provisioning menu used when no catalog service is
// configured.
func DefaultMenu() []Item {
	return []Item{
		{ID: "margherita", Name: "Margherita", Price: 9.5},
		{ID: "carbonara", Name: "Carbonara", Price: 12},
		{ID: "sushi", Name: "Sushi", Price: 12},
		{ID: "caesar-salad", Name: "Caesar Salad", Price: 8},
		{ID: "tiramisu", Name: "Tiramisu", Price: 6.5},
		{ID: "espresso", Name: "Espresso", Price: 2.5},
		{ID: "house-red", Name: "House Red (glass)", Price: 5},
	}
}
