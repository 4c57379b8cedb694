package models

import "sort"

// ProductCount is one row of the kitchen-prep view: a product name with its
// quantity summed across every item of every order.
type ProductCount struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// AggregateProducts sums item quantities by product name and returns the
// result sorted by quantity descending (name ascending on ties, so the
// ordering is stable across backends).
func AggregateProducts(items []OrderItem) []ProductCount {
	totals := make(map[string]int)
	for _, item := range items {
		totals[item.Name] += item.Quantity
	}

	products := make([]ProductCount, 0, len(totals))
	for name, quantity := range totals {
		products = append(products, ProductCount{Name: name, Quantity: quantity})
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Quantity != products[j].Quantity {
			return products[i].Quantity > products[j].Quantity
		}
		return products[i].Name < products[j].Name
	})
	return products
}
