package services

import (
	"context"
	"strings"

	"github.com/dgarridom/preorders-api/models"
)

// MockGroupingService is a deterministic grouping implementation for testing.
// It groups products by lowercased name and searches by substring, so tests
// never depend on the external model.
type MockGroupingService struct {
	GroupErr  error
	SearchErr error
}

// NewMockGroupingService creates a new mock grouping service
func NewMockGroupingService() *MockGroupingService {
	return &MockGroupingService{}
}

// SetAsMockForTesting sets this mock as the global grouping service instance
func (m *MockGroupingService) SetAsMockForTesting() {
	SetGroupingService(m)
}

// GroupProducts groups products whose names are equal ignoring case
func (m *MockGroupingService) GroupProducts(ctx context.Context, products []models.ProductCount) ([]GroupedProduct, error) {
	if m.GroupErr != nil {
		return nil, m.GroupErr
	}

	byKey := make(map[string]*GroupedProduct)
	var order []string
	for _, p := range products {
		key := strings.ToLower(p.Name)
		group, ok := byKey[key]
		if !ok {
			group = &GroupedProduct{GroupName: p.Name}
			byKey[key] = group
			order = append(order, key)
		}
		group.Variants = append(group.Variants, p.Name)
		group.TotalQuantity += p.Quantity
		group.Items = append(group.Items, p)
	}

	groups := make([]GroupedProduct, 0, len(order))
	for _, key := range order {
		groups = append(groups, *byKey[key])
	}
	return groups, nil
}

// SearchProducts matches products containing the query as a substring, ignoring case
func (m *MockGroupingService) SearchProducts(ctx context.Context, query string, products []models.ProductCount) (*SearchResult, error) {
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}

	result := &SearchResult{SearchQuery: query, SearchResults: []models.ProductCount{}}
	needle := strings.ToLower(query)
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			result.SearchResults = append(result.SearchResults, p)
			result.TotalQuantity += p.Quantity
		}
	}
	result.MatchCount = len(result.SearchResults)
	return result, nil
}
