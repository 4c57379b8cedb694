package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dgarridom/preorders-api/config"
	"github.com/dgarridom/preorders-api/models"
)

// ErrUnparseableResponse marks model output that could not be decoded as the
// expected JSON. Callers degrade to the ungrouped product list instead of
// failing the request.
var ErrUnparseableResponse = errors.New("unparseable model response")

// GroupedProduct is a cluster of similar product names with summed quantities.
type GroupedProduct struct {
	GroupName     string                `json:"groupName"`
	Variants      []string              `json:"variants"`
	TotalQuantity int                   `json:"totalQuantity"`
	Items         []models.ProductCount `json:"items"`
}

// SearchResult is the outcome of a free-text search over the product list.
type SearchResult struct {
	SearchQuery   string                `json:"searchQuery"`
	SearchResults []models.ProductCount `json:"searchResults"`
	TotalQuantity int                   `json:"totalQuantity"`
	MatchCount    int                   `json:"matchCount"`
}

// GroupingInterface defines the external product-grouping collaborator
type GroupingInterface interface {
	GroupProducts(ctx context.Context, products []models.ProductCount) ([]GroupedProduct, error)
	SearchProducts(ctx context.Context, query string, products []models.ProductCount) (*SearchResult, error)
}

// OpenAIGroupingService clusters product names through the OpenAI
// chat-completions endpoint.
type OpenAIGroupingService struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

var groupingServiceInstance GroupingInterface

// InitGroupingService initializes the grouping service from the loaded
// configuration. A missing API key is not an error here; it surfaces when the
// first grouping call is attempted.
func InitGroupingService() GroupingInterface {
	cfg := config.GetConfig()

	groupingServiceInstance = &OpenAIGroupingService{
		apiKey:     cfg.OpenAIAPIKey,
		baseURL:    strings.TrimSuffix(cfg.OpenAIBaseURL, "/"),
		model:      cfg.OpenAIModel,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	return groupingServiceInstance
}

// GetGroupingService returns the initialized grouping service instance
func GetGroupingService() GroupingInterface {
	return groupingServiceInstance
}

// SetGroupingService sets the grouping service instance (primarily for testing)
func SetGroupingService(service GroupingInterface) {
	groupingServiceInstance = service
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Temperature float64 `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete sends one chat-completion request and returns the raw message content.
func (s *OpenAIGroupingService) complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY is not configured")
	}

	reqBody := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	}
	reqBody.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion request returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty completion: %w", ErrUnparseableResponse)
	}

	return parsed.Choices[0].Message.Content, nil
}

// GroupProducts asks the model to cluster similar product names and matches
// the returned variants back against the aggregated product list.
func (s *OpenAIGroupingService) GroupProducts(ctx context.Context, products []models.ProductCount) ([]GroupedProduct, error) {
	if len(products) == 0 {
		return []GroupedProduct{}, nil
	}

	var list strings.Builder
	for _, p := range products {
		fmt.Fprintf(&list, "- %q (qty: %d)\n", p.Name, p.Quantity)
	}

	prompt := fmt.Sprintf(`Analyze this list of product names and group similar items together.
Group items that are:
- Plural/singular versions of the same thing (burger/burgers)
- Common misspellings or variations
- The same product with different descriptions

Products:
%s
Return a JSON object with groups. Each group should have:
- groupName: A normalized name for the group (use the most common/proper form)
- variants: Array of all product names that belong to this group

Format:
{
  "groups": [
    { "groupName": "Burger", "variants": ["burger", "burgers", "Burger"] },
    { "groupName": "French Fries", "variants": ["fries", "french fries", "Fries"] }
  ]
}

IMPORTANT: Every product must be included in exactly one group. Single items get their own group.`, list.String())

	content, err := s.complete(ctx,
		"You are a product categorization assistant for a restaurant. Group similar menu items together. Return only valid JSON.",
		prompt, 0.2)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Groups []struct {
			GroupName string   `json:"groupName"`
			Variants  []string `json:"variants"`
		} `json:"groups"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableResponse, err)
	}

	groups := make([]GroupedProduct, 0, len(parsed.Groups))
	for _, group := range parsed.Groups {
		variants := make(map[string]bool, len(group.Variants))
		for _, v := range group.Variants {
			variants[strings.ToLower(v)] = true
		}

		var matched []models.ProductCount
		total := 0
		for _, p := range products {
			if variants[strings.ToLower(p.Name)] {
				matched = append(matched, p)
				total += p.Quantity
			}
		}
		if len(matched) == 0 {
			continue
		}

		groups = append(groups, GroupedProduct{
			GroupName:     group.GroupName,
			Variants:      group.Variants,
			TotalQuantity: total,
			Items:         matched,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].TotalQuantity > groups[j].TotalQuantity
	})
	return groups, nil
}

// SearchProducts asks the model which products match a free-text query and
// filters the product list down to those matches.
func (s *OpenAIGroupingService) SearchProducts(ctx context.Context, query string, products []models.ProductCount) (*SearchResult, error) {
	if len(products) == 0 {
		return &SearchResult{SearchQuery: query, SearchResults: []models.ProductCount{}}, nil
	}

	var list strings.Builder
	for _, p := range products {
		fmt.Fprintf(&list, "- %s (qty: %d)\n", p.Name, p.Quantity)
	}

	prompt := fmt.Sprintf(`Given this search term: %q

Find ALL products from this list that match or are similar to the search term. Include:
- Exact matches
- Plural/singular variations (burger/burgers, fry/fries)
- Common misspellings
- Similar items (e.g., "cola" matches "Coca-Cola", "soda", "coke")
- Related food items

Products list:
%s
Return a JSON array of matching product names. Only include products from the list above.
Format: { "matches": ["product1", "product2"] }`, query, list.String())

	content, err := s.complete(ctx,
		"You are a product matching assistant. Return only valid JSON.",
		prompt, 0.3)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Matches []string `json:"matches"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableResponse, err)
	}

	matches := make(map[string]bool, len(parsed.Matches))
	for _, name := range parsed.Matches {
		matches[name] = true
	}

	result := &SearchResult{SearchQuery: query, SearchResults: []models.ProductCount{}}
	for _, p := range products {
		if matches[p.Name] {
			result.SearchResults = append(result.SearchResults, p)
			result.TotalQuantity += p.Quantity
		}
	}
	result.MatchCount = len(result.SearchResults)
	return result, nil
}
