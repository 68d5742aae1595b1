// Package search provides full-text search over financial items via
// Algolia, with a plain store-scan fallback when Algolia is not configured.
package search

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/finboard/backend/internal/model"

	"github.com/algolia/algoliasearch-client-go/v4/algolia/search"
)

// Config holds Algolia configuration.
type Config struct {
	AppID     string
	APIKey    string
	IndexName string
}

// AlgoliaClient wraps the Algolia search API client.
type AlgoliaClient struct {
	client    *search.APIClient
	indexName string
}

// NewAlgoliaClient creates a new Algolia search client.
func NewAlgoliaClient(cfg Config) (*AlgoliaClient, error) {
	if cfg.AppID == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("algolia AppID and APIKey are required")
	}
	if cfg.IndexName == "" {
		cfg.IndexName = "finboard_items"
	}

	client, err := search.NewClient(cfg.AppID, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("creating algolia client: %w", err)
	}

	return &AlgoliaClient{
		client:    client,
		indexName: cfg.IndexName,
	}, nil
}

// IndexItem saves or refreshes one financial item in the index. Indexing is
// best-effort: callers log failures and continue, a stale index never blocks
// a write to the store.
func (c *AlgoliaClient) IndexItem(ctx context.Context, item *model.FinancialItem) error {
	body := map[string]any{
		"objectID":    item.ID,
		"UserId":      item.UserID,
		"Name":        item.Name,
		"Institution": item.Institution,
		"ProductType": item.ProductType,
		"Category":    string(item.Category),
		"Value":       item.Value,
		"Status":      string(item.Status),
	}

	_, err := c.client.SaveObject(c.client.NewApiSaveObjectRequest(c.indexName, body))
	if err != nil {
		return fmt.Errorf("algolia save object: %w", err)
	}
	return nil
}

// RemoveItem deletes one item from the index.
func (c *AlgoliaClient) RemoveItem(ctx context.Context, itemID string) error {
	_, err := c.client.DeleteObject(c.client.NewApiDeleteObjectRequest(c.indexName, itemID))
	if err != nil {
		return fmt.Errorf("algolia delete object: %w", err)
	}
	return nil
}

// Search performs a full-text search scoped to one user. The user filter is
// always enforced for security.
func (c *AlgoliaClient) Search(ctx context.Context, userID, query string) ([]*model.FinancialItem, error) {
	searchParams := search.SearchParamsObjectAsSearchParams(
		search.NewSearchParamsObject().
			SetQuery(query).
			SetHitsPerPage(50).
			SetFilters(fmt.Sprintf("UserId:%q", userID)),
	)

	resp, err := c.client.SearchSingleIndex(c.client.NewApiSearchSingleIndexRequest(c.indexName).WithSearchParams(searchParams))
	if err != nil {
		return nil, fmt.Errorf("algolia search: %w", err)
	}

	results := make([]*model.FinancialItem, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if item := hitToItem(hit.AdditionalProperties); item != nil {
			results = append(results, item)
		}
	}
	log.Printf("[Algolia] Query %q returned %d hits", query, len(results))
	return results, nil
}

// hitToItem converts an Algolia hit back into a financial item.
func hitToItem(props map[string]any) *model.FinancialItem {
	item := &model.FinancialItem{}

	if v, ok := props["objectID"].(string); ok {
		item.ID = v
	}
	if item.ID == "" {
		return nil
	}
	if v, ok := props["UserId"].(string); ok {
		item.UserID = v
	}
	if v, ok := props["Name"].(string); ok {
		item.Name = v
	}
	if v, ok := props["Institution"].(string); ok {
		item.Institution = v
	}
	if v, ok := props["ProductType"].(string); ok {
		item.ProductType = v
	}
	if v, ok := props["Category"].(string); ok {
		item.Category = model.Category(v)
	}
	if v, ok := props["Status"].(string); ok {
		item.Status = model.ItemStatus(v)
	}
	if v, ok := props["Value"].(float64); ok {
		item.Value = v
	}

	return item
}

// ScanItems is the fallback when no Algolia client is configured: a
// substring match over name, institution and product type, the behavior
// the dashboard search box always had.
func ScanItems(items []*model.FinancialItem, query string) []*model.FinancialItem {
	if query == "" {
		return nil
	}

	var results []*model.FinancialItem
	for _, item := range items {
		if strings.Contains(item.Name, query) ||
			strings.Contains(item.Institution, query) ||
			strings.Contains(item.ProductType, query) {
			results = append(results, item)
		}
	}
	return results
}
