package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/compass-catalog-client/pkg/catalog"
	"github.com/Sternrassler/compass-catalog-client/pkg/pagination"
	"github.com/Sternrassler/compass-catalog-client/pkg/query"
)

// pageFetcher loads pages of one collection endpoint.
type pageFetcher[T any] struct {
	client   *Client
	endpoint string
}

// NewFetcher returns a pagination.Fetcher that loads endpoint through c and
// decodes its items as T.
func NewFetcher[T any](c *Client, endpoint string) pagination.Fetcher[T] {
	return &pageFetcher[T]{client: c, endpoint: endpoint}
}

// Fetch implements pagination.Fetcher.
func (f *pageFetcher[T]) Fetch(ctx context.Context, req query.Request) (pagination.Page[T], error) {
	env, err := f.client.FetchPage(ctx, f.endpoint, req)
	if err != nil {
		return pagination.Page[T]{}, err
	}

	var items []T
	if err := json.Unmarshal(env.Data, &items); err != nil {
		return pagination.Page[T]{}, f.client.malformed(f.endpoint, fmt.Sprintf("decode %T items", items), err)
	}
	if items == nil {
		items = []T{}
	}

	return pagination.Page[T]{Items: items, Total: *env.Total}, nil
}

// SolutionsFetcher loads the solution catalog.
func SolutionsFetcher(c *Client) pagination.Fetcher[catalog.Solution] {
	return NewFetcher[catalog.Solution](c, catalog.SolutionsEndpoint)
}

// CategoriesFetcher loads the category list.
func CategoriesFetcher(c *Client) pagination.Fetcher[catalog.Category] {
	return NewFetcher[catalog.Category](c, catalog.CategoriesEndpoint)
}
