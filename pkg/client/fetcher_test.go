package client

import (
	"context"
	"testing"

	"github.com/Sternrassler/compass-catalog-client/internal/testutil"
	"github.com/Sternrassler/compass-catalog-client/pkg/catalog"
	"github.com/Sternrassler/compass-catalog-client/pkg/query"
)

func TestSolutionsFetcher(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetSolutions(testutil.Solutions(15))
	client := newTestClient(t, mock, nil)

	fetcher := SolutionsFetcher(client)
	page, err := fetcher.Fetch(context.Background(), query.Build(nil, catalog.SortNameDesc, 9, 6))
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}

	if page.Total != 15 {
		t.Errorf("Total = %d, want 15", page.Total)
	}
	if len(page.Items) != 6 {
		t.Fatalf("len(Items) = %d, want 6", len(page.Items))
	}
	// descending by name: 015..007 then 006..001
	if page.Items[0].Name != "Solution 006" {
		t.Errorf("first item = %q, want Solution 006", page.Items[0].Name)
	}
}

func TestCategoriesFetcher_PastEnd(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetCategories(testutil.Categories(4))
	client := newTestClient(t, mock, nil)

	page, err := CategoriesFetcher(client).Fetch(context.Background(), query.Build(nil, "name", 20, 20))
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Errorf("Items = %v, want empty non-nil slice", page.Items)
	}
	if page.Total != 4 {
		t.Errorf("Total = %d, want 4", page.Total)
	}
}

func TestFetcher_BadItems(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.Enqueue(catalog.CategoriesEndpoint, testutil.MockResponse{
		StatusCode: 200,
		Body:       `{"success":true,"data":{"not":"a list"},"total":1}`,
	})
	client := newTestClient(t, mock, nil)

	_, err := CategoriesFetcher(client).Fetch(context.Background(), query.Build(nil, "name", 0, 20))
	if ClassOf(err) != ErrorClassMalformed {
		t.Errorf("ClassOf() = %q, want malformed (err: %v)", ClassOf(err), err)
	}
}
