// Package pagination provides incremental loading of filtered, paginated
// catalog collections.
//
// The catalog API returns one page per request together with the total number
// of items matching the current filters. Views show the first page, then
// append further pages as the user scrolls towards the end of the list. This
// package implements that loop:
//
//   - Machine is a pure transition function over an explicit Session value.
//     It decides when to fetch, merges pages and detects exhaustion.
//   - Controller drives a Machine against a Fetcher, running one fetch at a
//     time and feeding completions back as events.
//
// Example usage:
//
//	fetcher := client.NewFetcher[catalog.Solution](apiClient, catalog.SolutionsEndpoint)
//	ctrl, err := pagination.NewController(fetcher, catalog.SolutionCatalogConfig(), logger)
//	if err != nil {
//		return err
//	}
//	defer ctrl.Close()
//
//	ctrl.OnInit()
//	ctrl.OnScrollMetrics(viewportHeight, contentHeight, scrollOffset)
//	ctrl.OnFilterChange(query.FilterSet{"category": "Databases", "sort": "-created_at"})
//
// Every fetch is stamped with the generation (filter epoch) that issued it. A
// filter change starts a new generation; responses from older generations are
// dropped when they arrive, so a late page never lands in a freshly reset list.
//
// At most one fetch of the current generation is in flight. Scroll events
// received while loading are ignored. Fetch failures move the session to the
// Error state without discarding loaded items; the next scroll-near-end or
// filter change retries.
package pagination
