package main

import (
	"context"

	"github.com/Sternrassler/compass-catalog-client/pkg/pagination"
	"github.com/Sternrassler/compass-catalog-client/pkg/query"
)

// Simulated viewport used to drive the loader from a terminal.
const (
	viewportHeight = 800.0
	rowHeight      = 40.0
)

// scrolledToBottom returns the metrics of a viewport resting at the end of
// rows rendered rows.
func scrolledToBottom(rows int) (viewport, content, offset float64) {
	content = float64(rows) * rowHeight
	offset = content - viewportHeight
	if offset < 0 {
		offset = 0
	}
	return viewportHeight, content, offset
}

// drain loads pages through ctrl until the collection is exhausted, a fetch
// fails, a page adds no items or maxPages pages have been requested.
// maxPages <= 0 loads everything. Empty filters start from the configured defaults.
func drain[T any](ctx context.Context, ctrl *pagination.Controller[T], filters query.FilterSet, maxPages int) (pagination.Session[T], error) {
	stop := context.AfterFunc(ctx, func() { ctrl.Close() })
	defer stop()

	if len(filters) > 0 {
		ctrl.OnFilterChange(filters)
	} else {
		ctrl.OnInit()
	}
	ctrl.Wait()

	for pages := 1; maxPages <= 0 || pages < maxPages; pages++ {
		if ctx.Err() != nil {
			return ctrl.Snapshot(), ctx.Err()
		}
		if ctrl.State() != pagination.Idle {
			break
		}

		loaded := len(ctrl.Items())
		ctrl.OnScrollMetrics(scrolledToBottom(loaded))
		ctrl.Wait()

		// A short page is not the end of the collection, but asking again for
		// the same offset would return the same short page.
		if ctrl.State() == pagination.Idle && len(ctrl.Items()) == loaded {
			logger.Warn().
				Int("loaded", loaded).
				Int("total", ctrl.Total()).
				Msg("Page added no items, stopping")
			break
		}
	}

	session := ctrl.Snapshot()
	if ctx.Err() != nil {
		return session, ctx.Err()
	}
	if session.State == pagination.Error {
		return session, session.Err
	}
	return session, nil
}
