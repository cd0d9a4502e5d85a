package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/compass-catalog-client/pkg/query"
	"github.com/Sternrassler/compass-catalog-client/pkg/scroll"
	"github.com/rs/zerolog"
)

// Fetcher loads one page of a collection.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, req query.Request) (Page[T], error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc[T any] func(ctx context.Context, req query.Request) (Page[T], error)

// Fetch implements Fetcher.
func (f FetcherFunc[T]) Fetch(ctx context.Context, req query.Request) (Page[T], error) {
	return f(ctx, req)
}

// Controller drives a Machine for one view.
// Event methods return immediately; fetches run on their own goroutines and
// their completions are applied in arrival order under the controller lock.
type Controller[T any] struct {
	machine Machine[T]
	fetcher Fetcher[T]
	logger  zerolog.Logger

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu       sync.Mutex
	session  Session[T]
	cancel   context.CancelFunc // cancels the pending fetch
	onChange func(Session[T])
	closed   bool
}

// NewController creates a controller for fetcher using cfg.
func NewController[T any](fetcher Fetcher[T], cfg Config, logger zerolog.Logger) (*Controller[T], error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}

	machine, err := NewMachine[T](cfg)
	if err != nil {
		return nil, err
	}

	ctx, stop := context.WithCancel(context.Background())

	return &Controller[T]{
		machine: machine,
		fetcher: fetcher,
		logger:  logger,
		ctx:     ctx,
		stop:    stop,
		session: Session[T]{Items: []T{}},
	}, nil
}

// SetOnChange registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that caused the change and must not block.
func (c *Controller[T]) SetOnChange(fn func(Session[T])) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// OnInit loads the first page with the default filters.
func (c *Controller[T]) OnInit() {
	c.dispatch(Init{})
}

// OnFilterChange discards loaded items and loads the first page for filters.
func (c *Controller[T]) OnFilterChange(filters query.FilterSet) {
	c.dispatch(FilterChange{Filters: filters})
}

// OnScrollMetrics loads the next page when the view is near its end.
func (c *Controller[T]) OnScrollMetrics(viewportHeight, contentHeight, scrollOffset float64) {
	c.dispatch(Scroll{Metrics: scroll.Metrics{
		ViewportHeight: viewportHeight,
		ContentHeight:  contentHeight,
		ScrollOffset:   scrollOffset,
	}})
}

// Items returns a copy of the loaded items.
func (c *Controller[T]) Items() []T {
	return c.Snapshot().Items
}

// State returns the current load state.
func (c *Controller[T]) State() LoadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.State
}

// Err returns the failure while in Error, nil otherwise.
func (c *Controller[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.State != Error {
		return nil
	}
	return c.session.Err
}

// ErrorMessage returns the failure message while in Error.
func (c *Controller[T]) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.ErrorMessage()
}

// Total returns the total reported by the latest current-generation response.
func (c *Controller[T]) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Total
}

// Generation returns the current filter generation.
func (c *Controller[T]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Generation
}

// Snapshot returns a copy of the session.
func (c *Controller[T]) Snapshot() Session[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clone()
}

// Wait blocks until every started fetch has completed.
func (c *Controller[T]) Wait() {
	c.wg.Wait()
}

// Close cancels outstanding fetches and stops applying results.
func (c *Controller[T]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stop()
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

// dispatch runs one transition and starts the fetch it asks for.
func (c *Controller[T]) dispatch(ev Event) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	before := c.session
	if res, ok := ev.(Result[T]); ok && !before.Accepts(res.Fetch) {
		loaderStaleResponsesTotal.Inc()
		c.logger.Debug().
			Uint64("generation", res.Fetch.Generation).
			Uint64("current_generation", before.Generation).
			Int("skip", res.Fetch.Request.Skip).
			Msg("Dropping stale page response")
		c.mu.Unlock()
		return
	}

	next, fetch := c.machine.Transition(before, ev)
	c.session = next

	if next.Generation != before.Generation && c.cancel != nil {
		// The previous generation's request can no longer be applied.
		c.cancel()
		c.cancel = nil
	}

	if _, ok := ev.(FilterChange); ok && fetch != nil && before.Generation > 0 {
		prev := query.Build(before.Filters, before.Sort, 0, fetch.Request.Limit)
		if query.Equivalent(prev, fetch.Request) {
			c.logger.Debug().
				Uint64("generation", next.Generation).
				Str("query", fetch.Request.Key()).
				Msg("Reloading unchanged query")
		}
	}

	if fetch != nil {
		c.start(*fetch)
	}

	changed := fetch != nil || next.State != before.State || len(next.Items) != len(before.Items)
	if next.State != before.State {
		loaderTransitionsTotal.WithLabelValues(before.State.String(), next.State.String()).Inc()
		c.logTransition(before, next)
	}

	fn := c.onChange
	var snapshot Session[T]
	if changed && fn != nil {
		snapshot = next.Clone()
	}
	c.mu.Unlock()

	if changed && fn != nil {
		fn(snapshot)
	}
}

// start runs fetch on a new goroutine. Caller holds c.mu.
func (c *Controller[T]) start(fetch Fetch) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout := c.machine.Config().FetchTimeout; timeout > 0 {
		ctx, cancel = context.WithTimeout(c.ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(c.ctx)
	}
	c.cancel = cancel

	kind := fetch.Kind.String()
	loaderFetchesTotal.WithLabelValues(kind).Inc()
	c.logger.Debug().
		Uint64("generation", fetch.Generation).
		Str("kind", kind).
		Int("skip", fetch.Request.Skip).
		Int("limit", fetch.Request.Limit).
		Str("query", fetch.Request.Key()).
		Msg("Fetching page")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		start := time.Now()
		page, err := c.fetcher.Fetch(ctx, fetch.Request)
		loaderFetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

		c.dispatch(Result[T]{Fetch: fetch, Page: page, Err: err})
	}()
}

func (c *Controller[T]) logTransition(before, next Session[T]) {
	switch next.State {
	case Error:
		kind := "unknown"
		if next.Failed != nil {
			kind = next.Failed.Kind.String()
		}
		loaderFetchFailuresTotal.WithLabelValues(kind).Inc()

		event := c.logger.Warn()
		if errors.Is(next.Err, context.Canceled) {
			event = c.logger.Debug()
		}
		event.
			Err(next.Err).
			Uint64("generation", next.Generation).
			Str("kind", kind).
			Int("items", len(next.Items)).
			Msg("Page fetch failed")
	case Exhausted:
		c.logger.Info().
			Uint64("generation", next.Generation).
			Int("items", len(next.Items)).
			Int("total", next.Total).
			Msg("Collection fully loaded")
	default:
		c.logger.Debug().
			Str("from", before.State.String()).
			Str("to", next.State.String()).
			Uint64("generation", next.Generation).
			Int("items", len(next.Items)).
			Int("total", next.Total).
			Msg("Load state changed")
	}
}
