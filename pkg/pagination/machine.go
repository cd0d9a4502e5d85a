package pagination

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/compass-catalog-client/pkg/query"
	"github.com/Sternrassler/compass-catalog-client/pkg/scroll"
)

// ErrInvalidPage is recorded when a fetcher returns a page with a negative total.
var ErrInvalidPage = errors.New("invalid page")

// Event is an input to Machine.Transition.
type Event interface {
	event()
}

// Init starts the first generation with the configured default filters.
type Init struct{}

// FilterChange replaces the filter selection and starts a new generation.
type FilterChange struct {
	Filters query.FilterSet
}

// Scroll reports the scroll position of the view.
type Scroll struct {
	scroll.Metrics
}

// Result is the completion of a Fetch.
type Result[T any] struct {
	Fetch Fetch
	Page  Page[T]
	Err   error
}

func (Init) event()         {}
func (FilterChange) event() {}
func (Scroll) event()       {}
func (Result[T]) event()    {}

// Machine is the load state machine of a paginated view.
// It holds configuration only; all state lives in the Session passed through
// Transition.
type Machine[T any] struct {
	config Config
}

// NewMachine creates a state machine after validating cfg.
func NewMachine[T any](cfg Config) (Machine[T], error) {
	if err := cfg.Validate(); err != nil {
		return Machine[T]{}, fmt.Errorf("invalid pagination config: %w", err)
	}
	return Machine[T]{config: cfg}, nil
}

// Config returns the machine configuration.
func (m Machine[T]) Config() Config {
	return m.config
}

// Transition applies ev to s and returns the next session together with the
// fetch to issue, if any.
func (m Machine[T]) Transition(s Session[T], ev Event) (Session[T], *Fetch) {
	switch ev := ev.(type) {
	case Init:
		if s.Generation > 0 {
			return s, nil
		}
		return m.reset(s, m.config.DefaultFilters)
	case FilterChange:
		return m.reset(s, ev.Filters)
	case Scroll:
		return m.scroll(s, ev.Metrics)
	case Result[T]:
		return m.apply(s, ev), nil
	default:
		return s, nil
	}
}

// reset starts a new generation for filters.
func (m Machine[T]) reset(s Session[T], filters query.FilterSet) (Session[T], *Fetch) {
	sort := filters.Sort()
	if sort == "" {
		sort = m.config.DefaultSort
	}

	s.Generation++
	s.Filters = filters.Active()
	s.Sort = sort
	s.Items = []T{}
	s.Total = 0
	s.Err = nil
	s.Failed = nil

	fetch := &Fetch{
		Generation: s.Generation,
		Kind:       LoadingInitial,
		Request:    query.Build(s.Filters, s.Sort, 0, m.config.InitialPageSize),
	}
	s.Pending = fetch
	s.State = LoadingInitial

	return s, fetch
}

// scroll issues the next page when the view is near its end and no request is
// in flight. From Error it repeats the failed request.
func (m Machine[T]) scroll(s Session[T], metrics scroll.Metrics) (Session[T], *Fetch) {
	if s.Generation == 0 {
		return s, nil
	}
	if s.State != Idle && s.State != Error {
		return s, nil
	}
	if !metrics.NearEnd(m.config.NearEndThreshold) {
		return s, nil
	}

	var fetch Fetch
	if s.State == Error && s.Failed != nil {
		fetch = *s.Failed
	} else {
		fetch = Fetch{
			Generation: s.Generation,
			Kind:       LoadingMore,
			Request:    query.Build(s.Filters, s.Sort, len(s.Items), m.config.LoadMorePageSize),
		}
	}

	s.Pending = &fetch
	s.State = fetch.Kind
	s.Err = nil

	return s, &fetch
}

// apply merges a response of the current generation. Anything else is dropped.
func (m Machine[T]) apply(s Session[T], res Result[T]) Session[T] {
	if !s.Accepts(res.Fetch) {
		return s
	}

	err := res.Err
	if err == nil && res.Page.Total < 0 {
		err = fmt.Errorf("%w: negative total %d", ErrInvalidPage, res.Page.Total)
	}

	if err != nil {
		failed := res.Fetch
		s.Failed = &failed
		s.Pending = nil
		s.Err = err
		s.State = Error
		return s
	}

	s.Items = Merge(s.Items, res.Page, res.Fetch.Kind == LoadingInitial)
	s.Total = res.Page.Total
	s.Pending = nil
	s.Failed = nil
	s.Err = nil

	if HasMore(len(s.Items), s.Total) {
		s.State = Idle
	} else {
		s.State = Exhausted
	}

	return s
}
