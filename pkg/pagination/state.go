package pagination

import (
	"slices"

	"github.com/Sternrassler/compass-catalog-client/pkg/query"
)

// LoadState is the load status of a paginated view.
type LoadState int

const (
	// Idle means the current page set is loaded and more pages exist.
	Idle LoadState = iota

	// LoadingInitial means the first page of a generation is in flight.
	LoadingInitial

	// LoadingMore means a follow-up page is in flight.
	LoadingMore

	// Exhausted means every item matching the current filters is loaded.
	Exhausted

	// Error means the last fetch failed. Loaded items are kept.
	Error
)

// String implements fmt.Stringer.
func (s LoadState) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingInitial:
		return "loading_initial"
	case LoadingMore:
		return "loading_more"
	case Exhausted:
		return "exhausted"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// InFlight reports whether a request is outstanding in this state.
func (s LoadState) InFlight() bool {
	return s == LoadingInitial || s == LoadingMore
}

// Page is one page of a collection as returned by a Fetcher.
type Page[T any] struct {
	// Items in server order
	Items []T `json:"data"`

	// Total is the server's count under the filters at fetch time
	Total int `json:"total"`
}

// Fetch is a page request issued by the state machine.
type Fetch struct {
	// Generation is the filter epoch that issued the request
	Generation uint64

	// Kind is LoadingInitial or LoadingMore
	Kind LoadState

	// Request is the descriptor to send
	Request query.Request
}

// Session is the state owned by one paginated view.
type Session[T any] struct {
	Items []T
	State LoadState

	// Err is the failure that moved the session to Error
	Err error

	// Generation increments on every filter change
	Generation uint64

	// Total is the count reported by the latest current-generation response
	Total int

	Filters query.FilterSet
	Sort    string

	// Pending is the in-flight fetch of the current generation
	Pending *Fetch

	// Failed is the fetch to repeat when retrying from Error
	Failed *Fetch
}

// Accepts reports whether a response to f may be applied to s.
func (s Session[T]) Accepts(f Fetch) bool {
	if s.Pending == nil || f.Generation != s.Generation {
		return false
	}
	return f.Kind == s.Pending.Kind && f.Request.Skip == s.Pending.Request.Skip
}

// ErrorMessage returns the failure message while in Error, empty otherwise.
func (s Session[T]) ErrorMessage() string {
	if s.State != Error || s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Clone returns a copy of s that shares no item storage with s.
func (s Session[T]) Clone() Session[T] {
	s.Items = slices.Clone(s.Items)
	return s
}
