// Package query builds canonical request descriptors for paginated catalog
// collections.
package query

import (
	"fmt"
	"maps"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// SortKey is the reserved filter name carrying the sort selection.
const SortKey = "sort"

// FilterSet maps a filter name to its selected value.
// A missing key and an empty value both mean "no filter".
type FilterSet map[string]string

// Sort returns the sort selection stored under SortKey.
func (f FilterSet) Sort() string {
	return strings.TrimSpace(f[SortKey])
}

// With returns a copy of the set with name set to value.
// An empty value clears the entry.
func (f FilterSet) With(name, value string) FilterSet {
	out := make(FilterSet, len(f)+1)
	maps.Copy(out, f)
	if strings.TrimSpace(value) == "" {
		delete(out, name)
		return out
	}
	out[name] = value
	return out
}

// Active returns only the entries that carry a value, without the sort key.
func (f FilterSet) Active() FilterSet {
	out := make(FilterSet, len(f))
	for name, value := range f {
		if name == SortKey || name == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		out[name] = value
	}
	return out
}

// Request is the descriptor of one page request.
type Request struct {
	// Filters holds only active filters
	Filters FilterSet
	// Sort is the sort key sent as-is (e.g. "-created_at")
	Sort string
	// Skip is the offset of the first item
	Skip int
	// Limit is the maximum number of items wanted
	Limit int
}

// Build converts a filter selection, sort key and offset/limit pair into a
// Request carrying only active filters.
func Build(filters FilterSet, sort string, skip, limit int) Request {
	if skip < 0 {
		skip = 0
	}
	if limit < 1 {
		limit = 1
	}

	return Request{
		Filters: filters.Active(),
		Sort:    strings.TrimSpace(sort),
		Skip:    skip,
		Limit:   limit,
	}
}

// Equivalent reports whether a and b describe the same query, ignoring Skip.
func Equivalent(a, b Request) bool {
	return a.Sort == b.Sort &&
		a.Limit == b.Limit &&
		maps.Equal(a.Filters.Active(), b.Filters.Active())
}

// Values returns the query string form of the request.
func (r Request) Values() url.Values {
	values := url.Values{}
	values.Set("skip", strconv.Itoa(r.Skip))
	values.Set("limit", strconv.Itoa(r.Limit))
	if r.Sort != "" {
		values.Set(SortKey, r.Sort)
	}
	for name, value := range r.Filters.Active() {
		values.Set(name, value)
	}
	return values
}

// Key generates a deterministic string for the request.
// Format: filter1=val1:filter2=val2:sort=name:skip=0:limit=9
func (r Request) Key() string {
	active := r.Filters.Active()
	names := make([]string, 0, len(active))
	for name := range active {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+3)
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, active[name]))
	}
	parts = append(parts,
		fmt.Sprintf("sort=%s", r.Sort),
		fmt.Sprintf("skip=%d", r.Skip),
		fmt.Sprintf("limit=%d", r.Limit),
	)

	return strings.Join(parts, ":")
}

// String implements fmt.Stringer.
func (r Request) String() string {
	return r.Key()
}
