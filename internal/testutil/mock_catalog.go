// Package testutil provides testing utilities for the catalog client.
package testutil

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/compass-catalog-client/pkg/catalog"
)

// MockResponse defines a canned answer of the mock server.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCatalog is an in-memory catalog API served over httptest.
// Collection endpoints honour skip, limit, sort and exact-match filters
// and answer with the {"success","data","total","skip","limit"} envelope.
type MockCatalog struct {
	server *httptest.Server

	mu         sync.RWMutex
	solutions  []catalog.Solution
	categories []catalog.Category
	queued     map[string][]MockResponse
	handlers   map[string]http.HandlerFunc
	delay      time.Duration
	maxAge     int

	// Tracking
	RequestCount     int
	ConditionalCount int
	Requests         []url.Values
	LastHeader       http.Header
}

// NewMockCatalog starts a mock server with an empty catalog.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		queued:   make(map[string][]MockResponse),
		handlers: make(map[string]http.HandlerFunc),
		maxAge:   60,
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.serve))
	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.Requests = nil
	m.LastHeader = nil
}

// SetSolutions replaces the solution collection.
func (m *MockCatalog) SetSolutions(solutions []catalog.Solution) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.solutions = append([]catalog.Solution(nil), solutions...)
}

// SetCategories replaces the category collection.
func (m *MockCatalog) SetCategories(categories []catalog.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = append([]catalog.Category(nil), categories...)
}

// SetDelay delays every collection answer.
func (m *MockCatalog) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetMaxAge sets the Cache-Control max-age of collection answers.
// Zero sends no-store.
func (m *MockCatalog) SetMaxAge(seconds int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxAge = seconds
}

// SetHandler overrides a path with a custom handler.
func (m *MockCatalog) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// Enqueue answers the next request to path with resp instead of real data.
// Queued responses are consumed in order.
func (m *MockCatalog) Enqueue(path string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued[path] = append(m.queued[path], resp)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockCatalog) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetRequests returns the query of every request so far.
func (m *MockCatalog) GetRequests() []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]url.Values(nil), m.Requests...)
}

func (m *MockCatalog) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	m.Requests = append(m.Requests, r.URL.Query())
	m.LastHeader = r.Header.Clone()
	if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
		m.ConditionalCount++
	}

	var canned *MockResponse
	if q := m.queued[r.URL.Path]; len(q) > 0 {
		canned = &q[0]
		m.queued[r.URL.Path] = q[1:]
	}
	handler := m.handlers[r.URL.Path]
	delay := m.delay
	m.mu.Unlock()

	if canned != nil {
		writeCanned(w, *canned)
		return
	}
	if handler != nil {
		handler(w, r)
		return
	}

	if delay > 0 {
		time.Sleep(delay)
	}

	switch r.URL.Path {
	case catalog.SolutionsEndpoint:
		m.serveSolutions(w, r)
	case catalog.CategoriesEndpoint:
		m.serveCategories(w, r)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
	}
}

func writeCanned(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type pageParams struct {
	skip, limit int
	sort        string
	filters     url.Values
}

func parsePageParams(values url.Values) (pageParams, error) {
	p := pageParams{skip: 0, limit: 10, filters: url.Values{}}

	for key, vals := range values {
		switch key {
		case "skip":
			n, err := strconv.Atoi(vals[0])
			if err != nil || n < 0 {
				return p, fmt.Errorf("invalid skip %q", vals[0])
			}
			p.skip = n
		case "limit":
			n, err := strconv.Atoi(vals[0])
			if err != nil || n < 1 || n > 100 {
				return p, fmt.Errorf("invalid limit %q", vals[0])
			}
			p.limit = n
		case "sort":
			p.sort = vals[0]
		default:
			p.filters[key] = vals
		}
	}
	return p, nil
}

func (m *MockCatalog) serveSolutions(w http.ResponseWriter, r *http.Request) {
	p, err := parsePageParams(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	m.mu.RLock()
	all := append([]catalog.Solution(nil), m.solutions...)
	m.mu.RUnlock()

	matched := all[:0]
	for _, s := range all {
		fields := map[string]string{
			catalog.FilterCategory:        s.Category,
			catalog.FilterDepartment:      s.Department,
			catalog.FilterTeam:            s.Team,
			catalog.FilterRecommendStatus: s.RecommendStatus,
			catalog.FilterRadarStatus:     s.RadarStatus,
			catalog.FilterStage:           s.Stage,
		}
		if matchesFilters(fields, p.filters) {
			matched = append(matched, s)
		}
	}

	sortBy(matched, p.sort, func(s catalog.Solution) (string, time.Time) { return s.Name, s.CreatedAt })
	m.writePage(w, r, window(matched, p.skip, p.limit), len(matched), p)
}

func (m *MockCatalog) serveCategories(w http.ResponseWriter, r *http.Request) {
	p, err := parsePageParams(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	m.mu.RLock()
	all := append([]catalog.Category(nil), m.categories...)
	m.mu.RUnlock()

	sortBy(all, p.sort, func(c catalog.Category) (string, time.Time) { return c.Name, c.CreatedAt })
	m.writePage(w, r, window(all, p.skip, p.limit), len(all), p)
}

func matchesFilters(fields map[string]string, filters url.Values) bool {
	for name, vals := range filters {
		value, known := fields[name]
		if !known {
			continue
		}
		if value != vals[0] {
			return false
		}
	}
	return true
}

// sortBy orders items by name or created_at; a leading "-" reverses.
func sortBy[T any](items []T, key string, fields func(T) (string, time.Time)) {
	desc := strings.HasPrefix(key, "-")
	key = strings.TrimPrefix(key, "-")

	less := func(a, b T) bool {
		nameA, createdA := fields(a)
		nameB, createdB := fields(b)
		if key == "created_at" {
			return createdA.Before(createdB)
		}
		return nameA < nameB
	}
	if key == "" {
		return
	}

	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

func window[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	end := skip + limit
	if end > len(items) {
		end = len(items)
	}
	return items[skip:end]
}

func (m *MockCatalog) writePage(w http.ResponseWriter, r *http.Request, data any, total int, p pageParams) {
	body, err := json.Marshal(map[string]any{
		"success": true,
		"data":    data,
		"total":   total,
		"skip":    p.skip,
		"limit":   p.limit,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}

	h := fnv.New64a()
	h.Write(body)
	etag := fmt.Sprintf(`"%x"`, h.Sum64())

	m.mu.RLock()
	maxAge := m.maxAge
	m.mu.RUnlock()

	w.Header().Set("ETag", etag)
	if maxAge > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", maxAge))
	} else {
		w.Header().Set("Cache-Control", "no-store")
	}

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Solutions generates n solutions named "Solution 001".. with categories
// cycling through Databases, Messaging and Observability.
func Solutions(n int) []catalog.Solution {
	categories := []string{"Databases", "Messaging", "Observability"}
	radar := []catalog.RadarStatus{catalog.RadarAdopt, catalog.RadarTrial, catalog.RadarAssess, catalog.RadarHold}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	out := make([]catalog.Solution, n)
	for i := range out {
		out[i] = catalog.Solution{
			ID:          fmt.Sprintf("sol-%03d", i+1),
			Name:        fmt.Sprintf("Solution %03d", i+1),
			Description: "generated",
			Category:    categories[i%len(categories)],
			Status:      "active",
			Department:  "Platform",
			Team:        fmt.Sprintf("team-%d", i%2),
			RadarStatus: string(radar[i%len(radar)]),
			Stage:       string(catalog.StageProduction),
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
			UpdatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

// Categories generates n categories named "Category 01"..
func Categories(n int) []catalog.Category {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	out := make([]catalog.Category, n)
	for i := range out {
		out[i] = catalog.Category{
			ID:         fmt.Sprintf("cat-%02d", i+1),
			Name:       fmt.Sprintf("Category %02d", i+1),
			UsageCount: i,
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
			UpdatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}
