package pagination

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/compass-catalog-client/pkg/query"
	"github.com/Sternrassler/compass-catalog-client/pkg/scroll"
)

// Config holds the load settings of one view.
type Config struct {
	// InitialPageSize is the limit of the first request of a generation
	InitialPageSize int `yaml:"initial_page_size"`

	// LoadMorePageSize is the limit of every follow-up request
	LoadMorePageSize int `yaml:"load_more_page_size"`

	// NearEndThreshold is the distance from the end of the content that
	// triggers the next page
	NearEndThreshold float64 `yaml:"near_end_threshold"`

	// DefaultSort applies when the filter set carries no sort key
	DefaultSort string `yaml:"default_sort"`

	// DefaultFilters is the selection used by OnInit
	DefaultFilters query.FilterSet `yaml:"default_filters"`

	// FetchTimeout bounds a single fetch (0 = no timeout)
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// DefaultConfig returns the settings of the solution catalog view.
func DefaultConfig() Config {
	return Config{
		InitialPageSize:  9,
		LoadMorePageSize: 6,
		NearEndThreshold: scroll.DefaultThreshold,
		DefaultSort:      "name",
		FetchTimeout:     15 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.InitialPageSize < 1 {
		return fmt.Errorf("initial_page_size must be >= 1 (got %d)", c.InitialPageSize)
	}
	if c.LoadMorePageSize < 1 {
		return fmt.Errorf("load_more_page_size must be >= 1 (got %d)", c.LoadMorePageSize)
	}
	if c.NearEndThreshold < 0 {
		return fmt.Errorf("near_end_threshold must be >= 0 (got %g)", c.NearEndThreshold)
	}
	if strings.TrimSpace(c.DefaultSort) == "" {
		return fmt.Errorf("default_sort is required")
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetch_timeout must be >= 0 (got %s)", c.FetchTimeout)
	}
	return nil
}
