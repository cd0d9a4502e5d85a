// Package catalog defines the solution catalog collections, their item types
// and the filter vocabulary accepted by the catalog API.
package catalog

import (
	"time"

	"github.com/Sternrassler/compass-catalog-client/pkg/pagination"
)

// Collection endpoints of the catalog API.
const (
	SolutionsEndpoint  = "/api/v1/solutions/"
	CategoriesEndpoint = "/api/v1/categories/"
)

// Solution is a catalog entry.
type Solution struct {
	ID                string    `json:"_id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Category          string    `json:"category,omitempty"`
	CategoryID        string    `json:"category_id,omitempty"`
	Status            string    `json:"status"`
	Department        string    `json:"department"`
	Team              string    `json:"team"`
	TeamEmail         string    `json:"team_email,omitempty"`
	OfficialWebsite   string    `json:"official_website,omitempty"`
	DocumentationURL  string    `json:"documentation_url,omitempty"`
	DemoURL           string    `json:"demo_url,omitempty"`
	Version           string    `json:"version,omitempty"`
	Pros              []string  `json:"pros,omitempty"`
	Cons              []string  `json:"cons,omitempty"`
	DevelopmentStatus string    `json:"development_status,omitempty"`
	RecommendStatus   string    `json:"recommend_status,omitempty"`
	RadarStatus       string    `json:"radar_status,omitempty"`
	Stage             string    `json:"stage,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Category groups solutions.
type Category struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	UsageCount  int       `json:"usage_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SolutionCatalogConfig returns the load settings of the solution grid.
func SolutionCatalogConfig() pagination.Config {
	cfg := pagination.DefaultConfig()
	cfg.InitialPageSize = 9
	cfg.LoadMorePageSize = 6
	cfg.DefaultSort = SortNameAsc
	return cfg
}

// CategoryListConfig returns the load settings of the category list.
func CategoryListConfig() pagination.Config {
	cfg := pagination.DefaultConfig()
	cfg.InitialPageSize = 20
	cfg.LoadMorePageSize = 20
	cfg.DefaultSort = SortNameAsc
	return cfg
}
