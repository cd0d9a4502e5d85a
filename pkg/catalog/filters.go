package catalog

import (
	"fmt"
	"slices"

	"github.com/Sternrassler/compass-catalog-client/pkg/query"
)

// Filter names accepted by the solutions endpoint.
const (
	FilterCategory        = "category"
	FilterDepartment      = "department"
	FilterTeam            = "team"
	FilterRecommendStatus = "recommend_status"
	FilterRadarStatus     = "radar_status"
	FilterStage           = "stage"
)

// Sort keys. A leading "-" sorts descending.
const (
	SortNewest   = "-created_at"
	SortOldest   = "created_at"
	SortNameAsc  = "name"
	SortNameDesc = "-name"
)

// Sorts lists the supported sort keys.
var Sorts = []string{SortNewest, SortOldest, SortNameAsc, SortNameDesc}

// RecommendStatus is the strategic recommendation of a solution.
type RecommendStatus string

const (
	RecommendBuy  RecommendStatus = "BUY"
	RecommendHold RecommendStatus = "HOLD"
	RecommendSell RecommendStatus = "SELL"
)

// Valid reports whether s is a known value.
func (s RecommendStatus) Valid() bool {
	switch s {
	case RecommendBuy, RecommendHold, RecommendSell:
		return true
	}
	return false
}

// RadarStatus is the technology radar ring of a solution.
type RadarStatus string

const (
	RadarAdopt  RadarStatus = "ADOPT"
	RadarTrial  RadarStatus = "TRIAL"
	RadarAssess RadarStatus = "ASSESS"
	RadarHold   RadarStatus = "HOLD"
)

// Valid reports whether s is a known value.
func (s RadarStatus) Valid() bool {
	switch s {
	case RadarAdopt, RadarTrial, RadarAssess, RadarHold:
		return true
	}
	return false
}

// Stage is the lifecycle stage of a solution.
type Stage string

const (
	StageDeveloping Stage = "DEVELOPING"
	StageUAT        Stage = "UAT"
	StageProduction Stage = "PRODUCTION"
	StageDeprecated Stage = "DEPRECATED"
	StageRetired    Stage = "RETIRED"
)

// Valid reports whether s is a known value.
func (s Stage) Valid() bool {
	switch s {
	case StageDeveloping, StageUAT, StageProduction, StageDeprecated, StageRetired:
		return true
	}
	return false
}

// SolutionFilters is the filter selection of the solution catalog.
// Empty fields are not sent.
type SolutionFilters struct {
	Category        string
	Department      string
	Team            string
	RecommendStatus RecommendStatus
	RadarStatus     RadarStatus
	Stage           Stage
	Sort            string
}

// Validate checks enumerated fields.
func (f SolutionFilters) Validate() error {
	if f.RecommendStatus != "" && !f.RecommendStatus.Valid() {
		return fmt.Errorf("invalid recommend status %q", f.RecommendStatus)
	}
	if f.RadarStatus != "" && !f.RadarStatus.Valid() {
		return fmt.Errorf("invalid radar status %q", f.RadarStatus)
	}
	if f.Stage != "" && !f.Stage.Valid() {
		return fmt.Errorf("invalid stage %q", f.Stage)
	}
	if f.Sort != "" && !slices.Contains(Sorts, f.Sort) {
		return fmt.Errorf("invalid sort %q", f.Sort)
	}
	return nil
}

// FilterSet converts the selection for the load controller.
func (f SolutionFilters) FilterSet() query.FilterSet {
	return query.FilterSet{
		FilterCategory:        f.Category,
		FilterDepartment:      f.Department,
		FilterTeam:            f.Team,
		FilterRecommendStatus: string(f.RecommendStatus),
		FilterRadarStatus:     string(f.RadarStatus),
		FilterStage:           string(f.Stage),
	}.Active().With(query.SortKey, f.Sort)
}
