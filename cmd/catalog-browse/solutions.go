package main

import (
	"fmt"

	"github.com/Sternrassler/compass-catalog-client/pkg/catalog"
	"github.com/Sternrassler/compass-catalog-client/pkg/client"
	"github.com/Sternrassler/compass-catalog-client/pkg/logging"
	"github.com/Sternrassler/compass-catalog-client/pkg/pagination"
	"github.com/spf13/cobra"
)

var solutionsCmd = &cobra.Command{
	Use:   "solutions",
	Short: "List catalog solutions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := solutionFiltersFromFlags(cmd)
		if err != nil {
			return err
		}
		pages, _ := cmd.Flags().GetInt("pages")

		ctrl, err := pagination.NewController(client.SolutionsFetcher(apiClient), cfg.Solutions, logging.NewLogger("loader"))
		if err != nil {
			return err
		}
		defer ctrl.Close()

		session, err := drain(cmd.Context(), ctrl, filters.FilterSet(), pages)
		if err != nil {
			return fmt.Errorf("load solutions: %w", err)
		}

		if jsonOutput {
			return printListJSON(cmd.OutOrStdout(), session)
		}
		printSolutionTable(cmd.OutOrStdout(), session)
		return nil
	},
}

func init() {
	addSolutionFlags(solutionsCmd)
}

func addSolutionFlags(cmd *cobra.Command) {
	cmd.Flags().String("category", "", "filter by category name")
	cmd.Flags().String("department", "", "filter by department")
	cmd.Flags().String("team", "", "filter by team")
	cmd.Flags().String("recommend-status", "", "filter by recommendation (BUY, HOLD, SELL)")
	cmd.Flags().String("radar-status", "", "filter by radar ring (ADOPT, TRIAL, ASSESS, HOLD)")
	cmd.Flags().String("stage", "", "filter by stage (DEVELOPING, UAT, PRODUCTION, DEPRECATED, RETIRED)")
	cmd.Flags().String("sort", "", "sort key: name, -name, created_at, -created_at")
	cmd.Flags().Int("pages", 0, "stop after this many pages (0 = load everything)")
}

func solutionFiltersFromFlags(cmd *cobra.Command) (catalog.SolutionFilters, error) {
	flags := cmd.Flags()
	category, _ := flags.GetString("category")
	department, _ := flags.GetString("department")
	team, _ := flags.GetString("team")
	recommend, _ := flags.GetString("recommend-status")
	radar, _ := flags.GetString("radar-status")
	stage, _ := flags.GetString("stage")
	sort, _ := flags.GetString("sort")

	filters := catalog.SolutionFilters{
		Category:        category,
		Department:      department,
		Team:            team,
		RecommendStatus: catalog.RecommendStatus(recommend),
		RadarStatus:     catalog.RadarStatus(radar),
		Stage:           catalog.Stage(stage),
		Sort:            sort,
	}
	if err := filters.Validate(); err != nil {
		return catalog.SolutionFilters{}, err
	}
	return filters, nil
}
