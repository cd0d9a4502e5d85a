package main

import (
	"fmt"

	"github.com/Sternrassler/compass-catalog-client/pkg/client"
	"github.com/Sternrassler/compass-catalog-client/pkg/logging"
	"github.com/Sternrassler/compass-catalog-client/pkg/pagination"
	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List solution categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pages, _ := cmd.Flags().GetInt("pages")

		ctrl, err := pagination.NewController(client.CategoriesFetcher(apiClient), cfg.Categories, logging.NewLogger("loader"))
		if err != nil {
			return err
		}
		defer ctrl.Close()

		session, err := drain(cmd.Context(), ctrl, nil, pages)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}

		if jsonOutput {
			return printListJSON(cmd.OutOrStdout(), session)
		}
		printCategoryTable(cmd.OutOrStdout(), session)
		return nil
	},
}

func init() {
	categoriesCmd.Flags().Int("pages", 0, "stop after this many pages (0 = load everything)")
}
