package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mailist/mailist/internal/cli"
	"github.com/mailist/mailist/internal/filter"
)

var buildSpecs []string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a query from filters",
	Long: `Build the JSON Logic query for a list of filters, offline.

Examples:
  mailist build --filter person:7
  mailist build --filter group:12:3,4 --filter status:2 > query.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(buildSpecs) == 0 {
			return fmt.Errorf("at least one --filter is required")
		}
		filters, err := cli.ParseFilterSpecs(buildSpecs)
		if err != nil {
			return err
		}
		return cli.PrintJSON(os.Stdout, filter.Build(filters))
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringArrayVar(&buildSpecs, "filter", nil, "Filter as kind:id, repeatable")
}
