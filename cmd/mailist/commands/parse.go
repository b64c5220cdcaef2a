package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mailist/mailist/internal/cli"
	"github.com/mailist/mailist/internal/filter"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file|->",
	Short: "Parse a query into filters",
	Long: `Parse a JSON Logic query offline and print its filters.

Queries outside the filter grammar are reported as advanced.

Examples:
  mailist parse query.json
  cat query.json | mailist parse - --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[0])
		if err != nil {
			return err
		}

		rule, err := filter.ParseRuleJSON(data)
		if err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}

		filters, ok := rule.Filters()
		if !ok {
			if !quiet {
				fmt.Printf("Rule is %s\n", rule.State())
			}
			return nil
		}
		if quiet {
			return nil
		}
		return cli.PrintFilters(os.Stdout, filters, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
