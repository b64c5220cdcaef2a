package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mailist/mailist/internal/cli"
)

var (
	setFiltersSlot  string
	setFiltersSpecs []string
	setFiltersClear bool
)

var setFiltersCmd = &cobra.Command{
	Use:   "set-filters <id|alias>",
	Short: "Replace a rule with filters",
	Long: `Replace the senders or recipients rule of a list with a list of filters.

Filters are given as kind:id. Groups take an optional comma separated list
of role ids (group:ID:ROLE,ROLE). A member matches if any filter matches.

Examples:
  mailist set-filters choir --slot recipients --filter group:12
  mailist set-filters choir --slot senders --filter group:12:3,4 --filter person:7
  mailist set-filters choir --slot senders --clear`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if setFiltersSlot != "senders" && setFiltersSlot != "recipients" {
			return fmt.Errorf("--slot must be senders or recipients")
		}
		if setFiltersClear == (len(setFiltersSpecs) > 0) {
			return fmt.Errorf("pass either --filter or --clear")
		}

		filters, err := cli.ParseFilterSpecs(setFiltersSpecs)
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		ctx := context.Background()
		l, err := c.FindList(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get list: %w", err)
		}

		rule, err := c.SetFilters(ctx, l.ID, setFiltersSlot, filters)
		if err != nil {
			return fmt.Errorf("failed to set filters: %w", err)
		}

		if !quiet {
			return cli.PrintRule(os.Stdout, setFiltersSlot, rule, cli.OutputFormat(format))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setFiltersCmd)

	setFiltersCmd.Flags().StringVar(&setFiltersSlot, "slot", "", "Rule to replace (senders or recipients)")
	setFiltersCmd.Flags().StringArrayVar(&setFiltersSpecs, "filter", nil, "Filter as kind:id, repeatable")
	setFiltersCmd.Flags().BoolVar(&setFiltersClear, "clear", false, "Clear the rule")
	_ = setFiltersCmd.MarkFlagRequired("slot")
}
