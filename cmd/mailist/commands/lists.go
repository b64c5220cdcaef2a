package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mailist/mailist/internal/cli"
)

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "List all distribution lists",
	Long: `List all distribution lists with the state of their rules.

A rule is "empty" when unset, "recognized" when it can be edited as filters,
and "advanced" when it is a raw query outside the filter grammar.

Examples:
  mailist lists
  mailist lists --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		lists, err := c.ListLists(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list distribution lists: %w", err)
		}

		if quiet {
			return nil
		}
		if len(lists) == 0 {
			fmt.Println("No distribution lists found")
			return nil
		}
		return cli.PrintLists(os.Stdout, lists, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(listsCmd)
}
