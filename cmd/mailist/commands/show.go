package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mailist/mailist/internal/cli"
)

var (
	showSlot  string
	showNames bool
)

var showCmd = &cobra.Command{
	Use:   "show <id|alias>",
	Short: "Show the rules of a distribution list",
	Long: `Show the senders and recipients rules of a list.

With --names, ids are resolved to group, role, person and status names from
the directory. Advanced rules are shown as raw queries.

Examples:
  mailist show choir
  mailist show 3 --slot recipients --names
  mailist show choir --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		selected, err := slots(showSlot)
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
		if !quiet && cli.OutputFormat(format) == cli.FormatTable {
			fmt.Printf("%s (id %d, flags %d)\n", l.Alias, l.ID, l.Flags)
		}

		for _, slot := range selected {
			if showNames {
				names, err := c.GetNames(ctx, l.ID, slot)
				if err != nil {
					return fmt.Errorf("failed to resolve %s names: %w", slot, err)
				}
				if !quiet {
					if err := cli.PrintNames(os.Stdout, slot, names, cli.OutputFormat(format)); err != nil {
						return err
					}
				}
				continue
			}

			rule, err := c.GetRule(ctx, l.ID, slot)
			if err != nil {
				return fmt.Errorf("failed to get %s rule: %w", slot, err)
			}
			if !quiet {
				if err := cli.PrintRule(os.Stdout, slot, rule, cli.OutputFormat(format)); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVar(&showSlot, "slot", "both", "Rule to show (senders, recipients, both)")
	showCmd.Flags().BoolVar(&showNames, "names", false, "Resolve ids to directory names")
}
