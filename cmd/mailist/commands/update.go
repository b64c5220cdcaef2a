package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	updateAlias string
	updateFlags uint32
)

var updateCmd = &cobra.Command{
	Use:   "update <id|alias>",
	Short: "Rename a list or change its flags",
	Long: `Change the alias or permission flags of a distribution list.
Rules are not touched; use set-filters or set-query for those.

Examples:
  mailist update choir --alias choir-all
  mailist update 3 --flags 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("alias") && !cmd.Flags().Changed("flags") {
			return fmt.Errorf("nothing to update, pass --alias or --flags")
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

		alias, flags := l.Alias, l.Flags
		if cmd.Flags().Changed("alias") {
			alias = updateAlias
		}
		if cmd.Flags().Changed("flags") {
			flags = updateFlags
		}

		updated, err := c.UpdateList(ctx, l.ID, alias, flags)
		if err != nil {
			return fmt.Errorf("failed to update list: %w", err)
		}

		if !quiet {
			fmt.Printf("Successfully updated list '%s' (id %d, flags %d)\n", updated.Alias, updated.ID, updated.Flags)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().StringVar(&updateAlias, "alias", "", "New alias")
	updateCmd.Flags().Uint32Var(&updateFlags, "flags", 0, "New permission flags")
}
