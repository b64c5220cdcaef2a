package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailist/mailist/internal/client"
)

var createFlags uint32

var createCmd = &cobra.Command{
	Use:   "create <alias>",
	Short: "Create a distribution list",
	Long: `Create a distribution list with empty rules.

Examples:
  mailist create choir
  mailist create youth-leaders --flags 3`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		l, err := c.CreateList(context.Background(), client.CreateListParams{Alias: args[0], Flags: createFlags})
		if err != nil {
			return fmt.Errorf("failed to create list: %w", err)
		}

		if !quiet {
			fmt.Printf("Successfully created list '%s' (id %d)\n", l.Alias, l.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().Uint32Var(&createFlags, "flags", 0, "Permission flags")
}
