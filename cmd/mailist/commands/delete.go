package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	deleteForce bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id|alias>",
	Short: "Delete a distribution list",
	Long: `Delete a distribution list and both of its rules.

Examples:
  mailist delete choir
  mailist delete 3 --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		ctx := context.Background()
		l, err := c.FindList(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get list: %w", err)
		}

		// Confirm deletion unless --force
		if !deleteForce && !quiet {
			fmt.Printf("Are you sure you want to delete list '%s' (id %d)? (y/N): ", l.Alias, l.ID)
			reader := bufio.NewReader(os.Stdin)
			response, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read confirmation: %w", err)
			}
			response = strings.ToLower(strings.TrimSpace(response))
			if response != "y" && response != "yes" {
				fmt.Println("Deletion cancelled")
				return nil
			}
		}

		if err := c.DeleteList(ctx, l.ID); err != nil {
			return fmt.Errorf("failed to delete list: %w", err)
		}

		if !quiet {
			fmt.Printf("Successfully deleted list '%s'\n", l.Alias)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "Skip confirmation prompt")
}
