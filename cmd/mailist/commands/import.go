package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mailist/mailist/internal/cli"
	"github.com/mailist/mailist/internal/client"
	"github.com/mailist/mailist/internal/filter"
)

var (
	importDryRun bool
	importForce  bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import lists and rules from a file",
	Long: `Import distribution lists from a YAML or JSON file written by export.

A list whose alias already exists is updated in place: its flags are set
and both queries are replaced.

Examples:
  mailist import lists.yaml
  mailist import lists.yaml --dry-run
  mailist import lists.yaml --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[0])
		if err != nil {
			return err
		}

		importData, err := cli.ReadExportFile(data)
		if err != nil {
			return err
		}
		if len(importData.Lists) == 0 {
			return fmt.Errorf("no lists found in file")
		}

		if verbose {
			fmt.Printf("Found %d list(s) to import\n", len(importData.Lists))
		}

		// Dry run mode - just validate and show what would be imported
		if importDryRun {
			fmt.Println("Dry run mode - the following lists would be imported:")
			for _, l := range importData.Lists {
				senders, recipients, err := l.Queries()
				if err != nil {
					return fmt.Errorf("list '%s': %w", l.Alias, err)
				}
				fmt.Printf("  - %s (flags: %d, senders: %s, recipients: %s)\n",
					l.Alias, l.Flags, ruleState(senders), ruleState(recipients))
			}
			return nil
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		ctx := context.Background()

		successCount := 0
		errorCount := 0

		for _, l := range importData.Lists {
			if verbose {
				fmt.Printf("Importing list: %s\n", l.Alias)
			}

			if err := importList(ctx, c, l); err != nil {
				errorCount++
				fmt.Fprintf(os.Stderr, "Failed to import list '%s': %v\n", l.Alias, err)
				if !importForce {
					return fmt.Errorf("import failed, use --force to continue on errors")
				}
			} else {
				successCount++
			}
		}

		if !quiet {
			fmt.Printf("Import complete: %d succeeded, %d failed\n", successCount, errorCount)
		}

		if errorCount > 0 && !importForce {
			return fmt.Errorf("import completed with errors")
		}
		return nil
	},
}

// importList creates the list, or updates the existing list with that alias.
func importList(ctx context.Context, c *client.Client, l cli.ExportedList) error {
	senders, recipients, err := l.Queries()
	if err != nil {
		return err
	}

	created, err := c.CreateList(ctx, client.CreateListParams{
		Alias:           l.Alias,
		Flags:           l.Flags,
		SendersQuery:    senders,
		RecipientsQuery: recipients,
	})
	if err == nil {
		if verbose {
			fmt.Printf("  created with id %d\n", created.ID)
		}
		return nil
	}
	if !client.IsConflict(err) {
		return err
	}

	existing, err := c.FindList(ctx, l.Alias)
	if err != nil {
		return err
	}
	if _, err := c.UpdateList(ctx, existing.ID, l.Alias, l.Flags); err != nil {
		return err
	}
	if _, err := c.SetQuery(ctx, existing.ID, "senders", senders); err != nil {
		return fmt.Errorf("senders: %w", err)
	}
	if _, err := c.SetQuery(ctx, existing.ID, "recipients", recipients); err != nil {
		return fmt.Errorf("recipients: %w", err)
	}
	if verbose {
		fmt.Printf("  updated existing id %d\n", existing.ID)
	}
	return nil
}

func ruleState(raw json.RawMessage) string {
	rule, err := filter.ParseRuleJSON(raw)
	if err != nil {
		return "invalid"
	}
	return rule.State().String()
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate without importing")
	importCmd.Flags().BoolVar(&importForce, "force", false, "Continue on errors")
}
