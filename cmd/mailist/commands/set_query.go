package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mailist/mailist/internal/cli"
)

var setQuerySlot string

var setQueryCmd = &cobra.Command{
	Use:   "set-query <id|alias> <file|->",
	Short: "Replace a rule with a raw JSON Logic query",
	Long: `Replace the senders or recipients rule of a list with a raw query.

Queries outside the filter grammar are kept as advanced rules. A file
containing null clears the rule.

Examples:
  mailist set-query choir query.json --slot senders
  echo null | mailist set-query choir - --slot recipients`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if setQuerySlot != "senders" && setQuerySlot != "recipients" {
			return fmt.Errorf("--slot must be senders or recipients")
		}

		data, err := readInput(args[1])
		if err != nil {
			return err
		}
		if !json.Valid(data) {
			return fmt.Errorf("input is not valid JSON")
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

		rule, err := c.SetQuery(ctx, l.ID, setQuerySlot, json.RawMessage(data))
		if err != nil {
			return fmt.Errorf("failed to set query: %w", err)
		}

		if !quiet {
			return cli.PrintRule(os.Stdout, setQuerySlot, rule, cli.OutputFormat(format))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setQueryCmd)

	setQueryCmd.Flags().StringVar(&setQuerySlot, "slot", "", "Rule to replace (senders or recipients)")
	_ = setQueryCmd.MarkFlagRequired("slot")
}
