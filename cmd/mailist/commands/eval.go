package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailist/mailist/internal/targeting"
)

var (
	evalPerson   int64
	evalStatus   int64
	evalGroup    int64
	evalRole     int64
	evalArchived bool
)

var evalCmd = &cobra.Command{
	Use:   "eval <file|->",
	Short: "Check whether a member matches a query",
	Long: `Evaluate a JSON Logic query offline against one member.

Examples:
  mailist eval query.json --person 7 --status 1
  mailist eval query.json --person 7 --group 12 --role 3`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[0])
		if err != nil {
			return err
		}
		var query any
		if err := json.Unmarshal(data, &query); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}

		m := targeting.Member{PersonID: evalPerson, StatusID: evalStatus, Archived: evalArchived}
		if cmd.Flags().Changed("group") {
			m.GroupID = &evalGroup
			m.GroupMemberStatus = "active"
		}
		if cmd.Flags().Changed("role") {
			m.RoleID = &evalRole
		}

		matched, err := targeting.Evaluate(query, m)
		if err != nil {
			return err
		}
		if !quiet {
			fmt.Println(matched)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().Int64Var(&evalPerson, "person", 0, "Person id")
	evalCmd.Flags().Int64Var(&evalStatus, "status", 0, "Status id")
	evalCmd.Flags().Int64Var(&evalGroup, "group", 0, "Group id")
	evalCmd.Flags().Int64Var(&evalRole, "role", 0, "Group type role id")
	evalCmd.Flags().BoolVar(&evalArchived, "archived", false, "Person is archived")
	_ = evalCmd.MarkFlagRequired("person")
}
