package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/mailist/mailist/internal/client"
	"github.com/mailist/mailist/internal/filter"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// PrintLists outputs lists in the specified format
func PrintLists(w io.Writer, lists []client.List, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]client.List{"lists": lists})
	case FormatYAML:
		return printYAML(w, map[string][]client.List{"lists": lists})
	case FormatTable:
		return printListsTable(w, lists)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintRule outputs one rule in the specified format
func PrintRule(w io.Writer, slot string, rule *client.Rule, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, rule)
	case FormatYAML:
		return printYAML(w, rule)
	case FormatTable:
		fmt.Fprintf(w, "%s: %s\n", slot, rule.State)
		if rule.Filters == nil {
			return printQuery(w, rule.Query)
		}
		return printFiltersTable(w, *rule.Filters)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintNames outputs one rule with resolved names in the specified format
func PrintNames(w io.Writer, slot string, names *client.Names, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, names)
	case FormatYAML:
		return printYAML(w, names)
	case FormatTable:
		fmt.Fprintf(w, "%s: %s\n", slot, names.State)
		if names.State == filter.RuleAdvanced.String() {
			return printQuery(w, names.Query)
		}
		return printNamesTable(w, names.Entries)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintFilters outputs a parsed filter list in the specified format
func PrintFilters(w io.Writer, filters []filter.Filter, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, filter.List(filters))
	case FormatYAML:
		return printYAML(w, filter.List(filters))
	case FormatTable:
		return printFiltersTable(w, filters)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintJSON writes v as indented JSON
func PrintJSON(w io.Writer, v any) error { return printJSON(w, v) }

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// printYAML goes through JSON first so raw queries and filters render as
// nested structures rather than byte slices.
func printYAML(w io.Writer, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var plain any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return err
	}
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(plain)
}

func printQuery(w io.Writer, query json.RawMessage) error {
	if len(query) == 0 {
		_, err := fmt.Fprintln(w, "null")
		return err
	}
	var tree any
	if err := json.Unmarshal(query, &tree); err != nil {
		return err
	}
	return printJSON(w, tree)
}

func printListsTable(w io.Writer, lists []client.List) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Alias", "Flags", "Senders", "Recipients", "Updated At")

	for _, l := range lists {
		table.Append(
			strconv.FormatInt(l.ID, 10),
			l.Alias,
			strconv.FormatUint(uint64(l.Flags), 10),
			l.SendersState,
			l.RecipientsState,
			l.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}

	return table.Render()
}

func printFiltersTable(w io.Writer, filters []filter.Filter) error {
	table := tablewriter.NewWriter(w)
	table.Header("Kind", "ID", "Roles")

	for _, f := range filters {
		kind, id, roles := describeFilter(f)
		table.Append(kind, id, roles)
	}

	return table.Render()
}

func printNamesTable(w io.Writer, entries []client.NamedFilter) error {
	table := tablewriter.NewWriter(w)
	table.Header("Kind", "ID", "Name", "Roles")

	for _, e := range entries {
		var id int64
		switch {
		case e.PersonID != nil:
			id = *e.PersonID
		case e.GroupID != nil:
			id = *e.GroupID
		case e.StatusID != nil:
			id = *e.StatusID
		}
		roles := make([]string, 0, len(e.RoleIDs))
		for i, roleID := range e.RoleIDs {
			label := strconv.FormatInt(roleID, 10)
			if i < len(e.Roles) && e.Roles[i] != nil {
				label = *e.Roles[i]
			}
			roles = append(roles, label)
		}
		table.Append(e.Kind, strconv.FormatInt(id, 10), nameOrUnknown(e.Name), strings.Join(roles, ", "))
	}

	return table.Render()
}

func describeFilter(f filter.Filter) (kind, id, roles string) {
	switch v := f.(type) {
	case filter.PersonFilter:
		return string(v.Kind()), strconv.FormatInt(v.PersonID, 10), ""
	case filter.StatusFilter:
		return string(v.Kind()), strconv.FormatInt(v.StatusID, 10), ""
	case filter.GroupFilter:
		ids := make([]string, 0, len(v.RoleIDs))
		for _, r := range v.RoleIDs {
			ids = append(ids, strconv.FormatInt(r, 10))
		}
		return string(v.Kind()), strconv.FormatInt(v.GroupID, 10), strings.Join(ids, ", ")
	default:
		return "?", "", ""
	}
}

func nameOrUnknown(name *string) string {
	if name == nil {
		return "(unknown)"
	}
	return *name
}
