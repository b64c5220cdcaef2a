package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mailist/mailist/internal/cli"
	"github.com/mailist/mailist/internal/client"
)

var (
	// Global flags
	baseURL string
	apiKey  string
	profile string
	format  string
	quiet   bool
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mailist",
	Short: "CLI tool for managing mailing list membership rules",
	Long: `Mailist is a command-line tool for the mailist service.

It manages distribution lists and the rules that decide who may send to a
list and who receives it. Rules are edited as filters (persons, groups with
optional roles, statuses) and stored as JSON Logic queries.

Examples:
  mailist lists
  mailist create choir
  mailist set-filters choir --slot recipients --filter group:12:3,4 --filter person:7
  mailist show choir --names
  mailist parse query.json
  mailist export --output lists.yaml`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the mailist API")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Admin API key (required for changes)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "Profile from ~/.mailist/config.yaml")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}

// newClient builds an API client from flags, environment and config file.
func newClient() (*client.Client, error) {
	p, err := cli.ResolveProfile(profile, baseURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Using %s\n", p.BaseURL)
	}
	return client.NewClient(p.BaseURL, p.APIKey), nil
}

// slots expands the --slot flag; "both" means senders then recipients.
func slots(slot string) ([]string, error) {
	switch slot {
	case "senders", "recipients":
		return []string{slot}, nil
	case "both", "":
		return []string{"senders", "recipients"}, nil
	default:
		return nil, fmt.Errorf("invalid slot %q (use senders, recipients or both)", slot)
	}
}

// readInput reads a file, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}
