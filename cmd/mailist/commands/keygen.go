package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailist/mailist/internal/auth"
	"github.com/mailist/mailist/internal/webhook"
)

var keygenWebhook bool

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an admin API key",
	Long: `Generate a random admin API key and its bcrypt hash.

Give the key to CLI users and set ADMIN_API_KEY on the server to the hash,
so the key itself is never stored server side.

With --webhook, print a WEBHOOK_SECRET for signing change events instead.

Examples:
  mailist keygen
  mailist keygen --webhook`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if keygenWebhook {
			secret, err := webhook.GenerateSecret()
			if err != nil {
				return err
			}
			fmt.Println(secret)
			return nil
		}

		key, err := auth.GenerateAPIKey()
		if err != nil {
			return err
		}
		hash, err := auth.HashAPIKey(key)
		if err != nil {
			return err
		}

		if quiet {
			fmt.Println(key)
			return nil
		}
		fmt.Printf("API key:       %s\n", key)
		fmt.Printf("ADMIN_API_KEY: %s\n", hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().BoolVar(&keygenWebhook, "webhook", false, "Generate a webhook signing secret")
}
