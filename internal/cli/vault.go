package cli

import (
	"fmt"

	"github.com/nathfavour/flora/pkg/fallback"
	"github.com/nathfavour/flora/pkg/vault"
	"github.com/spf13/cobra"
)

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage API keys in the OS keychain",
}

var vaultSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a secret in the vault",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := vault.Normalize(args[1])
		if vault.IsPlaceholder(value) {
			return fmt.Errorf("refusing to store placeholder value for %s", args[0])
		}
		if err := vault.GetVault().Set(args[0], value); err != nil {
			return err
		}
		fmt.Printf("Secret '%s' set successfully.\n", args[0])
		return nil
	},
}

var vaultGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a secret from the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		val, err := vault.GetVault().Get(args[0])
		if err != nil {
			return err
		}
		if reveal, _ := cmd.Flags().GetBool("reveal"); !reveal {
			val = vault.Mask(val)
		}
		fmt.Printf("%s: %s\n", args[0], val)
		return nil
	},
}

var vaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored secret names",
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := vault.GetVault().List()
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil
	},
}

var vaultCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configured backend has a usable credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend := settings().Fallback.Backend
		name := fallback.CredentialName(backend)
		if name == "" {
			fmt.Printf("Backend %q needs no credential.\n", backend)
			return nil
		}
		key, err := vault.GetVault().ResolveAPIKey(name)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", name, vault.Mask(key))
		return nil
	},
}

func init() {
	vaultGetCmd.Flags().Bool("reveal", false, "print the secret unmasked")
	vaultCmd.AddCommand(vaultSetCmd, vaultGetCmd, vaultListCmd, vaultCheckCmd)
	rootCmd.AddCommand(vaultCmd)
}
