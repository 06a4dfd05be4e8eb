package main

import (
	"context"
	"fmt"
	"hash/adler32"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"receiptd/internal/infra/keys"
	"receiptd/internal/infra/vaultclient"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen [ISSUER]",
	Short: "Generate an Ed25519 receipt key pair in JWKS format",
	Example: `  # Generate key pair in the current directory
  receiptctl keygen marketplace.example

  # Also store the private set in Vault (reads VAULT_ADDR and VAULT_TOKEN)
  receiptctl keygen marketplace.example --vault-path secret/data/receiptd/keys
`,
	Args: cobra.ExactArgs(1),
	RunE: keygenCmdRun,
}

type keygenFlags struct {
	outputDir string
	vaultPath string
}

var keygenArgs = keygenFlags{outputDir: "."}

func init() {
	keygenCmd.Flags().StringVarP(&keygenArgs.outputDir, "output-dir", "o", ".",
		"path to output directory (defaults to current directory)")
	keygenCmd.Flags().StringVar(&keygenArgs.vaultPath, "vault-path", "",
		"Vault KV v2 data path to store the private key set under a jwks field")
	rootCmd.AddCommand(keygenCmd)
}

func keygenCmdRun(cmd *cobra.Command, args []string) error {
	if len(args) != 1 || len(args[0]) < 1 {
		return fmt.Errorf("issuer is required")
	}
	issuer := args[0]

	if err := isDir(keygenArgs.outputDir); err != nil {
		return err
	}

	issuerID := fmt.Sprintf("%08x", adler32.Checksum([]byte(issuer)))
	privatePath := filepath.Join(keygenArgs.outputDir, fmt.Sprintf("%s-receipt-private.jwks", issuerID))
	publicPath := filepath.Join(keygenArgs.outputDir, fmt.Sprintf("%s-receipt-public.jwks", issuerID))

	publicSet, privateSet, err := keys.NewKeySetPair(issuer)
	if err != nil {
		return err
	}
	privateJSON, err := privateSet.ToJSON()
	if err != nil {
		return err
	}
	publicJSON, err := publicSet.ToJSON()
	if err != nil {
		return err
	}

	if err := os.WriteFile(privatePath, privateJSON, 0o600); err != nil {
		return fmt.Errorf("failed to write private key set: %w", err)
	}
	if err := os.WriteFile(publicPath, publicJSON, 0o644); err != nil {
		return fmt.Errorf("failed to write public key set: %w", err)
	}
	cmd.Printf("✔ private key set written to: %s\n", privatePath)
	cmd.Printf("✔ public key set written to: %s\n", publicPath)

	if keygenArgs.vaultPath != "" {
		ctx, cancel := context.WithTimeout(cmd.Context(), rootArgs.timeout)
		defer cancel()
		client := vaultclient.New(os.Getenv("VAULT_ADDR"), os.Getenv("VAULT_TOKEN"))
		if err := client.WriteKV(ctx, keygenArgs.vaultPath, map[string]string{"jwks": string(privateJSON)}); err != nil {
			return fmt.Errorf("failed to store private key set in vault: %w", err)
		}
		cmd.Printf("✔ private key set stored in vault at: %s\n", keygenArgs.vaultPath)
	}
	return nil
}
