package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"receiptd/internal/infra/crypto"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [TOKEN_FILE]",
	Short: "Verify a receipt signature and print its claims",
	Example: `  # Check a receipt against the published key set
  receiptctl inspect receipt.jws --key-set public.jwks
`,
	Args: cobra.ExactArgs(1),
	RunE: inspectCmdRun,
}

type inspectFlags struct {
	keySet string
}

var inspectArgs inspectFlags

func init() {
	inspectCmd.Flags().StringVar(&inspectArgs.keySet, "key-set", "", "path to a private or public key set")
	rootCmd.AddCommand(inspectCmd)
}

func inspectCmdRun(cmd *cobra.Command, args []string) error {
	if inspectArgs.keySet == "" {
		return errors.New("--key-set is required")
	}
	material, err := loadMaterial(inspectArgs.keySet)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read receipt: %w", err)
	}

	claims, err := (&crypto.Service{}).ParseReceipt(strings.TrimSpace(string(raw)), material)
	if err != nil {
		return fmt.Errorf("receipt rejected: %w", err)
	}
	out, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if claims.Expired(time.Now()) {
		cmd.Printf("✗ receipt expired at %s\n", claims.ExpiresAt().Format(time.RFC3339))
	} else {
		cmd.Printf("✔ receipt valid until %s\n", claims.ExpiresAt().Format(time.RFC3339))
	}
	return nil
}
