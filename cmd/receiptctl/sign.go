package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"receiptd/internal/domain"
	"receiptd/internal/infra/crypto"
	"receiptd/internal/infra/keys"
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a receipt claims document with a private key set",
	Example: `  # Sign claims and print the compact receipt
  receiptctl sign --key-set private.jwks --claims claims.json
`,
	Args: cobra.NoArgs,
	RunE: signCmdRun,
}

type signFlags struct {
	keySet string
	claims string
	output string
}

var signArgs signFlags

func init() {
	signCmd.Flags().StringVar(&signArgs.keySet, "key-set", "", "path to the private key set")
	signCmd.Flags().StringVar(&signArgs.claims, "claims", "", "path to the receipt claims JSON")
	signCmd.Flags().StringVarP(&signArgs.output, "output", "o", "", "write the receipt to this file instead of stdout")
	rootCmd.AddCommand(signCmd)
}

func signCmdRun(cmd *cobra.Command, args []string) error {
	if signArgs.keySet == "" || signArgs.claims == "" {
		return errors.New("--key-set and --claims are required")
	}
	material, err := loadMaterial(signArgs.keySet)
	if err != nil {
		return err
	}
	if material.Signing == nil {
		return fmt.Errorf("key set %s holds no private key", signArgs.keySet)
	}

	raw, err := os.ReadFile(signArgs.claims)
	if err != nil {
		return fmt.Errorf("failed to read claims: %w", err)
	}
	var claims domain.ReceiptClaims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return fmt.Errorf("failed to parse claims: %w", err)
	}
	if claims.Issuer == "" {
		claims.Issuer = material.Issuer
	}

	token, err := (&crypto.Service{}).SignReceipt(claims, material.Signing)
	if err != nil {
		return err
	}
	if signArgs.output == "" {
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	}
	if err := os.WriteFile(signArgs.output, []byte(token+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write receipt: %w", err)
	}
	cmd.Printf("✔ receipt written to: %s\n", signArgs.output)
	return nil
}

func loadMaterial(path string) (*domain.KeyMaterial, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key set: %w", err)
	}
	material, err := keys.ParseMaterial(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key set %s: %w", path, err)
	}
	return material, nil
}
