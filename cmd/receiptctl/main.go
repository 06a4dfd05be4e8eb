package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const timeout = 30 * time.Second

var rootCmd = &cobra.Command{
	Use:           "receiptctl",
	Short:         "Manage receipt signing keys and inspect receipts",
	SilenceUsage:  true,
	SilenceErrors: true,
}

type rootFlags struct {
	timeout time.Duration
}

var rootArgs = rootFlags{timeout: timeout}

func init() {
	rootCmd.PersistentFlags().DurationVar(&rootArgs.timeout, "timeout", timeout,
		"timeout for remote operations")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

func isDir(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("directory %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to check path %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path %s is not a directory", path)
	}
	return nil
}
