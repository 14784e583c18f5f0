// Package cmd contains the CLI commands for the vortex client.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var apiURL string

var (
	successPrint = color.New(color.FgGreen, color.Bold).PrintfFunc()
	errorPrint   = color.New(color.FgRed, color.Bold).PrintfFunc()
	infoPrint    = color.New(color.FgCyan).PrintfFunc()
)

var rootCmd = &cobra.Command{
	Use:   "vortex-cli",
	Short: "Deploy and run serverless JavaScript functions",
	Long: `vortex-cli is the command-line client for the Vortex platform.

Examples:
  vortex-cli init                  # create a sample function
  vortex-cli deploy index.js       # deploy a function
  vortex-cli run <function_id>     # execute a deployed function
  vortex-cli logs <function_id>    # tail a function's live log stream`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		errorPrint("✗ %v\n", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "http://localhost:8080", "Vortex API URL")
}

func printSuccess(format string, a ...any) {
	successPrint("✓ "+format+"\n", a...)
}

func printInfo(format string, a ...any) {
	infoPrint("→ "+format+"\n", a...)
}

// apiError extracts the error message from an API error body.
func apiError(status int, body []byte) error {
	var resp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &resp) == nil && resp.Error != "" {
		return fmt.Errorf("API returned %d: %s", status, resp.Error)
	}
	return fmt.Errorf("API returned %d: %s", status, string(body))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
