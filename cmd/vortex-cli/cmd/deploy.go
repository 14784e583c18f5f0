package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var deployCmd = &cobra.Command{
	Use:   "deploy <file.js>",
	Short: "Deploy a JavaScript function",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	body, err := json.Marshal(map[string]string{"source": string(source)})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(apiURL+"/deploy", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("connect to API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return apiError(resp.StatusCode, respBody)
	}

	var out struct {
		FunctionID string `json:"function_id"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	printSuccess("deployed %s (%d bytes)", args[0], len(source))
	printInfo("function id: %s", out.FunctionID)
	printInfo("run it with: vortex-cli run %s", out.FunctionID)
	return nil
}
