package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// executeResponse matches the API's execute response format.
type executeResponse struct {
	Output          json.RawMessage `json:"output"`
	Logs            []logEvent      `json:"logs"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
}

// logEvent is one streamed or batched log record. Level may be absent in
// output from older runtimes.
type logEvent struct {
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

var runCmd = &cobra.Command{
	Use:   "run <function_id>",
	Short: "Execute a deployed function and print its result",
	Args:  cobra.ExactArgs(1),
	RunE:  runFunction,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runFunction(cmd *cobra.Command, args []string) error {
	functionID := args[0]
	printInfo("executing %s", functionID)

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Post(apiURL+"/execute/"+functionID, "application/json", bytes.NewReader([]byte("{}")))
	if err != nil {
		return fmt.Errorf("connect to API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(resp.StatusCode, body)
	}

	var res executeResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	for _, ev := range res.Logs {
		printLogEvent(ev)
	}
	printSuccess("completed in %dms", res.ExecutionTimeMs)
	fmt.Printf("output: %s\n", res.Output)
	return nil
}

// printLogEvent renders one log record, color-coded by severity.
func printLogEvent(ev logEvent) {
	level := ev.Level
	if level == "" {
		level = "log"
	}

	c := color.New(color.Faint)
	switch level {
	case "error":
		c = color.New(color.FgRed)
	case "warn":
		c = color.New(color.FgYellow)
	case "info":
		c = color.New(color.FgCyan)
	}
	c.Printf("  %s\n", ev.Message)
}
