package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs <function_id>",
	Short: "Tail the live log stream of a function",
	Long: `Subscribes to the function's log topic over WebSocket and prints
events as they arrive. Only events published while attached are shown; the
execute response carries the authoritative full batch. Detach with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	wsEndpoint, err := websocketURL(apiURL, args[0])
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", wsEndpoint, err)
	}
	defer conn.Close()

	printInfo("streaming logs for %s (Ctrl-C to detach)", args[0])

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				printInfo("stream complete")
				return nil
			}
			return nil
		}

		var ev logEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			// Not a log event frame; show it raw.
			fmt.Printf("  %s\n", payload)
			continue
		}
		printLogEvent(ev)
	}
}

// websocketURL converts the API base URL into the ws endpoint for a
// function's log stream.
func websocketURL(base, functionID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse API URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/" + functionID
	return u.String(), nil
}
