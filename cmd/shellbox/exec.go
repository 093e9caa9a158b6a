package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-arndt/shellbox/protocol"
)

var (
	execHost    string
	execTimeout int
)

var execCmd = &cobra.Command{
	Use:   "exec <command>",
	Short: "Run a command through a running shellbox server",
	Long: `Send a command to a running shellbox server and print its output.

The process exits with the command's exit code.

Examples:
  shellbox exec "ls -la"
  shellbox exec --timeout 10 -- python3 -c "print(1)"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	execCmd.Flags().StringVar(&execHost, "host", "http://127.0.0.1:7788", "shellbox server URL")
	execCmd.Flags().IntVar(&execTimeout, "timeout", 0, "timeout in seconds (0 = server default)")
}

func runExec(cmd *cobra.Command, args []string) error {
	body, err := json.Marshal(protocol.ExecuteRequest{
		Command: joinArgs(args),
		Timeout: protocol.Timeout(execTimeout),
	})
	if err != nil {
		return err
	}

	// the server enforces the command timeout; leave headroom for the response
	clientTimeout := time.Duration(execTimeout)*time.Second + 30*time.Second
	if execTimeout <= 0 {
		clientTimeout = 0
	}
	client := &http.Client{Timeout: clientTimeout}

	url := strings.TrimRight(execHost, "/") + "/api/sandbox/execute"
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("contacting shellbox: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr protocol.ErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Detail != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Detail)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var res protocol.ExecuteResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return printResult(cmd, res)
}

// printResult writes the command streams and exits with its code.
func printResult(cmd *cobra.Command, res protocol.ExecuteResponse) error {
	fmt.Fprint(cmd.OutOrStdout(), res.Stdout)
	fmt.Fprint(cmd.ErrOrStderr(), res.Stderr)
	if res.ExitCode != 0 {
		os.Exit(res.ExitCode)
	}
	return nil
}
