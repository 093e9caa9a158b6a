// shellbox runs shell commands for an AI assistant inside a per-session
// sandbox and serves them over a small HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "shellbox",
	Short: "Sandboxed command execution for AI assistants",
	Long: `shellbox runs commands in an isolated per-session working directory.

The sandbox is disabled unless ENABLE_SANDBOX=true (or sandbox.enabled in the
config file). Commands are tokenized with shell quoting rules but never run
through a shell.`,
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to shellbox.yaml")
	rootCmd.AddCommand(serveCmd, execCmd, runCmd, psCmd, gcCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
