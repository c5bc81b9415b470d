// ABOUTME: Root command for the record-admin CLI
// ABOUTME: Handles global flags, exit codes and output helpers

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/markalston/record-admin/internal/client"
	"github.com/spf13/cobra"
)

var (
	apiURL     string
	jsonOutput bool
	configPath string
)

// Exit codes shared by every command
const (
	exitOK          = 0
	exitAuthFailure = 1
	exitError       = 2
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "record-admin",
	Short: "Terminal client for the record-admin backend",
	Long: `record-admin signs in to a record-admin backend and keeps the session
between invocations. Run "record-admin ui" for the interactive client.

Exit codes:
  0 - Success
  1 - Not signed in, session expired or access denied
  2 - Error (connectivity, invalid input, backend failure)

Environment Variables:
  RECORD_ADMIN_API_URL     Backend API URL (default: http://localhost:8080/api)
  RECORD_ADMIN_CONFIG_DIR  Directory for config.yaml, the session and debug.log
  RECORD_ADMIN_LOG_LEVEL   debug, info, warn or error`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API URL (overrides RECORD_ADMIN_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <config dir>/config.yaml)")
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// reportError prints err and maps it to an exit code
func reportError(w io.Writer, err error) int {
	if errors.Is(err, client.ErrAuthenticationFailed) {
		fmt.Fprintln(w, "Error: session expired or access denied. Run 'record-admin login' to sign in again.")
		return exitAuthFailure
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	return exitError
}

func formatJSON(v interface{}) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data)
}
