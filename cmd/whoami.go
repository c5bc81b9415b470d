// ABOUTME: Whoami command for the record-admin CLI
// ABOUTME: Confirms the cached session with the backend and prints the profile

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/markalston/record-admin/internal/session"
	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Long:  `Ask the backend who is signed in and print the profile. An expired session is cleared locally.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runWhoami(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

// runWhoami validates the session and returns the exit code
func runWhoami(ctx context.Context, w io.Writer) int {
	a, err := setupCLI()
	if err != nil {
		return reportError(w, err)
	}

	if code, ok := requireSession(ctx, a, w); !ok {
		return code
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(a.store.User()))
	} else {
		fmt.Fprintln(w, formatProfileHuman(a.store.User()))
	}
	return exitOK
}

// requireSession confirms a cached session with the backend. It reports
// false with the exit code to use when nobody is signed in.
func requireSession(ctx context.Context, a *app, w io.Writer) (int, bool) {
	if !a.store.IsAuthenticated() {
		fmt.Fprintln(w, "Not logged in. Run 'record-admin login' first.")
		return exitAuthFailure, false
	}
	if !a.store.ValidateSession(ctx) {
		fmt.Fprintln(w, "Session expired. Run 'record-admin login' to sign in again.")
		return exitAuthFailure, false
	}
	return exitOK, true
}

// formatProfileHuman formats a profile for human readability
func formatProfileHuman(p *session.Profile) string {
	tokens := "no"
	if p.CanGenerateTokens {
		tokens = fmt.Sprintf("yes (max %d)", p.MaxTokenCount)
	}
	return fmt.Sprintf(`Username:     %s
Admin:        %t
API tokens:   %s`, p.Username, p.AdminUser, tokens)
}
