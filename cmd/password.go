// ABOUTME: Change-password command for the record-admin CLI
// ABOUTME: Replaces an expired password for a user told to change it at login

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/markalston/record-admin/internal/client"
	"github.com/markalston/record-admin/internal/tui/login"
	"github.com/spf13/cobra"
)

var changeUsername string

var changePasswordCmd = &cobra.Command{
	Use:   "change-password",
	Short: "Replace an expired password",
	Long: `Replace the password of a user whose login was refused because the
password expired. No session is needed; sign in afterwards with the new
password.

With --password-stdin the current password, the new password and its
confirmation are read as three lines of stdin.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runChangePassword(ctx, os.Stdin, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(changePasswordCmd)
	changePasswordCmd.Flags().StringVarP(&changeUsername, "username", "u", "", "Username (prompted when empty)")
	changePasswordCmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the passwords from stdin")
}

// runChangePassword performs the forced change and returns the exit code
func runChangePassword(ctx context.Context, in io.Reader, w io.Writer) int {
	a, err := setupCLI()
	if err != nil {
		return reportError(w, err)
	}

	lines := bufio.NewReader(in)
	username := strings.TrimSpace(changeUsername)
	if username == "" {
		fmt.Fprint(w, "Username: ")
		if username, err = readLine(lines); err != nil {
			return reportError(w, err)
		}
	}
	if username == "" {
		return reportError(w, errors.New("username is required"))
	}

	var secrets [3]string
	for i, prompt := range []string{"Current password: ", "New password: ", "Confirm new password: "} {
		if secrets[i], err = readSecret(in, lines, w, prompt); err != nil {
			return reportError(w, err)
		}
	}
	oldPassword, newPassword, confirm := secrets[0], secrets[1], secrets[2]

	if newPassword == "" {
		return reportError(w, errors.New("new password is required"))
	}
	if err := login.ValidateChange(oldPassword, newPassword, confirm); err != nil {
		return reportError(w, err)
	}

	if err := a.store.ForcedChangePassword(ctx, username, oldPassword, newPassword); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			fmt.Fprintln(w, "Error: current password is incorrect")
			return exitAuthFailure
		}
		return reportError(w, err)
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(map[string]bool{"success": true}))
	} else {
		fmt.Fprintln(w, "Password changed. Run 'record-admin login' with your new password.")
	}
	return exitOK
}
