// ABOUTME: Login and logout commands for the record-admin CLI
// ABOUTME: Reads the password from the terminal or stdin and persists the session

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/markalston/record-admin/internal/router"
	"github.com/markalston/record-admin/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	loginUsername string
	passwordStdin bool
)

var errNoTerminal = errors.New("stdin is not a terminal; use --password-stdin")

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the backend",
	Long: `Sign in and keep the session for later commands.

The password is read from the terminal without echo, or from the first line
of stdin with --password-stdin.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runLogin(ctx, os.Stdin, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session",
	Long:  `End the backend session and forget the local profile and cookies. Local state is cleared even when the backend cannot be reached.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runLogout(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username (prompted when empty)")
	loginCmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
}

// runLogin signs in and returns the exit code
func runLogin(ctx context.Context, in io.Reader, w io.Writer) int {
	a, err := setupCLI()
	if err != nil {
		return reportError(w, err)
	}

	lines := bufio.NewReader(in)
	username := strings.TrimSpace(loginUsername)
	if username == "" {
		fmt.Fprint(w, "Username: ")
		username, err = readLine(lines)
		if err != nil {
			return reportError(w, err)
		}
	}
	if username == "" {
		return reportError(w, errors.New("username is required"))
	}

	password, err := readSecret(in, lines, w, "Password: ")
	if err != nil {
		return reportError(w, err)
	}

	result := a.store.Login(ctx, username, password)
	if !result.Success {
		return reportLoginFailure(w, result)
	}
	if err := a.router.Navigate(router.HomePath); err != nil {
		a.logger.Debug("post-login navigation failed", zap.Error(err))
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(a.store.User()))
	} else {
		fmt.Fprintf(w, "Logged in as %s\n", a.store.User().Username)
	}
	return exitOK
}

func reportLoginFailure(w io.Writer, result session.LoginResult) int {
	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(result))
	} else {
		fmt.Fprintf(w, "Error: %s\n", result.Error)
		if result.MustChangePassword {
			fmt.Fprintln(w, "Run 'record-admin change-password' to set a new password.")
		}
	}

	switch result.Reason {
	case session.ReasonInvalidCredentials, session.ReasonMustChangePassword:
		return exitAuthFailure
	default:
		return exitError
	}
}

// runLogout ends the session and returns the exit code
func runLogout(ctx context.Context, w io.Writer) int {
	a, err := setupCLI()
	if err != nil {
		return reportError(w, err)
	}

	a.store.Logout(ctx)
	if err := a.router.Navigate(router.LoginPath); err != nil {
		a.logger.Debug("post-logout navigation failed", zap.Error(err))
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(map[string]bool{"success": true}))
	} else {
		fmt.Fprintln(w, "Logged out.")
	}
	return exitOK
}

// readSecret reads a secret without echo from a terminal, or as one line of
// stdin when --password-stdin is set
func readSecret(in io.Reader, lines *bufio.Reader, w io.Writer, prompt string) (string, error) {
	if passwordStdin {
		return readLine(lines)
	}

	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "", errNoTerminal
	}

	fmt.Fprint(w, prompt)
	secret, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(secret), nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
