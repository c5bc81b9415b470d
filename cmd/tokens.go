// ABOUTME: Token commands for the record-admin CLI
// ABOUTME: Lists, generates and deletes the signed-in user's API tokens

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/markalston/record-admin/internal/client"
	"github.com/spf13/cobra"
)

var (
	tokenName       string
	tokenExpiryDays int
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Manage your API tokens",
}

var tokensListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your API tokens",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runTokensList(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var tokensGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an API token",
	Long:  `Generate an API token. The secret is printed once and cannot be shown again.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runTokensGenerate(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var tokensDeleteCmd = &cobra.Command{
	Use:   "delete <token-id>",
	Short: "Delete an API token",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runTokensDelete(ctx, os.Stdout, args[0])
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.AddCommand(tokensListCmd, tokensGenerateCmd, tokensDeleteCmd)
	tokensGenerateCmd.Flags().StringVar(&tokenName, "name", "", "Token name (required)")
	tokensGenerateCmd.Flags().IntVar(&tokenExpiryDays, "expiry-days", 30, "Days until the token expires (1-365)")
}

// runTokensList lists tokens and returns the exit code
func runTokensList(ctx context.Context, w io.Writer) int {
	a, err := setupCLI()
	if err != nil {
		return reportError(w, err)
	}

	tokens, err := a.client.MyTokens(ctx)
	if err != nil {
		return reportError(w, err)
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(client.UserTokensResponse{Tokens: tokens}))
	} else {
		fmt.Fprintln(w, formatTokensHuman(tokens))
	}
	return exitOK
}

// runTokensGenerate creates a token and returns the exit code
func runTokensGenerate(ctx context.Context, w io.Writer) int {
	name := strings.TrimSpace(tokenName)
	if name == "" {
		return reportError(w, errors.New("--name is required"))
	}
	if tokenExpiryDays < 1 || tokenExpiryDays > 365 {
		return reportError(w, fmt.Errorf("--expiry-days must be between 1 and 365, got %d", tokenExpiryDays))
	}

	a, err := setupCLI()
	if err != nil {
		return reportError(w, err)
	}

	resp, err := a.client.GenerateToken(ctx, &client.GenerateTokenRequest{
		TokenName:  name,
		ExpiryDays: tokenExpiryDays,
	})
	if err != nil {
		return reportError(w, err)
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(resp))
	} else {
		fmt.Fprintf(w, `Token:    %s
Name:     %s
Expires:  %s

Store the token now. It will not be shown again.
`, resp.Token, resp.TokenName, resp.ExpiryDateTime)
	}
	return exitOK
}

// runTokensDelete removes a token and returns the exit code
func runTokensDelete(ctx context.Context, w io.Writer, tokenID string) int {
	a, err := setupCLI()
	if err != nil {
		return reportError(w, err)
	}

	if err := a.client.DeleteToken(ctx, tokenID); err != nil {
		return reportError(w, err)
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(map[string]string{"deleted": tokenID}))
	} else {
		fmt.Fprintf(w, "Deleted token %s\n", tokenID)
	}
	return exitOK
}

// formatTokensHuman renders tokens as a table
func formatTokensHuman(tokens []client.UserToken) string {
	if len(tokens) == 0 {
		return "No API tokens."
	}
	rows := make([][]string, 0, len(tokens))
	for _, t := range tokens {
		rows = append(rows, []string{t.ID, t.TokenName, t.TokenPrefix + "...", t.CreatedAt, t.TokenExpiryDateTime})
	}
	return renderTable([]string{"ID", "NAME", "PREFIX", "CREATED", "EXPIRES"}, rows)
}
