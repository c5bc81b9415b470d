// ABOUTME: Status command for the record-admin CLI
// ABOUTME: Confirms the session and summarizes what the user can reach

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/markalston/record-admin/internal/client"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session and account status",
	Long:  `Confirm the session with the backend, then fetch models and API tokens concurrently and print a summary.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runStatus(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// accountStatus is the status summary
type accountStatus struct {
	Backend       string `json:"backend"`
	Username      string `json:"username"`
	Admin         bool   `json:"admin"`
	ModelCount    int    `json:"modelCount"`
	TokensEnabled bool   `json:"tokensEnabled"`
	TokenCount    int    `json:"tokenCount"`
	MaxTokenCount int    `json:"maxTokenCount"`
}

// runStatus executes the status check and returns exit code
func runStatus(ctx context.Context, w io.Writer) int {
	a, err := setupCLI()
	if err != nil {
		return reportError(w, err)
	}

	if code, ok := requireSession(ctx, a, w); !ok {
		return code
	}
	user := a.store.User()

	var (
		models []client.Model
		tokens []client.UserToken
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		models, err = a.client.ListModels(gctx)
		return err
	})
	if user.CanGenerateTokens {
		g.Go(func() error {
			var err error
			tokens, err = a.client.MyTokens(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return reportError(w, err)
	}

	st := accountStatus{
		Backend:       a.cfg.API.URL,
		Username:      user.Username,
		Admin:         user.AdminUser,
		ModelCount:    len(models),
		TokensEnabled: user.CanGenerateTokens,
		TokenCount:    len(tokens),
		MaxTokenCount: user.MaxTokenCount,
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(st))
	} else {
		fmt.Fprintln(w, formatStatusHuman(st))
	}
	return exitOK
}

// formatStatusHuman formats the status summary for human readability
func formatStatusHuman(st accountStatus) string {
	tokens := "disabled"
	if st.TokensEnabled {
		tokens = fmt.Sprintf("%d of %d", st.TokenCount, st.MaxTokenCount)
	}
	return fmt.Sprintf(`Backend:      %s
User:         %s
Admin:        %t
Models:       %d
API tokens:   %s`, st.Backend, st.Username, st.Admin, st.ModelCount, tokens)
}
