// ABOUTME: Dev-server command for the record-admin CLI
// ABOUTME: Runs the in-memory backend for local development

package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/markalston/record-admin/internal/devserver"
	"github.com/markalston/record-admin/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	devAddr      string
	devUsersFile string
)

var devServerCmd = &cobra.Command{
	Use:   "dev-server",
	Short: "Run an in-memory backend for development",
	Long: `Run an in-memory backend that honors the record-admin API under /api.

Without --users-file it seeds three accounts:
  admin/admin      admin, may generate API tokens
  user/user        regular user
  expired/expired  must change the password before signing in`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runDevServer(ctx, os.Stderr)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(devServerCmd)
	devServerCmd.Flags().StringVar(&devAddr, "addr", "", "Listen address (overrides dev.addr)")
	devServerCmd.Flags().StringVar(&devUsersFile, "users-file", "", "YAML file with user seeds (overrides dev.users_file)")
}

// runDevServer serves until ctx is canceled and returns the exit code
func runDevServer(ctx context.Context, w io.Writer) int {
	cfg, err := loadConfig()
	if err != nil {
		return reportError(w, err)
	}
	if devAddr != "" {
		cfg.Dev.Addr = devAddr
	}
	if devUsersFile != "" {
		cfg.Dev.UsersFile = devUsersFile
	}

	// Request logs are the point of a dev server, so info is not filtered
	logger, err := logging.New(cfg.Log, zapcore.Lock(zapcore.AddSync(w)))
	if err != nil {
		return reportError(w, err)
	}
	defer logger.Sync()

	opts := devserver.Options{SessionTTL: cfg.Dev.SessionTTL}
	if cfg.Dev.UsersFile != "" {
		if opts.Users, err = devserver.LoadUsers(cfg.Dev.UsersFile); err != nil {
			return reportError(w, err)
		}
	}

	srv, err := devserver.New(opts, logger)
	if err != nil {
		return reportError(w, err)
	}
	defer srv.Close()

	if err := srv.ListenAndServe(ctx, cfg.Dev.Addr); err != nil {
		logger.Error("dev server failed", zap.Error(err))
		return exitError
	}
	return exitOK
}
