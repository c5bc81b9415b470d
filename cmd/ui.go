// ABOUTME: UI command for the record-admin CLI
// ABOUTME: Launches the interactive terminal client with file logging

package cmd

import (
	"fmt"

	"github.com/markalston/record-admin/internal/logging"
	"github.com/markalston/record-admin/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Start the interactive client",
	Long: `Start the interactive terminal client. Logs go to debug.log in the
config directory so they never corrupt the screen.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUI()
	},
}

func init() {
	rootCmd.AddCommand(uiCmd)
}

func runUI() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.NewFile(cfg.Log, cfg.ConfigDir)
	if err != nil {
		return err
	}
	defer closeLog()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("starting ui", zap.String("backend", cfg.API.URL))
	if err := tui.Run(a.client, a.store, a.router, logger); err != nil {
		return fmt.Errorf("ui failed: %w", err)
	}
	return nil
}
