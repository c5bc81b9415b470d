// ABOUTME: Models command for the record-admin CLI
// ABOUTME: Lists the record models defined on the backend

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/markalston/record-admin/internal/client"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List record models",
	Long:  `List the record models defined on the backend. Requires a session.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runModels(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

// runModels lists models and returns the exit code
func runModels(ctx context.Context, w io.Writer) int {
	a, err := setupCLI()
	if err != nil {
		return reportError(w, err)
	}

	models, err := a.client.ListModels(ctx)
	if err != nil {
		return reportError(w, err)
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(client.ModelsResponse{Models: models}))
	} else {
		fmt.Fprintln(w, formatModelsHuman(models))
	}
	return exitOK
}

// formatModelsHuman renders models as a table
func formatModelsHuman(models []client.Model) string {
	if len(models) == 0 {
		return "No models defined."
	}
	rows := make([][]string, 0, len(models))
	for _, m := range models {
		rows = append(rows, []string{m.ID, m.Name, strconv.Itoa(len(m.Fields)), m.Description})
	}
	return renderTable([]string{"ID", "NAME", "FIELDS", "DESCRIPTION"}, rows)
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		String()
}
