// ABOUTME: Progress bar with visual threshold zones
// ABOUTME: Shows how much of the API token quota is in use

package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/markalston/record-admin/internal/tui/styles"
)

// ProgressBarConfig holds configuration for the progress bar
type ProgressBarConfig struct {
	Width         int
	WarnThreshold float64 // Percentage where warning zone starts (default 80)
	CritThreshold float64 // Percentage where critical zone starts (default 100)
	OKColor       lipgloss.Color
	WarnColor     lipgloss.Color
	CritColor     lipgloss.Color
	EmptyColor    lipgloss.Color
}

// DefaultProgressBarConfig returns the quota bar defaults
func DefaultProgressBarConfig() ProgressBarConfig {
	return ProgressBarConfig{
		Width:         20,
		WarnThreshold: 80,
		CritThreshold: 100,
		OKColor:       styles.Secondary,
		WarnColor:     styles.Warning,
		CritColor:     styles.Danger,
		EmptyColor:    styles.Surface,
	}
}

// ProgressBar renders a bar whose filled cells take the color of the zone
// the overall percentage falls in
func ProgressBar(percent float64, config ProgressBarConfig) string {
	if config.Width <= 0 {
		config.Width = 20
	}
	percent = clamp(percent)

	filled := int(percent / 100.0 * float64(config.Width))

	color := config.OKColor
	if percent >= config.CritThreshold {
		color = config.CritColor
	} else if percent >= config.WarnThreshold {
		color = config.WarnColor
	}

	filledStyle := lipgloss.NewStyle().Foreground(color)
	emptyStyle := lipgloss.NewStyle().Foreground(config.EmptyColor)

	var bar strings.Builder
	bar.WriteString("[")
	bar.WriteString(filledStyle.Render(strings.Repeat("█", filled)))
	bar.WriteString(emptyStyle.Render(strings.Repeat("░", config.Width-filled)))
	bar.WriteString("]")
	return bar.String()
}

// QuotaLevel classifies used out of limit
func QuotaLevel(used, limit int) StatusLevel {
	if limit <= 0 || used >= limit {
		return StatusCritical
	}
	if quotaPercent(used, limit) >= DefaultProgressBarConfig().WarnThreshold {
		return StatusWarning
	}
	return StatusOK
}

// QuotaBar renders "[██░░] used/limit" for a token quota
func QuotaBar(used, limit, width int) string {
	config := DefaultProgressBarConfig()
	config.Width = width
	return fmt.Sprintf("%s %d/%d", ProgressBar(quotaPercent(used, limit), config), used, limit)
}

func quotaPercent(used, limit int) float64 {
	if limit <= 0 {
		return 100
	}
	return float64(used) / float64(limit) * 100
}

func clamp(percent float64) float64 {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
