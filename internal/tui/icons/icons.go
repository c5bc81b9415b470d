// ABOUTME: Icon system with Nerd Font detection and Unicode fallback
// ABOUTME: Provides consistent iconography across different terminal capabilities

package icons

import (
	"os"
	"strings"
	"sync"
)

// EnvNerdFonts forces Nerd Font icons on ("1"/"true") or off
const EnvNerdFonts = "RECORD_ADMIN_NERD_FONTS"

var (
	useNerdFonts     bool
	nerdFontDetected sync.Once
)

// nerdFontTerminals typically ship with a Nerd Font configured
var nerdFontTerminals = []string{
	"iTerm.app",
	"alacritty",
	"WezTerm",
	"kitty",
	"ghostty",
}

func detectNerdFonts() bool {
	if env := os.Getenv(EnvNerdFonts); env != "" {
		return env == "1" || strings.EqualFold(env, "true")
	}

	term := os.Getenv("TERM")
	termProgram := os.Getenv("TERM_PROGRAM")
	for _, t := range nerdFontTerminals {
		if strings.Contains(termProgram, t) || strings.Contains(term, strings.ToLower(t)) {
			return true
		}
	}

	return os.Getenv("NERD_FONTS") == "1"
}

// HasNerdFonts returns true if Nerd Fonts are available
func HasNerdFonts() bool {
	nerdFontDetected.Do(func() {
		useNerdFonts = detectNerdFonts()
	})
	return useNerdFonts
}

// Icon represents an icon with Nerd Font and Unicode fallback variants
type Icon struct {
	NerdFont string
	Fallback string
}

// String returns the appropriate icon based on font availability
func (i Icon) String() string {
	if HasNerdFonts() {
		return i.NerdFont
	}
	return i.Fallback
}

// Icon definitions - Nerd Font codepoints with Unicode fallbacks
var (
	// Status indicators
	CheckOK  = Icon{"", "✓"} // nf-oct-check_circle
	Warning  = Icon{"", "⚠"} // nf-oct-alert
	Critical = Icon{"", "✗"} // nf-oct-x_circle
	Info     = Icon{"", "ℹ"} // nf-oct-info

	// Session
	User   = Icon{"󰀄", "☺"} // nf-md-account
	Admin  = Icon{"󰒃", "⛊"} // nf-md-shield_check
	Lock   = Icon{"󰌾", "▣"} // nf-md-lock
	Key    = Icon{"󰌆", "⚷"} // nf-md-key
	Logout = Icon{"󰍃", "⏻"} // nf-md-logout

	// Content
	Models  = Icon{"󰆼", "▤"} // nf-md-database
	Records = Icon{"󰈙", "□"} // nf-md-file_document
	Logs    = Icon{"󰌱", "≡"} // nf-md-text_box
	Gauge   = Icon{"󰓅", "◐"} // nf-md-gauge

	// Application
	App      = Icon{"󰆼", "◈"} // nf-md-database
	Settings = Icon{"󰒓", "⚙"} // nf-md-cog
)
