// ABOUTME: Home menu listing the screens the signed-in user may open
// ABOUTME: Admin and token entries depend on the user's profile flags

package home

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/markalston/record-admin/internal/router"
	"github.com/markalston/record-admin/internal/session"
	"github.com/markalston/record-admin/internal/tui/icons"
	"github.com/markalston/record-admin/internal/tui/styles"
)

// SelectedMsg is sent when a screen entry is chosen
type SelectedMsg struct {
	Path string
}

// LogoutMsg is sent when the log out entry is chosen
type LogoutMsg struct{}

// Item is one menu entry
type Item struct {
	Label  string
	Path   string
	Icon   icons.Icon
	Logout bool
}

// Menu is the home screen
type Menu struct {
	user   session.Profile
	items  []Item
	cursor int
}

// tokenRoute is only offered to users allowed to generate tokens
const tokenRoute = "tokens"

// hidden routes are reachable but never listed
var hidden = map[string]bool{
	router.LoginRoute:        true,
	router.HomeRoute:         true,
	"forced-change-password": true,
}

// Items builds the menu entries for a user
func Items(user session.Profile) []Item {
	var items []Item
	for _, r := range router.Table {
		if hidden[r.Name] || r.Parametric() {
			continue
		}
		if r.Admin() && !user.AdminUser {
			continue
		}
		if r.Name == tokenRoute && !user.CanGenerateTokens {
			continue
		}
		items = append(items, Item{Label: r.Title, Path: r.Path, Icon: IconFor(r)})
	}
	return append(items, Item{Label: "Log out", Icon: icons.Logout, Logout: true})
}

// IconFor picks the menu icon for r
func IconFor(r router.Route) icons.Icon {
	switch {
	case r.Name == tokenRoute || r.Name == "admin-tokens":
		return icons.Key
	case r.Name == "change-password" || r.Name == "forced-change-password":
		return icons.Lock
	case r.Name == "security-settings":
		return icons.Settings
	case r.Name == "user-admin":
		return icons.User
	case strings.HasSuffix(r.Name, "logs"):
		return icons.Logs
	case r.Name == "performance":
		return icons.Gauge
	case strings.Contains(r.Name, "record"):
		return icons.Records
	default:
		return icons.Models
	}
}

// New creates the home menu for user
func New(user session.Profile) *Menu {
	return &Menu{user: user, items: Items(user)}
}

// Init implements tea.Model
func (m *Menu) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter":
		item := m.items[m.cursor]
		if item.Logout {
			return m, func() tea.Msg { return LogoutMsg{} }
		}
		return m, func() tea.Msg { return SelectedMsg{Path: item.Path} }
	}
	return m, nil
}

// Selected returns the entry under the cursor
func (m *Menu) Selected() Item {
	return m.items[m.cursor]
}

// View implements tea.Model
func (m *Menu) View() string {
	var sb strings.Builder

	greeting := fmt.Sprintf("%s Signed in as %s", icons.User.String(), m.user.Username)
	sb.WriteString(styles.Title.Render(greeting))
	if m.user.AdminUser {
		sb.WriteString(" " + styles.Badge.Render("admin"))
	}
	sb.WriteString("\n")

	for i, item := range m.items {
		line := fmt.Sprintf("%s %s", item.Icon.String(), item.Label)
		if i == m.cursor {
			sb.WriteString(styles.Selected.Render("> " + line))
		} else {
			sb.WriteString(styles.Normal.Render("  " + line))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
