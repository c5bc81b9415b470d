// ABOUTME: Forced password change form as a bubbletea model
// ABOUTME: Shown when the backend refuses a login until the password is replaced

package login

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/markalston/record-admin/internal/tui/icons"
	"github.com/markalston/record-admin/internal/tui/styles"
)

// ErrPasswordMismatch is reported when the confirmation differs
var ErrPasswordMismatch = errors.New("passwords do not match")

// ErrPasswordUnchanged is reported when the new password equals the old one
var ErrPasswordUnchanged = errors.New("new password must differ from the current one")

// ChangeMsg is sent when the user submits a valid password change
type ChangeMsg struct {
	Username    string
	OldPassword string
	NewPassword string
}

// ChangeForm is the forced password change screen
type ChangeForm struct {
	form        *huh.Form
	username    string
	oldPassword string
	newPassword string
	confirm     string
	err         string
	submitted   bool
}

// NewChange creates the form. notice is shown above it, usually the
// backend's explanation of why the password must change.
func NewChange(username, notice string) *ChangeForm {
	c := &ChangeForm{username: username, err: notice}
	c.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&c.username).
				Validate(required("username")),
			huh.NewInput().
				Title("Current password").
				EchoMode(huh.EchoModePassword).
				Value(&c.oldPassword).
				Validate(required("current password")),
			huh.NewInput().
				Title("New password").
				EchoMode(huh.EchoModePassword).
				Value(&c.newPassword).
				Validate(required("new password")),
			huh.NewInput().
				Title("Confirm new password").
				EchoMode(huh.EchoModePassword).
				Value(&c.confirm).
				Validate(required("confirmation")),
		).Title("Change password").
			Description("Your password has expired and must be replaced before you can sign in"),
	).WithTheme(Theme()).WithShowHelp(false)
	return c
}

// ValidateChange checks a submitted change before it is sent
func ValidateChange(oldPassword, newPassword, confirm string) error {
	if newPassword != confirm {
		return ErrPasswordMismatch
	}
	if newPassword == oldPassword {
		return ErrPasswordUnchanged
	}
	return nil
}

// Init implements tea.Model
func (c *ChangeForm) Init() tea.Cmd {
	return c.form.Init()
}

// Update implements tea.Model
func (c *ChangeForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		return c, func() tea.Msg { return CancelledMsg{} }
	}

	form, cmd := c.form.Update(msg)
	if hf, ok := form.(*huh.Form); ok {
		c.form = hf
	}

	if c.form.State != huh.StateCompleted || c.submitted {
		return c, cmd
	}

	if err := ValidateChange(c.oldPassword, c.newPassword, c.confirm); err != nil {
		next := NewChange(c.username, err.Error())
		return next, next.Init()
	}

	c.submitted = true
	change := ChangeMsg{
		Username:    strings.TrimSpace(c.username),
		OldPassword: c.oldPassword,
		NewPassword: c.newPassword,
	}
	return c, func() tea.Msg { return change }
}

// Err returns the notice or validation error shown above the form
func (c *ChangeForm) Err() string {
	return c.err
}

// View implements tea.Model
func (c *ChangeForm) View() string {
	var sb strings.Builder

	sb.WriteString(styles.Title.Render(icons.Key.String() + " Password change required"))
	sb.WriteString("\n")
	if c.err != "" {
		sb.WriteString(styles.StatusWarning.Render(icons.Warning.String() + " " + c.err))
		sb.WriteString("\n\n")
	}
	if c.submitted {
		sb.WriteString(styles.Subtitle.Render("Updating password..."))
		return sb.String()
	}
	sb.WriteString(c.form.View())
	return sb.String()
}
