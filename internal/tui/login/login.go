// ABOUTME: Sign-in form as a bubbletea model
// ABOUTME: Collects credentials with huh and reports them to the parent app

package login

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/markalston/record-admin/internal/tui/icons"
	"github.com/markalston/record-admin/internal/tui/styles"
)

// SubmitMsg is sent when the user submits credentials
type SubmitMsg struct {
	Username string
	Password string
}

// CancelledMsg is sent when the user leaves a form with esc
type CancelledMsg struct{}

// Form is the sign-in screen
type Form struct {
	form      *huh.Form
	username  string
	password  string
	err       string
	submitted bool
	width     int
}

// New creates a sign-in form. username pre-fills the first field and
// errMsg is shown above the form, typically the message of the previous
// failed attempt.
func New(username, errMsg string) *Form {
	f := &Form{username: username, err: errMsg}
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&f.username).
				Validate(required("username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&f.password).
				Validate(required("password")),
		).Title("Sign in").
			Description("Use your record-admin account"),
	).WithTheme(Theme()).WithShowHelp(false)
	return f
}

// Init implements tea.Model
func (f *Form) Init() tea.Cmd {
	return f.form.Init()
}

// Update implements tea.Model
func (f *Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		f.width = msg.Width
	case tea.KeyMsg:
		if msg.String() == "esc" {
			return f, func() tea.Msg { return CancelledMsg{} }
		}
	}

	form, cmd := f.form.Update(msg)
	if hf, ok := form.(*huh.Form); ok {
		f.form = hf
	}

	if f.form.State == huh.StateCompleted && !f.submitted {
		f.submitted = true
		submit := SubmitMsg{Username: strings.TrimSpace(f.username), Password: f.password}
		return f, func() tea.Msg { return submit }
	}
	return f, cmd
}

// Submitting reports whether credentials were handed to the parent
func (f *Form) Submitting() bool {
	return f.submitted
}

// Err returns the inline error shown above the form
func (f *Form) Err() string {
	return f.err
}

// View implements tea.Model
func (f *Form) View() string {
	var sb strings.Builder

	sb.WriteString(styles.Title.Render(icons.Lock.String() + " record-admin"))
	sb.WriteString("\n")
	if f.err != "" {
		sb.WriteString(styles.Error(icons.Critical.String() + " " + f.err))
		sb.WriteString("\n\n")
	}
	if f.submitted {
		sb.WriteString(styles.Subtitle.Render("Signing in as " + f.username + "..."))
		return sb.String()
	}
	sb.WriteString(f.form.View())
	return sb.String()
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}
