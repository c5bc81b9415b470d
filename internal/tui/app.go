// ABOUTME: Root bubbletea model for the TUI application
// ABOUTME: Picks the screen from the router's current route and runs session commands

package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/markalston/record-admin/internal/client"
	"github.com/markalston/record-admin/internal/router"
	"github.com/markalston/record-admin/internal/session"
	"github.com/markalston/record-admin/internal/tui/home"
	"github.com/markalston/record-admin/internal/tui/icons"
	"github.com/markalston/record-admin/internal/tui/listing"
	"github.com/markalston/record-admin/internal/tui/login"
	"github.com/markalston/record-admin/internal/tui/styles"
	"github.com/markalston/record-admin/internal/tui/widgets"
	"go.uber.org/zap"
)

// Screen represents the current TUI screen
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenChangePassword
	ScreenHome
	ScreenModels
	ScreenTokens
	ScreenPlaceholder
)

// Layout constants
const (
	minTerminalWidth = 80 // Minimum width of the frame
	frameOverhead    = 2  // Header and footer lines
)

const forcedChangeRoute = "forced-change-password"

// Session is the part of the session store the TUI drives
type Session interface {
	IsAuthenticated() bool
	Provisional() bool
	User() *session.Profile
	Login(ctx context.Context, username, password string) session.LoginResult
	Logout(ctx context.Context)
	ValidateSession(ctx context.Context) bool
	ForcedChangePassword(ctx context.Context, username, oldPassword, newPassword string) error
}

// API is the part of the client facade the listing screens use
type API interface {
	ListModels(ctx context.Context) ([]client.Model, error)
	MyTokens(ctx context.Context) ([]client.UserToken, error)
	DeleteToken(ctx context.Context, tokenID string) error
}

// NavigateMsg asks the app to move to another route. The client facade
// delivers it through Program.Send after an authentication failure.
type NavigateMsg struct {
	Path string
}

type sessionValidatedMsg struct {
	ok bool
}

type loginResultMsg struct {
	username string
	result   session.LoginResult
}

type passwordChangedMsg struct {
	username string
	err      error
}

type loggedOutMsg struct{}

type modelsLoadedMsg struct {
	models []client.Model
	err    error
}

type tokensLoadedMsg struct {
	tokens []client.UserToken
	err    error
}

type tokenDeletedMsg struct {
	err error
}

// App is the root model for the TUI
type App struct {
	api     API
	session Session
	router  *router.Router
	logger  *zap.Logger

	screen     Screen
	width      int
	height     int
	validating bool
	lastUpdate time.Time
	startCmd   tea.Cmd

	// status is a one-line notice shown on the next screen
	status string
	// pendingUser carries the username between the sign-in forms
	pendingUser string
	loginErr    string

	// Child models
	loginForm  *login.Form
	changeForm *login.ChangeForm
	homeMenu   *home.Menu
	list       *listing.Listing
}

// New creates the TUI application and enters the home route, which the
// guard turns into the login screen when nobody is signed in.
func New(api API, sess Session, r *router.Router, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		api:     api,
		session: sess,
		router:  r,
		logger:  logger,
	}
	a.startCmd = a.navigate(router.HomePath)
	return a
}

// Init implements tea.Model. A session restored from the local cache is
// validated against the backend before it is trusted.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.startCmd}
	if a.session.Provisional() {
		a.validating = true
		cmds = append(cmds, a.validateSession())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.list != nil {
			a.list.SetSize(a.frameWidth(), a.contentHeight())
		}
		return a.forwardToForm(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a.handleKey(msg)

	case NavigateMsg:
		return a, a.navigate(msg.Path)

	case sessionValidatedMsg:
		a.validating = false
		if !msg.ok {
			a.status = "Your session has expired. Sign in again."
		}
		// Re-enter the current route so the guard sees the confirmed state
		return a, a.navigate(a.router.Current().Path)

	case login.SubmitMsg:
		return a, a.signIn(msg.Username, msg.Password)

	case loginResultMsg:
		return a.handleLoginResult(msg)

	case login.ChangeMsg:
		return a, a.changePassword(msg)

	case passwordChangedMsg:
		if msg.err != nil {
			a.changeForm = login.NewChange(msg.username, errorText(msg.err))
			return a, a.changeForm.Init()
		}
		a.pendingUser = msg.username
		a.loginErr = ""
		a.status = "Password changed. Sign in with your new password."
		return a, a.navigate(router.LoginPath)

	case login.CancelledMsg:
		if a.screen == ScreenChangePassword {
			return a, a.navigate(router.LoginPath)
		}
		return a, tea.Quit

	case home.SelectedMsg:
		return a, a.navigate(msg.Path)

	case home.LogoutMsg:
		return a, a.logout()

	case loggedOutMsg:
		a.status = "Signed out."
		return a, a.navigate(router.LoginPath)

	case modelsLoadedMsg:
		if a.screen != ScreenModels || a.list == nil || a.authFailed(msg.err) {
			return a, nil
		}
		if msg.err != nil {
			a.list.SetError(errorText(msg.err))
			return a, nil
		}
		a.list.SetRows(modelRows(msg.models))
		a.lastUpdate = time.Now()
		return a, nil

	case tokensLoadedMsg:
		if a.screen != ScreenTokens || a.list == nil || a.authFailed(msg.err) {
			return a, nil
		}
		if msg.err != nil {
			a.list.SetError(errorText(msg.err))
			return a, nil
		}
		a.lastUpdate = time.Now()
		a.list.SetRows(tokenRows(msg.tokens, a.lastUpdate))
		return a, nil

	case tokenDeletedMsg:
		if a.screen != ScreenTokens || a.list == nil || a.authFailed(msg.err) {
			return a, nil
		}
		if msg.err != nil {
			a.list.SetError(errorText(msg.err))
			return a, nil
		}
		return a, tea.Batch(a.list.Reload(), a.loadTokens())

	case spinner.TickMsg:
		if a.list != nil {
			var cmd tea.Cmd
			a.list, cmd = a.list.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	// Forward unknown messages to the active form (needed for huh form internals)
	return a.forwardToForm(msg)
}

// authFailed reports whether err is an intercepted 401/403. The facade has
// already cleared the session and asked for the login route, so the error
// itself is not shown.
func (a *App) authFailed(err error) bool {
	if errors.Is(err, client.ErrAuthenticationFailed) {
		a.logger.Debug("listing aborted by authentication failure")
		return true
	}
	return false
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.screen {
	case ScreenLogin, ScreenChangePassword:
		return a.forwardToForm(msg)

	case ScreenHome:
		if msg.String() == "q" {
			return a, tea.Quit
		}
		if a.homeMenu != nil {
			_, cmd := a.homeMenu.Update(msg)
			return a, cmd
		}

	case ScreenModels, ScreenTokens:
		switch msg.String() {
		case "q":
			return a, tea.Quit
		case "esc", "b":
			return a, a.back()
		case "r":
			return a, a.reload()
		case "d":
			if a.screen == ScreenTokens {
				return a, a.deleteSelectedToken()
			}
		}
		if a.list != nil {
			var cmd tea.Cmd
			a.list, cmd = a.list.Update(msg)
			return a, cmd
		}

	case ScreenPlaceholder:
		switch msg.String() {
		case "q":
			return a, tea.Quit
		case "esc", "b":
			return a, a.back()
		}
	}
	return a, nil
}

func (a *App) forwardToForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch {
	case a.screen == ScreenLogin && a.loginForm != nil:
		_, cmd := a.loginForm.Update(msg)
		return a, cmd
	case a.screen == ScreenChangePassword && a.changeForm != nil:
		model, cmd := a.changeForm.Update(msg)
		a.changeForm = model.(*login.ChangeForm)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleLoginResult(msg loginResultMsg) (tea.Model, tea.Cmd) {
	if msg.result.Success {
		a.loginErr = ""
		a.pendingUser = ""
		a.status = ""
		return a, a.navigate(router.HomePath)
	}

	a.logger.Info("login failed",
		zap.String("username", msg.username),
		zap.String("reason", msg.result.Reason.String()))

	if msg.result.MustChangePassword {
		a.pendingUser = msg.username
		a.status = msg.result.Error
		return a, a.navigate("/" + forcedChangeRoute)
	}

	a.pendingUser = msg.username
	a.loginErr = msg.result.Error
	a.loginForm = login.New(msg.username, msg.result.Error)
	return a, a.loginForm.Init()
}

// navigate moves the router and builds the screen for wherever the guard
// let it land
func (a *App) navigate(path string) tea.Cmd {
	if err := a.router.Navigate(path); err != nil {
		a.logger.Warn("navigation failed", zap.String("path", path), zap.Error(err))
		a.status = err.Error()
		return nil
	}
	return a.enter()
}

func (a *App) back() tea.Cmd {
	if err := a.router.Back(); err != nil {
		return a.navigate(router.HomePath)
	}
	return a.enter()
}

func (a *App) enter() tea.Cmd {
	current := a.router.Current()
	a.list = nil
	a.loginForm = nil
	a.changeForm = nil
	a.homeMenu = nil

	switch current.Route.Name {
	case router.LoginRoute:
		a.screen = ScreenLogin
		a.loginForm = login.New(a.pendingUser, a.loginErr)
		return a.loginForm.Init()

	case forcedChangeRoute:
		a.screen = ScreenChangePassword
		a.changeForm = login.NewChange(a.pendingUser, a.takeStatus())
		return a.changeForm.Init()

	case router.HomeRoute:
		a.screen = ScreenHome
		user := a.session.User()
		if user == nil {
			user = &session.Profile{}
		}
		a.homeMenu = home.New(*user)
		return nil

	case "models":
		a.screen = ScreenModels
		a.list = listing.New(current.Route.Title, "No models defined yet", modelColumns)
		a.list.SetSize(a.frameWidth(), a.contentHeight())
		return tea.Batch(a.list.Init(), a.loadModels())

	case "tokens":
		a.screen = ScreenTokens
		a.list = listing.New(current.Route.Title, "You have no API tokens", tokenColumns)
		a.list.SetSize(a.frameWidth(), a.contentHeight())
		return tea.Batch(a.list.Init(), a.loadTokens())

	default:
		a.screen = ScreenPlaceholder
		return nil
	}
}

// takeStatus returns the pending notice and clears it
func (a *App) takeStatus() string {
	s := a.status
	a.status = ""
	return s
}

func (a *App) reload() tea.Cmd {
	if a.list == nil {
		return nil
	}
	switch a.screen {
	case ScreenModels:
		return tea.Batch(a.list.Reload(), a.loadModels())
	case ScreenTokens:
		return tea.Batch(a.list.Reload(), a.loadTokens())
	}
	return nil
}

func (a *App) validateSession() tea.Cmd {
	return func() tea.Msg {
		return sessionValidatedMsg{ok: a.session.ValidateSession(context.Background())}
	}
}

func (a *App) signIn(username, password string) tea.Cmd {
	return func() tea.Msg {
		result := a.session.Login(context.Background(), username, password)
		return loginResultMsg{username: username, result: result}
	}
}

func (a *App) changePassword(msg login.ChangeMsg) tea.Cmd {
	return func() tea.Msg {
		err := a.session.ForcedChangePassword(context.Background(), msg.Username, msg.OldPassword, msg.NewPassword)
		return passwordChangedMsg{username: msg.Username, err: err}
	}
}

func (a *App) logout() tea.Cmd {
	return func() tea.Msg {
		a.session.Logout(context.Background())
		return loggedOutMsg{}
	}
}

func (a *App) loadModels() tea.Cmd {
	return func() tea.Msg {
		models, err := a.api.ListModels(context.Background())
		return modelsLoadedMsg{models: models, err: err}
	}
}

func (a *App) loadTokens() tea.Cmd {
	return func() tea.Msg {
		tokens, err := a.api.MyTokens(context.Background())
		return tokensLoadedMsg{tokens: tokens, err: err}
	}
}

func (a *App) deleteSelectedToken() tea.Cmd {
	if a.list == nil || a.list.Loading() {
		return nil
	}
	row := a.list.SelectedRow()
	if len(row) == 0 {
		return nil
	}
	tokenID := row[0]
	return func() tea.Msg {
		return tokenDeletedMsg{err: a.api.DeleteToken(context.Background(), tokenID)}
	}
}

var modelColumns = []table.Column{
	{Title: "ID", Width: 10},
	{Title: "Name", Width: 24},
	{Title: "Fields", Width: 6},
	{Title: "Description", Width: 36},
}

var tokenColumns = []table.Column{
	{Title: "ID", Width: 10},
	{Title: "Name", Width: 20},
	{Title: "Prefix", Width: 10},
	{Title: "Created", Width: 20},
	{Title: "Expires", Width: 20},
}

func modelRows(models []client.Model) []table.Row {
	rows := make([]table.Row, 0, len(models))
	for _, m := range models {
		rows = append(rows, table.Row{m.ID, m.Name, strconv.Itoa(len(m.Fields)), m.Description})
	}
	return rows
}

func tokenRows(tokens []client.UserToken, now time.Time) []table.Row {
	rows := make([]table.Row, 0, len(tokens))
	for _, t := range tokens {
		rows = append(rows, table.Row{t.ID, t.TokenName, t.TokenPrefix, t.CreatedAt, widgets.ExpiryLabel(t.TokenExpiryDateTime, now)})
	}
	return rows
}

// errorText picks the message a user should see for err
func errorText(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// View implements tea.Model
func (a *App) View() string {
	var content string

	switch a.screen {
	case ScreenLogin:
		content = a.viewLogin()
	case ScreenChangePassword:
		if a.changeForm != nil {
			content = a.changeForm.View()
		}
	case ScreenHome:
		content = a.viewHome()
	case ScreenModels:
		if a.list != nil {
			content = a.list.View()
		}
	case ScreenTokens:
		content = a.viewTokens()
	default:
		content = a.viewPlaceholder()
	}

	return a.wrapWithFrame(content)
}

// viewTokens adds the quota bar above the token listing
func (a *App) viewTokens() string {
	if a.list == nil {
		return ""
	}
	user := a.session.User()
	if user == nil || a.list.Loading() || a.list.Err() != "" {
		return a.list.View()
	}

	used := a.list.Len()
	quota := widgets.StatusText("Quota "+widgets.QuotaBar(used, user.MaxTokenCount, 20), widgets.QuotaLevel(used, user.MaxTokenCount))
	return quota + "\n\n" + a.list.View()
}

func (a *App) viewLogin() string {
	var sb strings.Builder
	if a.status != "" {
		sb.WriteString(lipgloss.NewStyle().Foreground(styles.Info).Render(icons.Info.String() + " " + a.status))
		sb.WriteString("\n\n")
	}
	if a.loginForm != nil {
		sb.WriteString(a.loginForm.View())
	}
	return sb.String()
}

func (a *App) viewHome() string {
	var sb strings.Builder
	if a.validating {
		sb.WriteString(styles.Subtitle.Render("Checking your session..."))
		sb.WriteString("\n")
	}
	if a.homeMenu != nil {
		sb.WriteString(a.homeMenu.View())
	}
	return sb.String()
}

func (a *App) viewPlaceholder() string {
	current := a.router.Current()

	var sb strings.Builder
	sb.WriteString(styles.Title.Render(home.IconFor(current.Route).String() + " " + current.Route.Title))
	sb.WriteString("\n")
	sb.WriteString(styles.Subtitle.Render(current.Path))
	sb.WriteString("\n")

	var body strings.Builder
	for _, segment := range strings.Split(current.Route.Path, "/") {
		if name, ok := strings.CutPrefix(segment, ":"); ok {
			body.WriteString(fmt.Sprintf("%s: %s\n", name, current.Params[name]))
		}
	}
	body.WriteString(styles.Help.Render(icons.Info.String() + " This screen is only available in the web client."))

	sb.WriteString(styles.Panel.Render(body.String()))
	return sb.String()
}

// frameWidth is the terminal width minus one column, which keeps some
// terminals from wrapping the frame
func (a *App) frameWidth() int {
	width := a.width - 1
	if width < minTerminalWidth {
		width = minTerminalWidth
	}
	return width
}

// contentHeight is the height left between header and footer
func (a *App) contentHeight() int {
	return a.height - frameOverhead
}

// renderHeader creates the header bar with app branding and the signed-in user
func (a *App) renderHeader() string {
	width := a.frameWidth()

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	titleStyle := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	contextStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	leftText := fmt.Sprintf(" %s %s ", icons.App.String(), titleStyle.Render("record-admin"))

	rightText := ""
	if user := a.session.User(); user != nil && a.screen != ScreenLogin {
		label := icons.User.String() + " " + user.Username
		if user.AdminUser {
			label = icons.Admin.String() + " " + user.Username + " (admin)"
		}
		rightText = " " + contextStyle.Render(label) + " "
	}

	fillWidth := width - 4 - lipgloss.Width(leftText) - lipgloss.Width(rightText) // -4 for ╭─ and ─╮
	if fillWidth < 0 {
		fillWidth = 0
	}

	header := "╭─" + leftText + strings.Repeat("─", fillWidth) + rightText + "─╮"
	return borderStyle.Render(header)
}

// renderFooter creates the footer with keyboard shortcuts and status
func (a *App) renderFooter() string {
	width := a.frameWidth()

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	keyStyle := lipgloss.NewStyle().Foreground(styles.Primary)
	labelStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	statusStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	var shortcuts []string
	switch a.screen {
	case ScreenLogin:
		shortcuts = []string{"Tab Next", "Enter Submit", "Esc Quit"}
	case ScreenChangePassword:
		shortcuts = []string{"Tab Next", "Enter Submit", "Esc Cancel"}
	case ScreenHome:
		shortcuts = []string{"↑↓ Navigate", "Enter Open", "q Quit"}
	case ScreenModels:
		shortcuts = []string{"↑↓ Navigate", "r Refresh", "b Back", "q Quit"}
	case ScreenTokens:
		shortcuts = []string{"↑↓ Navigate", "r Refresh", "d Delete", "b Back", "q Quit"}
	case ScreenPlaceholder:
		shortcuts = []string{"b Back", "q Quit"}
	}

	var styledShortcuts []string
	for _, s := range shortcuts {
		parts := strings.SplitN(s, " ", 2)
		styledShortcuts = append(styledShortcuts, keyStyle.Render(parts[0])+" "+labelStyle.Render(parts[1]))
	}

	leftText := " " + strings.Join(styledShortcuts, "  ") + " "
	leftPlainText := " " + strings.Join(shortcuts, "  ") + " "

	rightText := ""
	rightPlainText := ""
	if !a.lastUpdate.IsZero() && (a.screen == ScreenModels || a.screen == ScreenTokens) {
		elapsed := formatTimeSince(a.lastUpdate)
		rightText = " " + statusStyle.Render("Updated "+elapsed) + " "
		rightPlainText = " Updated " + elapsed + " "
	}

	fillWidth := width - 4 - lipgloss.Width(leftPlainText) - lipgloss.Width(rightPlainText) // -4 for ╰─ and ─╯
	if fillWidth < 0 {
		fillWidth = 0
	}

	footer := "╰─" + leftText + strings.Repeat("─", fillWidth) + rightText + "─╯"
	return borderStyle.Render(footer)
}

// formatTimeSince formats a duration since the given time in human-readable form
func formatTimeSince(t time.Time) string {
	d := time.Since(t)

	if d < time.Minute {
		secs := int(d.Seconds())
		if secs < 5 {
			return "just now"
		}
		return fmt.Sprintf("%ds ago", secs)
	}

	if d < time.Hour {
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh ago", int(d.Hours()))
}

// wrapWithFrame wraps content with header and footer
func (a *App) wrapWithFrame(content string) string {
	var sb strings.Builder

	sb.WriteString(a.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(content)
	sb.WriteString("\n")
	sb.WriteString(a.renderFooter())

	return sb.String()
}

// Run starts the TUI. While it runs, authentication failures detected by
// the client facade reach the app as NavigateMsg; afterwards the router is
// the navigator again.
func Run(c *client.Client, store *session.Store, r *router.Router, logger *zap.Logger) error {
	app := New(c, store, r, logger)

	p := tea.NewProgram(
		app,
		tea.WithAltScreen(),
	)

	c.SetNavigator(client.NavigatorFunc(func(path string) error {
		p.Send(NavigateMsg{Path: path})
		return nil
	}))
	defer c.SetNavigator(r)

	_, err := p.Run()
	return err
}
