package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/scandraw/internal/api"
	"github.com/jask/scandraw/internal/config"
	"github.com/jask/scandraw/internal/controller"
	"github.com/jask/scandraw/internal/health"
	"github.com/jask/scandraw/internal/prefs"
	"github.com/jask/scandraw/internal/service"
	"github.com/jask/scandraw/internal/session"
)

// Authenticator gates the workspace behind a stored token.
type Authenticator interface {
	LoggedIn() bool
	Email() string
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, email, password string) error
	Logout() error
}

// HistoryStore lists and reopens past analyses.
type HistoryStore interface {
	Recent(ctx context.Context, search string, limit int) ([]service.Entry, error)
	Load(ctx context.Context, id string) (service.Entry, error)
	Delete(ctx context.Context, id string) error
}

// Resetter wipes local history.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Deps are the collaborators the App drives. Auth nil disables the login
// screen; History and Maintenance nil hide their actions.
type Deps struct {
	Controller  *controller.Controller
	Auth        Authenticator
	History     HistoryStore
	Maintenance Resetter
	Config      config.Config
	Prefs       prefs.Prefs
	PrefsDir    string
	Logger      *slog.Logger
	// SaveConfig defaults to config.Save.
	SaveConfig func(config.Config) error
}

// App ties together views.
type App struct {
	ctx      context.Context
	ctrl     *controller.Controller
	auth     Authenticator
	history  HistoryStore
	maint    Resetter
	cfg      config.Config
	prefsDir string
	logger   *slog.Logger
	saveCfg  func(config.Config) error
	keys     *keyRegistry

	state     appState
	modal     modalState
	status    string
	statusErr bool
	busy      bool

	// login / register
	login    *form
	register *form

	// workspace
	path         textinput.Model
	filter       textinput.Model
	focus        focusArea
	cursor       int
	selectedPath string
	pane         *previewPane

	// history
	entries    []service.Entry
	histCursor int
	viewing    *service.Entry

	// settings
	urlInput textinput.Model

	connCh    chan health.Connectivity
	done      chan struct{}
	unsubConn func()
	closeOnce sync.Once
}

type appState string

const (
	viewLogin     appState = "login"
	viewRegister  appState = "register"
	viewWorkspace appState = "workspace"
	viewHistory   appState = "history"
	viewSettings  appState = "settings"
)

type modalState string

const (
	modalNone         modalState = ""
	modalConfirmReset modalState = "confirmReset"
	modalEditURL      modalState = "editURL"
)

type focusArea string

const (
	focusPath    focusArea = "path"
	focusResults focusArea = "results"
	focusFilter  focusArea = "filter"
)

const historyLimit = 50

func New(ctx context.Context, d Deps) *App {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	save := d.SaveConfig
	if save == nil {
		save = config.Save
	}

	path := textinput.New()
	path.Prompt = "Drawing: "
	path.Placeholder = "path to PDF, JPG, PNG, TIFF or WEBP"
	path.SetValue(d.Prefs.LastPath)
	path.Focus()

	filter := textinput.New()
	filter.Prompt = "/"

	a := &App{
		ctx:      ctx,
		ctrl:     d.Controller,
		auth:     d.Auth,
		history:  d.History,
		maint:    d.Maintenance,
		cfg:      d.Config,
		prefsDir: d.PrefsDir,
		logger:   logger,
		saveCfg:  save,
		keys:     newKeyRegistry(),
		state:    viewWorkspace,
		login:    newLoginForm(d.Prefs.LastEmail),
		path:     path,
		filter:   filter,
		focus:    focusPath,
		pane:     newPreviewPane(d.Controller.Overlay()),
		connCh:   make(chan health.Connectivity, 1),
		done:     make(chan struct{}),
	}
	if a.auth != nil && !a.auth.LoggedIn() {
		a.state = viewLogin
	}
	a.unsubConn = a.ctrl.Monitor().OnChange(a.pushConnectivity)
	return a
}

func newLoginForm(email string) *form {
	f := newForm(
		formField{Key: "email", Label: "Email", Value: email},
		formField{Key: "password", Label: "Password", Password: true},
	)
	if email != "" {
		f.FocusKey("password")
	}
	return f
}

// pushConnectivity keeps only the newest state in the buffer. It runs on the
// probe goroutine and never blocks.
func (a *App) pushConnectivity(c health.Connectivity) {
	for {
		select {
		case a.connCh <- c:
			return
		default:
		}
		select {
		case <-a.connCh:
		default:
		}
	}
}

func (a *App) waitConnectivity() tea.Cmd {
	ch, done := a.connCh, a.done
	return func() tea.Msg {
		select {
		case c := <-ch:
			return connectivityMsg(c)
		case <-done:
			return nil
		}
	}
}

// Close detaches from the overlay channel and the monitor. Safe to call
// more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.pane.Close()
		if a.unsubConn != nil {
			a.unsubConn()
		}
		close(a.done)
	})
}

func (a *App) Init() tea.Cmd {
	return a.waitConnectivity()
}

func (a *App) quit() (tea.Model, tea.Cmd) {
	a.Close()
	return a, tea.Quit
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		if m.String() == "ctrl+c" {
			return a.quit()
		}
		if a.modal != modalNone {
			return a.handleModalKey(m)
		}
		switch a.state {
		case viewLogin:
			return a.handleLoginKey(m)
		case viewRegister:
			return a.handleRegisterKey(m)
		case viewHistory:
			return a.handleHistoryKey(m)
		case viewSettings:
			return a.handleSettingsKey(m)
		default:
			return a.handleWorkspaceKey(m)
		}
	case connectivityMsg:
		return a, a.waitConnectivity()
	case uploadDoneMsg:
		a.handleUploadDone(m)
	case loginDoneMsg:
		a.busy = false
		if m.err != nil {
			a.setError(api.ErrorMessage(m.err))
			return a, nil
		}
		a.login.SetValue("password", "")
		a.state = viewWorkspace
		a.setStatus("Signed in as " + m.email)
	case registerDoneMsg:
		a.busy = false
		if m.err != nil {
			a.setError(api.ErrorMessage(m.err))
			return a, nil
		}
		a.login = newLoginForm(m.email)
		a.state = viewLogin
		a.setStatus("Registration submitted. Your account is pending approval by the Administrator.")
	case logoutDoneMsg:
		a.ctrl.Clear()
		a.login = newLoginForm(m.email)
		a.state = viewLogin
		a.setStatus("Signed out")
	case historyMsg:
		a.entries = []service.Entry(m)
		if a.histCursor >= len(a.entries) {
			a.histCursor = 0
		}
	case entryMsg:
		e := service.Entry(m)
		a.viewing = &e
	case statusMsg:
		a.setStatus(string(m))
	case errMsg:
		a.setError("error: " + m.Error())
	}
	return a, nil
}

func (a *App) setStatus(s string) { a.status, a.statusErr = s, false }
func (a *App) setError(s string)  { a.status, a.statusErr = s, true }

func (a *App) View() string {
	var body string
	switch a.state {
	case viewLogin:
		body = a.renderLogin()
	case viewRegister:
		body = a.renderRegister()
	case viewHistory:
		body = a.renderHistory()
	case viewSettings:
		body = a.renderSettings()
	default:
		body = a.renderWorkspace()
	}
	if a.modal != modalNone {
		body += "\n\n" + a.renderModal()
	}
	if a.status != "" {
		if a.statusErr {
			body += "\n" + errorStyle.Render(a.status)
		} else {
			body += "\n" + a.status
		}
	}
	return body
}

// login / register

func (a *App) handleLoginKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.keys.lookup(scopeLogin, m) {
	case actionQuit:
		return a.quit()
	case actionRegister:
		a.register = newForm(
			formField{Key: "email", Label: "Email", Value: a.login.Value("email")},
			formField{Key: "password", Label: "Password", Password: true},
			formField{Key: "confirm", Label: "Confirm", Password: true},
		)
		a.state = viewRegister
		a.setStatus("")
		return a, nil
	case actionSubmit:
		if a.busy {
			return a, nil
		}
		email, password := strings.TrimSpace(a.login.Value("email")), a.login.Value("password")
		if email == "" || password == "" {
			a.setError("Enter your email and password.")
			return a, nil
		}
		a.busy = true
		a.setStatus("Signing in…")
		return a, a.loginCmd(email, password)
	}
	return a, a.login.Update(m)
}

func (a *App) handleRegisterKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.keys.lookup(scopeRegister, m) {
	case actionBack:
		a.state = viewLogin
		a.setStatus("")
		return a, nil
	case actionSubmit:
		if a.busy {
			return a, nil
		}
		email, password := strings.TrimSpace(a.register.Value("email")), a.register.Value("password")
		if email == "" || password == "" {
			a.setError("Enter an email and a password.")
			return a, nil
		}
		if password != a.register.Value("confirm") {
			a.setError("Passwords do not match.")
			return a, nil
		}
		a.busy = true
		a.setStatus("Registering…")
		return a, a.registerCmd(email, password)
	}
	return a, a.register.Update(m)
}

func (a *App) loginCmd(email, password string) tea.Cmd {
	auth, dir, logger := a.auth, a.prefsDir, a.logger
	ctx := a.ctx
	return func() tea.Msg {
		if err := auth.Login(ctx, email, password); err != nil {
			return loginDoneMsg{email: email, err: err}
		}
		if err := prefs.Update(dir, func(p *prefs.Prefs) { p.LastEmail = email }); err != nil {
			logger.Warn("tui: save prefs", "error", err)
		}
		return loginDoneMsg{email: email}
	}
}

func (a *App) registerCmd(email, password string) tea.Cmd {
	auth, ctx := a.auth, a.ctx
	return func() tea.Msg {
		return registerDoneMsg{email: email, err: auth.Register(ctx, email, password)}
	}
}

func (a *App) logoutCmd() tea.Cmd {
	auth := a.auth
	return func() tea.Msg {
		email := auth.Email()
		if err := auth.Logout(); err != nil {
			return errMsg{err}
		}
		return logoutDoneMsg{email: email}
	}
}

func (a *App) renderLogin() string {
	out := titleStyle.Render("ScanDraw · Sign in") + "\n" + a.banner() + "\n\n" + a.login.View()
	out += "\n\n" + helpStyle.Render(a.keys.help(scopeLogin))
	return out
}

func (a *App) renderRegister() string {
	out := titleStyle.Render("ScanDraw · Register") + "\n\n" + a.register.View()
	out += "\n\n" + helpStyle.Render(a.keys.help(scopeRegister))
	return out
}

// messages
type connectivityMsg health.Connectivity

type uploadDoneMsg struct {
	file  string
	state session.State
	err   error
}

type loginDoneMsg struct {
	email string
	err   error
}

type registerDoneMsg struct {
	email string
	err   error
}

type logoutDoneMsg struct{ email string }

type historyMsg []service.Entry

type entryMsg service.Entry

type statusMsg string

type errMsg struct{ error }

func expandPath(p string) string {
	p = strings.TrimSpace(p)
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

func submitMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrOffline):
		return "Backend is offline. Submission is disabled until it responds."
	case errors.Is(err, session.ErrBusy):
		return "A drawing is already being analysed."
	case errors.Is(err, session.ErrUnsupportedType):
		return "Unsupported file type. Use PDF, JPG, PNG, TIFF or WEBP."
	case errors.Is(err, session.ErrNothingSelected):
		return "Nothing selected."
	default:
		return err.Error()
	}
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
