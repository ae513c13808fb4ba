// Package tui is the terminal client: a day view of concerts and the
// personal work time tracker.
package tui

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"concertdesk/internal/models"
	"concertdesk/pkg/client"
)

// API is the part of the concertdesk client the TUI needs.
type API interface {
	Login(ctx context.Context, email, password string) (*client.Session, error)
	ConcertsForDate(ctx context.Context, date string) ([]models.Concert, error)
	TrackingStatus(ctx context.Context) (*models.TrackingStatus, error)
	StartTracking(ctx context.Context) (*models.TrackingStatus, error)
	StopTracking(ctx context.Context) (*models.WorkSession, error)
	Totals(ctx context.Context) (*models.WorkTotals, error)
}

type view int

const (
	viewLogin view = iota
	viewConcerts
	viewTracker
)

// Options configures NewApp.
type Options struct {
	// Email prefills the login form.
	Email string
	// LoggedIn skips the login form when a cached token is available.
	LoggedIn bool
	Now      func() time.Time
	Copy     func(string) error
	// OnLogin is called with the new token after a successful login.
	OnLogin func(email, token string) error
}

// App is the root Bubbletea model.
type App struct {
	api      API
	view     view
	login    loginModel
	concerts concertsModel
	tracker  trackerModel
	email    string
	width    int
	height   int
}

// NewApp creates the TUI application.
func NewApp(api API, opts Options) App {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}

	a := App{
		api:      api,
		view:     viewLogin,
		login:    newLoginModel(api, opts.Email, opts.OnLogin),
		concerts: newConcertsModel(api, opts.Copy, opts.Now),
		tracker:  newTrackerModel(api),
		email:    opts.Email,
	}
	if opts.LoggedIn {
		a.view = viewConcerts
		a.concerts.loading = true
	}
	return a
}

func (a App) Init() tea.Cmd {
	if a.view == viewLogin {
		return tickCmd()
	}
	return tea.Batch(tickCmd(), a.loadAll())
}

func (a App) loadAll() tea.Cmd {
	return tea.Batch(a.concerts.load(), a.tracker.load())
}

// expired sends the user back to the login form after a 401.
func (a App) expired() (tea.Model, tea.Cmd) {
	a.view = viewLogin
	a.login = newLoginModel(a.api, a.email, a.login.onLogin)
	a.login.notice = "session expired, sign in again"
	return a, nil
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tickMsg:
		var cmd tea.Cmd
		a.tracker, cmd = a.tracker.Update(msg)
		return a, tea.Batch(tickCmd(), cmd)

	case loginResultMsg:
		a.login, _ = a.login.Update(msg)
		if msg.err != nil {
			return a, nil
		}
		a.email = msg.email
		a.view = viewConcerts
		a.concerts.loading = true
		return a, a.loadAll()

	case concertsLoadedMsg:
		if client.IsStatus(msg.err, http.StatusUnauthorized) {
			return a.expired()
		}
		var cmd tea.Cmd
		a.concerts, cmd = a.concerts.Update(msg)
		return a, cmd

	case copyResultMsg:
		var cmd tea.Cmd
		a.concerts, cmd = a.concerts.Update(msg)
		return a, cmd

	case trackingLoadedMsg:
		if client.IsStatus(msg.err, http.StatusUnauthorized) {
			return a.expired()
		}
		var cmd tea.Cmd
		a.tracker, cmd = a.tracker.Update(msg)
		return a, cmd

	case trackingToggledMsg:
		if client.IsStatus(msg.err, http.StatusUnauthorized) {
			return a.expired()
		}
		var cmd tea.Cmd
		a.tracker, cmd = a.tracker.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	if a.view == viewLogin {
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		return a, cmd
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "1":
		a.view = viewConcerts
		return a, nil
	case "2":
		a.view = viewTracker
		return a, nil
	case "tab":
		if a.view == viewConcerts {
			a.view = viewTracker
		} else {
			a.view = viewConcerts
		}
		return a, nil
	}

	var cmd tea.Cmd
	switch a.view {
	case viewConcerts:
		a.concerts, cmd = a.concerts.Update(msg)
	case viewTracker:
		a.tracker, cmd = a.tracker.Update(msg)
	}
	return a, cmd
}

func (a App) View() string {
	var b strings.Builder
	b.WriteString(accentStyle.Render("concertdesk"))
	if a.email != "" && a.view != viewLogin {
		b.WriteString(metaStyle.Render("  " + a.email))
	}
	b.WriteString("\n")

	if a.view == viewLogin {
		b.WriteString("\n")
		b.WriteString(a.login.View())
		return b.String()
	}

	b.WriteString(a.renderTabs())
	b.WriteString("\n\n")
	switch a.view {
	case viewConcerts:
		b.WriteString(a.concerts.View())
		b.WriteString("\n")
		b.WriteString(renderHelp("←/→", "day", "↑/↓", "select", "enter", "details", "c", "copy address", "t", "today", "tab", "tracker", "q", "quit"))
	case viewTracker:
		b.WriteString(a.tracker.View())
		b.WriteString("\n")
		b.WriteString(renderHelp("s", "start/stop", "r", "refresh", "tab", "concerts", "q", "quit"))
	}
	return b.String()
}

func (a App) renderTabs() string {
	tabs := []struct {
		v     view
		label string
	}{
		{viewConcerts, "1 Concerts"},
		{viewTracker, "2 Work time"},
	}
	parts := make([]string, 0, len(tabs))
	for _, t := range tabs {
		if t.v == a.view {
			parts = append(parts, tabActiveStyle.Render(t.label))
		} else {
			parts = append(parts, tabStyle.Render(t.label))
		}
	}
	return strings.Join(parts, "   ")
}
