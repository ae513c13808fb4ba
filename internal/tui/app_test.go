package tui

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"concertdesk/internal/models"
	"concertdesk/pkg/client"
)

var thursdayMorning = time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC)

type fakeAPI struct {
	loginErr  error
	concerts  map[string][]models.Concert
	dates     []string
	status    models.TrackingStatus
	totals    models.WorkTotals
	statusErr error
	starts    int
	stops     int
}

func (f *fakeAPI) Login(_ context.Context, email, _ string) (*client.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &client.Session{Token: "tok-" + email, User: models.User{ID: 1, Email: email, Role: models.RoleUser}}, nil
}

func (f *fakeAPI) ConcertsForDate(_ context.Context, date string) ([]models.Concert, error) {
	f.dates = append(f.dates, date)
	return f.concerts[date], nil
}

func (f *fakeAPI) TrackingStatus(context.Context) (*models.TrackingStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	s := f.status
	return &s, nil
}

func (f *fakeAPI) StartTracking(context.Context) (*models.TrackingStatus, error) {
	f.starts++
	started := thursdayMorning
	f.status = models.TrackingStatus{Tracking: true, StartedAt: &started, Elapsed: "00:00:00"}
	s := f.status
	return &s, nil
}

func (f *fakeAPI) StopTracking(context.Context) (*models.WorkSession, error) {
	f.stops++
	f.status = models.TrackingStatus{Elapsed: "00:00:00"}
	return &models.WorkSession{StartedAt: thursdayMorning, EndedAt: thursdayMorning.Add(3661 * time.Second), DurationMs: 3_661_000}, nil
}

func (f *fakeAPI) Totals(context.Context) (*models.WorkTotals, error) {
	t := f.totals
	return &t, nil
}

func newTestApp(api *fakeAPI, opts Options) App {
	if opts.Now == nil {
		opts.Now = func() time.Time { return thursdayMorning }
	}
	if opts.Copy == nil {
		opts.Copy = func(string) error { return nil }
	}
	a := NewApp(api, opts)
	a.width = 80
	a.height = 30
	return a
}

// runCmd executes cmd and flattens batches. Tick commands must not be passed
// in, they block for a second.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func feed(t *testing.T, a App, msgs ...tea.Msg) App {
	t.Helper()
	for _, msg := range msgs {
		model, _ := a.Update(msg)
		a = model.(App)
	}
	return a
}

func press(a App, key string) (App, tea.Cmd) {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		msg = tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	model, cmd := a.Update(msg)
	return model.(App), cmd
}

func typeText(a App, text string) App {
	for _, r := range text {
		a, _ = press(a, string(r))
	}
	return a
}

func loggedIn(t *testing.T, api *fakeAPI) App {
	t.Helper()
	a := newTestApp(api, Options{Email: "ivan@example.com", LoggedIn: true})
	return feed(t, a, runCmd(a.loadAll())...)
}

func TestLoginFlow(t *testing.T) {
	api := &fakeAPI{concerts: map[string][]models.Concert{
		"2026-10-15": {{ID: "a", Address: "Main hall", ConcertType: models.ConcertTypeGeneral}},
	}}
	var gotEmail, gotToken string
	a := newTestApp(api, Options{
		Email: "ivan@example.com",
		OnLogin: func(email, token string) error {
			gotEmail, gotToken = email, token
			return nil
		},
	})
	if a.view != viewLogin {
		t.Fatalf("view = %d, want login", a.view)
	}
	if a.login.focus != fieldPassword {
		t.Fatalf("focus = %d, want password when email is cached", a.login.focus)
	}

	a = typeText(a, "secret1")
	a, cmd := press(a, "enter")
	if !a.login.submitted {
		t.Fatal("expected submitted=true after enter")
	}
	msgs := runCmd(cmd)
	if len(msgs) != 1 {
		t.Fatalf("expected one login result, got %d", len(msgs))
	}
	model, cmd := a.Update(msgs[0])
	a = model.(App)
	if gotEmail != "ivan@example.com" || gotToken != "tok-ivan@example.com" {
		t.Errorf("OnLogin got (%q, %q)", gotEmail, gotToken)
	}
	if a.view != viewConcerts {
		t.Fatalf("view = %d, want concerts after login", a.view)
	}
	if a.login.fields[fieldPassword] != "" {
		t.Error("password should be cleared after login")
	}

	a = feed(t, a, runCmd(cmd)...)
	if len(a.concerts.concerts) != 1 {
		t.Fatalf("expected 1 concert, got %d", len(a.concerts.concerts))
	}
	if !strings.Contains(a.View(), "Main hall") {
		t.Error("expected concert address in view")
	}
}

func TestLoginValidatesBeforeCalling(t *testing.T) {
	a := newTestApp(&fakeAPI{}, Options{Email: "ivan@example.com"})
	a = typeText(a, "abc")
	a, cmd := press(a, "enter")
	if cmd != nil {
		t.Fatal("expected no request for a short password")
	}
	if a.login.err == nil || !strings.Contains(a.login.err.Error(), "at least 6") {
		t.Errorf("err = %v, want password length message", a.login.err)
	}
}

func TestLoginFailureKeepsForm(t *testing.T) {
	api := &fakeAPI{loginErr: &client.HTTPError{StatusCode: http.StatusUnauthorized, Message: "invalid credentials"}}
	a := newTestApp(api, Options{Email: "ivan@example.com"})
	a = typeText(a, "wrongpass")
	a, cmd := press(a, "enter")
	a = feed(t, a, runCmd(cmd)...)

	if a.view != viewLogin {
		t.Fatalf("view = %d, want login after failure", a.view)
	}
	if a.login.submitted {
		t.Error("submitted should reset after failure")
	}
	if !strings.Contains(a.View(), "invalid credentials") {
		t.Error("expected error message in view")
	}
}

func TestQKeyTypesIntoLoginForm(t *testing.T) {
	a := newTestApp(&fakeAPI{}, Options{})
	a, cmd := press(a, "q")
	if cmd != nil {
		t.Fatal("q must not quit from the login form")
	}
	if a.login.fields[fieldEmail] != "q" {
		t.Errorf("email = %q, want q", a.login.fields[fieldEmail])
	}
}

func TestQuit(t *testing.T) {
	a := loggedIn(t, &fakeAPI{})
	_, cmd := press(a, "q")
	if cmd == nil {
		t.Fatal("expected quit command on q")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestDayNavigation(t *testing.T) {
	api := &fakeAPI{concerts: map[string][]models.Concert{
		"2026-10-16": {{ID: "b", Address: "School 4", ConcertType: models.ConcertTypeBrigade1}},
	}}
	a := loggedIn(t, api)
	if got := a.concerts.date(); got != "2026-10-15" {
		t.Fatalf("date = %q, want today", got)
	}

	a, cmd := press(a, "right")
	if !a.concerts.loading {
		t.Error("expected loading after day change")
	}
	a = feed(t, a, runCmd(cmd)...)
	if got := api.dates[len(api.dates)-1]; got != "2026-10-16" {
		t.Errorf("requested date = %q, want 2026-10-16", got)
	}
	if len(a.concerts.concerts) != 1 || a.concerts.concerts[0].Address != "School 4" {
		t.Errorf("concerts = %+v", a.concerts.concerts)
	}

	a, _ = press(a, "left")
	a, _ = press(a, "left")
	if got := a.concerts.date(); got != "2026-10-14" {
		t.Errorf("date = %q, want 2026-10-14", got)
	}

	a, _ = press(a, "t")
	if got := a.concerts.date(); got != "2026-10-15" {
		t.Errorf("date = %q, want today after t", got)
	}
}

func TestStaleConcertsResponseIgnored(t *testing.T) {
	a := loggedIn(t, &fakeAPI{})
	a, _ = press(a, "right")

	a = feed(t, a, concertsLoadedMsg{date: "2026-10-15", concerts: []models.Concert{{ID: "old"}}})
	if len(a.concerts.concerts) != 0 {
		t.Error("response for a previous day should be ignored")
	}
	if !a.concerts.loading {
		t.Error("still waiting for the current day")
	}
}

func TestCopySelectedAddress(t *testing.T) {
	api := &fakeAPI{concerts: map[string][]models.Concert{
		"2026-10-15": {
			{ID: "a", Address: "Main hall", ConcertType: models.ConcertTypeGeneral},
			{ID: "b", Address: "School 4", ConcertType: models.ConcertTypeBrigade1},
		},
	}}
	var copied string
	a := newTestApp(api, Options{
		LoggedIn: true,
		Copy: func(s string) error {
			copied = s
			return nil
		},
	})
	a = feed(t, a, runCmd(a.loadAll())...)

	a, _ = press(a, "down")
	a, cmd := press(a, "c")
	if cmd == nil {
		t.Fatal("expected copy command")
	}
	a = feed(t, a, runCmd(cmd)...)
	if copied != "School 4" {
		t.Errorf("copied = %q, want School 4", copied)
	}
	if !strings.Contains(a.concerts.notice, "School 4") {
		t.Errorf("notice = %q", a.concerts.notice)
	}
}

func TestCopyFailureShown(t *testing.T) {
	api := &fakeAPI{concerts: map[string][]models.Concert{
		"2026-10-15": {{ID: "a", Address: "Main hall"}},
	}}
	a := newTestApp(api, Options{
		LoggedIn: true,
		Copy:     func(string) error { return errors.New("no clipboard") },
	})
	a = feed(t, a, runCmd(a.loadAll())...)
	_, cmd := press(a, "c")
	a = feed(t, a, runCmd(cmd)...)
	if !strings.Contains(a.concerts.notice, "copy failed") {
		t.Errorf("notice = %q", a.concerts.notice)
	}
}

func TestConcertDetailShowsSeats(t *testing.T) {
	api := &fakeAPI{concerts: map[string][]models.Concert{
		"2026-10-15": {{
			ID:         "a",
			Address:    "Main hall",
			Members:    []string{"Anna", "Boris"},
			BusSeats:   map[int][]string{3: {"", "Anna", "", ""}},
			DriverName: "Pyotr",
		}},
	}}
	a := loggedIn(t, api)
	a, _ = press(a, "enter")
	if !a.concerts.detail {
		t.Fatal("expected detail open after enter")
	}
	view := a.View()
	for _, want := range []string{"Anna, Boris", "Pyotr", "left back"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestTrackerStartTickStop(t *testing.T) {
	api := &fakeAPI{}
	a := loggedIn(t, api)
	a, _ = press(a, "2")
	if a.view != viewTracker {
		t.Fatalf("view = %d, want tracker", a.view)
	}
	if !strings.Contains(a.View(), "not tracking") {
		t.Error("expected idle tracker")
	}

	a, cmd := press(a, "s")
	if !a.tracker.busy {
		t.Error("expected busy while starting")
	}
	// toggle -> trackingToggledMsg -> reload -> trackingLoadedMsg
	for _, msg := range runCmd(cmd) {
		model, next := a.Update(msg)
		a = model.(App)
		a = feed(t, a, runCmd(next)...)
	}
	if api.starts != 1 {
		t.Fatalf("starts = %d, want 1", api.starts)
	}
	if !a.tracker.status.Tracking {
		t.Fatal("expected tracking after start")
	}

	a = feed(t, a, tickMsg(thursdayMorning.Add(3661*time.Second)))
	if !strings.Contains(a.View(), "01:01:01") {
		t.Errorf("expected 01:01:01 in view, got:\n%s", a.View())
	}

	a, cmd = press(a, "s")
	for _, msg := range runCmd(cmd) {
		model, next := a.Update(msg)
		a = model.(App)
		a = feed(t, a, runCmd(next)...)
	}
	if api.stops != 1 {
		t.Fatalf("stops = %d, want 1", api.stops)
	}
	if a.tracker.status.Tracking {
		t.Error("expected idle after stop")
	}
	if a.tracker.notice != "recorded 01:01:01" {
		t.Errorf("notice = %q", a.tracker.notice)
	}
}

func TestTrackerIgnoresKeysWhileBusy(t *testing.T) {
	api := &fakeAPI{}
	a := loggedIn(t, api)
	a, _ = press(a, "2")
	a, _ = press(a, "s")
	_, cmd := press(a, "s")
	if cmd != nil {
		t.Error("second toggle should be ignored while the first is in flight")
	}
}

func TestTotalsAdvanceWithRunningSession(t *testing.T) {
	started := thursdayMorning
	api := &fakeAPI{
		status: models.TrackingStatus{Tracking: true, StartedAt: &started, ElapsedMs: 60_000},
		totals: models.WorkTotals{DayMs: 3_660_000, WeekMs: 7_260_000},
	}
	a := loggedIn(t, api)
	a = feed(t, a, tickMsg(started.Add(2*time.Minute)))

	if got := a.tracker.periodTotal(a.tracker.totals.DayMs); got != "01:02:00" {
		t.Errorf("day = %q, want 01:02:00", got)
	}
	if got := a.tracker.periodTotal(a.tracker.totals.WeekMs); got != "02:02:00" {
		t.Errorf("week = %q, want 02:02:00", got)
	}
}

func TestUnauthorizedReturnsToLogin(t *testing.T) {
	api := &fakeAPI{statusErr: &client.HTTPError{StatusCode: http.StatusUnauthorized, Message: "invalid token"}}
	a := loggedIn(t, api)
	if a.view != viewLogin {
		t.Fatalf("view = %d, want login after 401", a.view)
	}
	if a.login.fields[fieldEmail] != "ivan@example.com" {
		t.Errorf("email = %q, want cached email kept", a.login.fields[fieldEmail])
	}
	if !strings.Contains(a.View(), "session expired") {
		t.Error("expected session expired notice")
	}
}

func TestEditRune(t *testing.T) {
	if got := editRune("ab", "c"); got != "abc" {
		t.Errorf("got %q", got)
	}
	if got := editRune("привет", "backspace"); got != "приве" {
		t.Errorf("got %q", got)
	}
	if got := editRune("ab", "enter"); got != "ab" {
		t.Errorf("got %q", got)
	}
}
