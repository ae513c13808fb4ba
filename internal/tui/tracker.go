package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"concertdesk/internal/models"
)

type trackerModel struct {
	api     API
	status  models.TrackingStatus
	totals  *models.WorkTotals
	elapsed time.Duration
	// baseline is the elapsed time already included in totals.
	baseline time.Duration
	lastTick time.Time
	busy     bool
	err      error
	notice   string
}

type trackingLoadedMsg struct {
	status *models.TrackingStatus
	totals *models.WorkTotals
	err    error
}

type trackingToggledMsg struct {
	status  *models.TrackingStatus
	session *models.WorkSession
	err     error
}

func newTrackerModel(api API) trackerModel {
	return trackerModel{api: api}
}

func (m trackerModel) load() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx := context.Background()
		status, err := api.TrackingStatus(ctx)
		if err != nil {
			return trackingLoadedMsg{err: err}
		}
		totals, err := api.Totals(ctx)
		if err != nil {
			return trackingLoadedMsg{err: err}
		}
		return trackingLoadedMsg{status: status, totals: totals}
	}
}

func (m trackerModel) toggle() tea.Cmd {
	api, tracking := m.api, m.status.Tracking
	return func() tea.Msg {
		ctx := context.Background()
		if tracking {
			session, err := api.StopTracking(ctx)
			return trackingToggledMsg{session: session, err: err}
		}
		status, err := api.StartTracking(ctx)
		return trackingToggledMsg{status: status, err: err}
	}
}

func (m trackerModel) Update(msg tea.Msg) (trackerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case trackingLoadedMsg:
		m.busy = false
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.status = *msg.status
		m.totals = msg.totals
		m.elapsed = time.Duration(msg.status.ElapsedMs) * time.Millisecond
		m.baseline = m.elapsed

	case trackingToggledMsg:
		if msg.err != nil {
			m.busy = false
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		if msg.session != nil {
			m.notice = "recorded " + models.FormatDuration(msg.session.Duration())
		} else {
			m.notice = ""
		}
		return m, m.load()

	case tickMsg:
		now := time.Time(msg)
		prev := m.lastTick
		m.lastTick = now
		if !m.status.Tracking || m.status.StartedAt == nil {
			return m, nil
		}
		if !prev.IsZero() && !sameLocalDay(prev, now) && !m.busy {
			// Past midnight the server discards yesterday's start.
			m.busy = true
			return m, m.load()
		}
		m.elapsed = now.Sub(*m.status.StartedAt)

	case tea.KeyMsg:
		switch msg.String() {
		case "s", " ":
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.notice = ""
			return m, m.toggle()
		case "r":
			m.busy = true
			return m, m.load()
		}
	}
	return m, nil
}

func sameLocalDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}

// periodTotal adds the time elapsed since totals were fetched.
func (m trackerModel) periodTotal(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	if m.status.Tracking {
		d += m.elapsed - m.baseline
	}
	return models.FormatDuration(d)
}

func (m trackerModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Work time"))
	b.WriteString("\n\n")

	if m.status.Tracking {
		b.WriteString(timerStyle.Render(models.FormatDuration(m.elapsed)))
		if m.status.StartedAt != nil {
			b.WriteString(dimStyle.Render("  since " + m.status.StartedAt.Local().Format("15:04")))
		}
	} else {
		b.WriteString(dimStyle.Render("not tracking"))
	}
	b.WriteString("\n\n")

	if m.totals != nil {
		rows := []struct {
			label string
			ms    int64
		}{
			{"today", m.totals.DayMs},
			{"week", m.totals.WeekMs},
			{"month", m.totals.MonthMs},
			{"year", m.totals.YearMs},
		}
		for _, row := range rows {
			b.WriteString(metaStyle.Render(fmt.Sprintf("%-6s", row.label)) + " " + normalStyle.Render(m.periodTotal(row.ms)) + "\n")
		}
	}

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	} else if m.notice != "" {
		b.WriteString("\n" + accentStyle.Render(m.notice) + "\n")
	}
	return b.String()
}
