package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"concertdesk/internal/models"
	"concertdesk/internal/seating"
)

type concertsModel struct {
	api      API
	copy     func(string) error
	day      time.Time
	concerts []models.Concert
	cursor   int
	detail   bool
	loading  bool
	err      error
	notice   string
	now      func() time.Time
}

type concertsLoadedMsg struct {
	date     string
	concerts []models.Concert
	err      error
}

type copyResultMsg struct {
	address string
	err     error
}

func newConcertsModel(api API, copyFn func(string) error, now func() time.Time) concertsModel {
	return concertsModel{
		api:  api,
		copy: copyFn,
		now:  now,
		day:  startOfDay(now()),
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (m concertsModel) date() string {
	return m.day.Format(models.DateLayout)
}

func (m concertsModel) load() tea.Cmd {
	api, date := m.api, m.date()
	return func() tea.Msg {
		list, err := api.ConcertsForDate(context.Background(), date)
		return concertsLoadedMsg{date: date, concerts: list, err: err}
	}
}

func (m concertsModel) selected() (models.Concert, bool) {
	if m.cursor < 0 || m.cursor >= len(m.concerts) {
		return models.Concert{}, false
	}
	return m.concerts[m.cursor], true
}

func (m concertsModel) Update(msg tea.Msg) (concertsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case concertsLoadedMsg:
		// Ignore answers for a day the user already navigated away from.
		if msg.date != m.date() {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.concerts = msg.concerts
		}
		if m.cursor >= len(m.concerts) {
			m.cursor = 0
		}

	case copyResultMsg:
		if msg.err != nil {
			m.notice = "copy failed: " + msg.err.Error()
		} else {
			m.notice = "address copied: " + msg.address
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m concertsModel) handleKey(msg tea.KeyMsg) (concertsModel, tea.Cmd) {
	switch msg.String() {
	case "left", "h":
		return m.shiftDay(-1)
	case "right", "l":
		return m.shiftDay(1)
	case "t":
		m.day = startOfDay(m.now())
		return m.reload()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.concerts)-1 {
			m.cursor++
		}
	case "enter":
		if _, ok := m.selected(); ok {
			m.detail = !m.detail
		}
	case "esc":
		m.detail = false
	case "c":
		if concert, ok := m.selected(); ok && concert.Address != "" {
			address, copyFn := concert.Address, m.copy
			return m, func() tea.Msg {
				return copyResultMsg{address: address, err: copyFn(address)}
			}
		}
	case "r":
		return m.reload()
	}
	return m, nil
}

func (m concertsModel) shiftDay(days int) (concertsModel, tea.Cmd) {
	m.day = m.day.AddDate(0, 0, days)
	return m.reload()
}

func (m concertsModel) reload() (concertsModel, tea.Cmd) {
	m.cursor = 0
	m.detail = false
	m.notice = ""
	m.loading = true
	m.concerts = nil
	return m, m.load()
}

func (m concertsModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.day.Format("Monday, 2 January 2006")))
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(dimStyle.Render("loading..."))
		b.WriteString("\n")
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	case len(m.concerts) == 0:
		b.WriteString(dimStyle.Render("no concerts on this day"))
		b.WriteString("\n")
	default:
		for i, concert := range m.concerts {
			b.WriteString(renderConcertRow(concert, i == m.cursor))
			b.WriteString("\n")
		}
	}

	if concert, ok := m.selected(); ok && m.detail && !m.loading {
		b.WriteString("\n")
		b.WriteString(detailBoxStyle.Render(renderConcertDetail(concert)))
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString("\n" + accentStyle.Render(m.notice) + "\n")
	}
	return b.String()
}

func renderConcertRow(c models.Concert, selected bool) string {
	marker := "  "
	style := normalStyle
	if selected {
		marker = accentStyle.Render("> ")
		style = selectedStyle
	}
	t := c.TypeOrDefault()
	label := lipgloss.NewStyle().Foreground(typeColors[t.Ordinal()]).Render(fmt.Sprintf("%-18s", t.DisplayName()))
	times := metaStyle.Render(fmt.Sprintf("dep %s  start %s", c.DepartureTime, c.StartTime))
	return marker + label + " " + style.Render(c.Address) + "  " + times
}

func renderConcertDetail(c models.Concert) string {
	var b strings.Builder
	b.WriteString(selectedStyle.Render(c.Address) + "\n")
	if c.Description != "" {
		b.WriteString(normalStyle.Render(c.Description) + "\n")
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d km · departure %s · start %s", c.DistanceKm, c.DepartureTime, c.StartTime)) + "\n")
	if c.DriverName != "" {
		b.WriteString(dimStyle.Render("driver: ") + normalStyle.Render(c.DriverName) + "\n")
	}
	if len(c.Members) > 0 {
		b.WriteString(dimStyle.Render("members: ") + normalStyle.Render(strings.Join(c.Members, ", ")) + "\n")
	}
	for _, a := range c.BusSeats.Occupied() {
		b.WriteString(metaStyle.Render(fmt.Sprintf("row %2d %s  ", a.Row, seatLabel(a.Index))) + normalStyle.Render(a.Member) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

var seatLabels = [seating.SeatsPerRow]string{"left front ", "left back  ", "right front", "right back "}

func seatLabel(index int) string {
	if index < 0 || index >= len(seatLabels) {
		return "?"
	}
	return seatLabels[index]
}
