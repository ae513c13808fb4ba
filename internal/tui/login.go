package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"concertdesk/internal/models"
	"concertdesk/pkg/client"
)

type loginField int

const (
	fieldEmail loginField = iota
	fieldPassword
	numLoginFields
)

type loginModel struct {
	api       API
	onLogin   func(email, token string) error
	fields    [numLoginFields]string
	focus     loginField
	err       error
	notice    string
	submitted bool
}

type loginResultMsg struct {
	session *client.Session
	email   string
	err     error
}

func newLoginModel(api API, email string, onLogin func(email, token string) error) loginModel {
	m := loginModel{api: api, onLogin: onLogin}
	m.fields[fieldEmail] = email
	if email != "" {
		m.focus = fieldPassword
	}
	return m
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case loginResultMsg:
		m.submitted = false
		if msg.err != nil {
			m.err = msg.err
			m.fields[fieldPassword] = ""
			return m, nil
		}
		m.err = nil
		m.fields[fieldPassword] = ""
		return m, nil

	case tea.KeyMsg:
		if m.submitted {
			return m, nil
		}
		switch msg.String() {
		case "tab", "down":
			m.focus = (m.focus + 1) % numLoginFields
		case "shift+tab", "up":
			m.focus = (m.focus + numLoginFields - 1) % numLoginFields
		case "enter":
			if m.focus == fieldEmail {
				m.focus = fieldPassword
				return m, nil
			}
			return m.submit()
		default:
			m.fields[m.focus] = editRune(m.fields[m.focus], msg.String())
		}
	}
	return m, nil
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	email := strings.TrimSpace(m.fields[fieldEmail])
	password := m.fields[fieldPassword]
	if err := models.ValidateCredentials(email, password); err != nil {
		m.err = err
		return m, nil
	}

	m.submitted = true
	m.err = nil
	api, onLogin := m.api, m.onLogin
	return m, func() tea.Msg {
		session, err := api.Login(context.Background(), email, password)
		if err != nil {
			return loginResultMsg{email: email, err: err}
		}
		if onLogin != nil {
			if err := onLogin(email, session.Token); err != nil {
				return loginResultMsg{email: email, err: err}
			}
		}
		return loginResultMsg{session: session, email: email}
	}
}

func (m loginModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Sign in"))
	b.WriteString("\n\n")

	labels := [numLoginFields]string{"Email", "Password"}
	for i := loginField(0); i < numLoginFields; i++ {
		value := m.fields[i]
		if i == fieldPassword {
			value = strings.Repeat("•", len([]rune(value)))
		}
		label := dimStyle.Render(labels[i] + ": ")
		if i == m.focus {
			label = accentStyle.Render("> " + labels[i] + ": ")
			value = selectedStyle.Render(value) + accentStyle.Render("█")
		} else {
			label = "  " + label
			value = normalStyle.Render(value)
		}
		b.WriteString(label + value + "\n")
	}

	b.WriteString("\n")
	switch {
	case m.submitted:
		b.WriteString(dimStyle.Render("signing in..."))
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
	case m.notice != "":
		b.WriteString(dimStyle.Render(m.notice))
	}
	b.WriteString("\n\n")
	b.WriteString(renderHelp("tab", "next field", "enter", "sign in", "ctrl+c", "quit"))
	return b.String()
}
