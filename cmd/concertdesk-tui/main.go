package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"concertdesk/internal/tui"
	"concertdesk/pkg/client"
)

const defaultAPIURL = "http://localhost:8080"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// cachedSession is what the client keeps between runs. The password is
// never written.
type cachedSession struct {
	Email string `json:"email"`
	Token string `json:"token,omitempty"`
}

// sessionFilePath returns ~/.concertdesk/session.json.
func sessionFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".concertdesk", "session.json"), nil
}

// readSession returns the cached session, with CONCERTDESK_TOKEN taking
// precedence over the cached token.
func readSession() cachedSession {
	var s cachedSession
	if path, err := sessionFilePath(); err == nil {
		if data, err := os.ReadFile(path); err == nil {
			_ = json.Unmarshal(data, &s)
		}
	}
	if tok := os.Getenv("CONCERTDESK_TOKEN"); tok != "" {
		s.Token = tok
	}
	s.Email = strings.TrimSpace(s.Email)
	s.Token = strings.TrimSpace(s.Token)
	return s
}

func saveSession(s cachedSession) error {
	path, err := sessionFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// runLogout drops the cached token but keeps the email for the next login.
func runLogout() error {
	s := readSession()
	s.Token = ""
	if err := saveSession(s); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func run() error {
	apiURL := os.Getenv("CONCERTDESK_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "logout":
			return runLogout()
		case "help", "--help", "-h":
			fmt.Println("usage: concertdesk-tui [logout]")
			fmt.Println("  CONCERTDESK_API_URL  API base URL (default " + defaultAPIURL + ")")
			fmt.Println("  CONCERTDESK_TOKEN    bearer token, overrides the cached one")
			return nil
		default:
			return errors.New("unknown command " + os.Args[1])
		}
	}

	session := readSession()
	c := client.New(apiURL, session.Token)

	loggedIn := session.Token != ""
	if loggedIn {
		// Only a 401 forces a new login; other errors surface in the UI.
		if _, err := c.Me(context.Background()); client.IsStatus(err, http.StatusUnauthorized) {
			loggedIn = false
		}
	}

	app := tui.NewApp(c, tui.Options{
		Email:    session.Email,
		LoggedIn: loggedIn,
		OnLogin: func(email, token string) error {
			return saveSession(cachedSession{Email: email, Token: token})
		},
	})

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}
