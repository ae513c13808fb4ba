package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"concertdesk/internal/models"
)

const apiPrefix = "/api/v1"

// Session is the result of a successful login.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

// DayConcerts is the concert list for one date.
type DayConcerts struct {
	Date     string           `json:"date"`
	Concerts []models.Concert `json:"concerts"`
}

// Client talks to the concertdesk API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client. token may be empty until Login is called.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Token returns the bearer token currently in use.
func (c *Client) Token() string {
	return c.token
}

// Login exchanges credentials for a session and keeps its token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}

	var session Session
	if err := c.post(ctx, "/auth/login", body, &session); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	c.token = session.Token
	return &session, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.get(ctx, "/me", &u); err != nil {
		return nil, fmt.Errorf("client.Me: %w", err)
	}
	return &u, nil
}

// ConcertsForDate lists the concerts on date (YYYY-MM-DD) in display order.
func (c *Client) ConcertsForDate(ctx context.Context, date string) ([]models.Concert, error) {
	params := url.Values{}
	params.Set("date", date)

	var day DayConcerts
	if err := c.get(ctx, "/concerts?"+params.Encode(), &day); err != nil {
		return nil, fmt.Errorf("client.ConcertsForDate: %w", err)
	}
	return day.Concerts, nil
}

// Concert fetches a single concert.
func (c *Client) Concert(ctx context.Context, id string) (*models.Concert, error) {
	var concert models.Concert
	if err := c.get(ctx, "/concerts/"+url.PathEscape(id), &concert); err != nil {
		return nil, fmt.Errorf("client.Concert: %w", err)
	}
	return &concert, nil
}

// TrackingStatus reports whether the caller is tracking work time.
func (c *Client) TrackingStatus(ctx context.Context) (*models.TrackingStatus, error) {
	var status models.TrackingStatus
	if err := c.get(ctx, "/me/tracking", &status); err != nil {
		return nil, fmt.Errorf("client.TrackingStatus: %w", err)
	}
	return &status, nil
}

// StartTracking starts a work session, or returns the running one.
func (c *Client) StartTracking(ctx context.Context) (*models.TrackingStatus, error) {
	var status models.TrackingStatus
	if err := c.post(ctx, "/me/tracking/start", nil, &status); err != nil {
		return nil, fmt.Errorf("client.StartTracking: %w", err)
	}
	return &status, nil
}

// StopTracking ends the running work session and returns what was recorded.
func (c *Client) StopTracking(ctx context.Context) (*models.WorkSession, error) {
	var session models.WorkSession
	if err := c.post(ctx, "/me/tracking/stop", nil, &session); err != nil {
		return nil, fmt.Errorf("client.StopTracking: %w", err)
	}
	return &session, nil
}

// Totals returns the caller's day, week, month and year totals.
func (c *Client) Totals(ctx context.Context) (*models.WorkTotals, error) {
	var totals models.WorkTotals
	if err := c.get(ctx, "/me/tracking/totals", &totals); err != nil {
		return nil, fmt.Errorf("client.Totals: %w", err)
	}
	return &totals, nil
}

// SessionsForDay lists the work sessions recorded on date.
func (c *Client) SessionsForDay(ctx context.Context, date string) ([]models.WorkSession, error) {
	params := url.Values{}
	params.Set("date", date)

	var out struct {
		Sessions []models.WorkSession `json:"sessions"`
	}
	if err := c.get(ctx, "/me/tracking/sessions?"+params.Encode(), &out); err != nil {
		return nil, fmt.Errorf("client.SessionsForDay: %w", err)
	}
	return out.Sessions, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
