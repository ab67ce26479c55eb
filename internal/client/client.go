// Package client is a typed HTTP client for the refpay API. The smoke
// tool and the season simulator drive the service through it.
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

	"refpay.org/internal/assignment"
	"refpay.org/internal/period"
	"refpay.org/internal/rates"
	"refpay.org/internal/settlement"
)

// APIError carries the HTTP status and the server's error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Client talks to one refpay API instance. Safe for concurrent use
// once the token is set.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithToken sets a pre-issued bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Authenticate obtains a bearer token and stores it on the client.
func (c *Client) Authenticate(ctx context.Context, user string, roles []string) error {
	var resp tokenResponse
	err := c.call(ctx, http.MethodPost, "/v1/auth/token", map[string]any{
		"user":  user,
		"roles": roles,
	}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

// AssignmentItem is one referee-role pair in a bulk assign request.
type AssignmentItem struct {
	RefereeID string `json:"referee_id"`
	Role      string `json:"role"`
}

type assignmentList struct {
	Items []assignment.Assignment `json:"items"`
}

// BulkAssign replaces the match's assignment set.
func (c *Client) BulkAssign(ctx context.Context, matchID string, items []AssignmentItem) ([]assignment.Assignment, error) {
	var resp assignmentList
	err := c.call(ctx, http.MethodPost, "/v1/matches/"+url.PathEscape(matchID)+"/assignments",
		map[string]any{"items": items}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// CancelAll cancels every live assignment on the match and reports the
// number of rows it touched.
func (c *Client) CancelAll(ctx context.Context, matchID string) (int, error) {
	var resp struct {
		Canceled int `json:"canceled"`
	}
	err := c.call(ctx, http.MethodPost, "/v1/matches/"+url.PathEscape(matchID)+"/assignments/cancel", nil, &resp)
	return resp.Canceled, err
}

// MatchAssignments lists the match's current assignment set.
func (c *Client) MatchAssignments(ctx context.Context, matchID string) ([]assignment.Assignment, error) {
	var resp assignmentList
	err := c.call(ctx, http.MethodGet, "/v1/matches/"+url.PathEscape(matchID)+"/assignments", nil, &resp)
	return resp.Items, err
}

func (c *Client) Accept(ctx context.Context, id, comment string) (assignment.Assignment, error) {
	return c.respond(ctx, id, "accept", comment)
}

func (c *Client) Reject(ctx context.Context, id, comment string) (assignment.Assignment, error) {
	return c.respond(ctx, id, "reject", comment)
}

func (c *Client) Complete(ctx context.Context, id string) (assignment.Assignment, error) {
	var out assignment.Assignment
	err := c.call(ctx, http.MethodPost, "/v1/assignments/"+url.PathEscape(id)+"/complete", nil, &out)
	return out, err
}

func (c *Client) respond(ctx context.Context, id, action, comment string) (assignment.Assignment, error) {
	var body any
	if comment != "" {
		body = map[string]any{"comment": comment}
	}
	var out assignment.Assignment
	err := c.call(ctx, http.MethodPost, "/v1/assignments/"+url.PathEscape(id)+"/"+action, body, &out)
	return out, err
}

// CreateRate adds an active rate entry.
func (c *Client) CreateRate(ctx context.Context, tournamentID, rank, role string, supplement int64, description string) (rates.Entry, error) {
	var out rates.Entry
	err := c.call(ctx, http.MethodPost, "/v1/rates", map[string]any{
		"tournament_id": tournamentID,
		"rank":          rank,
		"role":          role,
		"supplement":    supplement,
		"description":   description,
	}, &out)
	return out, err
}

// Settlement fetches the referee's monthly pay report.
func (c *Client) Settlement(ctx context.Context, refereeID string, month period.Month) (settlement.Settlement, error) {
	var out settlement.Settlement
	err := c.call(ctx, http.MethodGet,
		"/v1/referees/"+url.PathEscape(refereeID)+"/settlements/"+month.String(), nil, &out)
	return out, err
}

// MonthlySummary fetches per-referee totals for the month.
func (c *Client) MonthlySummary(ctx context.Context, month period.Month) ([]settlement.Summary, error) {
	var out struct {
		Items []settlement.Summary `json:"items"`
	}
	err := c.call(ctx, http.MethodGet, "/v1/settlements/"+month.String(), nil, &out)
	return out.Items, err
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := resp.Status
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
