package twelveweeksdk

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
)

// Client is a minimal Twelveweek HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// User represents the API user model (partial).
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Cycle represents a 12-week cycle.
type Cycle struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Status    string `json:"status"`
}

// Goal represents a cycle goal (partial).
type Goal struct {
	ID      string `json:"id"`
	CycleID string `json:"cycleId"`
	Title   string `json:"title"`
	Status  string `json:"status"`
}

// Tactic represents a recurring action under a goal.
type Tactic struct {
	ID        string `json:"id"`
	GoalID    string `json:"goalId"`
	Title     string `json:"title"`
	Frequency string `json:"frequency"`
}

// WeeklyTask represents one planned task in a week.
type WeeklyTask struct {
	ID         string `json:"id"`
	TacticID   string `json:"tacticId"`
	CycleID    string `json:"cycleId"`
	WeekNumber int    `json:"weekNumber"`
	Status     string `json:"status"`
}

// Scorecard represents the execution score for one week.
type Scorecard struct {
	ID             string `json:"id"`
	CycleID        string `json:"cycleId"`
	WeekNumber     int    `json:"weekNumber"`
	PlannedTasks   int    `json:"plannedTasks"`
	CompletedTasks int    `json:"completedTasks"`
	ExecutionScore int    `json:"executionScore"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entityKind"`
	EntityID   string `json:"entityId"`
	Payload    string `json:"payload"`
}

// APIError wraps non-2xx responses. Code is the machine-readable error
// code from the response envelope when one could be parsed.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

type authResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Register creates an account and stores the returned bearer token on
// the client.
func (c *Client) Register(ctx context.Context, email, password, name string) (User, error) {
	body := map[string]any{"email": email, "password": password, "name": name}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "auth/register", body, &resp); err != nil {
		return User{}, err
	}
	c.BearerToken = resp.Token
	return resp.User, nil
}

// Login authenticates and stores the returned bearer token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	body := map[string]any{"email": email, "password": password}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "auth/login", body, &resp); err != nil {
		return User{}, err
	}
	c.BearerToken = resp.Token
	return resp.User, nil
}

// CreateCycle creates a cycle. Status may be "upcoming" or "active".
func (c *Client) CreateCycle(ctx context.Context, name, startDate, status string) (Cycle, error) {
	body := map[string]any{"name": name, "startDate": startDate, "status": status}
	var resp Cycle
	err := c.do(ctx, http.MethodPost, "cycles", body, &resp)
	return resp, err
}

// CurrentCycle returns the active cycle, or nil when there is none.
func (c *Client) CurrentCycle(ctx context.Context) (*Cycle, error) {
	var resp *Cycle
	err := c.do(ctx, http.MethodGet, "cycles/current", nil, &resp)
	return resp, err
}

// CreateGoal creates a goal in a cycle.
func (c *Client) CreateGoal(ctx context.Context, cycleID, title string) (Goal, error) {
	body := map[string]any{"cycleId": cycleID, "title": title}
	var resp Goal
	err := c.do(ctx, http.MethodPost, "goals", body, &resp)
	return resp, err
}

// CreateTactic adds a tactic to a goal.
func (c *Client) CreateTactic(ctx context.Context, goalID, title, frequency string) (Tactic, error) {
	body := map[string]any{"title": title, "frequency": frequency}
	endpoint := fmt.Sprintf("goals/%s/tactics", url.PathEscape(goalID))
	var resp Tactic
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// PlanTask plans a tactic into a week of the active cycle.
func (c *Client) PlanTask(ctx context.Context, tacticID string, week int) (WeeklyTask, error) {
	body := map[string]any{"tacticId": tacticID, "weekNumber": week}
	var resp WeeklyTask
	err := c.do(ctx, http.MethodPost, "weekly/tasks", body, &resp)
	return resp, err
}

// CompleteTask marks a task completed.
func (c *Client) CompleteTask(ctx context.Context, taskID string) (WeeklyTask, error) {
	body := map[string]any{"status": "completed"}
	endpoint := fmt.Sprintf("weekly/tasks/%s", url.PathEscape(taskID))
	var resp WeeklyTask
	err := c.do(ctx, http.MethodPatch, endpoint, body, &resp)
	return resp, err
}

// CurrentScorecard returns this week's scorecard, or nil when no cycle
// is active.
func (c *Client) CurrentScorecard(ctx context.Context) (*Scorecard, error) {
	var resp *Scorecard
	err := c.do(ctx, http.MethodGet, "scorecard/current", nil, &resp)
	return resp, err
}

// CalculateScorecard computes and persists a week's score. Week 0 means
// the current week.
func (c *Client) CalculateScorecard(ctx context.Context, week int) (Scorecard, error) {
	body := map[string]any{}
	if week > 0 {
		body["weekNumber"] = week
	}
	var resp Scorecard
	err := c.do(ctx, http.MethodPost, "scorecard/calculate", body, &resp)
	return resp, err
}

// ScorecardHistory returns persisted scorecards for the active cycle.
func (c *Client) ScorecardHistory(ctx context.Context) ([]Scorecard, error) {
	var resp []Scorecard
	err := c.do(ctx, http.MethodGet, "scorecard/history", nil, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "events"
	if limit > 0 {
		endpoint = fmt.Sprintf("events?limit=%d", limit)
	}
	var items []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &items)
	return items, err
}

// envelope is the common response wrapper. Data is left raw so callers
// can decode into their own types; Error is set on failures.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	u := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, u, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var env envelope
	if jsonErr := json.Unmarshal(raw, &env); jsonErr != nil {
		if resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
		}
		return jsonErr
	}
	if resp.StatusCode >= 300 || !env.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if !strings.HasSuffix(base, "/api") {
		base += "/api"
	}
	return base
}
