package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"twelveweek/internal/config"
	"twelveweek/internal/db"
	"twelveweek/internal/domain"
	"twelveweek/internal/engine"
	"twelveweek/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	// Pin the clock inside week 2 of a cycle starting 2024-01-01.
	e.Now = func() time.Time { return time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC) }
	// Tokens are issued at the pinned clock time but validated against real
	// time, so the TTL must be long enough to keep them valid when the tests
	// actually run.
	handler, err := New(Config{Engine: e, BasePath: "/api", Auth: AuthConfig{JWTSecret: "test-secret", TokenTTL: 100 * 365 * 24 * time.Hour}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeData(t *testing.T, body []byte, out any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v (%s)", err, string(body))
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("unmarshal data: %v (%s)", err, string(env.Data))
		}
	}
	return env
}

func registerUser(t *testing.T, srv *testServer, email string) map[string]string {
	t.Helper()
	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/auth/register", map[string]any{
		"email":    email,
		"password": "hunter2hunter2",
		"name":     "Tester",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register status %d: %s", res.StatusCode, string(body))
	}
	var auth struct {
		Token string `json:"token"`
	}
	decodeData(t, body, &auth)
	if auth.Token == "" {
		t.Fatalf("expected token in register response: %s", string(body))
	}
	return map[string]string{"Authorization": "Bearer " + auth.Token}
}

func TestScorecardFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	hdr := registerUser(t, srv, "flow@example.com")

	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/api/cycles", map[string]any{
		"name":      "Q1",
		"startDate": "2024-01-01",
		"status":    "active",
	}, hdr)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create cycle %d: %s", res.StatusCode, string(body))
	}
	var cycle domain.Cycle
	decodeData(t, body, &cycle)

	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/api/goals", map[string]any{
		"cycleId": cycle.ID,
		"title":   "Publish weekly",
	}, hdr)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create goal %d: %s", res.StatusCode, string(body))
	}
	var goal domain.Goal
	decodeData(t, body, &goal)

	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/api/goals/"+goal.ID+"/tactics", map[string]any{
		"title": "Draft a post",
	}, hdr)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create tactic %d: %s", res.StatusCode, string(body))
	}
	var tactic domain.Tactic
	decodeData(t, body, &tactic)

	var tasks []domain.WeeklyTask
	for i := 0; i < 3; i++ {
		res, body = doJSON(t, client, http.MethodPost, srv.URL+"/api/weekly/tasks", map[string]any{
			"tacticId":   tactic.ID,
			"weekNumber": 2,
		}, hdr)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("plan task %d: %s", res.StatusCode, string(body))
		}
		var task domain.WeeklyTask
		decodeData(t, body, &task)
		tasks = append(tasks, task)
	}

	res, body = doJSON(t, client, http.MethodPatch, srv.URL+"/api/weekly/tasks/"+tasks[0].ID, map[string]any{
		"status": "completed",
	}, hdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("complete task %d: %s", res.StatusCode, string(body))
	}

	// The pinned clock resolves to week 2, so calculate needs no week.
	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/api/scorecard/calculate", map[string]any{}, hdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("calculate %d: %s", res.StatusCode, string(body))
	}
	var sc domain.Scorecard
	env := decodeData(t, body, &sc)
	if !env.Success {
		t.Fatalf("expected success envelope: %s", string(body))
	}
	if sc.WeekNumber != 2 || sc.PlannedTasks != 3 || sc.CompletedTasks != 1 || sc.ExecutionScore != 33 {
		t.Fatalf("unexpected scorecard: %+v", sc)
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/api/scorecard/current", nil, hdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("current %d: %s", res.StatusCode, string(body))
	}
	var current domain.Scorecard
	decodeData(t, body, &current)
	if current.ID != sc.ID {
		t.Fatalf("current should return the persisted row: %s vs %s", current.ID, sc.ID)
	}
}

func TestScorecardNoCycleAsymmetry(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	hdr := registerUser(t, srv, "nocycle@example.com")

	// Reads answer with an explicit null.
	res, body := doJSON(t, client, http.MethodGet, srv.URL+"/api/scorecard/current", nil, hdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("current %d: %s", res.StatusCode, string(body))
	}
	env := decodeData(t, body, nil)
	if !env.Success || string(env.Data) != "null" {
		t.Fatalf("expected success with null data, got %s", string(body))
	}

	// Writes fail: there is no cycle to attach the row to.
	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/api/scorecard/calculate", map[string]any{}, hdr)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("calculate %d: %s", res.StatusCode, string(body))
	}
	env = decodeData(t, body, nil)
	if env.Success || env.Error == nil || env.Error.Code != "NO_CYCLE" {
		t.Fatalf("expected NO_CYCLE error, got %s", string(body))
	}
}

func TestInvalidWeekCode(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	hdr := registerUser(t, srv, "week@example.com")

	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/api/cycles", map[string]any{
		"name":      "Q1",
		"startDate": "2024-01-01",
		"status":    "active",
	}, hdr)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create cycle %d: %s", res.StatusCode, string(body))
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/api/scorecard/week/13", nil, hdr)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("week 13 status %d: %s", res.StatusCode, string(body))
	}
	env := decodeData(t, body, nil)
	if env.Error == nil || env.Error.Code != "INVALID_WEEK" {
		t.Fatalf("expected INVALID_WEEK, got %s", string(body))
	}
}

func TestAuthErrors(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	registerUser(t, srv, "dupe@example.com")

	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/api/auth/register", map[string]any{
		"email":    "dupe@example.com",
		"password": "hunter2hunter2",
		"name":     "Dupe",
	}, nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status %d: %s", res.StatusCode, string(body))
	}
	env := decodeData(t, body, nil)
	if env.Error == nil || env.Error.Code != "USER_EXISTS" {
		t.Fatalf("expected USER_EXISTS, got %s", string(body))
	}

	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/api/auth/login", map[string]any{
		"email":    "dupe@example.com",
		"password": "wrong-password",
	}, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login status %d: %s", res.StatusCode, string(body))
	}
	env = decodeData(t, body, nil)
	if env.Error == nil || env.Error.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("expected INVALID_CREDENTIALS, got %s", string(body))
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/api/users/me", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status %d: %s", res.StatusCode, string(body))
	}
	env = decodeData(t, body, nil)
	if env.Error == nil || env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED, got %s", string(body))
	}
}

func TestNotFoundCode(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	hdr := registerUser(t, srv, "missing@example.com")

	res, body := doJSON(t, client, http.MethodGet, srv.URL+"/api/goals/does-not-exist", nil, hdr)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("missing goal status %d: %s", res.StatusCode, string(body))
	}
	env := decodeData(t, body, nil)
	if env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %s", string(body))
	}
}

func TestCurrentCycleNullWhenInactive(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	hdr := registerUser(t, srv, "cycles@example.com")

	res, body := doJSON(t, client, http.MethodGet, srv.URL+"/api/cycles/current", nil, hdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("current cycle %d: %s", res.StatusCode, string(body))
	}
	env := decodeData(t, body, nil)
	if !env.Success || string(env.Data) != "null" {
		t.Fatalf("expected success with null data, got %s", string(body))
	}

	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/api/cycles", map[string]any{
		"name":      "Q1",
		"startDate": "2024-01-01",
		"status":    "active",
	}, hdr)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create cycle %d: %s", res.StatusCode, string(body))
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/api/cycles/current", nil, hdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("current cycle %d: %s", res.StatusCode, string(body))
	}
	var cycle domain.Cycle
	decodeData(t, body, &cycle)
	if cycle.Name != "Q1" {
		t.Fatalf("expected the active cycle back, got %s", string(body))
	}
}

func TestTrendShape(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	hdr := registerUser(t, srv, "trend@example.com")

	// No cycle, nothing persisted: still a well-formed empty trend.
	res, body := doJSON(t, client, http.MethodGet, srv.URL+"/api/scorecard/trend", nil, hdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("trend %d: %s", res.StatusCode, string(body))
	}
	var trend struct {
		Trend []struct {
			Week  int `json:"week"`
			Score int `json:"score"`
		} `json:"trend"`
		Average int `json:"average"`
	}
	env := decodeData(t, body, &trend)
	if !env.Success || string(env.Data) == "null" {
		t.Fatalf("expected a non-null trend, got %s", string(body))
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &keys); err != nil {
		t.Fatalf("unmarshal trend keys: %v", err)
	}
	if _, okTrend := keys["trend"]; !okTrend {
		t.Fatalf("expected a trend key, got %s", string(env.Data))
	}
	if _, okAvg := keys["average"]; !okAvg {
		t.Fatalf("expected an average key, got %s", string(env.Data))
	}
	if len(trend.Trend) != 0 || trend.Average != 0 {
		t.Fatalf("expected empty trend with zero average, got %s", string(env.Data))
	}

	// Score week 2, complete the cycle, and the trend still sees it.
	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/api/cycles", map[string]any{
		"name":      "Q1",
		"startDate": "2024-01-01",
		"status":    "active",
	}, hdr)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create cycle %d: %s", res.StatusCode, string(body))
	}
	var cycle domain.Cycle
	decodeData(t, body, &cycle)
	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/api/scorecard/calculate", map[string]any{}, hdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("calculate %d: %s", res.StatusCode, string(body))
	}
	res, body = doJSON(t, client, http.MethodPatch, srv.URL+"/api/cycles/"+cycle.ID, map[string]any{
		"status": "completed",
	}, hdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("complete cycle %d: %s", res.StatusCode, string(body))
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/api/scorecard/trend", nil, hdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("trend %d: %s", res.StatusCode, string(body))
	}
	decodeData(t, body, &trend)
	if len(trend.Trend) != 1 || trend.Trend[0].Week != 2 {
		t.Fatalf("expected the completed cycle's week in the trend, got %s", string(body))
	}
}

func TestCurrentWeekTasksWithoutCycle(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	hdr := registerUser(t, srv, "weekly@example.com")

	res, body := doJSON(t, client, http.MethodGet, srv.URL+"/api/weekly/current", nil, hdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("weekly current %d: %s", res.StatusCode, string(body))
	}
	var plan struct {
		Week  int               `json:"week"`
		Tasks []json.RawMessage `json:"tasks"`
	}
	env := decodeData(t, body, &plan)
	if !env.Success || plan.Week != 1 || len(plan.Tasks) != 0 {
		t.Fatalf("expected an empty week 1 plan, got %s", string(body))
	}
}

func TestComputedScorecardShape(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	hdr := registerUser(t, srv, "shape@example.com")

	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/api/cycles", map[string]any{
		"name":      "Q1",
		"startDate": "2024-01-01",
		"status":    "active",
	}, hdr)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create cycle %d: %s", res.StatusCode, string(body))
	}

	// Nothing persisted yet, so this scorecard is computed on read.
	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/api/scorecard/current", nil, hdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("current %d: %s", res.StatusCode, string(body))
	}
	env := decodeData(t, body, nil)
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &keys); err != nil {
		t.Fatalf("unmarshal scorecard keys: %v (%s)", err, string(env.Data))
	}
	if _, hasID := keys["id"]; hasID {
		t.Fatalf("computed scorecard should omit id, got %s", string(env.Data))
	}
	if _, hasCreated := keys["createdAt"]; hasCreated {
		t.Fatalf("computed scorecard should omit createdAt, got %s", string(env.Data))
	}
	reflection, hasReflection := keys["reflection"]
	if !hasReflection || string(reflection) != "null" {
		t.Fatalf("expected reflection null, got %s", string(env.Data))
	}
}
