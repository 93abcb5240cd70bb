package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"twelveweek/internal/config"
	"twelveweek/internal/db"
	"twelveweek/internal/domain"
	"twelveweek/internal/engine"
	"twelveweek/internal/migrate"
	"twelveweek/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	UserID string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	u, err := eng.Register(ctx, "ana@example.com", "hunter2hunter2", "Ana")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx, UserID: u.ID}
}

// seedActiveCycle starts a cycle on 2024-01-01 so the fixed clock sits in
// week 1.
func seedActiveCycle(t *testing.T, env testEnv) domain.Cycle {
	t.Helper()
	c, err := env.Engine.CreateCycle(env.Ctx, env.UserID, engine.CycleCreateOptions{
		Name:      "Q1",
		StartDate: "2024-01-01",
		Status:    "active",
	})
	if err != nil {
		t.Fatalf("create cycle: %v", err)
	}
	return c
}

// seedTactic creates a goal and one tactic under it.
func seedTactic(t *testing.T, env testEnv, cycleID string) domain.Tactic {
	t.Helper()
	g, err := env.Engine.CreateGoal(env.Ctx, env.UserID, engine.GoalCreateOptions{CycleID: cycleID, Title: "Ship it"})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	tac, err := env.Engine.CreateTactic(env.Ctx, env.UserID, engine.TacticCreateOptions{GoalID: g.ID, Title: "Write daily"})
	if err != nil {
		t.Fatalf("create tactic: %v", err)
	}
	return tac
}

func planTasks(t *testing.T, env testEnv, tacticID string, week, n int) []domain.WeeklyTask {
	t.Helper()
	tasks := make([]domain.WeeklyTask, 0, n)
	for i := 0; i < n; i++ {
		task, err := env.Engine.PlanTask(env.Ctx, env.UserID, engine.TaskPlanOptions{TacticID: tacticID, WeekNumber: week})
		if err != nil {
			t.Fatalf("plan task: %v", err)
		}
		tasks = append(tasks, task)
	}
	return tasks
}

func completeTask(t *testing.T, env testEnv, id string) domain.WeeklyTask {
	t.Helper()
	status := "completed"
	task, err := env.Engine.UpdateTask(env.Ctx, env.UserID, id, engine.TaskUpdateOptions{Status: &status})
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}
	return task
}

func TestResolveWeekBoundaries(t *testing.T) {
	start := "2024-01-01"
	cases := []struct {
		at   time.Time
		want int
	}{
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1},   // day 0
		{time.Date(2024, 1, 7, 23, 0, 0, 0, time.UTC), 1},  // day 6, last day of week 1
		{time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), 2},   // day 7
		{time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), 12}, // day 77, first day of week 12
		{time.Date(2024, 3, 24, 0, 0, 0, 0, time.UTC), 12}, // day 83, last in-range day
		{time.Date(2024, 7, 19, 0, 0, 0, 0, time.UTC), 12}, // day 200, clamped
		{time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC), 1}, // before the start, clamped
	}
	for _, tc := range cases {
		got, err := engine.ResolveWeek(start, tc.at, 12)
		if err != nil {
			t.Fatalf("resolve %s: %v", tc.at, err)
		}
		if got != tc.want {
			t.Errorf("resolve %s: got week %d, want %d", tc.at, got, tc.want)
		}
	}
	if _, err := engine.ResolveWeek("not-a-date", time.Now(), 12); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestCalculateScore(t *testing.T) {
	cases := []struct {
		planned, completed, want int
	}{
		{0, 0, 0},
		{0, 4, 0}, // zero planned always scores zero
		{3, 1, 33},
		{3, 2, 67},
		{8, 3, 38}, // 37.5 rounds up
		{4, 2, 50},
		{2, 3, 150}, // over delivery passes through
		{12, 12, 100},
	}
	for _, tc := range cases {
		if got := engine.CalculateScore(tc.planned, tc.completed); got != tc.want {
			t.Errorf("score(%d,%d)=%d, want %d", tc.planned, tc.completed, got, tc.want)
		}
	}
}

func TestCalculateScorecardKeepsRowIdentity(t *testing.T) {
	env := newTestEnv(t)
	cycle := seedActiveCycle(t, env)
	tac := seedTactic(t, env, cycle.ID)
	tasks := planTasks(t, env, tac.ID, 1, 3)
	completeTask(t, env, tasks[0].ID)

	first, err := env.Engine.CalculateScorecard(env.Ctx, env.UserID, engine.ScorecardCalculateOptions{})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if first.WeekNumber != 1 || first.PlannedTasks != 3 || first.CompletedTasks != 1 || first.ExecutionScore != 33 {
		t.Fatalf("unexpected first scorecard: %+v", first)
	}

	completeTask(t, env, tasks[1].ID)
	second, err := env.Engine.CalculateScorecard(env.Ctx, env.UserID, engine.ScorecardCalculateOptions{WeekNumber: 1})
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("recalculation changed row identity: %s -> %s", first.ID, second.ID)
	}
	if second.CreatedAt != first.CreatedAt {
		t.Fatalf("recalculation changed created_at")
	}
	if second.CompletedTasks != 2 || second.ExecutionScore != 67 {
		t.Fatalf("unexpected second scorecard: %+v", second)
	}

	// A different week gets its own row.
	other, err := env.Engine.CalculateScorecard(env.Ctx, env.UserID, engine.ScorecardCalculateOptions{WeekNumber: 2})
	if err != nil {
		t.Fatalf("calculate week 2: %v", err)
	}
	if other.ID == first.ID {
		t.Fatalf("expected distinct rows per week")
	}
	if other.PlannedTasks != 0 || other.ExecutionScore != 0 {
		t.Fatalf("unexpected empty-week scorecard: %+v", other)
	}
}

func TestCalculateScorecardRequiresActiveCycle(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CalculateScorecard(env.Ctx, env.UserID, engine.ScorecardCalculateOptions{})
	if !errors.Is(err, engine.ErrNoActiveCycle) {
		t.Fatalf("expected ErrNoActiveCycle, got %v", err)
	}
	// The read path reports the same situation as an absent scorecard.
	sc, err := env.Engine.CurrentScorecard(env.Ctx, env.UserID)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if sc != nil {
		t.Fatalf("expected nil scorecard without a cycle, got %+v", sc)
	}
}

func TestCurrentScorecardPrefersStoredRow(t *testing.T) {
	env := newTestEnv(t)
	cycle := seedActiveCycle(t, env)
	tac := seedTactic(t, env, cycle.ID)
	tasks := planTasks(t, env, tac.ID, 1, 2)

	// Nothing persisted yet: computed on the fly, no row id.
	sc, err := env.Engine.CurrentScorecard(env.Ctx, env.UserID)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if sc == nil || sc.ID != "" || sc.PlannedTasks != 2 || sc.ExecutionScore != 0 {
		t.Fatalf("unexpected computed scorecard: %+v", sc)
	}

	if _, err := env.Engine.CalculateScorecard(env.Ctx, env.UserID, engine.ScorecardCalculateOptions{}); err != nil {
		t.Fatalf("calculate: %v", err)
	}
	completeTask(t, env, tasks[0].ID)

	// The persisted row wins even though the task state moved on.
	sc, err = env.Engine.CurrentScorecard(env.Ctx, env.UserID)
	if err != nil {
		t.Fatalf("current after calculate: %v", err)
	}
	if sc == nil || sc.ID == "" {
		t.Fatalf("expected persisted scorecard, got %+v", sc)
	}
	if sc.CompletedTasks != 0 {
		t.Fatalf("expected stored counts, got %+v", sc)
	}
}

func TestWeekScorecardValidatesRange(t *testing.T) {
	env := newTestEnv(t)
	seedActiveCycle(t, env)
	for _, week := range []int{0, -1, 13} {
		if _, err := env.Engine.WeekScorecard(env.Ctx, env.UserID, week); !errors.Is(err, engine.ErrInvalidWeek) {
			t.Fatalf("week %d: expected ErrInvalidWeek, got %v", week, err)
		}
	}
	if _, err := env.Engine.CalculateScorecard(env.Ctx, env.UserID, engine.ScorecardCalculateOptions{WeekNumber: 13}); !errors.Is(err, engine.ErrInvalidWeek) {
		t.Fatalf("calculate week 13: expected ErrInvalidWeek, got %v", err)
	}
}

func TestScorecardTrend(t *testing.T) {
	env := newTestEnv(t)
	cycle := seedActiveCycle(t, env)
	tac := seedTactic(t, env, cycle.ID)

	// Week 1: 4/5 done (80), week 2: 3/5 (60), week 3: 5/5 (100).
	done := map[int]int{1: 4, 2: 3, 3: 5}
	for week := 1; week <= 3; week++ {
		tasks := planTasks(t, env, tac.ID, week, 5)
		for i := 0; i < done[week]; i++ {
			completeTask(t, env, tasks[i].ID)
		}
		if _, err := env.Engine.CalculateScorecard(env.Ctx, env.UserID, engine.ScorecardCalculateOptions{WeekNumber: week}); err != nil {
			t.Fatalf("calculate week %d: %v", week, err)
		}
	}

	trend, err := env.Engine.ScorecardTrend(env.Ctx, env.UserID, "")
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(trend.Trend) != 3 {
		t.Fatalf("unexpected trend: %+v", trend)
	}
	want := []engine.TrendPoint{{Week: 1, Score: 80}, {Week: 2, Score: 60}, {Week: 3, Score: 100}}
	for i, p := range want {
		if trend.Trend[i] != p {
			t.Fatalf("point %d: got %+v, want %+v", i, trend.Trend[i], p)
		}
	}
	if trend.Average != 80 {
		t.Fatalf("average: got %d, want 80", trend.Average)
	}
	if trend.BestWeek != 3 || trend.WorstWeek != 2 {
		t.Fatalf("best/worst: got %d/%d, want 3/2", trend.BestWeek, trend.WorstWeek)
	}
}

func TestScorecardHistorySpansCompletedCycles(t *testing.T) {
	env := newTestEnv(t)
	cycle := seedActiveCycle(t, env)
	tac := seedTactic(t, env, cycle.ID)
	tasks := planTasks(t, env, tac.ID, 1, 2)
	completeTask(t, env, tasks[0].ID)
	if _, err := env.Engine.CalculateScorecard(env.Ctx, env.UserID, engine.ScorecardCalculateOptions{WeekNumber: 1}); err != nil {
		t.Fatalf("calculate: %v", err)
	}

	completed := "completed"
	if _, err := env.Engine.UpdateCycle(env.Ctx, env.UserID, cycle.ID, repo.CyclePatch{Status: &completed}); err != nil {
		t.Fatalf("complete cycle: %v", err)
	}

	items, err := env.Engine.ScorecardHistory(env.Ctx, env.UserID, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(items) != 1 || items[0].WeekNumber != 1 {
		t.Fatalf("expected the completed cycle's scorecard, got %+v", items)
	}

	trend, err := env.Engine.ScorecardTrend(env.Ctx, env.UserID, "")
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(trend.Trend) != 1 || trend.Average != 50 {
		t.Fatalf("unexpected trend: %+v", trend)
	}
}

func TestScorecardTrendEmpty(t *testing.T) {
	env := newTestEnv(t)
	trend, err := env.Engine.ScorecardTrend(env.Ctx, env.UserID, "")
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if trend.Trend == nil || len(trend.Trend) != 0 || trend.Average != 0 {
		t.Fatalf("expected empty trend with zero average, got %+v", trend)
	}
}

func TestActivatingCycleDemotesPrevious(t *testing.T) {
	env := newTestEnv(t)
	first := seedActiveCycle(t, env)
	second, err := env.Engine.CreateCycle(env.Ctx, env.UserID, engine.CycleCreateOptions{
		Name:      "Q2",
		StartDate: "2024-03-25",
		Status:    "active",
	})
	if err != nil {
		t.Fatalf("create second cycle: %v", err)
	}
	active, err := env.Engine.ActiveCycle(env.Ctx, env.UserID)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active == nil || active.ID != second.ID {
		t.Fatalf("expected second cycle active, got %+v", active)
	}
	demoted, err := env.Engine.GetCycle(env.Ctx, env.UserID, first.ID)
	if err != nil {
		t.Fatalf("get first: %v", err)
	}
	if demoted.Status != "completed" {
		t.Fatalf("expected first cycle completed, got %s", demoted.Status)
	}
}

func TestCycleEndDateDerived(t *testing.T) {
	env := newTestEnv(t)
	c := seedActiveCycle(t, env)
	if c.EndDate != "2024-03-24" {
		t.Fatalf("end date: got %s, want 2024-03-24", c.EndDate)
	}
}

func TestTaskCompletionStampsTimestamp(t *testing.T) {
	env := newTestEnv(t)
	cycle := seedActiveCycle(t, env)
	tac := seedTactic(t, env, cycle.ID)
	task := planTasks(t, env, tac.ID, 1, 1)[0]
	if task.CompletedAt != nil {
		t.Fatalf("new task should not have completed_at")
	}

	task = completeTask(t, env, task.ID)
	if task.CompletedAt == nil {
		t.Fatalf("expected completed_at after completion")
	}

	status := "pending"
	task, err := env.Engine.UpdateTask(env.Ctx, env.UserID, task.ID, engine.TaskUpdateOptions{Status: &status})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if task.CompletedAt != nil {
		t.Fatalf("expected completed_at cleared on reopen")
	}
}

func TestPlanTaskValidatesWeek(t *testing.T) {
	env := newTestEnv(t)
	cycle := seedActiveCycle(t, env)
	tac := seedTactic(t, env, cycle.ID)
	for _, week := range []int{0, 13} {
		_, err := env.Engine.PlanTask(env.Ctx, env.UserID, engine.TaskPlanOptions{TacticID: tac.ID, WeekNumber: week})
		if !errors.Is(err, engine.ErrInvalidWeek) {
			t.Fatalf("week %d: expected ErrInvalidWeek, got %v", week, err)
		}
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.Register(env.Ctx, "Ana@Example.com", "otherpassword", "Ana Again"); !errors.Is(err, engine.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := env.Engine.Login(env.Ctx, "ana@example.com", "wrong"); !errors.Is(err, engine.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	u, err := env.Engine.Login(env.Ctx, "ANA@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.ID != env.UserID {
		t.Fatalf("login returned wrong user")
	}
}

func TestScorecardEventLogged(t *testing.T) {
	env := newTestEnv(t)
	seedActiveCycle(t, env)
	if _, err := env.Engine.CalculateScorecard(env.Ctx, env.UserID, engine.ScorecardCalculateOptions{}); err != nil {
		t.Fatalf("calculate: %v", err)
	}
	var count int
	row := env.Engine.DB.QueryRowContext(env.Ctx, `SELECT count(*) FROM events WHERE type='scorecard.calculated' AND user_id=?`, env.UserID)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("query events: %v", err)
	}
	if count == 0 {
		t.Fatalf("expected scorecard.calculated event")
	}
}

func TestWeekTasksResolvesCurrentWeek(t *testing.T) {
	env := newTestEnv(t)
	c := seedActiveCycle(t, env)
	tac := seedTactic(t, env, c.ID)
	planTasks(t, env, tac.ID, 1, 2)
	planTasks(t, env, tac.ID, 2, 3)

	plan, err := env.Engine.WeekTasks(env.Ctx, env.UserID, 0)
	if err != nil {
		t.Fatalf("week tasks: %v", err)
	}
	if plan.Week != 1 {
		t.Fatalf("expected week 1, got %d", plan.Week)
	}
	if len(plan.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(plan.Tasks))
	}
	if plan.Tasks[0].TacticTitle != "Write daily" || plan.Tasks[0].GoalTitle != "Ship it" {
		t.Fatalf("expected joined titles, got %q / %q", plan.Tasks[0].TacticTitle, plan.Tasks[0].GoalTitle)
	}

	plan, err = env.Engine.WeekTasks(env.Ctx, env.UserID, 2)
	if err != nil {
		t.Fatalf("week tasks: %v", err)
	}
	if len(plan.Tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(plan.Tasks))
	}

	if _, err := env.Engine.WeekTasks(env.Ctx, env.UserID, 13); !errors.Is(err, engine.ErrInvalidWeek) {
		t.Fatalf("expected ErrInvalidWeek, got %v", err)
	}
}

func TestWeekTasksWithoutActiveCycle(t *testing.T) {
	env := newTestEnv(t)
	plan, err := env.Engine.WeekTasks(env.Ctx, env.UserID, 0)
	if err != nil {
		t.Fatalf("week tasks: %v", err)
	}
	if plan.Week != 1 || plan.Tasks == nil || len(plan.Tasks) != 0 {
		t.Fatalf("expected empty week 1 plan, got %+v", plan)
	}
	if _, err := env.Engine.WeekTasks(env.Ctx, env.UserID, 13); !errors.Is(err, engine.ErrInvalidWeek) {
		t.Fatalf("expected ErrInvalidWeek, got %v", err)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	env := newTestEnv(t)
	c := seedActiveCycle(t, env)
	tac := seedTactic(t, env, c.ID)
	planTasks(t, env, tac.ID, 1, 2)

	if err := env.Engine.DeleteAccount(env.Ctx, env.UserID); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	if _, err := env.Engine.GetUser(env.Ctx, env.UserID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	cycles, err := env.Engine.ListCycles(env.Ctx, env.UserID)
	if err != nil {
		t.Fatalf("list cycles: %v", err)
	}
	if len(cycles) != 0 {
		t.Fatalf("expected cycles to cascade, got %d", len(cycles))
	}
}
