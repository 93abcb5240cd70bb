package engine

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"twelveweek/internal/domain"
	"twelveweek/internal/events"
	"twelveweek/internal/repo"
)

// ResolveWeek maps a calendar moment to a week number of a cycle that
// started on startDate (YYYY-MM-DD, midnight-anchored). Days 0-6 are week
// 1, days 7-13 week 2, and so on. The result is clamped to 1..weeks: a
// moment before the start resolves to week 1, a moment past the end stays
// at the final week.
func ResolveWeek(startDate string, at time.Time, weeks int) (int, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return 0, err
	}
	days := int(math.Floor(at.Sub(start).Hours() / 24))
	week := days/7 + 1
	if days < 0 {
		week = 1
	}
	if week < 1 {
		week = 1
	}
	if week > weeks {
		week = weeks
	}
	return week, nil
}

// CalculateScore returns the execution score as a whole percentage,
// rounded half away from zero. Zero planned tasks score zero, never a
// division error. Completed counts above planned pass through, so over
// delivery can exceed 100.
func CalculateScore(planned, completed int) int {
	if planned <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(planned) * 100))
}

// CurrentScorecard computes the score for the user's current week without
// persisting anything. It returns nil when the user has no active cycle;
// callers render that as an explicit null, not an error.
func (e Engine) CurrentScorecard(ctx context.Context, userID string) (*domain.Scorecard, error) {
	cycle, err := e.Repo.ActiveCycle(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, nil
	}
	week, err := ResolveWeek(cycle.StartDate, e.now().UTC(), e.cycleWeeks())
	if err != nil {
		return nil, err
	}
	return e.weekScorecard(ctx, userID, cycle.ID, week)
}

// WeekScorecard computes the score for a specific week of the active
// cycle without persisting anything.
func (e Engine) WeekScorecard(ctx context.Context, userID string, week int) (*domain.Scorecard, error) {
	if week < 1 || week > e.cycleWeeks() {
		return nil, ErrInvalidWeek
	}
	cycle, err := e.Repo.ActiveCycle(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, nil
	}
	return e.weekScorecard(ctx, userID, cycle.ID, week)
}

// weekScorecard prefers the persisted row for the week; absent one it
// computes from tasks without persisting.
func (e Engine) weekScorecard(ctx context.Context, userID, cycleID string, week int) (*domain.Scorecard, error) {
	stored, err := e.Repo.GetScorecard(ctx, userID, cycleID, week)
	if err == nil {
		return &stored, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	return e.computeScorecard(ctx, userID, cycleID, week)
}

func (e Engine) computeScorecard(ctx context.Context, userID, cycleID string, week int) (*domain.Scorecard, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	planned, completed, err := e.Repo.CountWeekTasks(ctx, tx, userID, cycleID, week)
	if err != nil {
		return nil, err
	}
	return &domain.Scorecard{
		UserID:         userID,
		CycleID:        cycleID,
		WeekNumber:     week,
		PlannedTasks:   planned,
		CompletedTasks: completed,
		ExecutionScore: CalculateScore(planned, completed),
	}, nil
}

// ScorecardCalculateOptions are parameters for persisting a scorecard.
// WeekNumber zero means the current week of the active cycle.
type ScorecardCalculateOptions struct {
	WeekNumber int
	Reflection *string
}

// CalculateScorecard counts the week's tasks, scores them, and upserts
// the (user, cycle, week) row in one transaction. Recalculating the same
// week overwrites counts and score but keeps the row's identity. With no
// active cycle it fails with ErrNoActiveCycle; the write endpoint needs a
// concrete cycle to attach the row to.
func (e Engine) CalculateScorecard(ctx context.Context, userID string, opts ScorecardCalculateOptions) (domain.Scorecard, error) {
	cycle, err := e.Repo.ActiveCycle(ctx, userID)
	if err != nil {
		return domain.Scorecard{}, err
	}
	if cycle == nil {
		return domain.Scorecard{}, ErrNoActiveCycle
	}
	week := opts.WeekNumber
	if week == 0 {
		week, err = ResolveWeek(cycle.StartDate, e.now().UTC(), e.cycleWeeks())
		if err != nil {
			return domain.Scorecard{}, err
		}
	}
	if week < 1 || week > e.cycleWeeks() {
		return domain.Scorecard{}, ErrInvalidWeek
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Scorecard{}, err
	}
	defer tx.Rollback()

	planned, completed, err := e.Repo.CountWeekTasks(ctx, tx, userID, cycle.ID, week)
	if err != nil {
		return domain.Scorecard{}, err
	}
	s := domain.Scorecard{
		ID:             uuid.New().String(),
		UserID:         userID,
		CycleID:        cycle.ID,
		WeekNumber:     week,
		PlannedTasks:   planned,
		CompletedTasks: completed,
		ExecutionScore: CalculateScore(planned, completed),
		Reflection:     opts.Reflection,
		CreatedAt:      e.now().UTC().Format(time.RFC3339),
	}
	stored, err := e.Repo.UpsertScorecard(ctx, tx, s)
	if err != nil {
		return domain.Scorecard{}, err
	}
	if err := e.Events.Append(ctx, tx, "scorecard.calculated", userID, "scorecard", stored.ID, events.EventPayload{
		"week":      stored.WeekNumber,
		"planned":   stored.PlannedTasks,
		"completed": stored.CompletedTasks,
		"score":     stored.ExecutionScore,
	}); err != nil {
		return domain.Scorecard{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Scorecard{}, err
	}
	return stored, nil
}

// ScorecardHistory returns the persisted scorecards for a cycle ordered
// by week. CycleID empty means the active cycle; with no active cycle the
// history is empty.
// ScorecardHistory returns persisted scorecards ordered by week number.
// Without a cycle filter it spans every cycle the user has scored,
// completed ones included.
func (e Engine) ScorecardHistory(ctx context.Context, userID, cycleID string) ([]domain.Scorecard, error) {
	if cycleID != "" {
		if _, err := e.Repo.GetCycle(ctx, userID, cycleID); err != nil {
			return nil, err
		}
	}
	return e.Repo.ListScorecards(ctx, userID, cycleID)
}

// TrendPoint is one scored week in a trend.
type TrendPoint struct {
	Week  int `json:"week"`
	Score int `json:"score"`
}

// Trend summarizes persisted weekly scores.
type Trend struct {
	Trend     []TrendPoint `json:"trend"`
	Average   int          `json:"average"`
	BestWeek  int          `json:"bestWeek,omitempty"`
	WorstWeek int          `json:"worstWeek,omitempty"`
}

// ScorecardTrend averages the persisted weekly scores, rounded half away
// from zero, and marks the best and worst weeks. With nothing persisted
// the trend is empty and the average is zero.
func (e Engine) ScorecardTrend(ctx context.Context, userID, cycleID string) (Trend, error) {
	cards, err := e.ScorecardHistory(ctx, userID, cycleID)
	if err != nil {
		return Trend{}, err
	}
	t := Trend{Trend: []TrendPoint{}}
	if len(cards) == 0 {
		return t, nil
	}
	sum := 0
	best, worst := cards[0], cards[0]
	for _, c := range cards {
		t.Trend = append(t.Trend, TrendPoint{Week: c.WeekNumber, Score: c.ExecutionScore})
		sum += c.ExecutionScore
		if c.ExecutionScore > best.ExecutionScore {
			best = c
		}
		if c.ExecutionScore < worst.ExecutionScore {
			worst = c
		}
	}
	t.Average = int(math.Round(float64(sum) / float64(len(cards))))
	t.BestWeek = best.WeekNumber
	t.WorstWeek = worst.WeekNumber
	return t, nil
}
