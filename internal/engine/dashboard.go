package engine

import (
	"context"

	"twelveweek/internal/domain"
)

// Dashboard is a one-call summary of the user's current execution state.
type Dashboard struct {
	Cycle       *domain.Cycle     `json:"cycle"`
	CurrentWeek int               `json:"currentWeek"`
	Scorecard   *domain.Scorecard `json:"scorecard"`
	Goals       []domain.Goal     `json:"goals,omitempty"`
	TaskCounts  map[string]int    `json:"taskCounts,omitempty"`
}

// GetDashboard assembles the active cycle, its resolved current week, the
// week's computed scorecard, and goal and task summaries. With no active
// cycle everything inside is empty rather than an error.
func (e Engine) GetDashboard(ctx context.Context, userID string) (Dashboard, error) {
	var d Dashboard
	cycle, err := e.Repo.ActiveCycle(ctx, userID)
	if err != nil {
		return d, err
	}
	if cycle == nil {
		return d, nil
	}
	d.Cycle = cycle
	week, err := ResolveWeek(cycle.StartDate, e.now().UTC(), e.cycleWeeks())
	if err != nil {
		return d, err
	}
	d.CurrentWeek = week
	d.Scorecard, err = e.weekScorecard(ctx, userID, cycle.ID, week)
	if err != nil {
		return d, err
	}
	d.Goals, err = e.Repo.ListGoals(ctx, userID, cycle.ID)
	if err != nil {
		return d, err
	}
	d.TaskCounts, err = e.Repo.CountTasksByStatus(ctx, userID, cycle.ID)
	return d, err
}
