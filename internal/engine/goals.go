package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"twelveweek/internal/domain"
	"twelveweek/internal/events"
	"twelveweek/internal/repo"
)

// GoalCreateOptions are parameters for creating a goal.
type GoalCreateOptions struct {
	CycleID      string
	Title        string
	Description  string
	TargetMetric string
	TargetValue  *float64
}

func (e Engine) CreateGoal(ctx context.Context, userID string, opts GoalCreateOptions) (domain.Goal, error) {
	if opts.Title == "" {
		return domain.Goal{}, errors.New("title is required")
	}
	if opts.CycleID == "" {
		return domain.Goal{}, errors.New("cycle is required")
	}
	if _, err := e.Repo.GetCycle(ctx, userID, opts.CycleID); err != nil {
		return domain.Goal{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	g := domain.Goal{
		ID:           uuid.New().String(),
		UserID:       userID,
		CycleID:      opts.CycleID,
		Title:        opts.Title,
		Description:  opts.Description,
		TargetMetric: opts.TargetMetric,
		TargetValue:  opts.TargetValue,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Goal{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertGoal(ctx, tx, g); err != nil {
		return domain.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "goal.created", userID, "goal", g.ID, events.EventPayload{"title": g.Title}); err != nil {
		return domain.Goal{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Goal{}, err
	}
	return g, nil
}

func (e Engine) GetGoal(ctx context.Context, userID, id string) (domain.Goal, error) {
	return e.Repo.GetGoal(ctx, userID, id)
}

func (e Engine) ListGoals(ctx context.Context, userID, cycleID string) ([]domain.Goal, error) {
	return e.Repo.ListGoals(ctx, userID, cycleID)
}

func (e Engine) UpdateGoal(ctx context.Context, userID, id string, p repo.GoalPatch) (domain.Goal, error) {
	if p.Status != nil {
		switch *p.Status {
		case "active", "completed", "abandoned":
		default:
			return domain.Goal{}, fmt.Errorf("invalid goal status %s", *p.Status)
		}
	}
	now := e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Goal{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateGoal(ctx, tx, userID, id, now, p); err != nil {
		return domain.Goal{}, err
	}
	if err := e.Events.Append(ctx, tx, "goal.updated", userID, "goal", id, nil); err != nil {
		return domain.Goal{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Goal{}, err
	}
	return e.Repo.GetGoal(ctx, userID, id)
}

// DeleteGoal removes the goal and, through foreign keys, its tactics and
// their weekly tasks.
func (e Engine) DeleteGoal(ctx context.Context, userID, id string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteGoal(ctx, tx, userID, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "goal.deleted", userID, "goal", id, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// TacticCreateOptions are parameters for creating a tactic.
type TacticCreateOptions struct {
	GoalID         string
	Title          string
	Description    string
	Frequency      string
	FrequencyCount int
}

func (e Engine) CreateTactic(ctx context.Context, userID string, opts TacticCreateOptions) (domain.Tactic, error) {
	if opts.Title == "" {
		return domain.Tactic{}, errors.New("title is required")
	}
	if opts.GoalID == "" {
		return domain.Tactic{}, errors.New("goal is required")
	}
	if _, err := e.Repo.GetGoal(ctx, userID, opts.GoalID); err != nil {
		return domain.Tactic{}, err
	}
	freq := opts.Frequency
	if freq == "" {
		freq = "weekly"
	}
	switch freq {
	case "daily", "weekly", "specific":
	default:
		return domain.Tactic{}, fmt.Errorf("invalid frequency %s", freq)
	}
	count := opts.FrequencyCount
	if count <= 0 {
		count = 1
	}
	t := domain.Tactic{
		ID:             uuid.New().String(),
		GoalID:         opts.GoalID,
		Title:          opts.Title,
		Description:    opts.Description,
		Frequency:      freq,
		FrequencyCount: count,
		CreatedAt:      e.now().UTC().Format(time.RFC3339),
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Tactic{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertTactic(ctx, tx, t); err != nil {
		return domain.Tactic{}, fmt.Errorf("insert tactic: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "tactic.created", userID, "tactic", t.ID, events.EventPayload{"title": t.Title}); err != nil {
		return domain.Tactic{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Tactic{}, err
	}
	return t, nil
}

func (e Engine) ListTactics(ctx context.Context, userID, goalID string) ([]domain.Tactic, error) {
	if _, err := e.Repo.GetGoal(ctx, userID, goalID); err != nil {
		return nil, err
	}
	return e.Repo.ListTactics(ctx, userID, goalID)
}

func (e Engine) UpdateTactic(ctx context.Context, userID, id string, p repo.TacticPatch) (domain.Tactic, error) {
	if p.Frequency != nil {
		switch *p.Frequency {
		case "daily", "weekly", "specific":
		default:
			return domain.Tactic{}, fmt.Errorf("invalid frequency %s", *p.Frequency)
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Tactic{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTactic(ctx, tx, userID, id, p); err != nil {
		return domain.Tactic{}, err
	}
	if err := e.Events.Append(ctx, tx, "tactic.updated", userID, "tactic", id, nil); err != nil {
		return domain.Tactic{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Tactic{}, err
	}
	return e.Repo.GetTactic(ctx, userID, id)
}

func (e Engine) DeleteTactic(ctx context.Context, userID, id string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteTactic(ctx, tx, userID, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "tactic.deleted", userID, "tactic", id, nil); err != nil {
		return err
	}
	return tx.Commit()
}
