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

// TaskPlanOptions are parameters for planning a weekly task.
type TaskPlanOptions struct {
	TacticID   string
	CycleID    string
	WeekNumber int
	Notes      string
}

// PlanTask creates a pending task for a tactic in a specific week of a
// cycle. The tactic must belong to one of the user's goals.
func (e Engine) PlanTask(ctx context.Context, userID string, opts TaskPlanOptions) (domain.WeeklyTask, error) {
	if opts.TacticID == "" {
		return domain.WeeklyTask{}, errors.New("tactic is required")
	}
	if opts.WeekNumber < 1 || opts.WeekNumber > e.cycleWeeks() {
		return domain.WeeklyTask{}, ErrInvalidWeek
	}
	if _, err := e.Repo.GetTactic(ctx, userID, opts.TacticID); err != nil {
		return domain.WeeklyTask{}, err
	}
	cycleID := opts.CycleID
	if cycleID == "" {
		active, err := e.Repo.ActiveCycle(ctx, userID)
		if err != nil {
			return domain.WeeklyTask{}, err
		}
		if active == nil {
			return domain.WeeklyTask{}, ErrNoActiveCycle
		}
		cycleID = active.ID
	} else if _, err := e.Repo.GetCycle(ctx, userID, cycleID); err != nil {
		return domain.WeeklyTask{}, err
	}

	t := domain.WeeklyTask{
		ID:         uuid.New().String(),
		TacticID:   opts.TacticID,
		UserID:     userID,
		CycleID:    cycleID,
		WeekNumber: opts.WeekNumber,
		Status:     "pending",
		Notes:      opts.Notes,
		CreatedAt:  e.now().UTC().Format(time.RFC3339),
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WeeklyTask{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertWeeklyTask(ctx, tx, t); err != nil {
		return domain.WeeklyTask{}, fmt.Errorf("insert weekly task: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "task.planned", userID, "weekly_task", t.ID, events.EventPayload{"week": t.WeekNumber}); err != nil {
		return domain.WeeklyTask{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WeeklyTask{}, err
	}
	return t, nil
}

// TaskUpdateOptions encapsulates allowed task updates.
type TaskUpdateOptions struct {
	Status *string
	Notes  *string
}

// UpdateTask patches a task. A status change to completed stamps
// completed_at; any other status clears it.
func (e Engine) UpdateTask(ctx context.Context, userID, id string, opts TaskUpdateOptions) (domain.WeeklyTask, error) {
	p := repo.TaskPatch{Status: opts.Status, Notes: opts.Notes}
	if opts.Status != nil {
		switch *opts.Status {
		case "pending", "completed", "skipped":
		default:
			return domain.WeeklyTask{}, fmt.Errorf("invalid task status %s", *opts.Status)
		}
		p.SetCompletedAt = true
		if *opts.Status == "completed" {
			now := e.now().UTC().Format(time.RFC3339)
			p.CompletedAt = &now
		}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WeeklyTask{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateWeeklyTask(ctx, tx, userID, id, p); err != nil {
		return domain.WeeklyTask{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.updated", userID, "weekly_task", id, nil); err != nil {
		return domain.WeeklyTask{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WeeklyTask{}, err
	}
	return e.Repo.GetWeeklyTask(ctx, userID, id)
}

func (e Engine) DeleteTask(ctx context.Context, userID, id string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteWeeklyTask(ctx, tx, userID, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "task.deleted", userID, "weekly_task", id, nil); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) GetTask(ctx context.Context, userID, id string) (domain.WeeklyTask, error) {
	return e.Repo.GetWeeklyTask(ctx, userID, id)
}

// WeekPlan is one week's task list with the resolved week number.
type WeekPlan struct {
	Week  int                 `json:"week"`
	Tasks []domain.WeeklyTask `json:"tasks"`
}

// WeekTasks returns the tasks planned for one week of the active cycle.
// Week zero means the week the clock currently falls in. With no active
// cycle this is a read path, so it answers week 1 with an empty list
// rather than an error.
func (e Engine) WeekTasks(ctx context.Context, userID string, week int) (WeekPlan, error) {
	active, err := e.Repo.ActiveCycle(ctx, userID)
	if err != nil {
		return WeekPlan{}, err
	}
	if active == nil {
		if week == 0 {
			week = 1
		}
		if week < 1 || week > e.cycleWeeks() {
			return WeekPlan{}, ErrInvalidWeek
		}
		return WeekPlan{Week: week, Tasks: []domain.WeeklyTask{}}, nil
	}
	if week == 0 {
		week, err = ResolveWeek(active.StartDate, e.now().UTC(), e.cycleWeeks())
		if err != nil {
			return WeekPlan{}, err
		}
	}
	if week < 1 || week > e.cycleWeeks() {
		return WeekPlan{}, ErrInvalidWeek
	}
	tasks, err := e.Repo.ListWeeklyTasks(ctx, repo.TaskFilters{
		UserID:     userID,
		CycleID:    active.ID,
		WeekNumber: week,
	})
	if err != nil {
		return WeekPlan{}, err
	}
	if tasks == nil {
		tasks = []domain.WeeklyTask{}
	}
	return WeekPlan{Week: week, Tasks: tasks}, nil
}

// ListTasks returns weekly tasks. A zero CycleID filter defaults to the
// active cycle; with neither an explicit cycle nor an active one, the
// list is empty.
func (e Engine) ListTasks(ctx context.Context, userID string, f repo.TaskFilters) ([]domain.WeeklyTask, error) {
	f.UserID = userID
	if f.CycleID == "" {
		active, err := e.Repo.ActiveCycle(ctx, userID)
		if err != nil {
			return nil, err
		}
		if active == nil {
			return nil, nil
		}
		f.CycleID = active.ID
	}
	return e.Repo.ListWeeklyTasks(ctx, f)
}
