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

// CycleCreateOptions are parameters for creating a cycle.
type CycleCreateOptions struct {
	Name      string
	StartDate string
	Status    string
}

func (e Engine) cycleWeeks() int {
	if e.Config != nil && e.Config.Planning.CycleWeeks > 0 {
		return e.Config.Planning.CycleWeeks
	}
	return 12
}

// CreateCycle creates a planning cycle. EndDate is derived from the start
// date plus the configured number of weeks. Activating a cycle completes
// any other active one so at most one cycle is active per user.
func (e Engine) CreateCycle(ctx context.Context, userID string, opts CycleCreateOptions) (domain.Cycle, error) {
	if opts.Name == "" {
		return domain.Cycle{}, errors.New("name is required")
	}
	start, err := time.Parse("2006-01-02", opts.StartDate)
	if err != nil {
		return domain.Cycle{}, fmt.Errorf("start date must be YYYY-MM-DD: %w", err)
	}
	status := opts.Status
	if status == "" {
		status = "upcoming"
	}
	switch status {
	case "upcoming", "active", "completed":
	default:
		return domain.Cycle{}, fmt.Errorf("invalid cycle status %s", status)
	}
	c := domain.Cycle{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      opts.Name,
		StartDate: start.Format("2006-01-02"),
		EndDate:   start.AddDate(0, 0, e.cycleWeeks()*7-1).Format("2006-01-02"),
		Status:    status,
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Cycle{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertCycle(ctx, tx, c); err != nil {
		return domain.Cycle{}, fmt.Errorf("insert cycle: %w", err)
	}
	if status == "active" {
		if err := e.Repo.DemoteActiveCycles(ctx, tx, userID, c.ID); err != nil {
			return domain.Cycle{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, "cycle.created", userID, "cycle", c.ID, events.EventPayload{"name": c.Name, "status": c.Status}); err != nil {
		return domain.Cycle{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Cycle{}, err
	}
	return c, nil
}

// UpdateCycle applies a patch. Setting status to active demotes any other
// active cycle for the user.
func (e Engine) UpdateCycle(ctx context.Context, userID, id string, p repo.CyclePatch) (domain.Cycle, error) {
	if p.Status != nil {
		switch *p.Status {
		case "upcoming", "active", "completed":
		default:
			return domain.Cycle{}, fmt.Errorf("invalid cycle status %s", *p.Status)
		}
	}
	if p.StartDate != nil {
		if _, err := time.Parse("2006-01-02", *p.StartDate); err != nil {
			return domain.Cycle{}, fmt.Errorf("start date must be YYYY-MM-DD: %w", err)
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Cycle{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateCycle(ctx, tx, userID, id, p); err != nil {
		return domain.Cycle{}, err
	}
	if p.Status != nil && *p.Status == "active" {
		if err := e.Repo.DemoteActiveCycles(ctx, tx, userID, id); err != nil {
			return domain.Cycle{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, "cycle.updated", userID, "cycle", id, nil); err != nil {
		return domain.Cycle{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Cycle{}, err
	}
	return e.Repo.GetCycle(ctx, userID, id)
}

func (e Engine) GetCycle(ctx context.Context, userID, id string) (domain.Cycle, error) {
	return e.Repo.GetCycle(ctx, userID, id)
}

func (e Engine) ListCycles(ctx context.Context, userID string) ([]domain.Cycle, error) {
	return e.Repo.ListCycles(ctx, userID)
}

// ActiveCycle returns nil when the user has no active cycle.
func (e Engine) ActiveCycle(ctx context.Context, userID string) (*domain.Cycle, error) {
	return e.Repo.ActiveCycle(ctx, userID)
}
