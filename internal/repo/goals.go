package repo

import (
	"context"
	"database/sql"

	"twelveweek/internal/domain"
)

const goalCols = `id,user_id,cycle_id,title,description,target_metric,target_value,current_value,status,created_at,updated_at`

func (r Repo) InsertGoal(ctx context.Context, tx *sql.Tx, g domain.Goal) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO goals(id,user_id,cycle_id,title,description,target_metric,target_value,current_value,status,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		g.ID, g.UserID, g.CycleID, g.Title, nullable(g.Description), nullable(g.TargetMetric),
		nullableFloatPtr(g.TargetValue), nullableFloatPtr(g.CurrentValue), g.Status, g.CreatedAt, g.UpdatedAt)
	return err
}

func scanGoal(scan func(dest ...any) error) (domain.Goal, error) {
	var g domain.Goal
	var description, metric sql.NullString
	var target, current sql.NullFloat64
	err := scan(&g.ID, &g.UserID, &g.CycleID, &g.Title, &description, &metric, &target, &current, &g.Status, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return g, err
	}
	if description.Valid {
		g.Description = description.String
	}
	if metric.Valid {
		g.TargetMetric = metric.String
	}
	if target.Valid {
		v := target.Float64
		g.TargetValue = &v
	}
	if current.Valid {
		v := current.Float64
		g.CurrentValue = &v
	}
	return g, nil
}

func (r Repo) GetGoal(ctx context.Context, userID, id string) (domain.Goal, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+goalCols+` FROM goals WHERE id=? AND user_id=?`, id, userID)
	g, err := scanGoal(row.Scan)
	if err == sql.ErrNoRows {
		return g, ErrNotFound
	}
	return g, err
}

func (r Repo) ListGoals(ctx context.Context, userID, cycleID string) ([]domain.Goal, error) {
	query := `SELECT ` + goalCols + ` FROM goals WHERE user_id=?`
	args := []any{userID}
	if cycleID != "" {
		query += ` AND cycle_id=?`
		args = append(args, cycleID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Goal
	for rows.Next() {
		g, err := scanGoal(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, nil
}

// GoalPatch carries optional goal fields. Nil means leave unchanged.
type GoalPatch struct {
	Title        *string
	Description  *string
	TargetMetric *string
	TargetValue  *float64
	CurrentValue *float64
	Status       *string
}

func (r Repo) UpdateGoal(ctx context.Context, tx *sql.Tx, userID, id, updatedAt string, p GoalPatch) error {
	res, err := tx.ExecContext(ctx, `UPDATE goals SET
		title=COALESCE(?,title),
		description=COALESCE(?,description),
		target_metric=COALESCE(?,target_metric),
		target_value=COALESCE(?,target_value),
		current_value=COALESCE(?,current_value),
		status=COALESCE(?,status),
		updated_at=? WHERE id=? AND user_id=?`,
		p.Title, p.Description, p.TargetMetric, p.TargetValue, p.CurrentValue, p.Status, updatedAt, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteGoal(ctx context.Context, tx *sql.Tx, userID, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM goals WHERE id=? AND user_id=?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const tacticCols = `t.id,t.goal_id,t.title,t.description,t.frequency,t.frequency_count,t.created_at`

func (r Repo) InsertTactic(ctx context.Context, tx *sql.Tx, t domain.Tactic) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tactics(id,goal_id,title,description,frequency,frequency_count,created_at) VALUES (?,?,?,?,?,?,?)`,
		t.ID, t.GoalID, t.Title, nullable(t.Description), t.Frequency, t.FrequencyCount, t.CreatedAt)
	return err
}

func scanTactic(scan func(dest ...any) error) (domain.Tactic, error) {
	var t domain.Tactic
	var description sql.NullString
	err := scan(&t.ID, &t.GoalID, &t.Title, &description, &t.Frequency, &t.FrequencyCount, &t.CreatedAt)
	if err != nil {
		return t, err
	}
	if description.Valid {
		t.Description = description.String
	}
	return t, nil
}

// GetTactic resolves ownership through the goal join; a tactic under
// another user's goal reads as not found.
func (r Repo) GetTactic(ctx context.Context, userID, id string) (domain.Tactic, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+tacticCols+` FROM tactics t JOIN goals g ON g.id=t.goal_id WHERE t.id=? AND g.user_id=?`, id, userID)
	t, err := scanTactic(row.Scan)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) ListTactics(ctx context.Context, userID, goalID string) ([]domain.Tactic, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+tacticCols+` FROM tactics t JOIN goals g ON g.id=t.goal_id WHERE t.goal_id=? AND g.user_id=? ORDER BY t.created_at ASC, t.id ASC`, goalID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Tactic
	for rows.Next() {
		t, err := scanTactic(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

// TacticPatch carries optional tactic fields. Nil means leave unchanged.
type TacticPatch struct {
	Title          *string
	Description    *string
	Frequency      *string
	FrequencyCount *int
}

func (r Repo) UpdateTactic(ctx context.Context, tx *sql.Tx, userID, id string, p TacticPatch) error {
	res, err := tx.ExecContext(ctx, `UPDATE tactics SET
		title=COALESCE(?,title),
		description=COALESCE(?,description),
		frequency=COALESCE(?,frequency),
		frequency_count=COALESCE(?,frequency_count)
		WHERE id=? AND goal_id IN (SELECT id FROM goals WHERE user_id=?)`,
		p.Title, p.Description, p.Frequency, p.FrequencyCount, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteTactic(ctx context.Context, tx *sql.Tx, userID, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tactics WHERE id=? AND goal_id IN (SELECT id FROM goals WHERE user_id=?)`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
