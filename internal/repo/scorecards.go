package repo

import (
	"context"
	"database/sql"

	"twelveweek/internal/domain"
)

const scorecardCols = `id,user_id,cycle_id,week_number,planned_tasks,completed_tasks,execution_score,reflection,created_at`

func scanScorecard(scan func(dest ...any) error) (domain.Scorecard, error) {
	var s domain.Scorecard
	var reflection sql.NullString
	err := scan(&s.ID, &s.UserID, &s.CycleID, &s.WeekNumber, &s.PlannedTasks, &s.CompletedTasks, &s.ExecutionScore, &reflection, &s.CreatedAt)
	if err != nil {
		return s, err
	}
	if reflection.Valid {
		s.Reflection = &reflection.String
	}
	return s, nil
}

// UpsertScorecard writes the score for one (user, cycle, week) triple in a
// single statement. A conflicting row keeps its id and created_at so the
// scorecard's identity is stable across recalculations. The stored row is
// read back and returned.
func (r Repo) UpsertScorecard(ctx context.Context, tx *sql.Tx, s domain.Scorecard) (domain.Scorecard, error) {
	_, err := tx.ExecContext(ctx, `INSERT INTO scorecards(id,user_id,cycle_id,week_number,planned_tasks,completed_tasks,execution_score,reflection,created_at)
VALUES (?,?,?,?,?,?,?,?,?)
ON CONFLICT(user_id,cycle_id,week_number) DO UPDATE SET
	planned_tasks=excluded.planned_tasks,
	completed_tasks=excluded.completed_tasks,
	execution_score=excluded.execution_score,
	reflection=COALESCE(excluded.reflection,scorecards.reflection)`,
		s.ID, s.UserID, s.CycleID, s.WeekNumber, s.PlannedTasks, s.CompletedTasks, s.ExecutionScore, nullableStringPtr(s.Reflection), s.CreatedAt)
	if err != nil {
		return domain.Scorecard{}, err
	}
	row := tx.QueryRowContext(ctx, `SELECT `+scorecardCols+` FROM scorecards WHERE user_id=? AND cycle_id=? AND week_number=?`,
		s.UserID, s.CycleID, s.WeekNumber)
	out, err := scanScorecard(row.Scan)
	if err == sql.ErrNoRows {
		return out, ErrNotFound
	}
	return out, err
}

func (r Repo) GetScorecard(ctx context.Context, userID, cycleID string, week int) (domain.Scorecard, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+scorecardCols+` FROM scorecards WHERE user_id=? AND cycle_id=? AND week_number=?`,
		userID, cycleID, week)
	s, err := scanScorecard(row.Scan)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

// ListScorecards returns the user's scorecards ordered by week. An empty
// cycleID spans all cycles.
func (r Repo) ListScorecards(ctx context.Context, userID, cycleID string) ([]domain.Scorecard, error) {
	query := `SELECT ` + scorecardCols + ` FROM scorecards WHERE user_id=?`
	args := []any{userID}
	if cycleID != "" {
		query += ` AND cycle_id=?`
		args = append(args, cycleID)
	}
	query += ` ORDER BY week_number ASC, created_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Scorecard
	for rows.Next() {
		s, err := scanScorecard(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}
