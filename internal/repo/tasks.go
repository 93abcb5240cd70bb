package repo

import (
	"context"
	"database/sql"
	"strings"

	"twelveweek/internal/domain"
)

const taskCols = `wt.id,wt.tactic_id,wt.user_id,wt.cycle_id,wt.week_number,wt.status,wt.notes,wt.completed_at,wt.created_at`

func (r Repo) InsertWeeklyTask(ctx context.Context, tx *sql.Tx, t domain.WeeklyTask) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO weekly_tasks(id,tactic_id,user_id,cycle_id,week_number,status,notes,completed_at,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		t.ID, t.TacticID, t.UserID, t.CycleID, t.WeekNumber, t.Status, nullable(t.Notes), nullableStringPtr(t.CompletedAt), t.CreatedAt)
	return err
}

func scanWeeklyTask(scan func(dest ...any) error) (domain.WeeklyTask, error) {
	var t domain.WeeklyTask
	var notes, completedAt sql.NullString
	err := scan(&t.ID, &t.TacticID, &t.UserID, &t.CycleID, &t.WeekNumber, &t.Status, &notes, &completedAt, &t.CreatedAt)
	if err != nil {
		return t, err
	}
	if notes.Valid {
		t.Notes = notes.String
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.String
	}
	return t, nil
}

func (r Repo) GetWeeklyTask(ctx context.Context, userID, id string) (domain.WeeklyTask, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskCols+` FROM weekly_tasks wt WHERE wt.id=? AND wt.user_id=?`, id, userID)
	t, err := scanWeeklyTask(row.Scan)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

type TaskFilters struct {
	UserID     string
	CycleID    string
	WeekNumber int
	TacticID   string
	Status     string
}

// ListWeeklyTasks joins tactic and goal titles so list responses can show
// what each task is for without extra round trips.
func (r Repo) ListWeeklyTasks(ctx context.Context, f TaskFilters) ([]domain.WeeklyTask, error) {
	clauses := []string{"wt.user_id=?"}
	args := []any{f.UserID}
	if f.CycleID != "" {
		clauses = append(clauses, "wt.cycle_id=?")
		args = append(args, f.CycleID)
	}
	if f.WeekNumber > 0 {
		clauses = append(clauses, "wt.week_number=?")
		args = append(args, f.WeekNumber)
	}
	if f.TacticID != "" {
		clauses = append(clauses, "wt.tactic_id=?")
		args = append(args, f.TacticID)
	}
	if f.Status != "" {
		clauses = append(clauses, "wt.status=?")
		args = append(args, f.Status)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := `SELECT ` + taskCols + `,t.title,g.title
FROM weekly_tasks wt
JOIN tactics t ON t.id=wt.tactic_id
JOIN goals g ON g.id=t.goal_id ` + where + ` ORDER BY wt.created_at ASC, wt.id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WeeklyTask
	for rows.Next() {
		var t domain.WeeklyTask
		var notes, completedAt sql.NullString
		if err := rows.Scan(&t.ID, &t.TacticID, &t.UserID, &t.CycleID, &t.WeekNumber, &t.Status, &notes, &completedAt, &t.CreatedAt, &t.TacticTitle, &t.GoalTitle); err != nil {
			return nil, err
		}
		if notes.Valid {
			t.Notes = notes.String
		}
		if completedAt.Valid {
			t.CompletedAt = &completedAt.String
		}
		res = append(res, t)
	}
	return res, nil
}

// TaskPatch carries optional task fields. Nil means leave unchanged.
// SetCompletedAt distinguishes "clear completed_at" from "leave it".
type TaskPatch struct {
	Status         *string
	Notes          *string
	CompletedAt    *string
	SetCompletedAt bool
}

func (r Repo) UpdateWeeklyTask(ctx context.Context, tx *sql.Tx, userID, id string, p TaskPatch) error {
	res, err := tx.ExecContext(ctx, `UPDATE weekly_tasks SET
		status=COALESCE(?,status),
		notes=COALESCE(?,notes),
		completed_at=CASE WHEN ? THEN ? ELSE completed_at END
		WHERE id=? AND user_id=?`,
		p.Status, p.Notes, p.SetCompletedAt, nullableStringPtr(p.CompletedAt), id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteWeeklyTask(ctx context.Context, tx *sql.Tx, userID, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM weekly_tasks WHERE id=? AND user_id=?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountWeekTasks returns planned and completed counts for one week of a
// cycle. Every non-deleted task counts as planned regardless of status.
func (r Repo) CountWeekTasks(ctx context.Context, tx *sql.Tx, userID, cycleID string, week int) (planned, completed int, err error) {
	row := tx.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(CASE WHEN status='completed' THEN 1 ELSE 0 END),0)
FROM weekly_tasks WHERE user_id=? AND cycle_id=? AND week_number=?`, userID, cycleID, week)
	err = row.Scan(&planned, &completed)
	return planned, completed, err
}

func (r Repo) CountTasksByStatus(ctx context.Context, userID, cycleID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM weekly_tasks WHERE user_id=? AND cycle_id=? GROUP BY status`, userID, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, nil
}
