package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"twelveweek/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const userCols = `id,email,name,COALESCE(password_hash,'') AS password_hash,auth_provider,avatar_url,timezone,created_at,updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var avatar, timezone sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.AuthProvider, &avatar, &timezone, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	if avatar.Valid {
		u.AvatarURL = avatar.String
	}
	if timezone.Valid {
		u.Timezone = timezone.String
	}
	return u, err
}

func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, u domain.User) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO users(id,email,name,password_hash,auth_provider,avatar_url,timezone,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.Name, nullable(u.PasswordHash), u.AuthProvider, nullable(u.AvatarURL), nullable(u.Timezone), u.CreatedAt, u.UpdatedAt)
	return err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=?`, id))
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email=?`, email))
}

// UserPatch carries optional profile fields. Nil means leave unchanged.
type UserPatch struct {
	Name      *string
	AvatarURL *string
	Timezone  *string
}

func (r Repo) UpdateUser(ctx context.Context, id, updatedAt string, p UserPatch) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET
		name=COALESCE(?,name),
		avatar_url=COALESCE(?,avatar_url),
		timezone=COALESCE(?,timezone),
		updated_at=? WHERE id=?`,
		p.Name, p.AvatarURL, p.Timezone, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes the user row; foreign keys cascade through visions,
// cycles, goals, tasks, scorecards, partners and api keys.
func (r Repo) DeleteUser(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpsertVision(ctx context.Context, tx *sql.Tx, v domain.Vision) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO visions(id,user_id,long_term_vision,mid_term_vision,updated_at) VALUES (?,?,?,?,?)
ON CONFLICT(user_id) DO UPDATE SET long_term_vision=excluded.long_term_vision, mid_term_vision=excluded.mid_term_vision, updated_at=excluded.updated_at`,
		v.ID, v.UserID, nullable(v.LongTermVision), nullable(v.MidTermVision), v.UpdatedAt)
	return err
}

func (r Repo) GetVision(ctx context.Context, userID string) (domain.Vision, error) {
	var v domain.Vision
	var long, mid sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,user_id,long_term_vision,mid_term_vision,updated_at FROM visions WHERE user_id=?`, userID).
		Scan(&v.ID, &v.UserID, &long, &mid, &v.UpdatedAt)
	if err == sql.ErrNoRows {
		return v, ErrNotFound
	}
	if long.Valid {
		v.LongTermVision = long.String
	}
	if mid.Valid {
		v.MidTermVision = mid.String
	}
	return v, err
}

const cycleCols = `id,user_id,name,start_date,end_date,status,created_at`

func scanCycle(row *sql.Row) (domain.Cycle, error) {
	var c domain.Cycle
	var endDate sql.NullString
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.StartDate, &endDate, &c.Status, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if endDate.Valid {
		c.EndDate = endDate.String
	}
	return c, err
}

func (r Repo) InsertCycle(ctx context.Context, tx *sql.Tx, c domain.Cycle) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO cycles(id,user_id,name,start_date,end_date,status,created_at) VALUES (?,?,?,?,?,?,?)`,
		c.ID, c.UserID, c.Name, c.StartDate, nullable(c.EndDate), c.Status, c.CreatedAt)
	return err
}

func (r Repo) GetCycle(ctx context.Context, userID, id string) (domain.Cycle, error) {
	return scanCycle(r.DB.QueryRowContext(ctx, `SELECT `+cycleCols+` FROM cycles WHERE id=? AND user_id=?`, id, userID))
}

// ActiveCycle returns nil,nil when the user has no active cycle.
func (r Repo) ActiveCycle(ctx context.Context, userID string) (*domain.Cycle, error) {
	c, err := scanCycle(r.DB.QueryRowContext(ctx, `SELECT `+cycleCols+` FROM cycles WHERE user_id=? AND status='active' ORDER BY start_date DESC LIMIT 1`, userID))
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r Repo) ListCycles(ctx context.Context, userID string) ([]domain.Cycle, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+cycleCols+` FROM cycles WHERE user_id=? ORDER BY start_date DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Cycle
	for rows.Next() {
		var c domain.Cycle
		var endDate sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.StartDate, &endDate, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		if endDate.Valid {
			c.EndDate = endDate.String
		}
		res = append(res, c)
	}
	return res, nil
}

// CyclePatch carries optional cycle fields. Nil means leave unchanged.
type CyclePatch struct {
	Name      *string
	StartDate *string
	EndDate   *string
	Status    *string
}

func (r Repo) UpdateCycle(ctx context.Context, tx *sql.Tx, userID, id string, p CyclePatch) error {
	res, err := tx.ExecContext(ctx, `UPDATE cycles SET
		name=COALESCE(?,name),
		start_date=COALESCE(?,start_date),
		end_date=COALESCE(?,end_date),
		status=COALESCE(?,status)
		WHERE id=? AND user_id=?`,
		p.Name, p.StartDate, p.EndDate, p.Status, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DemoteActiveCycles marks every active cycle for the user completed.
// Used when a new cycle is activated so at most one is active at a time.
func (r Repo) DemoteActiveCycles(ctx context.Context, tx *sql.Tx, userID, exceptID string) error {
	_, err := tx.ExecContext(ctx, `UPDATE cycles SET status='completed' WHERE user_id=? AND status='active' AND id<>?`, userID, exceptID)
	return err
}

func (r Repo) LatestEvents(ctx context.Context, limit int, userID, evtType, entityKind, entityID string) ([]domain.Event, error) {
	return r.LatestEventsFrom(ctx, limit, 0, userID, evtType, entityKind, entityID)
}

func (r Repo) LatestEventsFrom(ctx context.Context, limit int, cursor int64, userID, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if userID != "" {
		clauses = append(clauses, "user_id=?")
		args = append(args, userID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,user_id,entity_kind,entity_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var uid, entID, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &uid, &e.EntityKind, &entID, &payload); err != nil {
			return nil, err
		}
		if uid.Valid {
			e.UserID = uid.String
		}
		if entID.Valid {
			e.EntityID = entID.String
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, nil
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64, userID string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"1=1"}
	var args []any
	if userID != "" {
		clauses = append(clauses, "user_id=?")
		args = append(args, userID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id>?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,user_id,entity_kind,entity_id,payload_json FROM events %s ORDER BY id ASC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var uid, entID, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &uid, &e.EntityKind, &entID, &payload); err != nil {
			return nil, err
		}
		if uid.Valid {
			e.UserID = uid.String
		}
		if entID.Valid {
			e.EntityID = entID.String
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, nil
}

// LatestEventID returns the most recent event ID for a user.
func (r Repo) LatestEventID(ctx context.Context, userID string) (int64, error) {
	query := `SELECT COALESCE(MAX(id),0) FROM events`
	var args []any
	if userID != "" {
		query += ` WHERE user_id=?`
		args = append(args, userID)
	}
	row := r.DB.QueryRowContext(ctx, query, args...)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
