package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"twelveweek/internal/domain"
)

func (r Repo) InsertPartner(ctx context.Context, tx *sql.Tx, p domain.Partner) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO partners(id,user_id,partner_id,status,created_at) VALUES (?,?,?,?,?)`,
		p.ID, p.UserID, p.PartnerID, p.Status, p.CreatedAt)
	return err
}

func (r Repo) GetPartner(ctx context.Context, id string) (domain.Partner, error) {
	var p domain.Partner
	err := r.DB.QueryRowContext(ctx, `SELECT id,user_id,partner_id,status,created_at FROM partners WHERE id=?`, id).
		Scan(&p.ID, &p.UserID, &p.PartnerID, &p.Status, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// ListPartners returns partnerships in either direction for the user,
// joined with the other party's profile.
func (r Repo) ListPartners(ctx context.Context, userID string) ([]domain.Partner, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT p.id,p.user_id,p.partner_id,p.status,p.created_at,
	u.name,u.email,COALESCE(u.avatar_url,'')
FROM partners p
JOIN users u ON u.id=CASE WHEN p.user_id=? THEN p.partner_id ELSE p.user_id END
WHERE p.user_id=? OR p.partner_id=?
ORDER BY p.created_at DESC`, userID, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Partner
	for rows.Next() {
		var p domain.Partner
		if err := rows.Scan(&p.ID, &p.UserID, &p.PartnerID, &p.Status, &p.CreatedAt, &p.PartnerName, &p.PartnerEmail, &p.PartnerAvatar); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

func (r Repo) UpdatePartnerStatus(ctx context.Context, tx *sql.Tx, id, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE partners SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeletePartner(ctx context.Context, tx *sql.Tx, userID, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM partners WHERE id=? AND (user_id=? OR partner_id=?)`, id, userID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertMeeting(ctx context.Context, tx *sql.Tx, m domain.Meeting) error {
	commitments, err := json.Marshal(m.Commitments)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO partner_meetings(id,user_id,partner_id,cycle_id,week_number,meeting_date,commitments,review_notes,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		m.ID, m.UserID, nullableStringPtr(m.PartnerID), m.CycleID, m.WeekNumber, nullableStringPtr(m.MeetingDate), string(commitments), nullable(m.ReviewNotes), m.CreatedAt)
	return err
}

func (r Repo) ListMeetings(ctx context.Context, userID, cycleID string) ([]domain.Meeting, error) {
	query := `SELECT id,user_id,partner_id,cycle_id,week_number,meeting_date,commitments,review_notes,created_at FROM partner_meetings WHERE user_id=?`
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
	var res []domain.Meeting
	for rows.Next() {
		var m domain.Meeting
		var partnerID, meetingDate, commitments, reviewNotes sql.NullString
		if err := rows.Scan(&m.ID, &m.UserID, &partnerID, &m.CycleID, &m.WeekNumber, &meetingDate, &commitments, &reviewNotes, &m.CreatedAt); err != nil {
			return nil, err
		}
		if partnerID.Valid {
			m.PartnerID = &partnerID.String
		}
		if meetingDate.Valid {
			m.MeetingDate = &meetingDate.String
		}
		if commitments.Valid && commitments.String != "" {
			if err := json.Unmarshal([]byte(commitments.String), &m.Commitments); err != nil {
				return nil, err
			}
		}
		if reviewNotes.Valid {
			m.ReviewNotes = reviewNotes.String
		}
		res = append(res, m)
	}
	return res, nil
}
