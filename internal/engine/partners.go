package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"twelveweek/internal/domain"
	"twelveweek/internal/events"
	"twelveweek/internal/repo"
)

var ErrPartnerNotPending = errors.New("partnership is not pending")

// InvitePartner creates a pending partnership with another registered
// user, looked up by email.
func (e Engine) InvitePartner(ctx context.Context, userID, partnerEmail string) (domain.Partner, error) {
	partnerEmail = strings.ToLower(strings.TrimSpace(partnerEmail))
	if partnerEmail == "" {
		return domain.Partner{}, errors.New("partner email is required")
	}
	partner, err := e.Repo.GetUserByEmail(ctx, partnerEmail)
	if err != nil {
		return domain.Partner{}, err
	}
	if partner.ID == userID {
		return domain.Partner{}, errors.New("cannot partner with yourself")
	}
	p := domain.Partner{
		ID:        uuid.New().String(),
		UserID:    userID,
		PartnerID: partner.ID,
		Status:    "pending",
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Partner{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertPartner(ctx, tx, p); err != nil {
		return domain.Partner{}, fmt.Errorf("insert partner: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "partner.invited", userID, "partner", p.ID, events.EventPayload{"partner_id": partner.ID}); err != nil {
		return domain.Partner{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Partner{}, err
	}
	return p, nil
}

// AcceptPartner marks a pending invitation accepted. Only the invited
// side can accept.
func (e Engine) AcceptPartner(ctx context.Context, userID, id string) (domain.Partner, error) {
	p, err := e.Repo.GetPartner(ctx, id)
	if err != nil {
		return domain.Partner{}, err
	}
	if p.PartnerID != userID {
		return domain.Partner{}, repo.ErrNotFound
	}
	if p.Status != "pending" {
		return domain.Partner{}, ErrPartnerNotPending
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Partner{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdatePartnerStatus(ctx, tx, id, "accepted"); err != nil {
		return domain.Partner{}, err
	}
	if err := e.Events.Append(ctx, tx, "partner.accepted", userID, "partner", id, nil); err != nil {
		return domain.Partner{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Partner{}, err
	}
	p.Status = "accepted"
	return p, nil
}

func (e Engine) ListPartners(ctx context.Context, userID string) ([]domain.Partner, error) {
	return e.Repo.ListPartners(ctx, userID)
}

func (e Engine) RemovePartner(ctx context.Context, userID, id string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeletePartner(ctx, tx, userID, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "partner.removed", userID, "partner", id, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// MeetingCreateOptions are parameters for recording a weekly
// accountability meeting. WeekNumber zero means the current week.
type MeetingCreateOptions struct {
	PartnerID   string
	CycleID     string
	WeekNumber  int
	MeetingDate string
	Commitments []string
	ReviewNotes string
}

func (e Engine) CreateMeeting(ctx context.Context, userID string, opts MeetingCreateOptions) (domain.Meeting, error) {
	cycleID := opts.CycleID
	week := opts.WeekNumber
	if cycleID == "" {
		active, err := e.Repo.ActiveCycle(ctx, userID)
		if err != nil {
			return domain.Meeting{}, err
		}
		if active == nil {
			return domain.Meeting{}, ErrNoActiveCycle
		}
		cycleID = active.ID
		if week == 0 {
			week, err = ResolveWeek(active.StartDate, e.now().UTC(), e.cycleWeeks())
			if err != nil {
				return domain.Meeting{}, err
			}
		}
	} else if _, err := e.Repo.GetCycle(ctx, userID, cycleID); err != nil {
		return domain.Meeting{}, err
	}
	if week < 1 || week > e.cycleWeeks() {
		return domain.Meeting{}, ErrInvalidWeek
	}

	m := domain.Meeting{
		ID:          uuid.New().String(),
		UserID:      userID,
		PartnerID:   optionalString(opts.PartnerID),
		CycleID:     cycleID,
		WeekNumber:  week,
		MeetingDate: optionalString(opts.MeetingDate),
		Commitments: opts.Commitments,
		ReviewNotes: opts.ReviewNotes,
		CreatedAt:   e.now().UTC().Format(time.RFC3339),
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Meeting{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertMeeting(ctx, tx, m); err != nil {
		return domain.Meeting{}, fmt.Errorf("insert meeting: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "meeting.recorded", userID, "meeting", m.ID, events.EventPayload{"week": m.WeekNumber}); err != nil {
		return domain.Meeting{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Meeting{}, err
	}
	return m, nil
}

func (e Engine) ListMeetings(ctx context.Context, userID, cycleID string) ([]domain.Meeting, error) {
	return e.Repo.ListMeetings(ctx, userID, cycleID)
}
