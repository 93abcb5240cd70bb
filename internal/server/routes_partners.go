package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"twelveweek/internal/domain"
	"twelveweek/internal/engine"
)

func registerPartners(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "invite-partner",
		Method:        http.MethodPost,
		Path:          "/partners",
		Summary:       "Invite accountability partner",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body struct {
			Email string `json:"email" format:"email"`
		} `json:"body"`
	}) (*dataOutput[domain.Partner], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.InvitePartner(ctx, userID, input.Body.Email)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(p)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-partners",
		Method:      http.MethodGet,
		Path:        "/partners",
		Summary:     "List partners",
	}, func(ctx context.Context, _ *struct{}) (*dataOutput[[]domain.Partner], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListPartners(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Partner{}
		}
		return ok(items)
	})

	huma.Register(api, huma.Operation{
		OperationID: "accept-partner",
		Method:      http.MethodPost,
		Path:        "/partners/{id}/accept",
		Summary:     "Accept partner invitation",
		Errors:      []int{http.StatusConflict, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*dataOutput[domain.Partner], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.AcceptPartner(ctx, userID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(p)
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-partner",
		Method:      http.MethodDelete,
		Path:        "/partners/{id}",
		Summary:     "Remove partner",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*dataOutput[map[string]string], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.RemovePartner(ctx, userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return ok(map[string]string{"message": "partner removed"})
	})

	huma.Register(api, huma.Operation{
		OperationID:   "record-meeting",
		Method:        http.MethodPost,
		Path:          "/partners/meetings",
		Summary:       "Record weekly meeting",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body struct {
			PartnerID   string   `json:"partnerId,omitempty"`
			CycleID     string   `json:"cycleId,omitempty"`
			WeekNumber  int      `json:"weekNumber,omitempty" minimum:"0" maximum:"12"`
			MeetingDate string   `json:"meetingDate,omitempty" format:"date"`
			Commitments []string `json:"commitments,omitempty"`
			ReviewNotes string   `json:"reviewNotes,omitempty"`
		} `json:"body"`
	}) (*dataOutput[domain.Meeting], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.CreateMeeting(ctx, userID, engine.MeetingCreateOptions{
			PartnerID:   input.Body.PartnerID,
			CycleID:     input.Body.CycleID,
			WeekNumber:  input.Body.WeekNumber,
			MeetingDate: input.Body.MeetingDate,
			Commitments: input.Body.Commitments,
			ReviewNotes: input.Body.ReviewNotes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(m)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-meetings",
		Method:      http.MethodGet,
		Path:        "/partners/meetings",
		Summary:     "List meetings",
	}, func(ctx context.Context, input *struct {
		CycleID string `query:"cycleId"`
	}) (*dataOutput[[]domain.Meeting], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListMeetings(ctx, userID, input.CycleID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Meeting{}
		}
		return ok(items)
	})
}

func registerDashboard(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard/summary",
		Summary:     "Dashboard summary",
	}, func(ctx context.Context, _ *struct{}) (*dataOutput[engine.Dashboard], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.GetDashboard(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(d)
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entityKind"`
		EntityID   string `query:"entityId"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*dataOutput[[]domain.Event], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		limit := input.Limit
		if limit <= 0 || limit > 200 {
			limit = 50
		}
		var cursor int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "BAD_REQUEST", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursor = parsed
		}
		items, err := e.Repo.LatestEventsFrom(ctx, limit, cursor, userID, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Event{}
		}
		return ok(items)
	})
}
