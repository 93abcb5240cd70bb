package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"twelveweek/internal/domain"
	"twelveweek/internal/engine"
	"twelveweek/internal/repo"
)

func registerWeekly(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "plan-task",
		Method:        http.MethodPost,
		Path:          "/weekly/tasks",
		Summary:       "Plan weekly task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body struct {
			TacticID   string `json:"tacticId"`
			CycleID    string `json:"cycleId,omitempty"`
			WeekNumber int    `json:"weekNumber"`
			Notes      string `json:"notes,omitempty"`
		} `json:"body"`
	}) (*dataOutput[domain.WeeklyTask], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.PlanTask(ctx, userID, engine.TaskPlanOptions{
			TacticID:   input.Body.TacticID,
			CycleID:    input.Body.CycleID,
			WeekNumber: input.Body.WeekNumber,
			Notes:      input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(t)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/weekly/tasks",
		Summary:     "List weekly tasks",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		CycleID  string `query:"cycleId"`
		Week     int    `query:"week"`
		TacticID string `query:"tacticId"`
		Status   string `query:"status"`
	}) (*dataOutput[[]domain.WeeklyTask], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListTasks(ctx, userID, repo.TaskFilters{
			CycleID:    input.CycleID,
			WeekNumber: input.Week,
			TacticID:   input.TacticID,
			Status:     input.Status,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.WeeklyTask{}
		}
		return ok(items)
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/weekly/tasks/{id}",
		Summary:     "Update weekly task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body struct {
			Status *string `json:"status,omitempty" enum:"pending,completed,skipped"`
			Notes  *string `json:"notes,omitempty"`
		} `json:"body"`
	}) (*dataOutput[domain.WeeklyTask], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.UpdateTask(ctx, userID, input.ID, engine.TaskUpdateOptions{
			Status: input.Body.Status,
			Notes:  input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(t)
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/weekly/tasks/{id}",
		Summary:     "Delete weekly task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*dataOutput[map[string]string], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteTask(ctx, userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return ok(map[string]string{"message": "task deleted"})
	})

	huma.Register(api, huma.Operation{
		OperationID: "current-week-tasks",
		Method:      http.MethodGet,
		Path:        "/weekly/current",
		Summary:     "Tasks for the current week",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, _ *struct{}) (*dataOutput[engine.WeekPlan], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		plan, err := e.WeekTasks(ctx, userID, 0)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(plan)
	})

	huma.Register(api, huma.Operation{
		OperationID: "week-tasks",
		Method:      http.MethodGet,
		Path:        "/weekly/{week}",
		Summary:     "Tasks for a specific week",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Week int `path:"week"`
	}) (*dataOutput[engine.WeekPlan], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		plan, err := e.WeekTasks(ctx, userID, input.Week)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(plan)
	})
}

func registerScorecard(api huma.API, e engine.Engine) {
	// Returns data:null with no active cycle; reading is tolerant where
	// the calculate endpoint below is strict.
	huma.Register(api, huma.Operation{
		OperationID: "get-current-scorecard",
		Method:      http.MethodGet,
		Path:        "/scorecard/current",
		Summary:     "Get current week scorecard",
	}, func(ctx context.Context, _ *struct{}) (*nullableOutput[domain.Scorecard], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.CurrentScorecard(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return okNullable(s)
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-week-scorecard",
		Method:      http.MethodGet,
		Path:        "/scorecard/week/{week}",
		Summary:     "Get scorecard for a week",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Week int `path:"week"`
	}) (*nullableOutput[domain.Scorecard], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.WeekScorecard(ctx, userID, input.Week)
		if err != nil {
			return nil, handleError(err)
		}
		return okNullable(s)
	})

	huma.Register(api, huma.Operation{
		OperationID: "calculate-scorecard",
		Method:      http.MethodPost,
		Path:        "/scorecard/calculate",
		Summary:     "Calculate and persist scorecard",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body struct {
			WeekNumber int     `json:"weekNumber,omitempty"`
			Reflection *string `json:"reflection,omitempty"`
		} `json:"body"`
	}) (*dataOutput[domain.Scorecard], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.CalculateScorecard(ctx, userID, engine.ScorecardCalculateOptions{
			WeekNumber: input.Body.WeekNumber,
			Reflection: input.Body.Reflection,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(s)
	})

	huma.Register(api, huma.Operation{
		OperationID: "scorecard-history",
		Method:      http.MethodGet,
		Path:        "/scorecard/history",
		Summary:     "Scorecard history",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CycleID string `query:"cycleId"`
	}) (*dataOutput[[]domain.Scorecard], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ScorecardHistory(ctx, userID, input.CycleID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Scorecard{}
		}
		return ok(items)
	})

	huma.Register(api, huma.Operation{
		OperationID: "scorecard-trend",
		Method:      http.MethodGet,
		Path:        "/scorecard/trend",
		Summary:     "Scorecard trend",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CycleID string `query:"cycleId"`
	}) (*dataOutput[engine.Trend], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.ScorecardTrend(ctx, userID, input.CycleID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(t)
	})
}
