package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"twelveweek/internal/domain"
	"twelveweek/internal/engine"
	"twelveweek/internal/repo"
)

func registerCycles(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-cycle",
		Method:        http.MethodPost,
		Path:          "/cycles",
		Summary:       "Create cycle",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body struct {
			Name      string `json:"name"`
			StartDate string `json:"startDate" format:"date"`
			Status    string `json:"status,omitempty" enum:"upcoming,active"`
		} `json:"body"`
	}) (*dataOutput[domain.Cycle], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateCycle(ctx, userID, engine.CycleCreateOptions{
			Name:      input.Body.Name,
			StartDate: input.Body.StartDate,
			Status:    input.Body.Status,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(c)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-cycles",
		Method:      http.MethodGet,
		Path:        "/cycles",
		Summary:     "List cycles",
	}, func(ctx context.Context, _ *struct{}) (*dataOutput[[]domain.Cycle], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListCycles(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Cycle{}
		}
		return ok(items)
	})

	// Returns data:null when no cycle is active; the absence of an
	// active cycle is a normal state here, not an error.
	huma.Register(api, huma.Operation{
		OperationID: "get-current-cycle",
		Method:      http.MethodGet,
		Path:        "/cycles/current",
		Summary:     "Get active cycle",
	}, func(ctx context.Context, _ *struct{}) (*nullableOutput[domain.Cycle], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.ActiveCycle(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return okNullable(c)
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-cycle",
		Method:      http.MethodGet,
		Path:        "/cycles/{id}",
		Summary:     "Get cycle",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*dataOutput[domain.Cycle], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.GetCycle(ctx, userID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(c)
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-cycle",
		Method:      http.MethodPatch,
		Path:        "/cycles/{id}",
		Summary:     "Update cycle",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body struct {
			Name      *string `json:"name,omitempty"`
			StartDate *string `json:"startDate,omitempty" format:"date"`
			EndDate   *string `json:"endDate,omitempty" format:"date"`
			Status    *string `json:"status,omitempty" enum:"upcoming,active,completed"`
		} `json:"body"`
	}) (*dataOutput[domain.Cycle], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.UpdateCycle(ctx, userID, input.ID, repo.CyclePatch{
			Name:      input.Body.Name,
			StartDate: input.Body.StartDate,
			EndDate:   input.Body.EndDate,
			Status:    input.Body.Status,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(c)
	})
}

func registerGoals(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-goal",
		Method:        http.MethodPost,
		Path:          "/goals",
		Summary:       "Create goal",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body struct {
			CycleID      string   `json:"cycleId"`
			Title        string   `json:"title"`
			Description  string   `json:"description,omitempty"`
			TargetMetric string   `json:"targetMetric,omitempty"`
			TargetValue  *float64 `json:"targetValue,omitempty"`
		} `json:"body"`
	}) (*dataOutput[domain.Goal], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		g, err := e.CreateGoal(ctx, userID, engine.GoalCreateOptions{
			CycleID:      input.Body.CycleID,
			Title:        input.Body.Title,
			Description:  input.Body.Description,
			TargetMetric: input.Body.TargetMetric,
			TargetValue:  input.Body.TargetValue,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(g)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-goals",
		Method:      http.MethodGet,
		Path:        "/goals",
		Summary:     "List goals",
	}, func(ctx context.Context, input *struct {
		CycleID string `query:"cycleId"`
	}) (*dataOutput[[]domain.Goal], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListGoals(ctx, userID, input.CycleID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Goal{}
		}
		return ok(items)
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-goal",
		Method:      http.MethodGet,
		Path:        "/goals/{id}",
		Summary:     "Get goal",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*dataOutput[domain.Goal], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		g, err := e.GetGoal(ctx, userID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(g)
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-goal",
		Method:      http.MethodPatch,
		Path:        "/goals/{id}",
		Summary:     "Update goal",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body struct {
			Title        *string  `json:"title,omitempty"`
			Description  *string  `json:"description,omitempty"`
			TargetMetric *string  `json:"targetMetric,omitempty"`
			TargetValue  *float64 `json:"targetValue,omitempty"`
			CurrentValue *float64 `json:"currentValue,omitempty"`
			Status       *string  `json:"status,omitempty" enum:"active,completed,abandoned"`
		} `json:"body"`
	}) (*dataOutput[domain.Goal], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		g, err := e.UpdateGoal(ctx, userID, input.ID, repo.GoalPatch{
			Title:        input.Body.Title,
			Description:  input.Body.Description,
			TargetMetric: input.Body.TargetMetric,
			TargetValue:  input.Body.TargetValue,
			CurrentValue: input.Body.CurrentValue,
			Status:       input.Body.Status,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(g)
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-goal",
		Method:      http.MethodDelete,
		Path:        "/goals/{id}",
		Summary:     "Delete goal",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*dataOutput[map[string]string], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteGoal(ctx, userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return ok(map[string]string{"message": "goal deleted"})
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-tactic",
		Method:        http.MethodPost,
		Path:          "/goals/{id}/tactics",
		Summary:       "Create tactic",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body struct {
			Title          string `json:"title"`
			Description    string `json:"description,omitempty"`
			Frequency      string `json:"frequency,omitempty" enum:"daily,weekly,specific"`
			FrequencyCount int    `json:"frequencyCount,omitempty"`
		} `json:"body"`
	}) (*dataOutput[domain.Tactic], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTactic(ctx, userID, engine.TacticCreateOptions{
			GoalID:         input.ID,
			Title:          input.Body.Title,
			Description:    input.Body.Description,
			Frequency:      input.Body.Frequency,
			FrequencyCount: input.Body.FrequencyCount,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(t)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tactics",
		Method:      http.MethodGet,
		Path:        "/goals/{id}/tactics",
		Summary:     "List tactics",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*dataOutput[[]domain.Tactic], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListTactics(ctx, userID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Tactic{}
		}
		return ok(items)
	})
}

func registerTactics(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "update-tactic",
		Method:      http.MethodPatch,
		Path:        "/tactics/{id}",
		Summary:     "Update tactic",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body struct {
			Title          *string `json:"title,omitempty"`
			Description    *string `json:"description,omitempty"`
			Frequency      *string `json:"frequency,omitempty" enum:"daily,weekly,specific"`
			FrequencyCount *int    `json:"frequencyCount,omitempty"`
		} `json:"body"`
	}) (*dataOutput[domain.Tactic], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.UpdateTactic(ctx, userID, input.ID, repo.TacticPatch{
			Title:          input.Body.Title,
			Description:    input.Body.Description,
			Frequency:      input.Body.Frequency,
			FrequencyCount: input.Body.FrequencyCount,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(t)
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-tactic",
		Method:      http.MethodDelete,
		Path:        "/tactics/{id}",
		Summary:     "Delete tactic",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*dataOutput[map[string]string], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteTactic(ctx, userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return ok(map[string]string{"message": "tactic deleted"})
	})
}
