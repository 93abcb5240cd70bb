package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"twelveweek/internal/domain"
	"twelveweek/internal/engine"
	"twelveweek/internal/repo"
)

// AuthResponse carries the issued token and the authenticated user.
type AuthResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func registerAuth(api huma.API, cfg Config) {
	e := cfg.Engine

	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Register a new user",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body struct {
			Email    string `json:"email" format:"email"`
			Password string `json:"password" minLength:"8"`
			Name     string `json:"name"`
		} `json:"body"`
	}) (*dataOutput[AuthResponse], error) {
		u, err := e.Register(ctx, input.Body.Email, input.Body.Password, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		token, err := issueToken(cfg.Auth.JWTSecret, u.ID, cfg.Auth.tokenTTL(), e.Now())
		if err != nil {
			return nil, handleError(err)
		}
		return ok(AuthResponse{Token: token, User: u})
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Log in with email and password",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body struct {
			Email    string `json:"email" format:"email"`
			Password string `json:"password"`
		} `json:"body"`
	}) (*dataOutput[AuthResponse], error) {
		u, err := e.Login(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, handleError(err)
		}
		token, err := issueToken(cfg.Auth.JWTSecret, u.ID, cfg.Auth.tokenTTL(), e.Now())
		if err != nil {
			return nil, handleError(err)
		}
		return ok(AuthResponse{Token: token, User: u})
	})

	// Tokens are stateless; logout exists so clients have a uniform
	// endpoint to call when discarding credentials.
	huma.Register(api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/auth/logout",
		Summary:     "Log out",
	}, func(ctx context.Context, _ *struct{}) (*dataOutput[map[string]string], error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		return ok(map[string]string{"message": "logged out"})
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/auth/api-keys",
		Summary:       "Create API key",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body struct {
			Name string `json:"name,omitempty"`
		} `json:"body"`
	}) (*dataOutput[map[string]string], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		key, raw, err := e.CreateAPIKey(ctx, userID, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(map[string]string{"id": key.ID, "key": raw})
	})
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-me",
		Method:      http.MethodGet,
		Path:        "/users/me",
		Summary:     "Get current user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, _ *struct{}) (*dataOutput[domain.User], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.GetUser(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(u)
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-me",
		Method:      http.MethodPatch,
		Path:        "/users/me",
		Summary:     "Update current user",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body struct {
			Name     *string `json:"name,omitempty"`
			Avatar   *string `json:"avatar,omitempty"`
			Timezone *string `json:"timezone,omitempty"`
		} `json:"body"`
	}) (*dataOutput[domain.User], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.UpdateUser(ctx, userID, repo.UserPatch{
			Name:      input.Body.Name,
			AvatarURL: input.Body.Avatar,
			Timezone:  input.Body.Timezone,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(u)
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-me",
		Method:      http.MethodDelete,
		Path:        "/users/me",
		Summary:     "Delete current user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, _ *struct{}) (*dataOutput[map[string]string], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteAccount(ctx, userID); err != nil {
			return nil, handleError(err)
		}
		return ok(map[string]string{"message": "account deleted"})
	})
}

func registerVision(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-vision",
		Method:      http.MethodGet,
		Path:        "/vision",
		Summary:     "Get vision",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, _ *struct{}) (*dataOutput[domain.Vision], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		v, err := e.GetVision(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(v)
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-vision",
		Method:      http.MethodPut,
		Path:        "/vision",
		Summary:     "Create or replace vision",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body struct {
			LongTermVision *string `json:"longTermVision,omitempty"`
			MidTermVision  *string `json:"midTermVision,omitempty"`
		} `json:"body"`
	}) (*dataOutput[domain.Vision], error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		v, err := e.UpsertVision(ctx, userID, input.Body.LongTermVision, input.Body.MidTermVision)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(v)
	})
}
