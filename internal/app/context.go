package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"twelveweek/internal/config"
	"twelveweek/internal/domain"
	"twelveweek/internal/repo"
)

// ResolveUser picks the acting user for CLI commands. It prefers the
// --user email override, then the single user in the DB. With an empty
// DB a local user is seeded on the fly so the CLI works without a
// register step.
func ResolveUser(ctx context.Context, r repo.Repo, emailOverride string) (domain.User, error) {
	if emailOverride != "" {
		u, err := r.GetUserByEmail(ctx, emailOverride)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return domain.User{}, fmt.Errorf("no user with email %s; register one with twy auth register", emailOverride)
			}
			return domain.User{}, err
		}
		return u, nil
	}
	users, err := listUsers(ctx, r)
	if err != nil {
		return domain.User{}, err
	}
	switch len(users) {
	case 0:
		return seedLocalUser(ctx, r)
	case 1:
		return users[0], nil
	default:
		return domain.User{}, fmt.Errorf("multiple users in workspace; pick one with --user")
	}
}

// ResolveConfig loads twelveweek.yml when present, else defaults.
func ResolveConfig(workspace string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

func listUsers(ctx context.Context, r repo.Repo) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, email FROM users ORDER BY created_at LIMIT 3`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id, email string
		if err := rows.Scan(&id, &email); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		u, err := r.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// seedLocalUser inserts a passwordless user plus an empty vision row.
// The seeded account is only reachable through the CLI; login rejects
// users without a password hash.
func seedLocalUser(ctx context.Context, r repo.Repo) (domain.User, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	u := domain.User{
		ID:           uuid.New().String(),
		Email:        "local@twelveweek",
		Name:         "Local User",
		AuthProvider: "local",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()
	if err := r.InsertUser(ctx, tx, u); err != nil {
		return domain.User{}, fmt.Errorf("seed local user: %w", err)
	}
	if err := r.UpsertVision(ctx, tx, domain.Vision{ID: uuid.New().String(), UserID: u.ID, UpdatedAt: now}); err != nil {
		return domain.User{}, fmt.Errorf("seed vision: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
