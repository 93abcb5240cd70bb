package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"twelveweek/internal/config"
	"twelveweek/internal/domain"
	"twelveweek/internal/events"
	"twelveweek/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

var (
	// ErrNoActiveCycle means an operation that requires an active cycle
	// found none for the user.
	ErrNoActiveCycle = errors.New("no active cycle")
	// ErrInvalidWeek means a week number fell outside 1..12.
	ErrInvalidWeek = errors.New("week number must be between 1 and 12")

	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Register creates a user with a hashed password and an empty vision row.
func (e Engine) Register(ctx context.Context, email, password, name string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.User{}, errors.New("email is required")
	}
	if password == "" {
		return domain.User{}, errors.New("password is required")
	}
	if name == "" {
		return domain.User{}, errors.New("name is required")
	}
	if _, err := e.Repo.GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, err
	}

	now := e.now().UTC().Format(time.RFC3339)
	u := domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		AuthProvider: "email",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.PasswordHash = repo.HashPassword(u.ID, password)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertUser(ctx, tx, u); err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	if err := e.Repo.UpsertVision(ctx, tx, domain.Vision{
		ID:        uuid.New().String(),
		UserID:    u.ID,
		UpdatedAt: now,
	}); err != nil {
		return domain.User{}, fmt.Errorf("insert vision: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "user.registered", u.ID, "user", u.ID, events.EventPayload{"email": u.Email}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Login verifies email and password and returns the user.
func (e Engine) Login(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := e.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if u.PasswordHash == "" || u.PasswordHash != repo.HashPassword(u.ID, password) {
		return domain.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// CreateAPIKey mints a raw key, stores its hash, and returns the raw key
// once. The raw value is never stored.
func (e Engine) CreateAPIKey(ctx context.Context, userID, name string) (domain.APIKey, string, error) {
	if _, err := e.Repo.GetUser(ctx, userID); err != nil {
		return domain.APIKey{}, "", err
	}
	raw := "twy_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	key := domain.APIKey{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(raw),
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.APIKey{}, "", err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertAPIKey(ctx, tx, key); err != nil {
		return domain.APIKey{}, "", err
	}
	if err := e.Events.Append(ctx, tx, "apikey.created", userID, "api_key", key.ID, events.EventPayload{"name": name}); err != nil {
		return domain.APIKey{}, "", err
	}
	if err := tx.Commit(); err != nil {
		return domain.APIKey{}, "", err
	}
	return key, raw, nil
}

func (e Engine) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return e.Repo.GetUser(ctx, userID)
}

func (e Engine) UpdateUser(ctx context.Context, userID string, p repo.UserPatch) (domain.User, error) {
	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.UpdateUser(ctx, userID, now, p); err != nil {
		return domain.User{}, err
	}
	return e.Repo.GetUser(ctx, userID)
}

// DeleteAccount removes the user and everything scoped to them through
// cascading foreign keys.
func (e Engine) DeleteAccount(ctx context.Context, userID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteUser(ctx, tx, userID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "user.deleted", userID, "user", userID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertVision writes the user's vision statements. Nil fields keep the
// stored value.
func (e Engine) UpsertVision(ctx context.Context, userID string, longTerm, midTerm *string) (domain.Vision, error) {
	existing, err := e.Repo.GetVision(ctx, userID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return domain.Vision{}, err
	}
	v := existing
	if errors.Is(err, repo.ErrNotFound) {
		v = domain.Vision{ID: uuid.New().String(), UserID: userID}
	}
	if longTerm != nil {
		v.LongTermVision = *longTerm
	}
	if midTerm != nil {
		v.MidTermVision = *midTerm
	}
	v.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Vision{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertVision(ctx, tx, v); err != nil {
		return domain.Vision{}, err
	}
	if err := e.Events.Append(ctx, tx, "vision.updated", userID, "vision", v.ID, nil); err != nil {
		return domain.Vision{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Vision{}, err
	}
	return v, nil
}

func (e Engine) GetVision(ctx context.Context, userID string) (domain.Vision, error) {
	return e.Repo.GetVision(ctx, userID)
}

// --- helpers ---

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
