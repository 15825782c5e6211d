package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/HammadCopilot/expense-tracker/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Auth store — users and refresh tokens
// ============================================================

// userRow maps the users table columns.
type userRow struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r *userRow) toDomain() domain.User {
	return domain.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

// GetUserByEmail looks a user up by email. Returns (nil, nil) when the
// email is unknown so signup can distinguish "free" from "failed".
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUserByEmail")
	defer span.End()

	path := "users?email=eq." + url.QueryEscape(email) + "&limit=1"

	var user *domain.User
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return nil
		}
		var rows []userRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode user: %w", err)
		}
		if len(rows) > 0 {
			u := rows[0].toDomain()
			user = &u
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/users", Err: err}
	}
	return user, nil
}

// GetUserByID fetches a user by primary key.
func (c *Client) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUserByID")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := "users?id=eq." + userID + "&limit=1"

	var user *domain.User
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "user", ID: userID}
		}
		var rows []userRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode user: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "user", ID: userID}
		}
		u := rows[0].toDomain()
		user = &u
		return nil
	})
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, notFound
		}
		return nil, &domain.ErrExternalService{Service: "supabase/users", Err: err}
	}
	return user, nil
}

// CreateUser inserts a new user row.
func (c *Client) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateUser")
	defer span.End()

	row := map[string]any{
		"id":            user.ID,
		"email":         user.Email,
		"name":          user.Name,
		"password_hash": user.PasswordHash,
	}

	var created *domain.User
	err := c.execute(ctx, func() error {
		body, err := c.doPost(ctx, "users", row)
		if err != nil {
			return err
		}
		var rows []userRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode user: %w", err)
		}
		if len(rows) == 0 {
			return fmt.Errorf("no result returned from users insert")
		}
		u := rows[0].toDomain()
		created = &u
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/users", Err: err}
	}
	return created, nil
}

// StoreRefreshToken persists a hashed refresh token.
func (c *Client) StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	ctx, span := tracer.Start(ctx, "Supabase.StoreRefreshToken")
	defer span.End()

	row := map[string]any{
		"user_id":    userID,
		"token_hash": tokenHash,
		"expires_at": expiresAt.Format(time.RFC3339),
	}

	err := c.execute(ctx, func() error {
		_, err := c.doPost(ctx, "auth_refresh_tokens", row)
		return err
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/auth_refresh_tokens", Err: err}
	}
	return nil
}

// GetRefreshToken looks up a stored refresh token by hash. Returns
// (nil, nil) when the hash is unknown.
func (c *Client) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRefreshToken")
	defer span.End()

	path := "auth_refresh_tokens?token_hash=eq." + tokenHash + "&limit=1"

	var token *domain.RefreshToken
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return nil
		}
		var rows []domain.RefreshToken
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode refresh token: %w", err)
		}
		if len(rows) > 0 {
			token = &rows[0]
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/auth_refresh_tokens", Err: err}
	}
	return token, nil
}

// RevokeRefreshToken deletes a single refresh token by hash.
func (c *Client) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeRefreshToken")
	defer span.End()

	err := c.execute(ctx, func() error {
		return c.doDelete(ctx, "auth_refresh_tokens?token_hash=eq."+tokenHash)
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/auth_refresh_tokens", Err: err}
	}
	return nil
}

// RevokeAllRefreshTokens deletes every refresh token of a user (logout).
func (c *Client) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeAllRefreshTokens")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	err := c.execute(ctx, func() error {
		return c.doDelete(ctx, "auth_refresh_tokens?user_id=eq."+userID)
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/auth_refresh_tokens", Err: err}
	}
	return nil
}
