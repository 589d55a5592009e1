package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS light_auth_users (
	id                      TEXT PRIMARY KEY,
	provider_user_id        TEXT NOT NULL,
	email                   TEXT NOT NULL DEFAULT '',
	name                    TEXT NOT NULL DEFAULT '',
	provider_name           TEXT NOT NULL,
	picture                 TEXT NOT NULL DEFAULT '',
	access_token            TEXT NOT NULL DEFAULT '',
	access_token_expires_at TIMESTAMPTZ,
	refresh_token           TEXT NOT NULL DEFAULT '',
	claims                  JSONB NOT NULL DEFAULT '{}'::jsonb,
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
)`

var _ Adapter = (*PostgresAdapter)(nil)

// PostgresAdapter persists users in a single table keyed by user id.
type PostgresAdapter struct {
	pool *pgxpool.Pool
}

func NewPostgresAdapter(pool *pgxpool.Pool) *PostgresAdapter {
	return &PostgresAdapter{pool: pool}
}

// NewPool connects to databaseURL and checks the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("[NewPool] %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("[NewPool] ping: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the users table if it does not exist.
func (p *PostgresAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("[PostgresAdapter.EnsureSchema] %w", err)
	}
	return nil
}

func (p *PostgresAdapter) GetUser(ctx context.Context, id string) (*User, error) {
	var (
		u         User
		expiresAt *time.Time
		claims    []byte
	)
	err := p.pool.QueryRow(ctx, `
		SELECT id, provider_user_id, email, name, provider_name, picture,
		       access_token, access_token_expires_at, refresh_token, claims
		FROM light_auth_users WHERE id = $1`, id).Scan(
		&u.ID, &u.ProviderUserID, &u.Email, &u.Name, &u.ProviderName, &u.Picture,
		&u.AccessToken, &expiresAt, &u.RefreshToken, &claims,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[PostgresAdapter.GetUser] %w", err)
	}

	if expiresAt != nil {
		u.AccessTokenExpiresAt = expiresAt.UTC()
	}
	if len(claims) > 0 {
		if err := json.Unmarshal(claims, &u.Claims); err != nil {
			return nil, fmt.Errorf("[PostgresAdapter.GetUser] decode claims: %w", err)
		}
		if len(u.Claims) == 0 {
			u.Claims = nil
		}
	}
	return &u, nil
}

// SetUser upserts user. Empty token columns keep their stored values, matching Merge.
func (p *PostgresAdapter) SetUser(ctx context.Context, user *User) error {
	if user == nil || user.ID == "" {
		return errors.New("[PostgresAdapter.SetUser] user id is required")
	}
	claims, err := json.Marshal(user.Claims)
	if err != nil {
		return fmt.Errorf("[PostgresAdapter.SetUser] encode claims: %w", err)
	}
	if user.Claims == nil {
		claims = []byte("{}")
	}
	var expiresAt *time.Time
	if !user.AccessTokenExpiresAt.IsZero() {
		t := user.AccessTokenExpiresAt.UTC()
		expiresAt = &t
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO light_auth_users (
			id, provider_user_id, email, name, provider_name, picture,
			access_token, access_token_expires_at, refresh_token, claims, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (id) DO UPDATE SET
			provider_user_id = EXCLUDED.provider_user_id,
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			provider_name = EXCLUDED.provider_name,
			picture = EXCLUDED.picture,
			access_token = CASE WHEN EXCLUDED.access_token = '' THEN light_auth_users.access_token ELSE EXCLUDED.access_token END,
			access_token_expires_at = CASE WHEN EXCLUDED.access_token = '' THEN light_auth_users.access_token_expires_at ELSE EXCLUDED.access_token_expires_at END,
			refresh_token = CASE WHEN EXCLUDED.refresh_token = '' THEN light_auth_users.refresh_token ELSE EXCLUDED.refresh_token END,
			claims = EXCLUDED.claims,
			updated_at = now()`,
		user.ID, user.ProviderUserID, user.Email, user.Name, user.ProviderName, user.Picture,
		user.AccessToken, expiresAt, user.RefreshToken, claims,
	)
	if err != nil {
		return fmt.Errorf("[PostgresAdapter.SetUser] %w", err)
	}
	return nil
}

func (p *PostgresAdapter) DeleteUser(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM light_auth_users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("[PostgresAdapter.DeleteUser] %w", err)
	}
	return nil
}
