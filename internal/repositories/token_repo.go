package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/detomata-com/kamclient/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TokenRepo struct {
	pool *pgxpool.Pool
}

func NewTokenRepo(pool *pgxpool.Pool) *TokenRepo {
	return &TokenRepo{pool: pool}
}

// Create stores a token with expires_at = now + ttl. The token value itself
// is generated by the caller (random 256-bit hex, or a 4-char pairing code).
func (r *TokenRepo) Create(ctx context.Context, t *models.Token, ttl time.Duration) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tokens (token, purpose, email, public_key, device_info, expires_at)
		VALUES ($1, $2, $3, $4, $5, now() + $6::interval)
		RETURNING created_at, expires_at
	`, t.Token, t.Purpose, t.Email, t.PublicKey, t.DeviceInfo, ttl.String()).Scan(&t.CreatedAt, &t.ExpiresAt)
	if isUniqueViolation(err) {
		return models.ErrTokenExists
	}
	return err
}

// Get is the read-only peek used by status polling. It never marks the token
// used; expiry is still classified against the current clock.
func (r *TokenRepo) Get(ctx context.Context, token string) (*models.Token, error) {
	var t models.Token
	err := r.pool.QueryRow(ctx, `
		SELECT token, purpose, email, public_key, device_info, created_at, expires_at, used
		FROM tokens WHERE token = $1
	`, token).Scan(&t.Token, &t.Purpose, &t.Email, &t.PublicKey, &t.DeviceInfo, &t.CreatedAt, &t.ExpiresAt, &t.Used)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Consume flips used to true and returns the prior payload. The update is
// conditional on used=false and the expiry, so under concurrent calls exactly
// one caller succeeds; everyone else is classified as already-used, expired,
// or not-found by the follow-up read.
func (r *TokenRepo) Consume(ctx context.Context, token string) (*models.Token, error) {
	var t models.Token
	err := r.pool.QueryRow(ctx, `
		UPDATE tokens SET used = true
		WHERE token = $1 AND used = false AND expires_at > now()
		RETURNING token, purpose, email, public_key, device_info, created_at, expires_at, used
	`, token).Scan(&t.Token, &t.Purpose, &t.Email, &t.PublicKey, &t.DeviceInfo, &t.CreatedAt, &t.ExpiresAt, &t.Used)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	return nil, r.classifyConsumeFailure(ctx, token)
}

func (r *TokenRepo) classifyConsumeFailure(ctx context.Context, token string) error {
	var used bool
	var expiresAt time.Time
	err := r.pool.QueryRow(ctx, `SELECT used, expires_at FROM tokens WHERE token = $1`, token).Scan(&used, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrTokenNotFound
	}
	if err != nil {
		return err
	}
	if used {
		return models.ErrTokenUsed
	}
	return models.ErrTokenExpired
}

// Delete removes a token eagerly after its purpose is fulfilled. Losing the
// race to a sweeper is fine.
func (r *TokenRepo) Delete(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tokens WHERE token = $1`, token)
	return err
}

// DeleteExpired is the advisory sweep. Correctness does not depend on it:
// Get and Consume re-check expiry at read time.
func (r *TokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM tokens WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
