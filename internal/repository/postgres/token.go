package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/405153-Masera/deviaje-users-and-auth/internal/domain"
	apperrors "github.com/405153-Masera/deviaje-users-and-auth/pkg/errors"
)

// RefreshTokenRepository implements repository.RefreshTokenRepository using
// PostgreSQL.
type RefreshTokenRepository struct {
	db DB
}

// NewRefreshTokenRepository creates a new PostgreSQL-backed refresh token
// repository.
func NewRefreshTokenRepository(db DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Replace upserts the user's single token row. The UNIQUE constraint on
// user_id is the conflict target, so two concurrent logins for the same user
// serialize on the row lock and exactly one token survives; a delete-then-
// insert at READ COMMITTED could commit both.
func (r *RefreshTokenRepository) Replace(ctx context.Context, t *domain.RefreshToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET id = EXCLUDED.id, token = EXCLUDED.token,
			expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at`,
		t.ID, t.UserID, t.Token, t.ExpiresAt, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("replace refresh token: %w", err)
	}

	return nil
}

// GetByToken retrieves a refresh token by its opaque value.
func (r *RefreshTokenRepository) GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var rt domain.RefreshToken
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, token, expires_at, created_at
		FROM refresh_tokens
		WHERE token = $1`,
		token,
	).Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.ExpiresAt, &rt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	return &rt, nil
}

// Delete removes a single token by its opaque value.
func (r *RefreshTokenRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// DeleteByUserID removes all tokens for the user. Deleting zero rows is not
// an error, which keeps logout idempotent.
func (r *RefreshTokenRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	ct, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete refresh tokens by user: %w", err)
	}
	return ct.RowsAffected(), nil
}

// --- Password Reset Token Repository ---

// PasswordResetTokenRepository implements
// repository.PasswordResetTokenRepository using PostgreSQL.
type PasswordResetTokenRepository struct {
	db DB
}

// NewPasswordResetTokenRepository creates a new PostgreSQL-backed reset token
// repository.
func NewPasswordResetTokenRepository(db DB) *PasswordResetTokenRepository {
	return &PasswordResetTokenRepository{db: db}
}

// Replace upserts the user's single unconsumed token. The partial unique
// index on (user_id) WHERE used = false is the conflict target: issuing a new
// token atomically displaces the previous unconsumed one, and consumed rows
// stay behind untouched as an audit trail.
func (r *PasswordResetTokenRepository) Replace(ctx context.Context, t *domain.PasswordResetToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) WHERE used = false DO UPDATE
		SET id = EXCLUDED.id, token = EXCLUDED.token,
			expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at`,
		t.ID, t.UserID, t.Token, t.ExpiresAt, t.Used, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("replace reset token: %w", err)
	}

	return nil
}

// GetByToken retrieves a reset token by its opaque value.
func (r *PasswordResetTokenRepository) GetByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error) {
	var t domain.PasswordResetToken
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, token, expires_at, used, created_at
		FROM password_reset_tokens
		WHERE token = $1`,
		token,
	).Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan reset token: %w", err)
	}

	return &t, nil
}

// Consume marks the token used and stores the user's new password hash in a
// single transaction. Either both writes commit or neither does, so a token
// can never change a password without being spent. Returns ErrNotFound when
// the token was already consumed or removed concurrently.
func (r *PasswordResetTokenRepository) Consume(ctx context.Context, tokenID, userID, passwordHash string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE password_reset_tokens
		SET used = true
		WHERE id = $1 AND used = false`,
		tokenID,
	)
	if err != nil {
		return fmt.Errorf("mark reset token used: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("password reset token", tokenID)
	}

	ct, err = tx.Exec(ctx, `
		UPDATE users
		SET password_hash = $1, is_temporary_password = false, updated_at = $2
		WHERE id = $3`,
		passwordHash, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("store new password: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", userID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// DeleteByUserID removes all reset tokens for the user.
func (r *PasswordResetTokenRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	ct, err := r.db.Exec(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete reset tokens by user: %w", err)
	}
	return ct.RowsAffected(), nil
}
