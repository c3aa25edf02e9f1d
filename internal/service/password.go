package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/405153-Masera/deviaje-users-and-auth/internal/domain"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/event"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/repository"
	apperrors "github.com/405153-Masera/deviaje-users-and-auth/pkg/errors"
)

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// Mailer is the outbound email capability. All sends are asynchronous and
// best-effort; none of these methods block or fail the calling operation.
type Mailer interface {
	SendPasswordReset(to, firstName, token string)
	SendPasswordChanged(to, firstName string)
	SendWelcome(to, firstName string)
	SendTemporaryPassword(to, firstName, username, tempPassword string)
}

// PasswordService manages the password-credential lifecycle: self-service
// change, and the forgot/reset flow backed by single-use time-boxed tokens.
type PasswordService struct {
	userRepo    repository.UserRepository
	resetRepo   repository.PasswordResetTokenRepository
	refreshRepo repository.RefreshTokenRepository
	hasher      *PasswordHasher
	mailer      Mailer
	producer    event.Publisher
	resetTTL    time.Duration
	logger      *slog.Logger
}

// NewPasswordService creates the password service.
func NewPasswordService(
	userRepo repository.UserRepository,
	resetRepo repository.PasswordResetTokenRepository,
	refreshRepo repository.RefreshTokenRepository,
	hasher *PasswordHasher,
	mailer Mailer,
	producer event.Publisher,
	resetTTL time.Duration,
	logger *slog.Logger,
) *PasswordService {
	return &PasswordService{
		userRepo:    userRepo,
		resetRepo:   resetRepo,
		refreshRepo: refreshRepo,
		hasher:      hasher,
		mailer:      mailer,
		producer:    producer,
		resetTTL:    resetTTL,
		logger:      logger,
	}
}

// ForgotPassword issues a reset token and emails a reset link. The response
// is identical whether or not the email is registered, so callers cannot
// enumerate accounts. Issuing a new token deletes any prior unconsumed one.
func (s *PasswordService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email",
				slog.String("email", email),
			)
			return nil
		}
		return fmt.Errorf("look up user by email: %w", err)
	}

	now := time.Now().UTC()
	token := &domain.PasswordResetToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: now.Add(s.resetTTL),
		Used:      false,
		CreatedAt: now,
	}

	if err := s.resetRepo.Replace(ctx, token); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	// The token value only ever travels inside the email, never in an API
	// response.
	s.mailer.SendPasswordReset(user.Email, user.FirstName, token.Token)

	if err := s.producer.PublishUserPasswordReset(ctx, user.ID, user.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_reset event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset requested",
		slog.String("user_id", user.ID),
	)

	return nil
}

// ResetPassword exchanges a reset token for a password change. The token is
// consumed exactly once; absent, expired, or already-used tokens are rejected
// with the same error.
func (s *PasswordService) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return errPasswordMismatch()
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	stored, err := s.resetRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return errInvalidResetToken()
		}
		return fmt.Errorf("look up reset token: %w", err)
	}

	if !stored.Consumable(time.Now().UTC()) {
		return errInvalidResetToken()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	// The password write and the token consumption commit together; a failure
	// here leaves both the old password and the unconsumed token in place.
	if err := s.resetRepo.Consume(ctx, stored.ID, stored.UserID, hash); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Lost a race with a concurrent consume of the same token.
			return errInvalidResetToken()
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	s.invalidateSessions(ctx, stored.UserID, "password reset")
	s.notifyPasswordChanged(ctx, stored.UserID)

	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("user_id", stored.UserID),
	)

	return nil
}

// ChangePassword lets an authenticated user replace their own password. The
// mismatch check runs before and independent of the current-password check.
// A successful change clears the temporary-password flag.
func (s *PasswordService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return errPasswordMismatch()
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("user", userID)
		}
		return fmt.Errorf("look up user: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, currentPassword) {
		return errCurrentPasswordIncorrect()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.userRepo.SetPassword(ctx, user.ID, hash, false); err != nil {
		return fmt.Errorf("store new password: %w", err)
	}

	s.invalidateSessions(ctx, user.ID, "password change")
	s.mailer.SendPasswordChanged(user.Email, user.FirstName)

	if err := s.producer.PublishUserPasswordChanged(ctx, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_changed event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("user_id", user.ID),
	)

	return nil
}

// invalidateSessions deletes the user's refresh tokens so old sessions cannot
// outlive a credential change. Best-effort.
func (s *PasswordService) invalidateSessions(ctx context.Context, userID, reason string) {
	if _, err := s.refreshRepo.DeleteByUserID(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to invalidate sessions",
			slog.String("user_id", userID),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
	}
}

// notifyPasswordChanged sends the confirmation email and event after a reset.
func (s *PasswordService) notifyPasswordChanged(ctx context.Context, userID string) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load user for reset notification",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}

	s.mailer.SendPasswordChanged(user.Email, user.FirstName)

	if err := s.producer.PublishUserPasswordChanged(ctx, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_changed event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

// validatePassword checks minimum complexity requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
