package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/405153-Masera/deviaje-users-and-auth/internal/domain"
	apperrors "github.com/405153-Masera/deviaje-users-and-auth/pkg/errors"
)

type passwordTestDeps struct {
	userRepo    *mockUserRepository
	resetRepo   *mockResetTokenRepository
	refreshRepo *mockRefreshTokenRepository
	mailer      *fakeMailer
	producer    *mockPublisher
}

func newTestPasswordService() (*PasswordService, *passwordTestDeps) {
	deps := &passwordTestDeps{
		userRepo:    &mockUserRepository{},
		resetRepo:   &mockResetTokenRepository{},
		refreshRepo: &mockRefreshTokenRepository{},
		mailer:      &fakeMailer{},
		producer:    &mockPublisher{},
	}
	svc := NewPasswordService(
		deps.userRepo,
		deps.resetRepo,
		deps.refreshRepo,
		newTestHasher(),
		deps.mailer,
		deps.producer,
		24*time.Hour,
		newTestLogger(),
	)
	return svc, deps
}

// ---------------------------------------------------------------------------
// ForgotPassword
// ---------------------------------------------------------------------------

func TestPasswordService_ForgotPassword_KnownEmail(t *testing.T) {
	svc, deps := newTestPasswordService()

	user := activeUser(t)
	deps.userRepo.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
	deps.resetRepo.On("Replace", mock.Anything, mock.MatchedBy(func(rt *domain.PasswordResetToken) bool {
		return rt.UserID == user.ID && rt.Token != "" && !rt.Used && rt.ExpiresAt.After(time.Now())
	})).Return(nil)
	deps.producer.On("PublishUserPasswordReset", mock.Anything, user.ID, user.Email).Return(nil)

	require.NoError(t, svc.ForgotPassword(context.Background(), user.Email))

	// The reset link email carries the token.
	require.Len(t, deps.mailer.resetTokens, 1)
	assert.NotEmpty(t, deps.mailer.resetTokens[0])

	deps.resetRepo.AssertExpectations(t)
}

func TestPasswordService_ForgotPassword_UnknownEmailDoesNotLeak(t *testing.T) {
	svc, deps := newTestPasswordService()

	deps.userRepo.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, apperrors.ErrNotFound)

	// Same nil result as the known-email path, and no token was stored.
	require.NoError(t, svc.ForgotPassword(context.Background(), "nobody@example.com"))
	deps.resetRepo.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything)
	assert.Empty(t, deps.mailer.resetTokens)
}

// ---------------------------------------------------------------------------
// ResetPassword
// ---------------------------------------------------------------------------

func validResetToken(userID string) *domain.PasswordResetToken {
	now := time.Now().UTC()
	return &domain.PasswordResetToken{
		ID:        "prt-1",
		UserID:    userID,
		Token:     "reset-token",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
}

func TestPasswordService_ResetPassword_Success(t *testing.T) {
	svc, deps := newTestPasswordService()

	user := activeUser(t)
	stored := validResetToken(user.ID)

	deps.resetRepo.On("GetByToken", mock.Anything, "reset-token").Return(stored, nil)
	deps.resetRepo.On("Consume", mock.Anything, stored.ID, user.ID, mock.AnythingOfType("string")).Return(nil)
	deps.refreshRepo.On("DeleteByUserID", mock.Anything, user.ID).Return(int64(1), nil)
	deps.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	deps.producer.On("PublishUserPasswordChanged", mock.Anything, user.ID).Return(nil)

	err := svc.ResetPassword(context.Background(), "reset-token", "NewSecret1", "NewSecret1")
	require.NoError(t, err)

	// The token is consumed and every session is torn down.
	deps.resetRepo.AssertCalled(t, "Consume", mock.Anything, stored.ID, user.ID, mock.AnythingOfType("string"))
	deps.refreshRepo.AssertCalled(t, "DeleteByUserID", mock.Anything, user.ID)
	assert.Equal(t, []string{user.Email}, deps.mailer.changedNotices)
}

func TestPasswordService_ResetPassword_MismatchCheckedFirst(t *testing.T) {
	svc, deps := newTestPasswordService()

	// Even with a garbage token the mismatch error wins: the token is never
	// looked up.
	err := svc.ResetPassword(context.Background(), "whatever", "NewSecret1", "Different1")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PASSWORD_MISMATCH", appErr.Code)
	deps.resetRepo.AssertNotCalled(t, "GetByToken", mock.Anything, mock.Anything)
}

func TestPasswordService_ResetPassword_UnknownToken(t *testing.T) {
	svc, deps := newTestPasswordService()

	deps.resetRepo.On("GetByToken", mock.Anything, "missing").Return(nil, apperrors.ErrNotFound)

	err := svc.ResetPassword(context.Background(), "missing", "NewSecret1", "NewSecret1")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "INVALID_RESET_TOKEN", appErr.Code)
}

func TestPasswordService_ResetPassword_ExpiredToken(t *testing.T) {
	svc, deps := newTestPasswordService()

	stored := validResetToken("u-1")
	stored.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	deps.resetRepo.On("GetByToken", mock.Anything, "reset-token").Return(stored, nil)

	err := svc.ResetPassword(context.Background(), "reset-token", "NewSecret1", "NewSecret1")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "INVALID_RESET_TOKEN", appErr.Code)
	deps.resetRepo.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPasswordService_ResetPassword_AlreadyUsedToken(t *testing.T) {
	svc, deps := newTestPasswordService()

	stored := validResetToken("u-1")
	stored.Used = true
	deps.resetRepo.On("GetByToken", mock.Anything, "reset-token").Return(stored, nil)

	err := svc.ResetPassword(context.Background(), "reset-token", "NewSecret1", "NewSecret1")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "INVALID_RESET_TOKEN", appErr.Code)
}

func TestPasswordService_ResetPassword_ConsumeFailureLeavesSessionsAlone(t *testing.T) {
	svc, deps := newTestPasswordService()

	user := activeUser(t)
	stored := validResetToken(user.ID)

	// The password write and the token consumption are one transaction: when
	// it fails, nothing changed, so no sessions are invalidated and no
	// confirmation goes out.
	deps.resetRepo.On("GetByToken", mock.Anything, "reset-token").Return(stored, nil)
	deps.resetRepo.On("Consume", mock.Anything, stored.ID, user.ID, mock.AnythingOfType("string")).
		Return(errors.New("connection reset"))

	err := svc.ResetPassword(context.Background(), "reset-token", "NewSecret1", "NewSecret1")
	require.Error(t, err)

	deps.refreshRepo.AssertNotCalled(t, "DeleteByUserID", mock.Anything, mock.Anything)
	assert.Empty(t, deps.mailer.changedNotices)
}

func TestPasswordService_ResetPassword_ConsumedConcurrently(t *testing.T) {
	svc, deps := newTestPasswordService()

	user := activeUser(t)
	stored := validResetToken(user.ID)

	// Token looked consumable but another request spent it first: same error
	// as an unknown or expired token.
	deps.resetRepo.On("GetByToken", mock.Anything, "reset-token").Return(stored, nil)
	deps.resetRepo.On("Consume", mock.Anything, stored.ID, user.ID, mock.AnythingOfType("string")).
		Return(apperrors.ErrNotFound)

	err := svc.ResetPassword(context.Background(), "reset-token", "NewSecret1", "NewSecret1")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "INVALID_RESET_TOKEN", appErr.Code)
}

func TestPasswordService_ResetPassword_WeakPassword(t *testing.T) {
	svc, _ := newTestPasswordService()

	err := svc.ResetPassword(context.Background(), "reset-token", "short1A", "short1A")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

// ---------------------------------------------------------------------------
// ChangePassword
// ---------------------------------------------------------------------------

func TestPasswordService_ChangePassword_Success(t *testing.T) {
	svc, deps := newTestPasswordService()

	user := activeUser(t)
	deps.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	deps.userRepo.On("SetPassword", mock.Anything, user.ID, mock.AnythingOfType("string"), false).Return(nil)
	deps.refreshRepo.On("DeleteByUserID", mock.Anything, user.ID).Return(int64(1), nil)
	deps.producer.On("PublishUserPasswordChanged", mock.Anything, user.ID).Return(nil)

	err := svc.ChangePassword(context.Background(), user.ID, "Secret123!", "NewSecret1", "NewSecret1")
	require.NoError(t, err)

	deps.refreshRepo.AssertCalled(t, "DeleteByUserID", mock.Anything, user.ID)
	assert.Equal(t, []string{user.Email}, deps.mailer.changedNotices)
}

func TestPasswordService_ChangePassword_MismatchBeforeCurrentCheck(t *testing.T) {
	svc, deps := newTestPasswordService()

	// Wrong current password AND mismatched confirmation: mismatch wins
	// because it is checked first, without touching the repository.
	err := svc.ChangePassword(context.Background(), "u-1", "wrong-current", "NewSecret1", "Different1")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PASSWORD_MISMATCH", appErr.Code)
	deps.userRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestPasswordService_ChangePassword_WrongCurrentPassword(t *testing.T) {
	svc, deps := newTestPasswordService()

	user := activeUser(t)
	deps.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	err := svc.ChangePassword(context.Background(), user.ID, "not-the-password", "NewSecret1", "NewSecret1")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CURRENT_PASSWORD_INCORRECT", appErr.Code)
	deps.userRepo.AssertNotCalled(t, "SetPassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPasswordService_ChangePassword_UnknownUser(t *testing.T) {
	svc, deps := newTestPasswordService()

	deps.userRepo.On("GetByID", mock.Anything, "ghost").Return(nil, apperrors.ErrNotFound)

	err := svc.ChangePassword(context.Background(), "ghost", "Secret123!", "NewSecret1", "NewSecret1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

// ---------------------------------------------------------------------------
// validatePassword
// ---------------------------------------------------------------------------

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Abcdef12", false},
		{"too short", "Abc12", true},
		{"no uppercase", "abcdefg1", true},
		{"no lowercase", "ABCDEFG1", true},
		{"no digit", "Abcdefgh", true},
		{"long and mixed", "CorrectHorse7battery", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
