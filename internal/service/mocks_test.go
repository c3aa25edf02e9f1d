package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/405153-Masera/deviaje-users-and-auth/internal/auth"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/domain"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User, grantedBy string) error {
	args := m.Called(ctx, user, grantedBy)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *mockUserRepository) ListByRole(ctx context.Context, role string) ([]domain.User, error) {
	args := m.Called(ctx, role)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) SetPassword(ctx context.Context, userID, passwordHash string, temporary bool) error {
	args := m.Called(ctx, userID, passwordHash, temporary)
	return args.Error(0)
}

func (m *mockUserRepository) SetActive(ctx context.Context, userID string, active bool) error {
	args := m.Called(ctx, userID, active)
	return args.Error(0)
}

// --- Mock Role Repository ---

type mockRoleRepository struct {
	mock.Mock
}

func (m *mockRoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Role), args.Error(1)
}

func (m *mockRoleRepository) GetByDescription(ctx context.Context, description string) (*domain.Role, error) {
	args := m.Called(ctx, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Role), args.Error(1)
}

// --- Mock Refresh Token Repository ---

type mockRefreshTokenRepository struct {
	mock.Mock
}

func (m *mockRefreshTokenRepository) Replace(ctx context.Context, token *domain.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshTokenRepository) Delete(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock Password Reset Token Repository ---

type mockResetTokenRepository struct {
	mock.Mock
}

func (m *mockResetTokenRepository) Replace(ctx context.Context, token *domain.PasswordResetToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockResetTokenRepository) GetByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PasswordResetToken), args.Error(1)
}

func (m *mockResetTokenRepository) Consume(ctx context.Context, tokenID, userID, passwordHash string) error {
	args := m.Called(ctx, tokenID, userID, passwordHash)
	return args.Error(0)
}

func (m *mockResetTokenRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock Review Repository ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) List(ctx context.Context) ([]domain.Review, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepository) ListByCategory(ctx context.Context, category string) ([]domain.Review, error) {
	args := m.Called(ctx, category)
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepository) ListByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepository) CreateResponse(ctx context.Context, response *domain.ReviewResponse) error {
	args := m.Called(ctx, response)
	return args.Error(0)
}

func (m *mockReviewRepository) ListResponses(ctx context.Context, reviewID string) ([]domain.ReviewResponse, error) {
	args := m.Called(ctx, reviewID)
	return args.Get(0).([]domain.ReviewResponse), args.Error(1)
}

func (m *mockReviewRepository) DeleteResponse(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepository) Stats(ctx context.Context) (*domain.ReviewStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewStats), args.Error(1)
}

// --- Mock Event Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockPublisher) PublishUserUpdated(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockPublisher) PublishUserPasswordReset(ctx context.Context, userID, email string) error {
	args := m.Called(ctx, userID, email)
	return args.Error(0)
}

func (m *mockPublisher) PublishUserPasswordChanged(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockPublisher) PublishUserDeactivated(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// --- Fake Mailer ---

// fakeMailer records outbound mail without sending anything. Mailer calls are
// fire-and-forget, so a plain recorder beats a testify mock here.
type fakeMailer struct {
	mu             sync.Mutex
	resetTokens    []string
	welcomes       []string
	tempPasswords  []string
	changedNotices []string
}

func (f *fakeMailer) SendPasswordReset(to, _, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetTokens = append(f.resetTokens, token)
}

func (f *fakeMailer) SendPasswordChanged(to, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changedNotices = append(f.changedNotices, to)
}

func (f *fakeMailer) SendWelcome(to, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.welcomes = append(f.welcomes, to)
}

func (f *fakeMailer) SendTemporaryPassword(_, _, _, tempPassword string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tempPasswords = append(f.tempPasswords, tempPassword)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHasher() *PasswordHasher {
	return NewPasswordHasher(bcrypt.MinCost)
}

func newTestCodec() *auth.Codec {
	return auth.NewCodec("test-secret-at-least-32-characters-long")
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := newTestHasher().Hash(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}
