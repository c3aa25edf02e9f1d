package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/405153-Masera/deviaje-users-and-auth/internal/auth"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/domain"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/service"
	"github.com/405153-Masera/deviaje-users-and-auth/pkg/health"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User, grantedBy string) error {
	args := m.Called(ctx, user, grantedBy)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *mockUserRepo) ListByRole(ctx context.Context, role string) ([]domain.User, error) {
	args := m.Called(ctx, role)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) SetPassword(ctx context.Context, userID, passwordHash string, temporary bool) error {
	args := m.Called(ctx, userID, passwordHash, temporary)
	return args.Error(0)
}

func (m *mockUserRepo) SetActive(ctx context.Context, userID string, active bool) error {
	args := m.Called(ctx, userID, active)
	return args.Error(0)
}

type mockRoleRepo struct {
	mock.Mock
}

func (m *mockRoleRepo) List(ctx context.Context) ([]domain.Role, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Role), args.Error(1)
}

func (m *mockRoleRepo) GetByDescription(ctx context.Context, description string) (*domain.Role, error) {
	args := m.Called(ctx, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Role), args.Error(1)
}

type mockRefreshRepo struct {
	mock.Mock
}

func (m *mockRefreshRepo) Replace(ctx context.Context, token *domain.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockRefreshRepo) GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshRepo) Delete(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockRefreshRepo) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type mockResetRepo struct {
	mock.Mock
}

func (m *mockResetRepo) Replace(ctx context.Context, token *domain.PasswordResetToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockResetRepo) GetByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PasswordResetToken), args.Error(1)
}

func (m *mockResetRepo) Consume(ctx context.Context, tokenID, userID, passwordHash string) error {
	args := m.Called(ctx, tokenID, userID, passwordHash)
	return args.Error(0)
}

func (m *mockResetRepo) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepo) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepo) List(ctx context.Context) ([]domain.Review, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepo) ListByCategory(ctx context.Context, category string) ([]domain.Review, error) {
	args := m.Called(ctx, category)
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepo) ListByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepo) CreateResponse(ctx context.Context, response *domain.ReviewResponse) error {
	args := m.Called(ctx, response)
	return args.Error(0)
}

func (m *mockReviewRepo) ListResponses(ctx context.Context, reviewID string) ([]domain.ReviewResponse, error) {
	args := m.Called(ctx, reviewID)
	return args.Get(0).([]domain.ReviewResponse), args.Error(1)
}

func (m *mockReviewRepo) DeleteResponse(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepo) Stats(ctx context.Context) (*domain.ReviewStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewStats), args.Error(1)
}

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

// noopMailer satisfies service.Mailer without sending anything.
type noopMailer struct{}

func (noopMailer) SendPasswordReset(to, firstName, token string) {}

func (noopMailer) SendPasswordChanged(to, firstName string) {}

func (noopMailer) SendWelcome(to, firstName string) {}

func (noopMailer) SendTemporaryPassword(to, firstName, username, tempPassword string) {}

// ============================================================================
// Test Fixture
// ============================================================================

const handlerTestSecret = "handler-test-secret-32-characters!!"

type routerFixture struct {
	userRepo    *mockUserRepo
	roleRepo    *mockRoleRepo
	refreshRepo *mockRefreshRepo
	resetRepo   *mockResetRepo
	reviewRepo  *mockReviewRepo
	producer    *mockPublisher
	codec       *auth.Codec
	hasher      *service.PasswordHasher
	handler     http.Handler
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	f := &routerFixture{
		userRepo:    new(mockUserRepo),
		roleRepo:    new(mockRoleRepo),
		refreshRepo: new(mockRefreshRepo),
		resetRepo:   new(mockResetRepo),
		reviewRepo:  new(mockReviewRepo),
		producer:    new(mockPublisher),
		codec:       auth.NewCodec(handlerTestSecret),
		hasher:      service.NewPasswordHasher(bcrypt.MinCost),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mailer := noopMailer{}

	authService := service.NewAuthService(f.userRepo, f.refreshRepo, f.codec, f.hasher, 15*time.Minute, 7*24*time.Hour, logger)
	passwordService := service.NewPasswordService(f.userRepo, f.resetRepo, f.refreshRepo, f.hasher, mailer, f.producer, 24*time.Hour, logger)
	userService := service.NewUserService(f.userRepo, f.roleRepo, f.refreshRepo, f.resetRepo, f.hasher, mailer, f.producer, logger)
	reviewService := service.NewReviewService(f.reviewRepo, logger)

	f.handler = NewRouter(RouterDeps{
		AuthService:     authService,
		PasswordService: passwordService,
		UserService:     userService,
		ReviewService:   reviewService,
		Codec:           f.codec,
		HealthHandler:   health.NewHandler(),
		Logger:          logger,
		AllowedOrigins:  []string{"*"},
	})

	return f
}

// userWithRoles returns an active stored user plus a bearer token for them,
// and primes GetByUsername so the authentication filter can resolve the
// principal.
func (f *routerFixture) userWithRoles(t *testing.T, username, password string, roles ...string) (*domain.User, string) {
	t.Helper()

	hash, err := f.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	user := &domain.User{
		ID:           "id-" + username,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		IsActive:     true,
		Roles:        roles,
	}

	token, err := f.codec.Mint(username, map[string]any{"uid": user.ID, "roles": roles}, 15*time.Minute)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	f.userRepo.On("GetByUsername", mock.Anything, username).Return(user, nil)
	return user, token
}
