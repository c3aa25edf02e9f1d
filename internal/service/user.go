package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/405153-Masera/deviaje-users-and-auth/internal/domain"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/event"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/repository"
	apperrors "github.com/405153-Masera/deviaje-users-and-auth/pkg/errors"
)

// UserService implements account lifecycle operations: self-registration,
// admin-managed accounts, profile updates, and soft-delete.
type UserService struct {
	userRepo    repository.UserRepository
	roleRepo    repository.RoleRepository
	refreshRepo repository.RefreshTokenRepository
	resetRepo   repository.PasswordResetTokenRepository
	hasher      *PasswordHasher
	mailer      Mailer
	producer    event.Publisher
	logger      *slog.Logger
}

// NewUserService creates the user service.
func NewUserService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	refreshRepo repository.RefreshTokenRepository,
	resetRepo repository.PasswordResetTokenRepository,
	hasher *PasswordHasher,
	mailer Mailer,
	producer event.Publisher,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		roleRepo:    roleRepo,
		refreshRepo: refreshRepo,
		resetRepo:   resetRepo,
		hasher:      hasher,
		mailer:      mailer,
		producer:    producer,
		logger:      logger,
	}
}

// SignupInput holds the parameters for self-registration.
type SignupInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// CreateUserInput holds the parameters for admin-created accounts.
type CreateUserInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Roles     []string
}

// UpdateUserInput holds the parameters for profile updates. Nil fields are
// left unchanged.
type UpdateUserInput struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
}

// Signup registers a new user with the CLIENTE role.
func (s *UserService) Signup(ctx context.Context, input SignupInput) (*domain.User, error) {
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		IsActive:     true,
		Roles:        []string{domain.RoleCliente},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user, ""); err != nil {
		return nil, err
	}

	s.mailer.SendWelcome(user.Email, user.FirstName)

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// CreateUser creates an account on behalf of an administrator. A generated
// temporary password is emailed to the user, who must change it on first use.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput, createdBy string) (*domain.User, error) {
	if len(input.Roles) == 0 {
		input.Roles = []string{domain.RoleCliente}
	}
	for _, role := range input.Roles {
		if !domain.IsValidRole(role) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unknown role %q", role))
		}
	}

	tempPassword, err := generateTemporaryPassword()
	if err != nil {
		return nil, fmt.Errorf("generate temporary password: %w", err)
	}

	hash, err := s.hasher.Hash(tempPassword)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:                  uuid.New().String(),
		Username:            input.Username,
		Email:               input.Email,
		PasswordHash:        hash,
		FirstName:           input.FirstName,
		LastName:            input.LastName,
		IsTemporaryPassword: true,
		IsActive:            true,
		Roles:               input.Roles,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.userRepo.Create(ctx, user, createdBy); err != nil {
		return nil, err
	}

	s.mailer.SendTemporaryPassword(user.Email, user.FirstName, user.Username, tempPassword)

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user created by admin",
		slog.String("user_id", user.ID),
		slog.String("created_by", createdBy),
	)

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ListUsers returns all users.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ListUsersByRole returns all users holding the given role.
func (s *UserService) ListUsersByRole(ctx context.Context, role string) ([]domain.User, error) {
	if !domain.IsValidRole(role) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown role %q", role))
	}

	users, err := s.userRepo.ListByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return users, nil
}

// UpdateUser modifies profile fields, re-checking username/email uniqueness.
func (s *UserService) UpdateUser(ctx context.Context, id string, input UpdateUserInput) (*domain.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Username != nil {
		if *input.Username == "" {
			return nil, apperrors.InvalidInput("username must not be empty")
		}
		user.Username = *input.Username
	}
	if input.Email != nil {
		if *input.Email == "" {
			return nil, apperrors.InvalidInput("email must not be empty")
		}
		user.Email = *input.Email
	}
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if err := s.producer.PublishUserUpdated(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.updated event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user updated",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// DeactivateUser soft-deletes the account and removes its refresh and reset
// tokens so no credential outlives the deactivation. Users are never
// hard-deleted.
func (s *UserService) DeactivateUser(ctx context.Context, id string) error {
	if err := s.userRepo.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("user", id)
		}
		return fmt.Errorf("deactivate user: %w", err)
	}

	if _, err := s.refreshRepo.DeleteByUserID(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete refresh tokens on deactivation",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
	}
	if _, err := s.resetRepo.DeleteByUserID(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete reset tokens on deactivation",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishUserDeactivated(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.deactivated event",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user deactivated",
		slog.String("user_id", id),
	)

	return nil
}

// ActivateUser reverses a soft-delete.
func (s *UserService) ActivateUser(ctx context.Context, id string) error {
	if err := s.userRepo.SetActive(ctx, id, true); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("user", id)
		}
		return fmt.Errorf("activate user: %w", err)
	}

	s.logger.InfoContext(ctx, "user activated",
		slog.String("user_id", id),
	)

	return nil
}

// UsernameAvailable reports whether the username is free to register.
func (s *UserService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return !exists, nil
}

// EmailAvailable reports whether the email is free to register.
func (s *UserService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return !exists, nil
}

// ListRoles returns the role reference data.
func (s *UserService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	roles, err := s.roleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

const (
	tempPasswordLength = 12
	upperChars         = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerChars         = "abcdefghijkmnpqrstuvwxyz"
	digitChars         = "23456789"
	allChars           = upperChars + lowerChars + digitChars
)

// generateTemporaryPassword builds a random password that satisfies the
// complexity rules, using crypto/rand.
func generateTemporaryPassword() (string, error) {
	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, err
		}
		return set[n.Int64()], nil
	}

	buf := make([]byte, tempPasswordLength)

	// One guaranteed character from each class, the rest from the full set.
	var err error
	if buf[0], err = pick(upperChars); err != nil {
		return "", err
	}
	if buf[1], err = pick(lowerChars); err != nil {
		return "", err
	}
	if buf[2], err = pick(digitChars); err != nil {
		return "", err
	}
	for i := 3; i < tempPasswordLength; i++ {
		if buf[i], err = pick(allChars); err != nil {
			return "", err
		}
	}

	// Shuffle so the class positions aren't predictable.
	for i := len(buf) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		j := n.Int64()
		buf[i], buf[j] = buf[j], buf[i]
	}

	return string(buf), nil
}
