package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/405153-Masera/deviaje-users-and-auth/internal/auth"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/domain"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/repository"
	apperrors "github.com/405153-Masera/deviaje-users-and-auth/pkg/errors"
)

// AuthService authenticates credentials and manages the token lifecycle:
// access tokens through the JWT codec, refresh tokens through the store.
type AuthService struct {
	userRepo    repository.UserRepository
	refreshRepo repository.RefreshTokenRepository
	codec       *auth.Codec
	hasher      *PasswordHasher
	accessTTL   time.Duration
	refreshTTL  time.Duration
	logger      *slog.Logger
}

// NewAuthService creates the authentication service.
func NewAuthService(
	userRepo repository.UserRepository,
	refreshRepo repository.RefreshTokenRepository,
	codec *auth.Codec,
	hasher *PasswordHasher,
	accessTTL, refreshTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		refreshRepo: refreshRepo,
		codec:       codec,
		hasher:      hasher,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		logger:      logger,
	}
}

// AuthResult is what login and refresh hand back to the transport layer.
type AuthResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

// Login authenticates a username/password pair and issues a token pair. An
// unknown username and a wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	if username == "" || password == "" {
		return nil, errBadCredentials()
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errBadCredentials()
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, errBadCredentials()
	}

	if !user.IsActive {
		return nil, errAccountDisabled()
	}

	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return result, nil
}

// Refresh exchanges a stored refresh token for a new token pair. The refresh
// token rotates on every use: the presented token is superseded by a fresh
// one, so a replayed token no longer resolves.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, errRefreshTokenNotFound()
	}

	stored, err := s.refreshRepo.GetByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errRefreshTokenNotFound()
		}
		return nil, fmt.Errorf("look up refresh token: %w", err)
	}

	if stored.Expired(time.Now().UTC()) {
		// Client must log in again; the dead token is removed eagerly.
		if err := s.refreshRepo.Delete(ctx, stored.Token); err != nil {
			s.logger.ErrorContext(ctx, "failed to delete expired refresh token",
				slog.String("user_id", stored.UserID),
				slog.String("error", err.Error()),
			)
		}
		return nil, errRefreshTokenExpired()
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve refresh token owner: %w", err)
	}

	if !user.IsActive {
		return nil, errAccountDisabled()
	}

	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tokens refreshed",
		slog.String("user_id", user.ID),
	)

	return result, nil
}

// Logout deletes all refresh tokens owned by the user. Idempotent: a user
// with no tokens logs out without error.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	count, err := s.refreshRepo.DeleteByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete refresh tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", userID),
		slog.Int64("tokens_deleted", count),
	)

	return nil
}

// PrincipalByUsername loads a fresh principal from the credential store. The
// request filter calls this per request so authorization always sees current
// roles and active state, never the token's stale claims.
func (s *AuthService) PrincipalByUsername(ctx context.Context, username string) (*domain.Principal, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return domain.PrincipalFromUser(user), nil
}

// issueTokens mints an access token and replaces the user's refresh token.
func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (*AuthResult, error) {
	accessToken, err := s.codec.Mint(user.Username, map[string]any{
		"uid":   user.ID,
		"email": user.Email,
		"roles": user.Roles,
	}, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}

	now := time.Now().UTC()
	refresh := &domain.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}

	// Replace is transactional: one active refresh token per user even under
	// concurrent logins.
	if err := s.refreshRepo.Replace(ctx, refresh); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
	}, nil
}
