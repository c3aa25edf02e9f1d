package repository

import (
	"context"

	"github.com/405153-Masera/deviaje-users-and-auth/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user and its role grants. grantedBy records who
	// performed the grant; empty means self-registration.
	Create(ctx context.Context, user *domain.User, grantedBy string) error

	// GetByID retrieves a user with roles by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByUsername retrieves a user with roles by username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByEmail retrieves a user with roles by email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// ExistsByUsername reports whether a user with the given username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail reports whether a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// List returns all users ordered by creation time, newest first.
	List(ctx context.Context) ([]domain.User, error)

	// ListByRole returns all users holding the given role.
	ListByRole(ctx context.Context, role string) ([]domain.User, error)

	// Update modifies a user's profile fields (username, email, first/last name).
	Update(ctx context.Context, user *domain.User) error

	// SetPassword stores a new password hash and the temporary-password flag.
	SetPassword(ctx context.Context, userID, passwordHash string, temporary bool) error

	// SetActive flips the soft-delete flag.
	SetActive(ctx context.Context, userID string, active bool) error
}

// RoleRepository defines the interface for role reference data.
type RoleRepository interface {
	// List returns all roles.
	List(ctx context.Context) ([]domain.Role, error)

	// GetByDescription retrieves a role by its unique label.
	GetByDescription(ctx context.Context, description string) (*domain.Role, error)
}

// RefreshTokenRepository defines the interface for refresh token persistence.
// At most one token exists per user; Replace enforces that atomically.
type RefreshTokenRepository interface {
	// Replace atomically upserts the user's single token row, so concurrent
	// logins cannot race two tokens into existence.
	Replace(ctx context.Context, token *domain.RefreshToken) error

	// GetByToken retrieves a refresh token by its opaque value.
	GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error)

	// Delete removes a single token by its opaque value.
	Delete(ctx context.Context, token string) error

	// DeleteByUserID removes all tokens for the user, returning the count.
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
}

// PasswordResetTokenRepository defines the interface for reset token
// persistence. At most one unconsumed token exists per user.
type PasswordResetTokenRepository interface {
	// Replace atomically upserts the user's single unconsumed token.
	Replace(ctx context.Context, token *domain.PasswordResetToken) error

	// GetByToken retrieves a reset token by its opaque value.
	GetByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error)

	// Consume marks the token used and stores the user's new password hash
	// in one transaction; both writes commit or neither does.
	Consume(ctx context.Context, tokenID, userID, passwordHash string) error

	// DeleteByUserID removes all tokens for the user, returning the count.
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
}

// ReviewRepository defines the interface for review persistence.
type ReviewRepository interface {
	// Create inserts a new review.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// List returns all reviews, newest first.
	List(ctx context.Context) ([]domain.Review, error)

	// ListByCategory returns reviews in the given category, newest first.
	ListByCategory(ctx context.Context, category string) ([]domain.Review, error)

	// ListByUser returns reviews authored by the given user, newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Review, error)

	// Delete removes a review and its responses.
	Delete(ctx context.Context, id string) error

	// CreateResponse attaches a staff response to a review.
	CreateResponse(ctx context.Context, response *domain.ReviewResponse) error

	// ListResponses returns all responses for a review, oldest first.
	ListResponses(ctx context.Context, reviewID string) ([]domain.ReviewResponse, error)

	// DeleteResponse removes a single response.
	DeleteResponse(ctx context.Context, id string) error

	// Stats aggregates review counts and rating averages.
	Stats(ctx context.Context) (*domain.ReviewStats, error)
}
