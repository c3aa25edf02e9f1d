package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/405153-Masera/deviaje-users-and-auth/internal/domain"
	apperrors "github.com/405153-Masera/deviaje-users-and-auth/pkg/errors"
)

const userColumns = `
	u.id, u.username, u.email, u.password_hash, u.first_name, u.last_name,
	u.is_temporary_password, u.is_active, u.created_at, u.updated_at,
	COALESCE(ARRAY_AGG(r.description) FILTER (WHERE r.description IS NOT NULL), '{}') AS roles`

const userJoins = `
	FROM users u
	LEFT JOIN user_roles ur ON ur.user_id = u.id
	LEFT JOIN roles r ON r.id = ur.role_id`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and their role grants in one transaction.
func (r *UserRepository) Create(ctx context.Context, u *domain.User, grantedBy string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO users (id, username, email, password_hash, first_name, last_name, is_temporary_password, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = tx.Exec(ctx, query,
		u.ID,
		u.Username,
		u.Email,
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		u.IsTemporaryPassword,
		u.IsActive,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if dup := duplicateUserError(err, u); dup != nil {
			return dup
		}
		return fmt.Errorf("insert user: %w", err)
	}

	var granter any
	if grantedBy != "" {
		granter = grantedBy
	}

	for _, role := range u.Roles {
		ct, err := tx.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id, granted_at, granted_by)
			SELECT $1, id, $2, $3 FROM roles WHERE description = $4`,
			u.ID, time.Now().UTC(), granter, role,
		)
		if err != nil {
			return fmt.Errorf("grant role %s: %w", role, err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.InvalidInput(fmt.Sprintf("unknown role %q", role))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a user with their roles by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT` + userColumns + userJoins + `
		WHERE u.id = $1
		GROUP BY u.id`

	return r.scanUser(ctx, query, id)
}

// GetByUsername retrieves a user with their roles by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT` + userColumns + userJoins + `
		WHERE u.username = $1
		GROUP BY u.id`

	return r.scanUser(ctx, query, username)
}

// GetByEmail retrieves a user with their roles by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT` + userColumns + userJoins + `
		WHERE u.email = $1
		GROUP BY u.id`

	return r.scanUser(ctx, query, email)
}

// ExistsByUsername reports whether a user with the given username exists.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
}

// ExistsByEmail reports whether a user with the given email exists.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *UserRepository) exists(ctx context.Context, query, arg string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("check existence: %w", err)
	}
	return exists, nil
}

// List returns all users, newest first.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	query := `SELECT` + userColumns + userJoins + `
		GROUP BY u.id
		ORDER BY u.created_at DESC`

	return r.scanUsers(ctx, query)
}

// ListByRole returns all users holding the given role, newest first.
func (r *UserRepository) ListByRole(ctx context.Context, role string) ([]domain.User, error) {
	query := `SELECT` + userColumns + userJoins + `
		WHERE u.id IN (
			SELECT ur2.user_id FROM user_roles ur2
			JOIN roles r2 ON r2.id = ur2.role_id
			WHERE r2.description = $1
		)
		GROUP BY u.id
		ORDER BY u.created_at DESC`

	return r.scanUsers(ctx, query, role)
}

// Update modifies a user's profile fields.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET username = $1, email = $2, first_name = $3, last_name = $4, updated_at = $5
		WHERE id = $6`

	ct, err := r.db.Exec(ctx, query,
		u.Username,
		u.Email,
		u.FirstName,
		u.LastName,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		if dup := duplicateUserError(err, u); dup != nil {
			return dup
		}
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", u.ID)
	}

	return nil
}

// SetPassword stores a new password hash and the temporary-password flag.
func (r *UserRepository) SetPassword(ctx context.Context, userID, passwordHash string, temporary bool) error {
	query := `
		UPDATE users
		SET password_hash = $1, is_temporary_password = $2, updated_at = $3
		WHERE id = $4`

	ct, err := r.db.Exec(ctx, query, passwordHash, temporary, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", userID)
	}

	return nil
}

// SetActive flips the soft-delete flag. Users are never hard-deleted.
func (r *UserRepository) SetActive(ctx context.Context, userID string, active bool) error {
	query := `UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3`

	ct, err := r.db.Exec(ctx, query, active, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", userID)
	}

	return nil
}

func (r *UserRepository) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var u domain.User

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.IsTemporaryPassword,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.Roles,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}

func (r *UserRepository) scanUsers(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID,
			&u.Username,
			&u.Email,
			&u.PasswordHash,
			&u.FirstName,
			&u.LastName,
			&u.IsTemporaryPassword,
			&u.IsActive,
			&u.CreatedAt,
			&u.UpdatedAt,
			&u.Roles,
		); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}

	if users == nil {
		users = []domain.User{}
	}

	return users, nil
}

// duplicateUserError maps a unique violation to the conflicting field.
func duplicateUserError(err error, u *domain.User) error {
	constraint, ok := uniqueViolation(err)
	if !ok {
		return nil
	}
	if strings.Contains(constraint, "email") {
		return apperrors.AlreadyExists("user", "email", u.Email)
	}
	return apperrors.AlreadyExists("user", "username", u.Username)
}

// --- Role Repository ---

// RoleRepository implements repository.RoleRepository using PostgreSQL.
type RoleRepository struct {
	db DB
}

// NewRoleRepository creates a new PostgreSQL-backed role repository.
func NewRoleRepository(db DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// List returns all roles.
func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.Query(ctx, `SELECT id, description FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Description); err != nil {
			return nil, fmt.Errorf("scan role row: %w", err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role rows: %w", err)
	}

	return roles, nil
}

// GetByDescription retrieves a role by its unique label.
func (r *RoleRepository) GetByDescription(ctx context.Context, description string) (*domain.Role, error) {
	var role domain.Role
	err := r.db.QueryRow(ctx,
		`SELECT id, description FROM roles WHERE description = $1`,
		description,
	).Scan(&role.ID, &role.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}

	return &role, nil
}
