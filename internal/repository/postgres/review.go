package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/405153-Masera/deviaje-users-and-auth/internal/domain"
	apperrors "github.com/405153-Masera/deviaje-users-and-auth/pkg/errors"
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	db DB
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(db DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a new review.
func (r *ReviewRepository) Create(ctx context.Context, rev *domain.Review) error {
	query := `
		INSERT INTO reviews (id, user_id, rating, category, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		rev.ID,
		rev.UserID,
		rev.Rating,
		rev.Category,
		rev.Comment,
		rev.CreatedAt,
		rev.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	var rev domain.Review
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, rating, category, comment, created_at, updated_at
		FROM reviews
		WHERE id = $1`,
		id,
	).Scan(&rev.ID, &rev.UserID, &rev.Rating, &rev.Category, &rev.Comment, &rev.CreatedAt, &rev.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}

	return &rev, nil
}

// List returns all reviews, newest first.
func (r *ReviewRepository) List(ctx context.Context) ([]domain.Review, error) {
	query := `
		SELECT id, user_id, rating, category, comment, created_at, updated_at
		FROM reviews
		ORDER BY created_at DESC`

	return r.scanReviews(ctx, query)
}

// ListByCategory returns reviews in the given category, newest first.
func (r *ReviewRepository) ListByCategory(ctx context.Context, category string) ([]domain.Review, error) {
	query := `
		SELECT id, user_id, rating, category, comment, created_at, updated_at
		FROM reviews
		WHERE category = $1
		ORDER BY created_at DESC`

	return r.scanReviews(ctx, query, category)
}

// ListByUser returns reviews authored by the given user, newest first.
func (r *ReviewRepository) ListByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	query := `
		SELECT id, user_id, rating, category, comment, created_at, updated_at
		FROM reviews
		WHERE user_id = $1
		ORDER BY created_at DESC`

	return r.scanReviews(ctx, query, userID)
}

// scanReviews runs a review query and scans the resulting rows.
func (r *ReviewRepository) scanReviews(ctx context.Context, query string, args ...any) ([]domain.Review, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var rev domain.Review
		if err := rows.Scan(&rev.ID, &rev.UserID, &rev.Rating, &rev.Category, &rev.Comment, &rev.CreatedAt, &rev.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}

	return reviews, nil
}

// Delete removes a review; responses go with it via ON DELETE CASCADE.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}

	return nil
}

// CreateResponse attaches a staff response to a review.
func (r *ReviewRepository) CreateResponse(ctx context.Context, resp *domain.ReviewResponse) error {
	query := `
		INSERT INTO review_responses (id, review_id, user_id, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		resp.ID,
		resp.ReviewID,
		resp.UserID,
		resp.Comment,
		resp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review response: %w", err)
	}

	return nil
}

// ListResponses returns all responses for a review, oldest first.
func (r *ReviewRepository) ListResponses(ctx context.Context, reviewID string) ([]domain.ReviewResponse, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, review_id, user_id, comment, created_at
		FROM review_responses
		WHERE review_id = $1
		ORDER BY created_at ASC`,
		reviewID,
	)
	if err != nil {
		return nil, fmt.Errorf("list review responses: %w", err)
	}
	defer rows.Close()

	var responses []domain.ReviewResponse
	for rows.Next() {
		var resp domain.ReviewResponse
		if err := rows.Scan(&resp.ID, &resp.ReviewID, &resp.UserID, &resp.Comment, &resp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review response row: %w", err)
		}
		responses = append(responses, resp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review response rows: %w", err)
	}

	if responses == nil {
		responses = []domain.ReviewResponse{}
	}

	return responses, nil
}

// DeleteResponse removes a single response.
func (r *ReviewRepository) DeleteResponse(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM review_responses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review response: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review response", id)
	}

	return nil
}

// Stats aggregates review counts, the overall average, per-category averages,
// and the 1-5 rating distribution.
func (r *ReviewRepository) Stats(ctx context.Context) (*domain.ReviewStats, error) {
	stats := &domain.ReviewStats{
		AverageByCategory:  make(map[string]float64),
		RatingDistribution: make(map[int]int),
	}

	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM reviews`,
	).Scan(&stats.TotalCount, &stats.AverageRating)
	if err != nil {
		return nil, fmt.Errorf("scan review totals: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT category, AVG(rating) FROM reviews GROUP BY category`,
	)
	if err != nil {
		return nil, fmt.Errorf("query category averages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var avg float64
		if err := rows.Scan(&category, &avg); err != nil {
			return nil, fmt.Errorf("scan category average: %w", err)
		}
		stats.AverageByCategory[category] = avg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category averages: %w", err)
	}

	distRows, err := r.db.Query(ctx,
		`SELECT rating, COUNT(*) FROM reviews GROUP BY rating`,
	)
	if err != nil {
		return nil, fmt.Errorf("query rating distribution: %w", err)
	}
	defer distRows.Close()

	for distRows.Next() {
		var rating, count int
		if err := distRows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("scan rating distribution: %w", err)
		}
		stats.RatingDistribution[rating] = count
	}
	if err := distRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating distribution: %w", err)
	}

	return stats, nil
}
