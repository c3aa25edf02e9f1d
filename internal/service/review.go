package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/405153-Masera/deviaje-users-and-auth/internal/domain"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/repository"
	apperrors "github.com/405153-Masera/deviaje-users-and-auth/pkg/errors"
)

// ReviewService implements platform review CRUD, staff responses, and stats.
type ReviewService struct {
	reviewRepo repository.ReviewRepository
	logger     *slog.Logger
}

// NewReviewService creates the review service.
func NewReviewService(reviewRepo repository.ReviewRepository, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		logger:     logger,
	}
}

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	Rating   int
	Category string
	Comment  string
}

// CreateReview records feedback from an authenticated user.
func (s *ReviewService) CreateReview(ctx context.Context, userID string, input CreateReviewInput) (*domain.Review, error) {
	if input.Rating < domain.MinRating || input.Rating > domain.MaxRating {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
	}
	if !domain.IsValidCategory(input.Category) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown category %q", input.Category))
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:        uuid.New().String(),
		UserID:    userID,
		Rating:    input.Rating,
		Category:  input.Category,
		Comment:   input.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("user_id", userID),
		slog.String("category", review.Category),
	)

	return review, nil
}

// GetReview retrieves a review by ID.
func (s *ReviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// ListReviews returns all reviews.
func (s *ReviewService) ListReviews(ctx context.Context) ([]domain.Review, error) {
	reviews, err := s.reviewRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// ListReviewsByCategory returns reviews in the given category.
func (s *ReviewService) ListReviewsByCategory(ctx context.Context, category string) ([]domain.Review, error) {
	if !domain.IsValidCategory(category) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown category %q", category))
	}

	reviews, err := s.reviewRepo.ListByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list reviews by category: %w", err)
	}
	return reviews, nil
}

// ListReviewsByUser returns reviews authored by the given user.
func (s *ReviewService) ListReviewsByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	reviews, err := s.reviewRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reviews by user: %w", err)
	}
	return reviews, nil
}

// DeleteReview removes a review and its responses.
func (s *ReviewService) DeleteReview(ctx context.Context, id string) error {
	if err := s.reviewRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("review", id)
		}
		return fmt.Errorf("delete review: %w", err)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", id),
	)

	return nil
}

// RespondToReview attaches a staff reply to an existing review.
func (s *ReviewService) RespondToReview(ctx context.Context, reviewID, staffUserID, comment string) (*domain.ReviewResponse, error) {
	if comment == "" {
		return nil, apperrors.InvalidInput("comment is required")
	}

	// The review must exist before a response can hang off it.
	if _, err := s.GetReview(ctx, reviewID); err != nil {
		return nil, err
	}

	response := &domain.ReviewResponse{
		ID:        uuid.New().String(),
		ReviewID:  reviewID,
		UserID:    staffUserID,
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.reviewRepo.CreateResponse(ctx, response); err != nil {
		return nil, fmt.Errorf("create review response: %w", err)
	}

	s.logger.InfoContext(ctx, "review response created",
		slog.String("review_id", reviewID),
		slog.String("response_id", response.ID),
	)

	return response, nil
}

// ListResponses returns all responses for a review.
func (s *ReviewService) ListResponses(ctx context.Context, reviewID string) ([]domain.ReviewResponse, error) {
	responses, err := s.reviewRepo.ListResponses(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list review responses: %w", err)
	}
	return responses, nil
}

// DeleteResponse removes a staff response.
func (s *ReviewService) DeleteResponse(ctx context.Context, id string) error {
	if err := s.reviewRepo.DeleteResponse(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("review response", id)
		}
		return fmt.Errorf("delete review response: %w", err)
	}
	return nil
}

// ReviewStats aggregates counts and rating averages.
func (s *ReviewService) ReviewStats(ctx context.Context) (*domain.ReviewStats, error) {
	stats, err := s.reviewRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("review stats: %w", err)
	}
	return stats, nil
}
