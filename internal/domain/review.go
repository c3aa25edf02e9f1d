package domain

import (
	"time"
)

// Review categories define what aspect of the platform a review covers.
const (
	CategoryUsability      = "USABILITY"
	CategorySearches       = "SEARCHES"
	CategoryBookingProcess = "BOOKING_PROCESS"
	CategoryPerformance    = "PERFORMANCE"
	CategoryGeneral        = "GENERAL"
)

// Rating bounds for reviews.
const (
	MinRating = 1
	MaxRating = 5
)

// ValidCategories returns the set of valid review categories.
func ValidCategories() []string {
	return []string{
		CategoryUsability,
		CategorySearches,
		CategoryBookingProcess,
		CategoryPerformance,
		CategoryGeneral,
	}
}

// IsValidCategory checks whether the given label is a valid review category.
func IsValidCategory(category string) bool {
	for _, c := range ValidCategories() {
		if c == category {
			return true
		}
	}
	return false
}

// Review is platform feedback left by a registered user.
type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Category  string    `json:"category"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewResponse is a staff reply attached to a review.
type ReviewResponse struct {
	ID        string    `json:"id"`
	ReviewID  string    `json:"review_id"`
	UserID    string    `json:"user_id"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewStats aggregates review data for reporting.
type ReviewStats struct {
	TotalCount         int                `json:"total_count"`
	AverageRating      float64            `json:"average_rating"`
	AverageByCategory  map[string]float64 `json:"average_by_category"`
	RatingDistribution map[int]int        `json:"rating_distribution"`
}
