package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/405153-Masera/deviaje-users-and-auth/internal/service"
	"github.com/405153-Masera/deviaje-users-and-auth/pkg/validator"
)

// ReviewHandler handles HTTP requests for platform review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON request body for creating a review.
type CreateReviewRequest struct {
	Rating   int    `json:"rating" validate:"required,gte=1,lte=5"`
	Category string `json:"category" validate:"required,oneof=USABILITY SEARCHES BOOKING_PROCESS PERFORMANCE GENERAL"`
	Comment  string `json:"comment" validate:"omitempty,max=2000"`
}

// RespondRequest is the JSON request body for a staff reply to a review.
type RespondRequest struct {
	Comment string `json:"comment" validate:"required,min=1,max=2000"`
}

// --- Handlers ---

// Create handles POST /api/reviews
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())

	var req CreateReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	review, err := h.service.CreateReview(r.Context(), principal.ID, service.CreateReviewInput{
		Rating:   req.Rating,
		Category: req.Category,
		Comment:  req.Comment,
	})
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: review})
}

// List handles GET /api/reviews
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListReviews(r.Context())
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: reviews})
}

// ListByCategory handles GET /api/reviews/category/{category}
func (h *ReviewHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	reviews, err := h.service.ListReviewsByCategory(r.Context(), category)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: reviews})
}

// ListByUser handles GET /api/reviews/user/{userId}
func (h *ReviewHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	reviews, err := h.service.ListReviewsByUser(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: reviews})
}

// Get handles GET /api/reviews/{id}
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	review, err := h.service.GetReview(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: review})
}

// Delete handles DELETE /api/reviews/{id}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteReview(r.Context(), id); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: map[string]string{"id": id, "status": "deleted"},
	})
}

// Stats handles GET /api/reviews/stats
func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.ReviewStats(r.Context())
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: stats})
}

// Respond handles POST /api/reviews/{reviewId}/responses
func (h *ReviewHandler) Respond(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	reviewID := chi.URLParam(r, "reviewId")

	var req RespondRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	resp, err := h.service.RespondToReview(r.Context(), reviewID, principal.ID, req.Comment)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: resp})
}

// ListResponses handles GET /api/reviews/{reviewId}/responses
func (h *ReviewHandler) ListResponses(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "reviewId")

	responses, err := h.service.ListResponses(r.Context(), reviewID)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: responses})
}

// DeleteResponse handles DELETE /api/reviews/responses/{responseId}
func (h *ReviewHandler) DeleteResponse(w http.ResponseWriter, r *http.Request) {
	responseID := chi.URLParam(r, "responseId")

	if err := h.service.DeleteResponse(r.Context(), responseID); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: map[string]string{"id": responseID, "status": "deleted"},
	})
}
