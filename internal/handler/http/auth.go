package http

import (
	"log/slog"
	"net/http"

	"github.com/405153-Masera/deviaje-users-and-auth/internal/service"
	"github.com/405153-Masera/deviaje-users-and-auth/pkg/validator"
)

// AuthHandler handles HTTP requests for authentication endpoints.
type AuthHandler struct {
	authService     *service.AuthService
	passwordService *service.PasswordService
	userService     *service.UserService
	logger          *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(
	authService *service.AuthService,
	passwordService *service.PasswordService,
	userService *service.UserService,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:     authService,
		passwordService: passwordService,
		userService:     userService,
		logger:          logger,
	}
}

// --- Request DTOs ---

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SignupRequest is the JSON request body for self-registration.
type SignupRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required,min=1,max=100"`
	LastName  string `json:"lastName" validate:"required,min=1,max=100"`
}

// RefreshTokenRequest is the JSON request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// ForgotPasswordRequest is the JSON request body for requesting a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the JSON request body for consuming a reset token.
type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// ChangePasswordRequest is the JSON request body for a self-service password
// change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// --- Response types ---

// LoginResponse carries the token pair plus the user summary the frontend
// needs to bootstrap a session.
type LoginResponse struct {
	AccessToken         string   `json:"accessToken"`
	RefreshToken        string   `json:"refreshToken"`
	TokenType           string   `json:"tokenType"`
	ID                  string   `json:"id"`
	Username            string   `json:"username"`
	Email               string   `json:"email"`
	Roles               []string `json:"roles"`
	IsTemporaryPassword bool     `json:"isTemporaryPassword"`
}

func loginResponseFrom(result *service.AuthResult) LoginResponse {
	return LoginResponse{
		AccessToken:         result.AccessToken,
		RefreshToken:        result.RefreshToken,
		TokenType:           "Bearer",
		ID:                  result.User.ID,
		Username:            result.User.Username,
		Email:               result.User.Email,
		Roles:               result.User.Roles,
		IsTemporaryPassword: result.User.IsTemporaryPassword,
	}
}

// --- Handlers ---

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: loginResponseFrom(result)})
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	user, err := h.userService.Signup(r.Context(), service.SignupInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: user})
}

// RefreshToken handles POST /api/auth/refresh-token
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	result, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: loginResponseFrom(result)})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())

	if err := h.authService.Logout(r.Context(), principal.ID); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: map[string]string{"message": "logged out"},
	})
}

// ForgotPassword handles POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.passwordService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	// Identical body whether or not the email exists.
	writeJSON(w, http.StatusOK, response{
		Data: map[string]string{"message": "if the email exists, a password reset link has been sent"},
	})
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.passwordService.ResetPassword(r.Context(), req.Token, req.NewPassword, req.ConfirmPassword); err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: map[string]string{"message": "password has been reset successfully"},
	})
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())

	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	err := h.passwordService.ChangePassword(r.Context(), principal.ID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		writeAppError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: map[string]string{"message": "password changed successfully"},
	})
}

// ValidateToken handles GET /api/public/validate/token. It reports whether the
// presented bearer token authenticates the calling principal; other services
// use it to vet tokens without sharing the signing secret.
func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())

	writeJSON(w, http.StatusOK, response{
		Data: map[string]any{"valid": principal != nil && principal.Active},
	})
}
