package service

import (
	"net/http"

	apperrors "github.com/405153-Masera/deviaje-users-and-auth/pkg/errors"
)

// Domain error constructors for the authentication core. Each returns a fresh
// AppError so callers can wrap without sharing state.

func errBadCredentials() *apperrors.AppError {
	return apperrors.New("BAD_CREDENTIALS", "invalid username or password",
		http.StatusUnauthorized, apperrors.ErrUnauthorized)
}

func errAccountDisabled() *apperrors.AppError {
	return apperrors.New("ACCOUNT_DISABLED", "account is deactivated",
		http.StatusForbidden, apperrors.ErrForbidden)
}

func errRefreshTokenNotFound() *apperrors.AppError {
	return apperrors.New("REFRESH_TOKEN_NOT_FOUND", "refresh token not found",
		http.StatusForbidden, apperrors.ErrForbidden)
}

func errRefreshTokenExpired() *apperrors.AppError {
	return apperrors.New("REFRESH_TOKEN_EXPIRED", "refresh token expired, please log in again",
		http.StatusForbidden, apperrors.ErrForbidden)
}

func errPasswordMismatch() *apperrors.AppError {
	return apperrors.New("PASSWORD_MISMATCH", "new password and confirmation do not match",
		http.StatusBadRequest, apperrors.ErrInvalidInput)
}

func errCurrentPasswordIncorrect() *apperrors.AppError {
	return apperrors.New("CURRENT_PASSWORD_INCORRECT", "current password is incorrect",
		http.StatusBadRequest, apperrors.ErrInvalidInput)
}

func errInvalidResetToken() *apperrors.AppError {
	return apperrors.New("INVALID_RESET_TOKEN", "reset token is invalid, expired, or already used",
		http.StatusBadRequest, apperrors.ErrInvalidInput)
}
