package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"loan-management/internal/api/handler/dto"
	"loan-management/internal/domain/user"
	"loan-management/internal/pkg/apperrors"
)

type AuthHandler struct {
	service user.AuthService
	logger  *slog.Logger
}

func NewAuthHandler(s user.AuthService, l *slog.Logger) *AuthHandler {
	if s == nil {
		panic("auth service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &AuthHandler{
		service: s,
		logger:  l.With("component", "AuthHandler"),
	}
}

// Register handles POST /auth/register
// @Summary Register a new API user
// @Description Creates a user account from an email and a client-side password hash, then returns a bearer token.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration payload"
// @Success 201 {object} dto.TokenResponse "User registered, token issued"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 409 {object} dto.ErrorResponse "Email already registered"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	token, err := h.service.Register(r.Context(), req.Email, req.PasswordHash)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrAlreadyExists) && !errors.Is(err, apperrors.ErrValidation) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to register user", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "User registered successfully")
	respondJSON(w, http.StatusCreated, dto.TokenResponse{Token: token})
}

// Login handles POST /auth/login
// @Summary Authenticate an API user
// @Description Verifies the email and client-side password hash and returns a bearer token.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login payload"
// @Success 200 {object} dto.TokenResponse "Authenticated, token issued"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.PasswordHash)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrInvalidCredentials) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to authenticate user", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "User authenticated successfully")
	respondJSON(w, http.StatusOK, dto.TokenResponse{Token: token})
}
