package user

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"loan-management/internal/pkg/apperrors"

	"github.com/google/uuid"
)

// TokenIssuer mints the bearer token returned on successful authentication.
type TokenIssuer interface {
	IssueToken(userID, email string) (string, error)
}

type AuthService interface {
	Register(ctx context.Context, email, passwordHash string) (string, error)
	Login(ctx context.Context, email, passwordHash string) (string, error)
}

var _ AuthService = (*authService)(nil)

type authService struct {
	repo   Repository
	tokens TokenIssuer
	logger *slog.Logger
}

func NewAuthService(repo Repository, tokens TokenIssuer, logger *slog.Logger) AuthService {
	if repo == nil {
		panic("user repository cannot be nil")
	}
	if tokens == nil {
		panic("token issuer cannot be nil")
	}
	return &authService{
		repo:   repo,
		tokens: tokens,
		logger: logger.With(slog.String("component", "authService")),
	}
}

// Register creates an account for the given email. Email matching is
// case-sensitive exact equality.
func (s *authService) Register(ctx context.Context, email, passwordHash string) (string, error) {
	s.logger.InfoContext(ctx, "Registering user", "email", email)

	email = strings.TrimSpace(email)
	if email == "" {
		return "", apperrors.NewValidationError("email", "email cannot be empty")
	}
	if passwordHash == "" {
		return "", apperrors.NewValidationError("passwordHash", "password hash cannot be empty")
	}

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error checking email existence", slog.Any("error", err))
		return "", fmt.Errorf("failed to check email availability: %w", err)
	}
	if exists {
		s.logger.WarnContext(ctx, "Registration rejected: email already registered", "email", email)
		return "", fmt.Errorf("%w: email already registered", apperrors.ErrAlreadyExists)
	}

	u := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, u); err != nil {
		// A concurrent registration can slip past the existence check; the
		// unique index reports it as an already-exists error.
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			s.logger.WarnContext(ctx, "Registration rejected by unique constraint", "email", email)
			return "", fmt.Errorf("%w: email already registered", apperrors.ErrAlreadyExists)
		}
		s.logger.ErrorContext(ctx, "Repository failed to create user", slog.Any("error", err))
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.IssueToken(u.ID.String(), u.Email)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to issue token after registration", slog.Any("error", err))
		return "", fmt.Errorf("%w: failed to issue token: %v", apperrors.ErrInternalServer, err)
	}

	s.logger.InfoContext(ctx, "User registered successfully", "userID", u.ID.String())
	return token, nil
}

func (s *authService) Login(ctx context.Context, email, passwordHash string) (string, error) {
	s.logger.InfoContext(ctx, "User login attempt", "email", email)

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Login failed: no account for email", "email", email)
			return "", apperrors.ErrInvalidCredentials
		}
		s.logger.ErrorContext(ctx, "Repository error finding user by email", slog.Any("error", err))
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(u.PasswordHash), []byte(passwordHash)) != 1 {
		s.logger.WarnContext(ctx, "Login failed: credential mismatch", "email", email)
		return "", apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.IssueToken(u.ID.String(), u.Email)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to issue token after login", slog.Any("error", err))
		return "", fmt.Errorf("%w: failed to issue token: %v", apperrors.ErrInternalServer, err)
	}

	s.logger.InfoContext(ctx, "User logged in successfully", "userID", u.ID.String())
	return token, nil
}
