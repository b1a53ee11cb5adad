package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"loan-management/internal/pkg/apperrors"

	"github.com/google/uuid"
)

type CustomerService interface {
	CreateCustomer(ctx context.Context, fullName string, email *string) (*Customer, error)
	GetCustomer(ctx context.Context, customerID uuid.UUID) (*Customer, error)
	ListCustomers(ctx context.Context) ([]*Customer, error)
}

var _ CustomerService = (*customerService)(nil)

type customerService struct {
	repo   Repository
	logger *slog.Logger
}

func NewCustomerService(repo Repository, logger *slog.Logger) CustomerService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerService, using default stderr handler")
	}

	return &customerService{
		repo:   repo,
		logger: logger.With(slog.String("component", "customerService")),
	}
}

func (s *customerService) CreateCustomer(ctx context.Context, fullName string, email *string) (*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to create new customer")

	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		s.logger.WarnContext(ctx, "Validation failed: full name is empty")
		return nil, apperrors.NewValidationError("fullName", "full name cannot be empty")
	}
	if email != nil {
		trimmed := strings.TrimSpace(*email)
		if trimmed == "" {
			email = nil
		} else {
			email = &trimmed
		}
	}

	cust := &Customer{
		ID:        uuid.New(),
		FullName:  fullName,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Save(ctx, cust); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save new customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new customer: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully created new customer", slog.String("customerID", cust.ID.String()))
	return cust, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID uuid.UUID) (*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to get customer by ID", slog.String("customerID", customerID.String()))

	cust, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Customer not found by repository", slog.String("customerID", customerID.String()))
			return nil, apperrors.ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error finding customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get customer %s: %w", customerID, err)
	}

	return cust, nil
}

func (s *customerService) ListCustomers(ctx context.Context) ([]*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to list all customers")

	customers, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing customers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully retrieved customers", slog.Int("count", len(customers)))
	return customers, nil
}
