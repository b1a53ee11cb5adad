package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-management/internal/domain/customer"
	"loan-management/internal/event"
	"loan-management/internal/infrastructure/monitoring"
	"loan-management/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanService interface {
	CreateLoan(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) (*Loan, error)

	GetLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error)

	ListLoans(ctx context.Context) ([]*Loan, error)

	MakePayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal) (*PaymentResult, error)
}

type loanServiceImpl struct {
	repo            Repository
	customerService customer.CustomerService
	publisher       event.Publisher
	logger          *slog.Logger
}

func NewLoanService(r Repository, cs customer.CustomerService, pub event.Publisher, logger *slog.Logger) LoanService {
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	return &loanServiceImpl{repo: r, customerService: cs, publisher: pub, logger: logger.With("component", "loanService")}
}

func (s *loanServiceImpl) CreateLoan(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal) (*Loan, error) {
	s.logger.InfoContext(ctx, "Creating new loan", "customerID", customerID.String())

	cust, err := s.customerService.GetCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Customer not found", "customerID", customerID.String())
			return nil, fmt.Errorf("%w: customer %s not found", apperrors.ErrNotFound, customerID)
		}
		s.logger.ErrorContext(ctx, "Failed to get customer details", slog.Any("error", err))
		return nil, fmt.Errorf("failed to verify customer: %w", err)
	}

	newLoan, err := NewLoan(customerID, amount)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to create new loan object", slog.Any("error", err))
		return nil, err
	}

	if err := s.repo.CreateLoan(ctx, newLoan); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save loan", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to save loan: %v", apperrors.ErrInternalServer, err)
	}
	// The detail view includes the owning customer; reuse the one already
	// loaded instead of re-reading it.
	newLoan.Customer = cust

	monitoring.RecordLoanCreated()
	s.publishLoanCreated(ctx, newLoan)

	s.logger.InfoContext(ctx, "Loan created successfully", "loanID", newLoan.ID.String(), "customerID", customerID.String())
	return newLoan, nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	s.logger.InfoContext(ctx, "Getting loan details", "loanID", loanID.String())

	l, err := s.repo.GetByIDWithCustomer(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found", "loanID", loanID.String())
			return nil, fmt.Errorf("%w: loan %s not found", apperrors.ErrNotFound, loanID)
		}
		s.logger.ErrorContext(ctx, "Failed to get loan", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get loan %s: %v", apperrors.ErrInternalServer, loanID, err)
	}
	return l, nil
}

func (s *loanServiceImpl) ListLoans(ctx context.Context) ([]*Loan, error) {
	s.logger.InfoContext(ctx, "Listing loans")

	loans, err := s.repo.GetAllWithCustomer(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list loans", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to list loans: %v", apperrors.ErrInternalServer, err)
	}
	return loans, nil
}

// MakePayment applies a payment inside a transaction holding a row lock on
// the loan, so concurrent payments against the same loan serialize instead of
// racing the read-validate-write sequence.
func (s *loanServiceImpl) MakePayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal) (result *PaymentResult, err error) {
	s.logger.InfoContext(ctx, "Making payment", "loanID", loanID.String(), "amount", amount.StringFixed(2))

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	defer func() {
		monitoring.RecordPayment(paymentOutcome(err))
		if p := recover(); p != nil {
			s.logger.ErrorContext(ctx, "Panic occurred during payment processing", "loanID", loanID.String(), "error", p)
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	l, err := s.repo.GetByIDForUpdate(ctx, tx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found for payment", "loanID", loanID.String())
			return nil, fmt.Errorf("%w: loan %s not found", apperrors.ErrNotFound, loanID)
		}
		s.logger.ErrorContext(ctx, "Failed to lock loan for payment", slog.Any("error", err))
		return nil, fmt.Errorf("%w: could not load loan for payment: %v", apperrors.ErrInternalServer, err)
	}

	result, err = l.ApplyPayment(amount)
	if err != nil {
		s.logger.WarnContext(ctx, "Payment rejected", "loanID", loanID.String(), slog.Any("error", err))
		return nil, err
	}

	if err = s.repo.UpdateBalanceAndStatusInTx(ctx, tx, l); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist payment", slog.Any("error", err))
		return nil, fmt.Errorf("%w: could not persist payment: %v", apperrors.ErrInternalServer, err)
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	s.publishPaymentReceived(ctx, result, amount)

	s.logger.InfoContext(ctx, "Payment processed successfully",
		"loanID", loanID.String(),
		"amount", amount.StringFixed(2),
		"newBalance", result.NewBalance.StringFixed(2),
		"status", string(result.Status),
	)
	return result, nil
}

func paymentOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrLoanAlreadyPaid):
		return "failure_already_paid"
	case errors.Is(err, apperrors.ErrInvalidPaymentAmount):
		return "failure_amount"
	case errors.Is(err, apperrors.ErrPaymentExceedsBalance):
		return "failure_overpayment"
	case errors.Is(err, apperrors.ErrNotFound):
		return "failure_not_found"
	default:
		return "failure_internal"
	}
}

func (s *loanServiceImpl) publishLoanCreated(ctx context.Context, l *Loan) {
	evt := event.LoanCreatedEvent{
		Timestamp: time.Now(),
		Payload: event.LoanEventPayload{
			LoanID:         l.ID,
			CustomerID:     l.CustomerID,
			OriginalAmount: l.OriginalAmount.StringFixed(2),
			CurrentBalance: l.CurrentBalance.StringFixed(2),
			Status:         string(l.Status),
		},
	}
	if err := s.publisher.PublishLoanCreated(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Loan created, but failed to publish creation event", slog.Any("error", err))
	}
}

func (s *loanServiceImpl) publishPaymentReceived(ctx context.Context, result *PaymentResult, amount decimal.Decimal) {
	evt := event.PaymentReceivedEvent{
		Timestamp:       time.Now(),
		LoanID:          result.LoanID,
		Amount:          amount.StringFixed(2),
		PreviousBalance: result.PreviousBalance.StringFixed(2),
		NewBalance:      result.NewBalance.StringFixed(2),
		Status:          string(result.Status),
	}
	if err := s.publisher.PublishPaymentReceived(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Payment applied, but failed to publish payment event", slog.Any("error", err))
	}

	if result.Status == StatusPaid {
		settled := event.LoanSettledEvent{Timestamp: time.Now(), LoanID: result.LoanID}
		if err := s.publisher.PublishLoanSettled(ctx, settled); err != nil {
			s.logger.ErrorContext(ctx, "Loan settled, but failed to publish settlement event", slog.Any("error", err))
		}
	}
}
