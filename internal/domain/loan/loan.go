package loan

import (
	"fmt"
	"time"

	"loan-management/internal/domain/customer"
	"loan-management/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	StatusActive LoanStatus = "active"
	StatusPaid   LoanStatus = "paid"
)

type Loan struct {
	ID             uuid.UUID
	CustomerID     uuid.UUID
	Customer       *customer.Customer
	OriginalAmount decimal.Decimal
	CurrentBalance decimal.Decimal
	Status         LoanStatus
	CreatedAt      time.Time
}

// PaymentResult captures the balance movement of a single applied payment.
type PaymentResult struct {
	LoanID          uuid.UUID
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
	Status          LoanStatus
}

// NewLoan builds a loan for the given customer. The full requested amount is
// outstanding from the start: OriginalAmount == CurrentBalance.
func NewLoan(customerID uuid.UUID, amount decimal.Decimal) (*Loan, error) {
	if customerID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer id is required", apperrors.ErrInvalidArgument)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: loan amount must be greater than zero", apperrors.ErrInvalidArgument)
	}

	return &Loan{
		ID:             uuid.New(),
		CustomerID:     customerID,
		OriginalAmount: amount,
		CurrentBalance: amount,
		Status:         StatusActive,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// ApplyPayment validates and applies a payment against the outstanding
// balance. Checks run in a fixed order and the first failure wins:
// settled loan, non-positive amount, overpayment. On success the balance is
// reduced and the loan flips to paid when it reaches exactly zero.
func (l *Loan) ApplyPayment(amount decimal.Decimal) (*PaymentResult, error) {
	if l.Status == StatusPaid {
		return nil, fmt.Errorf("%w: loan %s", apperrors.ErrLoanAlreadyPaid, l.ID)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", apperrors.ErrInvalidPaymentAmount, amount.StringFixed(2))
	}
	if amount.GreaterThan(l.CurrentBalance) {
		return nil, fmt.Errorf("%w: %s > %s", apperrors.ErrPaymentExceedsBalance, amount.StringFixed(2), l.CurrentBalance.StringFixed(2))
	}

	previous := l.CurrentBalance
	l.CurrentBalance = l.CurrentBalance.Sub(amount)
	if l.CurrentBalance.IsZero() {
		l.Status = StatusPaid
	}

	return &PaymentResult{
		LoanID:          l.ID,
		PreviousBalance: previous,
		NewBalance:      l.CurrentBalance,
		Status:          l.Status,
	}, nil
}

// Settled reports whether the loan reached its terminal state.
func (l *Loan) Settled() bool {
	return l.Status == StatusPaid
}
