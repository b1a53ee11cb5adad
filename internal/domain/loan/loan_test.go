package loan

import (
	"testing"

	"loan-management/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewLoan(t *testing.T) {
	t.Run("should error when customer ID is nil", func(t *testing.T) {
		l, err := NewLoan(uuid.Nil, decimal.NewFromInt(100))
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
		assert.Nil(t, l)
	})

	t.Run("should error when amount is zero or negative", func(t *testing.T) {
		l, err := NewLoan(uuid.New(), decimal.Zero)
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
		assert.Nil(t, l)

		l, err = NewLoan(uuid.New(), decimal.NewFromInt(-50))
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
		assert.Nil(t, l)
	})

	t.Run("should open with the full amount as the balance", func(t *testing.T) {
		customerID := uuid.New()
		l, err := NewLoan(customerID, decimal.NewFromInt(1500))
		assert.NoError(t, err)
		assert.NotNil(t, l)
		assert.NotEqual(t, uuid.Nil, l.ID)
		assert.Equal(t, customerID, l.CustomerID)
		assert.True(t, l.OriginalAmount.Equal(decimal.NewFromInt(1500)))
		assert.True(t, l.CurrentBalance.Equal(decimal.NewFromInt(1500)))
		assert.Equal(t, StatusActive, l.Status)
		assert.False(t, l.CreatedAt.IsZero())
	})
}

func TestApplyPayment(t *testing.T) {
	newActiveLoan := func(amount int64) *Loan {
		l, err := NewLoan(uuid.New(), decimal.NewFromInt(amount))
		assert.NoError(t, err)
		return l
	}

	t.Run("should reduce the balance by the payment amount", func(t *testing.T) {
		l := newActiveLoan(1500)

		result, err := l.ApplyPayment(decimal.NewFromInt(1000))
		assert.NoError(t, err)
		assert.Equal(t, l.ID, result.LoanID)
		assert.True(t, result.PreviousBalance.Equal(decimal.NewFromInt(1500)))
		assert.True(t, result.NewBalance.Equal(decimal.NewFromInt(500)))
		assert.Equal(t, StatusActive, result.Status)
		assert.Equal(t, StatusActive, l.Status)
	})

	t.Run("should settle the loan when the full balance is paid", func(t *testing.T) {
		l := newActiveLoan(500)

		result, err := l.ApplyPayment(decimal.NewFromInt(500))
		assert.NoError(t, err)
		assert.True(t, result.NewBalance.IsZero())
		assert.Equal(t, StatusPaid, result.Status)
		assert.Equal(t, StatusPaid, l.Status)
		assert.True(t, l.Settled())
	})

	t.Run("should settle after several partial payments", func(t *testing.T) {
		l := newActiveLoan(100)

		_, err := l.ApplyPayment(decimal.NewFromInt(60))
		assert.NoError(t, err)
		result, err := l.ApplyPayment(decimal.NewFromInt(40))
		assert.NoError(t, err)
		assert.True(t, result.NewBalance.IsZero())
		assert.Equal(t, StatusPaid, result.Status)
	})

	t.Run("should reject payments against a settled loan", func(t *testing.T) {
		l := newActiveLoan(100)
		_, err := l.ApplyPayment(decimal.NewFromInt(100))
		assert.NoError(t, err)

		result, err := l.ApplyPayment(decimal.NewFromInt(10))
		assert.ErrorIs(t, err, apperrors.ErrLoanAlreadyPaid)
		assert.Nil(t, result)
	})

	t.Run("should reject zero and negative payments", func(t *testing.T) {
		l := newActiveLoan(100)

		_, err := l.ApplyPayment(decimal.Zero)
		assert.ErrorIs(t, err, apperrors.ErrInvalidPaymentAmount)

		_, err = l.ApplyPayment(decimal.NewFromInt(-5))
		assert.ErrorIs(t, err, apperrors.ErrInvalidPaymentAmount)

		assert.True(t, l.CurrentBalance.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, StatusActive, l.Status)
	})

	t.Run("should reject payments exceeding the balance", func(t *testing.T) {
		l := newActiveLoan(100)
		_, err := l.ApplyPayment(decimal.NewFromInt(80))
		assert.NoError(t, err)

		result, err := l.ApplyPayment(decimal.NewFromInt(30))
		assert.ErrorIs(t, err, apperrors.ErrPaymentExceedsBalance)
		assert.Nil(t, result)
		assert.True(t, l.CurrentBalance.Equal(decimal.NewFromInt(20)))
		assert.Equal(t, StatusActive, l.Status)
	})

	t.Run("should report already-settled before rejecting a bad amount", func(t *testing.T) {
		l := newActiveLoan(50)
		_, err := l.ApplyPayment(decimal.NewFromInt(50))
		assert.NoError(t, err)

		_, err = l.ApplyPayment(decimal.NewFromInt(-1))
		assert.ErrorIs(t, err, apperrors.ErrLoanAlreadyPaid)
	})

	t.Run("should handle fractional amounts exactly", func(t *testing.T) {
		l := newActiveLoan(1)
		thirty, _ := decimal.NewFromString("0.30")
		seventy, _ := decimal.NewFromString("0.70")

		_, err := l.ApplyPayment(thirty)
		assert.NoError(t, err)
		result, err := l.ApplyPayment(seventy)
		assert.NoError(t, err)
		assert.Equal(t, StatusPaid, result.Status)
		assert.True(t, result.NewBalance.IsZero())
	})
}
