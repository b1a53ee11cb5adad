package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"loan-management/internal/domain/loan"
	"loan-management/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

const pgxmockExpectationsNotMetMsg = "pgxmock expectations not met"

func setupLoanRepo(t *testing.T) (context.Context, *LoanRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}

	ctx := context.Background()
	repo := NewLoanRepository(mockPool, logger)

	return ctx, repo, mockPool
}

func testLoan() *loan.Loan {
	l, _ := loan.NewLoan(uuid.New(), decimal.NewFromInt(1500))
	return l
}

func TestLoanRepositoryCreateLoan(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	l := testLoan()

	t.Run("successful insert", func(t *testing.T) {
		mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO loans")).
			WithArgs(l.ID, l.CustomerID, decimalToNumeric(l.OriginalAmount), decimalToNumeric(l.CurrentBalance), l.Status, l.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.CreateLoan(ctx, l)
		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("insert failure wraps database error", func(t *testing.T) {
		mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO loans")).
			WithArgs(l.ID, l.CustomerID, decimalToNumeric(l.OriginalAmount), decimalToNumeric(l.CurrentBalance), l.Status, l.CreatedAt).
			WillReturnError(errors.New("connection reset"))

		err := repo.CreateLoan(ctx, l)
		assert.ErrorIs(t, err, apperrors.ErrDatabase)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})
}

func loanWithCustomerRowColumns() []string {
	return []string{
		"id", "customer_id", "original_amount", "current_balance", "status", "created_at",
		"c_id", "full_name", "email", "c_created_at",
	}
}

func TestLoanRepositoryGetByIDWithCustomer(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	loanID := uuid.New()
	customerID := uuid.New()
	email := "maria.silva@example.com"
	createdAt := time.Now().UTC()

	t.Run("loan found", func(t *testing.T) {
		rows := pgxmock.NewRows(loanWithCustomerRowColumns()).
			AddRow(
				loanID, customerID,
				decimalToNumeric(decimal.NewFromInt(1500)), decimalToNumeric(decimal.NewFromInt(500)),
				loan.StatusActive, createdAt,
				customerID, "Maria Silva", &email, createdAt,
			)

		mockPool.ExpectQuery("SELECT.+FROM loans l.+JOIN customers c.+WHERE l.id").
			WithArgs(loanID).
			WillReturnRows(rows)

		got, err := repo.GetByIDWithCustomer(ctx, loanID)
		assert.NoError(t, err)
		assert.Equal(t, loanID, got.ID)
		assert.Equal(t, customerID, got.CustomerID)
		assert.True(t, got.OriginalAmount.Equal(decimal.NewFromInt(1500)))
		assert.True(t, got.CurrentBalance.Equal(decimal.NewFromInt(500)))
		assert.Equal(t, loan.StatusActive, got.Status)
		assert.NotNil(t, got.Customer)
		assert.Equal(t, "Maria Silva", got.Customer.FullName)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("loan missing maps to not found", func(t *testing.T) {
		mockPool.ExpectQuery("SELECT.+FROM loans l.+JOIN customers c.+WHERE l.id").
			WithArgs(loanID).
			WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByIDWithCustomer(ctx, loanID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Nil(t, got)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})
}

func TestLoanRepositoryGetAllWithCustomer(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	customerID := uuid.New()
	createdAt := time.Now().UTC()

	t.Run("returns every loan", func(t *testing.T) {
		rows := pgxmock.NewRows(loanWithCustomerRowColumns()).
			AddRow(
				uuid.New(), customerID,
				decimalToNumeric(decimal.NewFromInt(900)), decimalToNumeric(decimal.Zero),
				loan.StatusPaid, createdAt,
				customerID, "John Doe", (*string)(nil), createdAt,
			).
			AddRow(
				uuid.New(), customerID,
				decimalToNumeric(decimal.NewFromInt(1500)), decimalToNumeric(decimal.NewFromInt(500)),
				loan.StatusActive, createdAt,
				customerID, "John Doe", (*string)(nil), createdAt,
			)

		mockPool.ExpectQuery("SELECT.+FROM loans l.+ORDER BY l.created_at DESC").
			WillReturnRows(rows)

		got, err := repo.GetAllWithCustomer(ctx)
		assert.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, loan.StatusPaid, got[0].Status)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("returns an empty slice when there are no loans", func(t *testing.T) {
		mockPool.ExpectQuery("SELECT.+FROM loans l.+ORDER BY l.created_at DESC").
			WillReturnRows(pgxmock.NewRows(loanWithCustomerRowColumns()))

		got, err := repo.GetAllWithCustomer(ctx)
		assert.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})
}

func TestLoanRepositoryPaymentTx(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	loanID := uuid.New()
	customerID := uuid.New()
	createdAt := time.Now().UTC()

	t.Run("lock, update and commit", func(t *testing.T) {
		mockPool.ExpectBegin()
		mockPool.ExpectQuery("SELECT.+FROM loans.+FOR UPDATE").
			WithArgs(loanID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "customer_id", "original_amount", "current_balance", "status", "created_at"}).
				AddRow(loanID, customerID,
					decimalToNumeric(decimal.NewFromInt(1500)), decimalToNumeric(decimal.NewFromInt(1500)),
					loan.StatusActive, createdAt))
		mockPool.ExpectExec(regexp.QuoteMeta("UPDATE loans SET current_balance = $1, status = $2 WHERE id = $3")).
			WithArgs(decimalToNumeric(decimal.NewFromInt(500)), loan.StatusActive, loanID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectCommit()

		tx, err := repo.BeginTx(ctx)
		assert.NoError(t, err)

		l, err := repo.GetByIDForUpdate(ctx, tx, loanID)
		assert.NoError(t, err)
		assert.True(t, l.CurrentBalance.Equal(decimal.NewFromInt(1500)))

		_, err = l.ApplyPayment(decimal.NewFromInt(1000))
		assert.NoError(t, err)

		assert.NoError(t, repo.UpdateBalanceAndStatusInTx(ctx, tx, l))
		assert.NoError(t, repo.CommitTx(ctx, tx))
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("missing loan maps to not found and rolls back", func(t *testing.T) {
		mockPool.ExpectBegin()
		mockPool.ExpectQuery("SELECT.+FROM loans.+FOR UPDATE").
			WithArgs(loanID).
			WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectRollback()

		tx, err := repo.BeginTx(ctx)
		assert.NoError(t, err)

		l, err := repo.GetByIDForUpdate(ctx, tx, loanID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Nil(t, l)

		assert.NoError(t, repo.RollbackTx(ctx, tx))
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("zero rows affected is a database error", func(t *testing.T) {
		mockPool.ExpectBegin()
		mockPool.ExpectExec(regexp.QuoteMeta("UPDATE loans SET")).
			WithArgs(decimalToNumeric(decimal.Zero), loan.StatusPaid, loanID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mockPool.ExpectRollback()

		tx, err := repo.BeginTx(ctx)
		assert.NoError(t, err)

		l := &loan.Loan{ID: loanID, CurrentBalance: decimal.Zero, Status: loan.StatusPaid}
		err = repo.UpdateBalanceAndStatusInTx(ctx, tx, l)
		assert.ErrorIs(t, err, apperrors.ErrDatabase)

		assert.NoError(t, repo.RollbackTx(ctx, tx))
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})
}

func TestLoanRepositoryPortfolioQueries(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	t.Run("portfolio totals", func(t *testing.T) {
		mockPool.ExpectQuery("SELECT.+FROM loans").
			WillReturnRows(pgxmock.NewRows([]string{"active", "paid", "outstanding"}).
				AddRow(int64(3), int64(2), decimalToNumeric(decimal.NewFromInt(2400))))

		totals, err := repo.GetPortfolioTotals(ctx)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), totals.ActiveLoans)
		assert.Equal(t, int64(2), totals.PaidLoans)
		assert.True(t, totals.OutstandingTotal.Equal(decimal.NewFromInt(2400)))
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("status balance mismatches", func(t *testing.T) {
		mockPool.ExpectQuery("SELECT COUNT").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))

		count, err := repo.CountStatusBalanceMismatches(ctx)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), count)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})
}

func TestNumericDecimalRoundTrip(t *testing.T) {
	values := []string{"0", "1500", "499.99", "0.01", "-20.5"}
	for _, v := range values {
		d, err := decimal.NewFromString(v)
		assert.NoError(t, err)

		back, err := numericToDecimal(decimalToNumeric(d))
		assert.NoError(t, err)
		assert.True(t, back.Equal(d), "round trip mismatch for %s", v)
	}
}
