package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-management/internal/domain/customer"
	"loan-management/internal/domain/loan"
	"loan-management/internal/infrastructure/monitoring"
	"loan-management/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var errMsgFormat = "%w: %w"

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

func (r *LoanRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *LoanRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) CreateLoan(ctx context.Context, l *loan.Loan) error {
	sql := `
        INSERT INTO loans (id, customer_id, original_amount, current_balance, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`

	status := "success"
	startTime := time.Now()
	_, err := r.db.Exec(ctx, sql,
		l.ID, l.CustomerID, decimalToNumeric(l.OriginalAmount), decimalToNumeric(l.CurrentBalance),
		l.Status, l.CreatedAt,
	)
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("CreateLoan", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", "error", err)
		return translateDBError(err, r.logger)
	}

	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", l.ID.String())
	return nil
}

const loanWithCustomerColumns = `
        l.id, l.customer_id, l.original_amount, l.current_balance, l.status, l.created_at,
        c.id, c.full_name, c.email, c.created_at`

func (r *LoanRepository) GetByIDWithCustomer(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error) {
	query := `
        SELECT` + loanWithCustomerColumns + `
        FROM loans l
        JOIN customers c ON c.id = l.customer_id
        WHERE l.id = $1`

	status := "success"
	startTime := time.Now()
	l, err := scanLoanWithCustomer(r.db.QueryRow(ctx, query, loanID))
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetByIDWithCustomer", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID.String())
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", "loan_id", loanID.String(), "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return l, nil
}

func (r *LoanRepository) GetAllWithCustomer(ctx context.Context) ([]*loan.Loan, error) {
	query := `
        SELECT` + loanWithCustomerColumns + `
        FROM loans l
        JOIN customers c ON c.id = l.customer_id
        ORDER BY l.created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loans", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loans := make([]*loan.Loan, 0)
	for rows.Next() {
		l, err := scanLoanWithCustomer(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan loan row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		loans = append(loans, l)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating loan rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return loans, nil
}

// GetByIDForUpdate loads the loan inside the given transaction and holds a
// row lock until the transaction ends.
func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (*loan.Loan, error) {
	query := `
        SELECT id, customer_id, original_amount, current_balance, status, created_at
        FROM loans
        WHERE id = $1
        FOR UPDATE`

	var (
		l              loan.Loan
		originalAmount pgtype.Numeric
		currentBalance pgtype.Numeric
	)
	err := tx.QueryRow(ctx, query, loanID).Scan(
		&l.ID, &l.CustomerID, &originalAmount, &currentBalance, &l.Status, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found for update", "loan_id", loanID.String())
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to find/lock loan", "loan_id", loanID.String(), "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	if l.OriginalAmount, err = numericToDecimal(originalAmount); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if l.CurrentBalance, err = numericToDecimal(currentBalance); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &l, nil
}

func (r *LoanRepository) UpdateBalanceAndStatusInTx(ctx context.Context, tx pgx.Tx, l *loan.Loan) error {
	sql := `UPDATE loans SET current_balance = $1, status = $2 WHERE id = $3`

	cmdTag, err := tx.Exec(ctx, sql, decimalToNumeric(l.CurrentBalance), l.Status, l.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan balance", "loan_id", l.ID.String(), "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Loan balance update affected zero rows", "loan_id", l.ID.String())
		return fmt.Errorf("%w: loan balance update affected zero rows", apperrors.ErrDatabase)
	}

	r.logger.InfoContext(ctx, "Loan balance updated in DB", "loan_id", l.ID.String(), "new_status", string(l.Status))
	return nil
}

func (r *LoanRepository) GetPortfolioTotals(ctx context.Context) (loan.PortfolioTotals, error) {
	query := `
        SELECT
            COUNT(*) FILTER (WHERE status = 'active'),
            COUNT(*) FILTER (WHERE status = 'paid'),
            COALESCE(SUM(current_balance) FILTER (WHERE status = 'active'), 0)
        FROM loans`

	var (
		totals      loan.PortfolioTotals
		outstanding pgtype.Numeric
	)
	err := r.db.QueryRow(ctx, query).Scan(&totals.ActiveLoans, &totals.PaidLoans, &outstanding)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query portfolio totals", "error", err)
		return loan.PortfolioTotals{}, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	if totals.OutstandingTotal, err = numericToDecimal(outstanding); err != nil {
		return loan.PortfolioTotals{}, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return totals, nil
}

func (r *LoanRepository) CountStatusBalanceMismatches(ctx context.Context) (int64, error) {
	query := `
        SELECT COUNT(*)
        FROM loans
        WHERE (status = 'paid' AND current_balance <> 0)
           OR (status = 'active' AND current_balance = 0)`

	var count int64
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		r.logger.ErrorContext(ctx, "Failed to count status/balance mismatches", "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return count, nil
}

func scanLoanWithCustomer(row pgx.Row) (*loan.Loan, error) {
	var (
		l              loan.Loan
		cust           customer.Customer
		originalAmount pgtype.Numeric
		currentBalance pgtype.Numeric
	)
	err := row.Scan(
		&l.ID, &l.CustomerID, &originalAmount, &currentBalance, &l.Status, &l.CreatedAt,
		&cust.ID, &cust.FullName, &cust.Email, &cust.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if l.OriginalAmount, err = numericToDecimal(originalAmount); err != nil {
		return nil, err
	}
	if l.CurrentBalance, err = numericToDecimal(currentBalance); err != nil {
		return nil, err
	}
	l.Customer = &cust
	return &l, nil
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Zero, nil
	}
	if n.NaN {
		return decimal.Zero, fmt.Errorf("numeric value is NaN")
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}

func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		}
		if pgErr.Code == "23503" {
			contextLogger.Warn("Database foreign key violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrNotFound, pgErr.ConstraintName)
		}

		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return fmt.Errorf("%w: db error code %s", apperrors.ErrDatabase, pgErr.Code)
	}

	contextLogger.Error("Generic database error", "error", err)
	return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}
