package loan

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PortfolioTotals is an aggregate view over all loans, used by the nightly
// snapshot job and the gauges it feeds.
type PortfolioTotals struct {
	ActiveLoans      int64
	PaidLoans        int64
	OutstandingTotal decimal.Decimal
}

// Repository is the persistence contract of the loan domain. The ForUpdate
// variant must lock the row for the lifetime of the surrounding transaction
// so that concurrent payments against the same loan serialize.
type Repository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CommitTx(ctx context.Context, tx pgx.Tx) error
	RollbackTx(ctx context.Context, tx pgx.Tx) error

	CreateLoan(ctx context.Context, l *Loan) error
	GetByIDWithCustomer(ctx context.Context, loanID uuid.UUID) (*Loan, error)
	GetAllWithCustomer(ctx context.Context) ([]*Loan, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (*Loan, error)
	UpdateBalanceAndStatusInTx(ctx context.Context, tx pgx.Tx, l *Loan) error

	GetPortfolioTotals(ctx context.Context) (PortfolioTotals, error)
	CountStatusBalanceMismatches(ctx context.Context) (int64, error)
}
