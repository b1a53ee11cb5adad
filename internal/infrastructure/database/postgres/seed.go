package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loan-management/internal/domain/customer"
	"loan-management/internal/domain/loan"
	"loan-management/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type seedLoan struct {
	originalAmount decimal.Decimal
	currentBalance decimal.Decimal
	status         loan.LoanStatus
}

type seedCustomer struct {
	fullName string
	email    string
	loans    []seedLoan
}

var seedCustomers = []seedCustomer{
	{
		fullName: "Maria Silva",
		email:    "maria.silva@example.com",
		loans: []seedLoan{
			{originalAmount: decimal.NewFromInt(1500), currentBalance: decimal.NewFromInt(500), status: loan.StatusActive},
		},
	},
	{
		fullName: "John Doe",
		email:    "john.doe@example.com",
		loans: []seedLoan{
			{originalAmount: decimal.NewFromInt(900), currentBalance: decimal.Zero, status: loan.StatusPaid},
		},
	},
}

// SeedDemoData inserts a small demo portfolio. It is a no-op when any
// customer already exists, so restarts do not duplicate data.
func SeedDemoData(ctx context.Context, db DBPool, logger *slog.Logger) error {
	seedLogger := logger.With("component", "SeedDemoData")

	var count int64
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&count); err != nil {
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if count > 0 {
		seedLogger.InfoContext(ctx, "Customers already present, skipping seed", "count", count)
		return nil
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	for i, sc := range seedCustomers {
		cust := customer.Customer{
			ID:       uuid.New(),
			FullName: sc.fullName,
			// Stagger timestamps so newest-first listings stay deterministic.
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		email := sc.email
		cust.Email = &email

		_, err = tx.Exec(ctx,
			`INSERT INTO customers (id, full_name, email, created_at) VALUES ($1, $2, $3, $4)`,
			cust.ID, cust.FullName, cust.Email, cust.CreatedAt,
		)
		if err != nil {
			return translateDBError(err, seedLogger)
		}

		for _, sl := range sc.loans {
			_, err = tx.Exec(ctx,
				`INSERT INTO loans (id, customer_id, original_amount, current_balance, status, created_at)
                 VALUES ($1, $2, $3, $4, $5, $6)`,
				uuid.New(), cust.ID,
				decimalToNumeric(sl.originalAmount), decimalToNumeric(sl.currentBalance),
				sl.status, cust.CreatedAt,
			)
			if err != nil {
				return translateDBError(err, seedLogger)
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	seedLogger.InfoContext(ctx, "Demo data seeded", "customers", len(seedCustomers))
	return nil
}
