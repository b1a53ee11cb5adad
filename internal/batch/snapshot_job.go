package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loan-management/internal/domain/loan"
	"loan-management/internal/infrastructure/monitoring"
)

// PortfolioSnapshotJob refreshes the portfolio gauges and audits that every
// settled loan carries a zero balance (and no active loan does).
type PortfolioSnapshotJob struct {
	loanRepo loan.Repository
	logger   *slog.Logger
}

func NewPortfolioSnapshotJob(loanRepo loan.Repository, logger *slog.Logger) *PortfolioSnapshotJob {
	if loanRepo == nil || logger == nil {
		panic("PortfolioSnapshotJob dependencies cannot be nil")
	}
	return &PortfolioSnapshotJob{
		loanRepo: loanRepo,
		logger:   logger.With("job", "PortfolioSnapshot"),
	}
}

func (j *PortfolioSnapshotJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting portfolio snapshot job.")

	totals, err := j.loanRepo.GetPortfolioTotals(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to get portfolio totals, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to get portfolio totals: %w", err)
	}

	outstanding, _ := totals.OutstandingTotal.Float64()
	monitoring.SetPortfolioGauges(totals.ActiveLoans, totals.PaidLoans, outstanding)

	mismatches, err := j.loanRepo.CountStatusBalanceMismatches(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to audit loan status/balance consistency.", slog.Any("error", err))
		return fmt.Errorf("cannot audit loans: %w", err)
	}

	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int64("active_loans", totals.ActiveLoans),
		slog.Int64("paid_loans", totals.PaidLoans),
		slog.String("outstanding_total", totals.OutstandingTotal.StringFixed(2)),
		slog.Int64("status_balance_mismatches", mismatches),
	)
	if mismatches > 0 {
		summaryLog.WarnContext(ctx, "Portfolio snapshot job found loans whose status disagrees with their balance.")
		return fmt.Errorf("portfolio audit found %d inconsistent loans", mismatches)
	}

	summaryLog.InfoContext(ctx, "Portfolio snapshot job finished successfully.")
	return nil
}
