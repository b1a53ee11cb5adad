package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	LoansCreatedTotal prometheus.Counter
	PaymentsTotal     *prometheus.CounterVec
}

type PortfolioMetrics struct {
	ActiveLoans        prometheus.Gauge
	PaidLoans          prometheus.Gauge
	OutstandingBalance prometheus.Gauge
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loan_management_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		LoansCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "loan_management_loans_created_total",
				Help: "Total number of loans successfully created.",
			},
		),
		PaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_management_payments_total",
				Help: "Total number of payment attempts by outcome.",
			},
			[]string{"status"},
		),
	}

	Portfolio = PortfolioMetrics{
		ActiveLoans: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "loan_management_portfolio_active_loans",
			Help: "Number of loans currently in active status.",
		}),
		PaidLoans: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "loan_management_portfolio_paid_loans",
			Help: "Number of loans that reached the paid status.",
		}),
		OutstandingBalance: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "loan_management_portfolio_outstanding_balance",
			Help: "Sum of outstanding balances across active loans.",
		}),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordLoanCreated() {
	Business.LoansCreatedTotal.Inc()
}

func RecordPayment(status string) {
	Business.PaymentsTotal.WithLabelValues(status).Inc()
}

func SetPortfolioGauges(active, paid int64, outstanding float64) {
	Portfolio.ActiveLoans.Set(float64(active))
	Portfolio.PaidLoans.Set(float64(paid))
	Portfolio.OutstandingBalance.Set(outstanding)
}
