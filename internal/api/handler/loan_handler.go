package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"loan-management/internal/api/handler/dto"
	"loan-management/internal/domain/loan"
	"loan-management/internal/infrastructure/idempotency"
	"loan-management/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const idempotencyKeyHeader = "Idempotency-Key"

type LoanHandler struct {
	service     loan.LoanService
	idempotency idempotency.Store
	logger      *slog.Logger
}

// NewLoanHandler wires the loan endpoints. idempotencyStore may be nil, in
// which case the Idempotency-Key header is ignored.
func NewLoanHandler(s loan.LoanService, idempotencyStore idempotency.Store, l *slog.Logger) *LoanHandler {
	if s == nil {
		panic("loan service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &LoanHandler{
		service:     s,
		idempotency: idempotencyStore,
		logger:      l.With("component", "LoanHandler"),
	}
}

func getLoanIDFromURL(r *http.Request) (uuid.UUID, error) {
	idStr := chi.URLParam(r, "loanID")
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("%w: loanID not found in URL path", apperrors.ErrInvalidArgument)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid loanID format in URL path: %s", apperrors.ErrInvalidArgument, idStr)
	}
	return id, nil
}

// CreateLoan handles POST /loans
// @Summary Create a new loan
// @Description Creates a loan for an existing customer. The full amount becomes the opening balance and the loan starts in the active state.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.CreateLoanRequest true "Loan creation request payload"
// @Success 201 {object} dto.LoanResponse "Loan successfully created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload or validation error"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [post]
// @Security BearerAuth
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid customerId format: %s", apperrors.ErrInvalidArgument, req.CustomerID))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid numeric format for amount", apperrors.ErrInvalidArgument))
		return
	}

	createdLoan, err := h.service.CreateLoan(r.Context(), customerID, amount)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrInvalidArgument) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to create loan", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := dto.NewLoanResponse(createdLoan)
	h.logger.InfoContext(r.Context(), "Loan created successfully", slog.String("loanID", resp.LoanID))
	respondJSON(w, http.StatusCreated, resp)
}

// GetLoan handles GET /loans/{loanID}
// @Summary Retrieve loan details
// @Description Retrieves a loan by its ID, including the owning customer.
// @Tags Loans
// @Produce json
// @Param loanID path string true "Loan ID (UUID)"
// @Success 200 {object} dto.LoanResponse "Loan details successfully retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID format"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	domainLoan, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to get loan", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanResponse(domainLoan))
}

// ListLoans handles GET /loans
// @Summary List loans
// @Description Retrieves all loans, newest first, each including the owning customer.
// @Tags Loans
// @Produce json
// @Success 200 {array} dto.LoanResponse "List of loans"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [get]
// @Security BearerAuth
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.ListLoans(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list loans", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := make([]dto.LoanResponse, len(loans))
	for i, l := range loans {
		resp[i] = dto.NewLoanResponse(l)
	}

	h.logger.InfoContext(r.Context(), "Loans listed successfully", slog.Int("count", len(resp)))
	respondJSON(w, http.StatusOK, resp)
}

// MakePayment handles POST /loans/{loanID}/payment
// @Summary Make a loan payment
// @Description Applies a payment against the loan balance. Settling the full balance flips the loan to paid. Supplying an Idempotency-Key header makes retries replay the original outcome.
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path string true "Loan ID (UUID)"
// @Param Idempotency-Key header string false "Client-chosen key for safe retries"
// @Param request body dto.MakePaymentRequest true "Payment request payload"
// @Success 200 {object} dto.PaymentResultResponse "Payment successfully processed"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID, payload, amount, already settled loan, or overpayment"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/payment [post]
// @Security BearerAuth
func (h *LoanHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.MakePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid numeric format for amount", apperrors.ErrInvalidArgument))
		return
	}

	idemKey := r.Header.Get(idempotencyKeyHeader)
	if h.idempotency != nil && idemKey != "" {
		if recorded, err := h.idempotency.Get(r.Context(), idemKey); err == nil {
			h.logger.InfoContext(r.Context(), "Replaying recorded payment response",
				slog.String("loanID", loanID.String()), slog.String("idempotencyKey", idemKey))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(recorded)
			return
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			h.logger.WarnContext(r.Context(), "Idempotency lookup failed, proceeding without replay", slog.Any("error", err))
		}
	}

	result, err := h.service.MakePayment(r.Context(), loanID, amount)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, apperrors.ErrNotFound) &&
			!errors.Is(err, apperrors.ErrLoanAlreadyPaid) &&
			!errors.Is(err, apperrors.ErrInvalidPaymentAmount) &&
			!errors.Is(err, apperrors.ErrPaymentExceedsBalance) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to process payment", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := dto.NewPaymentResultResponse(result)

	if h.idempotency != nil && idemKey != "" {
		if body, marshalErr := json.Marshal(resp); marshalErr == nil {
			if putErr := h.idempotency.Put(r.Context(), idemKey, body); putErr != nil {
				h.logger.WarnContext(r.Context(), "Failed to record idempotency key", slog.Any("error", putErr))
			}
		}
	}

	h.logger.InfoContext(r.Context(), "Payment processed successfully",
		slog.String("loanID", resp.LoanID), slog.String("newBalance", resp.NewBalance), slog.String("status", resp.Status))
	respondJSON(w, http.StatusOK, resp)
}
