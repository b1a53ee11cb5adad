package dto

import (
	"fmt"
	"strings"
	"time"

	"loan-management/internal/domain/loan"
)

type CreateLoanRequest struct {
	CustomerID string `json:"customerId"`
	Amount     string `json:"amount"`
}

func (r *CreateLoanRequest) Validate() error {
	if strings.TrimSpace(r.CustomerID) == "" {
		return fmt.Errorf("customerId cannot be empty")
	}
	if strings.TrimSpace(r.Amount) == "" {
		return fmt.Errorf("amount cannot be empty")
	}
	return nil
}

type MakePaymentRequest struct {
	Amount string `json:"amount"`
}

func (r *MakePaymentRequest) Validate() error {
	if strings.TrimSpace(r.Amount) == "" {
		return fmt.Errorf("amount cannot be empty")
	}
	return nil
}

type LoanResponse struct {
	LoanID         string            `json:"loanId"`
	Customer       *CustomerResponse `json:"customer,omitempty"`
	OriginalAmount string            `json:"originalAmount"`
	CurrentBalance string            `json:"currentBalance"`
	Status         string            `json:"status"`
	CreatedAt      time.Time         `json:"createdAt"`
}

func NewLoanResponse(l *loan.Loan) LoanResponse {
	if l == nil {
		return LoanResponse{}
	}

	resp := LoanResponse{
		LoanID:         l.ID.String(),
		OriginalAmount: l.OriginalAmount.StringFixed(2),
		CurrentBalance: l.CurrentBalance.StringFixed(2),
		Status:         string(l.Status),
		CreatedAt:      l.CreatedAt,
	}
	if l.Customer != nil {
		cust := NewCustomerResponse(l.Customer)
		resp.Customer = &cust
	}
	return resp
}

type PaymentResultResponse struct {
	LoanID          string `json:"loanId"`
	PreviousBalance string `json:"previousBalance"`
	NewBalance      string `json:"newBalance"`
	Status          string `json:"status"`
}

func NewPaymentResultResponse(res *loan.PaymentResult) PaymentResultResponse {
	if res == nil {
		return PaymentResultResponse{}
	}

	return PaymentResultResponse{
		LoanID:          res.LoanID.String(),
		PreviousBalance: res.PreviousBalance.StringFixed(2),
		NewBalance:      res.NewBalance.StringFixed(2),
		Status:          string(res.Status),
	}
}
