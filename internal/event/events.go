package event

import (
	"time"

	"github.com/google/uuid"
)

type LoanEventPayload struct {
	LoanID         uuid.UUID `json:"loanId"`
	CustomerID     uuid.UUID `json:"customerId"`
	OriginalAmount string    `json:"originalAmount"`
	CurrentBalance string    `json:"currentBalance"`
	Status         string    `json:"status"`
}

type LoanCreatedEvent struct {
	Timestamp time.Time        `json:"timestamp"`
	Payload   LoanEventPayload `json:"payload"`
}

type PaymentReceivedEvent struct {
	Timestamp       time.Time `json:"timestamp"`
	LoanID          uuid.UUID `json:"loanId"`
	Amount          string    `json:"amount"`
	PreviousBalance string    `json:"previousBalance"`
	NewBalance      string    `json:"newBalance"`
	Status          string    `json:"status"`
}

type LoanSettledEvent struct {
	Timestamp time.Time `json:"timestamp"`
	LoanID    uuid.UUID `json:"loanId"`
}
