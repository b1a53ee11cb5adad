package dto

import (
	"fmt"
	"strings"
	"time"

	"loan-management/internal/domain/customer"
)

type CreateCustomerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (r *CreateCustomerRequest) Validate() error {
	if strings.TrimSpace(r.FullName) == "" {
		return fmt.Errorf("fullName cannot be empty")
	}
	return nil
}

type CustomerResponse struct {
	CustomerID string    `json:"customerId"`
	FullName   string    `json:"fullName"`
	Email      *string   `json:"email,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func NewCustomerResponse(cust *customer.Customer) CustomerResponse {
	if cust == nil {
		return CustomerResponse{}
	}

	return CustomerResponse{
		CustomerID: cust.ID.String(),
		FullName:   cust.FullName,
		Email:      cust.Email,
		CreatedAt:  cust.CreatedAt,
	}
}
