package customer

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Save(ctx context.Context, cust *Customer) error
	FindByID(ctx context.Context, customerID uuid.UUID) (*Customer, error)
	FindAll(ctx context.Context) ([]*Customer, error)
}
