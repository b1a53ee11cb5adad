package customer

import (
	"time"

	"github.com/google/uuid"
)

// Customer owns zero or more loans. Records are immutable after creation and
// never deleted.
type Customer struct {
	ID        uuid.UUID
	FullName  string
	Email     *string
	CreatedAt time.Time
}
