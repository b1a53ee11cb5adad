package user

import (
	"time"

	"github.com/google/uuid"
)

// User is an authentication account. The password hash is produced by the
// client before it reaches the server; the server never sees a plaintext
// password.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
