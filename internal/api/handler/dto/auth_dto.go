package dto

import (
	"fmt"
	"strings"
)

type RegisterRequest struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if strings.TrimSpace(r.PasswordHash) == "" {
		return fmt.Errorf("passwordHash cannot be empty")
	}
	return nil
}

type LoginRequest struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if strings.TrimSpace(r.PasswordHash) == "" {
		return fmt.Errorf("passwordHash cannot be empty")
	}
	return nil
}

type TokenResponse struct {
	Token string `json:"token"`
}
