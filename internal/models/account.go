package models

import "time"

// Роли учётных записей.
const (
	RoleAdmin      = "admin"
	RoleCarrier    = "carrier"
	RoleSubstitute = "substitute"
)

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleCarrier, RoleSubstitute:
		return true
	}
	return false
}

type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (a *Account) IsAdmin() bool { return a != nil && a.Role == RoleAdmin }

type AccountCreateInput struct {
	Username     string
	PasswordHash string
	Role         string
}
