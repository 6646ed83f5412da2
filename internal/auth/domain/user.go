package domain

import "time"

type User struct {
	ID            string
	Email         string // unique, stored case-sensitive
	Name          string
	PasswordHash  string     // argon2 encoded, never serialized to clients
	EmailVerified bool       // only ever transitions false -> true
	LastLoginAt   *time.Time // nil until first successful login
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
