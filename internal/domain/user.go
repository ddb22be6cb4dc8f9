package domain

import "time"

// Role distinguishes providers, who publish activities, from consumers, who enroll.
type Role string

const (
	RoleProvider Role = "provider"
	RoleConsumer Role = "consumer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleProvider || r == RoleConsumer
}

// User is a registered account. PasswordHash never leaves the service.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}
