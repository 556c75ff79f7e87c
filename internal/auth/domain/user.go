package domain

import (
	"strings"
	"time"
)

// DefaultRole is granted to every self-registered user.
const DefaultRole = "user"

type User struct {
	ID           string
	Email        string // lower-cased, unique
	FirstName    string
	LastName     string
	PasswordHash string // bcrypt encoded
	Roles        []string
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the outward view of a User. It never carries the password hash.
type PublicUser struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Roles       []string   `json:"roles"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (u User) Public() PublicUser {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return PublicUser{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Roles:       roles,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// NormalizeEmail is the single case-folding rule used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
