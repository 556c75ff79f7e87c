package domain

import "time"

// RefreshToken models the stored refresh token record.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // deterministic fingerprint (base64url SHA-256) of the signed token
	ExpiresAt time.Time
	Revoked   bool
	RevokedAt *time.Time
	UserAgent string
	IPAddress string
	CreatedAt time.Time
}

// Expired reports whether the record is past its expiry at now.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Active reports whether the record can still be exchanged at now.
func (t RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && !t.Expired(now)
}

// DeviceContext is the provenance recorded alongside a refresh token.
type DeviceContext struct {
	UserAgent string
	IPAddress string
}

// TokenPair is what a refresh returns.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // seconds until the access token expires
}

// AuthResult is what register and login return.
type AuthResult struct {
	TokenPair
	User PublicUser `json:"user"`
}

// Session is the outward view of a live refresh token record.
type Session struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (t RefreshToken) Session() Session {
	return Session{
		ID:        t.ID,
		UserAgent: t.UserAgent,
		IPAddress: t.IPAddress,
		CreatedAt: t.CreatedAt,
		ExpiresAt: t.ExpiresAt,
	}
}
