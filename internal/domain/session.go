package domain

import "time"

// Session is the server-side record of a connected shop. The browser only
// ever holds the opaque ID.
type Session struct {
	ID          string    `json:"id"`
	Shop        string    `json:"shop"`
	AccessToken string    `json:"access_token"`
	Scopes      []string  `json:"scopes"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// OAuthState is the nonce issued when an authorization starts. It is bound to
// the shop that requested it and may be consumed once.
type OAuthState struct {
	State     string    `json:"state"`
	Shop      string    `json:"shop"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Credentials are what an Admin API call needs.
type Credentials struct {
	Shop        string
	AccessToken string
}
