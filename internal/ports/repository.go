package ports

import (
	"context"

	"shopify-reorder/internal/domain"
)

// SessionStore keeps connected-shop sessions. Get returns (nil, nil) for an
// unknown or expired id.
type SessionStore interface {
	SaveSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// StateStore keeps OAuth nonces between the authorize redirect and the
// callback. TakeState deletes the state as it reads it so each nonce is
// accepted at most once; it returns (nil, nil) when the state is unknown.
type StateStore interface {
	SaveState(ctx context.Context, state *domain.OAuthState) error
	TakeState(ctx context.Context, state string) (*domain.OAuthState, error)
}

// EncryptionService seals access tokens before they reach the store.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
