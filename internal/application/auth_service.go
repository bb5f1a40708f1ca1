package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"shopify-reorder/internal/domain"
	"shopify-reorder/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthConfig holds the OAuth settings of the app.
type AuthConfig struct {
	// Host is the public base URL of this service, e.g. https://app.example.com.
	Host              string
	Scopes            []string
	StateTTL          time.Duration
	SessionTTL        time.Duration
	VerifyHMAC        bool
	LegacyTokenParams bool
}

// AuthService runs the OAuth install flow and owns connected-shop sessions.
type AuthService struct {
	client        ports.ShopifyClient
	states        ports.StateStore
	sessions      ports.SessionStore
	encryptionSvc ports.EncryptionService
	cfg           AuthConfig
	logger        zerolog.Logger
	now           func() time.Time
}

// NewAuthService creates a new OAuth application service
func NewAuthService(
	client ports.ShopifyClient,
	states ports.StateStore,
	sessions ports.SessionStore,
	encryptionSvc ports.EncryptionService,
	cfg AuthConfig,
	logger zerolog.Logger,
) *AuthService {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 10 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	return &AuthService{
		client:        client,
		states:        states,
		sessions:      sessions,
		encryptionSvc: encryptionSvc,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// RedirectURI is where Shopify sends the merchant back after consent.
func (s *AuthService) RedirectURI() string {
	return s.cfg.Host + "/api/auth/callback"
}

// LegacyTokenParams reports whether shop/accessToken request parameters are
// accepted in place of a session.
func (s *AuthService) LegacyTokenParams() bool {
	return s.cfg.LegacyTokenParams
}

// BeginAuth issues a state for shop and returns the Shopify consent URL.
func (s *AuthService) BeginAuth(ctx context.Context, shopParam string) (string, error) {
	shop, err := domain.ParseShopDomain(shopParam)
	if err != nil {
		return "", err
	}

	// Generate random state for CSRF protection
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return "", domain.NewInternalError("Failed to start authentication", fmt.Errorf("failed to generate state: %w", err))
	}
	state := &domain.OAuthState{
		State:     hex.EncodeToString(stateBytes),
		Shop:      shop,
		ExpiresAt: s.now().Add(s.cfg.StateTTL),
	}
	if err := s.states.SaveState(ctx, state); err != nil {
		return "", domain.NewInternalError("Failed to start authentication", fmt.Errorf("failed to save state: %w", err))
	}

	authURL, err := s.client.AuthorizeURL(shop, s.cfg.Scopes, s.RedirectURI(), state.State)
	if err != nil {
		return "", domain.NewInternalError("Failed to start authentication", err)
	}

	s.logger.Info().
		Str("shop", shop).
		Str("redirect_uri", s.RedirectURI()).
		Msg("Starting OAuth flow")

	return authURL, nil
}

// CallbackParams is what Shopify sends to the callback URL.
type CallbackParams struct {
	Shop  string
	Code  string
	State string
	// URL is the full callback URL, used for hmac verification.
	URL *url.URL
}

// CompleteAuth validates the callback, exchanges the code and opens a
// session. The returned session carries the plaintext token; the stored copy
// is encrypted.
func (s *AuthService) CompleteAuth(ctx context.Context, p CallbackParams) (*domain.Session, error) {
	if p.Shop == "" || p.Code == "" {
		return nil, domain.NewValidationError("Missing required parameters")
	}
	if p.State == "" {
		return nil, domain.NewValidationError("Missing state parameter")
	}
	shop, err := domain.ParseShopDomain(p.Shop)
	if err != nil {
		return nil, err
	}

	if s.cfg.VerifyHMAC {
		if p.URL == nil {
			return nil, domain.NewValidationError("Invalid hmac")
		}
		if err := s.client.VerifyCallback(p.URL); err != nil {
			s.logger.Warn().Err(err).Str("shop", shop).Msg("Rejected OAuth callback")
			return nil, domain.NewValidationError("Invalid hmac")
		}
	}

	stored, err := s.states.TakeState(ctx, p.State)
	if err != nil {
		return nil, domain.NewInternalError("Authentication failed", fmt.Errorf("failed to load state: %w", err))
	}
	if stored == nil || stored.Shop != shop || s.now().After(stored.ExpiresAt) {
		return nil, domain.NewValidationError("invalid or expired state")
	}

	token, err := s.client.ExchangeToken(ctx, shop, p.Code)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to exchange token")
		return nil, err
	}

	encryptedToken, err := s.encryptionSvc.Encrypt(token.Token)
	if err != nil {
		return nil, domain.NewInternalError("Authentication failed", fmt.Errorf("failed to encrypt access token: %w", err))
	}

	now := s.now()
	session := &domain.Session{
		ID:          uuid.NewString(),
		Shop:        shop,
		AccessToken: encryptedToken,
		Scopes:      token.Scopes,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, domain.NewInternalError("Authentication failed", fmt.Errorf("failed to save session: %w", err))
	}

	s.logger.Info().
		Str("shop", shop).
		Strs("scopes", token.Scopes).
		Msg("OAuth token exchange completed")

	out := *session
	out.AccessToken = token.Token
	return &out, nil
}

// Session returns the live session for id with its token decrypted.
func (s *AuthService) Session(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, domain.NewUnauthorizedError("Not connected")
	}
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, domain.NewInternalError("Failed to load session", err)
	}
	if session == nil || session.Expired(s.now()) {
		return nil, domain.NewUnauthorizedError("Not connected")
	}

	token, err := s.encryptionSvc.Decrypt(session.AccessToken)
	if err != nil {
		// Key rotated or process restarted with a fresh key.
		s.logger.Warn().Err(err).Str("shop", session.Shop).Msg("Failed to decrypt session token")
		return nil, domain.NewUnauthorizedError("Not connected")
	}
	session.AccessToken = token
	return session, nil
}

// Logout forgets the session. Unknown ids are not an error.
func (s *AuthService) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, id); err != nil {
		return domain.NewInternalError("Failed to log out", err)
	}
	return nil
}

// Credentials resolves the shop and token for an Admin API call from the
// session, falling back to explicit parameters when legacy mode is on.
func (s *AuthService) Credentials(ctx context.Context, sessionID, shop, accessToken string) (domain.Credentials, error) {
	if sessionID != "" {
		session, err := s.Session(ctx, sessionID)
		if err == nil {
			return domain.Credentials{Shop: session.Shop, AccessToken: session.AccessToken}, nil
		}
		if domain.KindOf(err) != domain.KindUnauthorized {
			return domain.Credentials{}, err
		}
	}

	if s.cfg.LegacyTokenParams && shop != "" && accessToken != "" {
		normalized, err := domain.ParseShopDomain(shop)
		if err != nil {
			return domain.Credentials{}, err
		}
		return domain.Credentials{Shop: normalized, AccessToken: accessToken}, nil
	}
	return domain.Credentials{}, domain.NewValidationError("Missing required parameters")
}
