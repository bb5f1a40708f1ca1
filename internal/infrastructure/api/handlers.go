package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"shopify-reorder/internal/application"
	"shopify-reorder/internal/domain"

	"github.com/rs/zerolog/hlog"
)

// SessionCookieName holds the opaque session id.
const SessionCookieName = "shop_session"

const maxBodyBytes = 1 << 20

// HandlerConfig configures the browser-facing endpoints.
type HandlerConfig struct {
	// SuccessURL is where the browser lands after a completed install.
	SuccessURL    string
	SecureCookies bool
	SessionTTL    time.Duration
}

// Handler serves the OAuth, orders and reorder endpoints.
type Handler struct {
	auth    *application.AuthService
	shopify *application.ShopifyService
	cfg     HandlerConfig
}

// NewHandler creates the HTTP handlers
func NewHandler(auth *application.AuthService, shopify *application.ShopifyService, cfg HandlerConfig) *Handler {
	return &Handler{auth: auth, shopify: shopify, cfg: cfg}
}

// BeginAuth redirects the merchant to the Shopify consent screen.
//
//	GET /api/auth?shop=
func (h *Handler) BeginAuth(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.auth.BeginAuth(r.Context(), r.URL.Query().Get("shop"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// AuthCallback completes the install and hands the browser a session.
//
//	GET /api/auth/callback?shop&code&state&hmac&timestamp
func (h *Handler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	session, err := h.auth.CompleteAuth(r.Context(), application.CallbackParams{
		Shop:  q.Get("shop"),
		Code:  q.Get("code"),
		State: q.Get("state"),
		URL:   r.URL,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(h.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	params := url.Values{}
	params.Set("shop", session.Shop)
	if h.auth.LegacyTokenParams() {
		params.Set("accessToken", session.AccessToken)
	}

	hlog.FromRequest(r).Info().Str("shop", session.Shop).Msg("Shop connected")
	http.Redirect(w, r, h.cfg.SuccessURL+"?"+params.Encode(), http.StatusFound)
}

// OrdersResponse wraps the order listing.
type OrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

// ListOrders returns the shop's recent orders.
//
//	GET /api/orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	creds, err := h.auth.Credentials(r.Context(), sessionID(r), q.Get("shop"), q.Get("accessToken"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	orders, err := h.shopify.GetOrders(r.Context(), creds)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, OrdersResponse{Orders: orders})
}

// ReorderRequest is the body of POST /api/reorder. Shop and AccessToken are
// only read when legacy token parameters are enabled.
type ReorderRequest struct {
	Shop        string                   `json:"shop,omitempty"`
	AccessToken string                   `json:"accessToken,omitempty"`
	LineItems   []domain.ReorderLineItem `json:"lineItems"`
}

// Reorder places a new pending order and relays Shopify's answer.
//
//	POST /api/reorder
func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, r, domain.NewValidationError("Invalid request body"))
		return
	}

	creds, err := h.auth.Credentials(r.Context(), sessionID(r), req.Shop, req.AccessToken)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.shopify.Reorder(r.Context(), creds, req.LineItems)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(created)
}

// SessionResponse describes the connected shop.
type SessionResponse struct {
	Shop   string   `json:"shop"`
	Scopes []string `json:"scopes"`
}

// Session reports which shop the browser is connected to.
//
//	GET /api/session
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	session, err := h.auth.Session(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	scopes := session.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	writeJSON(w, http.StatusOK, SessionResponse{Shop: session.Shop, Scopes: scopes})
}

// Logout drops the session and clears the cookie.
//
//	POST /api/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), sessionID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func sessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
