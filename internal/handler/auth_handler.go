package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"net/http"

	"go-wiki-cms/internal/auth"
	"go-wiki-cms/internal/logger"
	"go-wiki-cms/internal/middleware"
	"go-wiki-cms/internal/session"
)

// RoleResolver maps an authenticated identity to its authoring role.
type RoleResolver interface {
	GetRole(ctx context.Context, userID string) (string, error)
}

// AuthHandler drives the OIDC login flow and binds the resulting identity
// and role to the session.
type AuthHandler struct {
	auth     *auth.Authenticator
	sessions session.Manager
	roles    RoleResolver
	log      logger.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(a *auth.Authenticator, sm session.Manager, roles RoleResolver, log logger.Logger) *AuthHandler {
	return &AuthHandler{auth: a, sessions: sm, roles: roles, log: log}
}

// handleLogin redirects the user to the OIDC provider. A random state
// value is kept in the session for CSRF protection; the optional remember
// flag extends the session cookie past the browser session.
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randString(16)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.sessions.Put(r.Context(), "oauth_state", state)
	if r.URL.Query().Get("remember") == "true" {
		h.sessions.Put(r.Context(), "remember_me", "true")
	}
	http.Redirect(w, r, h.auth.AuthCodeURL(state), http.StatusFound)
}

// handleCallback completes the OIDC flow: state check, code exchange, ID
// token verification, then role lookup. Subject and role land in the
// session; everything downstream reads them from there.
func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	expectedState := h.sessions.PopString(r.Context(), "oauth_state")
	if expectedState == "" || r.URL.Query().Get("state") != expectedState {
		http.Error(w, "state did not match", http.StatusBadRequest)
		return
	}

	oauth2Token, err := h.auth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.log.Error(err, "Failed to exchange authorization code")
		http.Error(w, "Failed to exchange token", http.StatusInternalServerError)
		return
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "No id_token field in oauth2 token", http.StatusInternalServerError)
		return
	}

	idToken, err := h.auth.IDTokenVerifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		h.log.Error(err, "Failed to verify ID token")
		http.Error(w, "Failed to verify ID Token", http.StatusInternalServerError)
		return
	}

	role, err := h.roles.GetRole(r.Context(), idToken.Subject)
	if err != nil {
		h.log.Error(err, "Failed to resolve user role")
		http.Error(w, "Failed to resolve role", http.StatusInternalServerError)
		return
	}

	h.sessions.Put(r.Context(), middleware.SessionUserKey, idToken.Subject)
	h.sessions.Put(r.Context(), middleware.SessionRoleKey, role)
	if h.sessions.PopString(r.Context(), "remember_me") == "true" {
		h.sessions.RememberMe(r.Context(), true)
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLogout destroys the session and returns to the welcome page.
func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context()); err != nil {
		h.log.Error(err, "Failed to destroy session")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// randString generates a URL-safe random string for the state parameter.
func randString(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
