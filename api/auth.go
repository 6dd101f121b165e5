package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aluiziolira/go-books-api/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// claimsFrom returns the authenticated username and role from the request
// context, if the auth middleware ran.
func claimsFrom(ctx context.Context) (username, role string) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	if !ok {
		return "", ""
	}
	return claims.Subject, claims.Role
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

func (s *Server) issueTokens(w http.ResponseWriter, username, role string) {
	access, err := s.tokens.AccessToken(username, role)
	if err != nil {
		s.log.Error("sign access token", "error", err)
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	refresh, err := s.tokens.RefreshToken(username)
	if err != nil {
		s.log.Error("sign refresh token", "error", err)
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(s.tokens.AccessExpiry().Seconds()),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, ok := s.users.Authenticate(req.Username, req.Password)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.issueTokens(w, user.Username, user.Role)
}

// handleRefresh exchanges a valid refresh token for a fresh token pair.
// The refresh token rotates on every call.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims, err := s.tokens.Validate(req.RefreshToken, auth.TokenTypeRefresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	user, ok := s.users.Lookup(claims.Subject)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}

	s.issueTokens(w, user.Username, user.Role)
}

// requireRole validates the Bearer access token and checks its role claim.
func (s *Server) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := s.tokens.Validate(token, auth.TokenTypeAccess)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if claims.Role != role {
				writeError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
