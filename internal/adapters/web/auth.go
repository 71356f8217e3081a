package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"invoice-app/internal/app"

	"github.com/golang-jwt/jwt/v5"
)

const sessionTTL = 24 * time.Hour

type authClaimsKey struct{}

// AuthClaims holds the authenticated user's identity extracted from the JWT.
type AuthClaims struct {
	UserID int
}

// authFromContext returns the auth claims stored in ctx, or nil.
func authFromContext(ctx context.Context) *AuthClaims {
	v, _ := ctx.Value(authClaimsKey{}).(*AuthClaims)
	return v
}

// jwtClaims is the JWT payload struct used for signing and parsing.
type jwtClaims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// RequireAuth is chi middleware that validates the auth_token cookie and injects
// AuthClaims into the request context. Returns 401 if the token is absent or invalid.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("auth_token")
		if err != nil {
			writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		claims := &jwtClaims{}
		token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(w, r, "invalid or expired token", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsKey{}, &AuthClaims{UserID: claims.UserID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireOnboarded is chi middleware for tenant-data routes. Accounts that
// have not completed onboarding (saved their business settings once) get a
// 403 telling the client to finish setup first. Runs after RequireAuth.
func (h *Handler) RequireOnboarded(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.svc.GetUser(r.Context(), ownerID(r))
		if err != nil {
			serviceError(w, r, err)
			return
		}
		if !user.Onboarded {
			writeError(w, r, "complete onboarding before using this endpoint", "ONBOARDING_REQUIRED", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ownerID returns the authenticated user's ID from the request context.
// RequireAuth guarantees the claims are present on protected routes.
func ownerID(r *http.Request) int {
	claims := authFromContext(r.Context())
	if claims == nil {
		return 0
	}
	return claims.UserID
}

// requestCode handles POST /api/auth/request-code. It finds or creates the
// account for the submitted identifier and issues a one-time code.
func (h *Handler) requestCode(w http.ResponseWriter, r *http.Request) {
	var req app.StartLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	challenge, err := h.svc.StartLogin(r.Context(), req.Identifier)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}

// verifyCode handles POST /api/auth/verify. On success it sets the auth_token
// cookie and returns the user profile.
func (h *Handler) verifyCode(w http.ResponseWriter, r *http.Request) {
	var req app.CompleteLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.svc.CompleteLogin(r.Context(), req.UserID, req.Code)
	if err != nil {
		serviceError(w, r, err)
		return
	}

	claims := &jwtClaims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		writeError(w, r, "token generation failed", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(sessionTTL.Seconds()),
	})
	writeJSON(w, http.StatusOK, user)
}

// logout handles POST /api/auth/logout — clears the auth cookie.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

// me handles GET /api/auth/me — returns the current user's profile.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), ownerID(r))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
