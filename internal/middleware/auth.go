// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"masterannonce/internal/apierror"
	"masterannonce/internal/auth"
	"masterannonce/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// PrincipalKey is the context key for the authenticated caller.
	PrincipalKey contextKey = "principal"
)

// TokenVerifier checks a bearer token against the credential store.
type TokenVerifier interface {
	Verify(ctx context.Context, token string, kind session.Kind) (*auth.Principal, error)
}

// Authenticate resolves the Bearer access token, if any, and stores the
// caller in the request context. A missing or unusable token leaves the
// request anonymous; RequireAuth and RequireAdmin answer 401 on the routes
// that need a caller.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				slog.Debug("malformed authorization header", "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			p, err := verifier.Verify(r.Context(), token, session.KindAccess)
			if err != nil {
				slog.Debug("bearer token rejected", "error", err, "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
// Must be applied after Authenticate in the middleware chain.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFromCtx(r.Context()) == nil {
			apierror.Unauthorized(w, "Authentication required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAdmin returns 401 for anonymous callers and 403 if the caller is
// not an admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFromCtx(r.Context())
		if p == nil {
			apierror.Unauthorized(w, "Authentication required")
			return
		}
		if !p.IsAdmin() {
			apierror.Forbidden(w, "Access denied: administrator role required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// WithPrincipal returns a context carrying the authenticated caller.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFromCtx extracts the caller from the request context.
// Returns nil for anonymous requests.
func PrincipalFromCtx(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(PrincipalKey).(*auth.Principal)
	return p
}
