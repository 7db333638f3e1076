package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the verified caller attached to the request context.
type Identity struct {
	UID   string
	Email string
}

// TokenVerifier verifies a bearer token against the identity provider.
// The production implementation checks signature, expiry and audience via the
// Firebase Admin SDK; tests inject fakes.
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// bearerToken pulls the token out of an Authorization header. Supports
// "Bearer <token>" and a raw token value.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	fields := strings.Fields(auth)
	if len(fields) == 2 && strings.EqualFold(fields[0], "Bearer") {
		return fields[1]
	}
	return strings.TrimSpace(auth)
}

// OptionalAuth implements soft auth for submission endpoints: no header means
// anonymous, a present-but-invalid token is rejected. verifier may be nil
// (auth disabled), in which case every caller is anonymous.
func OptionalAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" || verifier == nil {
				next.ServeHTTP(w, r)
				return
			}
			ident, err := verifier.Verify(r.Context(), token)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "Unauthorized: Invalid token", err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), ident)))
		})
	}
}

// RequireAuth guards the authenticated history endpoint.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				WriteError(w, http.StatusUnauthorized, "Unauthorized: No Bearer token", "")
				return
			}
			if verifier == nil {
				WriteError(w, http.StatusUnauthorized, "Unauthorized: token verification not configured", "")
				return
			}
			ident, err := verifier.Verify(r.Context(), token)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "Unauthorized: Invalid token", err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), ident)))
		})
	}
}

func withIdentity(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// IdentityFromContext returns the verified caller, or nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *Identity {
	if ident, ok := ctx.Value(identityKey).(*Identity); ok {
		return ident
	}
	return nil
}
