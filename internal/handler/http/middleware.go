package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/405153-Masera/deviaje-users-and-auth/internal/auth"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/domain"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/service"
	"github.com/405153-Masera/deviaje-users-and-auth/pkg/logger"
)

type principalKey struct{}

// PrincipalFromContext returns the authenticated principal, or nil when the
// request carried no valid credentials.
func PrincipalFromContext(ctx context.Context) *domain.Principal {
	p, _ := ctx.Value(principalKey{}).(*domain.Principal)
	return p
}

func contextWithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// Authenticate resolves the Authorization header into a request-scoped
// principal. The principal is loaded fresh from the credential store on every
// request, so role changes and deactivation take effect immediately instead of
// at token expiry. The middleware never rejects: requests without a usable
// token simply continue unauthenticated, and RequireAuth / RequireAuthority
// decide what that means per route.
func Authenticate(authService *service.AuthService, codec *auth.Codec, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			subject, err := codec.ExtractSubject(token)
			if err != nil {
				log.DebugContext(r.Context(), "unusable bearer token",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			principal, err := authService.PrincipalByUsername(r.Context(), subject)
			if err != nil {
				log.DebugContext(r.Context(), "token subject has no principal",
					slog.String("subject", subject),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !codec.ValidForPrincipal(token, principal) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := contextWithPrincipal(r.Context(), principal)
			ctx = logger.WithUserID(ctx, principal.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that did not authenticate. Deactivated accounts
// are rejected even with a well-signed, unexpired token.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := PrincipalFromContext(r.Context())
		if principal == nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}
		if !principal.Active {
			writeError(w, http.StatusForbidden, "ACCOUNT_DISABLED", "account is deactivated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthority allows only principals holding at least one of the given
// role labels. Implies RequireAuth.
func RequireAuthority(authorities ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}
			if !principal.Active {
				writeError(w, http.StatusForbidden, "ACCOUNT_DISABLED", "account is deactivated")
				return
			}
			if !principal.HasAnyAuthority(authorities...) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				writeError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
