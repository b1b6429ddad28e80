package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"samba-tours/internal/apperr"
	"samba-tours/internal/config"
	"samba-tours/internal/logger"
	"samba-tours/internal/models"
	"samba-tours/internal/utils"
)

func keyEqual(a, b string) bool {
	return a != "" && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// AdminMiddleware admits requests carrying a valid admin/editor token or the
// service-role key as bearer token.
func AdminMiddleware(verifier Verifier, keys config.KeyConfig, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := ExtractBearerToken(r)
			if err != nil {
				utils.WriteError(w, "Authentication required", fmt.Errorf("%v: %w", err, apperr.ErrUnauthorized))
				return
			}

			if keyEqual(raw, keys.ServiceRoleKey) {
				id := &Identity{UserID: models.RoleServiceRole, Role: models.RoleServiceRole}
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
				return
			}

			if verifier == nil {
				utils.WriteError(w, "Authentication required", fmt.Errorf("no token verifier configured: %w", apperr.ErrUnauthorized))
				return
			}
			id, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				log.LogSecurity("AUTH_FAILED", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, "Authentication failed", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole must run after AdminMiddleware. The service role passes every check.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := Role(r.Context())
			if role == models.RoleServiceRole {
				next.ServeHTTP(w, r)
				return
			}
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.WriteError(w, "Insufficient permissions", fmt.Errorf("role %q: %w", role, apperr.ErrForbidden))
		})
	}
}

// APIKeyMiddleware checks the apikey header against the anon and service-role
// keys. It does nothing unless keys.RequireAPIKey is set.
func APIKeyMiddleware(keys config.KeyConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !keys.RequireAPIKey {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("apikey")
			if !keyEqual(key, keys.AnonKey) && !keyEqual(key, keys.ServiceRoleKey) {
				utils.WriteError(w, "Invalid API key", fmt.Errorf("apikey header: %w", apperr.ErrUnauthorized))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
