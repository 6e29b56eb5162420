package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator defines the interface for validating bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims the gateway expects from the validator.
// ClientID is the caller's functional identifier (for competent authorities
// this is the authority id, for platforms the platform id).
type JWTClaims struct {
	ClientID   string
	ClientName string
	Roles      []string
}

// Context keys for storing authenticated caller information.
type contextKeyClientID struct{}
type contextKeyClientName struct{}
type contextKeyRoles struct{}

// Exported for use in handlers and tests.
var (
	ContextKeyClientID   = contextKeyClientID{}
	ContextKeyClientName = contextKeyClientName{}
	ContextKeyRoles      = contextKeyRoles{}
)

// GetClientID retrieves the authenticated caller's functional id from the context.
func GetClientID(ctx context.Context) string {
	clientID, ok := ctx.Value(ContextKeyClientID).(string)
	if !ok {
		return ""
	}
	return clientID
}

// GetClientName retrieves the authenticated caller's display name from the context.
func GetClientName(ctx context.Context) string {
	clientName, ok := ctx.Value(ContextKeyClientName).(string)
	if !ok {
		return ""
	}
	return clientName
}

// GetRoles retrieves the authenticated caller's roles from the context.
func GetRoles(ctx context.Context) []string {
	roles, ok := ctx.Value(ContextKeyRoles).([]string)
	if !ok {
		return nil
	}
	return roles
}

// HasRole reports whether the context carries the given role.
func HasRole(ctx context.Context, role string) bool {
	for _, r := range GetRoles(ctx) {
		if r == role {
			return true
		}
	}
	return false
}

// RequireAuth validates the Authorization bearer token and stores the caller's
// claims in the request context. Requests without a valid token get 401.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeAuthError(w, http.StatusUnauthorized, "Not authenticated", "authentication_error")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeAuthError(w, http.StatusUnauthorized, "Not authenticated", "authentication_error")
				return
			}

			ctx = context.WithValue(ctx, ContextKeyClientID, claims.ClientID)
			ctx = context.WithValue(ctx, ContextKeyClientName, claims.ClientName)
			ctx = context.WithValue(ctx, ContextKeyRoles, claims.Roles)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles rejects requests whose caller lacks any of the given roles.
// Must run after RequireAuth.
func RequireRoles(logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, role := range roles {
				if !HasRole(ctx, role) {
					logger.WarnContext(ctx, "forbidden - missing role",
						"role", role,
						"client_id", GetClientID(ctx),
						"request_id", GetRequestID(ctx),
					)
					writeAuthError(w, http.StatusForbidden, "Not enough permissions", "authorization_error")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, msg, errType string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"detail":[{"msg":"` + msg + `","type":"` + errType + `"}]}`))
}
