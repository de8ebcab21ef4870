package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/certigo/certigo/internal/domain"
	"github.com/certigo/certigo/internal/ports"
	"github.com/certigo/certigo/internal/service/jwtauth"
)

type contextKey string

const (
	operatorClaimsKey contextKey = "operator_claims"
	citizenTramiteKey contextKey = "citizen_tramite"
)

// AuthMiddleware guards the internal panel endpoints with operator
// session tokens.
type AuthMiddleware struct {
	jwt *jwtauth.Service
}

func NewAuthMiddleware(jwt *jwtauth.Service) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			Unauthorized(w, "authorization header required")
			return
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			Unauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), operatorClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func (m *AuthMiddleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		claims := OperatorClaims(r.Context())
		if claims == nil || claims.Role != domain.RoleAdmin {
			Forbidden(w, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OperatorClaims retrieves the authenticated operator claims, or nil.
func OperatorClaims(ctx context.Context) *jwtauth.Claims {
	if claims, ok := ctx.Value(operatorClaimsKey).(*jwtauth.Claims); ok {
		return claims
	}
	return nil
}

// CitizenMiddleware guards the citizen-facing endpoints with the session
// token issued after OTP verification.
type CitizenMiddleware struct {
	tokens ports.TokenStore
}

func NewCitizenMiddleware(tokens ports.TokenStore) *CitizenMiddleware {
	return &CitizenMiddleware{tokens: tokens}
}

// RequireSession resolves the citizen session token and puts the bound
// trámite number into the request context. Handlers must still check the
// binding against the resource they serve.
func (m *CitizenMiddleware) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			token = r.Header.Get("X-Citizen-Token")
		}
		if token == "" {
			Unauthorized(w, "session token required")
			return
		}

		nroTramite, err := m.tokens.ResolveCitizenToken(r.Context(), token)
		if err != nil {
			Unauthorized(w, "invalid or expired session token")
			return
		}

		ctx := context.WithValue(r.Context(), citizenTramiteKey, nroTramite)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// CitizenTramite retrieves the trámite number the session is bound to.
func CitizenTramite(ctx context.Context) string {
	if nro, ok := ctx.Value(citizenTramiteKey).(string); ok {
		return nro
	}
	return ""
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func loggingMiddleware(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"remote":   r.RemoteAddr,
				"duration": time.Since(start).String(),
			}).Info("request handled")
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Citizen-Token")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func recoveryMiddleware(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithField("panic", err).Error("panic recovered")
					InternalServerError(w, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
