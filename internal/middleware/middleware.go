// Package middleware provides HTTP middleware for the attendance server.
//
// Middleware wraps a handler to add behaviour before and/or after it runs
// and can be chained: CORS(Session(mux)) means CORS runs first.
package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Elizabethomito/igaratrack/internal/auth"
)

// contextKey is a private type for context keys in this package.
type contextKey string

const (
	// ContextAdminID holds the authenticated admin's id after Authenticate.
	ContextAdminID contextKey = "admin_id"
	// ContextRole holds the token's role claim.
	ContextRole contextKey = "role"
	// ContextSession holds the ceremony session id set by Session.
	ContextSession contextKey = "session_id"
	// ContextClientIP holds the caller's address resolved by RealIP.
	ContextClientIP contextKey = "client_ip"
)

// SessionCookie names the cookie that keys a browser's pending challenge.
const SessionCookie = "igaratrack_session"

func deny(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"error":"` + msg + `","code":"` + code + `"}`))
}

// Authenticate checks the "Authorization: Bearer <token>" header and stores
// the admin id and role in the request context. Missing or invalid tokens
// get a 401.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				deny(w, http.StatusUnauthorized, "Unauthorized", "missing or invalid Authorization header")
				return
			}
			claims, err := auth.ParseToken(strings.TrimPrefix(header, "Bearer "), secret)
			if err != nil {
				deny(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextAdminID, claims.AdminID)
			ctx = context.WithValue(ctx, ContextRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole only lets through requests whose context role is one of
// roles. Must run after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed[GetRole(r.Context())] {
				deny(w, http.StatusForbidden, "Forbidden", "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS allows the single configured origin, with credentials, so the
// browser sends the session cookie on cross-origin ceremony calls.
func CORS(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Origin") == origin {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				h.Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Session makes sure every request carries a ceremony session id. A request
// without a valid cookie is given a fresh random one.
func Session(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(SessionCookie); err == nil {
				if u, err := uuid.Parse(c.Value); err == nil {
					id = u.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ContextSession, id)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logger logs one line per request.
func Logger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			level := slog.LevelInfo
			if rec.status >= 500 {
				level = slog.LevelError
			}
			log.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
				"ip", ClientIP(r),
			)
		})
	}
}

// RealIP resolves the caller's address once per request for ClientIP.
// X-Forwarded-For is read only when trustProxy is set, and then only its
// last hop, which is the one the proxy itself appended.
func RealIP(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := remoteHost(r)
			if trustProxy {
				if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
					hops := strings.Split(fwd, ",")
					if last := strings.TrimSpace(hops[len(hops)-1]); last != "" {
						ip = last
					}
				}
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ContextClientIP, ip)))
		})
	}
}

// ClientIP returns the caller's address without the port. Outside RealIP it
// falls back to the connection's remote address.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(ContextClientIP).(string); ok && ip != "" {
		return ip
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// GetAdminID retrieves the authenticated admin's id from the context.
func GetAdminID(ctx context.Context) int64 {
	id, _ := ctx.Value(ContextAdminID).(int64)
	return id
}

// GetRole retrieves the token's role from the context.
func GetRole(ctx context.Context) string {
	role, _ := ctx.Value(ContextRole).(string)
	return role
}

// SessionID returns the ceremony session id, or "" outside Session.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(ContextSession).(string)
	return id
}
