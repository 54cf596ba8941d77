package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
)

// BasicAuthMiddleware protects a route group with a single username and
// password. Repeated failures from one client IP are locked out when a
// FailureLimiter is attached.
type BasicAuthMiddleware struct {
	realm    string
	username string
	password string
	enabled  bool
	limiter  *FailureLimiter
	logger   *slog.Logger

	trustProxy bool
}

// NewBasicAuthMiddleware creates basic auth for realm.
// If both username and password are empty, authentication is disabled.
func NewBasicAuthMiddleware(realm, username, password string, limiter *FailureLimiter, logger *slog.Logger) *BasicAuthMiddleware {
	return &BasicAuthMiddleware{
		realm:    realm,
		username: username,
		password: password,
		enabled:  username != "" || password != "",
		limiter:  limiter,
		logger:   logger,
	}
}

// TrustProxyHeaders keys lockouts on the last X-Forwarded-For entry, the one
// appended by the reverse proxy. Enable only behind a proxy that sets it.
func (m *BasicAuthMiddleware) TrustProxyHeaders(trust bool) *BasicAuthMiddleware {
	m.trustProxy = trust
	return m
}

// lockoutKey identifies the client for failure counting. Client-supplied
// headers are ignored unless a trusted proxy is configured.
func (m *BasicAuthMiddleware) lockoutKey(r *http.Request) string {
	if m.trustProxy {
		if ip := lastForwardedFor(r); ip != "" {
			return ip
		}
	}
	return remoteIP(r)
}

// Handler returns middleware that requires valid credentials.
func (m *BasicAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := m.lockoutKey(r)
		if m.limiter != nil && m.limiter.Blocked(clientIP) {
			m.logger.Warn("basic auth locked out", "realm", m.realm, "ip", clientIP, "path", r.URL.Path)
			retryAfter := int(m.limiter.RetryAfter(clientIP).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		user, pass, ok := r.BasicAuth()
		// Constant-time compare of both fields.
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(m.username)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(m.password)) == 1

		if !ok || !userMatch || !passMatch {
			if m.limiter != nil && ok {
				m.limiter.RecordFailure(clientIP)
			}
			m.unauthorized(w)
			return
		}

		if m.limiter != nil {
			m.limiter.Reset(clientIP)
		}
		next.ServeHTTP(w, r)
	})
}

func (m *BasicAuthMiddleware) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+m.realm+`"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
