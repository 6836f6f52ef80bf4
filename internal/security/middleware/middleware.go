package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/karthickst/agenticosv2.0/internal/security/audit"
	"github.com/karthickst/agenticosv2.0/internal/security/auth"
	"github.com/karthickst/agenticosv2.0/internal/security/ratelimit"
)

type ClaimsContextKey struct{}

// PublicPaths are served without a bearer token.
var PublicPaths = map[string]bool{
	"/healthz":           true,
	"/readyz":            true,
	"/metrics":           true,
	"/api/auth/register": true,
	"/api/auth/login":    true,
	"/api/catalog":       true,
}

func isCredentialPath(path string) bool {
	return path == "/api/auth/login" || path == "/api/auth/register"
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// RequestID tags each request with an id (kept from X-Request-ID when the
// caller sends one) and logs its completion.
func RequestID(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" || len(reqID) > 64 {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", reqID)
			start := time.Now()

			next.ServeHTTP(w, r.WithContext(audit.WithRequestID(r.Context(), reqID)))

			log.Info("request completed",
				slog.String("request_id", reqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// CORS answers preflight requests and echoes allowed origins.
func CORS(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if originAllowed(allowed, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			} else if len(allowed) > 0 {
				w.Header().Set("Access-Control-Allow-Origin", allowed[0])
			}
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, X-Anthropic-Key")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Content-Disposition")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

// JWTMiddleware requires a valid bearer token outside PublicPaths. WebSocket
// routes under /ws/ may pass the token as ?token= since browsers cannot set
// headers on the upgrade request.
func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PublicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			var tokenString string
			if h := r.Header.Get("Authorization"); h != "" {
				t, err := auth.ExtractToken(h)
				if err != nil {
					writeJSONError(w, http.StatusUnauthorized, "invalid auth")
					return
				}
				tokenString = t
			} else if strings.HasPrefix(r.URL.Path, "/ws/") {
				tokenString = r.URL.Query().Get("token")
			}
			if tokenString == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing auth")
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				log.Debug("token rejected", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
				writeJSONError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RateLimitMiddleware limits authenticated callers per user and anonymous
// callers per client IP. Login and registration get the strict budget.
func RateLimitMiddleware(limiter *ratelimit.Limiter, strictMax int, strictWindow time.Duration, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/healthz", "/readyz", "/metrics":
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			var allowed bool
			if isCredentialPath(r.URL.Path) {
				allowed = limiter.AllowStrict("ip:"+ip, strictMax, strictWindow)
			} else if c := GetClaimsFromContext(r.Context()); c != nil {
				allowed = limiter.Allow("user:" + c.Subject)
			} else {
				allowed = limiter.Allow("ip:" + ip)
			}

			if !allowed {
				log.Warn("rate limit exceeded", slog.String("path", r.URL.Path), slog.String("ip", ip))
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// AuditMiddleware writes an audit line for every mutating request once the
// response status is known.
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			var userID int64
			if c := GetClaimsFromContext(r.Context()); c != nil {
				userID = c.UserID
			}
			resource, id := describePath(r.URL.Path)
			status := audit.StatusSucceeded
			switch {
			case rec.status == http.StatusUnauthorized || rec.status == http.StatusForbidden:
				status = audit.StatusDenied
			case rec.status >= 400:
				status = audit.StatusFailed
			}
			auditLog.Log(r.Context(), audit.Entry{
				UserID:     userID,
				Action:     actionFor(r.Method, r.URL.Path),
				Resource:   resource,
				ResourceID: id,
				Status:     status,
			})
		})
	}
}

func actionFor(method, path string) string {
	switch {
	case strings.HasSuffix(path, "/move"):
		return "move"
	case strings.HasSuffix(path, "/import"):
		return "import"
	case strings.HasSuffix(path, "/generate"):
		return "generate"
	case strings.HasPrefix(path, "/api/auth/"):
		return strings.TrimPrefix(path, "/api/auth/")
	}
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	}
	return strings.ToLower(method)
}

// describePath maps /api/projects/7/requirements/3 to ("requirements", "3")
// and /api/projects/7 to ("project", "7").
func describePath(path string) (resource, id string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] != "api" {
		return path, ""
	}
	switch {
	case parts[1] == "auth":
		return "session", ""
	case parts[1] != "projects":
		return parts[1], ""
	case len(parts) == 2:
		return "project", ""
	case len(parts) == 3:
		return "project", parts[2]
	case len(parts) == 4:
		return parts[3], ""
	default:
		return parts[3], parts[4]
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Flush keeps streamed generation responses flowing through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(ClaimsContextKey{}).(*auth.Claims); ok {
		return c
	}
	return nil
}

// UserID returns the authenticated user's id, or 0.
func UserID(ctx context.Context) int64 {
	if c := GetClaimsFromContext(ctx); c != nil {
		return c.UserID
	}
	return 0
}

// WithClaims attaches claims to ctx the same way JWTMiddleware does.
func WithClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey{}, c)
}
