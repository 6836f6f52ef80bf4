package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthickst/agenticosv2.0/internal/security/audit"
	"github.com/karthickst/agenticosv2.0/internal/security/auth"
	"github.com/karthickst/agenticosv2.0/internal/security/ratelimit"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]int64{"user_id": UserID(r.Context())})
	})
}

func TestJWTMiddleware(t *testing.T) {
	tm := auth.NewTokenManager("secret", "agenticos", time.Hour)
	token, err := tm.GenerateToken(42, "a@b.c", "A")
	require.NoError(t, err)
	h := JWTMiddleware(tm, discard)(echoUser())

	cases := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"public path", "/api/catalog", "", http.StatusOK},
		{"missing header", "/api/projects", "", http.StatusUnauthorized},
		{"malformed header", "/api/projects", "Token abc", http.StatusUnauthorized},
		{"bad token", "/api/projects", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "/api/projects", "Bearer " + token, http.StatusOK},
		{"query token ignored on api", "/api/projects?token=" + token, "", http.StatusUnauthorized},
		{"query token on websocket", "/ws/projects/1/live?token=" + token, "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestJWTMiddlewareSetsClaims(t *testing.T) {
	tm := auth.NewTokenManager("secret", "agenticos", time.Hour)
	token, _ := tm.GenerateToken(42, "a@b.c", "A")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	JWTMiddleware(tm, discard)(echoUser()).ServeHTTP(rec, req)

	var body map[string]int64
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, int64(42), body["user_id"])
}

func TestRateLimitStrictOnLogin(t *testing.T) {
	l := ratelimit.NewLimiter(100, time.Minute)
	defer l.Stop()
	h := RateLimitMiddleware(l, 2, time.Minute, discard)(echoUser())

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"http://localhost:5173"})(echoUser())

	req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	h := RequestID(discard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = audit.RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "abc", seen)
}

func TestAuditMiddlewareLogsMutations(t *testing.T) {
	var buf bytes.Buffer
	al := audit.NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	h := AuditMiddleware(al)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/projects/3", nil))
	assert.Zero(t, buf.Len())

	req := httptest.NewRequest(http.MethodDelete, "/api/projects/3/requirements/9", nil)
	req = req.WithContext(WithClaims(req.Context(), &auth.Claims{UserID: 5}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "delete", line["action"])
	assert.Equal(t, "requirements", line["resource"])
	assert.Equal(t, "9", line["resource_id"])
	assert.Equal(t, audit.StatusFailed, line["status"])
	assert.Equal(t, float64(5), line["user_id"])
}

func TestDescribePath(t *testing.T) {
	cases := map[string][2]string{
		"/api/projects":                    {"project", ""},
		"/api/projects/7":                  {"project", "7"},
		"/api/projects/7/board":            {"board", ""},
		"/api/projects/7/board/2/move":     {"board", "2"},
		"/api/auth/change-password":        {"session", ""},
		"/healthz":                         {"/healthz", ""},
	}
	for path, want := range cases {
		res, id := describePath(path)
		assert.Equal(t, want[0], res, path)
		assert.Equal(t, want[1], id, path)
	}
	assert.Equal(t, "move", actionFor(http.MethodPost, "/api/projects/7/board/2/move"))
	assert.Equal(t, "update", actionFor(http.MethodPut, "/api/projects/7"))
}

func TestValidateJSONContentType(t *testing.T) {
	h := ValidateJSONContentType(discard)(echoUser())

	req := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRejectTraversal(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/projects/1", nil)
	req.URL.Path = "/api/../etc"
	RejectTraversal(discard)(echoUser()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
