package audit

import (
	"context"
	"log/slog"
	"time"
)

type requestIDKey struct{}

// WithRequestID stores the request id audit lines are tagged with.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Logger writes one structured line per security-relevant action.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger.With(slog.String("component", "audit"))}
}

// Entry describes an audited action. UserID is 0 for anonymous callers.
type Entry struct {
	UserID     int64
	Action     string
	Resource   string
	ResourceID string
	Status     string
	Details    string
}

func (al *Logger) Log(ctx context.Context, e Entry) {
	attrs := []slog.Attr{
		slog.String("action", e.Action),
		slog.String("resource", e.Resource),
		slog.String("status", e.Status),
		slog.Int64("user_id", e.UserID),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", time.Now().UTC()),
	}
	if e.ResourceID != "" {
		attrs = append(attrs, slog.String("resource_id", e.ResourceID))
	}
	if e.Details != "" {
		attrs = append(attrs, slog.String("details", e.Details))
	}
	level := slog.LevelInfo
	if e.Status == StatusDenied || e.Status == StatusFailed {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusDenied    = "denied"
)

func (al *Logger) LogLogin(ctx context.Context, userID int64, email string, ok bool) {
	status := StatusSucceeded
	if !ok {
		status = StatusFailed
	}
	al.Log(ctx, Entry{UserID: userID, Action: "login", Resource: "session", Status: status, Details: email})
}
