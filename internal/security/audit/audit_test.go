package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogIncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	al := NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx := WithRequestID(context.Background(), "req-1")
	al.Log(ctx, Entry{UserID: 9, Action: "delete", Resource: "project", ResourceID: "4", Status: StatusSucceeded})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "audit", line["msg"])
	assert.Equal(t, "audit", line["component"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, float64(9), line["user_id"])
	assert.Equal(t, "4", line["resource_id"])
	assert.NotContains(t, line, "details")
}

func TestFailedLoginIsWarning(t *testing.T) {
	var buf bytes.Buffer
	al := NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	al.LogLogin(context.Background(), 0, "a@b.c", false)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, StatusFailed, line["status"])
}
