package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/karthickst/agenticosv2.0/internal/domain"
)

// Structured columns are JSON text. Rows written before a column existed, or
// with a damaged value, decode to the column's empty default instead of
// failing the read.

func decodeList[T any](log *slog.Logger, column string, id int64, raw sql.NullString) []T {
	out := []T{}
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		log.Warn("malformed json column, using default",
			slog.String("column", column),
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return []T{}
	}
	if out == nil {
		return []T{}
	}
	return out
}

func decodeGherkin(log *slog.Logger, id int64, raw sql.NullString) domain.Gherkin {
	var g domain.Gherkin
	if raw.Valid && strings.TrimSpace(raw.String) != "" {
		if err := json.Unmarshal([]byte(raw.String), &g); err != nil {
			log.Warn("malformed json column, using default",
				slog.String("column", "gherkin"),
				slog.Int64("id", id),
				slog.String("error", err.Error()),
			)
			g = domain.Gherkin{}
		}
	}
	return g.Normalized()
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	return string(b), nil
}

func orDefault[T ~string](v sql.NullString, def T) T {
	if !v.Valid || v.String == "" {
		return def
	}
	return T(v.String)
}
