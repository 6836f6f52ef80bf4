package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/internal/observability/metrics"
	"github.com/karthickst/agenticosv2.0/pkg/database"
)

func defaultNow() int64 { return time.Now().UnixMilli() }

// nowMillis is the timestamp source for created_at/updated_at columns.
var nowMillis = defaultNow

// base carries what every entity repository shares: the store, the change
// notifier and a logger tagged with the entity name.
type base struct {
	db       *database.ConnectionPool
	notifier domain.ChangeNotifier
	logger   *slog.Logger
	entity   string
}

func newBase(db *database.ConnectionPool, notifier domain.ChangeNotifier, logger *slog.Logger, entity string) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{
		db:       db,
		notifier: notifier,
		logger:   logger.With(slog.String("entity", entity)),
		entity:   entity,
	}
}

// changed is called after the store acknowledged a write.
func (b base) changed(op string) {
	metrics.ObserveRepositoryOp(b.entity, op, "ok")
	if b.notifier != nil {
		b.notifier.Publish()
	}
}

func (b base) read(op string) {
	metrics.ObserveRepositoryOp(b.entity, op, "ok")
}

// fail logs and wraps a store error. Not-found is passed through untouched.
func (b base) fail(op string, err error, attrs ...any) error {
	if errors.Is(err, domain.ErrNotFound) {
		metrics.ObserveRepositoryOp(b.entity, op, "not_found")
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		metrics.ObserveRepositoryOp(b.entity, op, "not_found")
		return domain.ErrNotFound
	}
	metrics.ObserveRepositoryOp(b.entity, op, "error")
	b.logger.Error("repository operation failed",
		append([]any{slog.String("op", op), slog.String("error", err.Error())}, attrs...)...,
	)
	return fmt.Errorf("%s %s: %w", op, b.entity, err)
}

// expectRow turns a zero-row write into ErrNotFound.
func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func idPtr(v sql.NullInt64) *int64 {
	if !v.Valid || v.Int64 == 0 {
		return nil
	}
	id := v.Int64
	return &id
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func collect[T any](ctx context.Context, rows *sql.Rows, scan func(scanner) (*T, error)) ([]*T, error) {
	defer rows.Close()
	out := []*T{}
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
