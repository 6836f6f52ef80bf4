package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"

	"github.com/karthickst/agenticosv2.0/internal/reliability/retry"
)

// Driver identifies the SQL dialect spoken by the row store.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverLibSQL   Driver = "libsql"
	DriverSQLite   Driver = "sqlite"
)

// Config holds database configuration
type Config struct {
	URL             string
	AuthToken       string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retry           *retry.Config
}

// Statement is one parameterized statement of a batch.
type Statement struct {
	Query string
	Args  []any
}

// Stmt builds a Statement.
func Stmt(query string, args ...any) Statement {
	return Statement{Query: query, Args: args}
}

// ConnectionPool is the process-wide row store client. Queries are written
// with ? placeholders and rebound for the active driver.
type ConnectionPool struct {
	db     *sql.DB
	driver Driver
	logger *slog.Logger
	tracer trace.Tracer
}

// ErrMissingURL is returned when no database URL is configured.
var ErrMissingURL = errors.New("database url is not configured")

// ResolveDriver picks a driver and driver-specific DSN from a database URL.
func ResolveDriver(rawURL, authToken string) (Driver, string, error) {
	if rawURL == "" {
		return "", "", ErrMissingURL
	}

	switch {
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		return DriverPostgres, rawURL, nil
	case strings.HasPrefix(rawURL, "libsql://"), strings.HasPrefix(rawURL, "https://"),
		strings.HasPrefix(rawURL, "http://"), strings.HasPrefix(rawURL, "wss://"), strings.HasPrefix(rawURL, "ws://"):
		if authToken == "" {
			return DriverLibSQL, rawURL, nil
		}
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", "", fmt.Errorf("invalid libsql url: %w", err)
		}
		q := u.Query()
		q.Set("authToken", authToken)
		u.RawQuery = q.Encode()
		return DriverLibSQL, u.String(), nil
	case strings.HasPrefix(rawURL, "sqlite://"):
		return DriverSQLite, sqliteDSN(strings.TrimPrefix(rawURL, "sqlite://")), nil
	case strings.HasPrefix(rawURL, "file:"), strings.HasSuffix(rawURL, ".db"), rawURL == ":memory:":
		return DriverSQLite, sqliteDSN(rawURL), nil
	}

	return "", "", fmt.Errorf("unsupported database url scheme: %q", redact(rawURL))
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"
}

// NewConnectionPool opens the store and verifies it is reachable.
func NewConnectionPool(ctx context.Context, config *Config, logger *slog.Logger) (*ConnectionPool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver, dsn, err := ResolveDriver(config.URL, config.AuthToken)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	switch {
	case driver == DriverSQLite:
		// single writer; modernc serializes on one connection
		db.SetMaxOpenConns(1)
	case config.MaxOpenConns > 0:
		db.SetMaxOpenConns(config.MaxOpenConns)
	default:
		db.SetMaxOpenConns(25)
	}

	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}

	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	retryCfg := config.Retry
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	_, err = retry.Do(ctx, retryCfg, logger, "database ping", func(ctx context.Context) (struct{}, error) {
		ctxTest, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return struct{}{}, db.PingContext(ctxTest)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connected successfully",
		slog.String("driver", string(driver)),
		slog.String("url", redact(config.URL)),
	)

	return &ConnectionPool{
		db:     db,
		driver: driver,
		logger: logger,
		tracer: otel.Tracer("github.com/karthickst/agenticosv2.0/pkg/database"),
	}, nil
}

// GetDB returns the underlying sql.DB connection
func (cp *ConnectionPool) GetDB() *sql.DB {
	return cp.db
}

// Driver reports the active dialect.
func (cp *ConnectionPool) Driver() Driver {
	return cp.driver
}

// Close closes the database connection
func (cp *ConnectionPool) Close() error {
	if cp.db != nil {
		return cp.db.Close()
	}
	return nil
}

// Health checks the database health
func (cp *ConnectionPool) Health(ctx context.Context) error {
	ctxTest, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return cp.db.PingContext(ctxTest)
}

// Exec runs a single statement.
func (cp *ConnectionPool) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, span := cp.startSpan(ctx, "exec", query)
	defer span.End()

	res, err := cp.db.ExecContext(ctx, cp.Rebind(query), args...)
	recordSpanError(span, err)
	return res, err
}

// Query runs a statement returning rows.
func (cp *ConnectionPool) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	ctx, span := cp.startSpan(ctx, "query", query)
	defer span.End()

	rows, err := cp.db.QueryContext(ctx, cp.Rebind(query), args...)
	recordSpanError(span, err)
	return rows, err
}

// QueryRow runs a statement returning at most one row.
func (cp *ConnectionPool) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return cp.db.QueryRowContext(ctx, cp.Rebind(query), args...)
}

// Insert runs an INSERT and returns the generated id.
func (cp *ConnectionPool) Insert(ctx context.Context, query string, args ...any) (int64, error) {
	ctx, span := cp.startSpan(ctx, "insert", query)
	defer span.End()

	var id int64
	err := cp.db.QueryRowContext(ctx, cp.Rebind(query+" RETURNING id"), args...).Scan(&id)
	recordSpanError(span, err)
	return id, err
}

// Batch runs statements atomically: all of them apply or none do.
func (cp *ConnectionPool) Batch(ctx context.Context, stmts ...Statement) (err error) {
	ctx, span := cp.tracer.Start(ctx, "db.batch", trace.WithAttributes(
		attribute.String("db.system", string(cp.driver)),
		attribute.Int("db.batch.size", len(stmts)),
	))
	defer func() {
		recordSpanError(span, err)
		span.End()
	}()

	tx, err := cp.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}

	for i, st := range stmts {
		if _, err = tx.ExecContext(ctx, cp.Rebind(st.Query), st.Args...); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				cp.logger.Error("batch rollback failed",
					slog.Int("statement", i),
					slog.String("error", rbErr.Error()),
				)
			}
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Rebind rewrites ? placeholders to $n for postgres. Quoted literals are left alone.
func (cp *ConnectionPool) Rebind(query string) string {
	if cp.driver != DriverPostgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			fmt.Fprintf(&b, "$%d", n)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func (cp *ConnectionPool) startSpan(ctx context.Context, op, query string) (context.Context, trace.Span) {
	return cp.tracer.Start(ctx, "db."+op, trace.WithAttributes(
		attribute.String("db.system", string(cp.driver)),
		attribute.String("db.statement", query),
	))
}

func recordSpanError(span trace.Span, err error) {
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// redact strips credentials and query parameters before a URL is logged.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if i := strings.Index(raw, "?"); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}
