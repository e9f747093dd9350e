package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// DB is the journal database: a pgx pool on Postgres or a single
// connection on SQLite, both driven through ent's SQL driver.
type DB struct {
	drv    *entsql.Driver
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var ErrNoDSN = errors.New("journal dsn is empty")

// Open connects according to the DSN scheme: postgres:// and postgresql://
// use pgx; "sqlite:<path>" and ":memory:" use the pure Go sqlite driver.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := strings.TrimSpace(cfg.DSN)
	switch {
	case dsn == "":
		return nil, ErrNoDSN
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return openPostgres(ctx, cfg, logger)
	case dsn == ":memory:", strings.HasPrefix(dsn, "sqlite:"):
		return openSQLite(ctx, strings.TrimPrefix(dsn, "sqlite:"), logger)
	}
	return nil, fmt.Errorf("unsupported journal dsn %q", redact(dsn))
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("journal.db.connecting", "dialect", dialect.Postgres, "dsn", redact(cfg.DSN))
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse journal dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "vagasbot"

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout(cfg.DialTimeout))
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("journal.db.connect_failed", "error", err)
		return nil, err
	}

	// Wrap pool as *sql.DB for ent
	db := stdlib.OpenDBFromPool(pool)
	logger.Info("journal.db.connected", "dialect", dialect.Postgres)
	return &DB{drv: entsql.OpenDB(dialect.Postgres, db), pool: pool, logger: logger}, nil
}

func openSQLite(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	source := path
	if path != ":memory:" && !strings.Contains(path, "?") {
		source = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	logger.Info("journal.db.connecting", "dialect", dialect.SQLite, "path", path)
	db, err := sql.Open("sqlite", source)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection: :memory: databases are per connection and sqlite
	// serializes writers anyway
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	logger.Info("journal.db.connected", "dialect", dialect.SQLite)
	return &DB{drv: entsql.OpenDB(dialect.SQLite, db), logger: logger}, nil
}

func dialTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 3 * time.Second
	}
	return d
}

// redact hides the password of a URL-shaped DSN.
func redact(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return dsn
	}
	user, _, _ := strings.Cut(rest[:at], ":")
	return scheme + "://" + user + ":***" + rest[at:]
}

func (d *DB) Dialect() string { return d.drv.Dialect() }

func (d *DB) builder() *entsql.DialectBuilder { return entsql.Dialect(d.drv.Dialect()) }

// Close closes the database connections gracefully
func (d *DB) Close() {
	d.logger.Info("journal.db.closing")
	if err := d.drv.Close(); err != nil {
		d.logger.Error("journal.db.close_failed", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

// HealthCheck pings the database.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if d.pool != nil {
		return d.pool.Ping(ctx)
	}
	return d.drv.DB().PingContext(ctx)
}

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS submissions (
	id             TEXT PRIMARY KEY,
	session        TEXT NOT NULL DEFAULT '',
	event_id       TEXT NOT NULL DEFAULT '',
	sender         TEXT NOT NULL DEFAULT '',
	content_hash   TEXT NOT NULL DEFAULT '',
	state          TEXT NOT NULL,
	vaga_id        %[1]s NULL,
	ocr_text       TEXT NOT NULL DEFAULT '',
	extracted_json TEXT NOT NULL DEFAULT '',
	error_code     TEXT NOT NULL DEFAULT '',
	error_message  TEXT NOT NULL DEFAULT '',
	created_at     %[2]s NOT NULL,
	updated_at     %[2]s NOT NULL
);
CREATE INDEX IF NOT EXISTS submissions_content_hash_idx ON submissions (content_hash);
CREATE INDEX IF NOT EXISTS submissions_vaga_id_idx ON submissions (vaga_id);
CREATE TABLE IF NOT EXISTS decisions (
	id         TEXT PRIMARY KEY,
	vaga_id    %[1]s NOT NULL,
	approved   BOOLEAN NOT NULL,
	outcome    TEXT NOT NULL,
	message    TEXT NOT NULL DEFAULT '',
	sender     TEXT NOT NULL DEFAULT '',
	session    TEXT NOT NULL DEFAULT '',
	created_at %[2]s NOT NULL
);
CREATE INDEX IF NOT EXISTS decisions_vaga_id_idx ON decisions (vaga_id)`

// Migrate creates the journal tables when missing.
func (d *DB) Migrate(ctx context.Context) error {
	intType, timeType := "INTEGER", "DATETIME"
	if d.Dialect() == dialect.Postgres {
		intType, timeType = "BIGINT", "TIMESTAMPTZ"
	}
	for _, stmt := range strings.Split(fmt.Sprintf(schemaTemplate, intType, timeType), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if err := d.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("migrate journal: %w", err)
		}
	}
	d.logger.Debug("journal.db.migrated", "dialect", d.Dialect())
	return nil
}

func (d *DB) exec(ctx context.Context, query string, args []any) (int64, error) {
	var res sql.Result
	if err := d.drv.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
