// Package postgres implements the PostgreSQL persistence layer: the pgx pool,
// a context-carried unit of work, embedded migrations and the repositories.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

var (
	// ErrConnectionClosed indicates the connection pool is closed.
	ErrConnectionClosed = errors.New("postgres: connection pool is closed")

	// ErrMigrationFailed indicates a migration failure.
	ErrMigrationFailed = errors.New("postgres: migration failed")

	// ErrTransactionFailed indicates a transaction failure.
	ErrTransactionFailed = errors.New("postgres: transaction failed")
)

// ══════════════════════════════════════════════════════════════════════════════
// CONNECTION POOL
// ══════════════════════════════════════════════════════════════════════════════

const (
	maxConnLifetime   = time.Hour
	maxConnIdleTime   = 30 * time.Minute
	healthCheckPeriod = time.Minute
)

// Connection wraps the pgx pool.
type Connection struct {
	pool   *pgxpool.Pool
	mu     sync.RWMutex
	closed bool
}

// NewConnectionFromURL opens a pool and pings it. maxConns and minConns
// override the URL when positive.
func NewConnectionFromURL(ctx context.Context, databaseURL string, maxConns, minConns int32) (*Connection, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to parse database URL: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}
	cfg.MaxConnLifetime = maxConnLifetime
	cfg.MaxConnIdleTime = maxConnIdleTime
	cfg.HealthCheckPeriod = healthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}
	return &Connection{pool: pool}, nil
}

// Close closes the pool. Calling it twice is safe.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.pool.Close()
	}
}

// Ping checks if the database connection is alive.
func (c *Connection) Ping(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnectionClosed
	}
	return c.pool.Ping(ctx)
}

func (c *Connection) begin(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrConnectionClosed
	}
	tx, err := c.pool.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	return tx, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// The open transaction travels in the context. Repositories pick it up through
// Connection.q; after commit the holder is emptied so after-commit hooks that
// still carry the context fall back to the pool.
// ══════════════════════════════════════════════════════════════════════════════

type txKey struct{}

type txHolder struct {
	mu sync.Mutex
	tx pgx.Tx
}

func (h *txHolder) get() pgx.Tx {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tx
}

func (h *txHolder) clear() {
	h.mu.Lock()
	h.tx = nil
	h.mu.Unlock()
}

func activeTx(ctx context.Context) pgx.Tx {
	if h, ok := ctx.Value(txKey{}).(*txHolder); ok {
		return h.get()
	}
	return nil
}

// TxManager implements shared.TxManager over the pool.
type TxManager struct {
	conn *Connection
	opts pgx.TxOptions
}

// NewTxManager creates a unit of work with read-committed transactions.
func NewTxManager(conn *Connection) *TxManager {
	return &TxManager{conn: conn, opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}}
}

// WithinTx runs fn in a transaction. A nested call joins the outer one.
// Commit hooks run after a successful commit and are dropped on rollback.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if activeTx(ctx) != nil {
		return fn(ctx)
	}

	tx, err := m.conn.begin(ctx, m.opts)
	if err != nil {
		return err
	}
	holder := &txHolder{tx: tx}
	txCtx, hooks := shared.WithCommitHooks(context.WithValue(ctx, txKey{}, holder))

	defer func() {
		if p := recover(); p != nil {
			holder.clear()
			_ = tx.Rollback(context.WithoutCancel(ctx))
			hooks.Discard()
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		holder.clear()
		hooks.Discard()
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	commitErr := tx.Commit(ctx)
	holder.clear()
	if commitErr != nil {
		hooks.Discard()
		return fmt.Errorf("%w: commit: %v", ErrTransactionFailed, commitErr)
	}
	hooks.Run()
	return nil
}

var _ shared.TxManager = (*TxManager)(nil)

// ══════════════════════════════════════════════════════════════════════════════
// QUERY HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// Querier is implemented by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// q returns the transaction carried by ctx, or the pool.
func (c *Connection) q(ctx context.Context) Querier {
	if tx := activeTx(ctx); tx != nil {
		return tx
	}
	return c.pool
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// MigrationStatus reports whether a migration has been applied.
type MigrationStatus struct {
	Migration
	Applied   bool
	AppliedAt time.Time
}

// Migrator applies the embedded migrations and tracks them in
// schema_migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
}

// NewMigrator creates a migrator over the embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{conn: conn, migrations: GetMigrations()}
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	if err := m.conn.Ping(ctx); err != nil {
		return nil, err
	}
	_, err := m.conn.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	rows, err := m.conn.pool.Query(ctx, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	done := make(map[int]time.Time)
	var (
		version int
		at      time.Time
	)
	_, err = pgx.ForEachRow(rows, []any{&version, &at}, func() error {
		done[version] = at
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan applied migrations: %w", err)
	}
	return done, nil
}

// Migrate applies every pending migration, each in its own transaction.
func (m *Migrator) Migrate(ctx context.Context) error {
	done, err := m.applied(ctx)
	if err != nil {
		return err
	}
	for _, mig := range m.migrations {
		if _, ok := done[mig.Version]; ok {
			continue
		}
		if mig.UpSQL == "" {
			return fmt.Errorf("%w: version %d has no up SQL", ErrMigrationFailed, mig.Version)
		}
		err := pgx.BeginFunc(ctx, m.conn.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d (%s): %v", ErrMigrationFailed, mig.Version, mig.Name, err)
		}
	}
	return nil
}

// Rollback reverts the most recently applied migration. It returns the
// reverted version, or 0 when nothing was applied.
func (m *Migrator) Rollback(ctx context.Context) (int, error) {
	done, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}
	last := 0
	for v := range done {
		last = max(last, v)
	}
	if last == 0 {
		return 0, nil
	}

	idx := slices.IndexFunc(m.migrations, func(mig Migration) bool { return mig.Version == last })
	if idx < 0 || m.migrations[idx].DownSQL == "" {
		return 0, fmt.Errorf("%w: version %d has no down SQL", ErrMigrationFailed, last)
	}
	err = pgx.BeginFunc(ctx, m.conn.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, m.migrations[idx].DownSQL); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, last)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: rollback %d: %v", ErrMigrationFailed, last, err)
	}
	return last, nil
}

// Status lists every known migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MigrationStatus, 0, len(m.migrations))
	for _, mig := range m.migrations {
		at, ok := done[mig.Version]
		out = append(out, MigrationStatus{Migration: mig, Applied: ok, AppliedAt: at})
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
)

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// IsUniqueViolation reports a unique constraint violation.
func IsUniqueViolation(err error) bool { return hasCode(err, codeUniqueViolation) }

// IsForeignKeyViolation reports a foreign key violation.
func IsForeignKeyViolation(err error) bool { return hasCode(err, codeForeignKeyViolation) }

// IsNoRows reports pgx.ErrNoRows.
func IsNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

// translate maps driver errors onto domain errors. notFound is returned for
// pgx.ErrNoRows and exists for unique violations.
func translate(err error, notFound, exists error, op string) error {
	switch {
	case err == nil:
		return nil
	case IsNoRows(err) && notFound != nil:
		return notFound
	case IsUniqueViolation(err) && exists != nil:
		return exists
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_users_and_ledger",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_courses_and_quizzes",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_progress",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "create_notifications",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
		{
			Version: 5,
			Name:    "unique_quiz_xp_award",
			UpSQL:   migration005Up,
			DownSQL: migration005Down,
		},
	}
}
