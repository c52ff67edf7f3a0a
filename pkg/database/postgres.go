package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog"

	"gitlab.connectwisedev.com/catalog-service/pkg/e"
	"gitlab.connectwisedev.com/catalog-service/pkg/secrets"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "database").Logger()

const (
	// connectTimeout bounds connection establishment well below the
	// surrounding request timeout, so an unreachable server fails fast.
	connectTimeout = 3 * time.Second

	// healthTimeout bounds the liveness ping on a cached connection.
	healthTimeout = 2 * time.Second
)

// Opener establishes a connection pool from resolved credentials.
// Injectable so tests can substitute a fake store.
type Opener func(cc *secrets.ConnectionConfig) (*sql.DB, error)

// Manager owns the process-wide cached PostgreSQL connection. The
// connection is created lazily, health-checked before reuse, and
// replaced when found disconnected. It is deliberately never closed at
// the end of a request — it is retained across invocations to amortize
// connection setup cost.
type Manager struct {
	resolver *secrets.Resolver
	open     Opener

	mu sync.Mutex
	db *sql.DB
}

// NewManager builds a manager that connects with lib/pq.
func NewManager(resolver *secrets.Resolver) *Manager {
	return &Manager{resolver: resolver, open: openPostgres}
}

// NewManagerWithOpener injects a custom opener, used by tests.
func NewManagerWithOpener(resolver *secrets.Resolver, open Opener) *Manager {
	return &Manager{resolver: resolver, open: open}
}

func openPostgres(cc *secrets.ConnectionConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=require connect_timeout=%d",
		cc.Host,
		cc.Port,
		cc.User,
		cc.Password,
		cc.DBName,
		int(connectTimeout.Seconds()),
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// Conn returns the cached connection if it is still live, otherwise
// resolves credentials and establishes a new one, replacing any prior.
func (m *Manager) Conn(ctx context.Context) (*sql.DB, error) {
	const op = "database.Conn"

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		hctx, cancel := context.WithTimeout(ctx, healthTimeout)
		err := m.db.PingContext(hctx)
		cancel()
		if err == nil {
			return m.db, nil
		}
		logger.Warn().Err(err).Msg("cached connection unhealthy, reconnecting")
		_ = m.db.Close()
		m.db = nil
	}

	cc, err := m.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	db, err := m.open(cc)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	pctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, e.Wrap(op, fmt.Errorf("failed to connect to database: %w", err))
	}

	logger.Info().Msg("connected to PostgreSQL")
	m.db = db
	return db, nil
}

// invalidate discards db if it is still the cached connection. A
// concurrent invocation may already have replaced it.
func (m *Manager) invalidate(db *sql.DB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == db {
		_ = m.db.Close()
		m.db = nil
	}
}

// WithConnection obtains a connection and invokes op. When op fails with
// a transient connectivity error the cached connection is discarded and
// op retried exactly once on a fresh one; any other error, or a second
// transient failure, propagates unmodified.
func (m *Manager) WithConnection(ctx context.Context, op func(db *sql.DB) error) error {
	db, err := m.Conn(ctx)
	if err != nil {
		return err
	}

	err = op(db)
	if err == nil || !IsTransient(err) {
		return err
	}

	logger.Warn().Err(err).Msg("transient store error, retrying once on a fresh connection")
	m.invalidate(db)

	db, cerr := m.Conn(ctx)
	if cerr != nil {
		return cerr
	}
	return op(db)
}

// WithTx runs fn inside a transaction: commit on success, rollback on
// error or panic, on every exit path.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
