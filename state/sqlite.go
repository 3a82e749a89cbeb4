// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MemoryDSN opens a private in-memory database with OpenSQLite.
const MemoryDSN = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS csrf_tokens (
	id         TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	nonce      TEXT NOT NULL DEFAULT '',
	verifier   TEXT NOT NULL DEFAULT '',
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS csrf_tokens_expires_at ON csrf_tokens (expires_at);
`

const (
	insertToken  = `INSERT INTO csrf_tokens (id, state, nonce, verifier, expires_at) VALUES (?, ?, ?, ?, ?)`
	selectToken  = `SELECT id, state, nonce, verifier, expires_at FROM csrf_tokens WHERE id = ? AND expires_at > ?`
	deleteToken  = `DELETE FROM csrf_tokens WHERE id = ?`
	consumeToken = `DELETE FROM csrf_tokens WHERE id = ? RETURNING id, state, nonce, verifier, expires_at`
	purgeTokens  = `DELETE FROM csrf_tokens WHERE expires_at <= ?`
)

// SQLStore is a Store persisted in SQLite, shared by every instance which
// opens the same database file.
type SQLStore struct {
	db     *sql.DB
	now    func() time.Time
	logger hclog.Logger
}

var (
	_ Store    = (*SQLStore)(nil)
	_ Consumer = (*SQLStore)(nil)
)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// OpenSQLite opens (creating when needed) the SQLite database at path and
// applies the token schema. Use MemoryDSN for a private in-memory database.
//
// Supported options: WithLogger, WithNow
func OpenSQLite(ctx context.Context, path string, opt ...Option) (*SQLStore, error) {
	const op = "state.OpenSQLite"
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%s: missing path: %w", op, ErrInvalidParameter)
	}
	opts := getStoreOpts(opt...)

	dsn := MemoryDSN
	if path != MemoryDSN {
		dsn = filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open sqlite db: %w", op, err)
	}
	if path == MemoryDSN {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping sqlite db: %w", op, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: apply schema: %w", op, err)
	}
	return &SQLStore{
		db:     db,
		now:    opts.withNow,
		logger: opts.withLogger.Named("state"),
	}, nil
}

// Close releases the underlying database.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create implements Store.
func (s *SQLStore) Create(ctx context.Context, t *Token) error {
	const op = "SQLStore.Create"
	if t == nil {
		return fmt.Errorf("%s: missing token: %w", op, ErrNilParameter)
	}
	if t.ID == "" {
		return fmt.Errorf("%s: missing token id: %w", op, ErrInvalidParameter)
	}
	_, err := s.db.ExecContext(ctx, insertToken, t.ID, t.State, t.Nonce, t.Verifier, toMillis(t.Expiration))
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Read implements Store.
func (s *SQLStore) Read(ctx context.Context, id string) (*Token, error) {
	const op = "SQLStore.Read"
	row := s.db.QueryRowContext(ctx, selectToken, id, toMillis(s.now().Add(DefaultExpirySkew)))
	t, err := scanToken(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// Delete implements Store.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	const op = "SQLStore.Delete"
	if _, err := s.db.ExecContext(ctx, deleteToken, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Consume implements Consumer with a single DELETE ... RETURNING statement.
// An expired token is removed and reported as not found.
func (s *SQLStore) Consume(ctx context.Context, id string) (*Token, error) {
	const op = "SQLStore.Consume"
	t, err := scanToken(s.db.QueryRowContext(ctx, consumeToken, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if t.IsExpired(WithNow(s.now)) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return t, nil
}

// Purge deletes every expired token and returns how many were removed.
func (s *SQLStore) Purge(ctx context.Context) (int64, error) {
	const op = "SQLStore.Purge"
	res, err := s.db.ExecContext(ctx, purgeTokens, toMillis(s.now()))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		s.logger.Debug("purged expired csrf tokens", "count", n)
	}
	return n, nil
}

func scanToken(row *sql.Row) (*Token, error) {
	var (
		t         Token
		expiresAt int64
	)
	if err := row.Scan(&t.ID, &t.State, &t.Nonce, &t.Verifier, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.Expiration = fromMillis(expiresAt)
	return &t, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
