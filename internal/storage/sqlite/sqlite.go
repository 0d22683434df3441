// internal/storage/sqlite/sqlite.go

// Package sqlite implements the journal on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/jugheadddd/launchpad-contracts/internal/storage"
	"github.com/jugheadddd/launchpad-contracts/internal/storage/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

const schema = `
CREATE TABLE IF NOT EXISTS tokens (
	address      TEXT PRIMARY KEY,
	pair         TEXT NOT NULL,
	creator      TEXT NOT NULL,
	base_asset   TEXT NOT NULL,
	name         TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	supply       TEXT NOT NULL,
	launched_at  DATETIME NOT NULL,
	graduated_at DATETIME
);

CREATE TABLE IF NOT EXISTS trades (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	token       TEXT NOT NULL,
	trader      TEXT NOT NULL,
	side        TEXT NOT NULL,
	amount_in   TEXT NOT NULL,
	amount_out  TEXT NOT NULL,
	price       TEXT NOT NULL,
	executed_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_token ON trades(token);

CREATE TABLE IF NOT EXISTS graduations (
	token        TEXT PRIMARY KEY,
	pool         TEXT NOT NULL,
	token_seeded TEXT NOT NULL,
	asset_seeded TEXT NOT NULL,
	graduated_at DATETIME NOT NULL
);
`

type sqliteStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStorage opens (or creates) the database at path in WAL mode and runs the
// schema migration.
func NewStorage(path string, logger *zap.Logger) (storage.Storage, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single writer sidesteps most SQLITE_BUSY contention.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &sqliteStorage{db: db, logger: logger.Named("sqlite")}, nil
}

func (s *sqliteStorage) SaveToken(ctx context.Context, t *models.TokenRecord) error {
	return s.execRetry(ctx, `
		INSERT INTO tokens (address, pair, creator, base_asset, name, symbol, supply, launched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Address, t.Pair, t.Creator, t.BaseAsset, t.Name, t.Symbol, t.Supply, t.LaunchedAt.UTC())
}

func (s *sqliteStorage) GetToken(ctx context.Context, address string) (*models.TokenRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, pair, creator, base_asset, name, symbol, supply, launched_at, graduated_at
		FROM tokens WHERE address = ?`, address)

	var t models.TokenRecord
	err := row.Scan(&t.Address, &t.Pair, &t.Creator, &t.BaseAsset, &t.Name, &t.Symbol,
		&t.Supply, &t.LaunchedAt, &t.GraduatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: token %s", ErrNotFound, address)
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	return &t, nil
}

func (s *sqliteStorage) ListTokens(ctx context.Context, limit, offset int) ([]*models.TokenRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, pair, creator, base_asset, name, symbol, supply, launched_at, graduated_at
		FROM tokens ORDER BY launched_at LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var out []*models.TokenRecord
	for rows.Next() {
		var t models.TokenRecord
		if err := rows.Scan(&t.Address, &t.Pair, &t.Creator, &t.BaseAsset, &t.Name,
			&t.Symbol, &t.Supply, &t.LaunchedAt, &t.GraduatedAt); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *sqliteStorage) SaveTrade(ctx context.Context, tr *models.TradeRecord) error {
	return s.execRetry(ctx, `
		INSERT INTO trades (token, trader, side, amount_in, amount_out, price, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tr.Token, tr.Trader, tr.Side, tr.AmountIn, tr.AmountOut, tr.Price, tr.ExecutedAt.UTC())
}

func (s *sqliteStorage) ListTrades(ctx context.Context, token string, limit, offset int) ([]*models.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, token, trader, side, amount_in, amount_out, price, executed_at
		FROM trades WHERE (? = '' OR token = ?) ORDER BY id LIMIT ? OFFSET ?`,
		token, token, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	var out []*models.TradeRecord
	for rows.Next() {
		var tr models.TradeRecord
		if err := rows.Scan(&tr.ID, &tr.Token, &tr.Trader, &tr.Side, &tr.AmountIn,
			&tr.AmountOut, &tr.Price, &tr.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		out = append(out, &tr)
	}
	return out, rows.Err()
}

// SaveGraduation records the graduation and stamps the token row in the same
// transaction.
func (s *sqliteStorage) SaveGraduation(ctx context.Context, g *models.GraduationRecord) error {
	op := func() (struct{}, error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return struct{}{}, classify(err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO graduations (token, pool, token_seeded, asset_seeded, graduated_at)
			VALUES (?, ?, ?, ?, ?)`,
			g.Token, g.Pool, g.TokenSeeded, g.AssetSeeded, g.GraduatedAt.UTC()); err != nil {
			return struct{}{}, classify(err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE tokens SET graduated_at = ? WHERE address = ?`,
			g.GraduatedAt.UTC(), g.Token); err != nil {
			return struct{}{}, classify(err)
		}
		return struct{}{}, classify(tx.Commit())
	}
	_, err := backoff.Retry(ctx, op, s.retryOptions()...)
	return err
}

func (s *sqliteStorage) GetGraduation(ctx context.Context, token string) (*models.GraduationRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token, pool, token_seeded, asset_seeded, graduated_at
		FROM graduations WHERE token = ?`, token)

	var g models.GraduationRecord
	err := row.Scan(&g.Token, &g.Pool, &g.TokenSeeded, &g.AssetSeeded, &g.GraduatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: graduation of %s", ErrNotFound, token)
	}
	if err != nil {
		return nil, fmt.Errorf("get graduation: %w", err)
	}
	return &g, nil
}

func (s *sqliteStorage) Close() error {
	return s.db.Close()
}

// execRetry runs a write, retrying while the database is busy.
func (s *sqliteStorage) execRetry(ctx context.Context, query string, args ...interface{}) error {
	op := func() (struct{}, error) {
		_, err := s.db.ExecContext(ctx, query, args...)
		return struct{}{}, classify(err)
	}
	_, err := backoff.Retry(ctx, op, s.retryOptions()...)
	return err
}

func (s *sqliteStorage) retryOptions() []backoff.RetryOption {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = 500 * time.Millisecond

	notify := func(err error, duration time.Duration) {
		s.logger.Warn("Database busy, retrying",
			zap.Error(err),
			zap.Duration("backoff", duration))
	}
	return []backoff.RetryOption{
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(5),
		backoff.WithNotify(notify),
	}
}

// classify marks non-contention errors permanent so they are not retried.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") {
		return err
	}
	return backoff.Permanent(err)
}
