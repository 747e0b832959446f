package ledger

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresStoreConfig controls the Postgres connection pool backing the
// ledger.
type PostgresStoreConfig struct {
	DSN      string
	Table    string
	MaxConns int32
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresStore persists ledger entries in a Postgres table, one row per
// article. Saves upsert every entry, mirroring the whole-map contract of the
// file store.
type PostgresStore struct {
	pool  pgxPool
	table string
}

// NewPostgresStore connects a pool and ensures the ledger table exists.
func NewPostgresStore(ctx context.Context, cfg PostgresStoreConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("ledger.postgres.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "price_ledger"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := &PostgresStore{pool: pool, table: table}
	if err := store.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresStoreWithPool(pool pgxPool, table string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "price_ledger"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

func (s *PostgresStore) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	article TEXT PRIMARY KEY,
	price NUMERIC NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure ledger table: %w", err)
	}
	return nil
}

// Load reads all ledger rows.
func (s *PostgresStore) Load(ctx context.Context) (map[string]decimal.Decimal, error) {
	query := fmt.Sprintf("SELECT article, price FROM %s", s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ledger rows: %w", err)
	}
	defer rows.Close()

	prices := make(map[string]decimal.Decimal)
	for rows.Next() {
		var (
			article string
			price   decimal.Decimal
		)
		if err := rows.Scan(&article, &price); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		prices[article] = price
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return prices, nil
}

// Save upserts every entry of the mapping.
func (s *PostgresStore) Save(ctx context.Context, prices map[string]decimal.Decimal) error {
	query := fmt.Sprintf(`
INSERT INTO %s (article, price) VALUES ($1, $2)
ON CONFLICT (article) DO UPDATE SET price = EXCLUDED.price`, s.table)
	for article, price := range prices {
		if _, err := s.pool.Exec(ctx, query, article, price); err != nil {
			return fmt.Errorf("upsert ledger row %q: %w", article, err)
		}
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}
