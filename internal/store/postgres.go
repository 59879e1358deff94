package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "stockwatch/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled
// PostgreSQL). Methods require a live database and are covered by the
// integration tests.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PostgresOption configures the connection pool before it is created.
type PostgresOption func(*pgxpool.Config)

// WithPoolSize sets the maximum number of pooled connections. Zero or
// negative values keep the default.
func WithPoolSize(n int) PostgresOption {
	return func(cfg *pgxpool.Config) {
		if n > 0 {
			cfg.MaxConns = int32(n)
		}
	}
}

// NewPostgresStore creates a PostgresStore and verifies connectivity.
func NewPostgresStore(ctx context.Context, connString string, opts ...PostgresOption) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// GetProduct retrieves a product snapshot by id.
func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*domain.StoredProduct, error) {
	p := &domain.StoredProduct{}
	err := scanProduct(s.pool.QueryRow(ctx, queryGetProduct, id), p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting product %s: %w", id, err)
	}
	return p, nil
}

// Classify looks up the stored state for p and computes the classification
// without mutating anything. It must run before UpsertProduct for the same
// record in the same cycle.
func (s *PostgresStore) Classify(ctx context.Context, p *domain.Product) (domain.Classification, error) {
	prev, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.ClassificationNew, nil
		}
		return "", err
	}
	return Decide(prev, p), nil
}

// UpsertProduct inserts or updates the snapshot row. Alerting
// classifications additionally bump last_alert_at/alert_count and append to
// the alert log. The statements run back-to-back without a transaction; a
// crash in between leaves a seen-but-unlogged alert, which the next cycle
// converges over (at-least-once, not exactly-once).
func (s *PostgresStore) UpsertProduct(
	ctx context.Context,
	p *domain.Product,
	c domain.Classification,
) error {
	sizes := p.Sizes
	if sizes == nil {
		sizes = map[string]int{}
	}
	sizesJSON, err := json.Marshal(sizes)
	if err != nil {
		return fmt.Errorf("marshaling sizes: %w", err)
	}

	args := pgx.NamedArgs{
		"id":          p.ID,
		"name":        p.Name,
		"price":       p.Price,
		"image_url":   p.ImageURL,
		"url":         p.URL,
		"sizes":       sizesJSON,
		"stock_level": p.StockLevel,
		"category":    p.Category,
	}

	var firstSeen, lastSeen time.Time
	if err := s.pool.QueryRow(ctx, queryUpsertProduct, args).Scan(&firstSeen, &lastSeen); err != nil {
		return fmt.Errorf("upserting product %s: %w", p.ID, err)
	}

	if !c.Alerting() {
		return nil
	}

	if _, err := s.pool.Exec(ctx, queryMarkAlerted, p.ID); err != nil {
		return fmt.Errorf("marking product %s alerted: %w", p.ID, err)
	}
	if _, err := s.pool.Exec(ctx, queryInsertAlert, p.ID, string(c)); err != nil {
		return fmt.Errorf("logging alert for product %s: %w", p.ID, err)
	}

	return nil
}

// DeactivateMissing flips is_active off for every product whose id is not
// in activeIDs and reports how many rows changed.
func (s *PostgresStore) DeactivateMissing(ctx context.Context, activeIDs []string) (int, error) {
	tag, err := s.pool.Exec(ctx, queryDeactivateMissing, activeIDs)
	if err != nil {
		return 0, fmt.Errorf("deactivating missing products: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListActiveProducts returns active products, most recently seen first.
func (s *PostgresStore) ListActiveProducts(
	ctx context.Context,
	limit int,
) ([]domain.StoredProduct, error) {
	rows, err := s.pool.Query(ctx, queryListActiveProducts, limit)
	if err != nil {
		return nil, fmt.Errorf("querying active products: %w", err)
	}
	defer rows.Close()

	var products []domain.StoredProduct
	for rows.Next() {
		var p domain.StoredProduct
		if err := scanProductRow(rows, &p); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}

	return products, nil
}

// RecordCheck appends one row to the check log.
func (s *PostgresStore) RecordCheck(ctx context.Context, found, alertsSent int) error {
	if _, err := s.pool.Exec(ctx, queryInsertCheck, found, alertsSent); err != nil {
		return fmt.Errorf("recording check: %w", err)
	}
	return nil
}

// Stats aggregates counts for summaries and the stats API. "Today" is the
// local wall-clock day of the running process, a deliberate simplification
// over a fixed UTC boundary.
func (s *PostgresStore) Stats(ctx context.Context) (*domain.Stats, error) {
	stats := &domain.Stats{}

	if err := s.pool.QueryRow(ctx, queryCountActiveProducts).
		Scan(&stats.TotalActiveProducts); err != nil {
		return nil, fmt.Errorf("counting active products: %w", err)
	}

	midnight := startOfLocalDay(time.Now())

	if err := s.pool.QueryRow(ctx, queryCountAlertsSince,
		string(domain.ClassificationNew), midnight).
		Scan(&stats.NewToday); err != nil {
		return nil, fmt.Errorf("counting new today: %w", err)
	}

	if err := s.pool.QueryRow(ctx, queryCountAlertsSince,
		string(domain.ClassificationRestocked), midnight).
		Scan(&stats.RestocksToday); err != nil {
		return nil, fmt.Errorf("counting restocks today: %w", err)
	}

	if err := s.pool.QueryRow(ctx, queryCountAllAlerts).
		Scan(&stats.TotalAlertsSent); err != nil {
		return nil, fmt.Errorf("counting alerts: %w", err)
	}

	var lastCheck time.Time
	err := s.pool.QueryRow(ctx, queryLastCheckAt).Scan(&lastCheck)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// No cycles recorded yet.
	case err != nil:
		return nil, fmt.Errorf("reading last check: %w", err)
	default:
		stats.LastCheckAt = &lastCheck
	}

	return stats, nil
}

func startOfLocalDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, p *domain.StoredProduct) error {
	var sizesJSON []byte

	if err := row.Scan(
		&p.ID, &p.Name, &p.Price, &p.ImageURL, &p.URL,
		&sizesJSON, &p.StockLevel, &p.Category,
		&p.FirstSeenAt, &p.LastSeenAt, &p.LastAlertAt, &p.AlertCount, &p.IsActive,
	); err != nil {
		return err
	}

	if err := json.Unmarshal(sizesJSON, &p.Sizes); err != nil {
		return fmt.Errorf("unmarshaling sizes: %w", err)
	}

	return nil
}

func scanProductRow(rows pgx.Rows, p *domain.StoredProduct) error {
	return scanProduct(rows, p)
}
