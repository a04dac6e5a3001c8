package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wisetrade/internal/domain/models"
	pkgch "wisetrade/pkg/clickhouse"
	applogger "wisetrade/pkg/logger"
)

// Bars live in a ReplacingMergeTree so re-fetched sessions overwrite in
// place instead of duplicating.
var barSchema = []string{
	`CREATE DATABASE IF NOT EXISTS wisetrade`,
	`CREATE TABLE IF NOT EXISTS wisetrade.daily_bars (
        ticker     LowCardinality(String),
        session_at Date,
        open       Float64,
        high       Float64,
        low        Float64,
        close      Float64,
        volume     Float64,
        source     LowCardinality(String),
        updated_at DateTime DEFAULT now()
    ) ENGINE = ReplacingMergeTree(updated_at)
    ORDER BY (ticker, session_at)`,
	`CREATE TABLE IF NOT EXISTS wisetrade.indicator_points (
        ticker     LowCardinality(String),
        name       LowCardinality(String),
        session_at Date,
        value      Float64,
        updated_at DateTime DEFAULT now()
    ) ENGINE = ReplacingMergeTree(updated_at)
    ORDER BY (ticker, name, session_at)`,
}

// CHBarStore implements BarStore backed by ClickHouse.
type CHBarStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client) *CHBarStore {
	return &CHBarStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHBarStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHBarStore) Init(ctx context.Context) error {
	for _, stmt := range barSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init bar schema: %w", err)
		}
	}
	return nil
}

func (s *CHBarStore) StoreBatch(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO wisetrade.daily_bars (ticker, session_at, open, high, low, close, volume, source) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, b.Ticker, b.SessionAt, b.Open, b.High, b.Low, b.Close, b.Volume, b.Source); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert bar: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if s.l != nil {
		s.l.Debug("clickhouse bars stored",
			applogger.String("ticker", bars[0].Ticker),
			applogger.Int("rows", len(bars)),
			applogger.Duration("took", time.Since(start)),
		)
	}
	return nil
}

func (s *CHBarStore) Query(ctx context.Context, ticker string, from, to time.Time) ([]models.Bar, error) {
	const q = `
        SELECT ticker, session_at, open, high, low, close, volume, source
        FROM wisetrade.daily_bars FINAL
        WHERE ticker = ? AND session_at >= ? AND session_at <= ?
        ORDER BY session_at ASC
    `
	rows, err := s.db.QueryContext(ctx, q, ticker, from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse bar query error",
				applogger.String("ticker", ticker),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 256)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Ticker, &b.SessionAt, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Source); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHBarStore) LastSession(ctx context.Context, ticker string) (time.Time, error) {
	const q = `SELECT max(session_at) FROM wisetrade.daily_bars WHERE ticker = ?`

	var last time.Time
	if err := s.db.QueryRowContext(ctx, q, ticker).Scan(&last); err != nil {
		return time.Time{}, fmt.Errorf("last session: %w", err)
	}
	if last.IsZero() || last.Year() < 1971 {
		return time.Time{}, sql.ErrNoRows
	}
	return last, nil
}

func (s *CHBarStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHBarStore) Close() error {
	return nil // pool is owned by the clickhouse client
}
