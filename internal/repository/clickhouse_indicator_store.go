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

// CHIndicatorStore implements IndicatorStore backed by ClickHouse. Points
// live in a ReplacingMergeTree ordered by (ticker, name, session date), so
// a recomputed session supersedes the earlier row instead of duplicating.
type CHIndicatorStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHIndicatorStore(ch *pkgch.Client) *CHIndicatorStore {
	return &CHIndicatorStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHIndicatorStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHIndicatorStore) StorePoints(ctx context.Context, points []models.IndicatorPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO wisetrade.indicator_points (ticker, name, session_at, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, p.Ticker, p.Name, p.SessionAt, p.Value); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert indicator: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if s.l != nil {
		s.l.Debug("clickhouse indicators stored",
			applogger.String("ticker", points[0].Ticker),
			applogger.Int("points", len(points)),
		)
	}
	return nil
}

func (s *CHIndicatorStore) Latest(ctx context.Context, ticker string) (models.IndicatorSet, time.Time, error) {
	const q = `
        SELECT name, argMax(value, session_at), max(session_at)
        FROM wisetrade.indicator_points FINAL
        WHERE ticker = ?
        GROUP BY name
    `
	rows, err := s.db.QueryContext(ctx, q, ticker)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("query indicators: %w", err)
	}
	defer rows.Close()

	set := make(models.IndicatorSet)
	var newest time.Time
	for rows.Next() {
		var name string
		var value float64
		var sessionAt time.Time
		if err := rows.Scan(&name, &value, &sessionAt); err != nil {
			return nil, time.Time{}, fmt.Errorf("scan indicator: %w", err)
		}
		set[name] = value
		if sessionAt.After(newest) {
			newest = sessionAt
		}
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("rows: %w", err)
	}
	if len(set) == 0 {
		return nil, time.Time{}, sql.ErrNoRows
	}
	return set, newest, nil
}
