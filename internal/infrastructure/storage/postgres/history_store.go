package pgstore

import (
	"context"
	"errors"
	"fmt"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// HistoryStore keeps the portfolio totals in portfolio_history.
type HistoryStore struct {
	pool *Pool
}

var _ port.HistoryStore = (*HistoryStore)(nil)

// NewHistoryStore creates a new PostgreSQL history store.
func NewHistoryStore(pool *Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// Append stores a point. A second point with the same timestamp replaces the first.
func (s *HistoryStore) Append(ctx context.Context, point entity.HistoryPoint) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO portfolio_history (taken_at, value_usd)
		VALUES ($1, $2::numeric)
		ON CONFLICT (taken_at) DO UPDATE
		SET value_usd = EXCLUDED.value_usd
	`, point.Timestamp, point.ValueUSD.String())
	if err != nil {
		return fmt.Errorf("insert history point: %w", err)
	}
	return nil
}

// Last returns the most recent point.
func (s *HistoryStore) Last(ctx context.Context) (entity.HistoryPoint, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT taken_at, value_usd::text
		FROM portfolio_history
		ORDER BY taken_at DESC
		LIMIT 1
	`)

	point, err := scanPoint(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.HistoryPoint{}, false, nil
		}
		return entity.HistoryPoint{}, false, err
	}
	return point, true, nil
}

// List returns up to limit most recent points, oldest first.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]entity.HistoryPoint, error) {
	query := `
		SELECT taken_at, value_usd::text FROM (
			SELECT taken_at, value_usd FROM portfolio_history ORDER BY taken_at DESC LIMIT $1
		) recent
		ORDER BY taken_at ASC
	`
	var arg any
	if limit > 0 {
		arg = limit
	}

	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var points []entity.HistoryPoint
	for rows.Next() {
		point, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return points, rows.Err()
}

func scanPoint(row pgx.Row) (entity.HistoryPoint, error) {
	var (
		point entity.HistoryPoint
		raw   string
	)
	if err := row.Scan(&point.Timestamp, &raw); err != nil {
		return entity.HistoryPoint{}, err
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return entity.HistoryPoint{}, fmt.Errorf("invalid value_usd %q: %w", raw, err)
	}
	point.ValueUSD = value
	return point, nil
}
