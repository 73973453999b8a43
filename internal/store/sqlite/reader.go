package sqlite

import (
	"context"
	"database/sql"

	"chartengine/internal/model"
)

// QueryBars returns bars for a symbol ordered by timestamp ascending,
// optionally bounded by [from, to] (a zero bound is ignored) and capped
// at limit rows (limit <= 0 means no cap).
func (s *Store) QueryBars(ctx context.Context, symbol string, from, to float64, limit int) ([]model.PriceBar, error) {
	query := `SELECT ts, open, high, low, close, volume FROM bars WHERE symbol = ?`
	args := []interface{}{symbol}

	if from > 0 {
		query += ` AND ts >= ?`
		args = append(args, from)
	}
	if to > 0 {
		query += ` AND ts <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY ts ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bars := make([]model.PriceBar, 0, 256)
	for rows.Next() {
		var b model.PriceBar
		if err := rows.Scan(&b.TS, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ListSymbols returns the full symbol directory ordered by symbol.
func (s *Store) ListSymbols(ctx context.Context) ([]model.SymbolEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, name FROM symbols ORDER BY symbol ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]model.SymbolEntry, 0, 64)
	for rows.Next() {
		var e model.SymbolEntry
		if err := rows.Scan(&e.Symbol, &e.Name); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LastTimestamp returns the newest stored bar timestamp for a symbol,
// or 0 if none exist.
func (s *Store) LastTimestamp(ctx context.Context, symbol string) (float64, error) {
	var ts sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(ts) FROM bars WHERE symbol = ?`, symbol,
	).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Float64, nil
}
