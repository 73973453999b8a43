package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"chartengine/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{DBPath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedBars(t *testing.T, s *Store, symbol string, n int) {
	t.Helper()
	bars := make([]model.PriceBar, n)
	for i := range bars {
		v := 100.0 + float64(i)
		bars[i] = model.PriceBar{
			TS: float64((i + 1) * 60), Open: v, High: v + 1, Low: v - 1, Close: v, Volume: 10,
		}
	}
	if _, err := s.UpsertBars(symbol, bars); err != nil {
		t.Fatalf("UpsertBars: %v", err)
	}
}

// ────────────────────────────────────────────
// Bars
// ────────────────────────────────────────────

func TestUpsertAndQueryBars(t *testing.T) {
	s := openTestStore(t)
	seedBars(t, s, "AAPL", 10)

	bars, err := s.QueryBars(context.Background(), "AAPL", 0, 0, 0)
	if err != nil {
		t.Fatalf("QueryBars: %v", err)
	}
	if len(bars) != 10 {
		t.Fatalf("got %d bars, want 10", len(bars))
	}
	for i := 1; i < len(bars); i++ {
		if bars[i].TS <= bars[i-1].TS {
			t.Fatal("bars not in ascending timestamp order")
		}
	}
	if bars[0].Close != 100 || bars[9].Close != 109 {
		t.Errorf("unexpected close values: first=%v last=%v", bars[0].Close, bars[9].Close)
	}
}

func TestUpsertBars_ReplacesOnSameTimestamp(t *testing.T) {
	s := openTestStore(t)
	seedBars(t, s, "AAPL", 3)

	// Re-ingest ts=60 with a revised close
	if _, err := s.UpsertBars("AAPL", []model.PriceBar{
		{TS: 60, Open: 1, High: 2, Low: 0.5, Close: 999, Volume: 1},
	}); err != nil {
		t.Fatalf("UpsertBars: %v", err)
	}

	bars, err := s.QueryBars(context.Background(), "AAPL", 0, 0, 0)
	if err != nil {
		t.Fatalf("QueryBars: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3 (replace, not append)", len(bars))
	}
	if bars[0].Close != 999 {
		t.Errorf("close = %v, want revised 999", bars[0].Close)
	}
}

func TestQueryBars_RangeAndLimit(t *testing.T) {
	s := openTestStore(t)
	seedBars(t, s, "AAPL", 10)

	bars, err := s.QueryBars(context.Background(), "AAPL", 120, 300, 0)
	if err != nil {
		t.Fatalf("QueryBars: %v", err)
	}
	if len(bars) != 4 { // ts 120, 180, 240, 300
		t.Errorf("range query got %d bars, want 4", len(bars))
	}

	bars, err = s.QueryBars(context.Background(), "AAPL", 0, 0, 3)
	if err != nil {
		t.Fatalf("QueryBars: %v", err)
	}
	if len(bars) != 3 || bars[0].TS != 60 {
		t.Errorf("limit query got %d bars starting at %v, want 3 from ts 60", len(bars), bars[0].TS)
	}
}

func TestQueryBars_SymbolsIsolated(t *testing.T) {
	s := openTestStore(t)
	seedBars(t, s, "AAPL", 5)
	seedBars(t, s, "TSLA", 2)

	bars, err := s.QueryBars(context.Background(), "TSLA", 0, 0, 0)
	if err != nil {
		t.Fatalf("QueryBars: %v", err)
	}
	if len(bars) != 2 {
		t.Errorf("got %d TSLA bars, want 2", len(bars))
	}
}

func TestLastTimestamp(t *testing.T) {
	s := openTestStore(t)

	ts, err := s.LastTimestamp(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("LastTimestamp: %v", err)
	}
	if ts != 0 {
		t.Errorf("empty store: got %v, want 0", ts)
	}

	seedBars(t, s, "AAPL", 5)
	ts, err = s.LastTimestamp(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("LastTimestamp: %v", err)
	}
	if ts != 300 {
		t.Errorf("got %v, want 300", ts)
	}
}

// ────────────────────────────────────────────
// Symbol directory
// ────────────────────────────────────────────

func TestSymbolDirectory(t *testing.T) {
	s := openTestStore(t)

	for _, e := range []model.SymbolEntry{
		{Symbol: "TSLA", Name: "Tesla, Inc."},
		{Symbol: "AAPL", Name: "Apple Inc."},
	} {
		if err := s.UpsertSymbol(e); err != nil {
			t.Fatalf("UpsertSymbol: %v", err)
		}
	}
	// Renaming is an upsert, not a duplicate
	if err := s.UpsertSymbol(model.SymbolEntry{Symbol: "AAPL", Name: "Apple"}); err != nil {
		t.Fatalf("UpsertSymbol: %v", err)
	}

	entries, err := s.ListSymbols(context.Background())
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Symbol != "AAPL" || entries[0].Name != "Apple" {
		t.Errorf("first entry = %+v, want renamed AAPL", entries[0])
	}
}
