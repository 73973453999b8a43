package indicator

import (
	"math"
	"testing"

	"chartengine/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func bar(ts, close float64) model.PriceBar {
	return model.PriceBar{
		TS: ts, Open: close, High: close + 1, Low: close - 1, Close: close, Volume: 100,
	}
}

func fullBar(ts, high, low, close, volume float64) model.PriceBar {
	return model.PriceBar{TS: ts, Open: close, High: high, Low: low, Close: close, Volume: volume}
}

// sampleBars builds the reference series used across tests:
// closes 11,12,13,14,15,14,13,12,11,10 at ts 1..10.
func sampleBars() []model.PriceBar {
	closes := []float64{11, 12, 13, 14, 15, 14, 13, 12, 11, 10}
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = bar(float64(i+1), c)
	}
	return bars
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.9f, want %.9f (tol=%g)", label, got, want, tol)
	}
}

// ────────────────────────────────────────────────────────────
// SMA Correctness
// ────────────────────────────────────────────────────────────

func TestSMA_GoldenValues_Period3(t *testing.T) {
	// Closes: 11,12,13,14,15,...
	// SMA(3) point 1: (11+12+13)/3 = 12.0 at ts of 3rd bar
	// SMA(3) point 2: (12+13+14)/3 = 13.0
	bars := sampleBars()
	got := SMA(bars, 3)

	if len(got) != 8 {
		t.Fatalf("len: got %d, want 8", len(got))
	}
	assertClose(t, "SMA(3)[0]", got[0].Value, 12.0, 1e-9)
	if got[0].TS != 3.0 {
		t.Errorf("SMA(3)[0].TS: got %v, want 3.0", got[0].TS)
	}
	assertClose(t, "SMA(3)[1]", got[1].Value, 13.0, 1e-9)
}

func TestSMA_InvalidPeriods(t *testing.T) {
	bars := sampleBars()
	for _, period := range []int{0, -1, len(bars) + 1, 100} {
		if got := SMA(bars, period); len(got) != 0 {
			t.Errorf("period %d: got %d points, want empty", period, len(got))
		}
	}
}

func TestSMA_Period1_EchoesCloses(t *testing.T) {
	bars := sampleBars()
	got := SMA(bars, 1)
	if len(got) != len(bars) {
		t.Fatalf("len: got %d, want %d", len(got), len(bars))
	}
	for i, p := range got {
		assertClose(t, "SMA(1)", p.Value, bars[i].Close, 1e-9)
		if p.TS != bars[i].TS {
			t.Errorf("SMA(1)[%d].TS: got %v, want %v", i, p.TS, bars[i].TS)
		}
	}
}

func TestSMA_PeriodEqualsLen(t *testing.T) {
	bars := sampleBars()
	got := SMA(bars, len(bars))
	if len(got) != 1 {
		t.Fatalf("len: got %d, want 1", len(got))
	}
	sum := 0.0
	for _, b := range bars {
		sum += b.Close
	}
	assertClose(t, "SMA(n)", got[0].Value, sum/float64(len(bars)), 1e-9)
}

func TestSMA_SlidingMatchesNaive(t *testing.T) {
	// The incremental sum must stay within float tolerance of a full
	// per-window recomputation over a long, drifting series.
	bars := make([]model.PriceBar, 500)
	for i := range bars {
		bars[i] = bar(float64(i), 100+40*math.Sin(float64(i)/7))
	}
	const period = 14
	got := SMA(bars, period)

	for i, p := range got {
		sum := 0.0
		for j := i; j < i+period; j++ {
			sum += bars[j].Close
		}
		assertClose(t, "SMA sliding vs naive", p.Value, sum/period, 1e-9)
	}
}

// ────────────────────────────────────────────────────────────
// EMA Correctness
// ────────────────────────────────────────────────────────────

func TestEMA_SeedEqualsSMA(t *testing.T) {
	bars := sampleBars()
	for period := 1; period <= len(bars); period++ {
		ema := EMA(bars, period)
		sma := SMA(bars, period)
		if len(ema) == 0 || len(sma) == 0 {
			t.Fatalf("period %d: unexpected empty result", period)
		}
		assertClose(t, "EMA seed vs SMA", ema[0].Value, sma[0].Value, 1e-9)
		if ema[0].TS != sma[0].TS {
			t.Errorf("period %d: seed TS mismatch: %v vs %v", period, ema[0].TS, sma[0].TS)
		}
	}
}

func TestEMA_GoldenValues_Period3(t *testing.T) {
	// k = 2/(3+1) = 0.5
	// Seed: (11+12+13)/3 = 12.0
	// Next: 14*0.5 + 12.0*0.5 = 13.0
	// Next: 15*0.5 + 13.0*0.5 = 14.0
	bars := sampleBars()
	got := EMA(bars, 3)

	if len(got) != 8 {
		t.Fatalf("len: got %d, want 8", len(got))
	}
	assertClose(t, "EMA(3)[0]", got[0].Value, 12.0, 1e-9)
	assertClose(t, "EMA(3)[1]", got[1].Value, 13.0, 1e-9)
	assertClose(t, "EMA(3)[2]", got[2].Value, 14.0, 1e-9)
}

func TestEMA_InvalidPeriods(t *testing.T) {
	bars := sampleBars()
	for _, period := range []int{0, -3, len(bars) + 1} {
		if got := EMA(bars, period); len(got) != 0 {
			t.Errorf("period %d: got %d points, want empty", period, len(got))
		}
	}
}

func TestEMA_RecurrenceChain(t *testing.T) {
	// Verify every output against the recurrence applied by hand.
	bars := sampleBars()
	const period = 5
	k := 2.0 / float64(period+1)

	got := EMA(bars, period)
	prev := got[0].Value
	for i := 1; i < len(got); i++ {
		want := bars[period+i-1].Close*k + prev*(1-k)
		assertClose(t, "EMA chain", got[i].Value, want, 1e-9)
		prev = want
	}
}

// ────────────────────────────────────────────────────────────
// RSI Correctness (Wilder's Method)
// ────────────────────────────────────────────────────────────

func TestRSI_GoldenValues_Period5(t *testing.T) {
	// Closes: 44.00, 44.34, 44.09, 43.61, 44.33, 44.83, 45.10, 45.42, 45.84
	//
	// Deltas: +0.34, -0.25, -0.48, +0.72, +0.50
	// avgGain = (0.34+0.72+0.50)/5 = 0.312
	// avgLoss = (0.25+0.48)/5      = 0.146
	// RS = 2.13699  → first RSI = 100 - 100/(1+RS) = 68.1223  (at bar 6)
	//
	// Bar 7 (+0.27): avgGain=(0.312*4+0.27)/5=0.3036, avgLoss=0.584/5=0.1168
	//   RSI = 72.2169
	// Bar 8 (+0.32): avgGain=0.30688, avgLoss=0.09344 → RSI = 76.6587
	// Bar 9 (+0.42): avgGain=0.329504, avgLoss=0.074752 → RSI = 81.5087
	closes := []float64{44.00, 44.34, 44.09, 43.61, 44.33, 44.83, 45.10, 45.42, 45.84}
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = bar(float64(i+1), c)
	}

	got := RSI(bars, 5)
	if len(got) != 4 {
		t.Fatalf("len: got %d, want 4", len(got))
	}
	if got[0].TS != 6.0 {
		t.Errorf("first RSI TS: got %v, want 6.0 (bar at index period)", got[0].TS)
	}
	assertClose(t, "RSI[0]", got[0].Value, 68.1223, 0.001)
	assertClose(t, "RSI[1]", got[1].Value, 72.2169, 0.001)
	assertClose(t, "RSI[2]", got[2].Value, 76.6587, 0.001)
	assertClose(t, "RSI[3]", got[3].Value, 81.5087, 0.001)
}

func TestRSI_Bounded(t *testing.T) {
	bars := sampleBars()
	for period := 1; period < len(bars); period++ {
		for _, p := range RSI(bars, period) {
			if p.Value < 0 || p.Value > 100 {
				t.Errorf("period %d: RSI %v out of [0,100]", period, p.Value)
			}
		}
	}
}

func TestRSI_AllGains_Is100(t *testing.T) {
	bars := make([]model.PriceBar, 10)
	for i := range bars {
		bars[i] = bar(float64(i), 10+float64(i))
	}
	got := RSI(bars, 5)
	if len(got) == 0 {
		t.Fatal("unexpected empty result")
	}
	for _, p := range got {
		assertClose(t, "RSI all gains", p.Value, 100.0, 1e-9)
	}
}

func TestRSI_AllLosses_Is0(t *testing.T) {
	bars := make([]model.PriceBar, 10)
	for i := range bars {
		bars[i] = bar(float64(i), 100-float64(i))
	}
	got := RSI(bars, 5)
	if len(got) == 0 {
		t.Fatal("unexpected empty result")
	}
	for _, p := range got {
		assertClose(t, "RSI all losses", p.Value, 0.0, 1e-9)
	}
}

func TestRSI_FlatWindow_Is100(t *testing.T) {
	// All deltas zero → avgGain = avgLoss = 0. The loss-zero branch wins,
	// so a fully flat window reads 100, not 50.
	bars := make([]model.PriceBar, 10)
	for i := range bars {
		bars[i] = bar(float64(i), 42)
	}
	got := RSI(bars, 5)
	for _, p := range got {
		assertClose(t, "RSI flat", p.Value, 100.0, 1e-9)
	}
}

func TestRSI_InsufficientData(t *testing.T) {
	bars := sampleBars()
	if got := RSI(bars[:5], 5); len(got) != 0 {
		t.Errorf("len(bars)==period: got %d points, want empty", len(got))
	}
	if got := RSI(bars, 0); len(got) != 0 {
		t.Errorf("period 0: got %d points, want empty", len(got))
	}
	if got := RSI(nil, 5); len(got) != 0 {
		t.Errorf("nil bars: got %d points, want empty", len(got))
	}
}

func TestRSI_ExactMinimumLength(t *testing.T) {
	// len == period+1 → exactly one output point.
	bars := sampleBars()[:6]
	got := RSI(bars, 5)
	if len(got) != 1 {
		t.Fatalf("len: got %d, want 1", len(got))
	}
}

// ────────────────────────────────────────────────────────────
// VWAP Correctness
// ────────────────────────────────────────────────────────────

func TestVWAP_SingleBar(t *testing.T) {
	// typical = (15+5+12)/3 ≈ 10.6667
	bars := []model.PriceBar{fullBar(1, 15, 5, 12, 1000)}
	got := VWAP(bars, VWAPOptions{})
	if len(got) != 1 {
		t.Fatalf("len: got %d, want 1", len(got))
	}
	assertClose(t, "VWAP single", got[0].Value, (15.0+5.0+12.0)/3.0, 1e-9)
}

func TestVWAP_Empty(t *testing.T) {
	if got := VWAP(nil, VWAPOptions{}); len(got) != 0 {
		t.Errorf("got %d points, want empty", len(got))
	}
}

func TestVWAP_Cumulative(t *testing.T) {
	// Bar 1: tp=(30+10+20)/3=20, vol=100 → vwap=20
	// Bar 2: tp=(60+20+40)/3=40, vol=200 → vwap=(2000+8000)/300 ≈ 33.333
	bars := []model.PriceBar{
		fullBar(1, 30, 10, 20, 100),
		fullBar(2, 60, 20, 40, 200),
	}
	got := VWAP(bars, VWAPOptions{})
	assertClose(t, "VWAP[0]", got[0].Value, 20.0, 1e-9)
	assertClose(t, "VWAP[1]", got[1].Value, 10000.0/300.0, 1e-9)
}

func TestVWAP_ZeroVolumeFallsBackToTypical(t *testing.T) {
	// No volume accumulated yet → each bar emits its own typical price,
	// never NaN.
	bars := []model.PriceBar{
		fullBar(1, 12, 8, 10, 0),
		fullBar(2, 22, 18, 20, 0),
	}
	got := VWAP(bars, VWAPOptions{})
	assertClose(t, "VWAP zero-vol[0]", got[0].Value, 10.0, 1e-9)
	assertClose(t, "VWAP zero-vol[1]", got[1].Value, 20.0, 1e-9)
	for _, p := range got {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			t.Fatalf("VWAP emitted %v", p.Value)
		}
	}
}

func TestVWAP_NoReset_AccumulatesAcrossGap(t *testing.T) {
	// Identical bars across a huge gap: cumulative mode keeps the running
	// sums, so the value stays the blended average.
	bars := []model.PriceBar{
		fullBar(0, 30, 10, 20, 100),     // tp=20
		fullBar(100000, 60, 20, 40, 100), // tp=40, gap >> 4h
	}
	got := VWAP(bars, VWAPOptions{ResetOnGap: false})
	assertClose(t, "VWAP no-reset[1]", got[1].Value, (20.0*100+40.0*100)/200.0, 1e-9)
}

func TestVWAP_ResetOnGap(t *testing.T) {
	bars := []model.PriceBar{
		fullBar(0, 30, 10, 20, 100),      // tp=20
		fullBar(100000, 60, 20, 40, 100), // gap > default threshold → reset
	}
	got := VWAP(bars, VWAPOptions{ResetOnGap: true})
	assertClose(t, "VWAP reset[0]", got[0].Value, 20.0, 1e-9)
	// After reset the second bar stands alone: vwap = its typical price.
	assertClose(t, "VWAP reset[1]", got[1].Value, 40.0, 1e-9)
}

func TestVWAP_ResetThresholdBoundary(t *testing.T) {
	// Gap exactly equal to the threshold must NOT reset (strictly greater).
	bars := []model.PriceBar{
		fullBar(0, 30, 10, 20, 100),
		fullBar(3600, 60, 20, 40, 100),
	}
	got := VWAP(bars, VWAPOptions{ResetOnGap: true, GapThreshold: 3600})
	assertClose(t, "VWAP at-threshold", got[1].Value, (20.0*100+40.0*100)/200.0, 1e-9)

	// One unit past the threshold resets.
	bars[1].TS = 3601
	got = VWAP(bars, VWAPOptions{ResetOnGap: true, GapThreshold: 3600})
	assertClose(t, "VWAP past-threshold", got[1].Value, 40.0, 1e-9)
}

func TestVWAP_DefaultGapThreshold(t *testing.T) {
	// GapThreshold 0 falls back to the 4-hour default.
	bars := []model.PriceBar{
		fullBar(0, 30, 10, 20, 100),
		fullBar(DefaultGapThreshold + 1, 60, 20, 40, 100),
	}
	got := VWAP(bars, VWAPOptions{ResetOnGap: true})
	assertClose(t, "VWAP default threshold", got[1].Value, 40.0, 1e-9)
}

// ────────────────────────────────────────────────────────────
// Compute dispatch
// ────────────────────────────────────────────────────────────

func TestCompute_KnownKinds(t *testing.T) {
	bars := sampleBars()
	for _, kind := range []string{KindSMA, KindEMA, KindRSI, KindVWAP} {
		got, ok := Compute(kind, bars, 3, VWAPOptions{})
		if !ok {
			t.Errorf("kind %q: not recognized", kind)
		}
		if len(got) == 0 {
			t.Errorf("kind %q: unexpected empty result", kind)
		}
	}
}

func TestCompute_UnknownKind(t *testing.T) {
	if _, ok := Compute("macd", sampleBars(), 3, VWAPOptions{}); ok {
		t.Error("unknown kind should report ok=false")
	}
}

// ────────────────────────────────────────────────────────────
// Purity
// ────────────────────────────────────────────────────────────

func TestIndicators_InputNotMutated(t *testing.T) {
	bars := sampleBars()
	orig := make([]model.PriceBar, len(bars))
	copy(orig, bars)

	SMA(bars, 3)
	EMA(bars, 3)
	RSI(bars, 3)
	VWAP(bars, VWAPOptions{ResetOnGap: true})

	for i := range bars {
		if bars[i] != orig[i] {
			t.Fatalf("input mutated at index %d", i)
		}
	}
}
