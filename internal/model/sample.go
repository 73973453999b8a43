// Package model defines the data types shared across the chart engine:
// generic time-series samples, OHLCV price bars, indicator output points,
// and searchable symbol entries.
//
// Timestamps are float64 so the engine is agnostic to the host's time unit
// (seconds or milliseconds) — it only ever compares and averages them.
// All sequences are expected to be ordered by timestamp ascending; the
// engine does not sort.
package model

// Sample is a single (timestamp, value) point of a generic time series.
// Used by the downsampler for both raw price series and indicator outputs.
type Sample struct {
	TS    float64 `json:"ts"`
	Value float64 `json:"value"`
}

// IndicatorPoint is one output sample of an indicator computation.
// Its timestamp is always that of the price bar that produced it,
// never interpolated.
type IndicatorPoint struct {
	TS    float64 `json:"ts"`
	Value float64 `json:"value"`
}
