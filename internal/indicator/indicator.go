// Package indicator derives technical indicators from ordered OHLCV bars.
//
// Every indicator is a pure function: it takes the full bar sequence each
// call, never mutates its input, and returns a freshly allocated slice of
// timestamp-aligned points. Invalid parameters degrade to an empty result
// rather than an error, so callers only ever check for emptiness.
package indicator

import "chartengine/internal/model"

// Indicator kind names accepted by Compute.
const (
	KindSMA  = "sma"
	KindEMA  = "ema"
	KindRSI  = "rsi"
	KindVWAP = "vwap"
)

// Compute dispatches to the indicator named by kind.
// The period is ignored for VWAP; opts is ignored for everything else.
// The second return is false for an unknown kind.
func Compute(kind string, bars []model.PriceBar, period int, opts VWAPOptions) ([]model.IndicatorPoint, bool) {
	switch kind {
	case KindSMA:
		return SMA(bars, period), true
	case KindEMA:
		return EMA(bars, period), true
	case KindRSI:
		return RSI(bars, period), true
	case KindVWAP:
		return VWAP(bars, opts), true
	default:
		return nil, false
	}
}
