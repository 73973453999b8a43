package indicator

import "chartengine/internal/model"

// EMA computes the Exponential Moving Average of closing prices.
//
// The first output value is the SMA of the first period closes — callers
// rely on EMA(bars, p)[0] == SMA(bars, p)[0]. Subsequent values follow
// ema = close*k + prev*(1-k) with k = 2/(period+1). Guard conditions match
// SMA: period 0 or greater than len(bars) yields an empty result.
func EMA(bars []model.PriceBar, period int) []model.IndicatorPoint {
	if period <= 0 || period > len(bars) {
		return []model.IndicatorPoint{}
	}

	k := 2.0 / float64(period+1)

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += bars[i].Close
	}
	seed /= float64(period)

	out := make([]model.IndicatorPoint, 0, len(bars)-period+1)
	out = append(out, model.IndicatorPoint{
		TS:    bars[period-1].TS,
		Value: seed,
	})

	prev := seed
	for i := period; i < len(bars); i++ {
		ema := bars[i].Close*k + prev*(1-k)
		out = append(out, model.IndicatorPoint{
			TS:    bars[i].TS,
			Value: ema,
		})
		prev = ema
	}

	return out
}
