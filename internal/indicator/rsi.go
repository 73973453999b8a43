package indicator

import (
	"math"

	"chartengine/internal/model"
)

// RSI computes the Relative Strength Index using Wilder's smoothing.
//
// Requires period >= 1 and len(bars) >= period+1; otherwise empty. Values
// are always in [0, 100]: monotonically rising closes pin it at 100,
// monotonically falling at 0.
//
// The zero-division branches are ordered: avgLoss == 0 yields 100 even when
// avgGain is also 0, so an all-flat window reads as maximal strength. That
// ordering mirrors the production deployment this engine replaces; a 50-flat
// convention exists elsewhere but is deliberately not used here.
func RSI(bars []model.PriceBar, period int) []model.IndicatorPoint {
	if period <= 0 || len(bars) < period+1 {
		return []model.IndicatorPoint{}
	}

	out := make([]model.IndicatorPoint, 0, len(bars)-period)

	// Initial averages over the first period close-to-close transitions.
	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := bars[i].Close - bars[i-1].Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += math.Abs(change)
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out = append(out, model.IndicatorPoint{
		TS:    bars[period].TS,
		Value: rsiValue(avgGain, avgLoss),
	})

	p := float64(period)
	for i := period + 1; i < len(bars); i++ {
		change := bars[i].Close - bars[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = math.Abs(change)
		}

		// Wilder's smoothing: weight 1/period on the new transition.
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p

		out = append(out, model.IndicatorPoint{
			TS:    bars[i].TS,
			Value: rsiValue(avgGain, avgLoss),
		})
	}

	return out
}

// rsiValue applies the RSI formula with the ordered zero-division policy.
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	if avgGain == 0 {
		return 0.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
