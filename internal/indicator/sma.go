package indicator

import "chartengine/internal/model"

// SMA computes the Simple Moving Average of closing prices.
//
// Returns len(bars)-period+1 points, the first timestamped at the period-th
// bar. A period of 0 or greater than len(bars) yields an empty result.
//
// The window sum is maintained incrementally (add the new close, subtract
// the dropped one) rather than re-summed per step. This is part of the
// contract, not just an optimization: full recomputation rounds differently
// and would drift from the golden values downstream consumers test against.
func SMA(bars []model.PriceBar, period int) []model.IndicatorPoint {
	if period <= 0 || period > len(bars) {
		return []model.IndicatorPoint{}
	}

	out := make([]model.IndicatorPoint, 0, len(bars)-period+1)

	windowSum := 0.0
	for i := 0; i < period; i++ {
		windowSum += bars[i].Close
	}
	out = append(out, model.IndicatorPoint{
		TS:    bars[period-1].TS,
		Value: windowSum / float64(period),
	})

	for i := period; i < len(bars); i++ {
		windowSum += bars[i].Close - bars[i-period].Close
		out = append(out, model.IndicatorPoint{
			TS:    bars[i].TS,
			Value: windowSum / float64(period),
		})
	}

	return out
}
