package indicator

import "chartengine/internal/model"

// DefaultGapThreshold is the session-boundary gap used when VWAPOptions
// enables resets without naming a threshold: 4 hours, expressed in seconds
// (the same unit the host uses for bar timestamps).
const DefaultGapThreshold = 4 * 60 * 60

// VWAPOptions selects between the two deployed VWAP behaviors.
//
// With ResetOnGap false (the default) the cumulative sums run from the
// start of the series. With it true, a timestamp gap between consecutive
// bars exceeding GapThreshold resets the sums before the current bar,
// modeling VWAP restarting each trading session. Neither behavior is
// hard-coded; deployments disagree on which is correct.
type VWAPOptions struct {
	ResetOnGap   bool
	GapThreshold float64 // same unit as bar timestamps; 0 means DefaultGapThreshold
}

// VWAP computes the Volume-Weighted Average Price: one point per bar,
// cumulative typical-price*volume over cumulative volume.
//
// A bar arriving while cumulative volume is still zero (all-zero volume so
// far) falls back to its own typical price instead of dividing by zero —
// the output never contains NaN or infinity.
func VWAP(bars []model.PriceBar, opts VWAPOptions) []model.IndicatorPoint {
	if len(bars) == 0 {
		return []model.IndicatorPoint{}
	}

	gap := opts.GapThreshold
	if gap <= 0 {
		gap = DefaultGapThreshold
	}

	out := make([]model.IndicatorPoint, 0, len(bars))
	cumTPVol, cumVol := 0.0, 0.0

	for i, b := range bars {
		if opts.ResetOnGap && i > 0 && b.TS-bars[i-1].TS > gap {
			cumTPVol, cumVol = 0, 0
		}

		tp := b.TypicalPrice()
		cumTPVol += tp * b.Volume
		cumVol += b.Volume

		value := tp
		if cumVol > 0 {
			value = cumTPVol / cumVol
		}

		out = append(out, model.IndicatorPoint{
			TS:    b.TS,
			Value: value,
		})
	}

	return out
}
