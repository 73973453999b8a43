// Package resample aggregates fine-grained OHLCV bars into coarser
// timeframes for charting (e.g. 1-minute bars into 5-minute or 1-hour).
package resample

import (
	"math"

	"chartengine/internal/model"
)

// Resample buckets ordered bars into tf-sized windows and aggregates each
// bucket into a single bar: open from the first bar, close from the last,
// high/low extrema, volumes summed. Bucket start = ts - mod(ts, tf), so
// output timestamps are tf-aligned.
//
// tf is in the same unit as bar timestamps. A tf <= 0 returns a copy of
// the input unchanged. Input order is preserved; the input is not mutated.
func Resample(bars []model.PriceBar, tf float64) []model.PriceBar {
	if tf <= 0 || len(bars) == 0 {
		out := make([]model.PriceBar, len(bars))
		copy(out, bars)
		return out
	}

	out := make([]model.PriceBar, 0, len(bars))

	var cur model.PriceBar
	curBucket := math.NaN()

	for _, b := range bars {
		bucket := b.TS - math.Mod(b.TS, tf)

		if bucket != curBucket {
			if !math.IsNaN(curBucket) {
				out = append(out, cur)
			}
			curBucket = bucket
			cur = model.PriceBar{
				TS:     bucket,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			}
			continue
		}

		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}

	if !math.IsNaN(curBucket) {
		out = append(out, cur)
	}

	return out
}
