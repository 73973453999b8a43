// Package downsample reduces large ordered time series to a smaller,
// visually representative subset using Largest-Triangle-Three-Buckets.
package downsample

import (
	"math"

	"chartengine/internal/model"
)

// Downsample applies the LTTB algorithm to an ordered sample sequence.
//
// The first and last samples are always retained; each of the threshold-2
// interior buckets contributes the point forming the largest triangle with
// the previously selected point and the centroid of the next bucket. The
// input is never mutated; the result is freshly allocated. O(n).
//
// Degenerate parameters never fail: an empty input returns an empty slice,
// and threshold < 3 or len(samples) <= threshold returns a copy of the
// input unchanged.
func Downsample(samples []model.Sample, threshold int) []model.Sample {
	n := len(samples)

	if n == 0 {
		return []model.Sample{}
	}
	if threshold < 3 || n <= threshold {
		out := make([]model.Sample, n)
		copy(out, samples)
		return out
	}

	out := make([]model.Sample, 0, threshold)
	out = append(out, samples[0])

	// First and last points are fixed, so threshold-2 buckets are spread
	// across the n-2 interior points.
	bucketSize := float64(n-2) / float64(threshold-2)

	prevSelected := 0

	for i := 0; i < threshold-2; i++ {
		bucketStart := int(math.Floor(float64(i)*bucketSize)) + 1
		bucketEnd := int(math.Floor(float64(i+1)*bucketSize)) + 1
		if bucketEnd > n {
			bucketEnd = n
		}

		// Centroid of the next bucket, the anchor representing the
		// unselected future trend.
		nextStart := int(math.Floor(float64(i+1)*bucketSize)) + 1
		nextEnd := int(math.Floor(float64(i+2)*bucketSize)) + 1
		if nextEnd > n {
			nextEnd = n
		}

		avgTS, avgVal := 0.0, 0.0
		nextLen := nextEnd - nextStart
		if nextLen < 1 {
			// Empty bucket by floor rounding — avoid dividing by zero.
			nextLen = 1
		}
		for j := nextStart; j < nextEnd; j++ {
			avgTS += samples[j].TS
			avgVal += samples[j].Value
		}
		avgTS /= float64(nextLen)
		avgVal /= float64(nextLen)

		prevTS := samples[prevSelected].TS
		prevVal := samples[prevSelected].Value

		// Scan the bucket in index order; strict > keeps the first point
		// on area ties.
		maxArea := -1.0
		maxIdx := bucketStart

		for j := bucketStart; j < bucketEnd; j++ {
			// Doubled triangle area via the cross product; only the
			// magnitude matters.
			area := math.Abs((prevTS-avgTS)*(samples[j].Value-prevVal) -
				(prevTS-samples[j].TS)*(avgVal-prevVal))
			if area > maxArea {
				maxArea = area
				maxIdx = j
			}
		}

		out = append(out, samples[maxIdx])
		prevSelected = maxIdx
	}

	out = append(out, samples[n-1])
	return out
}
