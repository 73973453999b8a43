package model

// PriceBar is one OHLCV observation for a single instrument.
type PriceBar struct {
	TS     float64 `json:"ts"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// TypicalPrice returns (high + low + close) / 3, the single representative
// price per bar used by VWAP.
func (b PriceBar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3.0
}
