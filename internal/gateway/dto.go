package gateway

import "chartengine/internal/model"

// DownsampleRequest is the body of POST /api/v1/downsample.
type DownsampleRequest struct {
	Samples   []model.Sample `json:"samples"`
	Threshold int            `json:"threshold"`
}

// IndicatorRequest is the body of POST /api/v1/indicators/{kind}.
// ResetOnGap and GapThreshold only apply to VWAP; nil fields fall back
// to the server defaults.
type IndicatorRequest struct {
	Bars         []model.PriceBar `json:"bars"`
	Period       int              `json:"period"`
	ResetOnGap   *bool            `json:"reset_on_gap,omitempty"`
	GapThreshold *float64         `json:"gap_threshold,omitempty"`
}

// IngestRequest is the body of POST /api/v1/bars.
type IngestRequest struct {
	Symbol string           `json:"symbol"`
	Name   string           `json:"name,omitempty"`
	Bars   []model.PriceBar `json:"bars"`
}

// KeyRequest is the body of POST /api/v1/admin/keys.
type KeyRequest struct {
	Code      string `json:"code"`
	Label     string `json:"label"`
	ExpiresIn int64  `json:"expires_in,omitempty"` // seconds; 0 means no expiry
}

// BarUpdate is the envelope broadcast to WebSocket subscribers after ingest.
type BarUpdate struct {
	Type   string           `json:"type"` // always "bars"
	Symbol string           `json:"symbol"`
	Bars   []model.PriceBar `json:"bars"`
}
