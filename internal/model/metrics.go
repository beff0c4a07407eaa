package model

// MetricsSnapshot holds the risk metrics derived from one instrument's history.
type MetricsSnapshot struct {
	Symbol        string  `json:"symbol"`
	LastPrice     float64 `json:"last_price"`
	VolatilityAnn float64 `json:"volatility_ann"` // percent
	VaR1d         float64 `json:"var_1d"`         // price units, negative means no expected loss
	LossPct       float64 `json:"loss_pct"`       // percent over the trailing 5 price moves (6 prices)
}
