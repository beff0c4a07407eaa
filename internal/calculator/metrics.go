package calculator

import (
	"math"

	"github.com/shopspring/decimal"

	"RiskSentinel/internal/model"
)

const (
	// ReturnWindow is the number of trailing log-returns used for volatility.
	ReturnWindow = 60
	// LossWindow is the number of trailing price moves (LossWindow+1 prices) used for the short-term change.
	LossWindow = 5
	// TradingDays annualizes the per-period sigma.
	TradingDays = 252
	// ZScore99 approximates the 1st percentile of a standard normal.
	ZScore99 = 2.33
)

// ComputeMetrics derives the risk metrics for one instrument. It has no side effects.
func ComputeMetrics(symbol string, history []float64, currentPrice float64) model.MetricsSnapshot {
	window := Tail(LogReturns(history), ReturnWindow)
	mean, variance := MeanVariance(window)
	sigma := math.Sqrt(math.Max(0, variance))

	sigmaAnn := sigma * math.Sqrt(TradingDays)
	volAnn := sigmaAnn * 100
	var1d := -(mean - ZScore99*sigmaAnn) * currentPrice

	return model.MetricsSnapshot{
		Symbol:        symbol,
		LastPrice:     currentPrice,
		VolatilityAnn: Round2(volAnn),
		VaR1d:         Round2(var1d),
		LossPct:       Round2(ChangePct(history, LossWindow+1)),
	}
}

// ComputeAll computes metrics for every snapshot, preserving order.
func ComputeAll(snaps []model.InstrumentSnapshot) []model.MetricsSnapshot {
	out := make([]model.MetricsSnapshot, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, ComputeMetrics(s.Symbol, s.History, s.CurrentPrice))
	}
	return out
}

// Round2 rounds half away from zero to two decimals. Non-finite input yields 0.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
