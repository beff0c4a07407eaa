package calculator

import "math"

// LogReturns computes ln(p[i]/p[i-1]) for consecutive prices, dropping non-finite results.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		r := math.Log(prices[i] / prices[i-1])
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		returns = append(returns, r)
	}
	return returns
}

// Tail returns the last n values (all of them if fewer).
func Tail(values []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

// MeanVariance returns the arithmetic mean and population variance. Both are 0 for an empty window.
func MeanVariance(window []float64) (mean, variance float64) {
	if len(window) == 0 {
		return 0, 0
	}
	for _, v := range window {
		mean += v
	}
	mean /= float64(len(window))
	for _, v := range window {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(window))
	return mean, variance
}

// ChangePct returns (last/first - 1) * 100 over the trailing n prices, 0 with fewer than two.
func ChangePct(prices []float64, n int) float64 {
	w := Tail(prices, n)
	if len(w) < 2 {
		return 0
	}
	return (w[len(w)-1]/w[0] - 1) * 100
}
