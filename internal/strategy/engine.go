package strategy

import (
	"strconv"

	"RiskSentinel/internal/model"
)

const (
	DefaultLossThreshold      = -1.5 // percent
	DefaultVaRDollarThreshold = 40.0
	DefaultStableBand         = 0.5 // |lossPct| strictly below this is stable
	DefaultMaxStable          = 3
)

const (
	textStopLoss = "Consider stop-loss / reduce position"
	textHedge    = "Consider hedge/derivative or reduce exposure"
	textStable   = "Consider small allocation"
	reasonStable = "Stable - low short-term swings"
)

// Thresholds control risky/stable classification.
type Thresholds struct {
	Loss       float64
	VaRDollar  float64
	StableBand float64
	MaxStable  int
}

// DefaultThresholds returns the built-in classification constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Loss:       DefaultLossThreshold,
		VaRDollar:  DefaultVaRDollarThreshold,
		StableBand: DefaultStableBand,
		MaxStable:  DefaultMaxStable,
	}
}

// Engine turns a metrics set into suggestions. It keeps no state between calls.
type Engine struct {
	th     Thresholds
	mapper *AlternativeMapper
}

// NewEngine creates an Engine. A nil mapper uses the reference table.
func NewEngine(th Thresholds, mapper *AlternativeMapper) *Engine {
	if mapper == nil {
		mapper = NewAlternativeMapper(ReferenceAlternatives, DefaultAlternatives)
	}
	return &Engine{th: th, mapper: mapper}
}

// Evaluate computes the full suggestion set. Risk alerts take precedence:
// stable ideas are only produced when no instrument is risky.
func (e *Engine) Evaluate(metrics []model.MetricsSnapshot) []model.Suggestion {
	var out []model.Suggestion
	for _, m := range metrics {
		if s, ok := e.classifyRisky(m); ok {
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		return out
	}

	out = []model.Suggestion{}
	for _, m := range metrics {
		if len(out) >= e.th.MaxStable {
			break
		}
		if m.LossPct > -e.th.StableBand && m.LossPct < e.th.StableBand {
			out = append(out, model.Suggestion{
				Symbol:       m.Symbol,
				Kind:         model.SuggestionStable,
				Reason:       reasonStable,
				Text:         textStable,
				Alternatives: []string{},
			})
		}
	}
	return out
}

// loss trigger is checked first and wins when both fire
func (e *Engine) classifyRisky(m model.MetricsSnapshot) (model.Suggestion, bool) {
	switch {
	case m.LossPct < e.th.Loss:
		return model.Suggestion{
			Symbol:       m.Symbol,
			Kind:         model.SuggestionLoss,
			Reason:       "Recent drop " + formatNumber(m.LossPct) + "%",
			Text:         textStopLoss,
			Alternatives: e.mapper.Lookup(m.Symbol),
		}, true
	case m.VaR1d > e.th.VaRDollar:
		return model.Suggestion{
			Symbol:       m.Symbol,
			Kind:         model.SuggestionVaR,
			Reason:       "High VaR $" + formatNumber(m.VaR1d),
			Text:         textHedge,
			Alternatives: e.mapper.Lookup(m.Symbol),
		}, true
	default:
		return model.Suggestion{}, false
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
