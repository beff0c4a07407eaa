package model

import "time"

// SuggestionKind indicates which rule produced a suggestion.
type SuggestionKind string

const (
	SuggestionLoss   SuggestionKind = "LOSS"
	SuggestionVaR    SuggestionKind = "VAR"
	SuggestionStable SuggestionKind = "STABLE"
)

// Suggestion is an actionable idea for one instrument.
type Suggestion struct {
	Symbol       string         `json:"symbol"`
	Kind         SuggestionKind `json:"kind"`
	Reason       string         `json:"reason"`
	Text         string         `json:"suggestion"`
	Alternatives []string       `json:"alternatives"`
}

// Risky reports whether the suggestion is a risk alert rather than an allocation idea.
func (s Suggestion) Risky() bool {
	return s.Kind == SuggestionLoss || s.Kind == SuggestionVaR
}

// Cycle is the complete output of one processed tick.
type Cycle struct {
	Seq         uint64
	At          time.Time
	Metrics     []MetricsSnapshot
	Suggestions []Suggestion
}

// ActivityKind classifies activity events.
type ActivityKind string

const (
	ActivityStopLoss     ActivityKind = "STOP_LOSS"
	ActivityTickRejected ActivityKind = "TICK_REJECTED"
)

// ActivityEvent is a log-worthy event emitted for consumers.
type ActivityEvent struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Kind      ActivityKind `json:"kind"`
	Symbol    string       `json:"symbol"`
	Text      string       `json:"text"`
}
