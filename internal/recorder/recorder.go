package recorder

import "RiskSentinel/internal/model"

// Recorder persists computed cycles for later analysis.
type Recorder interface {
	RecordCycle(cycle *model.Cycle) error
	Close() error
}
