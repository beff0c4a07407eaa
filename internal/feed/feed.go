package feed

import (
	"context"

	"RiskSentinel/internal/model"
)

// Feed is a source of price ticks. Each Subscribe starts a fresh delivery
// that ends when ctx is cancelled or the source is exhausted, at which point
// the channel is closed. Subscribing again reconnects.
type Feed interface {
	Subscribe(ctx context.Context) (<-chan model.Tick, error)
	Name() string
}
