package feed

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"RiskSentinel/internal/model"
)

const (
	DefaultMockInterval = 800 * time.Millisecond
	DefaultMaxStepPct   = 1.5
)

// MockFeed emits a random walk for a fixed instrument set: every interval one
// random instrument moves by a uniform percentage in [-MaxStepPct, +MaxStepPct].
type MockFeed struct {
	Interval   time.Duration
	MaxStepPct float64

	mu      sync.Mutex
	rng     *rand.Rand
	symbols []string
	prices  map[string]float64
	now     func() time.Time
}

// NewMockFeed creates a mock feed starting from the given seeds.
func NewMockFeed(seeds []model.Seed, interval time.Duration, rngSeed int64) *MockFeed {
	if interval <= 0 {
		interval = DefaultMockInterval
	}
	f := &MockFeed{
		Interval:   interval,
		MaxStepPct: DefaultMaxStepPct,
		rng:        rand.New(rand.NewSource(rngSeed)),
		prices:     make(map[string]float64, len(seeds)),
		now:        time.Now,
	}
	for _, s := range seeds {
		if _, ok := f.prices[s.Symbol]; ok {
			continue
		}
		f.symbols = append(f.symbols, s.Symbol)
		f.prices[s.Symbol] = s.Price
	}
	return f
}

func (f *MockFeed) Name() string { return "mock" }

// Next advances one random instrument and returns the resulting tick.
func (f *MockFeed) Next() model.Tick {
	f.mu.Lock()
	defer f.mu.Unlock()

	sym := f.symbols[f.rng.Intn(len(f.symbols))]
	pct := (f.rng.Float64()*2 - 1) * f.MaxStepPct
	next := decimal.NewFromFloat(f.prices[sym]).
		Mul(decimal.NewFromFloat(1 + pct/100)).
		Round(2)
	price, _ := next.Float64()
	f.prices[sym] = price

	return model.Tick{Symbol: sym, Price: price, Timestamp: f.now().UTC()}
}

// Subscribe starts emitting ticks every Interval until ctx is done.
func (f *MockFeed) Subscribe(ctx context.Context) (<-chan model.Tick, error) {
	if len(f.symbols) == 0 {
		return nil, errors.New("mock feed has no instruments")
	}
	out := make(chan model.Tick, 16)
	go func() {
		defer close(out)
		ticker := time.NewTicker(f.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case out <- f.Next():
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
