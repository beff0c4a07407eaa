package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"RiskSentinel/internal/calculator"
	"RiskSentinel/internal/feed"
	"RiskSentinel/internal/history"
	"RiskSentinel/internal/model"
	"RiskSentinel/internal/strategy"
	"RiskSentinel/internal/telemetry"
)

// ActivitySink receives log-worthy events such as stop-loss acknowledgements.
type ActivitySink interface {
	Record(evt model.ActivityEvent) error
}

// CycleSink is notified with every new cycle. It runs under the dispatcher
// lock, so implementations must not block or call back into the dispatcher.
type CycleSink interface {
	Publish(cycle model.Cycle)
}

// Dispatcher applies ticks one at a time and recomputes metrics and
// suggestions for the whole instrument set after each accepted tick.
type Dispatcher struct {
	mu      sync.Mutex
	store   *history.Store
	engine  *strategy.Engine
	journal ActivitySink
	metrics *telemetry.Metrics
	logger  *zap.Logger
	sinks   []CycleSink

	latest model.Cycle
	seq    uint64
	now    func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithJournal records activity events to sink.
func WithJournal(sink ActivitySink) Option {
	return func(d *Dispatcher) { d.journal = sink }
}

// WithTelemetry counts ticks and cycle latency.
func WithTelemetry(m *telemetry.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithSink adds a cycle consumer.
func WithSink(s CycleSink) Option {
	return func(d *Dispatcher) { d.sinks = append(d.sinks, s) }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New creates a Dispatcher that owns store.
func New(store *history.Store, engine *strategy.Engine, logger *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:  store,
		engine: engine,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Seed registers the initial instruments and computes the first cycle.
// On error no instrument is registered and no cycle is published.
func (d *Dispatcher) Seed(seeds []model.Seed) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.store.SeedAll(seeds); err != nil {
		return err
	}
	d.recompute()
	d.logger.Info("instruments seeded", zap.Int("count", d.store.Len()))
	return nil
}

// Handle applies one tick. Invalid ticks are dropped, journaled and returned
// as history.ErrInvalidInput; state is left untouched.
func (d *Dispatcher) Handle(tick model.Tick) (model.Cycle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	if err := d.store.ApplyTick(tick.Symbol, tick.Price, tick.Timestamp); err != nil {
		d.reject(tick, err)
		return model.Cycle{}, err
	}
	d.recompute()

	if d.metrics != nil {
		d.metrics.TicksApplied.Inc()
		d.metrics.CycleLatency.Observe(time.Since(start).Seconds())
	}
	return cloneCycle(d.latest), nil
}

// must hold d.mu
func (d *Dispatcher) recompute() {
	metrics := calculator.ComputeAll(d.store.Snapshots())
	suggestions := d.engine.Evaluate(metrics)

	d.seq++
	d.latest = model.Cycle{
		Seq:         d.seq,
		At:          d.now().UTC(),
		Metrics:     metrics,
		Suggestions: suggestions,
	}

	risky := 0
	for _, s := range suggestions {
		if s.Risky() {
			risky++
		}
	}
	if d.metrics != nil {
		d.metrics.RiskyCount.Set(float64(risky))
	}
	for _, s := range d.sinks {
		s.Publish(cloneCycle(d.latest))
	}
}

func (d *Dispatcher) reject(tick model.Tick, err error) {
	d.logger.Warn("tick rejected",
		zap.String("symbol", tick.Symbol),
		zap.Float64("price", tick.Price),
		zap.Error(err))
	if d.metrics != nil {
		d.metrics.TicksRejected.Inc()
	}
	d.record(model.ActivityEvent{
		ID:        uuid.NewString(),
		Timestamp: d.now().UTC(),
		Kind:      model.ActivityTickRejected,
		Symbol:    tick.Symbol,
		Text:      fmt.Sprintf("Rejected tick for %s at %v: %v", tick.Symbol, tick.Price, err),
	})
}

// ApplyStopLoss acknowledges a stop-loss request. Prices and history are not touched.
func (d *Dispatcher) ApplyStopLoss(symbol string) (model.ActivityEvent, error) {
	if symbol == "" {
		return model.ActivityEvent{}, errors.Wrap(history.ErrInvalidInput, "stop-loss: empty symbol")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	evt := model.ActivityEvent{
		ID:        uuid.NewString(),
		Timestamp: d.now().UTC(),
		Kind:      model.ActivityStopLoss,
		Symbol:    symbol,
		Text:      "STOP-LOSS applied to " + symbol,
	}
	if !d.store.Has(symbol) {
		d.logger.Warn("stop-loss for untracked symbol", zap.String("symbol", symbol))
	}
	d.record(evt)
	if d.metrics != nil {
		d.metrics.StopLosses.Inc()
	}
	d.logger.Info(evt.Text, zap.String("id", evt.ID))
	return evt, nil
}

func (d *Dispatcher) record(evt model.ActivityEvent) {
	if d.journal == nil {
		return
	}
	if err := d.journal.Record(evt); err != nil {
		d.logger.Error("record activity", zap.String("kind", string(evt.Kind)), zap.Error(err))
	}
}

// Latest returns a copy of the most recent cycle.
func (d *Dispatcher) Latest() model.Cycle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return cloneCycle(d.latest)
}

// Instrument returns a copy of one instrument's state.
func (d *Dispatcher) Instrument(symbol string) (model.InstrumentSnapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.Snapshot(symbol)
}

// Run consumes f until ctx is cancelled or the feed ends. Rejected ticks do
// not stop the loop. Cancellation is an orderly stop and returns nil.
func (d *Dispatcher) Run(ctx context.Context, f feed.Feed) error {
	ticks, err := f.Subscribe(ctx)
	if err != nil {
		return errors.Wrapf(err, "subscribe to %s feed", f.Name())
	}
	d.logger.Info("feed subscribed", zap.String("feed", f.Name()))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped", zap.String("feed", f.Name()))
			return nil
		case tick, ok := <-ticks:
			if !ok {
				d.logger.Info("feed exhausted", zap.String("feed", f.Name()))
				return nil
			}
			if cycle, err := d.Handle(tick); err == nil {
				d.logger.Debug("tick applied",
					zap.String("symbol", tick.Symbol),
					zap.Float64("price", tick.Price),
					zap.Uint64("seq", cycle.Seq),
					zap.Int("suggestions", len(cycle.Suggestions)))
			}
		}
	}
}

func cloneCycle(c model.Cycle) model.Cycle {
	out := c
	out.Metrics = append([]model.MetricsSnapshot(nil), c.Metrics...)
	if c.Suggestions != nil {
		out.Suggestions = make([]model.Suggestion, len(c.Suggestions))
		for i, s := range c.Suggestions {
			s.Alternatives = append([]string{}, s.Alternatives...)
			out.Suggestions[i] = s
		}
	}
	return out
}
