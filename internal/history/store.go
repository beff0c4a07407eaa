package history

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"RiskSentinel/internal/model"
)

const (
	DefaultHistoryCap = 500
	DefaultQuotesCap  = 20
)

// ErrInvalidInput is returned for bad prices, unknown symbols and duplicate seeds.
var ErrInvalidInput = errors.New("invalid input")

type instrument struct {
	symbol  string
	price   float64
	history []float64     // oldest first
	quotes  []model.Quote // newest first
}

// Store owns the mutable price state of every instrument.
// It is not safe for concurrent use; the dispatcher serializes access.
type Store struct {
	historyCap  int
	quotesCap   int
	order       []string
	instruments map[string]*instrument
}

// NewStore creates an empty store. Non-positive capacities fall back to defaults.
func NewStore(historyCap, quotesCap int) *Store {
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	if quotesCap <= 0 {
		quotesCap = DefaultQuotesCap
	}
	return &Store{
		historyCap:  historyCap,
		quotesCap:   quotesCap,
		instruments: make(map[string]*instrument),
	}
}

func validPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}

// Seed registers a new instrument with a single-element history.
func (s *Store) Seed(symbol string, initialPrice float64) error {
	if symbol == "" {
		return errors.Wrap(ErrInvalidInput, "empty symbol")
	}
	if !validPrice(initialPrice) {
		return errors.Wrapf(ErrInvalidInput, "seed %s: price %v", symbol, initialPrice)
	}
	if _, ok := s.instruments[symbol]; ok {
		return errors.Wrapf(ErrInvalidInput, "seed %s: already seeded", symbol)
	}

	h := make([]float64, 1, s.historyCap)
	h[0] = initialPrice
	s.instruments[symbol] = &instrument{
		symbol:  symbol,
		price:   initialPrice,
		history: h,
		quotes:  make([]model.Quote, 0, s.quotesCap),
	}
	s.order = append(s.order, symbol)
	return nil
}

// SeedAll validates every seed before registering any, so a failed call leaves the store unchanged.
func (s *Store) SeedAll(seeds []model.Seed) error {
	seen := make(map[string]bool, len(seeds))
	for _, sd := range seeds {
		if sd.Symbol == "" {
			return errors.Wrap(ErrInvalidInput, "empty symbol")
		}
		if !validPrice(sd.Price) {
			return errors.Wrapf(ErrInvalidInput, "seed %s: price %v", sd.Symbol, sd.Price)
		}
		if _, ok := s.instruments[sd.Symbol]; ok || seen[sd.Symbol] {
			return errors.Wrapf(ErrInvalidInput, "seed %s: already seeded", sd.Symbol)
		}
		seen[sd.Symbol] = true
	}
	for _, sd := range seeds {
		if err := s.Seed(sd.Symbol, sd.Price); err != nil {
			return err
		}
	}
	return nil
}

// ApplyTick appends a new price. On error nothing is mutated.
func (s *Store) ApplyTick(symbol string, price float64, ts time.Time) error {
	inst, ok := s.instruments[symbol]
	if !ok {
		return errors.Wrapf(ErrInvalidInput, "tick %s: unknown symbol", symbol)
	}
	if !validPrice(price) {
		return errors.Wrapf(ErrInvalidInput, "tick %s: price %v", symbol, price)
	}

	if len(inst.history) >= s.historyCap {
		// shift in place so the backing array never grows past the cap
		copy(inst.history, inst.history[1:])
		inst.history[len(inst.history)-1] = price
	} else {
		inst.history = append(inst.history, price)
	}

	q := model.Quote{Price: price, Timestamp: ts}
	if len(inst.quotes) < s.quotesCap {
		inst.quotes = append(inst.quotes, model.Quote{})
	}
	copy(inst.quotes[1:], inst.quotes[:len(inst.quotes)-1])
	inst.quotes[0] = q

	inst.price = price
	return nil
}

// Snapshot returns a copy of the instrument's state.
func (s *Store) Snapshot(symbol string) (model.InstrumentSnapshot, error) {
	inst, ok := s.instruments[symbol]
	if !ok {
		return model.InstrumentSnapshot{}, errors.Wrapf(ErrInvalidInput, "snapshot %s: unknown symbol", symbol)
	}
	return inst.snapshot(), nil
}

// Snapshots returns copies of every instrument in seed order.
func (s *Store) Snapshots() []model.InstrumentSnapshot {
	out := make([]model.InstrumentSnapshot, 0, len(s.order))
	for _, sym := range s.order {
		out = append(out, s.instruments[sym].snapshot())
	}
	return out
}

// Symbols returns the seeded symbols in seed order.
func (s *Store) Symbols() []string {
	return append([]string(nil), s.order...)
}

// Has reports whether symbol is seeded.
func (s *Store) Has(symbol string) bool {
	_, ok := s.instruments[symbol]
	return ok
}

// Len returns the number of seeded instruments.
func (s *Store) Len() int { return len(s.order) }

func (i *instrument) snapshot() model.InstrumentSnapshot {
	return model.InstrumentSnapshot{
		Symbol:       i.symbol,
		CurrentPrice: i.price,
		History:      append([]float64(nil), i.history...),
		Quotes:       append([]model.Quote(nil), i.quotes...),
	}
}
