package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"RiskSentinel/internal/model"
)

type fakeEngine struct {
	mu        sync.Mutex
	cycle     model.Cycle
	stopLoss  []string
	stopError error
}

func (f *fakeEngine) Latest() model.Cycle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cycle
}

func (f *fakeEngine) ApplyStopLoss(symbol string) (model.ActivityEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopError != nil {
		return model.ActivityEvent{}, f.stopError
	}
	f.stopLoss = append(f.stopLoss, symbol)
	return model.ActivityEvent{Kind: model.ActivityStopLoss, Symbol: symbol, Text: "STOP-LOSS applied to " + symbol}, nil
}

type fakeRecorder struct {
	seqs []uint64
	err  error
}

func (r *fakeRecorder) RecordCycle(c *model.Cycle) error {
	if r.err != nil {
		return r.err
	}
	r.seqs = append(r.seqs, c.Seq)
	return nil
}

func (r *fakeRecorder) Close() error { return nil }

type fakeSender struct{ sent []string }

func (s *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	s.sent = append(s.sent, text)
	return nil
}

type fakeActivity struct{ events []model.ActivityEvent }

func (a *fakeActivity) Recent(n int) ([]model.ActivityEvent, error) {
	if n > len(a.events) {
		n = len(a.events)
	}
	return a.events[:n], nil
}

func sampleCycle(seq uint64) model.Cycle {
	return model.Cycle{
		Seq: seq,
		At:  time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC),
		Metrics: []model.MetricsSnapshot{
			{Symbol: "AAPL", LastPrice: 165.99, VolatilityAnn: 40.1, VaR1d: 9.5, LossPct: -5.21},
		},
		Suggestions: []model.Suggestion{
			{Symbol: "AAPL", Kind: model.SuggestionLoss, Reason: "Recent drop -5.21%", Text: "Consider stop-loss / reduce position", Alternatives: []string{"MSFT", "GOOGL"}},
		},
	}
}

func newTestScheduler(eng *fakeEngine, rec *fakeRecorder, snd Sender, act ActivityLog) *Scheduler {
	return NewScheduler(context.Background(), eng, snd, rec, act, zap.NewNop())
}

func TestSnapshotTask_SkipsUnchangedCycle(t *testing.T) {
	eng := &fakeEngine{}
	rec := &fakeRecorder{}
	s := newTestScheduler(eng, rec, nil, nil)

	s.RecordNow() // seq 0: nothing computed yet
	assert.Empty(t, rec.seqs)

	eng.cycle = sampleCycle(3)
	s.RecordNow()
	s.RecordNow()
	eng.cycle = sampleCycle(4)
	s.RecordNow()
	assert.Equal(t, []uint64{3, 4}, rec.seqs)
}

func TestSnapshotTask_RetriesAfterError(t *testing.T) {
	eng := &fakeEngine{cycle: sampleCycle(1)}
	rec := &fakeRecorder{err: errors.New("disk full")}
	s := newTestScheduler(eng, rec, nil, nil)

	s.RecordNow()
	assert.Empty(t, rec.seqs)
	rec.err = nil
	s.RecordNow()
	assert.Equal(t, []uint64{1}, rec.seqs)
}

func TestReportTask(t *testing.T) {
	eng := &fakeEngine{cycle: sampleCycle(2)}
	snd := &fakeSender{}
	s := newTestScheduler(eng, &fakeRecorder{}, snd, nil)

	s.reportTask()
	require.Len(t, snd.sent, 1)
	assert.Contains(t, snd.sent[0], "cycle #2")
	assert.Contains(t, snd.sent[0], "Recent drop -5.21%")
}

func TestReportTask_NoNotifier(t *testing.T) {
	s := newTestScheduler(&fakeEngine{cycle: sampleCycle(2)}, &fakeRecorder{}, nil, nil)
	assert.NotPanics(t, s.reportTask)
}

func TestRegisterAll(t *testing.T) {
	s := newTestScheduler(&fakeEngine{}, &fakeRecorder{}, &fakeSender{}, nil)
	require.NoError(t, s.RegisterAll("*/30 * * * * *", "0 */15 * * * *"))
	assert.Len(t, s.Cron.Entries(), 2)

	s = newTestScheduler(&fakeEngine{}, &fakeRecorder{}, nil, nil)
	require.NoError(t, s.RegisterAll("*/30 * * * * *", "0 */15 * * * *"))
	assert.Len(t, s.Cron.Entries(), 1, "report task needs a notifier")

	assert.Error(t, s.RegisterAll("not a cron", ""))
}

func TestHandleCommand_StopLoss(t *testing.T) {
	eng := &fakeEngine{cycle: sampleCycle(1)}
	s := newTestScheduler(eng, &fakeRecorder{}, nil, nil)

	assert.Equal(t, "🛑 STOP-LOSS applied to TSLA", s.HandleCommand("/stoploss tsla"))
	assert.Equal(t, "🛑 STOP-LOSS applied to AAPL", s.HandleCommand("/stoploss@risk_bot AAPL"))
	assert.Equal(t, []string{"TSLA", "AAPL"}, eng.stopLoss)

	assert.Equal(t, "Usage: /stoploss SYMBOL", s.HandleCommand("/stoploss"))

	eng.stopError = errors.New("invalid input")
	assert.True(t, strings.HasPrefix(s.HandleCommand("/stoploss MSFT"), "❌"))
}

func TestHandleCommand_Views(t *testing.T) {
	eng := &fakeEngine{cycle: sampleCycle(5)}
	act := &fakeActivity{events: []model.ActivityEvent{
		{Timestamp: time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), Text: "STOP-LOSS applied to TSLA"},
	}}
	s := newTestScheduler(eng, &fakeRecorder{}, nil, act)

	assert.Contains(t, s.HandleCommand("/report"), "cycle #5")
	assert.Contains(t, s.HandleCommand("/metrics"), "AAPL")
	assert.Contains(t, s.HandleCommand("/suggestions"), "MSFT, GOOGL")
	assert.Contains(t, s.HandleCommand("/activity"), "15:04:05 STOP-LOSS applied to TSLA")
	assert.Equal(t, helpText, s.HandleCommand("hello"))
	assert.Equal(t, helpText, s.HandleCommand("   "))

	s.Activity = nil
	assert.Equal(t, "Activity journal disabled", s.HandleCommand("/activity"))
}
