package feed

import (
	"context"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"RiskSentinel/internal/model"
)

var testSeeds = []model.Seed{
	{Symbol: "AAPL", Price: 175.12},
	{Symbol: "MSFT", Price: 360.80},
	{Symbol: "TSLA", Price: 250.30},
	{Symbol: "GOOGL", Price: 132.45},
}

func TestMockFeed_StepBounds(t *testing.T) {
	f := NewMockFeed(testSeeds, time.Millisecond, 42)
	last := map[string]float64{}
	for _, s := range testSeeds {
		last[s.Symbol] = s.Price
	}

	for i := 0; i < 2000; i++ {
		tick := f.Next()
		prev, ok := last[tick.Symbol]
		require.True(t, ok, "unexpected symbol %s", tick.Symbol)

		change := (tick.Price/prev - 1) * 100
		// rounding to cents can push the move slightly past the bound
		assert.LessOrEqual(t, math.Abs(change), DefaultMaxStepPct+0.01/prev*100+1e-9)
		assert.Equal(t, math.Round(tick.Price*100)/100, tick.Price)
		assert.False(t, tick.Timestamp.IsZero())
		last[tick.Symbol] = tick.Price
	}
}

func TestMockFeed_Deterministic(t *testing.T) {
	a := NewMockFeed(testSeeds, time.Millisecond, 7)
	b := NewMockFeed(testSeeds, time.Millisecond, 7)
	for i := 0; i < 50; i++ {
		ta, tb := a.Next(), b.Next()
		assert.Equal(t, ta.Symbol, tb.Symbol)
		assert.Equal(t, ta.Price, tb.Price)
	}
}

func TestMockFeed_SubscribeStopsOnCancel(t *testing.T) {
	f := NewMockFeed(testSeeds, time.Millisecond, 1)
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := f.Subscribe(ctx)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("no tick delivered")
		}
	}
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}

func TestMockFeed_NoInstruments(t *testing.T) {
	_, err := NewMockFeed(nil, 0, 1).Subscribe(context.Background())
	assert.Error(t, err)
}

const replayData = `{"symbol":"AAPL","price":175.5,"timestamp":"2024-01-02T15:04:05Z"}
not json
# comment

{"symbol":"MSFT","timestamp":"2024-01-02T15:04:06Z"}
{"symbol":"MSFT","price":-1,"timestamp":"2024-01-02T15:04:07.250Z"}
{"symbol":"TSLA","price":251,"timestamp":"yesterday"}
{"symbol":"TSLA","price":251,"timestamp":"2024-01-02T15:04:08+02:00"}
`

func TestReplayFeed(t *testing.T) {
	f := NewReplayReader(func() io.Reader { return strings.NewReader(replayData) }, zap.NewNop())

	for round := 0; round < 2; round++ {
		ch, err := f.Subscribe(context.Background())
		require.NoError(t, err)

		var got []model.Tick
		for tick := range ch {
			got = append(got, tick)
		}
		require.Len(t, got, 3)
		assert.Equal(t, "AAPL", got[0].Symbol)
		assert.Equal(t, 175.5, got[0].Price)
		assert.Equal(t, time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), got[0].Timestamp.UTC())
		// bad prices are delivered; the store decides
		assert.Equal(t, -1.0, got[1].Price)
		assert.Equal(t, 250*time.Millisecond, time.Duration(got[1].Timestamp.Nanosecond()))
		assert.Equal(t, "TSLA", got[2].Symbol)
	}
}

func TestReplayFile_Missing(t *testing.T) {
	f := NewReplayFile(t.TempDir()+"/missing.jsonl", 0, zap.NewNop())
	_, err := f.Subscribe(context.Background())
	assert.Error(t, err)
}
