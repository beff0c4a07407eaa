package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultSeeds, cfg.Instruments)
	assert.Equal(t, []string{"MSFT", "GOOGL"}, cfg.Alternatives["AAPL"])
	assert.Equal(t, []string{"SPY", "QQQ"}, cfg.DefaultAlts)
	assert.Equal(t, 500, cfg.History.Capacity)
	assert.Equal(t, 20, cfg.History.QuotesCapacity)
	assert.Equal(t, 800*time.Millisecond, cfg.Feed.Interval)
	assert.Equal(t, FeedMock, cfg.Feed.Source)
	assert.Equal(t, time.Minute, cfg.Feed.PollInterval)
	assert.False(t, cfg.TelegramEnabled())

	th := cfg.StrategyThresholds()
	assert.Equal(t, -1.5, th.Loss)
	assert.Equal(t, 40.0, th.VaRDollar)
	assert.Equal(t, 0.5, th.StableBand)
	assert.Equal(t, 3, th.MaxStable)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
instruments:
  - symbol: NVDA
    price: 480.5
  - symbol: AMD
    price: 120
alternatives:
  NVDA: [AMD, INTC]
history:
  capacity: 100
thresholds:
  loss_pct: -2
  var_dollar: 0
feed:
  interval: 250ms
  seed: 9
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	t.Setenv("FEED_INTERVAL", "2s")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Instruments, 2)
	assert.Equal(t, "NVDA", cfg.Instruments[0].Symbol)
	assert.Equal(t, 480.5, cfg.Instruments[0].Price)
	assert.Equal(t, []string{"AMD", "INTC"}, cfg.Alternatives["NVDA"])
	assert.Equal(t, 100, cfg.History.Capacity)
	assert.Equal(t, 2*time.Second, cfg.Feed.Interval)
	assert.Equal(t, int64(9), cfg.Feed.Seed)
	assert.Equal(t, "/tmp/x.db", cfg.Database.SQLitePath)

	th := cfg.StrategyThresholds()
	assert.Equal(t, -2.0, th.Loss)
	// explicit zero is honored
	assert.Equal(t, 0.0, th.VaRDollar)
	assert.Equal(t, 0.5, th.StableBand)
}

func TestLoad_BadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("instruments: [::"), 0644))
	_, err := Load(path)
	assert.Error(t, err)

	t.Setenv("FEED_INTERVAL", "soon")
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"duplicate symbol", func(c *Config) { c.Instruments[1].Symbol = c.Instruments[0].Symbol }},
		{"empty symbol", func(c *Config) { c.Instruments[0].Symbol = "" }},
		{"zero price", func(c *Config) { c.Instruments[0].Price = 0 }},
		{"infinite price", func(c *Config) { c.Instruments[0].Price = math.Inf(1) }},
		{"NaN price", func(c *Config) { c.Instruments[0].Price = math.NaN() }},
		{"tiny history", func(c *Config) { c.History.Capacity = 1 }},
		{"half telegram", func(c *Config) { c.Telegram.BotToken = "token" }},
		{"unknown feed", func(c *Config) { c.Feed.Source = "bloomberg" }},
		{"replay without file", func(c *Config) { c.Feed.Source = FeedReplay }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_FeedSource(t *testing.T) {
	t.Setenv("FEED_REPLAY_FILE", "ticks.jsonl")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, FeedReplay, cfg.Feed.Source, "replay file implies the replay source")
	require.NoError(t, cfg.Validate())

	t.Setenv("FEED_SOURCE", "yahoo")
	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, FeedYahoo, cfg.Feed.Source)
	require.NoError(t, cfg.Validate())
}
