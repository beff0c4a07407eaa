package config

import (
	"math"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"RiskSentinel/internal/history"
	"RiskSentinel/internal/model"
	"RiskSentinel/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	Instruments  []model.Seed        `yaml:"instruments"`
	Alternatives map[string][]string `yaml:"alternatives"`
	DefaultAlts  []string            `yaml:"default_alternatives"`
	History      struct {
		Capacity       int `yaml:"capacity"`
		QuotesCapacity int `yaml:"quotes_capacity"`
	} `yaml:"history"`
	Thresholds struct {
		LossPct    *float64 `yaml:"loss_pct"`
		VaRDollar  *float64 `yaml:"var_dollar"`
		StableBand *float64 `yaml:"stable_band"`
		MaxStable  int      `yaml:"max_stable"`
	} `yaml:"thresholds"`
	Feed struct {
		Source       string        `yaml:"source"` // mock, replay or yahoo
		Interval     time.Duration `yaml:"interval"`
		Seed         int64         `yaml:"seed"`
		ReplayFile   string        `yaml:"replay_file"`
		ReplayGap    time.Duration `yaml:"replay_gap"`
		PollInterval time.Duration `yaml:"poll_interval"`
	} `yaml:"feed"`
	Schedule struct {
		SnapshotCron string `yaml:"snapshot_cron"`
		ReportCron   string `yaml:"report_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Journal struct {
		Dir string `yaml:"dir"`
	} `yaml:"journal"`
	Metrics struct {
		Listen string `yaml:"listen"`
	} `yaml:"metrics"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Feed sources.
const (
	FeedMock   = "mock"
	FeedReplay = "replay"
	FeedYahoo  = "yahoo"
)

// DefaultSeeds is the reference instrument set.
var DefaultSeeds = []model.Seed{
	{Symbol: "AAPL", Price: 175.12},
	{Symbol: "MSFT", Price: 360.80},
	{Symbol: "TSLA", Price: 250.30},
	{Symbol: "GOOGL", Price: 132.45},
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "read config")
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parse config")
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("JOURNAL_DIR"); v != "" {
		cfg.Journal.Dir = v
	}
	if v := os.Getenv("METRICS_LISTEN"); v != "" {
		cfg.Metrics.Listen = v
	}
	if v := os.Getenv("FEED_SOURCE"); v != "" {
		cfg.Feed.Source = v
	}
	if v := os.Getenv("FEED_REPLAY_FILE"); v != "" {
		cfg.Feed.ReplayFile = v
	}
	if v := os.Getenv("FEED_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, errors.Wrapf(err, "FEED_INTERVAL %q", v)
		}
		cfg.Feed.Interval = d
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Instruments) == 0 {
		c.Instruments = append([]model.Seed(nil), DefaultSeeds...)
	}
	if c.Alternatives == nil {
		c.Alternatives = strategy.ReferenceAlternatives
	}
	if len(c.DefaultAlts) == 0 {
		c.DefaultAlts = strategy.DefaultAlternatives
	}
	if c.History.Capacity == 0 {
		c.History.Capacity = history.DefaultHistoryCap
	}
	if c.History.QuotesCapacity == 0 {
		c.History.QuotesCapacity = history.DefaultQuotesCap
	}
	if c.Thresholds.MaxStable == 0 {
		c.Thresholds.MaxStable = strategy.DefaultMaxStable
	}
	if c.Feed.Source == "" {
		c.Feed.Source = FeedMock
		if c.Feed.ReplayFile != "" {
			c.Feed.Source = FeedReplay
		}
	}
	if c.Feed.PollInterval == 0 {
		c.Feed.PollInterval = time.Minute
	}
	if c.Feed.Interval == 0 {
		c.Feed.Interval = 800 * time.Millisecond
	}
	if c.Feed.Seed == 0 {
		c.Feed.Seed = time.Now().UnixNano()
	}
	if c.Schedule.SnapshotCron == "" {
		c.Schedule.SnapshotCron = "*/30 * * * * *"
	}
	if c.Schedule.ReportCron == "" {
		c.Schedule.ReportCron = "0 */15 * * * *"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/risk_sentinel.db"
	}
	if c.Journal.Dir == "" {
		c.Journal.Dir = "data/journal"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// StrategyThresholds merges configured thresholds over the defaults.
func (c *Config) StrategyThresholds() strategy.Thresholds {
	th := strategy.DefaultThresholds()
	if c.Thresholds.LossPct != nil {
		th.Loss = *c.Thresholds.LossPct
	}
	if c.Thresholds.VaRDollar != nil {
		th.VaRDollar = *c.Thresholds.VaRDollar
	}
	if c.Thresholds.StableBand != nil {
		th.StableBand = *c.Thresholds.StableBand
	}
	if c.Thresholds.MaxStable > 0 {
		th.MaxStable = c.Thresholds.MaxStable
	}
	return th
}

// TelegramEnabled reports whether both bot token and chat id are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks the instrument set and capacities.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Instruments))
	for i, s := range c.Instruments {
		if s.Symbol == "" {
			return errors.Errorf("instruments[%d]: symbol is required", i)
		}
		if seen[s.Symbol] {
			return errors.Errorf("instruments[%d]: duplicate symbol %s", i, s.Symbol)
		}
		seen[s.Symbol] = true
		if !(s.Price > 0) || math.IsInf(s.Price, 0) {
			return errors.Errorf("instruments[%d]: price for %s must be positive and finite, got %s",
				i, s.Symbol, strconv.FormatFloat(s.Price, 'f', -1, 64))
		}
	}
	if c.History.Capacity < 2 {
		return errors.New("history.capacity must be at least 2")
	}
	if c.History.QuotesCapacity < 1 {
		return errors.New("history.quotes_capacity must be positive")
	}
	if c.Feed.Interval <= 0 {
		return errors.New("feed.interval must be positive")
	}
	switch c.Feed.Source {
	case FeedMock, FeedYahoo:
	case FeedReplay:
		if c.Feed.ReplayFile == "" {
			return errors.New("feed.replay_file is required for the replay source")
		}
	default:
		return errors.Errorf("feed.source %q: want mock, replay or yahoo", c.Feed.Source)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return errors.New("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}
