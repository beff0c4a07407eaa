package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"RiskSentinel/internal/config"
	"RiskSentinel/internal/dispatcher"
	"RiskSentinel/internal/feed"
	"RiskSentinel/internal/history"
	"RiskSentinel/internal/journal"
	"RiskSentinel/internal/notifier"
	"RiskSentinel/internal/recorder"
	"RiskSentinel/internal/scheduler"
	"RiskSentinel/internal/strategy"
	"RiskSentinel/internal/telemetry"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("RiskSentinel starting", zap.String("config", cfgPath), zap.Int("instruments", len(cfg.Instruments)))

	// Engine
	store := history.NewStore(cfg.History.Capacity, cfg.History.QuotesCapacity)
	mapper := strategy.NewAlternativeMapper(cfg.Alternatives, cfg.DefaultAlts)
	engine := strategy.NewEngine(cfg.StrategyThresholds(), mapper)
	metrics := telemetry.New()

	opts := []dispatcher.Option{dispatcher.WithTelemetry(metrics)}
	var activity scheduler.ActivityLog
	wal, err := journal.NewWALStore(cfg.Journal.Dir)
	if err != nil {
		logger.Warn("activity journal disabled", zap.Error(err))
	} else {
		defer wal.Close()
		opts = append(opts, dispatcher.WithJournal(wal))
		activity = wal
	}

	// Recorder
	var rec recorder.Recorder
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
	if err != nil {
		logger.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		rec = recorder.NewNoopRecorder()
	} else {
		rec = sr
		defer sr.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seeds := cfg.Instruments
	var src feed.Feed
	switch cfg.Feed.Source {
	case config.FeedReplay:
		src = feed.NewReplayFile(cfg.Feed.ReplayFile, cfg.Feed.ReplayGap, logger)
	case config.FeedYahoo:
		symbols := make([]string, 0, len(cfg.Instruments))
		for _, s := range cfg.Instruments {
			symbols = append(symbols, s.Symbol)
		}
		yf := feed.NewYahooFeed(symbols, cfg.Feed.PollInterval, cfg.Proxy, logger)
		seeds = yf.LiveSeeds(ctx, cfg.Instruments)
		src = yf
	default:
		src = feed.NewMockFeed(cfg.Instruments, cfg.Feed.Interval, cfg.Feed.Seed)
	}

	disp := dispatcher.New(store, engine, logger, opts...)
	if err := disp.Seed(seeds); err != nil {
		logger.Error("seed instruments", zap.Error(err))
		return
	}

	// Notifications
	var sender scheduler.Sender
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
		sender = tn
	} else {
		logger.Info("telegram not configured, notifications disabled")
	}

	sched := scheduler.NewScheduler(ctx, disp, sender, rec, activity, logger)
	if err := sched.RegisterAll(cfg.Schedule.SnapshotCron, cfg.Schedule.ReportCron); err != nil {
		logger.Error("register cron tasks", zap.Error(err))
		return
	}
	sched.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := disp.Run(gctx, src); err != nil {
			return err
		}
		// a replay feed can end before shutdown; keep serving the last cycle
		<-gctx.Done()
		return nil
	})
	if cfg.Metrics.Listen != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Metrics.Listen, logger)
		})
	}
	if tn != nil {
		g.Go(func() error {
			tn.StartPolling(gctx, sched.HandleCommand)
			return nil
		})
		logger.Info("telegram polling started")
	}

	logger.Info("RiskSentinel is running. Press Ctrl+C to stop.", zap.String("feed", src.Name()))
	err = g.Wait()

	sched.Stop()
	sched.RecordNow()
	if err != nil {
		logger.Error("stopped with error", zap.Error(err))
		return
	}
	logger.Info("RiskSentinel stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	if lvl.Level() == zap.DebugLevel {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = lvl
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
