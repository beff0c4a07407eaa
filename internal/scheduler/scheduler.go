package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"RiskSentinel/internal/model"
	"RiskSentinel/internal/notifier"
	"RiskSentinel/internal/recorder"
)

// Engine is the part of the dispatcher the scheduler drives.
type Engine interface {
	Latest() model.Cycle
	ApplyStopLoss(symbol string) (model.ActivityEvent, error)
}

// Sender delivers formatted reports.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// ActivityLog lists recent activity, newest first.
type ActivityLog interface {
	Recent(n int) ([]model.ActivityEvent, error)
}

const activityLimit = 10

// Scheduler manages all cron tasks and chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Engine   Engine
	Notifier Sender
	Recorder recorder.Recorder
	Activity ActivityLog
	Ctx      context.Context

	logger       *zap.Logger
	mu           sync.Mutex
	lastRecorded uint64
}

// NewScheduler creates a new Scheduler. tn may be nil when notifications are disabled.
func NewScheduler(ctx context.Context, eng Engine, tn Sender, rec recorder.Recorder, activity ActivityLog, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Engine:   eng,
		Notifier: tn,
		Recorder: rec,
		Activity: activity,
		Ctx:      ctx,
		logger:   logger,
	}
}

// RegisterAll registers the snapshot and report tasks. An empty spec skips the task.
func (s *Scheduler) RegisterAll(snapshotCron, reportCron string) error {
	if snapshotCron != "" {
		if _, err := s.Cron.AddFunc(snapshotCron, s.snapshotTask); err != nil {
			return errors.Wrap(err, "register snapshot task")
		}
	}
	if reportCron != "" && s.Notifier != nil {
		if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
			return errors.Wrap(err, "register report task")
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RecordNow persists the latest cycle unless it was already recorded.
func (s *Scheduler) RecordNow() {
	s.snapshotTask()
}

func (s *Scheduler) snapshotTask() {
	cycle := s.Engine.Latest()
	if cycle.Seq == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cycle.Seq == s.lastRecorded {
		s.logger.Debug("snapshot unchanged, skipping", zap.Uint64("seq", cycle.Seq))
		return
	}
	if err := s.Recorder.RecordCycle(&cycle); err != nil {
		s.logger.Error("record cycle", zap.Uint64("seq", cycle.Seq), zap.Error(err))
		return
	}
	s.lastRecorded = cycle.Seq
	s.logger.Debug("cycle recorded", zap.Uint64("seq", cycle.Seq))
}

func (s *Scheduler) reportTask() {
	cycle := s.Engine.Latest()
	if cycle.Seq == 0 {
		return
	}
	s.trySend(notifier.FormatReport(&cycle))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// "/cmd@botname" in group chats
	name := strings.ToLower(strings.SplitN(fields[0], "@", 2)[0])

	switch name {
	case "/stoploss":
		if len(fields) < 2 {
			return "Usage: /stoploss SYMBOL"
		}
		evt, err := s.Engine.ApplyStopLoss(strings.ToUpper(fields[1]))
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return "🛑 " + evt.Text
	case "/report":
		cycle := s.Engine.Latest()
		return notifier.FormatReport(&cycle)
	case "/metrics":
		return notifier.FormatMetrics(s.Engine.Latest().Metrics)
	case "/suggestions":
		return notifier.FormatSuggestions(s.Engine.Latest().Suggestions)
	case "/activity":
		if s.Activity == nil {
			return "Activity journal disabled"
		}
		events, err := s.Activity.Recent(activityLimit)
		if err != nil {
			s.logger.Error("read activity", zap.Error(err))
			return "❌ activity unavailable"
		}
		return notifier.FormatActivity(events)
	default:
		return helpText
	}
}

const helpText = "Available commands:\n" +
	"• /report\n" +
	"• /metrics\n" +
	"• /suggestions\n" +
	"• /activity\n" +
	"• /stoploss SYMBOL"

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.logger.Error("send notification", zap.Error(err))
	}
}
