package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/webitel/player-sync-service/internal/buffer"
	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/metrics"
)

const DefaultSyncDebounce = 500 * time.Millisecond

// SyncReport describes one sync pass.
type SyncReport struct {
	Cancelled bool          `json:"cancelled"`
	Users     int           `json:"users"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// SyncTask reloads every relevant user and propagates the result to the platform.
type SyncTask struct {
	loader   UserLoader
	platform Platform
	events   *event.Dispatcher
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewSyncTask(loader UserLoader, platform Platform, events *event.Dispatcher, logger *slog.Logger, m *metrics.Metrics) *SyncTask {
	return &SyncTask{loader: loader, platform: platform, events: events, logger: logger, metrics: m}
}

// Run performs one pass. A pre-sync observer can cancel it before anything is touched.
func (t *SyncTask) Run(ctx context.Context) (SyncReport, error) {
	report := SyncReport{StartedAt: time.Now()}

	if t.events.DispatchPreSync(ctx) {
		report.Cancelled = true
		t.metrics.SyncRun(metrics.ResultCancelled, 0)
		t.logger.Info("SYNC_CANCELLED")
		return report, nil
	}

	n, err := t.loader.LoadAllUsers(ctx)
	if err != nil {
		return t.fail(report, err)
	}
	report.Users = n

	if err := t.platform.PropagateSync(ctx); err != nil {
		return t.fail(report, fmt.Errorf("propagate sync: %w", err))
	}

	t.events.DispatchPostSync(ctx)

	report.Duration = time.Since(report.StartedAt)
	t.metrics.SyncRun(metrics.ResultSuccess, report.Duration)
	t.logger.Info("SYNC_COMPLETED", "users", n, "duration", report.Duration)
	return report, nil
}

func (t *SyncTask) fail(report SyncReport, err error) (SyncReport, error) {
	report.Duration = time.Since(report.StartedAt)
	t.metrics.SyncRun(metrics.ResultFailure, report.Duration)
	t.logger.Error("SYNC_FAILED", "err", err, "duration", report.Duration)
	return report, err
}

// Syncer coalesces sync requests: bursts within the debounce window share one pass.
type Syncer struct {
	buf    *buffer.BufferedRequest[SyncReport]
	logger *slog.Logger
}

func NewSyncer(task *SyncTask, debounce time.Duration, logger *slog.Logger) *Syncer {
	if debounce <= 0 {
		debounce = DefaultSyncDebounce
	}
	return &Syncer{buf: buffer.New(debounce, task.Run), logger: logger}
}

// Request schedules a sync after the debounce window.
func (s *Syncer) Request() *buffer.Request[SyncReport] { return s.buf.Trigger() }

// RequestNow runs a sync as soon as no other pass is executing.
func (s *Syncer) RequestNow() *buffer.Request[SyncReport] { return s.buf.TriggerNow() }

func (s *Syncer) State() buffer.State { return s.buf.State() }

// Tick adapts a periodic sync to a scheduler.Task.
func (s *Syncer) Tick(context.Context) { s.Request() }

func (s *Syncer) Close() { s.buf.Close() }
