package offline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Report summarises one sync pass.
type Report struct {
	Skipped      bool      `json:"skipped"`
	SkipReason   string    `json:"skip_reason,omitempty"`
	SuccessCount int       `json:"success_count"`
	FailCount    int       `json:"fail_count"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Engine drains the queue against the authoritative store. Replay is
// sequential in timestamp order; parallelising it would break causal
// ordering for dependent operations.
type Engine struct {
	store   Store
	applier OpApplier
	online  func() bool

	syncing  atomic.Bool
	mu       sync.Mutex
	lastSync time.Time
}

func NewEngine(store Store, applier OpApplier, online func() bool) *Engine {
	return &Engine{store: store, applier: applier, online: online}
}

// SyncAll replays every unsynced operation once. It skips when offline or
// when another pass is in flight; a pass, once started, runs to completion
// over the then-current snapshot of the queue.
func (e *Engine) SyncAll(ctx context.Context) Report {
	if e.online != nil && !e.online() {
		return Report{Skipped: true, SkipReason: "offline"}
	}
	if !e.syncing.CompareAndSwap(false, true) {
		return Report{Skipped: true, SkipReason: "sync already in progress"}
	}
	defer e.syncing.Store(false)

	report := Report{}

	ops, err := e.store.ListUnsynced(ctx)
	if err != nil {
		logrus.WithError(err).Error("Sync: failed to list queued operations")
		report.Skipped = true
		report.SkipReason = "queue unavailable"
		return report
	}

	for _, op := range ops {
		if err := e.applier.Apply(ctx, op); err != nil {
			// The operation stays queued and is retried on the next pass.
			logrus.WithError(err).WithFields(logrus.Fields{
				"operation_id": op.ID,
				"table":        op.Table,
				"kind":         op.Kind,
			}).Warn("Sync: replay failed")
			report.FailCount++
			continue
		}
		if err := e.store.MarkSynced(ctx, op.ID); err != nil {
			logrus.WithError(err).WithField("operation_id", op.ID).Error("Sync: mark failed")
			report.FailCount++
			continue
		}
		report.SuccessCount++
	}

	// Cleanup is separate from marking so a crash in between is safe;
	// purging is idempotent.
	if err := e.store.PurgeSynced(ctx); err != nil {
		logrus.WithError(err).Error("Sync: purge failed")
	}

	report.FinishedAt = time.Now().UTC()
	e.mu.Lock()
	e.lastSync = report.FinishedAt
	e.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"success": report.SuccessCount,
		"failed":  report.FailCount,
	}).Info("Sync pass completed")
	return report
}

// LastSync returns when the last pass finished, zero if never.
func (e *Engine) LastSync() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}

// Syncing reports whether a pass is currently running.
func (e *Engine) Syncing() bool {
	return e.syncing.Load()
}

// Pending returns the number of unsynced operations.
func (e *Engine) Pending(ctx context.Context) (int, error) {
	return e.store.CountUnsynced(ctx)
}

// StartWatcher polls connectivity and triggers exactly one sync pass per
// offline-to-online transition (edge-triggered, so staying online does not
// cause redundant passes).
func (e *Engine) StartWatcher(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		wasOnline := e.online == nil || e.online()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				nowOnline := e.online == nil || e.online()
				if nowOnline && !wasOnline {
					logrus.Info("Connectivity restored, starting sync pass")
					go e.SyncAll(context.Background())
				}
				wasOnline = nowOnline
			}
		}
	}()
}
