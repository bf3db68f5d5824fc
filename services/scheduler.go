package services

import (
	"context"
	"fmt"
	"time"

	"studenttrack_go/config"
	"studenttrack_go/services/alerts"
	"studenttrack_go/services/notifications"
	"studenttrack_go/services/offline"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs the recurring background jobs: the daily alert sweep,
// the periodic offline queue sync, and activity log maintenance.
type Scheduler struct {
	cron     *cron.Cron
	alerts   *alerts.Service
	engine   *offline.Engine
	notifier *notifications.Service
	logs     *LogFlushService
	settings *SettingsService
}

func NewScheduler(alertSvc *alerts.Service, engine *offline.Engine, notifier *notifications.Service, settings *SettingsService) *Scheduler {
	return &Scheduler{
		alerts:   alertSvc,
		engine:   engine,
		notifier: notifier,
		logs:     NewLogFlushService(),
		settings: settings,
	}
}

// Start registers the jobs and starts the cron loop. The sweep hour and
// timezone come from app settings; the sync spec from config.
func (s *Scheduler) Start() error {
	current := s.settings.Current()

	loc, err := time.LoadLocation(current.Timezone)
	if err != nil {
		logrus.WithError(err).WithField("timezone", current.Timezone).Warn("invalid timezone in settings, using UTC")
		loc = time.UTC
	}

	s.cron = cron.New(cron.WithLocation(loc))

	sweepSpec := fmt.Sprintf("0 %d * * *", current.SweepHour)
	if _, err := s.cron.AddFunc(sweepSpec, s.runAlertSweep); err != nil {
		return fmt.Errorf("failed to schedule alert sweep: %v", err)
	}

	if _, err := s.cron.AddFunc(config.AppConfig.SyncCronSpec, s.runSync); err != nil {
		return fmt.Errorf("failed to schedule queue sync: %v", err)
	}

	if _, err := s.cron.AddFunc("30 * * * *", s.runLogFlush); err != nil {
		return fmt.Errorf("failed to schedule log flush: %v", err)
	}

	if _, err := s.cron.AddFunc("0 3 * * *", s.runLogPrune); err != nil {
		return fmt.Errorf("failed to schedule log prune: %v", err)
	}

	s.cron.Start()
	logrus.WithFields(logrus.Fields{
		"sweep":    sweepSpec,
		"sync":     config.AppConfig.SyncCronSpec,
		"timezone": loc.String(),
	}).Info("scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for running jobs to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}

// runAlertSweep evaluates every active student against the rule set and
// tells the admins how many new alerts opened.
func (s *Scheduler) runAlertSweep() {
	result := s.alerts.Sweep(time.Now())
	logrus.WithFields(logrus.Fields{
		"students": result.Students,
		"events":   result.Events,
		"errors":   result.Errors,
	}).Info("alert sweep finished")

	if result.Events == 0 {
		return
	}

	title := "Daily alert sweep"
	if err := s.notifier.NotifyAdmins(title, sweepSummary(result), "warning", map[string]interface{}{
		"events": result.Events,
	}); err != nil {
		logrus.WithError(err).Error("failed to notify admins about sweep results")
	}
}

// sweepSummary renders the admin notification body for one sweep pass.
func sweepSummary(result alerts.SweepResult) string {
	return fmt.Sprintf("%d new alert(s) opened across %d student(s)", result.Events, result.Students)
}

func (s *Scheduler) runSync() {
	report := s.engine.SyncAll(context.Background())
	if report.Skipped {
		logrus.WithField("reason", report.SkipReason).Debug("scheduled sync skipped")
		return
	}
	logrus.WithFields(logrus.Fields{
		"succeeded": report.SuccessCount,
		"failed":    report.FailCount,
	}).Info("scheduled sync finished")
}

func (s *Scheduler) runLogFlush() {
	if err := s.logs.FlushCachedLogsToDatabase(); err != nil {
		logrus.WithError(err).Warn("log flush failed")
	}
}

func (s *Scheduler) runLogPrune() {
	if err := s.logs.PruneOldLogs(180); err != nil {
		logrus.WithError(err).Warn("log prune failed")
	}
}
