package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Default schedules, in standard five-field cron syntax
const (
	DefaultReminderSpec = "30 8 * * *"
	DefaultDispatchSpec = "@every 1m"
)

const cronJobTimeout = 2 * time.Minute

// CronService runs the reminder and dispatch jobs
type CronService struct {
	cron         *cron.Cron
	alerts       *AlertService
	reminderSpec string
	dispatchSpec string
	log          *zap.Logger
}

// NewCronService creates a new cron service. Empty specs fall back to the defaults.
func NewCronService(alerts *AlertService, reminderSpec, dispatchSpec string, log *zap.Logger) *CronService {
	if log == nil {
		log = zap.NewNop()
	}
	if reminderSpec == "" {
		reminderSpec = DefaultReminderSpec
	}
	if dispatchSpec == "" {
		dispatchSpec = DefaultDispatchSpec
	}

	cronLog := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	return &CronService{
		cron:         c,
		alerts:       alerts,
		reminderSpec: reminderSpec,
		dispatchSpec: dispatchSpec,
		log:          log,
	}
}

// Start registers the jobs and starts the scheduler
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.reminderSpec, s.runReminders); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.dispatchSpec, s.runDispatch); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("cron service started",
		zap.String("reminders", s.reminderSpec),
		zap.String("dispatch", s.dispatchSpec),
	)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("cron service stopped")
}

func (s *CronService) runReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), cronJobTimeout)
	defer cancel()

	n, err := s.alerts.ProcessDueAlerts(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error("reminder job failed", zap.Error(err))
		return
	}
	s.log.Debug("reminder job finished", zap.Int("created", n))
}

func (s *CronService) runDispatch() {
	ctx, cancel := context.WithTimeout(context.Background(), cronJobTimeout)
	defer cancel()

	n, err := s.alerts.SendPendingAlerts(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error("dispatch job failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("pending alerts delivered", zap.Int("count", n))
	}
}
