// Package jobs runs the periodic background work: refreshing the reporting
// views and mailing the overdue digest.
package jobs

import (
	"context"
	"fmt"
	"time"

	"credit-sales/internal/core"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ViewRefresher refreshes materialized reporting views.
type ViewRefresher interface {
	RefreshViews(ctx context.Context) error
}

// OverdueSource lists a company's overdue credits.
type OverdueSource interface {
	GetOverdueCredits(ctx context.Context, companyCode string, today time.Time) ([]core.OverdueCredit, error)
}

// DigestMailer mails the overdue list.
type DigestMailer interface {
	SendOverdueDigest(companyCode string, today time.Time, overdue []core.OverdueCredit) error
}

// JobRecorder counts job outcomes; observability.Metrics implements it.
type JobRecorder interface {
	RecordJob(job string, err error)
}

const jobTimeout = 2 * time.Minute

type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	metrics JobRecorder
	clock   core.Clock
}

func NewScheduler(logger *zap.Logger, metrics JobRecorder, clock core.Clock) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger:  logger,
		metrics: metrics,
		clock:   clock,
	}
}

// AddViewRefresh schedules RefreshViews on spec, e.g. "@every 15m".
func (s *Scheduler) AddViewRefresh(spec string, views ViewRefresher) error {
	return s.add("refresh_views", spec, func(ctx context.Context) error {
		return views.RefreshViews(ctx)
	})
}

// AddOverdueDigest schedules the digest for companyCode on spec, e.g. "0 7 * * *".
func (s *Scheduler) AddOverdueDigest(spec, companyCode string, src OverdueSource, mail DigestMailer) error {
	return s.add("overdue_digest", spec, func(ctx context.Context) error {
		return SendOverdueDigest(ctx, companyCode, core.Today(s.clock), src, mail)
	})
}

func (s *Scheduler) add(name, spec string, fn func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(name, fn) })
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	s.logger.Info("job scheduled", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

func (s *Scheduler) run(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	s.metrics.RecordJob(name, err)
	if err != nil {
		s.logger.Error("job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.logger.Info("job finished", zap.String("job", name), zap.Duration("elapsed", time.Since(start)))
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// SendOverdueDigest fetches today's overdue list and mails it.
func SendOverdueDigest(ctx context.Context, companyCode string, today time.Time, src OverdueSource, mail DigestMailer) error {
	overdue, err := src.GetOverdueCredits(ctx, companyCode, today)
	if err != nil {
		return fmt.Errorf("load overdue credits: %w", err)
	}
	return mail.SendOverdueDigest(companyCode, today, overdue)
}
