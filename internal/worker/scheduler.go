package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/service"
)

// Scheduler drives the periodic maintenance sweeps: breach scanning,
// auto-escalation, workload assignment and daily statistics. Each job
// runs on its own ticker so a slow sweep never delays the others.
type Scheduler struct {
	cfg         config.JobsConfig
	threshold   time.Duration
	assignment  *service.AssignmentService
	maintenance *service.MaintenanceService
	metrics     *observability.Metrics
	logger      *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// SchedulerDependencies bundles collaborators.
type SchedulerDependencies struct {
	Jobs              config.JobsConfig
	EscalateThreshold time.Duration
	Assignment        *service.AssignmentService
	Maintenance       *service.MaintenanceService
	Metrics           *observability.Metrics
	Logger            *zap.Logger
}

// NewScheduler constructs the scheduler.
func NewScheduler(deps SchedulerDependencies) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:         deps.Jobs,
		threshold:   deps.EscalateThreshold,
		assignment:  deps.Assignment,
		maintenance: deps.Maintenance,
		metrics:     deps.Metrics,
		logger:      logger,
	}
}

// Start launches the job loops. No-op when jobs are disabled.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info("maintenance jobs disabled")
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.spawn(ctx, "breach_scan", s.cfg.BreachScanInterval, func(ctx context.Context) (*service.BatchReport, error) {
		return s.maintenance.ScanSLABreaches(ctx)
	})
	s.spawn(ctx, "auto_escalate", s.cfg.AutoEscalateInterval, func(ctx context.Context) (*service.BatchReport, error) {
		return s.maintenance.AutoEscalateOverdue(ctx, s.threshold)
	})
	s.spawn(ctx, "assignment", s.cfg.AssignmentInterval, func(ctx context.Context) (*service.BatchReport, error) {
		return s.assignment.AssignPendingComplaints(ctx)
	})
	s.spawn(ctx, "daily_stats", s.cfg.DailyStatsInterval, func(ctx context.Context) (*service.BatchReport, error) {
		_, err := s.maintenance.GenerateDailyStats(ctx)
		return &service.BatchReport{}, err
	})

	s.logger.Info("maintenance scheduler started",
		zap.Duration("breach_scan_interval", s.cfg.BreachScanInterval),
		zap.Duration("auto_escalate_interval", s.cfg.AutoEscalateInterval),
		zap.Duration("assignment_interval", s.cfg.AssignmentInterval),
		zap.Duration("daily_stats_interval", s.cfg.DailyStatsInterval))
}

// Stop cancels the loops and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) spawn(ctx context.Context, name string, interval time.Duration, run func(context.Context) (*service.BatchReport, error)) {
	if interval <= 0 {
		s.logger.Warn("job disabled: non-positive interval", zap.String("job", name))
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx, name, run)
			}
		}
	}()
}

func (s *Scheduler) runOnce(ctx context.Context, name string, run func(context.Context) (*service.BatchReport, error)) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout())
	defer cancel()

	report, err := run(ctx)
	if err != nil {
		s.logger.Error("job run failed", zap.String("job", name), zap.Error(err))
		s.metrics.RecordJobRun(name, 1)
		return
	}
	s.metrics.RecordJobRun(name, report.Failed)
	if report.Succeeded > 0 || report.Failed > 0 {
		s.logger.Info("job run complete",
			zap.String("job", name),
			zap.Int("succeeded", report.Succeeded),
			zap.Int("failed", report.Failed))
	}
}
