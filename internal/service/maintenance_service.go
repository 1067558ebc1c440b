package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/clock"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// MaintenanceService runs the periodic sweeps: breach scanning,
// auto-escalation and daily statistics. All sweeps are best-effort
// batches; a failure on one entity never aborts the rest.
type MaintenanceService struct {
	complaints  repository.ComplaintRepository
	escalations repository.EscalationRepository
	users       repository.UserRepository
	tx          repository.TxManager
	cache       *redis.Client
	cacheTTL    time.Duration
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	clock       clock.Clock
}

// MaintenanceDependencies bundles collaborators.
type MaintenanceDependencies struct {
	ComplaintRepo  repository.ComplaintRepository
	EscalationRepo repository.EscalationRepository
	UserRepo       repository.UserRepository
	TxManager      repository.TxManager
	Cache          *redis.Client
	CacheTTL       time.Duration
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Clock          clock.Clock
}

// DailyStats aggregates complaint metrics for one calendar day.
type DailyStats struct {
	Date               string  `json:"date"`
	TotalComplaints    int     `json:"total_complaints"`
	CreatedToday       int     `json:"created_today"`
	ResolvedToday      int     `json:"resolved_today"`
	Pending            int     `json:"pending"`
	InProgress         int     `json:"in_progress"`
	Escalated          int     `json:"escalated"`
	SLABreachedTotal   int     `json:"sla_breached_total"`
	ActiveEscalations  int     `json:"active_escalations"`
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
}

// AdminOverview extends DailyStats with account totals for the admin
// dashboard.
type AdminOverview struct {
	DailyStats
	TotalStudents int `json:"total_students"`
	TotalStaff    int `json:"total_staff"`
}

// NewMaintenanceService constructs the service.
func NewMaintenanceService(deps MaintenanceDependencies) *MaintenanceService {
	c := deps.Clock
	if c == nil {
		c = clock.System()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{
		complaints:  deps.ComplaintRepo,
		escalations: deps.EscalationRepo,
		users:       deps.UserRepo,
		tx:          deps.TxManager,
		cache:       deps.Cache,
		cacheTTL:    deps.CacheTTL,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		clock:       c,
	}
}

// ScanSLABreaches marks open complaints whose deadline has passed.
// Idempotent: an immediate re-run finds no candidates.
func (s *MaintenanceService) ScanSLABreaches(ctx context.Context) (*BatchReport, error) {
	report := &BatchReport{}
	now := s.clock.Now()

	candidates, err := s.complaints.ListBreachCandidates(ctx, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	for i := range candidates {
		complaint := &candidates[i]
		if err := s.complaints.MarkBreached(ctx, complaint.ID); err != nil {
			report.failure(fmt.Errorf("mark breached %s: %w", complaint.ID, err))
			s.logger.Error("breach marking failed",
				zap.String("complaint_id", complaint.ID), zap.Error(err))
			continue
		}
		report.Succeeded++
		s.logger.Warn("sla breached",
			zap.String("complaint_id", complaint.ID),
			zap.Timep("deadline", complaint.SLADeadline))
		s.publishBreached(ctx, complaint)
	}

	if report.Succeeded > 0 {
		s.logger.Info("breach scan complete", zap.Int("marked", report.Succeeded))
	}
	return report, nil
}

// AutoEscalateOverdue escalates breached complaints older than the
// threshold that have no unresolved escalation yet. Each escalation and
// its status side effect commit in one transaction; a failed complaint
// does not stop the sweep.
func (s *MaintenanceService) AutoEscalateOverdue(ctx context.Context, threshold time.Duration) (*BatchReport, error) {
	report := &BatchReport{}
	now := s.clock.Now()
	cutoff := now.Add(-threshold)

	overdue, err := s.complaints.ListOverdueUnescalated(ctx, cutoff)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	for i := range overdue {
		complaint := &overdue[i]
		escalation := &domain.Escalation{
			ComplaintID: complaint.ID,
			Reason:      domain.EscalationReasonSLABreach,
			Notes:       fmt.Sprintf("Auto-escalated: complaint unresolved for more than %d hours", int(threshold.Hours())),
		}

		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := s.escalations.Create(ctx, escalation); err != nil {
				return err
			}
			complaint.ApplyStatus(domain.ComplaintStatusEscalated, now)
			return s.complaints.Update(ctx, complaint)
		})
		if err != nil {
			report.failure(fmt.Errorf("auto-escalate %s: %w", complaint.ID, err))
			s.logger.Error("auto-escalation failed",
				zap.String("complaint_id", complaint.ID), zap.Error(err))
			continue
		}

		report.Succeeded++
		s.logger.Warn("complaint auto-escalated",
			zap.String("complaint_id", complaint.ID),
			zap.String("escalation_id", escalation.ID))
		s.publishEscalated(ctx, escalation)
	}

	if report.Succeeded > 0 {
		s.logger.Info("auto-escalation sweep complete", zap.Int("escalated", report.Succeeded))
	}
	return report, nil
}

// GenerateDailyStats aggregates complaint metrics for the calendar day
// of the injected clock. Read-only apart from the cache write; the
// average is 0 when nothing has been resolved yet.
func (s *MaintenanceService) GenerateDailyStats(ctx context.Context) (*DailyStats, error) {
	now := s.clock.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	stats := &DailyStats{Date: dayStart.Format("2006-01-02")}

	var err error
	if stats.TotalComplaints, err = s.complaints.Count(ctx, repository.ComplaintFilter{}); err != nil {
		return nil, apperrors.MapError(err)
	}
	if stats.CreatedToday, err = s.complaints.Count(ctx, repository.ComplaintFilter{
		CreatedFrom: &dayStart, CreatedTo: &dayEnd,
	}); err != nil {
		return nil, apperrors.MapError(err)
	}
	if stats.ResolvedToday, err = s.complaints.Count(ctx, repository.ComplaintFilter{
		ResolvedFrom: &dayStart, ResolvedTo: &dayEnd,
	}); err != nil {
		return nil, apperrors.MapError(err)
	}
	if stats.Pending, err = s.countByStatus(ctx, domain.ComplaintStatusPending); err != nil {
		return nil, err
	}
	if stats.InProgress, err = s.countByStatus(ctx, domain.ComplaintStatusInProgress); err != nil {
		return nil, err
	}
	if stats.Escalated, err = s.countByStatus(ctx, domain.ComplaintStatusEscalated); err != nil {
		return nil, err
	}
	breached := true
	if stats.SLABreachedTotal, err = s.complaints.Count(ctx, repository.ComplaintFilter{SLABreached: &breached}); err != nil {
		return nil, apperrors.MapError(err)
	}
	if stats.ActiveEscalations, err = s.escalations.CountUnresolved(ctx); err != nil {
		return nil, apperrors.MapError(err)
	}

	avg, err := s.complaints.AverageResolutionHours(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	stats.AvgResolutionHours = math.Round(avg*100) / 100

	s.cacheStats(ctx, stats)
	s.logger.Info("daily stats generated",
		zap.String("date", stats.Date),
		zap.Int("total", stats.TotalComplaints),
		zap.Float64("avg_resolution_hours", stats.AvgResolutionHours))
	return stats, nil
}

// Overview returns the admin dashboard aggregate.
func (s *MaintenanceService) Overview(ctx context.Context) (*AdminOverview, error) {
	stats, err := s.GenerateDailyStats(ctx)
	if err != nil {
		return nil, err
	}
	overview := &AdminOverview{DailyStats: *stats}
	if overview.TotalStudents, err = s.users.CountByRole(ctx, domain.RoleStudent); err != nil {
		return nil, apperrors.MapError(err)
	}
	if overview.TotalStaff, err = s.users.CountByRole(ctx, domain.RoleStaff); err != nil {
		return nil, apperrors.MapError(err)
	}
	return overview, nil
}

func (s *MaintenanceService) countByStatus(ctx context.Context, status domain.ComplaintStatus) (int, error) {
	count, err := s.complaints.Count(ctx, repository.ComplaintFilter{
		Statuses: []domain.ComplaintStatus{status},
	})
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}

func (s *MaintenanceService) cacheStats(ctx context.Context, stats *DailyStats) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	key := "stats:daily:" + stats.Date
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *MaintenanceService) publishBreached(ctx context.Context, complaint *domain.Complaint) {
	if s.dispatcher == nil || complaint.SLADeadline == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:          uuid.NewString(),
		Type:        events.EventSLABreached,
		ComplaintID: complaint.ID,
		Actor:       systemActor(),
		Timestamp:   s.clock.Now(),
		Payload:     events.SLABreachedPayload{Deadline: *complaint.SLADeadline},
	})
}

func (s *MaintenanceService) publishEscalated(ctx context.Context, escalation *domain.Escalation) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:          uuid.NewString(),
		Type:        events.EventComplaintEscalated,
		ComplaintID: escalation.ComplaintID,
		Actor:       systemActor(),
		Timestamp:   s.clock.Now(),
		Payload: events.ComplaintEscalatedPayload{
			EscalationID: escalation.ID,
			Reason:       escalation.Reason,
		},
	})
}
