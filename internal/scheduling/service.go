package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/medrex/clinic-scheduling/pkg/config"
	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/monitoring"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

var (
	errNotOwner       = types.NewUnauthorizedError(types.ErrCodeUnauthorized, "appointment belongs to another patient")
	errNotDoctorOwner = types.NewUnauthorizedError(types.ErrCodeUnauthorized, "appointment belongs to another doctor")
)

// Service implements the SchedulingService interface
type Service struct {
	logger    *logger.Logger
	repo      interfaces.SchedulingRepository
	reserver  interfaces.SlotReserver
	passwords interfaces.PasswordHasher
	metrics   *monitoring.MetricsCollector
	tracing   *monitoring.TracingManager
	loc       *time.Location
	now       func() time.Time
}

// NewService creates a new scheduling service. A nil reserver leaves the
// store's unique constraint as the only double-booking guard.
func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo interfaces.SchedulingRepository,
	reserver interfaces.SlotReserver,
	passwords interfaces.PasswordHasher,
	metrics *monitoring.MetricsCollector,
	tracing *monitoring.TracingManager,
) *Service {
	if reserver == nil {
		reserver = NoopReserver{}
	}
	if tracing == nil {
		tracing = monitoring.NewNoopTracingManager("scheduling-service")
	}
	return &Service{
		logger:    log,
		repo:      repo,
		reserver:  reserver,
		passwords: passwords,
		metrics:   metrics,
		tracing:   tracing,
		loc:       cfg.Scheduling.Location(),
		now:       time.Now,
	}
}

// Location is the zone calendar dates are interpreted in
func (s *Service) Location() *time.Location {
	return s.loc
}

// storeError logs unexpected failures and converts them to internal errors.
// Business errors pass through untouched.
func (s *Service) storeError(err error, action string) error {
	var ce *types.ClinicError
	if !errors.As(err, &ce) {
		s.logger.WithError(err).WithField("action", action).Error("Scheduling store operation failed")
	}
	return types.AsInternal(err, types.ErrCodeInternalError, "failed to "+action)
}

func requireRole(caller *types.Principal, role types.Role) error {
	if caller == nil || caller.Role != role {
		return types.NewUnauthorizedError(types.ErrCodeUnauthorized, "operation requires the "+string(role)+" role")
	}
	return nil
}

var _ interfaces.SchedulingService = (*Service)(nil)

// actorOf names the authenticated caller for audit entries
func actorOf(ctx context.Context) string {
	if p, ok := types.PrincipalFromContext(ctx); ok {
		return p.Subject
	}
	return "system"
}
