package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/notemart/internal/audit/domain"
	"github.com/smallbiznis/notemart/internal/audit/auditcontext"
	authdomain "github.com/smallbiznis/notemart/internal/auth/domain"
	"github.com/smallbiznis/notemart/internal/clock"
	obsmetrics "github.com/smallbiznis/notemart/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/notemart/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

const (
	jobExpireOrders = "expire_pending_orders"
	jobPurgeTokens  = "purge_auth_tokens"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	OrderSvc   orderdomain.Service
	AuditSvc   auditdomain.Service
	GenID      *snowflake.Node
	Clock      clock.Clock         `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
	Config     Config              `optional:"true"`
}

// Scheduler runs periodic maintenance: abandoned checkouts are failed and
// dead auth tokens are purged.
type Scheduler struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	orderSvc   orderdomain.Service
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.OrderSvc == nil || p.GenID == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:         p.DB,
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      clock.Or(p.Clock),
		orderSvc:   p.OrderSvc,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "scheduler")
	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}

	err := fn(ctx)
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		s.obsMetrics.RecordJobRun(ctx, name, "ok", time.Since(start))
		return nil
	}

	// deadline is a soft timeout; the next tick picks up the rest
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.obsMetrics.RecordJobRun(ctx, name, "timeout", time.Since(start))
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	s.obsMetrics.RecordJobRun(ctx, name, "error", time.Since(start))
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{jobExpireOrders, s.ExpirePendingOrdersJob},
		{jobPurgeTokens, s.PurgeAuthTokensJob},
	}

	for _, job := range jobs {
		err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.BatchSize, 30*time.Second, job.Run))
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ExpirePendingOrdersJob fails checkouts that never completed payment. A
// late capture can still move a failed order to paid.
func (s *Scheduler) ExpirePendingOrdersJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	cutoff := s.clock.Now().Add(-s.cfg.PendingOrderTTL)

	expired, err := s.orderSvc.ExpireStale(ctx, cutoff, s.cfg.BatchSize)
	run.AddProcessed(expired)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.expire_orders.failed", jobExpireOrders, err)
		return err
	}
	if expired == 0 {
		return nil
	}

	if s.auditSvc != nil {
		if err := s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeSystem), nil, "order.expire", "order", nil, map[string]any{
			"count":  expired,
			"cutoff": cutoff.Format(time.RFC3339),
		}); err != nil {
			s.logger(ctx).Warn("failed to write audit log", zap.Error(err))
		}
	}
	return nil
}

// PurgeAuthTokensJob removes refresh tokens and password resets that can no
// longer be redeemed.
func (s *Scheduler) PurgeAuthTokensJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	now := s.clock.Now()

	res := s.db.WithContext(ctx).
		Where("expires_at < ? OR revoked = ?", now, true).
		Delete(&authdomain.RefreshToken{})
	if res.Error != nil {
		s.logSchedulerError(ctx, run, "scheduler.purge_tokens.failed", jobPurgeTokens, res.Error)
		return res.Error
	}
	run.AddProcessed(int(res.RowsAffected))

	res = s.db.WithContext(ctx).
		Where("expires_at < ? OR used_at IS NOT NULL", now).
		Delete(&authdomain.PasswordReset{})
	if res.Error != nil {
		s.logSchedulerError(ctx, run, "scheduler.purge_tokens.failed", jobPurgeTokens, res.Error)
		return res.Error
	}
	run.AddProcessed(int(res.RowsAffected))
	return nil
}
