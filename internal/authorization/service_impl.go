package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/notemart/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectNote      = "note"
	ObjectOrder     = "order"
	ObjectCoupon    = "coupon"
	ObjectPayment   = "payment"
	ObjectDashboard = "dashboard"
	ObjectReview    = "review"
	ObjectContact   = "contact"
	ObjectAuditLog  = "audit_log"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionRefund = "refund"
)

const (
	RoleUser   = "role:user"
	RoleAdmin  = "role:admin"
	RoleSystem = "role:system"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	roleName, actorType, actorID, err := resolveActor(actor)
	if err != nil {
		return err
	}
	if err := s.ensureGrouping(actor, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(actor, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("actor", actor),
			zap.String("object", object),
			zap.String("action", action),
		)
		s.auditDenied(ctx, actorType, actorID, object, action)
		return ErrForbidden
	}
	return nil
}

// resolveActor maps an actor string to its role. The role comes from the
// token audience that produced the actor, never from stored membership.
func resolveActor(actor string) (string, string, *string, error) {
	if actor == "system" {
		return RoleSystem, "system", nil, nil
	}
	kind, rawID, ok := strings.Cut(actor, ":")
	if !ok {
		return "", "", nil, ErrInvalidActor
	}
	id, err := snowflake.ParseString(rawID)
	if err != nil || id == 0 {
		return "", "", nil, ErrInvalidActor
	}
	idStr := id.String()
	switch kind {
	case "user":
		return RoleUser, kind, &idStr, nil
	case "admin":
		return RoleAdmin, kind, &idStr, nil
	default:
		return "", "", nil, ErrInvalidActor
	}
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actorType string, actorID *string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	targetID := object
	_ = s.auditSvc.AuditLog(ctx, actorType, actorID, "authorization.denied", "authorization", &targetID, map[string]any{
		"object": object,
		"action": action,
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Shoppers act on their own resources; ownership is checked by the
		// owning service.
		{RoleUser, ObjectNote, ActionView},
		{RoleUser, ObjectOrder, ActionView},
		{RoleUser, ObjectOrder, ActionCreate},
		{RoleUser, ObjectPayment, ActionCreate},
		{RoleUser, ObjectReview, ActionCreate},
		{RoleUser, ObjectReview, ActionView},
		{RoleUser, ObjectCoupon, ActionView},

		{RoleAdmin, ObjectNote, ActionView},
		{RoleAdmin, ObjectNote, ActionCreate},
		{RoleAdmin, ObjectNote, ActionUpdate},
		{RoleAdmin, ObjectNote, ActionDelete},
		{RoleAdmin, ObjectOrder, ActionView},
		{RoleAdmin, ObjectOrder, ActionUpdate},
		{RoleAdmin, ObjectOrder, ActionRefund},
		{RoleAdmin, ObjectPayment, ActionRefund},
		{RoleAdmin, ObjectCoupon, ActionView},
		{RoleAdmin, ObjectCoupon, ActionCreate},
		{RoleAdmin, ObjectDashboard, ActionView},
		{RoleAdmin, ObjectReview, ActionView},
		{RoleAdmin, ObjectReview, ActionDelete},
		{RoleAdmin, ObjectContact, ActionView},
		{RoleAdmin, ObjectContact, ActionUpdate},
		{RoleAdmin, ObjectAuditLog, ActionView},

		{RoleSystem, ObjectOrder, ActionUpdate},
		{RoleSystem, ObjectPayment, ActionCreate},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
