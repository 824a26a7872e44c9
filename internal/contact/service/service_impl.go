package service

import (
	"context"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/notemart/internal/clock"
	"github.com/smallbiznis/notemart/internal/config"
	"github.com/smallbiznis/notemart/internal/contact/domain"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxNameLength    = 120
	maxSubjectLength = 200
	maxMessageLength = 5000
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Storefront *config.StorefrontHolder
	Notifier   domain.Notifier `optional:"true"`
	Clock      clock.Clock     `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	storefront *config.StorefrontHolder
	notifier   domain.Notifier
	clock      clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("contact.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		storefront: p.Storefront,
		notifier:   p.Notifier,
		clock:      clock.Or(p.Clock),
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, domain.ErrInvalidName
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" || utf8.RuneCountInString(subject) > maxSubjectLength {
		return nil, domain.ErrInvalidSubject
	}
	body := strings.TrimSpace(req.Message)
	if body == "" || utf8.RuneCountInString(body) > maxMessageLength {
		return nil, domain.ErrInvalidMessage
	}

	now := s.clock.Now()
	msg := &domain.Message{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     strings.ToLower(addr.Address),
		Subject:   subject,
		Message:   body,
		Status:    domain.StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, msg); err != nil {
		return nil, err
	}

	s.log.Info("contact message received", zap.String("contact_id", msg.ID.String()))
	if s.notifier != nil {
		s.notifier.ContactReceived(ctx, msg)
	}
	resp := toResponse(msg)
	return &resp, nil
}

func (s *Service) AdminList(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	filter := domain.ListFilter{UnreadOnly: req.Unread}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			return nil, domain.ErrInvalidStatus
		}
		filter.Status = status
	}

	cfg := s.storefront.Get()
	page := req.Pagination.Normalize(cfg.AdminDefaultLimit, cfg.CatalogMaxLimit)
	items, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Response, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	return &domain.ListResponse{
		Messages: out,
		PageInfo: pagination.BuildPageInfo(page, total),
	}, nil
}

func (s *Service) MarkRead(ctx context.Context, id string) (*domain.Response, error) {
	msgID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.MarkRead(ctx, s.db, msgID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domain.ErrNotFound
	}
	return s.get(ctx, msgID)
}

func (s *Service) UpdateStatus(ctx context.Context, id string, raw string) (*domain.Response, error) {
	msgID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	status, ok := domain.ParseStatus(raw)
	if !ok {
		return nil, domain.ErrInvalidStatus
	}
	updated, err := s.repo.UpdateStatus(ctx, s.db, msgID, status, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domain.ErrNotFound
	}
	return s.get(ctx, msgID)
}

func (s *Service) get(ctx context.Context, id snowflake.ID) (*domain.Response, error) {
	msg, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, domain.ErrNotFound
	}
	resp := toResponse(msg)
	return &resp, nil
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed <= 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}

func toResponse(m *domain.Message) domain.Response {
	return domain.Response{
		ID:        m.ID.String(),
		Name:      m.Name,
		Email:     m.Email,
		Subject:   m.Subject,
		Message:   m.Message,
		Status:    m.Status,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
