package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/notemart/internal/catalog/domain"
	"github.com/smallbiznis/notemart/internal/clock"
	"github.com/smallbiznis/notemart/internal/config"
	"github.com/smallbiznis/notemart/internal/review/domain"
	"github.com/smallbiznis/notemart/pkg/db"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxCommentLength = 2000

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	CatalogRepo catalogdomain.Repository
	Storefront  *config.StorefrontHolder
	Clock       clock.Clock `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	catalogRepo catalogdomain.Repository
	storefront  *config.StorefrontHolder
	clock       clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("review.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
		storefront:  p.Storefront,
		clock:       clock.Or(p.Clock),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	noteID, err := parseID(req.NoteID)
	if err != nil {
		return nil, err
	}
	if req.Rating < domain.MinRating || req.Rating > domain.MaxRating {
		return nil, domain.ErrInvalidRating
	}
	comment := strings.TrimSpace(req.Comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, domain.ErrInvalidComment
	}

	note, err := s.catalogRepo.FindByID(ctx, s.db, noteID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, domain.ErrNoteNotFound
	}

	purchased, err := s.repo.HasPurchased(ctx, s.db, req.UserID, noteID)
	if err != nil {
		return nil, err
	}
	if !purchased {
		return nil, domain.ErrNotPurchased
	}

	userName := strings.TrimSpace(req.UserName)
	if userName == "" {
		userName = "Anonymous"
	}
	review := &domain.Review{
		ID:        s.genID.Generate(),
		NoteID:    noteID,
		UserID:    req.UserID,
		UserName:  userName,
		Rating:    req.Rating,
		Comment:   comment,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, review); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}

	s.log.Info("review created",
		zap.String("review_id", review.ID.String()),
		zap.String("note_id", noteID.String()),
		zap.Int("rating", review.Rating),
	)
	resp := toResponse(review)
	return &resp, nil
}

func (s *Service) ListForNote(ctx context.Context, noteID string, page pagination.Pagination) (*domain.NoteReviewsResponse, error) {
	id, err := parseID(noteID)
	if err != nil {
		return nil, err
	}
	cfg := s.storefront.Get()
	page = page.Normalize(cfg.CatalogDefaultLimit, cfg.CatalogMaxLimit)

	items, total, err := s.repo.ListForNote(ctx, s.db, id, page)
	if err != nil {
		return nil, err
	}
	summary, err := s.repo.Summary(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	return &domain.NoteReviewsResponse{
		Reviews:       toResponses(items),
		Count:         summary.Count,
		AverageRating: roundRating(summary.Average),
		PageInfo:      pagination.BuildPageInfo(page, total),
	}, nil
}

func (s *Service) AdminList(ctx context.Context, page pagination.Pagination) (*domain.ListResponse, error) {
	cfg := s.storefront.Get()
	page = page.Normalize(cfg.AdminDefaultLimit, cfg.CatalogMaxLimit)

	items, total, err := s.repo.List(ctx, s.db, page)
	if err != nil {
		return nil, err
	}
	return &domain.ListResponse{
		Reviews:  toResponses(items),
		PageInfo: pagination.BuildPageInfo(page, total),
	}, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	reviewID, err := parseID(id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, s.db, reviewID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed <= 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}

// roundRating keeps one decimal place.
func roundRating(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

func toResponses(items []domain.Review) []domain.Response {
	out := make([]domain.Response, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	return out
}

func toResponse(r *domain.Review) domain.Response {
	return domain.Response{
		ID:        r.ID.String(),
		NoteID:    r.NoteID.String(),
		UserID:    r.UserID.String(),
		UserName:  r.UserName,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}
