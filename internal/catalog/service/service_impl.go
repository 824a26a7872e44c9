package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/notemart/internal/catalog/domain"
	"github.com/smallbiznis/notemart/internal/config"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Storefront *config.StorefrontHolder
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	genID      *snowflake.Node
	storefront *config.StorefrontHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("catalog.service"),
		repo:       p.Repo,
		genID:      p.GenID,
		storefront: p.Storefront,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	cfg := s.storefront.Get()
	return s.list(ctx, req, domain.StatusActive, cfg.CatalogDefaultLimit, cfg.CatalogMaxLimit)
}

func (s *Service) AdminList(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status != "" && !validStatus(status) {
		return nil, domain.ErrInvalidStatus
	}
	cfg := s.storefront.Get()
	return s.list(ctx, req, status, cfg.AdminDefaultLimit, cfg.CatalogMaxLimit)
}

func (s *Service) list(ctx context.Context, req domain.ListRequest, status string, defLimit, maxLimit int) (*domain.ListResponse, error) {
	filter := domain.ListFilter{
		Status:  status,
		Subject: strings.TrimSpace(req.Subject),
		Search:  strings.TrimSpace(req.Search),
		SortBy:  strings.TrimSpace(req.SortBy),
		OrderBy: strings.TrimSpace(req.OrderBy),
	}
	if v := strings.TrimSpace(req.MinPrice); v != "" {
		minPrice, err := decimal.NewFromString(v)
		if err != nil || minPrice.IsNegative() {
			return nil, domain.ErrInvalidPrice
		}
		filter.MinPrice = &minPrice
	}
	if v := strings.TrimSpace(req.MaxPrice); v != "" {
		maxPrice, err := decimal.NewFromString(v)
		if err != nil || maxPrice.IsNegative() {
			return nil, domain.ErrInvalidPrice
		}
		filter.MaxPrice = &maxPrice
	}

	page := req.Pagination.Normalize(defLimit, maxLimit)
	items, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return nil, err
	}

	resp := &domain.ListResponse{
		Notes:    make([]domain.Response, 0, len(items)),
		PageInfo: pagination.BuildPageInfo(page, total),
	}
	for i := range items {
		resp.Notes = append(resp.Notes, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !item.IsActive() {
		return nil, domain.ErrNotFound
	}
	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) AdminGet(ctx context.Context, id string) (*domain.Response, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Subjects(ctx context.Context) ([]domain.SubjectResponse, error) {
	rows, err := s.repo.Subjects(ctx, s.db)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.SubjectResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, domain.SubjectResponse{
			Name:  row.Subject,
			Slug:  slug.Make(row.Subject),
			Count: row.Count,
		})
	}
	return resp, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return nil, domain.ErrInvalidSubject
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		return nil, err
	}
	filePath := strings.TrimSpace(req.FilePath)
	if !validFilePath(filePath) {
		return nil, domain.ErrInvalidFilePath
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "" {
		status = domain.StatusActive
	}
	if !validStatus(status) {
		return nil, domain.ErrInvalidStatus
	}

	now := time.Now().UTC()
	note := &domain.Note{
		ID:           s.genID.Generate(),
		Title:        title,
		Description:  strings.TrimSpace(req.Description),
		Subject:      subject,
		Price:        price,
		Status:       status,
		FilePath:     filePath,
		PreviewImage: strings.TrimSpace(req.PreviewImage),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, s.db, note); err != nil {
		return nil, err
	}

	s.log.Info("note created", zap.String("note_id", note.ID.String()), zap.String("subject", subject))
	resp := toResponse(note)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	item, err := s.find(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, domain.ErrInvalidTitle
		}
		item.Title = title
	}
	if req.Description != nil {
		item.Description = strings.TrimSpace(*req.Description)
	}
	if req.Subject != nil {
		subject := strings.TrimSpace(*req.Subject)
		if subject == "" {
			return nil, domain.ErrInvalidSubject
		}
		item.Subject = subject
	}
	if req.Price != nil {
		price, err := parsePrice(*req.Price)
		if err != nil {
			return nil, err
		}
		item.Price = price
	}
	if req.FilePath != nil {
		filePath := strings.TrimSpace(*req.FilePath)
		if !validFilePath(filePath) {
			return nil, domain.ErrInvalidFilePath
		}
		item.FilePath = filePath
	}
	if req.PreviewImage != nil {
		item.PreviewImage = strings.TrimSpace(*req.PreviewImage)
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}
	resp := toResponse(item)
	return &resp, nil
}

// Delete is a soft delete: the note becomes inactive and disappears from the
// public catalog, while past orders keep referencing it.
func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.SetStatus(ctx, id, domain.StatusInactive)
	return err
}

func (s *Service) SetStatus(ctx context.Context, id string, status string) (*domain.Response, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !validStatus(status) {
		return nil, domain.ErrInvalidStatus
	}
	noteID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.SetStatus(ctx, s.db, noteID, status)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domain.ErrNotFound
	}
	return s.AdminGet(ctx, id)
}

func (s *Service) find(ctx context.Context, id string) (*domain.Note, error) {
	noteID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.FindByID(ctx, s.db, noteID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed <= 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || price.IsNegative() {
		return decimal.Zero, domain.ErrInvalidPrice
	}
	if !price.Equal(price.Round(2)) {
		return decimal.Zero, domain.ErrInvalidPrice
	}
	return price, nil
}

// validFilePath accepts relative paths inside the storage directory only.
func validFilePath(p string) bool {
	if p == "" {
		return true
	}
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\") {
		return false
	}
	for _, part := range strings.Split(strings.ReplaceAll(p, "\\", "/"), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

func validStatus(status string) bool {
	return status == domain.StatusActive || status == domain.StatusInactive
}

func toResponse(n *domain.Note) domain.Response {
	return domain.Response{
		ID:           n.ID.String(),
		Title:        n.Title,
		Description:  n.Description,
		Subject:      n.Subject,
		SubjectSlug:  slug.Make(n.Subject),
		Price:        n.Price,
		Status:       n.Status,
		PreviewImage: n.PreviewImage,
		Downloads:    n.Downloads,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}
}
