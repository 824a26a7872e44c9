package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/notemart/internal/cart/domain"
	catalogdomain "github.com/smallbiznis/notemart/internal/catalog/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	CatalogRepo catalogdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	catalogRepo catalogdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("cart.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
	}
}

// Add puts a note in the cart. Adding a note twice returns the existing item
// with created=false.
func (s *Service) Add(ctx context.Context, userID snowflake.ID, noteID string) (*domain.ItemResponse, bool, error) {
	nid, err := snowflake.ParseString(strings.TrimSpace(noteID))
	if err != nil || nid <= 0 {
		return nil, false, domain.ErrInvalidNoteID
	}

	note, err := s.catalogRepo.FindByID(ctx, s.db, nid)
	if err != nil {
		return nil, false, err
	}
	if note == nil || !note.IsActive() {
		return nil, false, domain.ErrNoteNotFound
	}

	item := &domain.CartItem{
		ID:        s.genID.Generate(),
		UserID:    userID,
		NoteID:    nid,
		CreatedAt: time.Now().UTC(),
	}
	created, err := s.repo.Insert(ctx, s.db, item)
	if err != nil {
		return nil, false, err
	}
	if !created {
		item, err = s.repo.FindByNote(ctx, s.db, userID, nid)
		if err != nil {
			return nil, false, err
		}
		if item == nil {
			return nil, false, domain.ErrNotFound
		}
	}

	resp := domain.ItemResponse{
		ID:           item.ID.String(),
		NoteID:       nid.String(),
		Title:        note.Title,
		Subject:      note.Subject,
		Price:        note.Price,
		PreviewImage: note.PreviewImage,
		Available:    true,
		CreatedAt:    item.CreatedAt,
	}
	return &resp, created, nil
}

func (s *Service) Get(ctx context.Context, userID snowflake.ID, id string) (*domain.ItemResponse, error) {
	itemID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.FindByID(ctx, s.db, userID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	resp := domain.ItemResponse{
		ID:        item.ID.String(),
		NoteID:    item.NoteID.String(),
		CreatedAt: item.CreatedAt,
	}
	note, err := s.catalogRepo.FindByID(ctx, s.db, item.NoteID)
	if err != nil {
		return nil, err
	}
	if note != nil {
		resp.Title = note.Title
		resp.Subject = note.Subject
		resp.Price = note.Price
		resp.PreviewImage = note.PreviewImage
		resp.Available = note.IsActive()
	}
	return &resp, nil
}

// List returns the cart with current prices. Notes that were deactivated after
// being added are listed as unavailable and excluded from the subtotal.
func (s *Service) List(ctx context.Context, userID snowflake.ID) (*domain.CartResponse, error) {
	lines, err := s.repo.ListLines(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	resp := &domain.CartResponse{
		Items:    make([]domain.ItemResponse, 0, len(lines)),
		Subtotal: decimal.Zero,
	}
	for _, line := range lines {
		available := line.Status == catalogdomain.StatusActive
		if available {
			resp.Subtotal = resp.Subtotal.Add(line.Price)
		}
		resp.Items = append(resp.Items, domain.ItemResponse{
			ID:           line.ID.String(),
			NoteID:       line.NoteID.String(),
			Title:        line.Title,
			Subject:      line.Subject,
			Price:        line.Price,
			PreviewImage: line.PreviewImage,
			Available:    available,
			CreatedAt:    line.CreatedAt,
		})
	}
	resp.Count = len(resp.Items)
	return resp, nil
}

func (s *Service) Remove(ctx context.Context, userID snowflake.ID, id string) error {
	itemID, err := parseID(id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, s.db, userID, itemID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, userID snowflake.ID) error {
	return s.repo.Clear(ctx, s.db, userID)
}

func (s *Service) RemovePurchased(ctx context.Context, tx *gorm.DB, userID snowflake.ID, noteIDs []snowflake.ID) error {
	if userID == 0 || len(noteIDs) == 0 {
		return nil
	}
	return s.repo.RemoveNotes(ctx, tx, userID, noteIDs)
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed <= 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}
