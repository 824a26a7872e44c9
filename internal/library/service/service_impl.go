package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/notemart/internal/catalog/domain"
	"github.com/smallbiznis/notemart/internal/config"
	"github.com/smallbiznis/notemart/internal/library/domain"
	orderdomain "github.com/smallbiznis/notemart/internal/order/domain"
	"github.com/smallbiznis/notemart/internal/providers/pdf"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         config.Config
	Repo        domain.Repository
	OrderSvc    orderdomain.Service
	CatalogRepo catalogdomain.Repository
	PDF         pdf.Provider
	Links       domain.LinkSigner `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	storageDir  string
	repo        domain.Repository
	orderSvc    orderdomain.Service
	catalogRepo catalogdomain.Repository
	pdf         pdf.Provider
	links       domain.LinkSigner
	baseURL     string
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("library.service"),
		storageDir:  p.Cfg.StorageDir,
		repo:        p.Repo,
		orderSvc:    p.OrderSvc,
		catalogRepo: p.CatalogRepo,
		pdf:         p.PDF,
		links:       p.Links,
		baseURL:     strings.TrimRight(strings.TrimSpace(p.Cfg.PublicBaseURL), "/"),
	}
}

func (s *Service) MyNotes(ctx context.Context, userID snowflake.ID) ([]domain.PurchasedNote, error) {
	rows, err := s.repo.Purchases(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[snowflake.ID]bool, len(rows))
	out := make([]domain.PurchasedNote, 0, len(rows))
	for _, row := range rows {
		if seen[row.NoteID] {
			continue
		}
		seen[row.NoteID] = true
		link, expiresAt, err := s.downloadLink(userID, row.OrderID, row.NoteID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.PurchasedNote{
			NoteID:       row.NoteID.String(),
			OrderID:      row.OrderID,
			Title:        row.Title,
			Subject:      row.Subject,
			PreviewImage: row.PreviewImage,
			Price:        row.Price,
			PurchasedAt:  row.PurchasedAt,
			DownloadURL:  link,
			ExpiresAt:    expiresAt,
		})
	}
	return out, nil
}

func (s *Service) Download(ctx context.Context, userID snowflake.ID, orderID string, noteID string) (*domain.File, error) {
	nid, err := snowflake.ParseString(strings.TrimSpace(noteID))
	if err != nil || nid <= 0 {
		return nil, domain.ErrInvalidID
	}
	order, err := s.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	items, err := s.orderSvc.Items(ctx, order)
	if err != nil {
		return nil, err
	}
	var found bool
	for _, item := range items {
		if item.NoteID == nid {
			found = true
			break
		}
	}
	if !found {
		return nil, domain.ErrNoteNotInOrder
	}

	note, err := s.catalogRepo.FindByID(ctx, s.db, nid)
	if err != nil {
		return nil, err
	}
	if note == nil || strings.TrimSpace(note.FilePath) == "" {
		return nil, domain.ErrFileMissing
	}
	path, err := resolvePath(s.storageDir, note.FilePath)
	if err != nil {
		s.log.Warn("note file unavailable", zap.String("note_id", nid.String()), zap.Error(err))
		return nil, domain.ErrFileMissing
	}

	if err := s.catalogRepo.IncrementDownloads(ctx, s.db, nid); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	name := slug.Make(note.Title)
	if name == "" {
		name = nid.String()
	}

	s.log.Info("note downloaded",
		zap.String("order_id", order.OrderID),
		zap.String("note_id", nid.String()),
	)
	return &domain.File{Path: path, Name: name + ext, ContentType: contentType}, nil
}

func (s *Service) Receipt(ctx context.Context, userID snowflake.ID, orderID string) (*domain.Document, error) {
	order, err := s.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.orderSvc.Items(ctx, order)
	if err != nil {
		return nil, err
	}

	body, err := s.pdf.GenerateReceipt(ctx, toReceipt(order, items))
	if err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return &domain.Document{
		Name:        "receipt-" + order.OrderID + ".pdf",
		ContentType: "application/pdf",
		Body:        body,
	}, nil
}

// ownedOrder loads a paid order of the user. Orders of other users are
// reported as forbidden, not as missing.
func (s *Service) ownedOrder(ctx context.Context, userID snowflake.ID, orderID string) (*orderdomain.Order, error) {
	order, err := s.orderSvc.Get(ctx, orderID)
	if err != nil {
		switch {
		case errors.Is(err, orderdomain.ErrNotFound):
			return nil, domain.ErrNotFound
		case errors.Is(err, orderdomain.ErrInvalidOrderID):
			return nil, domain.ErrInvalidID
		}
		return nil, err
	}
	if !order.OwnedBy(userID) {
		return nil, domain.ErrForbidden
	}
	if order.Status != orderdomain.StatusPaid {
		return nil, domain.ErrNotPaid
	}
	return order, nil
}

// resolvePath joins a stored relative file path onto the storage root and
// refuses anything that escapes it.
func resolvePath(root, rel string) (string, error) {
	rel = filepath.Clean(filepath.FromSlash(strings.TrimSpace(rel)))
	if filepath.IsAbs(rel) || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("unsafe file path %q", rel)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	full := filepath.Join(absRoot, rel)
	if !strings.HasPrefix(full, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("unsafe file path %q", rel)
	}
	info, err := os.Stat(full)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%q is a directory", rel)
	}
	return full, nil
}

// downloadLink builds the URL of one purchased file. With a signer the URL
// carries a token so a browser can follow it without a bearer header.
func (s *Service) downloadLink(userID snowflake.ID, orderID string, noteID snowflake.ID) (string, *time.Time, error) {
	link := s.baseURL + "/api/downloads/" + url.PathEscape(orderID) + "/" + noteID.String()
	if s.links == nil {
		return link, nil, nil
	}
	tok, expiresAt, err := s.links.IssueDownload(userID, orderID, noteID)
	if err != nil {
		return "", nil, fmt.Errorf("sign download link: %w", err)
	}
	return link + "?token=" + url.QueryEscape(tok), &expiresAt, nil
}

func toReceipt(order *orderdomain.Order, items []orderdomain.OrderItem) pdf.ReceiptData {
	data := pdf.ReceiptData{
		OrderID:       order.OrderID,
		IssueDate:     order.CreatedAt.UTC().Format(dateLayout),
		CustomerName:  order.CustomerName(),
		CustomerEmail: order.CustomerEmail,
		Subtotal:      money(order.Currency, order.Subtotal),
		Total:         money(order.Currency, order.TotalAmount),
		Items:         make([]pdf.ReceiptItem, 0, len(items)),
	}
	if order.PaidAt != nil {
		data.DatePaid = order.PaidAt.UTC().Format(dateLayout)
	}
	if order.PaymentID != nil {
		data.PaymentID = *order.PaymentID
	}
	if order.PaymentMethod != nil {
		data.PaymentMethod = *order.PaymentMethod
	}
	if order.DiscountAmount.IsPositive() {
		data.Discount = money(order.Currency, order.DiscountAmount)
		if order.CouponCode != nil {
			data.CouponCode = *order.CouponCode
		}
	}
	for _, item := range items {
		data.Items = append(data.Items, pdf.ReceiptItem{
			Description: item.Title,
			Amount:      money(order.Currency, item.Price),
		})
	}
	return data
}

func money(currency string, amount decimal.Decimal) string {
	return currency + " " + amount.StringFixed(2)
}
