package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	cartdomain "github.com/smallbiznis/notemart/internal/cart/domain"
	catalogdomain "github.com/smallbiznis/notemart/internal/catalog/domain"
	"github.com/smallbiznis/notemart/internal/clock"
	"github.com/smallbiznis/notemart/internal/config"
	coupondomain "github.com/smallbiznis/notemart/internal/coupon/domain"
	obsmetrics "github.com/smallbiznis/notemart/internal/observability/metrics"
	"github.com/smallbiznis/notemart/internal/order/domain"
	"github.com/smallbiznis/notemart/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxItemsPerOrder = 50

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Cfg         config.Config
	Repo        domain.Repository
	CatalogRepo catalogdomain.Repository
	CouponSvc   coupondomain.Service
	CartSvc     cartdomain.Service
	Storefront  *config.StorefrontHolder
	Notifier    domain.Notifier     `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
	Clock       clock.Clock         `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	currency    string
	repo        domain.Repository
	catalogRepo catalogdomain.Repository
	couponSvc   coupondomain.Service
	cartSvc     cartdomain.Service
	storefront  *config.StorefrontHolder
	notifier    domain.Notifier
	obsMetrics  *obsmetrics.Metrics
	clock       clock.Clock
}

func New(p Params) domain.Service {
	currency := strings.ToUpper(strings.TrimSpace(p.Cfg.Payment.Currency))
	if currency == "" {
		currency = "INR"
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("order.service"),
		genID:       p.GenID,
		currency:    currency,
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
		couponSvc:   p.CouponSvc,
		cartSvc:     p.CartSvc,
		storefront:  p.Storefront,
		notifier:    p.Notifier,
		obsMetrics:  p.ObsMetrics,
		clock:       clock.Or(p.Clock),
	}
}

// Create prices the order from the catalog and writes the order with its
// items in one transaction.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	customer, err := normalizeCustomer(req.Customer)
	if err != nil {
		return nil, err
	}
	noteIDs, err := parseNoteIDs(req.Items)
	if err != nil {
		return nil, err
	}
	couponCode := strings.ToUpper(strings.TrimSpace(req.CouponCode))

	now := s.clock.Now()
	order := &domain.Order{
		ID:                s.genID.Generate(),
		OrderID:           newOrderID(now),
		UserID:            req.UserID,
		CustomerEmail:     customer.Email,
		CustomerFirstName: customer.FirstName,
		CustomerLastName:  customer.LastName,
		CustomerPhone:     customer.Phone,
		Currency:          s.currency,
		Status:            domain.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if len(req.BillingAddress) > 0 {
		order.BillingAddress = datatypes.JSONMap(req.BillingAddress)
	}

	var items []domain.OrderItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		notes, err := s.catalogRepo.FindActiveByIDs(ctx, tx, noteIDs)
		if err != nil {
			return err
		}
		byID := make(map[snowflake.ID]catalogdomain.Note, len(notes))
		for _, n := range notes {
			byID[n.ID] = n
		}

		subtotal := decimal.Zero
		items = make([]domain.OrderItem, 0, len(noteIDs))
		for _, id := range noteIDs {
			note, ok := byID[id]
			if !ok {
				return domain.ErrItemNotFound
			}
			subtotal = subtotal.Add(note.Price)
			items = append(items, domain.OrderItem{
				ID:        s.genID.Generate(),
				OrderID:   order.ID,
				NoteID:    note.ID,
				Title:     note.Title,
				Price:     note.Price,
				CreatedAt: now,
			})
		}

		order.Subtotal = subtotal
		order.DiscountAmount = decimal.Zero
		order.TotalAmount = subtotal
		if couponCode != "" {
			quote, err := s.couponSvc.Quote(ctx, tx, couponCode, subtotal)
			if err != nil {
				if errors.Is(err, coupondomain.ErrInvalidCoupon) {
					return domain.ErrInvalidCoupon
				}
				return err
			}
			code := quote.Coupon.Code
			order.CouponCode = &code
			order.DiscountAmount = quote.Discount
			order.TotalAmount = quote.Final
		}
		// The processor cannot collect a zero amount, so such an order
		// could never leave pending.
		if !order.TotalAmount.IsPositive() {
			return domain.ErrInvalidTotal
		}

		if err := s.repo.Insert(ctx, tx, order); err != nil {
			return err
		}
		return s.repo.InsertItems(ctx, tx, items)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order created",
		zap.String("order_id", order.OrderID),
		zap.Int("items", len(items)),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	s.obsMetrics.RecordOrderCreated(ctx, order.CouponCode != nil)
	if s.notifier != nil {
		s.notifier.OrderCreated(ctx, order, items)
	}

	resp := toResponse(order, items)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, domain.ErrInvalidOrderID
	}
	order, err := s.repo.FindByOrderID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

func (s *Service) GetByProcessorOrderID(ctx context.Context, processorOrderID string) (*domain.Order, error) {
	processorOrderID = strings.TrimSpace(processorOrderID)
	if processorOrderID == "" {
		return nil, domain.ErrInvalidOrderID
	}
	order, err := s.repo.FindByProcessorOrderID(ctx, s.db, processorOrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

func (s *Service) GetForUser(ctx context.Context, userID snowflake.ID, orderID string) (*domain.Response, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(userID) {
		return nil, domain.ErrForbidden
	}
	return s.withItems(ctx, order)
}

func (s *Service) ListForUser(ctx context.Context, userID snowflake.ID, page pagination.Pagination) (*domain.ListResponse, error) {
	cfg := s.storefront.Get()
	return s.list(ctx, domain.ListFilter{UserID: &userID}, page.Normalize(cfg.AdminDefaultLimit, cfg.CatalogMaxLimit))
}

func (s *Service) Items(ctx context.Context, order *domain.Order) ([]domain.OrderItem, error) {
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return s.repo.Items(ctx, s.db, order.ID)
}

func (s *Service) AdminList(ctx context.Context, req domain.AdminListRequest) (*domain.ListResponse, error) {
	filter := domain.ListFilter{Search: strings.TrimSpace(req.Search)}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			return nil, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	from, err := parseDate(req.DateFrom, false)
	if err != nil {
		return nil, err
	}
	to, err := parseDate(req.DateTo, true)
	if err != nil {
		return nil, err
	}
	filter.DateFrom, filter.DateTo = from, to

	cfg := s.storefront.Get()
	return s.list(ctx, filter, req.Pagination.Normalize(cfg.AdminDefaultLimit, cfg.CatalogMaxLimit))
}

func (s *Service) list(ctx context.Context, filter domain.ListFilter, page pagination.Pagination) (*domain.ListResponse, error) {
	orders, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := s.repo.Items(ctx, s.db, ids...)
	if err != nil {
		return nil, err
	}
	byOrder := make(map[snowflake.ID][]domain.OrderItem, len(orders))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}

	resp := &domain.ListResponse{
		Orders:   make([]domain.Response, 0, len(orders)),
		PageInfo: pagination.BuildPageInfo(page, total),
	}
	for i := range orders {
		resp.Orders = append(resp.Orders, toResponse(&orders[i], byOrder[orders[i].ID]))
	}
	return resp, nil
}

func (s *Service) AdminGet(ctx context.Context, orderID string) (*domain.Response, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, order)
}

// AdminUpdateStatus only allows abandoning a pending order. Paid and refunded
// are reached through payment verification and refunds.
func (s *Service) AdminUpdateStatus(ctx context.Context, orderID string, status string) (*domain.Response, error) {
	target, ok := domain.ParseStatus(status)
	if !ok {
		return nil, domain.ErrInvalidStatus
	}
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if target != domain.StatusFailed {
		return nil, domain.ErrInvalidTransition
	}
	updated, transitioned, err := s.MarkFailed(ctx, order.ID, "admin")
	if err != nil {
		return nil, err
	}
	if !transitioned && updated.Status != domain.StatusFailed {
		return nil, domain.ErrInvalidTransition
	}
	return s.withItems(ctx, updated)
}

func (s *Service) AttachProcessorOrder(ctx context.Context, order *domain.Order, processorOrderID string) (*domain.Order, error) {
	if order == nil {
		return nil, domain.ErrNotFound
	}
	processorOrderID = strings.TrimSpace(processorOrderID)
	if processorOrderID == "" {
		return nil, domain.ErrInvalidOrderID
	}
	if _, err := s.repo.AttachProcessorOrder(ctx, s.db, order.ID, processorOrderID); err != nil {
		return nil, err
	}
	// A concurrent attach may have won; the stored value is authoritative.
	return s.reload(ctx, s.db, order.ID)
}

func (s *Service) MarkPaid(ctx context.Context, id snowflake.ID, update domain.PaymentUpdate) (*domain.Order, bool, error) {
	var (
		order        *domain.Order
		items        []domain.OrderItem
		transitioned bool
	)
	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.TransitionPaid(ctx, tx, id, update, now)
		if err != nil {
			return err
		}
		order, err = s.reload(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		transitioned = true

		if order.CouponCode != nil {
			if err := s.couponSvc.Redeem(ctx, tx, *order.CouponCode); err != nil {
				return err
			}
		}
		items, err = s.repo.Items(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if order.UserID != nil {
			noteIDs := make([]snowflake.ID, 0, len(items))
			for _, item := range items {
				noteIDs = append(noteIDs, item.NoteID)
			}
			return s.cartSvc.RemovePurchased(ctx, tx, *order.UserID, noteIDs)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if !transitioned {
		switch order.Status {
		case domain.StatusPaid, domain.StatusRefunded:
			s.log.Debug("order already settled", zap.String("order_id", order.OrderID), zap.String("source", update.Source))
			return order, false, nil
		default:
			return order, false, domain.ErrInvalidTransition
		}
	}

	s.log.Info("order paid",
		zap.String("order_id", order.OrderID),
		zap.String("source", update.Source),
	)
	s.obsMetrics.RecordOrderTransition(ctx, string(domain.StatusPaid), update.Source)
	if s.notifier != nil {
		s.notifier.OrderPaid(ctx, order, items)
	}
	return order, true, nil
}

func (s *Service) MarkFailed(ctx context.Context, id snowflake.ID, source string) (*domain.Order, bool, error) {
	ok, err := s.repo.TransitionFailed(ctx, s.db, id, s.clock.Now())
	if err != nil {
		return nil, false, err
	}
	order, err := s.reload(ctx, s.db, id)
	if err != nil {
		return nil, false, err
	}
	if ok {
		s.log.Info("order failed", zap.String("order_id", order.OrderID), zap.String("source", source))
		s.obsMetrics.RecordOrderTransition(ctx, string(domain.StatusFailed), source)
	}
	return order, ok, nil
}

func (s *Service) ExpireStale(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	ids, err := s.repo.ListStalePending(ctx, s.db, cutoff, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		_, ok, err := s.MarkFailed(ctx, id, "expiry")
		if err != nil {
			return expired, err
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

func (s *Service) MarkRefunded(ctx context.Context, id snowflake.ID, refundID string) (*domain.Order, bool, error) {
	ok, err := s.repo.TransitionRefunded(ctx, s.db, id, refundID, s.clock.Now())
	if err != nil {
		return nil, false, err
	}
	order, err := s.reload(ctx, s.db, id)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		if order.Status == domain.StatusRefunded {
			return order, false, nil
		}
		return order, false, domain.ErrInvalidTransition
	}

	s.log.Info("order refunded", zap.String("order_id", order.OrderID))
	s.obsMetrics.RecordOrderTransition(ctx, string(domain.StatusRefunded), "refund")
	if s.notifier != nil {
		s.notifier.OrderRefunded(ctx, order)
	}
	return order, true, nil
}

func (s *Service) reload(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

func (s *Service) withItems(ctx context.Context, order *domain.Order) (*domain.Response, error) {
	items, err := s.repo.Items(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(order, items)
	return &resp, nil
}

func normalizeCustomer(c domain.CustomerInfo) (domain.CustomerInfo, error) {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Phone = strings.TrimSpace(c.Phone)

	if c.Email == "" {
		return c, domain.ErrInvalidEmail
	}
	if addr, err := mail.ParseAddress(c.Email); err != nil || addr.Address != c.Email {
		return c, domain.ErrInvalidEmail
	}
	if c.FirstName == "" {
		return c, domain.ErrInvalidFirstName
	}
	if c.LastName == "" {
		return c, domain.ErrInvalidLastName
	}
	return c, nil
}

// parseNoteIDs collapses duplicates while keeping request order.
func parseNoteIDs(items []domain.ItemRequest) ([]snowflake.ID, error) {
	if len(items) == 0 || len(items) > maxItemsPerOrder {
		return nil, domain.ErrInvalidItems
	}
	seen := make(map[snowflake.ID]struct{}, len(items))
	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		id, err := snowflake.ParseString(strings.TrimSpace(item.NoteID.String()))
		if err != nil || id <= 0 {
			return nil, domain.ErrInvalidNoteID
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, domain.ErrInvalidDate
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func newOrderID(now time.Time) string {
	return "ORD-" + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}

func toResponse(o *domain.Order, items []domain.OrderItem) domain.Response {
	resp := domain.Response{
		ID:             o.ID.String(),
		OrderID:        o.OrderID,
		Status:         o.Status,
		Currency:       o.Currency,
		Subtotal:       o.Subtotal,
		DiscountAmount: o.DiscountAmount,
		TotalAmount:    o.TotalAmount,
		Customer: domain.CustomerInfo{
			Email:     o.CustomerEmail,
			FirstName: o.CustomerFirstName,
			LastName:  o.CustomerLastName,
			Phone:     o.CustomerPhone,
		},
		CustomerName:   o.CustomerName(),
		BillingAddress: map[string]any(o.BillingAddress),
		PaidAt:         o.PaidAt,
		RefundedAt:     o.RefundedAt,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.CouponCode != nil {
		resp.CouponCode = *o.CouponCode
	}
	if o.ProcessorOrderID != nil {
		resp.ProcessorOrderID = *o.ProcessorOrderID
	}
	if o.PaymentID != nil {
		resp.PaymentID = *o.PaymentID
	}
	if o.PaymentMethod != nil {
		resp.PaymentMethod = *o.PaymentMethod
	}
	if o.RefundID != nil {
		resp.RefundID = *o.RefundID
	}
	if len(items) > 0 {
		resp.Items = make([]domain.ItemResponse, 0, len(items))
		for _, item := range items {
			resp.Items = append(resp.Items, domain.ItemResponse{
				NoteID: item.NoteID.String(),
				Title:  item.Title,
				Price:  item.Price,
			})
		}
	}
	return resp
}
