package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/notemart/internal/audit"
	auditdomain "github.com/smallbiznis/notemart/internal/audit/domain"
	"github.com/smallbiznis/notemart/internal/auth"
	authdomain "github.com/smallbiznis/notemart/internal/auth/domain"
	"github.com/smallbiznis/notemart/internal/authorization"
	"github.com/smallbiznis/notemart/internal/cart"
	cartdomain "github.com/smallbiznis/notemart/internal/cart/domain"
	"github.com/smallbiznis/notemart/internal/catalog"
	catalogdomain "github.com/smallbiznis/notemart/internal/catalog/domain"
	"github.com/smallbiznis/notemart/internal/config"
	"github.com/smallbiznis/notemart/internal/contact"
	contactdomain "github.com/smallbiznis/notemart/internal/contact/domain"
	"github.com/smallbiznis/notemart/internal/coupon"
	coupondomain "github.com/smallbiznis/notemart/internal/coupon/domain"
	"github.com/smallbiznis/notemart/internal/dashboard"
	dashboarddomain "github.com/smallbiznis/notemart/internal/dashboard/domain"
	"github.com/smallbiznis/notemart/internal/events"
	"github.com/smallbiznis/notemart/internal/library"
	librarydomain "github.com/smallbiznis/notemart/internal/library/domain"
	"github.com/smallbiznis/notemart/internal/migration"
	"github.com/smallbiznis/notemart/internal/notification"
	"github.com/smallbiznis/notemart/internal/observability"
	obslogger "github.com/smallbiznis/notemart/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/notemart/internal/observability/metrics"
	obstracing "github.com/smallbiznis/notemart/internal/observability/tracing"
	"github.com/smallbiznis/notemart/internal/order"
	orderdomain "github.com/smallbiznis/notemart/internal/order/domain"
	"github.com/smallbiznis/notemart/internal/payment"
	paymentdomain "github.com/smallbiznis/notemart/internal/payment/domain"
	"github.com/smallbiznis/notemart/internal/providers"
	"github.com/smallbiznis/notemart/internal/ratelimit"
	"github.com/smallbiznis/notemart/internal/review"
	"github.com/smallbiznis/notemart/internal/scheduler"
	reviewdomain "github.com/smallbiznis/notemart/internal/review/domain"
	"github.com/smallbiznis/notemart/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	migration.Module,
	authorization.Module,
	audit.Module,
	auth.Module,
	seed.Module,
	catalog.Module,
	cart.Module,
	coupon.Module,
	order.Module,
	payment.Module,
	library.Module,
	review.Module,
	contact.Module,
	dashboard.Module,
	providers.Module,
	events.Module,
	notification.Module,
	ratelimit.Module,
	scheduler.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(RequestContext())
	r.Use(ErrorHandlingMiddleware(obsCfg.Debug()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	authsvc      authdomain.Service
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	catalogSvc   catalogdomain.Service
	cartSvc      cartdomain.Service
	couponSvc    coupondomain.Service
	orderSvc     orderdomain.Service
	paymentSvc   paymentdomain.Service
	webhookSvc   paymentdomain.WebhookService
	librarySvc   librarydomain.Service
	reviewSvc    reviewdomain.Service
	contactSvc   contactdomain.Service
	dashboardSvc dashboarddomain.Service
	limiter      *ratelimit.Limiter
	obsMetrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Authsvc      authdomain.Service
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	CatalogSvc   catalogdomain.Service
	CartSvc      cartdomain.Service
	CouponSvc    coupondomain.Service
	OrderSvc     orderdomain.Service
	PaymentSvc   paymentdomain.Service
	WebhookSvc   paymentdomain.WebhookService
	LibrarySvc   librarydomain.Service
	ReviewSvc    reviewdomain.Service
	ContactSvc   contactdomain.Service
	DashboardSvc dashboarddomain.Service
	Limiter      *ratelimit.Limiter
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		authsvc:      p.Authsvc,
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		catalogSvc:   p.CatalogSvc,
		cartSvc:      p.CartSvc,
		couponSvc:    p.CouponSvc,
		orderSvc:     p.OrderSvc,
		paymentSvc:   p.PaymentSvc,
		webhookSvc:   p.WebhookSvc,
		librarySvc:   p.LibrarySvc,
		reviewSvc:    p.ReviewSvc,
		contactSvc:   p.ContactSvc,
		dashboardSvc: p.DashboardSvc,
		limiter:      p.Limiter,
		obsMetrics:   p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerPublicRoutes()
	svc.registerUserRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/api/auth")

	auth.POST("/register", s.RateLimit(ratelimit.PolicyAuth), s.Register)
	auth.POST("/login", s.RateLimit(ratelimit.PolicyAuth), s.Login)
	auth.POST("/refresh", s.Refresh)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.UserAuthRequired(), s.Me)
	auth.POST("/verify-email", s.RateLimit(ratelimit.PolicyAuth), s.VerifyEmail)
	auth.POST("/resend-verification", s.RateLimit(ratelimit.PolicyAuth), s.ResendVerification)
	auth.POST("/forgot-password", s.RateLimit(ratelimit.PolicyAuth), s.ForgotPassword)
	auth.POST("/reset-password", s.RateLimit(ratelimit.PolicyAuth), s.ResetPassword)

	auth.POST("/admin/login", s.RateLimit(ratelimit.PolicyAuth), s.AdminLogin)
}

func (s *Server) registerPublicRoutes() {
	api := s.engine.Group("/api")

	// -------- Catalog --------
	api.GET("/notes", s.ListNotes)
	api.GET("/notes/:id", s.GetNote)
	api.GET("/subjects", s.ListSubjects)
	api.GET("/notes/:id/reviews", s.ListNoteReviews)

	// -------- Checkout --------
	api.POST("/checkout/create-order", s.RateLimit(ratelimit.PolicyPublic), s.OptionalUser(), s.CreateCheckoutOrder)
	api.POST("/checkout/orders/:order_id/intent", s.RateLimit(ratelimit.PolicyPublic), s.RetryPaymentIntent)
	api.POST("/checkout/verify-payment", s.VerifyPayment)
	api.POST("/payments/verify", s.VerifySignature)
	api.POST("/coupons/validate", s.ValidateCoupon)

	// -------- Downloads --------
	// Signed links carry ?token= and need no Authorization header.
	api.GET("/downloads/:order_id/:note_id", s.OptionalUser(), s.DownloadNote)

	// -------- Payment Webhooks --------
	api.POST("/webhooks/:provider", s.HandlePaymentWebhook)

	// -------- Contact --------
	api.POST("/contact", s.RateLimit(ratelimit.PolicyPublic), s.SubmitContact)
}

func (s *Server) registerUserRoutes() {
	api := s.engine.Group("/api", s.UserAuthRequired())

	// -------- Cart --------
	api.GET("/cart", s.ListCart)
	api.POST("/cart", s.AddToCart)
	api.GET("/cart/:id", s.GetCartItem)
	api.PUT("/cart/:id", s.GetCartItem)
	api.DELETE("/cart/:id", s.RemoveFromCart)
	api.DELETE("/cart", s.ClearCart)

	// -------- Purchases --------
	api.GET("/me/orders", s.ListMyOrders)
	api.GET("/me/notes", s.ListMyNotes)
	api.GET("/orders/:order_id", s.GetMyOrder)
	api.GET("/orders/:order_id/receipt", s.DownloadReceipt)

	// -------- Reviews --------
	api.POST("/notes/:id/reviews", s.CreateReview)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin")
	admin.Use(s.AdminAuthRequired())

	// Dashboard
	admin.GET("/dashboard/stats", s.authorize(authorization.ObjectDashboard, authorization.ActionView), s.GetDashboardStats)

	// Notes
	admin.GET("/notes", s.authorize(authorization.ObjectNote, authorization.ActionView), s.AdminListNotes)
	admin.POST("/notes", s.authorize(authorization.ObjectNote, authorization.ActionCreate), s.AdminCreateNote)
	admin.GET("/notes/:id", s.authorize(authorization.ObjectNote, authorization.ActionView), s.AdminGetNote)
	admin.PUT("/notes/:id", s.authorize(authorization.ObjectNote, authorization.ActionUpdate), s.AdminUpdateNote)
	admin.PATCH("/notes/:id/status", s.authorize(authorization.ObjectNote, authorization.ActionUpdate), s.AdminSetNoteStatus)
	admin.DELETE("/notes/:id", s.authorize(authorization.ObjectNote, authorization.ActionDelete), s.AdminDeleteNote)

	// Orders
	admin.GET("/orders", s.authorize(authorization.ObjectOrder, authorization.ActionView), s.AdminListOrders)
	admin.GET("/orders/:order_id", s.authorize(authorization.ObjectOrder, authorization.ActionView), s.AdminGetOrder)
	admin.PATCH("/orders/:order_id/status", s.authorize(authorization.ObjectOrder, authorization.ActionUpdate), s.AdminUpdateOrderStatus)
	admin.POST("/payments/refund", s.authorize(authorization.ObjectPayment, authorization.ActionRefund), s.AdminRefund)

	// Coupons
	admin.GET("/coupons", s.authorize(authorization.ObjectCoupon, authorization.ActionView), s.AdminListCoupons)
	admin.POST("/coupons", s.authorize(authorization.ObjectCoupon, authorization.ActionCreate), s.AdminCreateCoupon)

	// Reviews
	admin.GET("/reviews", s.authorize(authorization.ObjectReview, authorization.ActionView), s.AdminListReviews)
	admin.DELETE("/reviews/:id", s.authorize(authorization.ObjectReview, authorization.ActionDelete), s.AdminDeleteReview)

	// Contact messages
	admin.GET("/contacts", s.authorize(authorization.ObjectContact, authorization.ActionView), s.AdminListContacts)
	admin.PATCH("/contacts/:id/read", s.authorize(authorization.ObjectContact, authorization.ActionUpdate), s.AdminMarkContactRead)
	admin.PATCH("/contacts/:id/status", s.authorize(authorization.ObjectContact, authorization.ActionUpdate), s.AdminUpdateContactStatus)

	// Audit
	admin.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
