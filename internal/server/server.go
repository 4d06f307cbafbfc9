package server

import (
	"context"
	"net/http"

	"studiopass/internal/auth"
	"studiopass/internal/booking"
	"studiopass/internal/catalog"
	"studiopass/internal/checkin"
	"studiopass/internal/config"
	"studiopass/internal/event"
	"studiopass/internal/ledger"
	"studiopass/internal/member"
	"studiopass/internal/notify"
	"studiopass/internal/subscription"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
	notify *notify.Service
}

func New(db *sqlx.DB, cfg *config.Config, notifier *notify.Service) *Server {
	RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(50, 100))

	loc := cfg.Location()

	memberHandler := member.NewHandler(member.NewService(member.NewRepository(db), cfg.JWTSecret))
	catalogHandler := catalog.NewHandler(db)
	eventHandler := event.NewHandler(db, loc, notifier)
	subscriptionHandler := subscription.NewHandler(
		subscription.NewService(subscription.NewRepository(db), catalog.NewRepository(db), loc),
		notifier)
	bookingHandler := booking.NewHandler(db)
	ledgerHandler := ledger.NewHandler(db)
	checkinHandler := checkin.NewHandler(checkin.NewService(checkin.NewRepository(db), loc))

	public := router.Group("/auth")
	{
		public.POST("/register", memberHandler.Register)
		public.POST("/login", memberHandler.Login)
		public.POST("/refresh", memberHandler.Refresh)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)

	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", memberHandler.GetMe)
		protected.GET("/me/subscriptions", subscriptionHandler.ListMine)
		protected.GET("/packages", catalogHandler.ListPackages)
		protected.GET("/packages/:packageID", catalogHandler.GetPackage)
		protected.GET("/plans", catalogHandler.ListPlans)
		protected.GET("/templates", catalogHandler.ListTemplates)
		protected.GET("/templates/:templateID/events", eventHandler.ListUpcoming)
		protected.GET("/subscriptions/:subscriptionID", subscriptionHandler.Get)
		protected.GET("/subscriptions/:subscriptionID/qr", subscriptionHandler.GetQR)
		protected.GET("/subscriptions/:subscriptionID/qr.png", subscriptionHandler.GetQRImage)
		protected.GET("/me/bookings", bookingHandler.ListMine)
		protected.POST("/bookings", bookingHandler.Create)
		protected.DELETE("/bookings/:bookingID", bookingHandler.Cancel)
	}

	// front-desk operations: scanning, selling, taking payments
	desk := router.Group("/")
	desk.Use(authMiddleware, auth.RequireRole(auth.RoleStaff, auth.RoleAdmin))
	{
		desk.POST("/scan", checkinHandler.Scan)
		desk.POST("/checkin", checkinHandler.CheckIn)
		desk.POST("/checkin/time-based", checkinHandler.TimeBasedCheckIn)
		desk.DELETE("/checkins/:id", checkinHandler.DeleteCheckIn)
		desk.POST("/subscriptions", subscriptionHandler.Create)
		desk.POST("/subscriptions/:subscriptionID/qr/rotate", subscriptionHandler.RotateQR)
		desk.POST("/subscriptions/:subscriptionID/payments", ledgerHandler.RecordPayment)
		desk.GET("/subscriptions/:subscriptionID/payments", ledgerHandler.ListPayments)
		desk.GET("/subscriptions/:subscriptionID/debt", ledgerHandler.GetDebt)
		desk.GET("/events/:eventID/bookings", bookingHandler.ListByEvent)
	}

	adminOnly := auth.RequireRole(auth.RoleAdmin)
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminOnly)
	{
		admin.POST("/plans", catalogHandler.CreatePlan)
		admin.POST("/packages", catalogHandler.CreatePackage)
		admin.POST("/permissions", catalogHandler.CreatePermission)
		admin.POST("/events", eventHandler.CreateEvent)
		admin.POST("/events/:eventID/cancel", eventHandler.CancelEvent)
	}

	// the cascade delete is destructive, so it stays admin-only even though
	// it lives on the public path
	router.DELETE("/subscriptions/:subscriptionID", authMiddleware, adminOnly, subscriptionHandler.Delete)

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	router.GET("/test-email", TestEmail(notifier))
	SetupSwagger(router)

	return &Server{
		router: router,
		db:     db,
		config: cfg,
		notify: notifier,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests before returning.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
