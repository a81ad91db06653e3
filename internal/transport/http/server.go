package http

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/oyushop/storefront/internal/domain"
	"github.com/oyushop/storefront/internal/service/checkout"
	"github.com/oyushop/storefront/internal/service/status"
)

// Server агрегирует зависимости REST-слоя витрины.
type Server struct {
	checkout      *checkout.Service
	transitions   *status.Handler
	catalog       domain.CatalogRepository
	orders        domain.OrderRepository
	promos        domain.PromoRepository
	inventoryLogs domain.InventoryLogRepository
	timeline      domain.TimelineRepository

	adminUsername string
	adminPassword string
	adminToken    string

	logger *log.Entry
	now    func() time.Time
}

// ServerOptions задаёт параметры REST-слоя.
type ServerOptions struct {
	Checkout      *checkout.Service
	Transitions   *status.Handler
	Catalog       domain.CatalogRepository
	Orders        domain.OrderRepository
	Promos        domain.PromoRepository
	InventoryLogs domain.InventoryLogRepository
	Timeline      domain.TimelineRepository
	AdminUsername string
	AdminPassword string
	AdminToken    string
	Logger        *log.Entry
}

// NewServer создаёт REST-слой поверх сервисов и репозиториев.
func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New().WithField("component", "http")
	}

	registerCustomValidators()

	return &Server{
		checkout:      opts.Checkout,
		transitions:   opts.Transitions,
		catalog:       opts.Catalog,
		orders:        opts.Orders,
		promos:        opts.Promos,
		inventoryLogs: opts.InventoryLogs,
		timeline:      opts.Timeline,
		adminUsername: opts.AdminUsername,
		adminPassword: opts.AdminPassword,
		adminToken:    opts.AdminToken,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Router собирает gin-маршруты витрины.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	api := router.Group("/api")
	{
		api.GET("/products", s.listProducts)
		api.GET("/products/:id", s.getProduct)

		api.POST("/orders", s.placeOrder)
		api.POST("/promocodes/validate", s.validatePromo)

		api.POST("/admin/login", s.adminLogin)
	}

	admin := api.Group("")
	admin.Use(s.requireAdmin())
	{
		admin.POST("/products", s.createProduct)
		admin.PUT("/products/:id", s.updateProduct)
		admin.DELETE("/products/:id", s.deleteProduct)

		admin.GET("/orders", s.listOrders)
		admin.GET("/orders/:id", s.getOrder)
		admin.PATCH("/orders/:id/status", s.updateOrderStatus)
		admin.DELETE("/orders/:id", s.deleteOrder)
		admin.GET("/orders/:id/timeline", s.getOrderTimeline)

		admin.GET("/promocodes", s.listPromos)
		admin.POST("/promocodes", s.createPromo)
		admin.DELETE("/promocodes/:code", s.deletePromo)

		admin.GET("/inventory-logs", s.listInventoryLogs)
		admin.POST("/inventory-logs", s.appendInventoryLog)
	}

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		}).Debug("http request")
	}
}
