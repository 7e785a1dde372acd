// Package http exposes the storefront over a JSON HTTP API built on gin.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/metrics"
	"github.com/egannguyen/pharma-storefront/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// IdentityResolver turns a session token into the caller's identity.
type IdentityResolver interface {
	ResolveIdentity(token string) (entity.Identity, error)
}

// EventSource streams published order events.
type EventSource interface {
	Subscribe(ctx context.Context, topic string) (<-chan entity.EventEnvelope, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators served by the API.
type Deps struct {
	Orders     *service.OrderService
	Carts      *service.CartService
	Products   *service.ProductService
	Users      *service.UserService
	Identities IdentityResolver
	Events     EventSource
	Health     []Pinger
	Metrics    *metrics.ServerMetrics
	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler
}

// Config holds the transport settings.
type Config struct {
	CORSOrigins  []string
	CookieName   string
	SecureCookie bool
}

// Handler handles HTTP requests for the application.
type Handler struct {
	deps     Deps
	cfg      Config
	upgrader websocket.Upgrader
}

func NewHandler(deps Deps, cfg Config) *Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = "auth-token"
	}
	h := &Handler{deps: deps, cfg: cfg}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	if h.deps.Metrics != nil {
		r.Use(h.deps.Metrics.Middleware())
	}
	r.Use(cors.New(h.corsConfig()))
	r.Use(h.identify)

	r.GET("/health", h.handleHealth)
	if h.deps.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(h.deps.MetricsHandler))
	}
	h.RegisterRoutes(r.Group("/api"))
	return r
}

func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.handleRegister)
	authGroup.POST("/login", h.handleLogin)
	authGroup.POST("/logout", h.handleLogout)

	products := api.Group("/products")
	products.GET("", h.handleListProducts)
	products.GET("/:id", h.handleGetProduct)
	products.POST("", h.handleCreateProduct)
	products.PUT("/:id", h.handleUpdateProduct)
	products.DELETE("/:id", h.handleDeleteProduct)

	cart := api.Group("/cart")
	cart.GET("", h.handleGetCart)
	cart.POST("/items", h.handleAddCartItem)
	cart.PUT("/items/:productId", h.handleSetCartItem)
	cart.DELETE("/items/:productId", h.handleRemoveCartItem)
	cart.DELETE("", h.handleClearCart)

	orders := api.Group("/orders")
	orders.POST("", h.handleCreateOrder)
	orders.GET("", h.handleGetOrders)
	orders.GET("/events", h.handleOrderEvents)
	orders.GET("/:id", h.handleGetOrder)
	orders.PUT("/:id", h.handleUpdateOrder)
	orders.POST("/:id/cancel", h.handleCancelOrder)

	users := api.Group("/users")
	users.GET("/me", h.handleMe)
	users.GET("", h.handleListUsers)
	users.POST("", h.handleCreateUser)
	users.GET("/:id", h.handleGetUser)
	users.PUT("/:id", h.handleUpdateUser)
	users.DELETE("/:id", h.handleDeleteUser)
}

func (h *Handler) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(h.cfg.CORSOrigins) == 0 || (len(h.cfg.CORSOrigins) == 1 && h.cfg.CORSOrigins[0] == "*") {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = h.cfg.CORSOrigins
	}
	return cfg
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.cfg.CORSOrigins) == 0 {
		return true
	}
	for _, allowed := range h.cfg.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (h *Handler) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	for _, p := range h.deps.Health {
		if err := p.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, envelope{Success: false, Message: "storage unavailable"})
			return
		}
	}
	respond(c, http.StatusOK, gin.H{"status": "ok"})
}
