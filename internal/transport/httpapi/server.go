// Package httpapi: HTTP-слой (gin) над корзиной, панелью кухни, регистрацией и отрисованными видами.
// Он заменяет обработчики DOM-событий: каждая ручка вызывает одну операцию стора.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/gusto/internal/cart"
	"github.com/vladislavdragonenkov/gusto/internal/catalog"
	"github.com/vladislavdragonenkov/gusto/internal/kitchen"
	"github.com/vladislavdragonenkov/gusto/internal/notice"
	"github.com/vladislavdragonenkov/gusto/internal/render"
	"github.com/vladislavdragonenkov/gusto/internal/signup"
)

// Deps: сторы, которыми владеет HTTP-слой. Board и Views могут быть nil.
type Deps struct {
	Catalog *catalog.Catalog
	Cart    *cart.Store
	Kitchen *kitchen.Admin
	Signup  *signup.Registry
	Board   *notice.Board
	Views   *render.Views
	Logger  *log.Entry
}

// Server собирает маршруты HTTP API.
type Server struct {
	catalog *catalog.Catalog
	cart    *cart.Store
	kitchen *kitchen.Admin
	signup  *signup.Registry
	board   *notice.Board
	views   *render.Views
	logger  *log.Entry
}

// NewServer создаёт HTTP-слой.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "http")
	}
	return &Server{
		catalog: deps.Catalog,
		cart:    deps.Cart,
		kitchen: deps.Kitchen,
		signup:  deps.Signup,
		board:   deps.Board,
		views:   deps.Views,
		logger:  logger,
	}
}

// Router возвращает gin.Engine со всеми маршрутами.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	api := r.Group("/api")

	api.GET("/catalog", s.listTabs)
	api.GET("/catalog/search", s.searchCatalog)
	api.GET("/catalog/tabs/:key", s.getTab)

	api.GET("/cart", s.getCart)
	api.POST("/cart/items", s.addCartItem)
	api.PATCH("/cart/items/:id", s.updateCartItem)
	api.DELETE("/cart/items/:id", s.removeCartItem)
	api.POST("/cart/checkout", s.checkout)
	api.GET("/toast", s.getToast)

	k := api.Group("/kitchen")
	k.GET("/tables", s.listTables)
	k.POST("/tables", s.createTable)
	k.PUT("/tables/:id", s.updateTable)
	k.DELETE("/tables/:id", s.deleteTable)
	k.POST("/tables/:id/orders", s.addOrderToTable)
	k.POST("/tables/:id/payment", s.finalizePayment)

	k.GET("/orders", s.listOrders)
	k.GET("/orders/archive", s.listArchivedOrders)
	k.PATCH("/orders/:id/status", s.updateOrderStatus)

	k.GET("/menu", s.listMenuItems)
	k.POST("/menu", s.createMenuItem)
	k.PUT("/menu/:id", s.updateMenuItem)
	k.DELETE("/menu/:id", s.deleteMenuItem)

	k.GET("/history", s.listHistory)
	k.DELETE("/history", s.clearHistory)

	k.GET("/accounts", s.listAccounts)
	k.POST("/accounts", s.createAccount)
	k.DELETE("/accounts/:id", s.deleteAccount)
	k.POST("/login", s.login)

	api.GET("/signup", s.listCustomers)
	api.POST("/signup", s.register)

	r.GET("/views", s.listViews)
	r.GET("/views/:name", s.getView)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		entry := s.logger.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(started),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("http request")
			return
		}
		entry.Debug("http request")
	}
}
