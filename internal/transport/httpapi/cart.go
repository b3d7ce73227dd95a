package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type addCartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (s *Server) listTabs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tabs": s.catalog.Tabs()})
}

func (s *Server) getTab(c *gin.Context) {
	tab, ok := s.catalog.Tab(c.Param("key"))
	if !ok {
		notFound(c, "tab", c.Param("key"))
		return
	}
	c.JSON(http.StatusOK, tab)
}

func (s *Server) searchCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"products": s.catalog.Search(c.Query("q"))})
}

func (s *Server) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, s.cart.Summary())
}

func (s *Server) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id := strings.TrimSpace(req.ProductID)
	product, ok := s.catalog.Product(id)
	if !ok {
		notFound(c, "product", id)
		return
	}

	line, err := s.cart.AddItem(c.Request.Context(), product)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"line": line, "summary": s.cart.Summary()})
}

func (s *Server) updateCartItem(c *gin.Context) {
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	found, err := s.cart.UpdateQuantity(c.Request.Context(), id, *req.Quantity)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !found {
		notFound(c, "cart line", id)
		return
	}
	c.JSON(http.StatusOK, s.cart.Summary())
}

func (s *Server) removeCartItem(c *gin.Context) {
	id := c.Param("id")
	removed, err := s.cart.RemoveItem(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !removed {
		notFound(c, "cart line", id)
		return
	}
	c.JSON(http.StatusOK, s.cart.Summary())
}

func (s *Server) checkout(c *gin.Context) {
	receipt, err := s.cart.Checkout(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, receipt)
}

func (s *Server) getToast(c *gin.Context) {
	if s.board == nil {
		c.Status(http.StatusNoContent)
		return
	}
	toast, ok := s.board.Current()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, toast)
}
