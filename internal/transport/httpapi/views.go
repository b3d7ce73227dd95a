package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) listViews(c *gin.Context) {
	if s.views == nil {
		c.JSON(http.StatusOK, gin.H{"views": []string{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"views": s.views.Names()})
}

// getView отдаёт последний HTML вида целиком; клиент заменяет им содержимое контейнера.
func (s *Server) getView(c *gin.Context) {
	name := c.Param("name")
	if s.views == nil {
		notFound(c, "view", name)
		return
	}
	html, ok := s.views.Get(name)
	if !ok {
		notFound(c, "view", name)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
