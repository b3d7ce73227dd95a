package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
)

type addOrderRequest struct {
	Items []domain.OrderItem `json:"items"`
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) listTables(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tables": s.kitchen.Tables()})
}

func (s *Server) createTable(c *gin.Context) {
	var in domain.TableInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	table, err := s.kitchen.CreateTable(c.Request.Context(), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, table)
}

func (s *Server) updateTable(c *gin.Context) {
	var in domain.TableInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	id := c.Param("id")
	table, found, err := s.kitchen.UpdateTable(c.Request.Context(), id, in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !found {
		notFound(c, "table", id)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (s *Server) deleteTable(c *gin.Context) {
	id := c.Param("id")
	removed, err := s.kitchen.DeleteTable(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !removed {
		notFound(c, "table", id)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) addOrderToTable(c *gin.Context) {
	var req addOrderRequest
	// Пустое тело допустимо: кухня получает демонстрационное комбо.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, err)
			return
		}
	}

	id := c.Param("id")
	order, found, err := s.kitchen.AddOrderToTable(c.Request.Context(), id, req.Items...)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !found {
		notFound(c, "table", id)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) finalizePayment(c *gin.Context) {
	id := c.Param("id")
	entry, found, err := s.kitchen.FinalizePayment(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !found {
		notFound(c, "table", id)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) listOrders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"orders": s.kitchen.ActiveOrders(),
		"stats":  s.kitchen.OrderStats(),
	})
}

func (s *Server) listArchivedOrders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"orders": s.kitchen.ArchivedOrders()})
}

func (s *Server) updateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id := c.Param("id")
	order, found, err := s.kitchen.UpdateOrderStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !found {
		notFound(c, "order", id)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) listMenuItems(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": s.kitchen.MenuItems()})
}

// menuForm читает multipart-форму блюда: name, description, price ("25,90") и необязательный файл image.
func menuForm(c *gin.Context) (domain.MenuItemInput, io.ReadCloser, error) {
	in := domain.MenuItemInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
	}
	price, err := domain.ParseMoney(c.PostForm("price"))
	if err != nil {
		return in, nil, domain.NewValidationError("price", err.Error())
	}
	in.Price = price

	header, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return in, nil, nil
	}
	if err != nil {
		return in, nil, err
	}
	file, err := header.Open()
	if err != nil {
		return in, nil, err
	}
	return in, file, nil
}

func (s *Server) createMenuItem(c *gin.Context) {
	in, image, err := menuForm(c)
	if err != nil {
		s.respondMenuFormError(c, err)
		return
	}
	if image != nil {
		defer image.Close()
	}

	item, err := s.kitchen.CreateMenuItem(c.Request.Context(), in, readerOrNil(image))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) updateMenuItem(c *gin.Context) {
	in, image, err := menuForm(c)
	if err != nil {
		s.respondMenuFormError(c, err)
		return
	}
	if image != nil {
		defer image.Close()
	}

	id := c.Param("id")
	item, found, err := s.kitchen.UpdateMenuItem(c.Request.Context(), id, in, readerOrNil(image))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !found {
		notFound(c, "menu item", id)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) respondMenuFormError(c *gin.Context, err error) {
	if domain.IsValidation(err) {
		s.respondError(c, err)
		return
	}
	badRequest(c, err)
}

// readerOrNil не даёт typed-nil ReadCloser превратиться в ненулевой io.Reader.
func readerOrNil(rc io.ReadCloser) io.Reader {
	if rc == nil {
		return nil
	}
	return rc
}

func (s *Server) deleteMenuItem(c *gin.Context) {
	id := c.Param("id")
	removed, err := s.kitchen.DeleteMenuItem(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !removed {
		notFound(c, "menu item", id)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"entries":     s.kitchen.History(),
		"total_minor": s.kitchen.HistoryTotal(),
	})
}

func (s *Server) clearHistory(c *gin.Context) {
	if err := s.kitchen.ClearHistory(c.Request.Context()); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listAccounts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"accounts": s.kitchen.Accounts()})
}

func (s *Server) createAccount(c *gin.Context) {
	var in domain.AccountInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	account, err := s.kitchen.CreateAdminAccount(c.Request.Context(), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (s *Server) deleteAccount(c *gin.Context) {
	id := c.Param("id")
	removed, err := s.kitchen.DeleteAdminAccount(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !removed {
		notFound(c, "account", id)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	account, ok := s.kitchen.VerifyCredentials(req.Email, req.Password)
	if !ok {
		respondProblem(c, Problem{Type: TypeUnauth, Title: "Unauthorized", Status: http.StatusUnauthorized,
			Detail: "invalid email or password"})
		return
	}
	c.JSON(http.StatusOK, account)
}
