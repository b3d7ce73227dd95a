package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
)

// ContentTypeProblemJSON: media type ответов RFC 7807.
const ContentTypeProblemJSON = "application/problem+json"

// Типы проблем.
const (
	TypeValidation = "/problems/validation-error"
	TypeNotFound   = "/problems/not-found"
	TypeConflict   = "/problems/conflict"
	TypeBadRequest = "/problems/bad-request"
	TypeInternal   = "/problems/internal-error"
	TypeUnauth     = "/problems/unauthorized"
)

// Problem: тело ответа об ошибке (RFC 7807).
type Problem struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

func (p Problem) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Title, p.Detail)
	}
	return p.Title
}

func respondProblem(c *gin.Context, p Problem) {
	if p.Instance == "" {
		p.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.AbortWithStatusJSON(p.Status, p)
}

func badRequest(c *gin.Context, err error) {
	respondProblem(c, Problem{Type: TypeBadRequest, Title: "Bad Request", Status: http.StatusBadRequest, Detail: err.Error()})
}

func notFound(c *gin.Context, resource, id string) {
	respondProblem(c, Problem{
		Type:   TypeNotFound,
		Title:  "Resource Not Found",
		Status: http.StatusNotFound,
		Detail: fmt.Sprintf("%s with identifier '%s' not found", resource, id),
	})
}

// problemFor переводит доменную ошибку в ответ. Неизвестные ошибки: 500 без деталей.
func problemFor(err error) Problem {
	switch {
	case domain.IsValidation(err):
		return Problem{
			Type:   TypeValidation,
			Title:  "Validation Error",
			Status: http.StatusUnprocessableEntity,
			Detail: err.Error(),
			Fields: domain.FieldErrors(err),
		}
	case errors.Is(err, domain.ErrInvariantViolation),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidTransition):
		return Problem{Type: TypeConflict, Title: "Conflict", Status: http.StatusConflict, Detail: err.Error()}
	default:
		return Problem{Type: TypeInternal, Title: "Internal Server Error", Status: http.StatusInternalServerError}
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	p := problemFor(err)
	if p.Status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
	}
	respondProblem(c, p)
}
