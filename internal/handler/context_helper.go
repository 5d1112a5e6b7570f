package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/seminar-ops/scheduling-api/internal/middleware"
	"github.com/seminar-ops/scheduling-api/internal/models"
	appErrors "github.com/seminar-ops/scheduling-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.SessionClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext resolves the identity written into history rows and
// notification emails.
func actorFromContext(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil && claims.Email != "" {
		return claims.Email
	}
	return "system"
}

func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be a positive integer")
	}
	return id, nil
}
