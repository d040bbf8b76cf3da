package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/am-factory/factory-orders-api/config"
	"github.com/am-factory/factory-orders-api/middleware"
	"github.com/am-factory/factory-orders-api/models"
	"github.com/am-factory/factory-orders-api/services"
)

// currentUser resolves the authenticated user from the JWT subject.
// On failure it writes the error response and returns false.
func currentUser(c *gin.Context) (*models.User, bool) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return nil, false
	}

	db := config.GetDB()
	var user models.User
	if err := db.Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User profile not found. Please create a profile first.",
			},
		})
		return nil, false
	}

	return &user, true
}

// respondServiceError maps the core's typed errors onto HTTP responses
func respondServiceError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var notFoundErr *services.NotFoundError
	var allocationErr *services.AllocationError
	var policyErr *services.PolicyDeniedError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    validationErr.Code(),
				"message": validationErr.Error(),
				"field":   validationErr.Field,
			},
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    notFoundErr.Code(),
				"message": notFoundErr.Error(),
			},
		})
	case errors.As(err, &allocationErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    allocationErr.Code(),
				"message": "Number allocation failed, please retry",
			},
		})
	case errors.As(err, &policyErr):
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    policyErr.Code(),
				"message": policyErr.Error(),
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Operation failed",
			},
		})
	}
}
