package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/am-factory/factory-orders-api/config"
	"github.com/am-factory/factory-orders-api/policies"
	"github.com/am-factory/factory-orders-api/services"
)

// ReplaceStepLogsRequest represents the request body for a bulk replace of
// production step logs
type ReplaceStepLogsRequest struct {
	ProductionSteps []services.StepLogInput `json:"production_steps" binding:"required"`
}

func newProductionService() *services.ProductionService {
	db := config.GetDB()
	seq := services.NewSequenceService(db)
	return services.NewProductionService(db, services.NewInvoiceService(db, seq))
}

// UpdateProductionStatus handles PUT /api/v1/orders/:id/production-status -
// applies a production mutation: stage/progress/telemetry, draft resync,
// and promotion to a final invoice when the stage is terminal
func UpdateProductionStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var update services.ProductionUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	order, result, err := newProductionService().UpdateProductionStatus(
		c.Request.Context(), orderID, user.Role, update, &user.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order":          order,
			"invoice_result": result,
		},
	})
}

// ReplaceProductionStepLogs handles PUT /api/v1/orders/:id/production-steps -
// full delete-and-reinsert of the order's step logs, followed by an invoice
// draft resync
func ReplaceProductionStepLogs(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if !policies.NewFactoryPolicy(user.Role).AllowsSpecial(policies.SpecialProductionSteps) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "POLICY_DENIED",
				"message": "Role is not permitted to edit production steps",
			},
		})
		return
	}

	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req ReplaceStepLogsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	svc := newProductionService()
	if err := svc.ReplaceProductionStepLogs(c.Request.Context(), orderID, req.ProductionSteps, &user.ID); err != nil {
		respondServiceError(c, err)
		return
	}

	steps, err := svc.GetProductionStepLogs(c.Request.Context(), orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"production_steps": steps,
		},
	})
}

// GetProductionPermissions handles GET /api/v1/production/permissions -
// summarizes which production sections the caller's role may edit
func GetProductionPermissions(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    policies.NewFactoryPolicy(user.Role).Permissions(),
	})
}
