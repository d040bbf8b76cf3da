package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/am-factory/factory-orders-api/config"
	"github.com/am-factory/factory-orders-api/services"
)

// CreateOrderRequest represents the request body for creating an order
type CreateOrderRequest struct {
	Fields    map[string]interface{} `json:"fields" binding:"required"`
	StartFrom *int                   `json:"start_form_number"`
}

// UpdateOrderRequest represents the request body for updating an order
type UpdateOrderRequest struct {
	Fields map[string]interface{} `json:"fields" binding:"required"`
}

// CreateOrder handles POST /api/v1/orders - creates a new order with an
// auto-allocated yearly form number
func CreateOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
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

	svc := services.NewOrderService(config.GetDB(), services.NewSequenceService(config.GetDB()))
	order, err := svc.CreateOrder(c.Request.Context(), req.Fields, req.StartFrom, &user.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// GetOrder handles GET /api/v1/orders/:id - fetches one order with children
func GetOrder(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	svc := services.NewOrderService(config.GetDB(), services.NewSequenceService(config.GetDB()))
	order, err := svc.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// ListOrders handles GET /api/v1/orders - paginated listing with search and
// status filtering
func ListOrders(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	svc := services.NewOrderService(config.GetDB(), services.NewSequenceService(config.GetDB()))
	orders, total, err := svc.ListOrders(c.Request.Context(), services.OrderListFilter{
		Page:    page,
		PerPage: perPage,
		Search:  c.Query("search"),
		Status:  c.Query("status"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"orders":   orders,
			"total":    total,
			"page":     page,
			"per_page": perPage,
		},
	})
}

// UpdateOrder handles PUT /api/v1/orders/:id - applies a policy-filtered
// mutation payload. Keys the caller's role may not write are dropped.
func UpdateOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req UpdateOrderRequest
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

	svc := services.NewOrderService(config.GetDB(), services.NewSequenceService(config.GetDB()))
	order, err := svc.UpdateOrder(c.Request.Context(), orderID, user.Role, req.Fields)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// DeleteOrder handles DELETE /api/v1/orders/:id - removes the order and all
// of its child records (Admin and OrderManager only)
func DeleteOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if user.Role != "Admin" && user.Role != "OrderManager" {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "POLICY_DENIED",
				"message": "Only Admin and OrderManager can delete orders",
			},
		})
		return
	}

	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	svc := services.NewOrderService(config.GetDB(), services.NewSequenceService(config.GetDB()))
	if err := svc.DeleteOrder(c.Request.Context(), orderID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "Order deleted successfully",
		},
	})
}

// ReplaceOrderValuesRequest represents the request body for replacing the
// order's coloring values grid
type ReplaceOrderValuesRequest struct {
	Values []services.OrderValueInput `json:"values" binding:"required"`
}

// ReplaceOrderValues handles PUT /api/v1/orders/:id/values - replaces the
// order's coloring values grid in full
func ReplaceOrderValues(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req ReplaceOrderValuesRequest
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

	svc := services.NewOrderService(config.GetDB(), services.NewSequenceService(config.GetDB()))
	values, err := svc.ReplaceOrderValues(c.Request.Context(), orderID, user.Role, req.Values)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    values,
	})
}

// ListOrderValues handles GET /api/v1/orders/:id/values
func ListOrderValues(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	svc := services.NewOrderService(config.GetDB(), services.NewSequenceService(config.GetDB()))
	values, err := svc.GetOrderValues(c.Request.Context(), orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    values,
	})
}

// parseOrderID reads the :id path parameter, writing the error response on
// failure
func parseOrderID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid order ID",
			},
		})
		return 0, false
	}
	return uint(id), true
}
