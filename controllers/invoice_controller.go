package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/am-factory/factory-orders-api/config"
	"github.com/am-factory/factory-orders-api/models"
	"github.com/am-factory/factory-orders-api/policies"
	"github.com/am-factory/factory-orders-api/services"
)

// UpdateInvoiceStatusRequest represents the request body for an invoice
// status change. Only status and payment date are mutable after creation.
type UpdateInvoiceStatusRequest struct {
	Status      string     `json:"status" binding:"required"`
	PaymentDate *time.Time `json:"payment_date"`
}

func newInvoiceService() *services.InvoiceService {
	db := config.GetDB()
	return services.NewInvoiceService(db, services.NewSequenceService(db))
}

// GetInvoiceForOrder handles GET /api/v1/orders/:id/invoice - returns the
// final invoice if one exists, otherwise the (resynced or auto-generated)
// draft
func GetInvoiceForOrder(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	invoice, draft, err := newInvoiceService().GetInvoiceForOrder(c.Request.Context(), orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if invoice != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"invoice":            invoice,
				"has_actual_invoice": true,
				"has_draft":          false,
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"invoice":            draft,
			"has_actual_invoice": false,
			"has_draft":          true,
		},
	})
}

// ListInvoices handles GET /api/v1/invoices - paginated listing with an
// optional status filter
func ListInvoices(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	db := config.GetDB()
	query := db.Model(&models.Invoice{})
	if status := c.Query("status"); status != "" && status != "all" {
		query = query.Where("LOWER(status) = LOWER(?)", status)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("invoice_number LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	var invoices []models.Invoice
	err := query.Preload("Order").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&invoices).Error
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"invoices": invoices,
			"total":    total,
			"page":     page,
			"per_page": perPage,
		},
	})
}

// GetInvoice handles GET /api/v1/invoices/:id
func GetInvoice(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid invoice ID",
			},
		})
		return
	}

	var invoice models.Invoice
	if err := config.GetDB().Preload("Order").First(&invoice, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Invoice not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    invoice,
	})
}

// UpdateInvoiceStatus handles PUT /api/v1/invoices/:id/status - requires the
// invoice permission group
func UpdateInvoiceStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if !policies.NewFactoryPolicy(user.Role).AllowsSpecial(policies.SpecialInvoice) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "POLICY_DENIED",
				"message": "Role is not permitted to edit invoices",
			},
		})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid invoice ID",
			},
		})
		return
	}

	var req UpdateInvoiceStatusRequest
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

	invoice, err := newInvoiceService().UpdateStatus(c.Request.Context(), uint(id), req.Status, req.PaymentDate)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    invoice,
	})
}
