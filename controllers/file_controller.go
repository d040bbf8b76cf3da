package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/am-factory/factory-orders-api/config"
	"github.com/am-factory/factory-orders-api/models"
	"github.com/am-factory/factory-orders-api/policies"
)

// CreateOrderFileRequest represents the request body for attaching a design
// file reference to an order
type CreateOrderFileRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	DisplayName string `json:"display_name"`
}

// CreateOrderFile handles POST /api/v1/orders/:id/files - records a design
// file attachment for an order. Only the reference is stored.
func CreateOrderFile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if !policies.NewOrderPolicy(user.Role).AllowsSpecial(policies.SpecialFiles) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "POLICY_DENIED",
				"message": "Role is not permitted to attach order files",
			},
		})
		return
	}

	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req CreateOrderFileRequest
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

	db := config.GetDB()
	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	file := models.OrderFile{
		OrderID:      orderID,
		FileName:     req.FileName,
		DisplayName:  req.DisplayName,
		UploadedByID: &user.ID,
	}
	if file.DisplayName == "" {
		file.DisplayName = file.FileName
	}
	if err := db.Create(&file).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to save file record",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    file,
	})
}

// ListOrderFiles handles GET /api/v1/orders/:id/files
func ListOrderFiles(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var files []models.OrderFile
	if err := config.GetDB().Where("order_id = ?", orderID).Find(&files).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load files",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    files,
	})
}

// DeleteOrderFile handles DELETE /api/v1/orders/:id/files/:fileId
func DeleteOrderFile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if !policies.NewOrderPolicy(user.Role).AllowsSpecial(policies.SpecialFiles) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "POLICY_DENIED",
				"message": "Role is not permitted to delete order files",
			},
		})
		return
	}

	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	fileID, err := strconv.ParseUint(c.Param("fileId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid file ID",
			},
		})
		return
	}

	db := config.GetDB()
	var file models.OrderFile
	if err := db.Where("id = ? AND order_id = ?", uint(fileID), orderID).First(&file).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "File not found",
			},
		})
		return
	}

	if err := db.Delete(&file).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete file record",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "File deleted successfully",
		},
	})
}
