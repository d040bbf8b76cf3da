package controllers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/am-factory/factory-orders-api/config"
	"github.com/am-factory/factory-orders-api/models"
	"github.com/am-factory/factory-orders-api/policies"
	"github.com/am-factory/factory-orders-api/services"
	"github.com/am-factory/factory-orders-api/utils"
)

// UploadOrderImage handles POST /api/v1/orders/:id/images - uploads an image
// for an order. The core stores only the S3 key; bytes live in the bucket.
func UploadOrderImage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if !policies.NewOrderPolicy(user.Role).AllowsSpecial(policies.SpecialImages) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "POLICY_DENIED",
				"message": "Role is not permitted to upload order images",
			},
		})
		return
	}

	orderID, ok := parseOrderID(c)
	if !ok {
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

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "No image file provided",
			},
		})
		return
	}

	imageService := services.GetImageService()
	s3Key, err := imageService.UploadImage(fileHeader)
	if err != nil {
		if uploadErr, ok := err.(*utils.FileUploadError); ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    uploadErr.Code,
					"message": uploadErr.Message,
				},
			})
			return
		}
		log.Printf("Failed to upload image for order %d: %v", orderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_ERROR",
				"message": "Failed to upload image",
			},
		})
		return
	}

	image := models.OrderImage{
		OrderID:          orderID,
		S3Key:            s3Key,
		OriginalFilename: fileHeader.Filename,
		FileSize:         fileHeader.Size,
		MimeType:         fileHeader.Header.Get("Content-Type"),
		UploadedByID:     &user.ID,
	}
	if err := db.Create(&image).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to save image record",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    image,
	})
}

// ListOrderImages handles GET /api/v1/orders/:id/images - lists an order's
// images with presigned URLs
func ListOrderImages(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var images []models.OrderImage
	if err := config.GetDB().Where("order_id = ?", orderID).Find(&images).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load images",
			},
		})
		return
	}

	imageService := services.GetImageService()
	for i := range images {
		url, err := imageService.GetImageURL(images[i].S3Key)
		if err != nil {
			log.Printf("Failed to presign image %d: %v", images[i].ID, err)
			continue
		}
		images[i].ImageURL = url
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    images,
	})
}

// DeleteOrderImage handles DELETE /api/v1/orders/:id/images/:imageId
func DeleteOrderImage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if !policies.NewOrderPolicy(user.Role).AllowsSpecial(policies.SpecialImages) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "POLICY_DENIED",
				"message": "Role is not permitted to delete order images",
			},
		})
		return
	}

	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	imageID, err := strconv.ParseUint(c.Param("imageId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid image ID",
			},
		})
		return
	}

	db := config.GetDB()
	var image models.OrderImage
	if err := db.Where("id = ? AND order_id = ?", uint(imageID), orderID).First(&image).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Image not found",
			},
		})
		return
	}

	if err := services.GetImageService().DeleteImage(image.S3Key); err != nil {
		log.Printf("Failed to delete image %s from storage: %v", image.S3Key, err)
	}

	if err := db.Delete(&image).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete image record",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "Image deleted successfully",
		},
	})
}
