package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/am-factory/factory-orders-api/config"
	"github.com/am-factory/factory-orders-api/controllers"
	"github.com/am-factory/factory-orders-api/middleware"
	"github.com/am-factory/factory-orders-api/models"
	"github.com/am-factory/factory-orders-api/services"
)

func main() {
	// Basic logging
	log.Println("Starting Factory Orders API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.OrderImage{},
		&models.OrderFile{},
		&models.OrderValue{},
		&models.ProductionStepLog{},
		&models.MachineLog{},
		&models.JobMetric{},
		&models.InvoiceDraft{},
		&models.Invoice{},
		&models.NumberSequence{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Initialize S3-backed image storage
	s3Service, err := services.InitS3Service()
	if err != nil {
		log.Fatalf("Failed to initialize S3 service: %v", err)
	}
	services.InitImageService(s3Service)

	// Initialize Gin router
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
	}))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		authenticated := v1.Group("")
		authenticated.Use(middleware.EnsureValidToken(cfg))
		{
			// User profiles
			authenticated.POST("/users", controllers.CreateUser)
			authenticated.GET("/users/me", controllers.GetCurrentUser)

			// Orders
			authenticated.POST("/orders", controllers.CreateOrder)
			authenticated.GET("/orders", controllers.ListOrders)
			authenticated.GET("/orders/:id", controllers.GetOrder)
			authenticated.PUT("/orders/:id", controllers.UpdateOrder)
			authenticated.DELETE("/orders/:id", controllers.DeleteOrder)

			// Production workflow
			authenticated.PUT("/orders/:id/production-status", controllers.UpdateProductionStatus)
			authenticated.PUT("/orders/:id/production-steps", controllers.ReplaceProductionStepLogs)
			authenticated.GET("/production/permissions", controllers.GetProductionPermissions)

			// Order images
			authenticated.POST("/orders/:id/images", controllers.UploadOrderImage)
			authenticated.GET("/orders/:id/images", controllers.ListOrderImages)
			authenticated.DELETE("/orders/:id/images/:imageId", controllers.DeleteOrderImage)

			// Order design files
			authenticated.POST("/orders/:id/files", controllers.CreateOrderFile)
			authenticated.GET("/orders/:id/files", controllers.ListOrderFiles)
			authenticated.DELETE("/orders/:id/files/:fileId", controllers.DeleteOrderFile)

			// Order coloring values
			authenticated.PUT("/orders/:id/values", controllers.ReplaceOrderValues)
			authenticated.GET("/orders/:id/values", controllers.ListOrderValues)

			// Invoices
			authenticated.GET("/orders/:id/invoice", controllers.GetInvoiceForOrder)
			authenticated.GET("/invoices", controllers.ListInvoices)
			authenticated.GET("/invoices/:id", controllers.GetInvoice)
			authenticated.PUT("/invoices/:id/status", controllers.UpdateInvoiceStatus)
		}
	}

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Factory Orders API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	// Get list of tables
	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
