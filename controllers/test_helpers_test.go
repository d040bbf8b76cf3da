package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/am-factory/factory-orders-api/config"
	"github.com/am-factory/factory-orders-api/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
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
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	config.SetDB(db)
	return db
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

// mockAuthMiddleware simulates the JWT middleware for testing. It sets the
// user_id exactly as the real EnsureValidToken middleware does; the role is
// resolved from the users table by the handlers themselves.
func mockAuthMiddleware(auth0ID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", auth0ID)
		c.Next()
	}
}

// seedUser creates a user with the given role and a matching Auth0 ID
func seedUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	user := models.User{
		Auth0ID: "auth0|" + role + "-user",
		Name:    role + " User",
		Email:   role + "@example.com",
		Role:    role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to seed %s user: %v", role, err)
	}
	return &user
}

// seedOrder creates a minimal billable order
func seedOrder(t *testing.T, db *gorm.DB) *models.Order {
	t.Helper()
	quantity := 10
	fee := 2.0
	peakQty := 5.5
	width := 2.0
	order := models.Order{
		FormNumber:   1,
		CustomerName: "Test Customer",
		Status:       "Pending",
		CurrentStage: "New",
		Quantity:     &quantity,
		CustomerFee:  &fee,
		PeakQuantity: &peakQty,
		Width:        &width,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("Failed to seed order: %v", err)
	}
	return &order
}

// doJSON executes a JSON request against the router and decodes the envelope
func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return w, response
}

func errorCode(t *testing.T, response map[string]interface{}) string {
	t.Helper()
	errData, ok := response["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("Response has no error object: %v", response)
	}
	code, _ := errData["code"].(string)
	return code
}
