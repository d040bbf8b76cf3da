package services

import (
	"os"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/am-factory/factory-orders-api/models"
)

func migrateAll(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := db.AutoMigrate(
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
}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	migrateAll(t, db)
	return db
}

// setupFileTestDB opens a file-backed sqlite database so multiple
// connections can contend for real write locks. Immediate transactions plus
// a busy timeout make concurrent writers queue instead of failing fast.
func setupFileTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	dsn := "file:" + path + "?_busy_timeout=10000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open file-backed test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		os.Remove(path)
	})
	migrateAll(t, db)
	return db
}

func createTestOrder(t *testing.T, db *gorm.DB, mutate func(*models.Order)) *models.Order {
	t.Helper()
	quantity := 10
	fee := 2.0
	peakQty := 5.5
	width := 2.0
	order := &models.Order{
		FormNumber:   100,
		CustomerName: "Test Customer",
		Status:       "Pending",
		CurrentStage: "New",
		Quantity:     &quantity,
		CustomerFee:  &fee,
		PeakQuantity: &peakQty,
		Width:        &width,
	}
	if mutate != nil {
		mutate(order)
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("Failed to create test order: %v", err)
	}
	return order
}
