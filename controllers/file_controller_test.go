package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/am-factory/factory-orders-api/models"
)

func TestCreateOrderFile(t *testing.T) {
	db := setupTestDB(t)
	designer := seedUser(t, db, "Designer")
	supervisor := seedUser(t, db, "FactorySupervisor")
	order := seedOrder(t, db)

	router := setupTestRouter()
	router.POST("/orders/:id/files", mockAuthMiddleware(designer.Auth0ID), CreateOrderFile)

	body := map[string]interface{}{
		"file_name":    "sole-pattern.dxf",
		"display_name": "Sole pattern rev 3",
	}
	w, response := doJSON(t, router, http.MethodPost, fmt.Sprintf("/orders/%d/files", order.ID), body)
	assert.Equal(t, http.StatusCreated, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "sole-pattern.dxf", data["file_name"])
	assert.Equal(t, "Sole pattern rev 3", data["display_name"])

	var count int64
	db.Model(&models.OrderFile{}).Where("order_id = ?", order.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	// display name falls back to the file name
	w, response = doJSON(t, router, http.MethodPost, fmt.Sprintf("/orders/%d/files", order.ID), map[string]interface{}{
		"file_name": "upper-outline.dxf",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	data = response["data"].(map[string]interface{})
	assert.Equal(t, "upper-outline.dxf", data["display_name"])

	// missing file_name fails binding
	w, response = doJSON(t, router, http.MethodPost, fmt.Sprintf("/orders/%d/files", order.ID), map[string]interface{}{
		"display_name": "nameless",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, response))

	// unknown order
	w, response = doJSON(t, router, http.MethodPost, "/orders/9999/files", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, response))

	// factory staff cannot attach design files
	denied := setupTestRouter()
	denied.POST("/orders/:id/files", mockAuthMiddleware(supervisor.Auth0ID), CreateOrderFile)
	w, response = doJSON(t, denied, http.MethodPost, fmt.Sprintf("/orders/%d/files", order.ID), body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "POLICY_DENIED", errorCode(t, response))
}

func TestListOrderFiles(t *testing.T) {
	db := setupTestDB(t)
	clerk := seedUser(t, db, "InvoiceClerk")
	order := seedOrder(t, db)
	other := seedOrder(t, db)
	db.Model(other).Update("form_number", 2)

	for _, name := range []string{"a.dxf", "b.dxf"} {
		file := models.OrderFile{OrderID: order.ID, FileName: name, DisplayName: name}
		assert.NoError(t, db.Create(&file).Error)
	}
	stray := models.OrderFile{OrderID: other.ID, FileName: "c.dxf", DisplayName: "c.dxf"}
	assert.NoError(t, db.Create(&stray).Error)

	router := setupTestRouter()
	router.GET("/orders/:id/files", mockAuthMiddleware(clerk.Auth0ID), ListOrderFiles)

	w, response := doJSON(t, router, http.MethodGet, fmt.Sprintf("/orders/%d/files", order.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	files := response["data"].([]interface{})
	assert.Len(t, files, 2)
}

func TestDeleteOrderFile(t *testing.T) {
	db := setupTestDB(t)
	designer := seedUser(t, db, "Designer")
	order := seedOrder(t, db)

	file := models.OrderFile{OrderID: order.ID, FileName: "obsolete.dxf", DisplayName: "obsolete.dxf"}
	assert.NoError(t, db.Create(&file).Error)

	router := setupTestRouter()
	router.DELETE("/orders/:id/files/:fileId", mockAuthMiddleware(designer.Auth0ID), DeleteOrderFile)

	w, _ := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/orders/%d/files/%d", order.ID, file.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&models.OrderFile{}).Where("id = ?", file.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	// file belonging to another order is not reachable through this order
	w, response := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/orders/%d/files/9999", order.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, response))
}
