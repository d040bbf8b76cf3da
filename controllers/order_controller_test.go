package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/am-factory/factory-orders-api/models"
)

func TestCreateOrder(t *testing.T) {
	db := setupTestDB(t)
	manager := seedUser(t, db, "OrderManager")

	tests := []struct {
		name           string
		auth0ID        string
		requestBody    map[string]interface{}
		expectedStatus int
		expectedError  string
		checkResponse  func(t *testing.T, response map[string]interface{})
	}{
		{
			name:    "Successfully create order",
			auth0ID: manager.Auth0ID,
			requestBody: map[string]interface{}{
				"fields": map[string]interface{}{
					"customer_name": "Acme Textiles",
					"quantity":      5,
				},
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, response map[string]interface{}) {
				assert.True(t, response["success"].(bool))
				data := response["data"].(map[string]interface{})
				assert.Equal(t, "Acme Textiles", data["customer_name"])
				assert.Equal(t, float64(5), data["quantity"])
				assert.Equal(t, "Pending", data["status"])
				assert.Equal(t, float64(1), data["form_number"])
			},
		},
		{
			name:    "Create order with start_form_number",
			auth0ID: manager.Auth0ID,
			requestBody: map[string]interface{}{
				"fields": map[string]interface{}{
					"customer_name": "Globex",
				},
				"start_form_number": 250,
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, response map[string]interface{}) {
				data := response["data"].(map[string]interface{})
				assert.Equal(t, float64(250), data["form_number"])
			},
		},
		{
			name:    "Fail with missing customer name",
			auth0ID: manager.Auth0ID,
			requestBody: map[string]interface{}{
				"fields": map[string]interface{}{
					"quantity": 5,
				},
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:    "Fail with missing fields object",
			auth0ID: manager.Auth0ID,
			requestBody: map[string]interface{}{
				"start_form_number": 1,
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:    "Fail with user not found",
			auth0ID: "auth0|nonexistent",
			requestBody: map[string]interface{}{
				"fields": map[string]interface{}{
					"customer_name": "Acme",
				},
			},
			expectedStatus: http.StatusNotFound,
			expectedError:  "USER_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.POST("/orders", mockAuthMiddleware(tt.auth0ID), CreateOrder)

			w, response := doJSON(t, router, http.MethodPost, "/orders", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedError != "" {
				assert.False(t, response["success"].(bool))
				assert.Equal(t, tt.expectedError, errorCode(t, response))
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, response)
			}
		})
	}
}

func TestGetOrder(t *testing.T) {
	db := setupTestDB(t)
	manager := seedUser(t, db, "OrderManager")
	order := seedOrder(t, db)

	router := setupTestRouter()
	router.GET("/orders/:id", mockAuthMiddleware(manager.Auth0ID), GetOrder)

	w, response := doJSON(t, router, http.MethodGet, fmt.Sprintf("/orders/%d", order.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "Test Customer", data["customer_name"])

	w, response = doJSON(t, router, http.MethodGet, "/orders/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, response))

	w, response = doJSON(t, router, http.MethodGet, "/orders/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, response))
}

func TestListOrders(t *testing.T) {
	db := setupTestDB(t)
	manager := seedUser(t, db, "OrderManager")

	for i := 1; i <= 3; i++ {
		order := seedOrder(t, db)
		db.Model(order).Update("form_number", i)
	}

	router := setupTestRouter()
	router.GET("/orders", mockAuthMiddleware(manager.Auth0ID), ListOrders)

	w, response := doJSON(t, router, http.MethodGet, "/orders?page=1&per_page=2", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["total"])
	orders := data["orders"].([]interface{})
	assert.Len(t, orders, 2)
	first := orders[0].(map[string]interface{})
	assert.Equal(t, float64(3), first["form_number"])
}

func TestUpdateOrder_RoleFiltering(t *testing.T) {
	db := setupTestDB(t)
	designer := seedUser(t, db, "Designer")
	order := seedOrder(t, db)

	router := setupTestRouter()
	router.PUT("/orders/:id", mockAuthMiddleware(designer.Auth0ID), UpdateOrder)

	w, response := doJSON(t, router, http.MethodPut, fmt.Sprintf("/orders/%d", order.ID), map[string]interface{}{
		"fields": map[string]interface{}{
			"design_specification": "striped",
			"customer_name":        "Hijacked",
		},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "striped", data["design_specification"])
	// Disallowed keys are dropped, not rejected
	assert.Equal(t, "Test Customer", data["customer_name"])
}

func TestDeleteOrder(t *testing.T) {
	db := setupTestDB(t)
	admin := seedUser(t, db, "Admin")
	designer := seedUser(t, db, "Designer")
	order := seedOrder(t, db)

	t.Run("designer forbidden", func(t *testing.T) {
		router := setupTestRouter()
		router.DELETE("/orders/:id", mockAuthMiddleware(designer.Auth0ID), DeleteOrder)

		w, response := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/orders/%d", order.ID), nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "POLICY_DENIED", errorCode(t, response))
	})

	t.Run("admin deletes", func(t *testing.T) {
		router := setupTestRouter()
		router.DELETE("/orders/:id", mockAuthMiddleware(admin.Auth0ID), DeleteOrder)

		w, response := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/orders/%d", order.ID), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, response["success"].(bool))

		var count int64
		db.Model(&models.Order{}).Where("id = ?", order.ID).Count(&count)
		assert.Equal(t, int64(0), count)
	})
}

func TestReplaceOrderValuesEndpoint(t *testing.T) {
	db := setupTestDB(t)
	designer := seedUser(t, db, "Designer")
	clerk := seedUser(t, db, "InvoiceClerk")
	order := seedOrder(t, db)

	router := setupTestRouter()
	router.PUT("/orders/:id/values", mockAuthMiddleware(designer.Auth0ID), ReplaceOrderValues)
	router.GET("/orders/:id/values", mockAuthMiddleware(designer.Auth0ID), ListOrderValues)

	body := map[string]interface{}{
		"values": []map[string]interface{}{
			{"value_index": 1, "value": "crimson"},
			{"value_index": 2, "value": "navy"},
		},
	}
	w, response := doJSON(t, router, http.MethodPut, fmt.Sprintf("/orders/%d/values", order.ID), body)
	assert.Equal(t, http.StatusOK, w.Code)
	values := response["data"].([]interface{})
	assert.Len(t, values, 2)

	w, response = doJSON(t, router, http.MethodGet, fmt.Sprintf("/orders/%d/values", order.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	values = response["data"].([]interface{})
	assert.Len(t, values, 2)
	first := values[0].(map[string]interface{})
	assert.Equal(t, float64(1), first["value_index"])
	assert.Equal(t, "crimson", first["value"])

	// Slot index outside the grid
	w, response = doJSON(t, router, http.MethodPut, fmt.Sprintf("/orders/%d/values", order.ID), map[string]interface{}{
		"values": []map[string]interface{}{{"value_index": 9, "value": "x"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, response))

	w, response = doJSON(t, router, http.MethodPut, "/orders/9999/values", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, response))

	// Roles without the coloring group cannot write the grid
	denied := setupTestRouter()
	denied.PUT("/orders/:id/values", mockAuthMiddleware(clerk.Auth0ID), ReplaceOrderValues)
	w, response = doJSON(t, denied, http.MethodPut, fmt.Sprintf("/orders/%d/values", order.ID), body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "POLICY_DENIED", errorCode(t, response))
}
