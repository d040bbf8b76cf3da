package controllers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateUser(t *testing.T) {
	setupTestDB(t)

	tests := []struct {
		name           string
		auth0ID        string
		requestBody    map[string]interface{}
		expectedStatus int
		expectedError  string
	}{
		{
			name:    "Successfully create user",
			auth0ID: "auth0|newuser",
			requestBody: map[string]interface{}{
				"name":  "New User",
				"email": "new@example.com",
				"role":  "Designer",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:    "Fail with duplicate auth0 ID",
			auth0ID: "auth0|newuser",
			requestBody: map[string]interface{}{
				"name":  "Again",
				"email": "again@example.com",
				"role":  "Designer",
			},
			expectedStatus: http.StatusConflict,
			expectedError:  "USER_EXISTS",
		},
		{
			name:    "Fail with unknown role",
			auth0ID: "auth0|other",
			requestBody: map[string]interface{}{
				"name":  "Other",
				"email": "other@example.com",
				"role":  "Overlord",
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "INVALID_ROLE",
		},
		{
			name:    "Fail with invalid email",
			auth0ID: "auth0|bademail",
			requestBody: map[string]interface{}{
				"name":  "Bad Email",
				"email": "not-an-email",
				"role":  "Designer",
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:    "Fail with missing name",
			auth0ID: "auth0|noname",
			requestBody: map[string]interface{}{
				"email": "noname@example.com",
				"role":  "Designer",
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.POST("/users", mockAuthMiddleware(tt.auth0ID), CreateUser)

			w, response := doJSON(t, router, http.MethodPost, "/users", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedError != "" {
				assert.False(t, response["success"].(bool))
				assert.Equal(t, tt.expectedError, errorCode(t, response))
			} else {
				assert.True(t, response["success"].(bool))
				data := response["data"].(map[string]interface{})
				assert.Equal(t, tt.auth0ID, data["auth0_id"])
				assert.Equal(t, tt.requestBody["role"], data["role"])
			}
		})
	}
}

func TestGetCurrentUser(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "OrderManager")

	t.Run("known user", func(t *testing.T) {
		router := setupTestRouter()
		router.GET("/users/me", mockAuthMiddleware(user.Auth0ID), GetCurrentUser)

		w, response := doJSON(t, router, http.MethodGet, "/users/me", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		data := response["data"].(map[string]interface{})
		assert.Equal(t, user.Email, data["email"])
		assert.Equal(t, "OrderManager", data["role"])
	})

	t.Run("profile missing", func(t *testing.T) {
		router := setupTestRouter()
		router.GET("/users/me", mockAuthMiddleware("auth0|stranger"), GetCurrentUser)

		w, response := doJSON(t, router, http.MethodGet, "/users/me", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "USER_NOT_FOUND", errorCode(t, response))
	})
}
