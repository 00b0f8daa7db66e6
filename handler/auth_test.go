package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/config"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/service"
)

func TestAuthHandlerLogin(t *testing.T) {
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:        "test-secret",
			TokenExpireHours: 24,
		},
		Users: []config.User{
			{ID: "user-1", Username: "testuser", Password: "testpass", OrganizationID: "org-1"},
		},
	}

	handler := NewAuthHandler(cfg, newTestManager())

	tests := []struct {
		name           string
		body           map[string]string
		expectedStatus int
	}{
		{
			name:           "valid login",
			body:           map[string]string{"username": "testuser", "password": "testpass"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid username",
			body:           map[string]string{"username": "wronguser", "password": "testpass"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid password",
			body:           map[string]string{"username": "testuser", "password": "wrongpass"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing fields",
			body:           map[string]string{"username": "testuser"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.POST("/login", handler.Login)

			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest("POST", "/login", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			if tt.expectedStatus == http.StatusOK {
				var response LoginResponse
				if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
					t.Errorf("Failed to parse response: %v", err)
				}
				if response.Token == "" {
					t.Error("Expected token in response")
				}
				if response.UserID != "user-1" {
					t.Errorf("Expected user id 'user-1', got '%s'", response.UserID)
				}
				if response.OrganizationID != "org-1" {
					t.Errorf("Expected org 'org-1', got '%s'", response.OrganizationID)
				}
			}
		})
	}
}

func TestAuthHandlerGetCurrentUser(t *testing.T) {
	cfg := &config.Config{}
	manager := newTestManager("admin-1")
	handler := NewAuthHandler(cfg, manager)

	router := gin.New()
	router.Use(asUser("admin-1", "org-cca", true))
	router.GET("/auth/me", handler.GetCurrentUser)

	req := httptest.NewRequest("GET", "/auth/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["user_id"] != "admin-1" {
		t.Errorf("Expected admin-1, got %v", resp["user_id"])
	}
	if resp["effective_organization_id"] != "org-cca" {
		t.Errorf("Expected own org, got %v", resp["effective_organization_id"])
	}
	if _, ok := resp["impersonation"]; ok {
		t.Error("Expected no impersonation state")
	}

	// The effective org follows an active org impersonation.
	if err := manager.StartOrgImpersonation(context.Background(), service.Actor{ID: "admin-1"}, "org-9", "Acme", "support ticket"); err != nil {
		t.Fatalf("Failed to start impersonation: %v", err)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/auth/me", nil))
	resp = map[string]any{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["effective_organization_id"] != "org-9" {
		t.Errorf("Expected impersonated org, got %v", resp["effective_organization_id"])
	}
	if _, ok := resp["impersonation"]; !ok {
		t.Error("Expected impersonation state in response")
	}
}
