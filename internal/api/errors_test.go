package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(http.StatusBadRequest, ErrCodeInvalidSlot, "Invalid slot")

	if resp.Error != "Bad Request" {
		t.Errorf("Expected Error 'Bad Request', got '%s'", resp.Error)
	}
	if resp.Message != "Invalid slot" {
		t.Errorf("Expected Message 'Invalid slot', got '%s'", resp.Message)
	}
	if resp.Code != ErrCodeInvalidSlot {
		t.Errorf("Expected Code ErrCodeInvalidSlot, got '%s'", resp.Code)
	}
}

func TestValidationError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/lists", nil)

	ValidationError(w, r, "Validation failed", map[string]string{"alias": "Alias is required"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Code != ErrCodeValidation {
		t.Errorf("Expected Code ErrCodeValidation, got '%s'", resp.Code)
	}
	if resp.Fields["alias"] != "Alias is required" {
		t.Errorf("Expected field 'alias' error, got '%s'", resp.Fields["alias"])
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter, r *http.Request)
		status int
		code   ErrorCode
	}{
		{"bad request", func(w http.ResponseWriter, r *http.Request) { BadRequestError(w, r, ErrCodeInvalidJSON, "x") }, http.StatusBadRequest, ErrCodeInvalidJSON},
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) { UnauthorizedError(w, r, "x") }, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"forbidden", func(w http.ResponseWriter, r *http.Request) { ForbiddenError(w, r, "x") }, http.StatusForbidden, ErrCodeForbidden},
		{"not found", func(w http.ResponseWriter, r *http.Request) { NotFoundError(w, r, "x") }, http.StatusNotFound, ErrCodeNotFound},
		{"conflict", func(w http.ResponseWriter, r *http.Request) { ConflictError(w, r, "x") }, http.StatusConflict, ErrCodeConflict},
		{"bad gateway", func(w http.ResponseWriter, r *http.Request) { BadGatewayError(w, r, "x") }, http.StatusBadGateway, ErrCodeBadGateway},
		{"internal", func(w http.ResponseWriter, r *http.Request) { InternalError(w, r, ErrCodeStoredQuery, "x") }, http.StatusInternalServerError, ErrCodeStoredQuery},
		{"too large", func(w http.ResponseWriter, r *http.Request) { RequestTooLargeError(w, r, "x") }, http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/v1/lists/1", nil)
			tt.write(w, r)

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Code != tt.code {
				t.Errorf("Expected Code %s, got '%s'", tt.code, resp.Code)
			}
			if resp.Error != http.StatusText(tt.status) {
				t.Errorf("Expected Error %q, got %q", http.StatusText(tt.status), resp.Error)
			}
		})
	}
}

func TestErrorResponse_IncludesRequestID(t *testing.T) {
	var body ErrorResponse
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError(w, r, "Distribution list not found")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/lists/9", nil))

	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.RequestID == "" {
		t.Error("Expected request_id to be set")
	}
}

func TestErrorResponseContentType(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/lists", nil)

	BadRequestError(w, r, ErrCodeInvalidJSON, "Invalid JSON")

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", contentType)
	}
}
