package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"latch-backend/services"
)

func TestRespondWithServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", services.ValidationError("Name cannot be empty"), http.StatusBadRequest, `"Name cannot be empty"`},
		{"conflict", services.ConflictError("taken"), http.StatusConflict, `"taken"`},
		{"not found", services.NotFoundError("Driver not found."), http.StatusNotFound, `"Driver not found."`},
		{"store", services.StoreError(errors.New("socket closed"), "Database error"), http.StatusInternalServerError, `"Database error"`},
		{"wrapped", errors.Wrap(services.NotFoundError("gone"), "lookup"), http.StatusNotFound, `"gone"`},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, `"Server Error"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondWithServiceError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
			assert.NotContains(t, w.Body.String(), "socket closed")
		})
	}
}
