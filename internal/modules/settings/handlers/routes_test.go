package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRegisterRoutes(t *testing.T) {
	_, _, router := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/settings/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/settings/gemini_model", strings.NewReader(`{"value":"gemini-2.5-pro"}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.NotEqual(t, http.StatusNotFound, w.Code)
	assert.NotEqual(t, http.StatusMethodNotAllowed, w.Code)

	assert.NotPanics(t, func() {
		h := NewHandler(nil, zerolog.Nop())
		h.RegisterRoutes(chi.NewRouter())
	})
}
