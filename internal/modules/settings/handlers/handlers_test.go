package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/trendtrack/internal/domain"
	"github.com/aristath/trendtrack/internal/modules/settings"
	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRefresher struct {
	calls int
}

func (r *recordingRefresher) Initialize(context.Context) error {
	r.calls++
	return nil
}

func setupHandler(t *testing.T) (*Handler, *settings.Service, chi.Router) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE settings (key TEXT PRIMARY KEY, value TEXT NOT NULL, description TEXT, updated_at INTEGER NOT NULL)`)
	require.NoError(t, err)

	svc := settings.NewService(settings.NewRepository(db, zerolog.Nop()), zerolog.Nop())
	require.NoError(t, svc.Load(domain.PersistedConfig{}))

	h := NewHandler(svc, zerolog.Nop())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return h, svc, r
}

func TestHandleGetAll(t *testing.T) {
	_, svc, r := setupHandler(t)
	require.NoError(t, svc.SetFinnhubAPIKey("secret-key-9876"))

	req := httptest.NewRequest(http.MethodGet, "/settings/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "***********9876", body[settings.KeyFinnhubAPIKey])
	assert.Equal(t, domain.DefaultGeminiModel, body[settings.KeyGeminiModel])
}

func TestHandleUpdate_FinnhubKeyReloadsWatchlist(t *testing.T) {
	h, svc, r := setupHandler(t)
	refresher := &recordingRefresher{}
	h.SetCredentialRefresher(refresher)

	req := httptest.NewRequest(http.MethodPut, "/settings/finnhub_api_key", strings.NewReader(`{"value":"abcd1234"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abcd1234", svc.FinnhubAPIKey())
	assert.Equal(t, 1, refresher.calls)
	assert.JSONEq(t, `{"finnhub_api_key":"****1234"}`, w.Body.String())
}

func TestHandleUpdate_ModelDoesNotReload(t *testing.T) {
	h, _, r := setupHandler(t)
	refresher := &recordingRefresher{}
	h.SetCredentialRefresher(refresher)

	req := httptest.NewRequest(http.MethodPut, "/settings/gemini_model", strings.NewReader(`{"value":"gemini-2.5-pro"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, refresher.calls)
}

func TestHandleUpdate_Errors(t *testing.T) {
	_, _, r := setupHandler(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"invalid json", "/settings/gemini_model", `{`, http.StatusBadRequest},
		{"blank finnhub key", "/settings/finnhub_api_key", `{"value":"  "}`, http.StatusBadRequest},
		{"unknown key", "/settings/trading_mode", `{"value":"live"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}
