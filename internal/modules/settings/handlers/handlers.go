// Package handlers provides HTTP handlers for dashboard settings.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aristath/trendtrack/internal/domain"
	"github.com/aristath/trendtrack/internal/modules/settings"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CredentialRefresher reloads whatever depends on the market data credential.
type CredentialRefresher interface {
	Initialize(ctx context.Context) error
}

// Handler provides HTTP handlers for settings endpoints
type Handler struct {
	service             *settings.Service
	credentialRefresher CredentialRefresher
	log                 zerolog.Logger
}

// NewHandler creates a new settings handler
func NewHandler(service *settings.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "settings").Logger(),
	}
}

// SetCredentialRefresher sets the component re-initialized after a Finnhub key change
func (h *Handler) SetCredentialRefresher(refresher CredentialRefresher) {
	h.credentialRefresher = refresher
}

// HandleGetAll handles GET /api/settings
func (h *Handler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.GetAll())
}

// HandleUpdate handles PUT /api/settings/{key}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "Key is required")
		return
	}

	var update settings.SettingUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.Set(key, update.Value); err != nil {
		h.log.Warn().Err(err).Str("key", key).Msg("Failed to update setting")
		writeError(w, domain.HTTPStatus(err), err.Error())
		return
	}

	if key == settings.KeyFinnhubAPIKey && h.credentialRefresher != nil {
		if err := h.credentialRefresher.Initialize(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("Failed to reload watchlist after credential update")
		} else {
			h.log.Info().Msg("Watchlist reloaded after credential update")
		}
	}

	all := h.service.GetAll()
	writeJSON(w, http.StatusOK, map[string]interface{}{key: all[key]})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
