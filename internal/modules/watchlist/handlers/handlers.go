// Package handlers provides HTTP handlers for the watchlist.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aristath/trendtrack/internal/domain"
	"github.com/aristath/trendtrack/internal/modules/charts"
	"github.com/aristath/trendtrack/internal/modules/watchlist"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for watchlist endpoints
type Handler struct {
	store     *watchlist.Store
	debouncer *watchlist.Debouncer
	log       zerolog.Logger
}

// NewHandler creates a new watchlist handler
func NewHandler(store *watchlist.Store, debouncer *watchlist.Debouncer, log zerolog.Logger) *Handler {
	return &Handler{
		store:     store,
		debouncer: debouncer,
		log:       log.With().Str("handler", "watchlist").Logger(),
	}
}

type addRequest struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

type reorderRequest struct {
	OldIndex int `json:"old_index"`
	NewIndex int `json:"new_index"`
}

type selectRequest struct {
	Symbol string `json:"symbol"`
}

// HandleGetWatchlist handles GET /api/watchlist
func (h *Handler) HandleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// HandleAddStock handles POST /api/watchlist
func (h *Handler) HandleAddStock(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.store.AddStock(r.Context(), req.Symbol, req.Name); err != nil {
		h.fail(w, err, "Failed to add stock")
		return
	}

	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// HandleRemoveStock handles DELETE /api/watchlist/{symbol}
func (h *Handler) HandleRemoveStock(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	if err := h.store.RemoveStock(symbol); err != nil {
		h.fail(w, err, "Failed to remove stock")
		return
	}

	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// HandleReorder handles POST /api/watchlist/reorder
func (h *Handler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.store.Reorder(req.OldIndex, req.NewIndex); err != nil {
		h.fail(w, err, "Failed to reorder watchlist")
		return
	}

	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// HandleSort handles POST /api/watchlist/sort
func (h *Handler) HandleSort(w http.ResponseWriter, r *http.Request) {
	if err := h.store.SortByName(); err != nil {
		h.fail(w, err, "Failed to sort watchlist")
		return
	}

	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// HandleSelect handles PUT /api/watchlist/active
func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.store.SelectSymbol(req.Symbol); err != nil {
		h.fail(w, err, "Failed to select symbol")
		return
	}

	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// HandleGetStats handles GET /api/watchlist/stats
func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats())
}

// HandleLoadHistory handles POST /api/watchlist/history?days=N (or ?range=1W|1M|6M|1Y|All)
func (h *Handler) HandleLoadHistory(w http.ResponseWriter, r *http.Request) {
	days := charts.ParseRange(r.URL.Query().Get("range"))
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	symbol := h.store.ActiveSymbol()
	points, err := h.store.LoadHistory(r.Context(), days)
	if errors.Is(err, watchlist.ErrSuperseded) {
		writeError(w, http.StatusConflict, "Request superseded by a newer selection")
		return
	}
	if err != nil {
		h.fail(w, err, "Failed to load history")
		return
	}
	if points == nil {
		points = []domain.StockDataPoint{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  symbol,
		"days":    days,
		"history": points,
	})
}

// HandleRefresh handles POST /api/watchlist/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	updated, err := h.store.RefreshQuotes(r.Context())
	if err != nil {
		h.fail(w, err, "Failed to refresh quotes")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"updated":   updated,
		"watchlist": h.store.Snapshot(),
	})
}

// HandleSearch handles GET /api/watchlist/search?q=...
// Requests overtaken by a newer query answer with stale=true and no results.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	outcomes := h.debouncer.Submit(r.URL.Query().Get("q"))

	select {
	case outcome := <-outcomes:
		if outcome.Err != nil {
			h.fail(w, outcome.Err, "Symbol search failed")
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	case <-r.Context().Done():
		h.log.Debug().Msg("Search request abandoned by client")
	}
}

// HandleAnalyze handles POST /api/watchlist/analysis
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	text, err := h.store.Analyze(r.Context())
	if err != nil {
		h.fail(w, err, "Analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"symbol":   h.store.ActiveSymbol(),
		"analysis": text,
	})
}

func (h *Handler) fail(w http.ResponseWriter, err error, msg string) {
	status := domain.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg(msg)
	} else {
		h.log.Warn().Err(err).Msg(msg)
	}
	writeError(w, status, userMessage(err))
}

// userMessage returns the message wrapped by a provider upstream error, which
// is already written for the user, and the full error text otherwise.
func userMessage(err error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Kind == domain.KindUpstream && de.Err != nil {
		return de.Err.Error()
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
