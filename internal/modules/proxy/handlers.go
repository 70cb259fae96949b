package proxy

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/aristath/trendtrack/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler serves the chart relay endpoint.
type Handler struct {
	gateway *Gateway
	log     zerolog.Logger
}

// NewHandler creates a new relay handler
func NewHandler(gateway *Gateway, log zerolog.Logger) *Handler {
	return &Handler{
		gateway: gateway,
		log:     log.With().Str("handler", "proxy").Logger(),
	}
}

type validationResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details"`
}

// HandleChart handles GET /api/yahoo-finance/{symbol}
// Upstream error detail is never exposed to the caller.
func (h *Handler) HandleChart(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if unescaped, err := url.PathUnescape(symbol); err == nil {
		symbol = unescaped
	}

	params, problems := Validate(symbol, r.URL.Query())
	if len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, validationResponse{
			Error:   "Invalid request parameters",
			Details: problems,
		})
		return
	}

	resp, err := h.gateway.FetchChart(r.Context(), params)
	if err != nil {
		h.writeUpstreamError(w, params, err)
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.Status)
	if _, err := w.Write(resp.Body); err != nil {
		h.log.Debug().Err(err).Msg("Failed to write relayed body")
	}
}

func (h *Handler) writeUpstreamError(w http.ResponseWriter, params ChartParams, err error) {
	log := h.log.With().Str("symbol", params.Symbol).Logger()

	var de *domain.Error
	switch {
	case errors.Is(err, ErrUnreadableBody):
		log.Warn().Err(err).Msg("Upstream body unreadable")
		writeError(w, http.StatusBadGateway, "Invalid upstream response")
	case errors.As(err, &de) && de.Kind == domain.KindUpstream:
		writeError(w, de.Status, "Upstream request failed")
	case domain.IsKind(err, domain.KindTimeout):
		log.Warn().Err(err).Msg("Upstream request timed out")
		writeError(w, http.StatusGatewayTimeout, "Upstream request timed out")
	default:
		log.Error().Err(err).Msg("Relay failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
