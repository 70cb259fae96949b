package proxy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartPayload = `{"chart":{"result":[{"timestamp":[1700000000],"indicators":{"quote":[{"close":[189.5]}]}}],"error":null}`

func newTestRouter(t *testing.T, upstream http.HandlerFunc) (http.Handler, *Gateway, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		upstream(w, r)
	}))
	t.Cleanup(srv.Close)

	logger := zerolog.Nop()
	gateway := NewGateway(srv.URL, logger)
	router := NewRouter(RouterConfig{
		Handler: NewHandler(gateway, logger),
		Log:     logger,
	})
	return router, gateway, &calls
}

func get(router http.Handler, target string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func validTarget(symbol string) string {
	return "/api/yahoo-finance/" + symbol + "?period1=1700000000&period2=1700600000&interval=1d"
}

func TestHandleChart_RelaysVerbatim(t *testing.T) {
	seen := make(chan *url.URL, 1)
	router, _, calls := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		seen <- r.URL
		w.Header().Set("Content-Type", "application/json;charset=utf-8")
		_, _ = w.Write([]byte(chartPayload))
	})

	w := get(router, validTarget("AAPL"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, chartPayload, w.Body.String())
	assert.Equal(t, "application/json;charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	upstreamURL := <-seen
	assert.Equal(t, "/AAPL", upstreamURL.Path)
	assert.Equal(t, "interval=1d&period1=1700000000&period2=1700600000", upstreamURL.RawQuery)
}

func TestHandleChart_ValidationRunsBeforeForwarding(t *testing.T) {
	router, _, calls := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartPayload))
	})

	w := get(router, "/api/yahoo-finance/AAPL?period1=20&period2=10&interval=2h")

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))

	var body validationResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "Invalid request parameters", body.Error)
	require.Len(t, body.Details, 2)
	assert.Equal(t, "period1", body.Details[0].Field)
	assert.Equal(t, "interval", body.Details[1].Field)
}

func TestHandleChart_RejectedSymbolIsNotForwarded(t *testing.T) {
	router, _, calls := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartPayload))
	})

	w := get(router, validTarget(";DROP"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))

	var body validationResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Details, 1)
	assert.Equal(t, "symbol", body.Details[0].Field)
}

func TestHandleChart_UpstreamErrorStatus(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusTooManyRequests, http.StatusInternalServerError} {
		t.Run(strconv.Itoa(status), func(t *testing.T) {
			router, _, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"chart":{"error":{"code":"Not Found","description":"secret upstream detail"}}}`))
			})

			w := get(router, validTarget("AAPL"))

			assert.Equal(t, status, w.Code)
			assert.JSONEq(t, `{"error":"Upstream request failed"}`, w.Body.String())
			assert.NotContains(t, w.Body.String(), "secret")
		})
	}
}

func TestHandleChart_Timeout(t *testing.T) {
	router, gateway, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	gateway.timeout = 20 * time.Millisecond

	w := get(router, validTarget("AAPL"))

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.JSONEq(t, `{"error":"Upstream request timed out"}`, w.Body.String())
}

func TestHandleChart_UnreadableBody(t *testing.T) {
	router, _, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		// advertise more bytes than are sent so the read fails
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte(`{"chart":`))
	})

	w := get(router, validTarget("AAPL"))

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHandleChart_TransportFailure(t *testing.T) {
	logger := zerolog.Nop()
	gateway := NewGateway("http://127.0.0.1:1", logger)
	router := NewRouter(RouterConfig{Handler: NewHandler(gateway, logger), Log: logger})

	w := get(router, validTarget("AAPL"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestRouter_Health(t *testing.T) {
	router, _, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {})

	w := get(router, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestRouter_CORS(t *testing.T) {
	router, _, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartPayload))
	})

	allowed := get(router, validTarget("AAPL"), "Origin", "http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", allowed.Header().Get("Access-Control-Allow-Origin"))

	denied := get(router, validTarget("AAPL"), "Origin", "https://evil.example.com")
	assert.Empty(t, denied.Header().Get("Access-Control-Allow-Origin"))
}
