package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ExposesHTTPServerMetrics(t *testing.T) {
	// given
	metrics, err := NewMetrics("product-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = metrics.Provider.Shutdown(t.Context()) })

	mux := chi.NewRouter()
	mux.Use(Middleware("http-server", metrics.Provider))
	mux.Get("/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// when
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/7", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	scrape := httptest.NewRecorder()
	metrics.Handler.ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// then
	body, err := io.ReadAll(scrape.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, scrape.Code)
	assert.Contains(t, string(body), "http_server_request_duration")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRoutePattern_FallsBackToPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	assert.Equal(t, "/healthz", routePattern(req))
}
