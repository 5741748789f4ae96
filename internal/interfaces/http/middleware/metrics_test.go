package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestHTTPMetricsWithMeter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("records request metrics", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		meter := provider.Meter("http.server")

		router := gin.New()
		router.Use(HTTPMetricsWithMeter(meter, true))
		router.GET("/invoices/:id", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})

		req := httptest.NewRequest("GET", "/invoices/123", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(context.Background(), &rm))

		names := map[string]bool{}
		for _, scope := range rm.ScopeMetrics {
			for _, m := range scope.Metrics {
				names[m.Name] = true
			}
		}
		assert.True(t, names["http_server_request_total"])
		assert.True(t, names["http_server_request_duration_seconds"])
		assert.True(t, names["http_server_response_size_bytes"])
	})

	t.Run("disabled middleware is a no-op", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		meter := provider.Meter("http.server")

		router := gin.New()
		router.Use(HTTPMetricsWithMeter(meter, false))
		router.GET("/quotes", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		req := httptest.NewRequest("GET", "/quotes", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(context.Background(), &rm))
		assert.Empty(t, rm.ScopeMetrics)
	})
}

func TestHTTPMetricsUnmatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("http.server")

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(meter, true))

	req := httptest.NewRequest("GET", "/nowhere", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	// Requests outside the route table are recorded under a single
	// "unknown" route so cardinality stays bounded
	found := false
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "http_server_request_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				if route, ok := dp.Attributes.Value("http.route"); ok {
					assert.Equal(t, "unknown", route.AsString())
					found = true
				}
			}
		}
	}
	assert.True(t, found)
}
