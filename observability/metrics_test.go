package observability

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Handler_Exposes_Series(t *testing.T) {
	req := require.New(t)
	metrics := NewMetrics()

	// Given a few recorded samples
	metrics.AuthTotal.WithLabelValues(OutcomeSuccess).Inc()
	metrics.DeliveriesTotal.WithLabelValues(OutcomeDropped).Add(2)
	metrics.ConnectionsActive.Set(3)

	// When the endpoint is scraped
	recorder := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(recorder.Body)
	req.NoError(err)

	// Then every series is present
	req.Contains(string(body), `chat_auth_total{outcome="success"} 1`)
	req.Contains(string(body), `chat_broadcast_deliveries_total{outcome="dropped"} 2`)
	req.Contains(string(body), "chat_connections_active 3")
	req.Equal(float64(2), testutil.ToFloat64(metrics.DeliveriesTotal.WithLabelValues(OutcomeDropped)))
}
