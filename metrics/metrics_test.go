package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuorumMetrics_Counters(t *testing.T) {
	m := NewQuorumMetrics(prometheus.NewRegistry())

	m.IncDocumentsSealed()
	m.IncDocumentsSealed()
	m.IncUnseal(UnsealSuccess)
	m.IncUnseal(UnsealFailure)
	m.IncUnseal(UnsealFailure)
	m.IncMembersAdded()
	m.IncMembersRemoved()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.documentsSealed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.unseals.WithLabelValues(UnsealSuccess)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.unseals.WithLabelValues(UnsealFailure)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.membersAdded))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.membersRemoved))
}

func TestQuorumMetrics_NoOp(t *testing.T) {
	var nilMetrics *QuorumMetrics
	assert.NotPanics(t, func() {
		nilMetrics.IncDocumentsSealed()
		nilMetrics.IncUnseal(UnsealSuccess)
		nilMetrics.IncMembersAdded()
		nilMetrics.IncMembersRemoved()
	})

	unregistered := NewQuorumMetrics(nil)
	assert.NotPanics(t, func() {
		unregistered.IncDocumentsSealed()
		unregistered.IncUnseal(UnsealFailure)
	})
}

func TestQuorumMetrics_RegisterOnce(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewQuorumMetrics(registry)
	assert.NotPanics(t, func() { m.Register(registry) })
}

func TestMetricsServer_Handler(t *testing.T) {
	srv, err := New("quorum-test", "127.0.0.1:0")
	require.NoError(t, err)

	m := NewQuorumMetrics(srv.Registerer())
	m.IncDocumentsSealed()

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `quorum_documents_sealed_total{service="quorum-test"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
