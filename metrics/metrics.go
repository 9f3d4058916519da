// Package metrics exposes Prometheus counters for quorum operations and the HTTP server
// serving them.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	UnsealSuccess = "success"
	UnsealFailure = "failure"
)

// QuorumMetrics counts quorum operations. A nil *QuorumMetrics or one that was never
// registered is a valid no-op.
type QuorumMetrics struct {
	documentsSealed prometheus.Counter
	unseals         *prometheus.CounterVec
	membersAdded    prometheus.Counter
	membersRemoved  prometheus.Counter

	registerOnce sync.Once
}

// NewQuorumMetrics creates counters registered with registry.
func NewQuorumMetrics(registry prometheus.Registerer) *QuorumMetrics {
	m := &QuorumMetrics{}
	m.Register(registry)
	return m
}

// Register registers the counters with registry. It is a no-op for a nil registry,
// and subsequent calls after the first registration are no-ops.
func (m *QuorumMetrics) Register(registry prometheus.Registerer) {
	if registry == nil {
		return
	}

	m.registerOnce.Do(func() {
		factory := promauto.With(registry)

		m.documentsSealed = factory.NewCounter(prometheus.CounterOpts{
			Name: "quorum_documents_sealed_total",
			Help: "Total number of documents sealed",
		})

		m.unseals = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quorum_unseal_total",
			Help: "Total number of unseal attempts by result",
		}, []string{"result"})

		m.membersAdded = factory.NewCounter(prometheus.CounterOpts{
			Name: "quorum_members_added_total",
			Help: "Total number of members added",
		})

		m.membersRemoved = factory.NewCounter(prometheus.CounterOpts{
			Name: "quorum_members_removed_total",
			Help: "Total number of members deactivated",
		})
	})
}

func (m *QuorumMetrics) IncDocumentsSealed() {
	if m != nil && m.documentsSealed != nil {
		m.documentsSealed.Inc()
	}
}

// IncUnseal counts an unseal attempt. result is UnsealSuccess or UnsealFailure.
func (m *QuorumMetrics) IncUnseal(result string) {
	if m != nil && m.unseals != nil {
		m.unseals.WithLabelValues(result).Inc()
	}
}

func (m *QuorumMetrics) IncMembersAdded() {
	if m != nil && m.membersAdded != nil {
		m.membersAdded.Inc()
	}
}

func (m *QuorumMetrics) IncMembersRemoved() {
	if m != nil && m.membersRemoved != nil {
		m.membersRemoved.Inc()
	}
}
