package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves a Prometheus registry on /metrics.
type MetricsServer struct {
	service  string
	registry *prometheus.Registry
	srv      *http.Server
}

// New creates a registry with Go and process collectors and a server for it on addr.
// Every metric carries a "service" label set to service.
func New(service, addr string) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}

	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return &MetricsServer{
		service:  service,
		registry: registry,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Registerer returns the registerer application metrics should use.
func (m *MetricsServer) Registerer() prometheus.Registerer {
	return prometheus.WrapRegistererWith(prometheus.Labels{"service": m.service}, m.registry)
}

// Handler returns the /metrics handler.
func (m *MetricsServer) Handler() http.Handler {
	return m.srv.Handler
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
