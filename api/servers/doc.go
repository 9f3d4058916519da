/*
Package servers implements HTTP server lifecycle management for the quorum vault.

The Server mounts any number of request handlers next to the health and
diagnostic endpoints:

	GET /livez    liveness probe
	GET /readyz   readiness probe, 503 while draining
	GET /drain    mark the server not ready
	GET /undrain  mark the server ready again
	    /debug    pprof, when EnablePprof is set

Prometheus metrics are served by a separate metrics.MetricsServer on MetricsAddr.

# Example Usage

	metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
	if err != nil {
	    return err
	}

	server, err := servers.New(cfg, metricsSrv, handler)
	if err != nil {
	    return err
	}
	server.RunInBackground()
	defer server.Shutdown()
*/
package servers
