// Package api hosts the operator HTTP server for a backfill run. Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /progress and /progress/{month} for per-month run state.
package api
