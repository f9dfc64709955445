// Package api hosts the optional status server that runs alongside a mirror
// run. Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/status for queue depth, in-flight attempts, outcome counts and
//     outstanding failures.
package api
