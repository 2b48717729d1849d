/*
Package api exposes the orchestrator over HTTP: per-level status
queries, manual scheduling commands (pin, exclude, period lock,
user-status toggles), supervisor and operational lifecycle, snapshot
export, health and Prometheus metrics.

Input errors map to 4xx responses, actor-request timeouts to 504, and
an unhealthy asset surfaces through /healthz as 503. Invariant
violations inside the actors are never surfaced here; they only
discard iterations.
*/
package api
