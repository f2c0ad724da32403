// Package metrics exposes collection health over HTTP: prometheus
// counters for cycles and per-feed ingests on /metrics, and a small
// JSON health endpoint carrying the latest cycle summary.
package metrics
