// Package metrics defines and registers the Prometheus collectors exposed
// by the job-manager event engine: batch-commit throughput and latency,
// the running-jobs gauge, per-state job counts, and plugin callback
// failures. Collectors are registered at package init and exposed via
// Handler for scraping.
package metrics
