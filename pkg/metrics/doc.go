/*
Package metrics provides Prometheus metrics and health reporting for the console.

Metrics are package-level collectors registered with the default Prometheus
registry in init, and exposed over HTTP by Handler. Core packages update
them directly; nothing in the core depends on a scrape actually happening.

# Metrics Catalog

Bus:

	console_envelopes_emitted_total{type_id}   counter
	console_envelopes_dropped_total{filter}    counter (channel subscribers only)
	console_decode_failures_total{reason}      counter (unknown_type, malformed)

Buffer:

	console_buffer_streams                     gauge   (via Collector)
	console_buffer_events                      gauge   (via Collector)
	console_events_evicted_total               counter
	console_flush_duration_seconds             histogram

Replay and resources:

	console_log_records_read_total             counter
	console_resource_fetches_total{backend, result}
	console_stream_events_per_snapshot{stream} gauge   (bus store)

API:

	console_api_requests_total{method, code}   counter (gRPC interceptor)
	console_api_rejected_total{reason}         counter (access, rate_limit)

# Timer Helper

	timer := metrics.NewTimer()
	store.Flush()
	timer.ObserveDuration(metrics.FlushDuration)

# Health

UpdateComponent records per-component health. GetHealth is unhealthy as
soon as any component is; GetReadiness additionally requires every
critical component (transport, store and api by default) to have
registered. Replay sessions call SetCriticalComponents without the
transport.
*/
package metrics
