/*
Package api exposes a running console to operators and supervisors.

Two listeners are provided:

	HTTPServer  /health /ready /live   component health (pkg/metrics)
	            /metrics               Prometheus scrape endpoint
	            /streams               latest value and rate per bus stream
	            /buffer                summary of the committed buffer
	            /panels                panel layouts
	            /panels/{id}/streams   throttled, range-limited panel data

	Server      grpc.health.v1         overall and per-component status

Everything is read-only: session state changes go through the store, not
the API. Payloads are rendered with protojson.

The gRPC server mirrors the component registry of pkg/metrics every
SyncInterval, so anything reported through metrics.UpdateComponent is also
visible to gRPC health probes and to `console status`. Calls are logged at
debug level and counted in console_api_requests_total by the interceptors.

# Access Control

	access, err := api.NewMiddleware(api.AccessConfig{
		AllowedIPs:        []string{"10.0.0.0/8", "127.0.0.1"},
		RequestsPerSecond: 20,
	})
	server.Use(access.Wrap)

Denied addresses win over allowed ones. Rate limits are per peer address;
idle limiters are dropped by RunCleanup.
*/
package api
