/*
Package health probes the services the console depends on.

HTTPChecker covers the blob store and TCPChecker the vehicle bridge (a
WebSocket endpoint with no health route of its own, so reachability of its
port is the best signal). GRPCChecker asks another console's gRPC health
service through pkg/client.

A Monitor runs a Checker on an interval and publishes the outcome through
metrics.UpdateComponent, so a failing dependency shows up on /health
without any extra wiring:

	probe, _ := health.NewTCPCheckerForURL(cfg.Vehicle.URL)
	m := health.NewMonitor("vehicle", probe, health.DefaultConfig())
	go m.Run(ctx)

A dependency is reported unhealthy only after Config.Retries consecutive
failures; a single success restores it.
*/
package health
