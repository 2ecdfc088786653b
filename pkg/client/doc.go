/*
Package client is a small gRPC client for a running console.

The console exposes the standard gRPC health protocol (grpc.health.v1).
The overall status is reported under the empty service name and each
component (transport, store, api, blobstore, vehicle) under its own name,
so a status command or an external supervisor can tell which part of a
session is degraded.

	c, err := client.NewClient("127.0.0.1:9091")
	if err != nil {
		return err
	}
	defer c.Close()

	statuses, err := c.CheckAll(ctx, "", "transport", "store")

Watch streams status changes until the context is canceled.
*/
package client
