package main

import (
	"fmt"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/client"
	"github.com/mabitter/tractor-sub000/pkg/health"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health of a running console and its dependencies",
	Long: `Query a running console's gRPC health service for each component, then
probe the configured vehicle and blob store directly.`,
	RunE: runStatus,
}

// statusServices are reported in this order; "" is the overall status
var statusServices = []string{"", "transport", "store", "api", "vehicle", "blobstore"}

type probe struct {
	name    string
	checker health.Checker
}

func init() {
	statusCmd.Flags().String("grpc-addr", "", "Address of the console's gRPC API (default from config)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("grpc-addr")
	if addr == "" {
		addr = cfg.API.GRPCAddr
	}
	ctx := cmd.Context()
	healthy := true

	c, err := client.NewClient(addr)
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Printf("Console (%s):\n", addr)
	statuses, err := c.CheckAll(ctx, statusServices...)
	if err != nil {
		fmt.Printf("  ✗ unreachable: %v\n", err)
		healthy = false
	}
	for _, svc := range statusServices {
		st, ok := statuses[svc]
		if !ok || st == healthpb.HealthCheckResponse_SERVICE_UNKNOWN {
			continue
		}
		label := svc
		if label == "" {
			label = "overall"
		}
		serving := st == healthpb.HealthCheckResponse_SERVING
		fmt.Printf("  %s %-10s %s\n", mark(serving), label, st)
		healthy = healthy && serving
	}

	var probes []probe
	if cfg.Vehicle.URL != "" {
		if tcp, err := health.NewTCPCheckerForURL(cfg.Vehicle.URL); err == nil {
			probes = append(probes, probe{"vehicle", tcp})
		}
	}
	if cfg.BlobStore.URL != "" {
		probes = append(probes, probe{"blobstore", health.NewHTTPChecker(cfg.BlobStore.URL)})
	}

	fmt.Println()
	fmt.Println("Dependencies:")
	for _, p := range probes {
		r := p.checker.Check(ctx)
		fmt.Printf("  %s %-10s %s (%s)\n", mark(r.Healthy), p.name, r.Message, r.Duration.Round(time.Millisecond))
		healthy = healthy && r.Healthy
	}

	if !healthy {
		return fmt.Errorf("console is degraded")
	}
	return nil
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
