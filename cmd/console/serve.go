package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/api"
	"github.com/mabitter/tractor-sub000/pkg/busstore"
	"github.com/mabitter/tractor-sub000/pkg/eventlog"
	"github.com/mabitter/tractor-sub000/pkg/events"
	"github.com/mabitter/tractor-sub000/pkg/health"
	"github.com/mabitter/tractor-sub000/pkg/metrics"
	"github.com/mabitter/tractor-sub000/pkg/storage"
	"github.com/mabitter/tractor-sub000/pkg/transport"
	"github.com/mabitter/tractor-sub000/pkg/visualization"
	"github.com/mabitter/tractor-sub000/pkg/visualizer"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a live session against the vehicle",
	Long: `Connect to the vehicle's event bus and stream its events into the
buffer. Panels saved in the data directory are restored, and the HTTP and
gRPC APIs serve health, metrics and session state until interrupted.

Examples:
  # Stream from a tractor on the local network
  console serve --vehicle ws://tractor.local:8989/

  # Stream and record everything to a log
  console serve --record field-test.log`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("http-addr", "", "HTTP API address (default from config)")
	serveCmd.Flags().String("grpc-addr", "", "gRPC health address (default from config)")
	serveCmd.Flags().String("record", "", "Also record every event to this log file")
	serveCmd.Flags().Bool("paused", false, "Connect without starting to stream into the buffer")
}

func runServe(cmd *cobra.Command, args []string) error {
	httpAddr, _ := cmd.Flags().GetString("http-addr")
	grpcAddr, _ := cmd.Flags().GetString("grpc-addr")
	recordPath, _ := cmd.Flags().GetString("record")
	paused, _ := cmd.Flags().GetBool("paused")
	if httpAddr == "" {
		httpAddr = cfg.API.HTTPAddr
	}
	if grpcAddr == "" {
		grpcAddr = cfg.API.GRPCAddr
	}
	if cfg.Vehicle.URL == "" {
		return fmt.Errorf("no vehicle configured; use --vehicle")
	}

	fmt.Println("Starting console session...")
	fmt.Printf("  Vehicle: %s\n", cfg.Vehicle.URL)
	fmt.Printf("  Data Directory: %s\n", cfg.DataDir)
	fmt.Println()

	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	db, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		metrics.UpdateComponent("store", false, err.Error())
		return fmt.Errorf("failed to open data directory: %v", err)
	}
	defer db.Close()
	metrics.UpdateComponent("store", true, cfg.DataDir)

	emitter := events.NewEmitter()
	store := visualization.New(emitter, reg, visualizer.Default(), cfg.Visualization())
	if err := store.RestorePanels(db); err != nil {
		return fmt.Errorf("failed to restore panels: %v", err)
	}
	fmt.Printf("✓ Restored %d panels\n", len(store.Panels()))

	bus := busstore.New(emitter, reg, cfg.BusStore.Period)
	bus.Start()
	defer bus.Stop()

	collector := metrics.NewCollector(store, 5*time.Second)
	collector.Start()
	defer collector.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws, err := transport.DialWebSocket(ctx, cfg.Vehicle.URL, vehicleHeader(), emitter)
	if err != nil {
		return fmt.Errorf("failed to connect to vehicle: %v", err)
	}
	emitter.Attach(ws)
	fmt.Println("✓ Connected to vehicle")

	errCh := make(chan error, 3)
	go func() {
		if err := ws.Run(ctx); err != nil {
			errCh <- fmt.Errorf("transport error: %v", err)
		}
	}()

	if recordPath != "" {
		rec, err := eventlog.Record(emitter, recordPath)
		if err != nil {
			return err
		}
		defer func() {
			_ = rec.Close()
			written, skipped := rec.Records()
			fmt.Printf("✓ Recorded %d events to %s (%d skipped)\n", written, recordPath, skipped)
		}()
	}

	if !paused {
		store.ToggleStreaming()
		fmt.Println("✓ Streaming started")
	}
	defer store.StopStreaming()

	// Start API servers in background
	var httpServer *api.HTTPServer
	if httpAddr != "" {
		httpServer = api.NewHTTPServer(store, bus)
		access, err := api.NewMiddleware(cfg.Access())
		if err != nil {
			return err
		}
		httpServer.Use(access.Wrap)
		go access.RunCleanup(ctx, time.Minute)
		go func() {
			if err := httpServer.Start(httpAddr); err != nil {
				errCh <- fmt.Errorf("HTTP API error: %v", err)
			}
		}()
		fmt.Printf("✓ HTTP API on %s\n", httpAddr)
	}

	var grpcServer *api.Server
	if grpcAddr != "" {
		grpcServer = api.NewServer()
		go func() {
			if err := grpcServer.Start(grpcAddr); err != nil {
				errCh <- fmt.Errorf("gRPC API error: %v", err)
			}
		}()
		fmt.Printf("✓ gRPC health on %s\n", grpcAddr)
	}

	if cfg.BlobStore.URL != "" {
		blobs := health.NewHTTPChecker(cfg.BlobStore.URL)
		go health.NewMonitor("blobstore", blobs, health.DefaultConfig()).Run(ctx)
	}
	if probe, err := health.NewTCPCheckerForURL(cfg.Vehicle.URL); err == nil {
		go health.NewMonitor("vehicle", probe, health.DefaultConfig()).Run(ctx)
	}

	fmt.Println()
	fmt.Println("Console is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal or a component failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}

	// Shutdown
	cancel()
	_ = ws.Close()
	if grpcServer != nil {
		grpcServer.Stop()
	}
	if httpServer != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP API: %v", err)
		}
	}

	fmt.Println("✓ Shutdown complete")
	return nil
}
