package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/eventlog"
	"github.com/mabitter/tractor-sub000/pkg/events"
	"github.com/mabitter/tractor-sub000/pkg/transport"
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record FILE",
	Short: "Record the vehicle's event bus to a log file",
	Long: `Record every event published on the vehicle's bus to FILE, in the
length-prefixed log format read by replay. Recording stops on Ctrl+C, when
--duration elapses, or when the vehicle closes the connection.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().Duration("duration", 0, "Stop after this long (0 records until interrupted)")
}

func runRecord(cmd *cobra.Command, args []string) error {
	path := args[0]
	duration, _ := cmd.Flags().GetDuration("duration")
	if cfg.Vehicle.URL == "" {
		return fmt.Errorf("no vehicle configured; use --vehicle")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	emitter := events.NewEmitter()
	ws, err := transport.DialWebSocket(ctx, cfg.Vehicle.URL, vehicleHeader(), emitter)
	if err != nil {
		return fmt.Errorf("failed to connect to vehicle: %v", err)
	}
	defer ws.Close()

	rec, err := eventlog.Record(emitter, path)
	if err != nil {
		return err
	}
	fmt.Printf("Recording %s to %s. Press Ctrl+C to stop.\n", cfg.Vehicle.URL, path)

	runErr := make(chan error, 1)
	go func() { runErr <- ws.Run(ctx) }()

	var timeout <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		timeout = timer.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var stopErr error
	select {
	case <-sigCh:
	case <-timeout:
	case stopErr = <-runErr:
	}

	if err := rec.Close(); err != nil {
		return fmt.Errorf("failed to finish log: %v", err)
	}
	written, skipped := rec.Records()
	fmt.Printf("✓ Recorded %d events (%d skipped)\n", written, skipped)
	return stopErr
}
