package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/events"
	"github.com/mabitter/tractor-sub000/pkg/transport"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send NAME TYPE JSON",
	Short: "Publish one event on the vehicle's bus",
	Long: `Publish a typed event on the vehicle's bus. TYPE is a registered event
type (a type URL or a message name) and JSON its payload in protobuf JSON
form. The event is stamped with the current time.

Examples:
  # Ask the program supervisor to start a calibration program
  console send program_supervisor/start google.protobuf.Struct '{"id": "calibrate_apriltag_rig"}'`,
	Args: cobra.ExactArgs(3),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().Duration("timeout", 10*time.Second, "Connection and write timeout")
}

func runSend(cmd *cobra.Command, args []string) error {
	name, typeName, payload := args[0], args[1], args[2]
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if cfg.Vehicle.URL == "" {
		return fmt.Errorf("no vehicle configured; use --vehicle")
	}

	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	id, err := parseTypeID(reg, typeName)
	if err != nil {
		return err
	}
	codec, _ := reg.Lookup(id)
	msg, err := codec.FromJSON([]byte(payload))
	if err != nil {
		return fmt.Errorf("invalid %s payload: %v", id.MessageName(), err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	emitter := events.NewEmitter()
	ws, err := transport.DialWebSocket(ctx, cfg.Vehicle.URL, vehicleHeader(), emitter)
	if err != nil {
		return fmt.Errorf("failed to connect to vehicle: %v", err)
	}
	defer ws.Close()
	emitter.Attach(ws)

	if err := emitter.Send(ctx, name, msg); err != nil {
		return err
	}

	fmt.Printf("✓ Sent %s on %s\n", id.MessageName(), name)
	return nil
}
