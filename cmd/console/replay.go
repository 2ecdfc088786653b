package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mabitter/tractor-sub000/pkg/api"
	"github.com/mabitter/tractor-sub000/pkg/buffer"
	"github.com/mabitter/tractor-sub000/pkg/events"
	"github.com/mabitter/tractor-sub000/pkg/metrics"
	"github.com/mabitter/tractor-sub000/pkg/panel"
	"github.com/mabitter/tractor-sub000/pkg/registry"
	"github.com/mabitter/tractor-sub000/pkg/storage"
	"github.com/mabitter/tractor-sub000/pkg/visualization"
	"github.com/mabitter/tractor-sub000/pkg/visualizer"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"
)

var replayCmd = &cobra.Command{
	Use:   "replay PATH",
	Short: "Load a recorded log and summarize its streams",
	Long: `Load a recorded event log into the buffer and print the streams it
contains. PATH is looked up in the blob store unless --tar or --local is
given. With --type the events are filtered the way a panel would show them.

Examples:
  # Summarize a log from the blob store
  console replay logs/2021-04-02/events.log

  # Show throttled GPS samples from a log inside a dataset archive
  console replay events.log --tar dataset.tar.gz \
    --type google.protobuf.DoubleValue --filter '^gps/' --throttle 100ms --events

  # Serve the loaded log over the HTTP API
  console replay events.log --local --http-addr 127.0.0.1:9090`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().String("tar", "", "Read PATH from this tar archive (optionally compressed)")
	replayCmd.Flags().Bool("local", false, "PATH is a log file on disk")
	replayCmd.Flags().String("type", "", "Select streams of this event type")
	replayCmd.Flags().String("filter", "", "Regular expression on stream names (with --type)")
	replayCmd.Flags().Duration("throttle", 0, "Minimum spacing between selected samples")
	replayCmd.Flags().Float64("start", 0, "Start of the selected range, as a fraction of the log")
	replayCmd.Flags().Float64("end", 1, "End of the selected range, as a fraction of the log")
	replayCmd.Flags().Bool("events", false, "Print selected events as JSON")
	replayCmd.Flags().String("http-addr", "", "Serve the loaded log over HTTP until interrupted")
}

func runReplay(cmd *cobra.Command, args []string) error {
	path := args[0]
	tarPath, _ := cmd.Flags().GetString("tar")
	local, _ := cmd.Flags().GetBool("local")
	typeName, _ := cmd.Flags().GetString("type")
	filter, _ := cmd.Flags().GetString("filter")
	throttle, _ := cmd.Flags().GetDuration("throttle")
	start, _ := cmd.Flags().GetFloat64("start")
	end, _ := cmd.Flags().GetFloat64("end")
	printEvents, _ := cmd.Flags().GetBool("events")
	httpAddr, _ := cmd.Flags().GetString("http-addr")

	// Replay sessions have no transport
	metrics.SetCriticalComponents("store", "api")

	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	store := visualization.New(events.NewEmitter(), reg, visualizer.Default(), cfg.Visualization())

	loadErr := loadReplay(cmd.Context(), store, reg, path, tarPath, local)
	if loadErr != nil {
		if streams, _ := store.Stats(); streams == 0 {
			return loadErr
		}
		fmt.Printf("⚠ %v\n", loadErr)
	}
	metrics.UpdateComponent("store", true, path)

	if !store.SetThrottle(throttle) {
		return fmt.Errorf("invalid throttle %s", throttle)
	}
	if !store.SetBufferRangeEnd(end) || !store.SetBufferRangeStart(start) {
		return fmt.Errorf("invalid range %.3f-%.3f", start, end)
	}

	printSummary(store.Summary())

	if typeName != "" {
		if err := printSelection(store, reg, typeName, filter, printEvents); err != nil {
			return err
		}
	}

	if httpAddr == "" {
		return nil
	}
	return serveReplay(store, httpAddr)
}

// loadReplay fills the store from a local file or an archive. A partial
// load leaves the events read so far in the store and returns the error.
func loadReplay(ctx context.Context, store *visualization.Store, reg *registry.Registry, path, tarPath string, local bool) error {
	if local {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open log: %w", err)
		}
		defer f.Close()

		sb := buffer.NewStreamingBuffer(reg)
		readErr := sb.ReadLog(f)
		if data, start, end, ok := sb.Drain(); ok {
			if err := store.ReplaceBuffer(data, start, end); err != nil {
				return err
			}
		}
		return readErr
	}

	var db *storage.BoltStore
	if tarPath == "" {
		if db = openCache(); db != nil {
			defer db.Close()
		}
	}
	a, err := openArchive(tarPath, db)
	if err != nil {
		return err
	}
	return store.LoadLog(ctx, a, path)
}

func printSummary(sum visualization.Summary) {
	if sum.Start == nil {
		fmt.Println("Log is empty")
		return
	}

	fmt.Printf("Log: %s - %s (%s)\n",
		sum.Start.Format(time.RFC3339Nano), sum.End.Format(time.RFC3339Nano), sum.End.Sub(*sum.Start))
	fmt.Println()
	fmt.Printf("%-48s %-40s %8s\n", "STREAM", "TYPE", "EVENTS")
	for _, ts := range sum.Types {
		for _, s := range ts.Streams {
			fmt.Printf("%-48s %-40s %8d\n", s.Name, ts.TypeID.MessageName(), s.Events)
		}
	}
}

// printSelection shows what a panel with the given selection would plot
func printSelection(store *visualization.Store, reg *registry.Registry, typeName, filter string, printEvents bool) error {
	id, err := parseTypeID(reg, typeName)
	if err != nil {
		return err
	}

	p := store.AddPanel()
	err = store.UpdatePanel(p.ID, func(p *panel.Panel) error {
		p.SetEventType(id)
		return p.SetTagFilter(filter)
	})
	if err != nil {
		return err
	}

	streams, err := store.PanelStreams(p.ID)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Selected %d streams of %s\n", len(streams), id.MessageName())
	for _, name := range streams.Names() {
		seq := streams[name]
		fmt.Printf("  %s: %d events\n", name, len(seq))
		if !printEvents {
			continue
		}
		for _, ev := range seq {
			data, err := protojson.Marshal(ev.Value)
			if err != nil {
				return fmt.Errorf("failed to encode event: %v", err)
			}
			fmt.Printf("    %d %s\n", ev.Stamp, data)
		}
	}
	return nil
}

func serveReplay(store *visualization.Store, addr string) error {
	server := api.NewHTTPServer(store, nil)
	access, err := api.NewMiddleware(cfg.Access())
	if err != nil {
		return err
	}
	server.Use(access.Wrap)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(addr)
	}()

	fmt.Println()
	fmt.Printf("Serving log on http://%s. Press Ctrl+C to stop.\n", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
