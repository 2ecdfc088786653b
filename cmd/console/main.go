package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/mabitter/tractor-sub000/pkg/archive"
	"github.com/mabitter/tractor-sub000/pkg/config"
	"github.com/mabitter/tractor-sub000/pkg/log"
	"github.com/mabitter/tractor-sub000/pkg/metrics"
	"github.com/mabitter/tractor-sub000/pkg/registry"
	"github.com/mabitter/tractor-sub000/pkg/storage"
	"github.com/mabitter/tractor-sub000/pkg/types"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"google.golang.org/protobuf/reflect/protoreflect"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// cfg is loaded before any subcommand runs
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "console",
	Short: "Console - operator console for the tractor event bus",
	Long: `Console connects to a tractor's event bus, buffers the typed events it
publishes and serves them for plotting and inspection. Recorded logs can be
replayed from a local file, a tar archive or the blob store.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Console version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	addGlobalFlags(rootCmd.PersistentFlags())

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(dataCmd)
}

func addGlobalFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", "", "YAML configuration file")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Log as JSON")
	flags.String("data-dir", "", "Directory for the local database")
	flags.String("vehicle", "", "WebSocket URL of the vehicle event bus")
	flags.String("blobstore", "", "Base URL of the blob store")
	flags.StringSlice("descriptors", nil, "FileDescriptorSet files with additional event types")
}

// loadConfig reads the configuration file and applies flag overrides
func loadConfig(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		loaded.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-json") {
		loaded.Log.JSON, _ = flags.GetBool("log-json")
	}
	if flags.Changed("data-dir") {
		loaded.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("vehicle") {
		loaded.Vehicle.URL, _ = flags.GetString("vehicle")
	}
	if flags.Changed("blobstore") {
		loaded.BlobStore.URL, _ = flags.GetString("blobstore")
	}
	if flags.Changed("descriptors") {
		loaded.Descriptors, _ = flags.GetStringSlice("descriptors")
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	cfg = loaded
	log.Init(cfg.Logging())
	metrics.SetVersion(Version)
	return nil
}

// loadRegistry builds the event type registry, adding any configured
// descriptor sets to the compiled-in types
func loadRegistry() (*registry.Registry, error) {
	if len(cfg.Descriptors) == 0 {
		return registry.Default(), nil
	}

	b := registry.NewBuilder().Add(registry.Known()...)
	for _, path := range cfg.Descriptors {
		fds, err := registry.LoadDescriptorSetFile(path)
		if err != nil {
			return nil, err
		}
		b.AddFileDescriptorSet(fds)
	}
	reg, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build type registry: %w", err)
	}
	return reg, nil
}

// parseTypeID accepts a type URL or a bare message name
// ("google.protobuf.DoubleValue") and checks it is registered
func parseTypeID(reg *registry.Registry, s string) (types.TypeID, error) {
	id := types.TypeID(s)
	if !strings.Contains(s, "/") {
		id = types.TypeIDForName(protoreflect.FullName(s))
	}
	if _, ok := reg.Lookup(id); !ok {
		return "", fmt.Errorf("unknown event type %q", s)
	}
	return id, nil
}

// openArchive returns the tar file at tarPath, or the configured blob
// store when tarPath is empty. Blob store fetches go through db when it is
// non-nil.
func openArchive(tarPath string, db *storage.BoltStore) (archive.Archive, error) {
	if tarPath != "" {
		data, err := os.ReadFile(tarPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read archive: %w", err)
		}
		ta, err := archive.NewTarArchive(data)
		if err != nil {
			return nil, err
		}
		return ta, nil
	}

	if cfg.BlobStore.URL == "" {
		return nil, fmt.Errorf("no blob store configured; use --blobstore or --tar")
	}
	a, err := archive.NewHTTPArchive(cfg.BlobStore.URL)
	if err != nil {
		return nil, err
	}
	if cfg.BlobStore.Timeout > 0 {
		a.WithTimeout(cfg.BlobStore.Timeout)
	}
	for k, v := range cfg.BlobStore.Headers {
		a.WithHeader(k, v)
	}

	if db == nil {
		return a, nil
	}
	return archive.NewCachedArchive(a, db, cfg.BlobStore.URL), nil
}

// openCache opens the local database for blob caching when enabled. A
// database locked by a running session only disables the cache.
func openCache() *storage.BoltStore {
	if !cfg.BlobStore.Cache {
		return nil
	}
	db, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		log.Logger.Warn().Err(err).Msg("Blob cache unavailable")
		return nil
	}
	return db
}

func vehicleHeader() http.Header {
	h := make(http.Header)
	for k, v := range cfg.Vehicle.Headers {
		h.Set(k, v)
	}
	return h
}
