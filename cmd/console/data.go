package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mabitter/tractor-sub000/pkg/panel"
	"github.com/mabitter/tractor-sub000/pkg/storage"
	"github.com/spf13/cobra"
)

// Data commands maintain the local database while no session holds it.
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Inspect and maintain the local database",
}

var dataCacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached blob store resources",
}

var dataCacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cached resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		keys, err := db.ListBlobs()
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		return nil
	},
}

var dataCacheClearCmd = &cobra.Command{
	Use:   "clear [PREFIX]",
	Short: "Remove cached resources, optionally only those under PREFIX",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		_, err = clearCache(cmd.OutOrStdout(), db, prefix, dryRun)
		return err
	},
}

var dataPanelsCmd = &cobra.Command{
	Use:   "panels",
	Short: "Manage saved panel layouts",
}

var dataPanelsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List saved panel layouts",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		layouts, err := db.ListPanels()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-36s %-48s %-20s %s\n", "ID", "TYPE", "FILTER", "CREATED")
		for _, l := range layouts {
			fmt.Fprintf(out, "%-36s %-48s %-20s %s\n",
				l.ID, l.TypeID, l.TagFilter, l.Created.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var dataPanelsExportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write saved panel layouts to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := exportPanels(db, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d panels to %s\n", n, args[0])
		return nil
	},
}

var dataPanelsImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load panel layouts from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := importPanels(db, args[0], dryRun)
		if err != nil {
			return err
		}
		if dryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "[DRY RUN] Would import %d panels from %s\n", n, args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d panels from %s\n", n, args[0])
		return nil
	},
}

var dataBackupCmd = &cobra.Command{
	Use:   "backup [FILE]",
	Short: "Copy the local database (default: <data-dir>/console.db.backup)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		path := filepath.Join(cfg.DataDir, storage.DatabaseFile+".backup")
		if len(args) == 1 {
			path = args[0]
		}
		if err := db.Backup(path); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Backup written to %s\n", path)
		return nil
	},
}

func init() {
	dataCacheCmd.AddCommand(dataCacheLsCmd)
	dataCacheCmd.AddCommand(dataCacheClearCmd)
	dataPanelsCmd.AddCommand(dataPanelsLsCmd)
	dataPanelsCmd.AddCommand(dataPanelsExportCmd)
	dataPanelsCmd.AddCommand(dataPanelsImportCmd)

	dataCmd.AddCommand(dataCacheCmd)
	dataCmd.AddCommand(dataPanelsCmd)
	dataCmd.AddCommand(dataBackupCmd)

	dataCacheClearCmd.Flags().Bool("dry-run", false, "Show what would be removed without making changes")
	dataPanelsImportCmd.Flags().Bool("dry-run", false, "Validate the file without making changes")
}

// openDatabase opens the local database, failing when it does not exist yet
func openDatabase() (*storage.BoltStore, error) {
	path := filepath.Join(cfg.DataDir, storage.DatabaseFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found at %s", path)
	}
	db, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open database (is a session running?): %w", err)
	}
	return db, nil
}

func clearCache(out io.Writer, db storage.Store, prefix string, dryRun bool) (int, error) {
	keys, err := db.ListBlobs()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if dryRun {
			fmt.Fprintf(out, "[DRY RUN] Would remove %s\n", k)
		} else if err := db.DeleteBlob(k); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", k, err)
		}
		removed++
	}

	if !dryRun {
		fmt.Fprintf(out, "✓ Removed %d cached resources\n", removed)
	}
	return removed, nil
}

func exportPanels(db storage.Store, path string) (int, error) {
	layouts, err := db.ListPanels()
	if err != nil {
		return 0, err
	}
	if layouts == nil {
		layouts = []*panel.Layout{}
	}
	data, err := json.MarshalIndent(layouts, "", "  ")
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return len(layouts), nil
}

// importPanels upserts every layout in the file. Layouts without an ID are
// rejected before anything is written.
func importPanels(db storage.Store, path string, dryRun bool) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var layouts []*panel.Layout
	if err := json.Unmarshal(data, &layouts); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for i, l := range layouts {
		if l == nil || l.ID == "" {
			return 0, fmt.Errorf("%s: layout %d has no id", path, i)
		}
	}
	if dryRun {
		return len(layouts), nil
	}
	for _, l := range layouts {
		if err := db.SavePanel(l); err != nil {
			return 0, fmt.Errorf("failed to save panel %s: %w", l.ID, err)
		}
	}
	return len(layouts), nil
}
