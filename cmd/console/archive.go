package main

import (
	"fmt"
	"os"

	"github.com/mabitter/tractor-sub000/pkg/archive"
	"github.com/mabitter/tractor-sub000/pkg/storage"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"
)

// Archive commands
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Browse resources in the blob store or a tar archive",
}

var archiveLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List archive entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		tarPath, _ := cmd.Flags().GetString("tar")

		a, err := openArchive(tarPath, nil)
		if err != nil {
			return err
		}
		entries, err := a.GetFileInfo(cmd.Context())
		if err != nil {
			return err
		}

		for _, e := range entries {
			kind := "-"
			if e.IsDir {
				kind = "d"
			}
			modTime := ""
			if !e.ModTime.IsZero() {
				modTime = e.ModTime.Format("2006-01-02 15:04")
			}
			fmt.Printf("%s %10d %-16s %s\n", kind, e.Size, modTime, e.Name)
		}
		return nil
	},
}

var archiveCatCmd = &cobra.Command{
	Use:   "cat PATH",
	Short: "Print an archive entry",
	Long: `Print the entry at PATH. With --content-type the entry is decoded as a
typed resource and printed as JSON, e.g.

  console archive cat calibration/result.json \
    --content-type 'application/json; type=type.googleapis.com/google.protobuf.Struct'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		tarPath, _ := cmd.Flags().GetString("tar")
		contentType, _ := cmd.Flags().GetString("content-type")
		dataURL, _ := cmd.Flags().GetBool("data-url")

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

		switch {
		case contentType != "":
			reg, err := loadRegistry()
			if err != nil {
				return err
			}
			m, err := archive.LoadResource(cmd.Context(), a, reg, archive.Resource{Path: path, ContentType: contentType})
			if err != nil {
				return err
			}
			out, err := protojson.MarshalOptions{Multiline: true}.Marshal(m)
			if err != nil {
				return err
			}
			fmt.Println(string(out))

		case dataURL:
			u, err := a.GetDataURL(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Println(u)

		default:
			data, err := a.GetBlob(cmd.Context(), path)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		}
		return nil
	},
}

func init() {
	archiveCmd.AddCommand(archiveLsCmd)
	archiveCmd.AddCommand(archiveCatCmd)

	archiveCmd.PersistentFlags().String("tar", "", "Use this tar archive instead of the blob store")
	archiveCatCmd.Flags().String("content-type", "", "Decode as '<application/json|application/protobuf>; type=<type URL>'")
	archiveCatCmd.Flags().Bool("data-url", false, "Print the entry as a base64 data URL")
}
