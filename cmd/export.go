package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fleetguard/fleetguard/config"
	"github.com/fleetguard/fleetguard/core/store"
	"github.com/fleetguard/fleetguard/pkg/export"
)

var exportFlags struct {
	dir    string
	kind   string
	format string
	out    string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export archived telemetry or commands as CSV or JSON",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFlags.dir, "dir", "", "archive directory (defaults to the configured one)")
	exportCmd.Flags().StringVar(&exportFlags.kind, "kind", "telemetry", "what to export: telemetry or commands")
	exportCmd.Flags().StringVar(&exportFlags.format, "format", "csv", "output format: csv or json")
	exportCmd.Flags().StringVar(&exportFlags.out, "out", "", "output file (defaults to stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	dir := exportFlags.dir
	if dir == "" {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		dir = cfg.Store.Archive.Dir
	}
	if dir == "" {
		return fmt.Errorf("no archive directory configured")
	}

	var w io.Writer = os.Stdout
	if exportFlags.out != "" {
		f, err := os.Create(exportFlags.out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch exportFlags.kind {
	case "telemetry":
		records, err := store.ReadTelemetryArchive(filepath.Join(dir, "telemetry.jsonl"))
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}
		switch exportFlags.format {
		case "json":
			return export.WriteTelemetryJSON(w, records)
		case "csv":
			return export.WriteTelemetryCSV(w, records)
		default:
			return fmt.Errorf("unknown format %q", exportFlags.format)
		}
	case "commands":
		records, err := store.ReadCommandArchive(filepath.Join(dir, "commands.jsonl"))
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}
		switch exportFlags.format {
		case "json":
			return export.WriteCommandsJSON(w, records)
		case "csv":
			return export.WriteCommandsCSV(w, records)
		default:
			return fmt.Errorf("unknown format %q", exportFlags.format)
		}
	default:
		return fmt.Errorf("unknown kind %q", exportFlags.kind)
	}
}
