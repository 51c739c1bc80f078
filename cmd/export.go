package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/config"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/export"
)

var (
	exportFormat string
	exportOutput string
	importInput  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored queries to JSON, CSV or PDF",
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import stored queries from a JSON export",
	RunE:  runImport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "export format (json, csv or pdf)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)

	importCmd.Flags().StringVarP(&importInput, "input", "i", "", "JSON export file to import")
	_ = importCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	setupLogging(logFormat)

	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	records, err := s.List(context.Background())
	if err != nil {
		return fmt.Errorf("listing queries: %w", err)
	}

	data, err := export.Export(records, format)
	if err != nil {
		return err
	}

	if exportOutput == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(exportOutput, data, 0644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	slog.Info("export written", "path", exportOutput, "format", format, "records", len(records))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(logFormat)

	data, err := os.ReadFile(importInput)
	if err != nil {
		return fmt.Errorf("reading import file: %w", err)
	}
	records, err := export.Import(data, export.FormatJSON)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	ctx := context.Background()
	imported := 0
	for i := range records {
		if err := s.Create(ctx, &records[i]); err != nil {
			slog.Warn("skipping record", "id", records[i].ID, "error", err)
			continue
		}
		imported++
	}

	slog.Info("import complete", "imported", imported, "skipped", len(records)-imported)
	return nil
}
