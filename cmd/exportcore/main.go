// Package main provides the CLI entry point for exportcore.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clipforge/exportcore"
	"github.com/clipforge/exportcore/internal/config"
	"github.com/clipforge/exportcore/internal/logging"
	"github.com/clipforge/exportcore/internal/reporter"
	"github.com/clipforge/exportcore/internal/util"
)

const appVersion = "0.1.0"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "exportcore",
	Short: "Deterministic frame-accurate video export pipeline",
	Long: `exportcore decodes, composites, encodes and muxes a declarative
ExportSpec into a finished video, with trim-based time remapping and
backpressured decode/encode/mux concurrency.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if verbose {
			level = logging.LevelDebug
		}
		logging.Init(level, os.Stderr)
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(exportCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("exportcore version %s\n", appVersion)
	},
}

var (
	exportInput  string
	exportOutput string
	exportJSON   bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export video from one or more ExportSpec documents",
	Long: `Export runs a single ExportSpec (when --input is a *.json file) or a
whole directory of them (when --input is a directory), writing the finished
output(s) under --output.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportInput, "input", "i", "", "ExportSpec JSON file, or a directory of them")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (single spec) or directory (batch)")
	exportCmd.Flags().BoolVar(&exportJSON, "json", false, "emit NDJSON progress events instead of a terminal UI")
	_ = exportCmd.MarkFlagRequired("input")
	_ = exportCmd.MarkFlagRequired("output")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	info, err := os.Stat(exportInput)
	if err != nil {
		return fmt.Errorf("input path does not exist: %s", exportInput)
	}

	rep := buildReporter()

	if info.IsDir() {
		if err := util.EnsureDirectory(exportOutput); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		batch, err := exportcore.ExportDir(ctx, exportInput, rep)
		if err != nil {
			return err
		}
		if batch.SuccessfulCount != batch.TotalFiles {
			return fmt.Errorf("%d of %d exports failed", batch.TotalFiles-batch.SuccessfulCount, batch.TotalFiles)
		}
		return nil
	}

	spec, err := config.LoadExportSpec(exportInput)
	if err != nil {
		return err
	}

	if err := util.EnsureDirectory(filepath.Dir(exportOutput)); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	blob, err := exportcore.Export(ctx, spec, rep)
	if err != nil {
		return err
	}

	if err := os.WriteFile(exportOutput, blob.Data, 0o644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	return nil
}

func buildReporter() reporter.Reporter {
	if exportJSON {
		return reporter.NewJSONReporter()
	}
	return reporter.NewTerminalReporter()
}
