package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/FCHEHIDI/lb-analytics/internal/generator"
	"github.com/FCHEHIDI/lb-analytics/internal/logger"
	"github.com/FCHEHIDI/lb-analytics/pkg/config"
)

// loadgen writes a synthetic telemetry dataset to disk without touching the
// warehouse. Useful for seeding test environments and eyeballing the
// traffic shape.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	numRequests := flag.Int("requests", 10000, "number of request log entries")
	hours := flag.Int("hours", 24, "time span in hours")
	servers := flag.Int("servers", 20, "number of backend servers")
	interval := flag.Int("interval", 60, "metric sample interval in minutes")
	seed := flag.Int64("seed", 0, "random seed (0 = time-based)")
	outDir := flag.String("out", "./data", "output directory")
	format := flag.String("format", "csv", "output format: csv or json")
	flag.Parse()

	if *format != "csv" && *format != "json" {
		return fmt.Errorf("unsupported format %q", *format)
	}

	logger.Setup("info", "development")

	gen := generator.New(config.GeneratorConfig{
		NumServers:      *servers,
		IntervalMinutes: *interval,
		Seed:            *seed,
	})

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	requests := gen.GenerateRequests(*numRequests, *hours)
	metrics := gen.GenerateServerMetrics(*hours, *interval)

	switch *format {
	case "csv":
		if err := generator.WriteRequestsCSV(filepath.Join(*outDir, "request_logs.csv"), requests); err != nil {
			return err
		}
		if err := generator.WriteMetricsCSV(filepath.Join(*outDir, "server_metrics.csv"), metrics); err != nil {
			return err
		}
	case "json":
		if err := generator.WriteJSON(filepath.Join(*outDir, "request_logs.json"), requests); err != nil {
			return err
		}
		if err := generator.WriteJSON(filepath.Join(*outDir, "server_metrics.json"), metrics); err != nil {
			return err
		}
	}

	logger.Infof("Wrote %d request records and %d metric samples to %s",
		len(requests), len(metrics), *outDir)
	return nil
}
