// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command fuzzscan scans a project's test files for fuzz-related metadata.
//
// fuzzscan locates candidate test files in a project tree, parses each with
// tree-sitter, and extracts function and import metadata, flagging entries
// that plausibly relate to fuzz testing. Five grammars are supported:
// C++, C#, Java, Python, and TypeScript.
//
// Usage:
//
//	fuzzscan scan --path /path/to/project --language java
//	fuzzscan scan --path . --language python --pretty
//	fuzzscan serve --port 8080
//
// Example requests against the server:
//
//	# Health check
//	curl http://localhost:8080/v1/scan/health
//
//	# Scan a project
//	curl -X POST http://localhost:8080/v1/scan \
//	  -H "Content-Type: application/json" \
//	  -d '{"project_root": "/path/to/project", "language": "java"}'
//
// Environment:
//
//	FUZZSCAN_LOG_LEVEL    debug|info|warn|error (default info)
//	FUZZSCAN_OTEL_STDOUT  set to 1 to export traces/metrics to stdout
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var rootCmd = &cobra.Command{
	Use:   "fuzzscan",
	Short: "Scan project test files for fuzz-related metadata",
	Long: `fuzzscan locates candidate test files, parses them with tree-sitter,
and extracts function/import metadata with fuzz-relevance flags for
downstream comparative analysis.`,
	SilenceUsage: true,
}

func main() {
	initLogging()

	shutdown, err := initObservability(context.Background())
	if err != nil {
		slog.Warn("observability init failed, continuing without exporters",
			slog.String("error", err.Error()))
	}
	if shutdown != nil {
		defer shutdown()
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogging installs the default slog handler at the level selected by
// FUZZSCAN_LOG_LEVEL.
func initLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("FUZZSCAN_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// initObservability wires OpenTelemetry stdout exporters when
// FUZZSCAN_OTEL_STDOUT is set. Without it the global no-op providers stay
// in place and instrumentation costs nothing.
func initObservability(ctx context.Context) (func(), error) {
	if os.Getenv("FUZZSCAN_OTEL_STDOUT") == "" {
		return nil, nil
	}

	traceExp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp))
	otel.SetTracerProvider(tp)

	metricExp, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("creating stdout metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)))
	otel.SetMeterProvider(mp)

	return func() {
		if err := tp.Shutdown(ctx); err != nil {
			slog.Warn("trace provider shutdown failed", slog.String("error", err.Error()))
		}
		if err := mp.Shutdown(ctx); err != nil {
			slog.Warn("meter provider shutdown failed", slog.String("error", err.Error()))
		}
	}, nil
}
