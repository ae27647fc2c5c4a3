// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/fuzzscan/services/scan"
)

// Flag values for the scan command.
var (
	scanPath        string
	scanLanguage    string
	scanWorkers     int
	scanPretty      bool
	scanFileTimeout time.Duration
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan one project and print the report as JSON",
	Long: `Scan locates candidate test files under --path for the given
--language, extracts function/import metadata with fuzz-relevance flags,
and prints the project report as JSON on stdout.

When no test files are located (including a nonexistent path), the command
prints "null" and exits 0 — absence of tests is a valid outcome.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanPath, "path", "", "project root directory (required)")
	scanCmd.Flags().StringVar(&scanLanguage, "language", "", "cpp|csharp|java|python|typescript (required)")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0, "parallel file workers (default: number of CPUs)")
	scanCmd.Flags().BoolVar(&scanPretty, "pretty", false, "indent the JSON output")
	scanCmd.Flags().DurationVar(&scanFileTimeout, "file-timeout", scan.DefaultFileTimeout, "per-file parse time bound")
	_ = scanCmd.MarkFlagRequired("path")
	_ = scanCmd.MarkFlagRequired("language")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	lang, err := scan.ParseLanguage(scanLanguage)
	if err != nil {
		return err
	}

	opts := []scan.ScannerOption{scan.WithFileTimeout(scanFileTimeout)}
	if scanWorkers > 0 {
		opts = append(opts, scan.WithWorkerCount(scanWorkers))
	}
	scanner, err := scan.NewScanner(lang, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := scanner.ProcessProject(ctx, scanPath)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", scanPath, err)
	}

	enc := json.NewEncoder(os.Stdout)
	if scanPretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(report)
}
