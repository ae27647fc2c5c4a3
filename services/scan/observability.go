// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scan

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/AleutianAI/fuzzscan/services/scan"

var (
	obsOnce sync.Once

	scanTracer trace.Tracer

	filesScanned  metric.Int64Counter
	filesFailed   metric.Int64Counter
	fileDuration  metric.Float64Histogram
	fuzzFunctions metric.Int64Counter
)

// initObservability lazily creates the tracer and instruments. Instrument
// creation errors are ignored: the no-op meter never fails, and a broken
// provider must not break scanning.
func initObservability() {
	obsOnce.Do(func() {
		scanTracer = otel.Tracer(instrumentationName)
		meter := otel.Meter(instrumentationName)

		filesScanned, _ = meter.Int64Counter("fuzzscan.files.scanned",
			metric.WithDescription("Number of test files successfully parsed"))
		filesFailed, _ = meter.Int64Counter("fuzzscan.files.failed",
			metric.WithDescription("Number of test files that failed to parse"))
		fileDuration, _ = meter.Float64Histogram("fuzzscan.file.duration",
			metric.WithDescription("Per-file parse+extract duration"),
			metric.WithUnit("ms"))
		fuzzFunctions, _ = meter.Int64Counter("fuzzscan.functions.fuzz",
			metric.WithDescription("Number of fuzz-related functions extracted"))
	})
}

// startScanSpan opens the span covering one whole project scan.
func startScanSpan(ctx context.Context, language Language, root string) (context.Context, trace.Span) {
	initObservability()
	return scanTracer.Start(ctx, "scan.project",
		trace.WithAttributes(
			attribute.String("scan.language", string(language)),
			attribute.String("scan.project_root", root),
		))
}

// setScanSpanResult records the scan outcome on the project span.
func setScanSpanResult(span trace.Span, located, parsed int) {
	span.SetAttributes(
		attribute.Int("scan.files_located", located),
		attribute.Int("scan.files_parsed", parsed),
	)
}

// startFileSpan opens the span covering one file's parse+extract.
func startFileSpan(ctx context.Context, language Language, filePath string, sizeBytes int) (context.Context, trace.Span) {
	initObservability()
	return scanTracer.Start(ctx, "scan.file",
		trace.WithAttributes(
			attribute.String("scan.language", string(language)),
			attribute.String("scan.file", filePath),
			attribute.Int("scan.file_size_bytes", sizeBytes),
		))
}

// recordFileMetrics records counters and duration for one file attempt.
func recordFileMetrics(ctx context.Context, language Language, d time.Duration, fuzzFns int, success bool) {
	initObservability()

	attrs := metric.WithAttributes(attribute.String("language", string(language)))
	if success {
		filesScanned.Add(ctx, 1, attrs)
		if fuzzFns > 0 {
			fuzzFunctions.Add(ctx, int64(fuzzFns), attrs)
		}
	} else {
		filesFailed.Add(ctx, 1, attrs)
	}
	fileDuration.Record(ctx, float64(d.Milliseconds()), attrs)
}
