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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"
)

// DefaultFileTimeout bounds one file's parse+extract. Pathological inputs
// must not block the rest of the scan.
const DefaultFileTimeout = 30 * time.Second

// ScannerOption configures a Scanner instance.
type ScannerOption func(*Scanner)

// WithWorkerCount sets the number of parallel file workers.
//
// Values <= 0 fall back to runtime.NumCPU().
func WithWorkerCount(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithMaxFileSize sets the maximum file size the scanner will parse.
func WithMaxFileSize(bytes int64) ScannerOption {
	return func(s *Scanner) {
		if bytes > 0 {
			s.maxFileSize = bytes
		}
	}
}

// WithFileTimeout bounds per-file parse time. Zero disables the bound.
func WithFileTimeout(d time.Duration) ScannerOption {
	return func(s *Scanner) {
		if d >= 0 {
			s.fileTimeout = d
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ScannerOption {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Scanner locates, parses, and extracts metadata from a project's test files
// for one language.
//
// Description:
//
//	Scanner is the aggregation boundary: it runs locate → parse+extract per
//	file → fold into a ProjectReport. Per-file failures are isolated — they
//	are logged with path and cause, the file is dropped from the parsing
//	results, and the scan continues. There is no fatal error path below the
//	aggregator: a scan always yields a report or the no-result outcome.
//
// Thread Safety:
//
//	Scanner instances are safe for concurrent use. Each ProcessProject and
//	Parse call creates its own tree-sitter parser and extraction state.
//
// Example:
//
//	scanner, err := scan.NewScanner(scan.LanguageJava)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := scanner.ProcessProject(ctx, "/path/to/project")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if report == nil {
//	    fmt.Println("no test files")
//	}
type Scanner struct {
	adapter     *Adapter
	workerCount int
	maxFileSize int64
	fileTimeout time.Duration
	logger      *slog.Logger
}

// NewScanner creates a Scanner for the given language.
//
// Inputs:
//   - lang: One of the supported languages.
//   - opts: Optional configuration (WithWorkerCount, WithMaxFileSize,
//     WithFileTimeout, WithLogger).
//
// Outputs:
//   - *Scanner: Configured scanner, never nil on success.
//   - error: Non-nil for unsupported languages.
func NewScanner(lang Language, opts ...ScannerOption) (*Scanner, error) {
	adapter, err := AdapterFor(lang)
	if err != nil {
		return nil, err
	}

	s := &Scanner{
		adapter:     adapter,
		workerCount: runtime.NumCPU(),
		maxFileSize: DefaultMaxFileSize,
		fileTimeout: DefaultFileTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Language returns the scanner's language.
func (s *Scanner) Language() Language {
	return s.adapter.Language
}

// ProcessProject scans one project root.
//
// Description:
//
//	Locates candidate test files, parses and extracts each through a
//	bounded worker pool, and assembles the ProjectReport. Parsing results
//	are sorted by file path so repeated scans of an unchanged tree produce
//	byte-identical reports regardless of worker completion order.
//
//	Absence of tests is a valid outcome, not a failure: a nonexistent root
//	or zero matched files yields (nil, nil). Files listed in test_files
//	that fail to parse stay listed but are absent from parsing_results.
//
// Inputs:
//   - ctx: Context for cancellation. Canceling aborts unstarted files.
//   - root: Project root directory, read-only.
//
// Outputs:
//   - *ProjectReport: The report, or nil when no test files were located.
//   - error: Non-nil only for scan-level failures (walk I/O error,
//     canceled context). Per-file failures never surface here.
//
// Thread Safety: Safe for concurrent use.
func (s *Scanner) ProcessProject(ctx context.Context, root string) (*ProjectReport, error) {
	ctx, span := startScanSpan(ctx, s.adapter.Language, root)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan canceled before start: %w", err)
	}

	// Optional per-project overrides; a broken config falls back to defaults.
	config, configErr := loadScanConfig(root)
	if configErr != nil {
		s.logger.Warn("fuzzscan.config.yaml error, using defaults",
			slog.String("error", configErr.Error()),
			slog.String("project_root", root))
	}

	files, err := locateTestFiles(root, s.adapter, config.ExtraFilePatterns)
	if err != nil {
		return nil, fmt.Errorf("locating test files: %w", err)
	}
	if len(files) == 0 {
		s.logger.Info("no test files found",
			slog.String("project_root", root),
			slog.String("language", string(s.adapter.Language)))
		setScanSpanResult(span, 0, 0)
		return nil, nil
	}

	var mu sync.Mutex
	results := make([]FileReport, 0, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workerCount)

	for _, filePath := range files {
		g.Go(func() error {
			report, err := s.scanFile(gctx, filePath, config.ExtraFuzzMarkers)
			if err != nil {
				// Per-file failures are reported and dropped, never fatal.
				s.logger.Warn("skipping test file",
					slog.String("file", filePath),
					slog.String("error", err.Error()))
				return nil
			}
			mu.Lock()
			results = append(results, *report)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scanning files: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan canceled: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].FilePath < results[j].FilePath
	})

	report := &ProjectReport{
		ProjectInfo: ProjectInfo{
			Name:           projectName(root),
			Path:           root,
			TotalTestFiles: len(files),
			TestFiles:      files,
		},
		ParsingResults: results,
	}
	if err := report.Validate(); err != nil {
		return nil, fmt.Errorf("report validation failed: %w", err)
	}

	setScanSpanResult(span, len(files), len(results))
	s.logger.Info("project scan complete",
		slog.String("project_root", root),
		slog.String("language", string(s.adapter.Language)),
		slog.Int("test_files", len(files)),
		slog.Int("parsed", len(results)))

	return report, nil
}

// scanFile loads one file and runs parse+extract on it.
func (s *Scanner) scanFile(ctx context.Context, filePath string, extraMarkers []string) (*FileReport, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return s.parse(ctx, content, filePath, extraMarkers)
}

// Parse extracts function and import records from in-memory source.
//
// Description:
//
//	Parses the content with tree-sitter and walks the resulting tree with
//	the scanner's adapter. The parser is error-tolerant: malformed input
//	yields a best-effort tree, and missing or unexpected children produce
//	empty fields rather than failures.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing.
//   - content: Raw source bytes. Must be valid UTF-8.
//   - filePath: Path recorded on the FileReport (also used in logs).
//
// Outputs:
//   - *FileReport: Extracted records. Never nil on success.
//   - error: ErrFileTooLarge, ErrInvalidContent, ErrNilRootNode, a
//     tree-sitter failure, or a context error.
//
// Thread Safety: Safe for concurrent use.
func (s *Scanner) Parse(ctx context.Context, content []byte, filePath string) (*FileReport, error) {
	return s.parse(ctx, content, filePath, nil)
}

func (s *Scanner) parse(ctx context.Context, content []byte, filePath string, extraMarkers []string) (*FileReport, error) {
	ctx, span := startFileSpan(ctx, s.adapter.Language, filePath, len(content))
	defer span.End()

	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordFileMetrics(ctx, s.adapter.Language, time.Since(start), 0, false)
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	if int64(len(content)) > s.maxFileSize {
		recordFileMetrics(ctx, s.adapter.Language, time.Since(start), 0, false)
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), s.maxFileSize)
	}

	if len(content) > WarnFileSize {
		s.logger.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		recordFileMetrics(ctx, s.adapter.Language, time.Since(start), 0, false)
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	if s.fileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fileTimeout)
		defer cancel()
	}

	// New parser instance per call for thread safety.
	parser := sitter.NewParser()
	parser.SetLanguage(s.adapter.Grammar)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordFileMetrics(ctx, s.adapter.Language, time.Since(start), 0, false)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	if rootNode == nil {
		recordFileMetrics(ctx, s.adapter.Language, time.Since(start), 0, false)
		return nil, ErrNilRootNode
	}

	extractor := newFileExtractor(s.adapter, content, extraMarkers)
	walkTree(rootNode, extractor.visit)

	if err := ctx.Err(); err != nil {
		recordFileMetrics(ctx, s.adapter.Language, time.Since(start), 0, false)
		return nil, fmt.Errorf("parse canceled after extraction: %w", err)
	}

	fuzzFns := 0
	for _, fn := range extractor.functions {
		if fn.IsFuzz {
			fuzzFns++
		}
	}
	recordFileMetrics(ctx, s.adapter.Language, time.Since(start), fuzzFns, true)

	return &FileReport{
		FilePath:  filePath,
		Functions: extractor.functions,
		Imports:   extractor.imports,
	}, nil
}

// projectName returns the base name of the project root, tolerating
// trailing separators.
func projectName(root string) string {
	return filepath.Base(filepath.Clean(root))
}
