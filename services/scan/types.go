// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scan locates candidate test files in a project tree, parses them
// with tree-sitter, and extracts lightweight function and import metadata,
// flagging entries that plausibly relate to fuzz testing.
//
// The package supports five grammars (C++, C#, Java, Python, TypeScript)
// through a single traversal/extraction engine parameterized by per-language
// Adapter bundles. Classification is a cheap syntactic proxy: substring and
// annotation checks, no semantic analysis.
package scan

import (
	"errors"
	"fmt"
)

// Size limits for per-file parsing.
const (
	// DefaultMaxFileSize is the maximum file size the scanner will parse (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize is the threshold above which a warning is logged (1MB).
	WarnFileSize = 1 * 1024 * 1024
)

// Sentinel errors returned by per-file parsing.
var (
	// ErrFileTooLarge is returned when a file exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidContent is returned when file content is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")

	// ErrNilRootNode is returned when tree-sitter produces no root node.
	ErrNilRootNode = errors.New("tree-sitter returned nil root node")
)

// ProjectInfo describes the scanned project and the test files located in it.
type ProjectInfo struct {
	// Name is the base name of the project root directory.
	Name string `json:"name"`

	// Path is the project root path as given to the scanner.
	Path string `json:"path"`

	// TotalTestFiles is the number of located test files.
	// Invariant: TotalTestFiles == len(TestFiles).
	TotalTestFiles int `json:"total_test_files"`

	// TestFiles lists every located test file in lexicographic order,
	// including files that later failed to parse. A file that fails
	// extraction stays listed here and is absent from ParsingResults.
	TestFiles []string `json:"test_files"`
}

// ProjectReport is the result of one project scan.
//
// Description:
//
//	ProjectReport owns its FileReports, which own their records. The report
//	is built fresh per scan and holds no cross-invocation state. A scan that
//	locates zero test files produces no ProjectReport at all (the scanner
//	returns nil, nil).
type ProjectReport struct {
	ProjectInfo ProjectInfo `json:"project_info"`

	// ParsingResults holds one FileReport per successfully parsed test file,
	// ordered by file path. Files that failed to parse are dropped here but
	// remain in ProjectInfo.TestFiles.
	ParsingResults []FileReport `json:"parsing_results"`
}

// Validate checks the report's structural invariants.
//
// Outputs:
//
//	error - Non-nil if TotalTestFiles disagrees with TestFiles, or if a
//	        FileReport references a path not present in TestFiles.
func (r *ProjectReport) Validate() error {
	if r.ProjectInfo.TotalTestFiles != len(r.ProjectInfo.TestFiles) {
		return fmt.Errorf("total_test_files %d != len(test_files) %d",
			r.ProjectInfo.TotalTestFiles, len(r.ProjectInfo.TestFiles))
	}
	located := make(map[string]bool, len(r.ProjectInfo.TestFiles))
	for _, f := range r.ProjectInfo.TestFiles {
		located[f] = true
	}
	for _, fr := range r.ParsingResults {
		if !located[fr.FilePath] {
			return fmt.Errorf("parsing result for unlocated file %q", fr.FilePath)
		}
	}
	return nil
}

// FileReport holds the extraction results for one test file.
type FileReport struct {
	FilePath  string           `json:"file_path"`
	Functions []FunctionRecord `json:"functions"`
	Imports   []ImportRecord   `json:"imports"`
}

// FunctionRecord describes one callable declaration found in a test file.
//
// Lines are 0-indexed and inclusive, matching tree-sitter row numbering:
// TotalLines == EndLine - StartLine + 1.
type FunctionRecord struct {
	// Name is the declared name, or empty for anonymous callables
	// (e.g. arrow functions).
	Name string `json:"name"`

	StartLine  int `json:"start_line"`
	EndLine    int `json:"end_line"`
	TotalLines int `json:"total_lines"`

	// Params is the raw parameter-list text, parentheses included.
	Params string `json:"params"`

	// IsFuzz is true when the name contains a fuzz keyword, the declaration
	// carries a recognized fuzz annotation, or a body statement mentions fuzz.
	IsFuzz bool `json:"is_fuzz"`

	// FuzzStatements holds the direct body statements whose text contains
	// "fuzz" (case-insensitive), captured verbatim. Only populated for
	// adapters that capture body statements (C++, C#, TypeScript).
	FuzzStatements []string `json:"fuzz_statements,omitempty"`
}

// ImportKind distinguishes the syntactic form of an import record.
type ImportKind string

const (
	// ImportKindPlain covers includes, using directives, and import
	// declarations/statements ("import x").
	ImportKindPlain ImportKind = "import"

	// ImportKindFrom covers Python "from x import a, b" statements.
	ImportKindFrom ImportKind = "from_import"
)

// ImportRecord describes one import-like statement found in a test file.
// One record per statement, not per imported name.
type ImportRecord struct {
	Kind ImportKind `json:"kind"`

	// ImportPath is the import target with the language keyword and trailing
	// semicolon stripped ("#include <x>" -> "<x>", "using Foo;" -> "Foo").
	ImportPath string `json:"import_path"`

	// ImportedNames lists individually imported names for compound forms
	// (Python from-imports). Empty otherwise.
	ImportedNames []string `json:"imported_names,omitempty"`

	// Line is the 0-indexed line of the statement.
	Line int `json:"line"`

	// IsFuzz is true when the raw statement text contains one of the
	// adapter's fuzz markers (case-insensitive).
	IsFuzz bool `json:"is_fuzz_import"`
}
