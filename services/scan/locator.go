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
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// locateTestFiles walks the project root and returns the paths of candidate
// test files for the given adapter, in lexicographic order.
//
// Description:
//
//	A file is a candidate when its extension is one of the adapter's
//	extensions AND its lowercase path either contains one of the filename
//	patterns or crosses a /test/ or /tests/ directory segment. The match is
//	pure string containment; no file is opened or parsed here.
//
//	A nonexistent root is a normal outcome, not a failure: the locator
//	returns an empty slice and nil error, and the scan reports no result.
//
// Inputs:
//
//	root - Project root path. May not exist.
//	adapter - The active language adapter (extensions + patterns).
//	extraPatterns - Additional lowercase patterns from fuzzscan.config.yaml.
//
// Outputs:
//
//	[]string - Matched paths in deterministic (lexicographic) walk order.
//	error - Non-nil only for I/O failures other than a missing root.
//
// Thread Safety: Safe for concurrent use (stateless function).
func locateTestFiles(root string, adapter *Adapter, extraPatterns []string) ([]string, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	patterns := adapter.FilePatterns
	if len(extraPatterns) > 0 {
		patterns = append(append([]string{}, patterns...), extraPatterns...)
	}

	var files []string
	// WalkDir visits entries in lexical order, which gives the deterministic
	// traversal the report contract requires.
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !hasExtension(path, adapter.Extensions) {
			return nil
		}
		if isTestFilePath(path, patterns) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// hasExtension reports whether path ends in one of the given extensions
// (case-insensitive).
func hasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// isTestFilePath reports whether the lowercase path contains a filename
// pattern or a test directory segment.
func isTestFilePath(path string, patterns []string) bool {
	lower := strings.ToLower(filepath.ToSlash(path))
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return strings.Contains(lower, "/test/") ||
		strings.Contains(lower, "/tests/") ||
		strings.HasPrefix(lower, "test/") ||
		strings.HasPrefix(lower, "tests/")
}
