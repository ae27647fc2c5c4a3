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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScanConfig holds user-provided overrides for one project scan.
//
// Description:
//
//	Loaded from <projectRoot>/fuzzscan.config.yaml. All fields are optional.
//	A missing config file is not an error (zero-config works out of the box).
//
// Thread Safety: Safe for concurrent reads after construction.
type ScanConfig struct {
	// ExtraFilePatterns lists additional lowercase filename substrings to
	// treat as test file patterns for this project.
	// Example: ["_check.cc", "harness"]
	ExtraFilePatterns []string `yaml:"extra_file_patterns"`

	// ExtraFuzzMarkers lists additional substrings to treat as fuzz markers
	// when classifying imports.
	// Example: ["libfuzzer", "honggfuzz"]
	ExtraFuzzMarkers []string `yaml:"extra_fuzz_markers"`
}

// loadScanConfig reads fuzzscan.config.yaml from the project root.
//
// Description:
//
//	Reads and parses the scan config file. If the project root is empty or
//	the file does not exist, returns an empty config with no error. Only
//	returns an error if the file exists but cannot be parsed.
//
// Inputs:
//
//	projectRoot - Path to the project root. May be empty.
//
// Outputs:
//
//	ScanConfig - The parsed config, or empty config if file is missing.
//	error - Non-nil only if the file exists but has invalid YAML.
//
// Thread Safety: Safe for concurrent use (stateless function).
func loadScanConfig(projectRoot string) (ScanConfig, error) {
	if projectRoot == "" {
		return ScanConfig{}, nil
	}

	configPath := filepath.Join(projectRoot, "fuzzscan.config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ScanConfig{}, nil
		}
		return ScanConfig{}, fmt.Errorf("reading fuzzscan.config.yaml: %w", err)
	}

	var config ScanConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return ScanConfig{}, fmt.Errorf("parsing fuzzscan.config.yaml: %w", err)
	}

	// Patterns and markers are matched against lowercased text; normalize
	// user input the same way.
	for i, p := range config.ExtraFilePatterns {
		config.ExtraFilePatterns[i] = strings.ToLower(p)
	}
	for i, m := range config.ExtraFuzzMarkers {
		config.ExtraFuzzMarkers[i] = strings.ToLower(m)
	}

	return config, nil
}
