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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language identifies one of the supported grammars.
type Language string

// Supported languages.
const (
	LanguageCpp        Language = "cpp"
	LanguageCSharp     Language = "csharp"
	LanguageJava       Language = "java"
	LanguagePython     Language = "python"
	LanguageTypeScript Language = "typescript"
)

// Languages returns all supported languages in stable order.
func Languages() []Language {
	return []Language{
		LanguageCpp,
		LanguageCSharp,
		LanguageJava,
		LanguagePython,
		LanguageTypeScript,
	}
}

// ParseLanguage converts a user-supplied string to a Language.
//
// Accepts a few common aliases ("c++", "cs", "c#", "ts", "py").
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpp", "c++", "cc", "cxx":
		return LanguageCpp, nil
	case "csharp", "cs", "c#":
		return LanguageCSharp, nil
	case "java":
		return LanguageJava, nil
	case "python", "py":
		return LanguagePython, nil
	case "typescript", "ts":
		return LanguageTypeScript, nil
	default:
		return "", fmt.Errorf("unsupported language %q", s)
	}
}

// EmitPolicy controls which extracted records an adapter emits.
type EmitPolicy int

const (
	// EmitOnlyFuzz emits a record only when it is classified fuzz-related.
	EmitOnlyFuzz EmitPolicy = iota

	// EmitAll emits every record, carrying the fuzz flag.
	EmitAll
)

// String returns the string representation of the EmitPolicy.
func (p EmitPolicy) String() string {
	switch p {
	case EmitOnlyFuzz:
		return "emit_only_fuzz"
	case EmitAll:
		return "emit_all"
	default:
		return "unknown"
	}
}

// Adapter is the per-language capability bundle binding file patterns,
// grammar selection, node-kind sets, marker sets, and classification policy
// to the shared traversal/extraction engine.
//
// Description:
//
//	Adapters are configuration, not runtime entities: all five share the
//	same engine, and only the data below (plus two extraction toggles)
//	differs. Instances returned by AdapterFor are shared and must be
//	treated as read-only.
//
// Thread Safety:
//
//	Adapters are immutable after package init and safe for concurrent use.
type Adapter struct {
	// Language is the canonical language name.
	Language Language

	// Grammar is the tree-sitter language for this adapter.
	Grammar *sitter.Language

	// Extensions are the file extensions considered for location (lowercase,
	// with leading dot).
	Extensions []string

	// FilePatterns are lowercase substrings matched against the lowercase
	// file path during test file location.
	FilePatterns []string

	// CallableKinds are the node kinds treated as callable declarations.
	CallableKinds map[string]bool

	// ImportKinds are the node kinds treated as import-like statements.
	ImportKinds map[string]bool

	// IdentifierKinds are the node kinds accepted as the declared name child
	// of a callable.
	IdentifierKinds map[string]bool

	// ParamsKind is the node kind of the parameter-list child.
	ParamsKind string

	// BodyKind is the node kind of the body/block child, or empty when the
	// adapter does not capture body statements.
	BodyKind string

	// DeclaratorKind, when non-empty, names an intermediate child that holds
	// the identifier and parameter list (C++ function_declarator).
	DeclaratorKind string

	// AnnotationKinds are the node kinds checked for fuzz annotations.
	// Only Java uses this.
	AnnotationKinds map[string]bool

	// FuzzMarkers are lowercase substrings checked against raw import text
	// to flag fuzz-related imports.
	FuzzMarkers []string

	// StripPrefixes are language keywords removed from the front of raw
	// import text when normalizing ImportPath.
	StripPrefixes []string

	// FunctionPolicy selects filter vs flag-all emission for functions.
	FunctionPolicy EmitPolicy

	// ImportPolicy selects filter vs flag-all emission for imports.
	ImportPolicy EmitPolicy
}

// CapturesBodyStatements reports whether this adapter records fuzz-mentioning
// direct body statements (C++, C#, TypeScript).
func (a *Adapter) CapturesBodyStatements() bool {
	return a.BodyKind != ""
}

// ChecksAnnotations reports whether this adapter inspects annotations for
// fuzz markers (Java only).
func (a *Adapter) ChecksAnnotations() bool {
	return len(a.AnnotationKinds) > 0
}

var cppAdapter = &Adapter{
	Language:   LanguageCpp,
	Grammar:    cpp.GetLanguage(),
	Extensions: []string{".cc", ".cpp"},
	FilePatterns: []string{
		"_test.cpp", "_test.cc",
		"test.cpp", "test.cc",
		"tests.cpp", "tests.cc",
	},
	CallableKinds:   map[string]bool{"function_definition": true, "method_definition": true},
	ImportKinds:     map[string]bool{"preproc_include": true},
	IdentifierKinds: map[string]bool{"identifier": true},
	ParamsKind:      "parameter_list",
	BodyKind:        "compound_statement",
	DeclaratorKind:  "function_declarator",
	FuzzMarkers:     []string{"fuzz"},
	StripPrefixes:   []string{"#include"},
	FunctionPolicy:  EmitOnlyFuzz,
	ImportPolicy:    EmitOnlyFuzz,
}

var csharpAdapter = &Adapter{
	Language:   LanguageCSharp,
	Grammar:    csharp.GetLanguage(),
	Extensions: []string{".cs"},
	FilePatterns: []string{
		"test.cs", "tests.cs",
		".test.cs", ".tests.cs",
		"spec.cs",
	},
	CallableKinds:   map[string]bool{"method_declaration": true},
	ImportKinds:     map[string]bool{"using_directive": true},
	IdentifierKinds: map[string]bool{"identifier": true},
	ParamsKind:      "parameter_list",
	BodyKind:        "block",
	FuzzMarkers:     []string{"fuzz"},
	StripPrefixes:   []string{"using"},
	FunctionPolicy:  EmitOnlyFuzz,
	ImportPolicy:    EmitOnlyFuzz,
}

var javaAdapter = &Adapter{
	Language:   LanguageJava,
	Grammar:    java.GetLanguage(),
	Extensions: []string{".java"},
	FilePatterns: []string{
		"test.java", "tests.java",
		"it.java", // integration tests
		"testcase.java",
		"spec.java",
	},
	CallableKinds:   map[string]bool{"method_declaration": true},
	ImportKinds:     map[string]bool{"import_declaration": true},
	IdentifierKinds: map[string]bool{"identifier": true},
	ParamsKind:      "formal_parameters",
	AnnotationKinds: map[string]bool{"marker_annotation": true, "annotation": true},
	FuzzMarkers:     []string{"fuzz", "fuzzer", "jazzer", "jqf"},
	StripPrefixes:   []string{"import"},
	FunctionPolicy:  EmitOnlyFuzz,
	ImportPolicy:    EmitAll,
}

var pythonAdapter = &Adapter{
	Language:   LanguagePython,
	Grammar:    python.GetLanguage(),
	Extensions: []string{".py"},
	FilePatterns: []string{
		"test_", "_test.py",
		"test.py", "tests.py",
	},
	CallableKinds: map[string]bool{"function_definition": true},
	ImportKinds: map[string]bool{
		"import_statement":      true,
		"import_from_statement": true,
	},
	IdentifierKinds: map[string]bool{"identifier": true},
	ParamsKind:      "parameters",
	FuzzMarkers:     []string{"hypothesis", "atheris"},
	FunctionPolicy:  EmitAll,
	ImportPolicy:    EmitAll,
}

var typescriptAdapter = &Adapter{
	Language:   LanguageTypeScript,
	Grammar:    typescript.GetLanguage(),
	Extensions: []string{".ts"},
	FilePatterns: []string{
		".test.ts", ".spec.ts",
		"test.ts", "tests.ts",
	},
	CallableKinds: map[string]bool{
		"function_declaration": true,
		"arrow_function":       true,
		"method_definition":    true,
	},
	ImportKinds: map[string]bool{"import_statement": true},
	IdentifierKinds: map[string]bool{
		"identifier":          true,
		"property_identifier": true,
	},
	ParamsKind:     "formal_parameters",
	BodyKind:       "statement_block",
	FuzzMarkers:    []string{"fuzz"},
	StripPrefixes:  []string{"import"},
	FunctionPolicy: EmitOnlyFuzz,
	ImportPolicy:   EmitOnlyFuzz,
}

// AdapterFor returns the shared Adapter for the given language.
//
// Outputs:
//
//	*Adapter - Read-only adapter instance. Never nil on success.
//	error - Non-nil for unsupported languages.
func AdapterFor(lang Language) (*Adapter, error) {
	switch lang {
	case LanguageCpp:
		return cppAdapter, nil
	case LanguageCSharp:
		return csharpAdapter, nil
	case LanguageJava:
		return javaAdapter, nil
	case LanguagePython:
		return pythonAdapter, nil
	case LanguageTypeScript:
		return typescriptAdapter, nil
	default:
		return nil, fmt.Errorf("unsupported language %q", lang)
	}
}
