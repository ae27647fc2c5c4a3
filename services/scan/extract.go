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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// fileExtractor accumulates function and import records for one file while
// the engine walks its tree. One instance per file; not safe for sharing.
type fileExtractor struct {
	adapter *Adapter
	content []byte

	// markers is the adapter's fuzz marker set plus any config extras,
	// all lowercase.
	markers []string

	functions []FunctionRecord
	imports   []ImportRecord
}

// newFileExtractor builds an extractor for one file's content.
func newFileExtractor(adapter *Adapter, content []byte, extraMarkers []string) *fileExtractor {
	markers := adapter.FuzzMarkers
	if len(extraMarkers) > 0 {
		markers = append(append([]string{}, markers...), extraMarkers...)
	}
	return &fileExtractor{
		adapter:   adapter,
		content:   content,
		markers:   markers,
		functions: make([]FunctionRecord, 0),
		imports:   make([]ImportRecord, 0),
	}
}

// visit dispatches one node by kind. Registered with walkTree; every node in
// the file passes through here exactly once.
func (e *fileExtractor) visit(node *sitter.Node) {
	kind := node.Type()
	switch {
	case e.adapter.CallableKinds[kind]:
		e.extractFunction(node)
	case e.adapter.ImportKinds[kind]:
		e.extractImport(node)
	}
}

// extractFunction extracts one callable declaration.
//
// Description:
//
//	Pulls the declared name from an identifier child (empty if none), the
//	raw parameter text from the parameter-list child, and — for adapters
//	that capture body statements — the direct body statements whose text
//	mentions fuzz. C++ nests identifier and parameters one level down in a
//	function_declarator; Java carries annotations inside a modifiers child.
//
//	A record is fuzz-related when the name contains fuzz/fuzzing/fuzzer
//	(case-insensitive), the declaration carries an annotation whose text
//	contains "Fuzz", or at least one body statement mentions fuzz. Whether
//	non-fuzz records are emitted depends on the adapter's function policy.
func (e *fileExtractor) extractFunction(node *sitter.Node) {
	var name, params string
	var fuzzStatements []string
	annotated := false

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		kind := child.Type()

		if e.adapter.DeclaratorKind != "" && kind == e.adapter.DeclaratorKind {
			for j := 0; j < int(child.ChildCount()); j++ {
				sub := child.Child(j)
				if sub == nil {
					continue
				}
				switch {
				case e.adapter.IdentifierKinds[sub.Type()]:
					if name == "" {
						name = nodeText(sub, e.content)
					}
				case sub.Type() == e.adapter.ParamsKind:
					params = nodeText(sub, e.content)
				}
			}
			continue
		}

		if e.adapter.IdentifierKinds[kind] {
			if name == "" {
				name = nodeText(child, e.content)
			}
			continue
		}

		if kind == e.adapter.ParamsKind {
			params = nodeText(child, e.content)
			continue
		}

		if e.adapter.CapturesBodyStatements() && kind == e.adapter.BodyKind {
			for j := 0; j < int(child.ChildCount()); j++ {
				stmt := child.Child(j)
				if stmt == nil {
					continue
				}
				text := nodeText(stmt, e.content)
				if containsFuzz(text) {
					fuzzStatements = append(fuzzStatements, text)
				}
			}
			continue
		}

		if e.adapter.ChecksAnnotations() {
			if e.adapter.AnnotationKinds[kind] && strings.Contains(nodeText(child, e.content), "Fuzz") {
				annotated = true
			}
			// Java attaches annotations beneath a modifiers child.
			if kind == "modifiers" {
				for j := 0; j < int(child.ChildCount()); j++ {
					mod := child.Child(j)
					if mod == nil {
						continue
					}
					if e.adapter.AnnotationKinds[mod.Type()] && strings.Contains(nodeText(mod, e.content), "Fuzz") {
						annotated = true
					}
				}
			}
		}
	}

	isFuzz := isFuzzName(name) || annotated || len(fuzzStatements) > 0

	if e.adapter.FunctionPolicy == EmitOnlyFuzz && !isFuzz {
		return
	}

	startLine := int(node.StartPoint().Row)
	endLine := int(node.EndPoint().Row)

	e.functions = append(e.functions, FunctionRecord{
		Name:           name,
		StartLine:      startLine,
		EndLine:        endLine,
		TotalLines:     endLine - startLine + 1,
		Params:         params,
		IsFuzz:         isFuzz,
		FuzzStatements: fuzzStatements,
	})
}

// extractImport extracts one import-like statement.
func (e *fileExtractor) extractImport(node *sitter.Node) {
	if e.adapter.Language == LanguagePython {
		switch node.Type() {
		case "import_statement":
			e.extractPythonImport(node)
		case "import_from_statement":
			e.extractPythonFromImport(node)
		}
		return
	}

	raw := nodeText(node, e.content)
	isFuzz := e.hasMarker(raw)

	if e.adapter.ImportPolicy == EmitOnlyFuzz && !isFuzz {
		return
	}

	e.imports = append(e.imports, ImportRecord{
		Kind:       ImportKindPlain,
		ImportPath: normalizeImportPath(raw, e.adapter.StripPrefixes),
		Line:       int(node.StartPoint().Row),
		IsFuzz:     isFuzz,
	})
}

// extractPythonImport handles "import x" and "import x as y" statements.
// One record per statement; compound "import a, b" carries all module names.
func (e *fileExtractor) extractPythonImport(node *sitter.Node) {
	var modules []string

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			modules = append(modules, nodeText(child, e.content))
		case "aliased_import":
			for j := 0; j < int(child.ChildCount()); j++ {
				sub := child.Child(j)
				if sub != nil && sub.Type() == "dotted_name" {
					modules = append(modules, nodeText(sub, e.content))
					break
				}
			}
		}
	}

	if len(modules) == 0 {
		return
	}

	rec := ImportRecord{
		Kind:       ImportKindPlain,
		ImportPath: modules[0],
		Line:       int(node.StartPoint().Row),
		IsFuzz:     e.hasMarker(nodeText(node, e.content)),
	}
	if len(modules) > 1 {
		rec.ImportedNames = modules
	}
	e.imports = append(e.imports, rec)
}

// extractPythonFromImport handles "from x import a, b as c" statements.
//
// Tracks the "import" keyword to tell the module path (before it) apart from
// the imported names (after it).
func (e *fileExtractor) extractPythonFromImport(node *sitter.Node) {
	var module string
	var names []string
	sawImport := false

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "import":
			sawImport = true
		case "relative_import":
			module = nodeText(child, e.content)
		case "dotted_name":
			if !sawImport {
				module = nodeText(child, e.content)
			} else {
				names = append(names, nodeText(child, e.content))
			}
		case "identifier":
			if sawImport {
				names = append(names, nodeText(child, e.content))
			}
		case "aliased_import":
			var importName, alias string
			for j := 0; j < int(child.ChildCount()); j++ {
				sub := child.Child(j)
				if sub == nil {
					continue
				}
				switch sub.Type() {
				case "dotted_name":
					if importName == "" {
						importName = nodeText(sub, e.content)
					}
				case "identifier":
					if importName == "" {
						importName = nodeText(sub, e.content)
					} else {
						alias = nodeText(sub, e.content)
					}
				}
			}
			if importName != "" {
				if alias != "" {
					names = append(names, importName+" as "+alias)
				} else {
					names = append(names, importName)
				}
			}
		case "wildcard_import":
			names = append(names, "*")
		}
	}

	if module == "" {
		return
	}

	e.imports = append(e.imports, ImportRecord{
		Kind:          ImportKindFrom,
		ImportPath:    module,
		ImportedNames: names,
		Line:          int(node.StartPoint().Row),
		IsFuzz:        e.hasMarker(nodeText(node, e.content)),
	})
}

// hasMarker reports whether text contains any fuzz marker (case-insensitive).
func (e *fileExtractor) hasMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range e.markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// normalizeImportPath strips the language keyword and trailing semicolon
// from raw import text ("#include <x.h>" -> "<x.h>", "using Foo;" -> "Foo").
func normalizeImportPath(raw string, prefixes []string) string {
	out := strings.TrimSpace(raw)
	for _, p := range prefixes {
		out = strings.TrimSpace(strings.TrimPrefix(out, p))
	}
	return strings.TrimSpace(strings.TrimSuffix(out, ";"))
}

// containsFuzz reports whether text contains "fuzz" (case-insensitive).
func containsFuzz(text string) bool {
	return strings.Contains(strings.ToLower(text), "fuzz")
}

// isFuzzName reports whether a declared name matches the fuzz keyword set.
func isFuzzName(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "fuzz") ||
		strings.Contains(lower, "fuzzing") ||
		strings.Contains(lower, "fuzzer")
}
