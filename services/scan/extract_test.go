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
	"reflect"
	"strings"
	"testing"
)

func parseWith(t *testing.T, lang Language, source, filePath string) *FileReport {
	t.Helper()
	scanner, err := NewScanner(lang)
	if err != nil {
		t.Fatalf("NewScanner(%s): %v", lang, err)
	}
	report, err := scanner.Parse(context.Background(), []byte(source), filePath)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return report
}

func findFunction(t *testing.T, fns []FunctionRecord, name string) FunctionRecord {
	t.Helper()
	for _, fn := range fns {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("function %q not found in %+v", name, fns)
	return FunctionRecord{}
}

func checkLineInvariants(t *testing.T, fns []FunctionRecord) {
	t.Helper()
	for _, fn := range fns {
		if fn.StartLine < 0 || fn.EndLine < fn.StartLine {
			t.Errorf("%s: bad line span [%d, %d]", fn.Name, fn.StartLine, fn.EndLine)
		}
		if fn.TotalLines != fn.EndLine-fn.StartLine+1 {
			t.Errorf("%s: total_lines %d does not match span [%d, %d]",
				fn.Name, fn.TotalLines, fn.StartLine, fn.EndLine)
		}
	}
}

const cppHarnessSource = `#include <vector>
#include <fuzzer/FuzzedDataProvider.h>

int LLVMFuzzerTestOneInput(const uint8_t *data, size_t size) {
  ParseInput(data, size);
  return 0;
}

void RunHarness(const uint8_t *data, size_t size) {
  LLVMFuzzerTestOneInput(data, size);
}

int Add(int a, int b) {
  return a + b;
}
`

func TestExtract_Cpp(t *testing.T) {
	report := parseWith(t, LanguageCpp, cppHarnessSource, "parse_test.cpp")

	if len(report.Functions) != 2 {
		t.Fatalf("expected 2 functions (Add filtered), got %+v", report.Functions)
	}
	checkLineInvariants(t, report.Functions)

	entry := findFunction(t, report.Functions, "LLVMFuzzerTestOneInput")
	if !entry.IsFuzz {
		t.Error("LLVMFuzzerTestOneInput: expected fuzz by name")
	}
	if entry.Params != "(const uint8_t *data, size_t size)" {
		t.Errorf("unexpected params %q", entry.Params)
	}
	if entry.StartLine != 3 || entry.EndLine != 6 || entry.TotalLines != 4 {
		t.Errorf("unexpected span: start=%d end=%d total=%d",
			entry.StartLine, entry.EndLine, entry.TotalLines)
	}

	// RunHarness is not fuzz by name; it qualifies through the body
	// statement that references the fuzz entry point.
	harness := findFunction(t, report.Functions, "RunHarness")
	if !harness.IsFuzz {
		t.Error("RunHarness: expected fuzz via body statement")
	}
	if len(harness.FuzzStatements) != 1 ||
		!strings.Contains(harness.FuzzStatements[0], "LLVMFuzzerTestOneInput") {
		t.Errorf("unexpected fuzz statements %v", harness.FuzzStatements)
	}

	if len(report.Imports) != 1 {
		t.Fatalf("expected only the fuzzer include, got %+v", report.Imports)
	}
	imp := report.Imports[0]
	if imp.ImportPath != "<fuzzer/FuzzedDataProvider.h>" {
		t.Errorf("unexpected import path %q", imp.ImportPath)
	}
	if imp.Line != 1 || !imp.IsFuzz || imp.Kind != ImportKindPlain {
		t.Errorf("unexpected import record %+v", imp)
	}
}

const csharpHarnessSource = `using System;
using SharpFuzz;

class ParserTests {
    public void FuzzParser(byte[] data) {
        Parser.Parse(data);
    }

    public void Helper() {
        Console.WriteLine("ok");
    }
}
`

func TestExtract_CSharp(t *testing.T) {
	report := parseWith(t, LanguageCSharp, csharpHarnessSource, "ParserTests.cs")

	if len(report.Functions) != 1 {
		t.Fatalf("expected 1 function (Helper filtered), got %+v", report.Functions)
	}
	checkLineInvariants(t, report.Functions)

	fn := report.Functions[0]
	if fn.Name != "FuzzParser" || !fn.IsFuzz {
		t.Errorf("unexpected function %+v", fn)
	}
	if fn.Params != "(byte[] data)" {
		t.Errorf("unexpected params %q", fn.Params)
	}

	if len(report.Imports) != 1 {
		t.Fatalf("expected only the SharpFuzz using, got %+v", report.Imports)
	}
	imp := report.Imports[0]
	if imp.ImportPath != "SharpFuzz" || !imp.IsFuzz || imp.Line != 1 {
		t.Errorf("unexpected import record %+v", imp)
	}
}

const javaHarnessSource = `import com.code_intelligence.jazzer.junit.FuzzTest;
import java.util.List;

class ParserTest {
    @FuzzTest
    void testParseInput(byte[] data) {
        Parser.parse(data);
    }

    void helper() {
    }
}
`

func TestExtract_Java(t *testing.T) {
	report := parseWith(t, LanguageJava, javaHarnessSource, "ParserTest.java")

	if len(report.Functions) != 1 {
		t.Fatalf("expected 1 function (helper filtered), got %+v", report.Functions)
	}
	checkLineInvariants(t, report.Functions)

	fn := report.Functions[0]
	if fn.Name != "testParseInput" {
		t.Errorf("unexpected name %q", fn.Name)
	}
	// The name carries no fuzz keyword; classification comes from @FuzzTest.
	if !fn.IsFuzz {
		t.Error("expected fuzz via annotation")
	}
	if fn.Params != "(byte[] data)" {
		t.Errorf("unexpected params %q", fn.Params)
	}
	// The declaration span includes the annotation line.
	if fn.StartLine != 4 || fn.EndLine != 7 {
		t.Errorf("unexpected span: start=%d end=%d", fn.StartLine, fn.EndLine)
	}

	// Java emits every import, flagged.
	if len(report.Imports) != 2 {
		t.Fatalf("expected 2 imports, got %+v", report.Imports)
	}
	jazzer := report.Imports[0]
	if jazzer.ImportPath != "com.code_intelligence.jazzer.junit.FuzzTest" || !jazzer.IsFuzz || jazzer.Line != 0 {
		t.Errorf("unexpected jazzer import %+v", jazzer)
	}
	list := report.Imports[1]
	if list.ImportPath != "java.util.List" || list.IsFuzz || list.Line != 1 {
		t.Errorf("unexpected list import %+v", list)
	}
}

const pythonHarnessSource = `import os
import atheris
import json, typing
from hypothesis import given, settings


def test_roundtrip(value):
    assert decode(encode(value)) == value


def fuzz_decoder(data):
    decode(data)
`

func TestExtract_Python(t *testing.T) {
	report := parseWith(t, LanguagePython, pythonHarnessSource, "test_codec.py")

	// Python emits everything, flagged.
	if len(report.Functions) != 2 {
		t.Fatalf("expected 2 functions, got %+v", report.Functions)
	}
	checkLineInvariants(t, report.Functions)

	roundtrip := findFunction(t, report.Functions, "test_roundtrip")
	if roundtrip.IsFuzz {
		t.Error("test_roundtrip: expected non-fuzz")
	}
	if roundtrip.Params != "(value)" {
		t.Errorf("unexpected params %q", roundtrip.Params)
	}
	if roundtrip.StartLine != 6 || roundtrip.EndLine != 7 || roundtrip.TotalLines != 2 {
		t.Errorf("unexpected span: %+v", roundtrip)
	}

	decoder := findFunction(t, report.Functions, "fuzz_decoder")
	if !decoder.IsFuzz {
		t.Error("fuzz_decoder: expected fuzz by name")
	}

	if len(report.Imports) != 4 {
		t.Fatalf("expected 4 imports, got %+v", report.Imports)
	}

	osImp := report.Imports[0]
	if osImp.Kind != ImportKindPlain || osImp.ImportPath != "os" || osImp.IsFuzz || osImp.Line != 0 {
		t.Errorf("unexpected os import %+v", osImp)
	}

	atherisImp := report.Imports[1]
	if atherisImp.ImportPath != "atheris" || !atherisImp.IsFuzz {
		t.Errorf("unexpected atheris import %+v", atherisImp)
	}

	// A compound statement yields one record carrying all module names.
	compound := report.Imports[2]
	if compound.ImportPath != "json" || !reflect.DeepEqual(compound.ImportedNames, []string{"json", "typing"}) {
		t.Errorf("unexpected compound import %+v", compound)
	}

	hyp := report.Imports[3]
	if hyp.Kind != ImportKindFrom || hyp.ImportPath != "hypothesis" || !hyp.IsFuzz || hyp.Line != 3 {
		t.Errorf("unexpected hypothesis import %+v", hyp)
	}
	if !reflect.DeepEqual(hyp.ImportedNames, []string{"given", "settings"}) {
		t.Errorf("unexpected imported names %v", hyp.ImportedNames)
	}
}

func TestExtract_PythonFromImportForms(t *testing.T) {
	source := `from . import helpers
from pkg.sub import encode as enc, decode
from util import *
`
	report := parseWith(t, LanguagePython, source, "test_forms.py")

	if len(report.Imports) != 3 {
		t.Fatalf("expected 3 imports, got %+v", report.Imports)
	}

	rel := report.Imports[0]
	if rel.Kind != ImportKindFrom || rel.ImportPath != "." || !reflect.DeepEqual(rel.ImportedNames, []string{"helpers"}) {
		t.Errorf("unexpected relative import %+v", rel)
	}

	aliased := report.Imports[1]
	if aliased.ImportPath != "pkg.sub" || !reflect.DeepEqual(aliased.ImportedNames, []string{"encode as enc", "decode"}) {
		t.Errorf("unexpected aliased import %+v", aliased)
	}

	wild := report.Imports[2]
	if wild.ImportPath != "util" || !reflect.DeepEqual(wild.ImportedNames, []string{"*"}) {
		t.Errorf("unexpected wildcard import %+v", wild)
	}
}

const typescriptHarnessSource = `import { runFuzzCase } from "./harness";
import { helper } from "./util";

function fuzzTarget(data: Buffer): void {
  runFuzzCase(data);
}

function plainHelper(x: number): number {
  return x + 1;
}

const driver = (input: Buffer) => {
  runFuzzCase(input);
};

class Harness {
  fuzzEverything(data: Buffer): void {
    run(data);
  }
}
`

func TestExtract_TypeScript(t *testing.T) {
	report := parseWith(t, LanguageTypeScript, typescriptHarnessSource, "harness.test.ts")

	// plainHelper is filtered; the anonymous arrow qualifies through its
	// body statement and is recorded with an empty name.
	if len(report.Functions) != 3 {
		t.Fatalf("expected 3 functions, got %+v", report.Functions)
	}
	checkLineInvariants(t, report.Functions)

	target := findFunction(t, report.Functions, "fuzzTarget")
	if !target.IsFuzz || len(target.FuzzStatements) != 1 {
		t.Errorf("unexpected fuzzTarget record %+v", target)
	}
	if target.Params != "(data: Buffer)" {
		t.Errorf("unexpected params %q", target.Params)
	}

	arrow := findFunction(t, report.Functions, "")
	if !arrow.IsFuzz || len(arrow.FuzzStatements) != 1 ||
		!strings.Contains(arrow.FuzzStatements[0], "runFuzzCase") {
		t.Errorf("unexpected arrow record %+v", arrow)
	}

	method := findFunction(t, report.Functions, "fuzzEverything")
	if !method.IsFuzz {
		t.Error("fuzzEverything: expected fuzz by name")
	}

	if len(report.Imports) != 1 {
		t.Fatalf("expected only the fuzz-mentioning import, got %+v", report.Imports)
	}
	imp := report.Imports[0]
	if !strings.Contains(imp.ImportPath, "runFuzzCase") || !imp.IsFuzz || imp.Line != 0 {
		t.Errorf("unexpected import record %+v", imp)
	}
}

func TestExtract_ExtraMarkersFromConfig(t *testing.T) {
	scanner, err := NewScanner(LanguagePython)
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	source := []byte("import libprotofuzz_alt\nimport customtool\n")

	// Without extras only the builtin markers apply.
	base, err := scanner.parse(context.Background(), source, "test_base.py", nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if base.Imports[1].IsFuzz {
		t.Error("customtool flagged without extra marker")
	}

	extra, err := scanner.parse(context.Background(), source, "test_extra.py", []string{"customtool"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !extra.Imports[1].IsFuzz {
		t.Error("customtool not flagged with extra marker")
	}
}

func TestExtract_MalformedSourceBestEffort(t *testing.T) {
	// Broken syntax after a valid definition: the error-tolerant parser must
	// still surface the valid part.
	source := `def fuzz_entry(data):
    run(data)

def broken(
`
	report := parseWith(t, LanguagePython, source, "test_broken.py")

	entry := findFunction(t, report.Functions, "fuzz_entry")
	if !entry.IsFuzz {
		t.Error("fuzz_entry: expected fuzz by name")
	}
}

func TestExtract_Deterministic(t *testing.T) {
	first := parseWith(t, LanguageJava, javaHarnessSource, "ParserTest.java")
	second := parseWith(t, LanguageJava, javaHarnessSource, "ParserTest.java")

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated parses differ:\n%+v\n%+v", first, second)
	}
}
