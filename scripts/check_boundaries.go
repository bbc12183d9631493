package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "userrealm"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule limits what one layer of a service may import. Allowed entries
// are relative to the service import path.
type layerRule struct {
	allowed    []string
	thirdParty bool
}

var layerRules = map[string]layerRule{
	"domain":      {allowed: []string{"domain"}},
	"ports":       {allowed: []string{"domain", "ports"}},
	"application": {allowed: []string{"application", "domain", "ports"}},
	"transport":   {allowed: []string{"transport"}},
}

// platformImporters may reach into contexts/; the rest of internal/platform
// stays domain-agnostic.
var platformImporters = []string{
	"internal/platform/httpserver",
	"internal/app",
}

func main() {
	violations := append(collectContextViolations("contexts"), collectPlatformViolations("internal")...)
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Import < b.Import
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func collectContextViolations(root string) []violation {
	var out []violation
	walkGoFiles(root, func(path string, parts []string) {
		if len(parts) < 4 {
			return
		}
		service := fmt.Sprintf("%s/contexts/%s/%s", modulePath, parts[1], parts[2])
		layer := parts[3]
		if strings.HasSuffix(layer, ".go") {
			layer = ""
		}
		for _, imp := range imports(path, &out) {
			out = append(out, checkContextImport(imp, service, layer)...)
		}
	})
	return out
}

func collectPlatformViolations(root string) []violation {
	var out []violation
	walkGoFiles(root, func(path string, _ []string) {
		normalized := filepath.ToSlash(path)
		for _, prefix := range platformImporters {
			if hasPrefix(normalized, prefix) {
				return
			}
		}
		for _, imp := range imports(path, &out) {
			if strings.HasPrefix(imp.Import, modulePath+"/contexts/") {
				imp.Rule = "platform packages must not import service contexts"
				out = append(out, imp)
			}
		}
	})
	return out
}

func checkContextImport(imp violation, service string, layer string) []violation {
	var out []violation
	reject := func(rule string) {
		v := imp
		v.Rule = rule
		out = append(out, v)
	}

	if strings.HasPrefix(imp.Import, modulePath+"/contexts/") && !hasPrefix(imp.Import, service) {
		reject("cross-service imports are forbidden")
	}

	rule, ok := layerRules[layer]
	if !ok {
		return out
	}
	if strings.HasPrefix(imp.Import, modulePath+"/internal/") || strings.HasPrefix(imp.Import, modulePath+"/cmd/") {
		reject(layer + " must not import runtime infrastructure")
	}
	if hasPrefix(imp.Import, service+"/adapters") {
		reject(layer + " must not import adapters")
	}
	if isStdlib(imp.Import) {
		return out
	}
	if !strings.HasPrefix(imp.Import, modulePath+"/") {
		if !rule.thirdParty {
			reject(layer + " must not import third-party packages")
		}
		return out
	}
	for _, allowed := range rule.allowed {
		if hasPrefix(imp.Import, service+"/"+allowed) {
			return out
		}
	}
	reject(layer + " import is outside explicit allowlist")
	return out
}

func walkGoFiles(root string, visit func(path string, parts []string)) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		visit(path, strings.Split(filepath.ToSlash(path), "/"))
		return nil
	})
}

// imports parses the import block of path. Parse failures are recorded as
// violations.
func imports(path string, failures *[]violation) []violation {
	normalized := filepath.ToSlash(path)
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		*failures = append(*failures, violation{File: normalized, Line: 1, Rule: "file must parse"})
		return nil
	}
	out := make([]violation, 0, len(file.Imports))
	for _, imp := range file.Imports {
		out = append(out, violation{
			File:   normalized,
			Line:   fset.Position(imp.Pos()).Line,
			Import: strings.Trim(imp.Path.Value, `"`),
		})
	}
	return out
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isStdlib(importPath string) bool {
	if strings.HasPrefix(importPath, modulePath+"/") {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
