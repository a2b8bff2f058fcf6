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

const modulePath = "dispatch"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule lists the in-module prefixes a layer may import, relative to its
// bounded context. Standard library imports are always allowed.
type layerRule struct {
	allowedLocal []string
	allowShared  []string
}

var layerRules = map[string]layerRule{
	"domain": {
		allowedLocal: []string{"domain"},
	},
	"ports": {
		allowedLocal: []string{"domain", "ports"},
		allowShared:  []string{modulePath + "/contracts"},
	},
	"application": {
		allowedLocal: []string{"application", "domain", "ports"},
		allowShared:  []string{modulePath + "/contracts"},
	},
}

func main() {
	root := "contexts"
	if len(os.Args) > 1 {
		root = os.Args[1]
	}
	violations := collectViolations(root)
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

// collectViolations walks contexts/<group>/<service>/<layer>/... under root.
func collectViolations(root string) []violation {
	var violations []violation

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 3 {
			return nil
		}
		contextPrefix := fmt.Sprintf("%s/contexts/%s/%s", modulePath, parts[0], parts[1])
		layer := ""
		if len(parts) > 3 {
			layer = parts[2]
		}
		violations = append(violations, validateFile(path, layer, contextPrefix)...)
		return nil
	})

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File == violations[j].File {
			if violations[i].Line == violations[j].Line {
				return violations[i].Import < violations[j].Import
			}
			return violations[i].Line < violations[j].Line
		}
		return violations[i].File < violations[j].File
	})
	return violations
}

func validateFile(path string, layer string, contextPrefix string) []violation {
	normalized := filepath.ToSlash(path)
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: normalized, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	add := func(line int, importPath string, rule string) {
		violations = append(violations, violation{File: normalized, Line: line, Import: importPath, Rule: rule})
	}

	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		line := fset.Position(imp.Pos()).Line

		if strings.HasPrefix(importPath, modulePath+"/contexts/") && !hasPrefix(importPath, contextPrefix) {
			add(line, importPath, "cross-context imports are forbidden")
			continue
		}

		rule, ok := layerRules[layer]
		if !ok || isStdlib(importPath) {
			continue
		}
		if strings.HasPrefix(importPath, modulePath+"/internal/") {
			add(line, importPath, layer+" must not import runtime infrastructure")
			continue
		}
		if !isAllowed(importPath, contextPrefix, rule) {
			add(line, importPath, layer+" import is outside explicit allowlist")
		}
	}
	return violations
}

func isAllowed(importPath string, contextPrefix string, rule layerRule) bool {
	for _, local := range rule.allowedLocal {
		if hasPrefix(importPath, contextPrefix+"/"+local) {
			return true
		}
	}
	for _, shared := range rule.allowShared {
		if hasPrefix(importPath, shared) {
			return true
		}
	}
	return false
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// isStdlib treats any import whose first element has no dot as standard library.
func isStdlib(importPath string) bool {
	first := strings.SplitN(importPath, "/", 2)[0]
	return !strings.Contains(first, ".") && first != modulePath
}
