// Package testutil holds import guards that keep gardencore's layers apart:
// the domain model and the design engine stay free of transport, storage and
// internal wiring, and plugins reach entities only through internal/core.
package testutil

import (
	"go/parser"
	"go/token"
	"io/fs"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// Predicate reports whether an import path is forbidden.
type Predicate func(importPath string) bool

// Any matches when one of preds matches.
func Any(preds ...Predicate) Predicate {
	return func(path string) bool {
		for _, p := range preds {
			if p(path) {
				return true
			}
		}
		return false
	}
}

// Exact matches the listed import paths only.
func Exact(paths ...string) Predicate {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(path string) bool {
		_, ok := set[path]
		return ok
	}
}

// Prefix matches a module or package path and everything below it.
func Prefix(prefixes ...string) Predicate {
	return func(path string) bool {
		for _, p := range prefixes {
			if path == p || strings.HasPrefix(path, p+"/") {
				return true
			}
		}
		return false
	}
}

var (
	// Internal matches gardencore's own internal packages. Standard library and
	// third-party internal packages are not wiring and never match.
	Internal = Prefix("gardencore/internal")
	// Domain matches the entity model package.
	Domain = Exact("gardencore/pkg/domain")
	// Transport matches HTTP, CLI and messaging libraries.
	Transport = Prefix("github.com/labstack/echo/v4", "github.com/spf13/cobra", "github.com/segmentio/kafka-go", "github.com/prometheus/client_golang")
	// Storage matches database drivers and object storage SDKs.
	Storage = Prefix("modernc.org/sqlite", "github.com/jackc/pgx/v5", "github.com/aws/aws-sdk-go-v2")
)

// AssertNoDirectImports parses the non-test .go files in dir and fails when
// an import matches forbidden.
func AssertNoDirectImports(t testing.TB, dir string, forbidden Predicate, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, false, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	failOn(t, "forbidden direct imports", reason, viols)
}

// AssertTreeNoDirectImports applies AssertNoDirectImports to root and every
// directory below it.
func AssertTreeNoDirectImports(t testing.TB, root string, forbidden Predicate, reason string) {
	t.Helper()
	viols, err := directImportViolations(root, true, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", root, err)
	}
	failOn(t, "forbidden direct imports", reason, viols)
}

// AssertNoTransitiveDependency runs `go list -deps pattern` and fails when a
// dependency matches forbidden.
func AssertNoTransitiveDependency(t testing.TB, pattern string, forbidden Predicate, reason string) {
	t.Helper()
	out, err := goListDeps(pattern)
	if err != nil {
		t.Fatalf("go list -deps %s: %v\n%s", pattern, err, out)
	}
	var viols []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" && forbidden(line) {
			viols = append(viols, line)
		}
	}
	failOn(t, "forbidden transitive dependencies", reason, viols)
}

var goListDeps = func(pattern string) ([]byte, error) {
	return exec.Command("go", "list", "-deps", pattern).CombinedOutput()
}

func directImportViolations(root string, recursive bool, forbidden Predicate) ([]string, error) {
	fset := token.NewFileSet()
	var viols []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (!recursive || strings.HasPrefix(d.Name(), ".") || d.Name() == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		for _, imp := range file.Imports {
			ip := strings.Trim(imp.Path.Value, `"`)
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+filepath.ToSlash(rel)+")")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(viols)
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failOn(t fatalLogger, what, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("%s detected (%s):\n%s", what, reason, strings.Join(viols, "\n"))
	}
}
