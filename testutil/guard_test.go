package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recorder struct{ msg string }

func (r *recorder) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func writeGo(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestPredicates(t *testing.T) {
	cases := []struct {
		pred Predicate
		in   string
		want bool
	}{
		{Internal, "gardencore/internal/core", true},
		{Internal, "gardencore/pkg/domain", false},
		{Internal, "internal/abi", false},
		{Internal, "github.com/aws/aws-sdk-go-v2/internal/ini", false},
		{Domain, "gardencore/pkg/domain", true},
		{Domain, "gardencore/pkg/domainutil", false},
		{Transport, "github.com/labstack/echo/v4/middleware", true},
		{Transport, "github.com/labstack/echox", false},
		{Storage, "github.com/aws/aws-sdk-go-v2/service/s3", true},
		{Storage, "database/sql/driver", false},
		{Any(Domain, Exact("os")), "os", true},
		{Any(), "os", false},
		{Prefix("net"), "net/http", true},
		{Prefix("net"), "network", false},
	}
	for i, c := range cases {
		if got := c.pred(c.in); got != c.want {
			t.Fatalf("case %d: pred(%q)=%v want %v", i, c.in, got, c.want)
		}
	}
}

func TestDirectImportViolations(t *testing.T) {
	root := t.TempDir()
	writeGo(t, root, "a.go", "package a\nimport (\n\t\"fmt\"\n\t\"net/http\"\n)\nvar _ = fmt.Sprint\nvar _ = http.MethodGet\n")
	writeGo(t, root, "a_test.go", "package a\nimport \"os\"\nvar _ = os.Args\n")
	writeGo(t, filepath.Join(root, "sub"), "b.go", "package sub\nimport \"os\"\nvar _ = os.Args\n")
	writeGo(t, filepath.Join(root, "testdata"), "c.go", "package c\nimport \"os\"\nvar _ = os.Args\n")

	forbidden := Exact("net/http", "os")
	viols, err := directImportViolations(root, false, forbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "net/http (in a.go)" {
		t.Fatalf("unexpected flat violations %v", viols)
	}
	viols, err = directImportViolations(root, true, forbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 2 || viols[1] != "os (in sub/b.go)" {
		t.Fatalf("unexpected recursive violations %v", viols)
	}

	if _, err := directImportViolations(filepath.Join(root, "missing"), false, forbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
	writeGo(t, filepath.Join(root, "broken"), "x.go", "package x\nimport (\n")
	if _, err := directImportViolations(filepath.Join(root, "broken"), false, forbidden); err == nil {
		t.Fatalf("expected parse error")
	}

	AssertNoDirectImports(t, root, Exact("fmt/other"), "clean")
}

func TestFailOn(t *testing.T) {
	var r recorder
	failOn(&r, "forbidden direct imports", "none", nil)
	if r.msg != "" {
		t.Fatalf("unexpected failure %q", r.msg)
	}
	failOn(&r, "forbidden direct imports", "layering", []string{"os (in a.go)"})
	if !strings.Contains(r.msg, "(layering)") || !strings.Contains(r.msg, "os (in a.go)") {
		t.Fatalf("unexpected message %q", r.msg)
	}
}

func TestAssertNoTransitiveDependencyUsesGoList(t *testing.T) {
	old := goListDeps
	defer func() { goListDeps = old }()
	var pattern string
	goListDeps = func(p string) ([]byte, error) {
		pattern = p
		return []byte("fmt\ngardencore/pkg/domain\n\n"), nil
	}
	AssertNoTransitiveDependency(t, "./x", Internal, "pure")
	if pattern != "./x" {
		t.Fatalf("go list called with %q", pattern)
	}
}

func TestTransitiveInternalIgnoresToolchainPackages(t *testing.T) {
	old := goListDeps
	defer func() { goListDeps = old }()
	goListDeps = func(string) ([]byte, error) {
		return []byte("internal/abi\ninternal/bytealg\nruntime\nmath\ngardencore/pkg/domain\n"), nil
	}
	AssertNoTransitiveDependency(t, "./planner", Internal, "pure")
}
