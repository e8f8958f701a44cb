// Command catalog-check validates plant catalog files before they are imported.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gardencore/internal/catalog"
	"gardencore/pkg/domain"
)

var exitFunc = os.Exit

// main runs cli with the program arguments and exits with its status code.
func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("catalog-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		pattern string
		strict  bool
	)
	fs.StringVar(&pattern, "catalog", catalog.DefaultPath, "catalog file or doublestar pattern")
	fs.BoolVar(&strict, "strict", false, "treat advisory findings as failures")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	findings, files, count, err := run(pattern)
	if err != nil {
		if _, writeErr := fmt.Fprintf(stderr, "Catalog validation failed: %v\n", err); writeErr != nil {
			return 1
		}
		return 1
	}
	for _, f := range findings {
		if _, writeErr := fmt.Fprintf(stdout, "warning: %s\n", f); writeErr != nil {
			return 1
		}
	}
	if strict && len(findings) > 0 {
		if _, writeErr := fmt.Fprintf(stderr, "Catalog validation failed: %d advisory findings in strict mode\n", len(findings)); writeErr != nil {
			return 1
		}
		return 1
	}
	if _, writeErr := fmt.Fprintf(stdout, "Catalog validation passed: %d plants in %d files.\n", count, files); writeErr != nil {
		return 1
	}
	return 0
}

// run loads every file matching pattern and returns advisory findings for
// records that load but would score poorly or be skipped by designers.
func run(pattern string) (findings []string, files, plants int, err error) {
	all, paths, err := catalog.LoadGlob(pattern)
	if err != nil {
		return nil, 0, 0, err
	}
	for _, p := range all {
		findings = append(findings, advise(p)...)
	}
	return findings, len(paths), len(all), nil
}

func advise(p domain.Plant) []string {
	var out []string
	if len(p.NativeRange) == 0 {
		out = append(out, p.ScientificName+": no native_range")
	}
	if p.CommonName == "" {
		out = append(out, p.ScientificName+": no common_name")
	}
	for _, s := range p.SunExposure {
		if !knownSun(s) {
			out = append(out, fmt.Sprintf("%s: unknown sun_exposure %q", p.ScientificName, s))
		}
	}
	for _, f := range p.SpecialFeatures {
		if strings.EqualFold(f, "invasive") {
			out = append(out, p.ScientificName+": tagged invasive")
		}
	}
	return out
}

func knownSun(s domain.SunExposure) bool {
	for _, k := range domain.SunExposures {
		if s == k {
			return true
		}
	}
	return false
}
