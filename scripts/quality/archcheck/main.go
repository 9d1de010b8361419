package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePrefix = "botharness/"

type listedPackage struct {
	ImportPath   string
	Imports      []string
	TestImports  []string
	XTestImports []string
}

func main() {
	packages, err := listPackages()
	if err != nil {
		fmt.Fprintf(os.Stderr, "arch-check: %v\n", err)
		os.Exit(1)
	}

	violations := collectViolations(packages)
	if len(violations) == 0 {
		_, _ = fmt.Fprintf(os.Stdout, "arch-check: passed\n")
		return
	}

	_, _ = fmt.Fprintf(os.Stdout, "arch-check: architecture violations:\n")
	for _, violation := range violations {
		_, _ = fmt.Fprintf(os.Stdout, "  - %s\n", violation)
	}
	os.Exit(1)
}

func listPackages() ([]listedPackage, error) {
	cmd := exec.Command("go", "list", "-json", "-test", "./...")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("go list -json -test ./...: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(stdout.Bytes()))
	result := make([]listedPackage, 0, 64)
	for {
		var pkg listedPackage
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode go list output: %w", err)
		}
		if pkg.ImportPath == "" {
			continue
		}
		result = append(result, pkg)
	}

	return result, nil
}

func collectViolations(packages []listedPackage) []string {
	found := make(map[string]struct{})

	for _, pkg := range packages {
		production := !isTestVariant(pkg.ImportPath)
		for _, imported := range pkg.Imports {
			record(found, pkg.ImportPath, imported, production)
		}
		for _, imported := range append(append([]string{}, pkg.TestImports...), pkg.XTestImports...) {
			record(found, pkg.ImportPath, imported, false)
		}
	}

	violations := make([]string, 0, len(found))
	for violation := range found {
		violations = append(violations, violation)
	}
	sort.Strings(violations)

	return violations
}

func record(found map[string]struct{}, importer, imported string, production bool) {
	reason := violationReason(importer, imported, production)
	if reason == "" {
		return
	}
	found[fmt.Sprintf("%s -> %s (%s)", basePath(importer), imported, reason)] = struct{}{}
}

// isTestVariant reports whether go list produced path for a test build,
// such as "p [p.test]" or "p.test".
func isTestVariant(path string) bool {
	return strings.Contains(path, " [") || strings.HasSuffix(path, ".test")
}

func basePath(path string) string {
	if idx := strings.Index(path, " ["); idx >= 0 {
		return path[:idx]
	}

	return path
}

// violationReason returns the broken layering rule, or "" when importer may
// import imported. Production imports are those compiled into the package
// itself, outside its tests.
func violationReason(importer, imported string, production bool) string {
	importer = basePath(importer)

	if strings.HasPrefix(importer, modulePrefix+"pkg/") &&
		strings.HasPrefix(imported, modulePrefix+"internal/") {
		return "pkg/* must not import internal/*"
	}

	if strings.HasPrefix(importer, modulePrefix+"pkg/") &&
		strings.HasPrefix(imported, modulePrefix+"modules/") {
		return "pkg/* must not import modules/*"
	}

	if strings.HasPrefix(importer, modulePrefix+"pkg/dispatch") &&
		strings.HasPrefix(imported, modulePrefix+"pkg/bottest") {
		return "pkg/dispatch must not import pkg/bottest"
	}

	if strings.HasPrefix(importer, modulePrefix+"modules/") &&
		strings.HasPrefix(imported, modulePrefix+"internal/") {
		return "modules/* must not import internal/*"
	}

	if production &&
		strings.HasPrefix(importer, modulePrefix+"modules/") &&
		strings.HasPrefix(imported, modulePrefix+"pkg/bottest") {
		return "modules/* may import pkg/bottest only from tests"
	}

	return ""
}
