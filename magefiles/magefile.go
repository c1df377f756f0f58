//go:build mage

// Package main contains Mage build targets for scinode developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir     = "bin"
	binName    = "scinode"
	cmdPkg     = "./cmd/scinode"
	samplesDir = "samples"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	ldflags := "-X main.version=" + strings.TrimSpace(version)
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Vet runs go vet on every package.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Test runs the unit tests with the race detector after vetting.
func Test() error {
	mg.Deps(Vet)
	return sh.RunV("go", "test", "-race", "./...")
}

// sampleFiles are written by Init for trying the CLI.
var sampleFiles = map[string]string{
	"link-block.yaml": `format: scinode-tree
node:
  name: LINK BLOCK
  parameters:
    - {key: TITLE, value: Demo link block}
    - {key: JCAMP-DX, value: "5.01"}
  metadata: {origin: sample}
  children:
    - name: IR SPECTRUM
      parameters:
        - {key: DATA TYPE, value: INFRARED SPECTRUM}
      data:
        - {x: 450.0, y: 0.10}
        - {x: 451.5, y: 0.125}
        - {x: 453.0, y: 0.18}
      children:
        - name: PEAK TABLE
          table:
            columnNames:
              - {key: x, value: Peak Position}
              - {key: y, value: Intensity}
            rows:
              - {x: "451.5", y: "0.125"}
    - name: NMR SPECTRUM
      data:
        - {x: 1.2, y: 3.4}
`,
	"single.json": `{
  "format": "scinode-tree",
  "node": {"name": "single", "parameters": [{"key": "TITLE", "value": "one node"}]}
}
`,
	"notes.txt": "Not a recognized format.\n",
	"scinode.yaml": `stage:
  work_dir: /work
  backend: memory
walk:
  max_depth: 64
worker:
  jobs: 2
  queue: 64
store:
  path: samples/history.db
output:
  format: text
`,
}

// Init writes sample documents and a config file into samples/.
func Init() error {
	if err := os.MkdirAll(samplesDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", samplesDir, err)
	}
	for name, content := range sampleFiles {
		path := filepath.Join(samplesDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Println("  ", path)
	}
	fmt.Println("Samples written. Try: scinode read --config samples/scinode.yaml samples/*")
	return nil
}

// Stats prints project metrics: Go production/test LOC and documentation word count.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}
	docWords, err := countDocWords(".")
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	fmt.Printf("Words (documentation):           %d\n", docWords)
	return nil
}

// skipDir reports directories Stats does not descend into.
func skipDir(name string) bool {
	return name != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == binDir)
}

// countGoLines walks the directory tree and counts non-blank lines in Go files.
// If testOnly is true, count only _test.go files; otherwise count non-test .go files.
func countGoLines(root string, testOnly bool) (int, error) {
	total := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		if strings.HasSuffix(path, "_test.go") != testOnly {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				total++
			}
		}
		return nil
	})
	return total, err
}

// countDocWords counts words in the Markdown files at the top of root.
func countDocWords(root string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(root, "*.md"))
	if err != nil {
		return 0, err
	}
	total := 0
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("reading %s: %w", path, err)
		}
		total += len(strings.Fields(string(data)))
	}
	return total, nil
}
