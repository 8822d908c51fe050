// Package filetest implements the golden-file test harness shared by
// the language packages: source files live in a testdata input
// directory and every rendered surface is compared against a golden
// file, which can be regenerated with the update flags.
package filetest

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/kylelemons/godebug/diff"
)

var testUpdateAllTests = flag.Bool("test.update-all-tests", false, "If set, sets all test.update-*-tests.")

// SourceFiles returns the names of the regular files in dir with the
// specified extension.
func SourceFiles(t *testing.T, dir, ext string) []string {
	t.Helper()

	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}

	dents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, dent := range dents {
		if !dent.Type().IsRegular() {
			continue
		}
		if ext != "" && filepath.Ext(dent.Name()) != ext {
			continue
		}
		names = append(names, dent.Name())
	}
	return names
}

// DiffGolden validates that output is the same as the content of the
// golden file goldDir/name+ext. If updateFlag is set, it rewrites the
// golden file with output instead. A missing golden file is treated as
// empty expected output.
func DiffGolden(t *testing.T, goldDir, name, ext, output string, updateFlag *bool) {
	t.Helper()

	goldFile := filepath.Join(goldDir, name+ext)
	if *updateFlag || *testUpdateAllTests {
		if err := os.WriteFile(goldFile, []byte(output), 0600); err != nil {
			t.Fatal(err)
		}
		return
	}

	wantb, err := os.ReadFile(goldFile)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	want := string(wantb)
	if testing.Verbose() {
		t.Logf("got %s:\n%s\n", ext, output)
	}
	if patch := diff.Diff(want, output); patch != "" {
		if testing.Verbose() {
			t.Logf("want %s:\n%s\n", ext, want)
		}
		t.Errorf("diff %s:\n%s\n", ext, patch)
	}
}
