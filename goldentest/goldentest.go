// Copyright (c) the Jenkins project contributors.
// Licensed under the MIT License.

// Package goldentest compares formatted results (serialized matrices, rendered
// configuration files) against golden files stored in testdata.
package goldentest

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

// update is registered when this package is initialized and can be set with
// "go test . -update".
//
// "go test ./... -update" fails noisily in packages that don't import
// goldentest and therefore don't know the flag. For that reason Check also
// accepts "go test ./... -args update".
var update = flag.Bool("update", false, "Update the golden files instead of failing.")

// Check looks for a file at testdata/{t.Name()}/[goldenPath], compares
// [actual] against its content, and fails the test on a mismatch. If
// "-update" or "-args update" is passed to "go test", writes [actual] to the
// file instead of failing.
func Check(t *testing.T, goldenPath, actual string) {
	t.Helper()

	if slices.Contains(flag.Args(), "update") {
		*update = true
	}

	path := filepath.Join("testdata", t.Name(), goldenPath)

	if *update {
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(actual), 0o666); err != nil {
			t.Fatal(err)
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	runHelp := fmt.Sprintf(
		"To regenerate all golden files, run in the module root: "+
			"go test ./... -args update\n"+
			"To regenerate just this test's golden file, run: "+
			"go test '%v' -run '^%v$' -update",
		wd, t.Name())

	want, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("Unable to read golden file: %v.\n%v", err, runHelp)
	} else if actual != string(want) {
		t.Errorf("Actual result didn't match golden file. Regenerate the golden file and examine the Git diff to determine if the change is acceptable.\n%v", runHelp)
	}
}
