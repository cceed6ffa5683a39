// Package winmdtest locates the Windows.Win32.winmd file bundled with the
// go-winmd module for tests that read real metadata.
package winmdtest

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

const modulePath = "github.com/microsoft/go-winmd"

// Path returns the bundled metadata file, skipping t when the go-winmd module
// source is not in the module cache.
func Path(t testing.TB) string {
	t.Helper()

	out, err := exec.Command("go", "list", "-m", "-f", "{{.Dir}}", modulePath).Output()
	if err != nil {
		t.Skipf("locating %s: %v", modulePath, err)
	}
	dir := strings.TrimSpace(string(out))
	if dir == "" {
		t.Skipf("%s has no source directory", modulePath)
	}

	path := filepath.Join(dir, "testdata", "Windows.Win32.winmd")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("metadata file: %v", err)
	}
	return path
}
