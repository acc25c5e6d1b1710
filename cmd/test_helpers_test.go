package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/warpdl/warpbundle/pkg/bundlelib"
)

const testPlatform = "TestOS"

// captureOutput captures stdout and stderr during function execution.
func captureOutput(f func()) (stdout, stderr string) {
	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	var bufOut, bufErr bytes.Buffer
	done := make(chan struct{}, 2)
	go func() { io.Copy(&bufOut, rOut); done <- struct{}{} }()
	go func() { io.Copy(&bufErr, rErr); done <- struct{}{} }()

	f()

	wOut.Close()
	wErr.Close()
	<-done
	<-done
	os.Stdout = oldStdout
	os.Stderr = oldStderr
	rOut.Close()
	rErr.Close()

	return bufOut.String(), bufErr.String()
}

// assertContains checks if output contains the expected substring.
func assertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}

// assertNotContains checks if output does NOT contain the specified substring.
func assertNotContains(t *testing.T, output, notExpected string) {
	t.Helper()
	if strings.Contains(output, notExpected) {
		t.Errorf("expected output to NOT contain %q, got:\n%s", notExpected, output)
	}
}

// assertErrorFormat checks that error output follows the standard format:
// warpbundle: cmd[action]: msg
func assertErrorFormat(t *testing.T, output, cmd, action string) {
	t.Helper()
	pattern := "warpbundle: " + cmd + "[" + action + "]:"
	if !strings.Contains(output, pattern) {
		t.Errorf("expected error format %q, got:\n%s", pattern, output)
	}
}

func writeBundle(t *testing.T, path string, kv ...string) {
	t.Helper()
	assets := make(map[string][]byte, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		assets[kv[i]] = []byte(kv[i+1])
	}
	data, err := bundlelib.EncodeBundle(assets)
	if err != nil {
		t.Fatalf("EncodeBundle: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// makeBundlesFolder lays out a build folder for testPlatform:
// ui depends on common and fonts.1x, and fonts comes in 1x and 2x.
func makeBundlesFolder(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, testPlatform)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	writeBundle(t, filepath.Join(dir, testPlatform), bundlelib.ManifestAssetName, `bundles:
  ui:
    dependencies: [common, fonts.1x]
  common: {}
  fonts.1x: {}
  fonts.2x: {}
`)
	writeBundle(t, filepath.Join(dir, "ui"), "menu.txt", "start game", "layout.yaml", "columns: 2\n")
	writeBundle(t, filepath.Join(dir, "common"), "palette.txt", "blue")
	writeBundle(t, filepath.Join(dir, "fonts.1x"), "font.txt", "small")
	writeBundle(t, filepath.Join(dir, "fonts.2x"), "font.txt", "large")
	return root
}

// run executes the app with args and returns its stdout and stderr.
func run(t *testing.T, args ...string) (string, string) {
	t.Helper()
	var err error
	stdout, stderr := captureOutput(func() {
		err = Execute(append([]string{"warpbundle"}, args...), BuildArgs{
			Version:   "1.0.0",
			BuildType: "test",
			Date:      "today",
			Commit:    "abc123",
		})
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return stdout, stderr
}
