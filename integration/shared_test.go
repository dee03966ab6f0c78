//go:build basic || database

package integration

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
)

var (
	// sharedRadarPath holds the path to a shared radar binary built once for all tests.
	sharedRadarPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getRadarBinary returns the path to the radar binary, building it once if needed.
func getRadarBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "radar-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		radarPath := filepath.Join(tempDir, "radar")
		buildCmd := exec.Command("go", "build", "-o", radarPath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if err := buildCmd.Run(); err != nil {
			panic(fmt.Sprintf("failed to build radar: %v", err))
		}

		sharedRadarPath = radarPath
	})

	return sharedRadarPath
}

// fixture returns the absolute path of a file under testdata.
func fixture(t *testing.T, name string) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to resolve fixture %s: %v", name, err)
	}
	return path
}

// runRadar runs the radar binary and returns its stdout and stderr.
// Tests point HOME at a scratch directory so default SQLite files stay isolated.
func runRadar(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command(getRadarBinary(), args...)
	cmd.Dir = t.TempDir()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		t.Logf("Command failed: %s\nStdout: %s\nStderr: %s", cmd.String(), stdout.String(), stderr.String())
	}
	return stdout.String(), stderr.String(), err
}

// forecastArgs returns the arguments of a forecast over the fixtures.
func forecastArgs(t *testing.T, extra ...string) []string {
	t.Helper()
	args := []string{
		"forecast",
		"--accounts", fixture(t, "accounts.csv"),
		"--touchpoints", fixture(t, "touchpoints.csv"),
		"--cutoff", "2024-06-01",
	}
	return append(args, extra...)
}
