package testutil

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

// WriteFile writes content to a file in the given directory.
// It creates parent directories as needed and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ReadFile reads a file and returns its contents.
// It fails the test if the file cannot be read.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// FileExists checks if a file exists.
func FileExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	return err == nil
}

// WaitFor polls cond every 5ms until it holds, failing the test after timeout.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// AssertCalled verifies that a command was called with the expected args.
func AssertCalled(t *testing.T, mock *MockRunner, name string, args ...string) {
	t.Helper()
	calls := mock.GetCalls()
	for _, call := range calls {
		if call.Name == name && slices.Equal(call.Args, args) {
			return
		}
	}
	t.Errorf("expected call to %s %v not found in %v", name, args, calls)
}

// AssertNotCalled verifies that a command was NOT called.
func AssertNotCalled(t *testing.T, mock *MockRunner, name string) {
	t.Helper()
	for _, call := range mock.GetCalls() {
		if call.Name == name {
			t.Errorf("unexpected call to %s found: %v", name, call)
			return
		}
	}
}

// AssertCallCount verifies the number of times a command was called.
func AssertCallCount(t *testing.T, mock *MockRunner, name string, expected int) {
	t.Helper()
	count := 0
	calls := mock.GetCalls()
	for _, call := range calls {
		if call.Name == name {
			count++
		}
	}
	if count != expected {
		t.Errorf("expected %d calls to %s, got %d (calls: %v)", expected, name, count, calls)
	}
}

// SetupDataDir creates a data directory, optionally seeded with a state
// document, and returns its path.
func SetupDataDir(t *testing.T, stateJSON string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "cactus")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if stateJSON != "" {
		WriteFile(t, dir, "cactus.json", stateJSON)
	}
	return dir
}
