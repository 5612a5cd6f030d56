package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

var testBin string

// TestMain builds the CLI binary once for every integration test below.
func TestMain(m *testing.M) {
	os.Exit(func() int {
		dir, err := os.MkdirTemp("", "wander-it-")
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to create temp dir:", err)
			return 1
		}
		defer os.RemoveAll(dir)

		bin := filepath.Join(dir, "wander_it_bin")
		if runtime.GOOS == "windows" {
			bin += ".exe"
		}
		if out, err := exec.Command("go", "build", "-o", bin, ".").CombinedOutput(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to build test binary: %v\n%s", err, out)
			return 1
		}
		testBin = bin
		return m.Run()
	}())
}

// runWander executes the built binary against a throwaway WANDER_HOME so the
// tests never touch a real cache database.
func runWander(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(testBin, args...)
	cmd.Env = append(os.Environ(), "WANDER_HOME="+t.TempDir())
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestVersionOutput(t *testing.T) {
	out, err := runWander(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v\n%s", err, out)
	}
	for _, want := range []string{"Wander version:", "Go version:", "Platform:"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q:\n%s", want, out)
		}
	}
}

func TestStaysListOnFreshInstall(t *testing.T) {
	out, err := runWander(t, "stays", "list")
	if err != nil {
		t.Fatalf("stays list failed on a fresh install: %v\n%s", err, out)
	}
	if !strings.Contains(out, "No saved stays found in the cache.") {
		t.Errorf("expected the empty-cache notice, got:\n%s", out)
	}
}

// A short --timeout must not leave a listing command hanging.
func TestTimeoutFlagKeepsListingSnappy(t *testing.T) {
	start := time.Now()
	_, err := runWander(t, "stays", "list", "-T", "500ms")
	elapsed := time.Since(start)

	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			t.Fatalf("unexpected error type: %v", err)
		}
	}
	if elapsed > 2*time.Second {
		t.Fatalf("list command took too long with the timeout flag: %v", elapsed)
	}
}

func TestInterruptExitsPromptly(t *testing.T) {
	cmd := exec.Command(testBin, "stays", "list")
	cmd.Env = append(os.Environ(), "WANDER_HOME="+t.TempDir())
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start binary: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		t.Fatalf("failed to send interrupt: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
		// Any exit code is fine; the interrupt handler exits with 1.
	case <-time.After(3 * time.Second):
		t.Fatal("process did not exit within 3s after SIGINT")
	}
}
