package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"expensetracker/internal/config"
)

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&config.Config{LogLevel: "warn", LogFormat: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("expected JSON output, got %q", out)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("EXPENSETRACKER_TEST_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EXPENSETRACKER_TEST_KEY", "")
	os.Unsetenv("EXPENSETRACKER_TEST_KEY")

	LoadEnvFile(path)

	if got := os.Getenv("EXPENSETRACKER_TEST_KEY"); got != "from-file" {
		t.Errorf("EXPENSETRACKER_TEST_KEY = %q, want from-file", got)
	}
}

func TestLoadEnvFileDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("EXPENSETRACKER_TEST_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EXPENSETRACKER_TEST_KEY", "from-env")

	LoadEnvFile(path)

	if got := os.Getenv("EXPENSETRACKER_TEST_KEY"); got != "from-env" {
		t.Errorf("EXPENSETRACKER_TEST_KEY = %q, want from-env", got)
	}
}

func TestSignalContextCancel(t *testing.T) {
	ctx, cancel := SignalContext(context.Background(), SetupLogger(nil, &bytes.Buffer{}))
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
}
