package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestParseEnvFile(t *testing.T) {
	content := "\uFEFFAPP_TEST_BOM_KEY=from-file\n" +
		"# a comment\n" +
		"\n" +
		"export APP_TEST_EXPORT_KEY='quoted value'\n" +
		"APP_TEST_EXISTING_KEY=file-value\n" +
		"not a key value line\n"

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	for _, key := range []string{"APP_TEST_BOM_KEY", "APP_TEST_EXPORT_KEY"} {
		os.Unsetenv(key)
		t.Cleanup(func() { os.Unsetenv(key) })
	}
	t.Setenv("APP_TEST_EXISTING_KEY", "env-value")

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open env file: %v", err)
	}
	defer file.Close()

	if err := parseEnvFile(zap.NewNop(), file); err != nil {
		t.Fatalf("parse env file: %v", err)
	}

	// The leading byte-order mark must not corrupt the first key.
	if got := os.Getenv("APP_TEST_BOM_KEY"); got != "from-file" {
		t.Fatalf("expected from-file, got %q", got)
	}
	if got := os.Getenv("APP_TEST_EXPORT_KEY"); got != "quoted value" {
		t.Fatalf("expected quoted value, got %q", got)
	}
	if got := os.Getenv("APP_TEST_EXISTING_KEY"); got != "env-value" {
		t.Fatalf("existing environment must win, got %q", got)
	}
}

func TestGetenvDuration(t *testing.T) {
	logger := zap.NewNop()

	t.Setenv("APP_TEST_DURATION", "250ms")
	if got := GetenvDuration(logger, "APP_TEST_DURATION", time.Second); got != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %v", got)
	}

	t.Setenv("APP_TEST_DURATION", "not-a-duration")
	if got := GetenvDuration(logger, "APP_TEST_DURATION", time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
}
