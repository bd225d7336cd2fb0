package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/access-system/face-recognition-enrollment/internal/testsupport"
)

func TestConfigInitValidateShow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "hunter2"
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"config", "validate"}, "", configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, configPath)

	out, _, err = runCLI(t, []string{"config", "show"}, "", configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "<redacted>")
	if strings.Contains(out, "hunter2") {
		t.Fatalf("config show leaked the api token:\n%s", out)
	}

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "", ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestPreflightCommandReportsFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRegistryURL("http://127.0.0.1:1"))
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	t.Setenv("PATH", t.TempDir())

	out, _, err := runCLI(t, []string{"preflight"}, "", configPath)
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	requireContains(t, out, "== Preflight ==")
	requireContains(t, out, "State directory:")
	requireContains(t, out, "[ERROR]")
}
