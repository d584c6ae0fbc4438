package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-gather/internal/auth"
)

const testSecret = "test-secret-for-development-only-0123456789"

// writeConfig writes a minimal valid config and returns its path.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
site:
  id: test-site

database:
  path: "` + filepath.Join(dir, "gather.db") + `"

security:
  jwt:
    secret: "` + testSecret + `"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestParseFlags(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv(configEnv, "")
		opts, err := parseFlags(nil)
		if err != nil {
			t.Fatalf("parseFlags: %v", err)
		}
		if opts.configPath != defaultConfigPath || opts.role != string(auth.RoleOperator) || opts.tokenTTL != 24*time.Hour {
			t.Errorf("opts = %+v", opts)
		}
	})

	t.Run("env config path", func(t *testing.T) {
		t.Setenv(configEnv, "/etc/graylogic/gather.yaml")
		opts, err := parseFlags(nil)
		if err != nil {
			t.Fatalf("parseFlags: %v", err)
		}
		if opts.configPath != "/etc/graylogic/gather.yaml" {
			t.Errorf("configPath = %q", opts.configPath)
		}
	})

	t.Run("flag beats env", func(t *testing.T) {
		t.Setenv(configEnv, "/etc/graylogic/gather.yaml")
		opts, err := parseFlags([]string{"-c", "local.yaml", "--issue-token", "ha", "--role", "admin", "--ttl", "1h"})
		if err != nil {
			t.Fatalf("parseFlags: %v", err)
		}
		if opts.configPath != "local.yaml" || opts.issueToken != "ha" || opts.role != "admin" || opts.tokenTTL != time.Hour {
			t.Errorf("opts = %+v", opts)
		}
	})

	t.Run("unknown flag", func(t *testing.T) {
		if _, err := parseFlags([]string{"--knx"}); err == nil {
			t.Error("expected error for unknown flag")
		}
	})
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"--version"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "graylogic-gather dev") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, []string{"--config", "/nonexistent/path/config.yaml"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config error", err)
	}
}

func TestRun_MissingSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("site:\n  id: test-site\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GRAYLOGIC_GATHER_JWT_SECRET", "")

	err := run(context.Background(), []string{"--config", path}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "security.jwt.secret") {
		t.Errorf("run() error = %v, want jwt secret validation error", err)
	}
}

func TestRun_IssueToken(t *testing.T) {
	path := writeConfig(t)

	var out bytes.Buffer
	err := run(context.Background(), []string{"--config", path, "--issue-token", "home-assistant", "--role", "admin"}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	claims, err := auth.ParseToken(strings.TrimSpace(out.String()), testSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "home-assistant" || claims.Role != auth.RoleAdmin {
		t.Errorf("claims = %+v", claims)
	}
}

func TestRun_IssueToken_BadRole(t *testing.T) {
	path := writeConfig(t)

	err := run(context.Background(), []string{"--config", path, "--issue-token", "ha", "--role", "owner"}, &bytes.Buffer{})
	if !errors.Is(err, auth.ErrInvalidRole) {
		t.Errorf("run() error = %v, want ErrInvalidRole", err)
	}
}

func TestRun_NoBroker(t *testing.T) {
	path := writeConfig(t)
	t.Setenv("GRAYLOGIC_GATHER_MQTT_HOST", "127.0.0.1")

	// Port 1 is never an MQTT broker: startup must fail after the database
	// is migrated, without hanging.
	cfg := []byte("\nmqtt:\n  broker:\n    port: 1\n")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(cfg); err != nil {
		t.Fatal(err)
	}
	f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = run(ctx, []string{"--config", path}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "connecting to MQTT") {
		t.Errorf("run() error = %v, want MQTT connection error", err)
	}
	if _, statErr := os.Stat(filepath.Join(filepath.Dir(path), "gather.db")); statErr != nil {
		t.Errorf("database not created: %v", statErr)
	}
}
