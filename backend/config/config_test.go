package config

import (
	"os"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoad(t *testing.T) {
	path := writeTempConfig(t, `
server:
  port: 9090
log:
  level: "debug"
  format: "json"
store:
  driver: "postgres"
  dsn: "postgres://u:p@localhost:5432/clientx"
artifacts:
  driver: "minio"
minio:
  endpoint: "localhost:9000"
  access_key: "minioadmin"
  secret_key: "minioadmin"
  bucket: "contracts"
  use_ssl: false
auth:
  jwt_secret: "test-secret"
  token_expire_hours: 48
rate_limit:
  requests: 10
  window_seconds: 30
users:
  - username: "alice"
    password: "secret"
    user_id: "u-1"
    email: "alice@x.com"
    workspaces: ["ws-1", "ws-2"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Expected debug/json logging, got %s/%s", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Store.Driver != StorePostgres {
		t.Errorf("Expected store driver postgres, got %s", cfg.Store.Driver)
	}
	if cfg.Artifacts.Driver != ArtifactsMinio {
		t.Errorf("Expected artifacts driver minio, got %s", cfg.Artifacts.Driver)
	}
	if cfg.Auth.TokenExpireHours != 48 {
		t.Errorf("Expected token_expire_hours 48, got %d", cfg.Auth.TokenExpireHours)
	}
	if cfg.RateLimit.Requests != 10 || cfg.RateLimit.WindowSeconds != 30 {
		t.Errorf("Expected rate limit 10/30s, got %d/%ds", cfg.RateLimit.Requests, cfg.RateLimit.WindowSeconds)
	}
	if len(cfg.Users) != 1 {
		t.Fatalf("Expected 1 user, got %d", len(cfg.Users))
	}
	if cfg.Users[0].UserID != "u-1" || len(cfg.Users[0].Workspaces) != 2 {
		t.Errorf("Unexpected user %+v", cfg.Users[0])
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeTempConfig(t, `
users:
  - username: "bob"
    password: "pw"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Expected default log format text, got %s", cfg.Log.Format)
	}
	if cfg.Store.Driver != StoreMemory {
		t.Errorf("Expected default store driver memory, got %s", cfg.Store.Driver)
	}
	if cfg.Artifacts.Driver != ArtifactsLocal || cfg.Artifacts.LocalDir != "./data" {
		t.Errorf("Expected default local artifacts in ./data, got %s %s", cfg.Artifacts.Driver, cfg.Artifacts.LocalDir)
	}
	if cfg.Auth.TokenExpireHours != 24 {
		t.Errorf("Expected default token_expire_hours 24, got %d", cfg.Auth.TokenExpireHours)
	}
	if cfg.RateLimit.Requests != 100 || cfg.RateLimit.WindowSeconds != 60 {
		t.Errorf("Expected default rate limit 100/60s, got %d/%ds", cfg.RateLimit.Requests, cfg.RateLimit.WindowSeconds)
	}
	if cfg.Users[0].UserID != "bob" {
		t.Errorf("Expected user_id to default to username, got %s", cfg.Users[0].UserID)
	}
}

func TestLoadInvalidDrivers(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{"unknown store", "store:\n  driver: mongo\n", "store.driver"},
		{"postgres without dsn", "store:\n  driver: postgres\n", "store.dsn"},
		{"unknown artifacts", "artifacts:\n  driver: s3\n", "artifacts.driver"},
		{"minio without endpoint", "artifacts:\n  driver: minio\n", "minio.endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("Expected error mentioning %q, got %v", tt.errPart, err)
			}
		})
	}
}

func TestLoadNonExistent(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeTempConfig(t, "invalid: yaml: content:"))
	if err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestFindUser(t *testing.T) {
	cfg := &Config{
		Users: []User{
			{Username: "user1", Password: "pass1", UserID: "u1"},
			{Username: "user2", Password: "pass2", UserID: "u2"},
		},
	}

	user := cfg.FindUser("user1")
	if user == nil {
		t.Fatal("Expected to find user1")
	}
	if user.Password != "pass1" {
		t.Errorf("Expected password pass1, got %s", user.Password)
	}

	user = cfg.FindUser("nonexistent")
	if user != nil {
		t.Error("Expected nil for non-existent user")
	}
}
