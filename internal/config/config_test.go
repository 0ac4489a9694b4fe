package config_test

import (
	"testing"

	"github.com/mdp211/flowmeter-monitor/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServiceName != "flowmeter-monitor" {
		t.Errorf("Expected default service name, got %s", cfg.ServiceName)
	}
	if cfg.ServicePort != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.ServicePort)
	}
	if cfg.Push.Enabled() {
		t.Error("Expected push delivery disabled without endpoint or project id")
	}
	if cfg.Push.TimeoutSeconds != 10 {
		t.Errorf("Expected default push timeout 10s, got %d", cfg.Push.TimeoutSeconds)
	}
}

func TestLoad_PostgresBackendRequiresDatabaseURL(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := config.Load(); err == nil {
		t.Error("Expected error when DATABASE_URL is missing for postgres backend")
	}
}

func TestLoad_RedisBackendRequiresAddr(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "")

	if _, err := config.Load(); err == nil {
		t.Error("Expected error when REDIS_ADDR is missing for redis backend")
	}
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "cassandra")

	if _, err := config.Load(); err == nil {
		t.Error("Expected error for unknown store backend")
	}
}

func TestLoad_DerivesEndpointFromProjectID(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("FCM_PROJECT_ID", "my-project")
	t.Setenv("PUSH_CLIENT_ID", "client")
	t.Setenv("PUSH_CLIENT_SECRET", "secret")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	expected := "https://fcm.googleapis.com/v1/projects/my-project/messages:send"
	if cfg.Push.Endpoint != expected {
		t.Errorf("Expected derived endpoint %s, got %s", expected, cfg.Push.Endpoint)
	}
	if !cfg.Push.Enabled() {
		t.Error("Expected push delivery enabled with derived endpoint")
	}
}

func TestLoad_PushRequiresClientCredentials(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("PUSH_ENDPOINT", "https://push.example.com/send")
	t.Setenv("PUSH_CLIENT_ID", "")
	t.Setenv("PUSH_CLIENT_SECRET", "")

	if _, err := config.Load(); err == nil {
		t.Error("Expected error when push endpoint is set without client credentials")
	}
}
