package config

import (
	"strings"
	"testing"
	"time"
)

// mockBackend is an in-memory ConfigBackend for tests.
type mockBackend struct {
	data map[string]any
}

func (m mockBackend) GetString(key string) (string, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (m mockBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return 0, false, nil
	}
	return v.(int), true, nil
}

func (m mockBackend) SetString(key, val string) error { m.data[key] = val; return nil }
func (m mockBackend) SetInt(key string, val int) error { m.data[key] = val; return nil }
func (m mockBackend) Delete(key string) error          { delete(m.data, key); return nil }

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(mockBackend{data: map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4500 {
		t.Errorf("Server.Port = %d, want 4500", cfg.Server.Port)
	}
	if cfg.Generator.Backend != BackendOllama {
		t.Errorf("Generator.Backend = %q, want %q", cfg.Generator.Backend, BackendOllama)
	}
	if cfg.GeneratorTimeout() != 90*time.Second {
		t.Errorf("GeneratorTimeout = %v, want 90s", cfg.GeneratorTimeout())
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL = %q", cfg.Ollama.BaseURL)
	}
	if cfg.Ollama.Model != "llama3.1" {
		t.Errorf("Ollama.Model = %q", cfg.Ollama.Model)
	}
	if cfg.Cloud.Model != "google/gemini-2.5-flash" {
		t.Errorf("Cloud.Model = %q", cfg.Cloud.Model)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestBackendValues(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(mockBackend{data: map[string]any{
		"server.port":       5500,
		"generator.timeout": "2m",
		"ollama.model":      "qwen2.5",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5500 {
		t.Errorf("Server.Port = %d, want 5500", cfg.Server.Port)
	}
	if cfg.GeneratorTimeout() != 2*time.Minute {
		t.Errorf("GeneratorTimeout = %v, want 2m", cfg.GeneratorTimeout())
	}
	if cfg.Ollama.Model != "qwen2.5" {
		t.Errorf("Ollama.Model = %q", cfg.Ollama.Model)
	}
}

func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOCIQ_OLLAMA_MODEL", "env-model")
	t.Setenv("LOCIQ_SERVER_PORT", "6000")

	cfg, err := loadWith(mockBackend{data: map[string]any{
		"ollama.model": "file-model",
		"server.port":  5500,
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Ollama.Model != "env-model" {
		t.Errorf("Ollama.Model = %q, want env override", cfg.Ollama.Model)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want env override", cfg.Server.Port)
	}
}

func TestCloudBackendRequiresAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := loadWith(mockBackend{data: map[string]any{
		"generator.backend": "cloud",
	}})
	if err == nil {
		t.Fatal("expected error for cloud backend without API key")
	}
	if !strings.Contains(err.Error(), "LOCIQ_CLOUD_API_KEY") {
		t.Errorf("error = %q, want env var hint", err)
	}

	t.Setenv("LOCIQ_CLOUD_API_KEY", "sk-test")
	cfg, err := loadWith(mockBackend{data: map[string]any{
		"generator.backend": "cloud",
	}})
	if err != nil {
		t.Fatalf("unexpected error with API key set: %v", err)
	}
	if cfg.Cloud.APIKey != "sk-test" {
		t.Errorf("Cloud.APIKey = %q", cfg.Cloud.APIKey)
	}
}

func TestUnknownBackendRejected(t *testing.T) {
	clearEnv(t)

	_, err := loadWith(mockBackend{data: map[string]any{
		"generator.backend": "quantum",
	}})
	if err == nil || !strings.Contains(err.Error(), "generator.backend") {
		t.Errorf("err = %v, want unknown backend error", err)
	}
}

func TestInvalidTimeoutRejected(t *testing.T) {
	clearEnv(t)

	_, err := loadWith(mockBackend{data: map[string]any{
		"generator.timeout": "ninety seconds",
	}})
	if err == nil || !strings.Contains(err.Error(), "generator.timeout") {
		t.Errorf("err = %v, want timeout parse error", err)
	}
}

func TestZeroTimeoutDisablesBound(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(mockBackend{data: map[string]any{
		"generator.timeout": "0",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GeneratorTimeout() != 0 {
		t.Errorf("GeneratorTimeout = %v, want 0", cfg.GeneratorTimeout())
	}
}

func TestSecretNeverListed(t *testing.T) {
	clearEnv(t)

	cfg := defaults()
	cfg.Cloud.APIKey = "sk-secret"
	for _, ki := range ShowAll(cfg) {
		if ki.Key == "cloud.api_key" || strings.Contains(ki.Value, "sk-secret") {
			t.Errorf("secret leaked in ShowAll: %+v", ki)
		}
	}
}

func TestGetAPIToken_MintAndReuse(t *testing.T) {
	dir := t.TempDir()

	first, err := GetAPIToken(dir)
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(first))
	}

	second, err := GetAPIToken(dir)
	if err != nil {
		t.Fatalf("GetAPIToken second call: %v", err)
	}
	if first != second {
		t.Error("token not stable across calls")
	}
}
