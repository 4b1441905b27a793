package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bedrockhome/agent/pkg/errorsx"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "home_assistant:\n  base_url: http://homeassistant:8123\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.ID != "anthropic.claude-3-5-sonnet-20240620-v1:0" {
		t.Errorf("model id = %q", cfg.Model.ID)
	}
	if cfg.Model.MaxTokens != 4096 || cfg.Model.TopK != 250 {
		t.Errorf("model defaults = %+v", cfg.Model)
	}
	if cfg.Server.Port != 8099 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Prompt.Language != "en" {
		t.Errorf("language = %q", cfg.Prompt.Language)
	}
	if !cfg.Memory.RememberConversation || cfg.Memory.RememberInteractions != 10 {
		t.Errorf("memory defaults = %+v", cfg.Memory)
	}
	if cfg.Tools.MaxIterations != 5 {
		t.Errorf("max iterations = %d", cfg.Tools.MaxIterations)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
model:
  id: meta.llama3-70b-instruct-v1:0
  temperature: 0.4
prompt:
  language: de
tools:
  max_iterations: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.ID != "meta.llama3-70b-instruct-v1:0" || cfg.Model.Temperature != 0.4 {
		t.Errorf("model = %+v", cfg.Model)
	}
	if cfg.Prompt.Language != "de" {
		t.Errorf("language = %q", cfg.Prompt.Language)
	}
	if cfg.Tools.MaxIterations != 0 {
		t.Errorf("max iterations = %d", cfg.Tools.MaxIterations)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAFROMENV")
	t.Setenv("HASS_TOKEN", "env-token")
	path := writeConfig(t, "aws:\n  access_key_id: from-file\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AWS.AccessKeyID != "AKIAFROMENV" {
		t.Errorf("access key = %q", cfg.AWS.AccessKeyID)
	}
	if cfg.Host.Token != "env-token" {
		t.Errorf("token = %q", cfg.Host.Token)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		key  string
	}{
		{"misspelled model key", "model:\n  max_tokenz: 500\n", "max_tokenz"},
		{"misspelled memory key", "memory:\n  remember_converation: false\n", "remember_converation"},
		{"stray host key", "home_assistant:\n  base_url: http://ha:8123\n  websokcet_url: ws://ha:8123/api/websocket\n", "websokcet_url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("expected unknown key error")
			}
			if !errorsx.IsConfig(err) {
				t.Errorf("expected config error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.key) {
				t.Errorf("error %q does not name the offending key", err)
			}
		})
	}
}

func TestLoadDecodesNestedSections(t *testing.T) {
	path := writeConfig(t, `
home_assistant:
  base_url: http://ha:8123
  exposed_domains:
    - light
    - climate
prompt:
  extra_attributes_to_expose:
    - fan_modes
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Host.BaseURL != "http://ha:8123" {
		t.Errorf("base url = %q", cfg.Host.BaseURL)
	}
	if len(cfg.Host.ExposedDomains) != 2 || cfg.Host.ExposedDomains[0] != "light" {
		t.Errorf("exposed domains = %v", cfg.Host.ExposedDomains)
	}
	if len(cfg.Prompt.ExtraAttributes) != 1 || cfg.Prompt.ExtraAttributes[0] != "fan_modes" {
		t.Errorf("extra attributes = %v", cfg.Prompt.ExtraAttributes)
	}
}

func TestValidateRanges(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"temperature above one", "model:\n  temperature: 1.5\n"},
		{"max_tokens too small", "model:\n  max_tokens: 50\n"},
		{"top_k zero", "model:\n  top_k: 0\n"},
		{"bad language", "prompt:\n  language: nl\n"},
		{"interactions too large", "memory:\n  remember_interactions: 50\n"},
		{"iterations too large", "tools:\n  max_iterations: 11\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errorsx.IsConfig(err) {
				t.Errorf("expected config error, got %v", err)
			}
		})
	}
}
