package configutil

import "testing"

func TestDecodeSettingsKeyNormalization(t *testing.T) {
	var out struct {
		BaseURL string `mapstructure:"base_url"`
		TopK    int    `mapstructure:"top_k"`
	}
	err := DecodeSettings(map[string]any{
		"base-url": "http://example",
		"TopK":     "250",
	}, &out)
	if err != nil {
		t.Fatalf("DecodeSettings: %v", err)
	}
	if out.BaseURL != "http://example" {
		t.Errorf("base url = %q", out.BaseURL)
	}
	if out.TopK != 250 {
		t.Errorf("top k = %d", out.TopK)
	}
}

func TestValidators(t *testing.T) {
	if err := RequireString("", "model.id"); err == nil {
		t.Error("empty required string must fail")
	}
	if err := IntInRange(500, 1, 500, "top_k"); err != nil {
		t.Errorf("inclusive upper bound: %v", err)
	}
	if err := IntInRange(501, 1, 500, "top_k"); err == nil {
		t.Error("out of range int must fail")
	}
	if err := FloatInRange(1.01, 0, 1, "temperature"); err == nil {
		t.Error("out of range float must fail")
	}
	if err := OneOf("de", []string{"en", "de"}, "language"); err != nil {
		t.Errorf("member: %v", err)
	}
	if err := OneOf("nl", []string{"en", "de"}, "language"); err == nil {
		t.Error("non-member must fail")
	}
}
