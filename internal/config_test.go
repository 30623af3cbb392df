package internal

import "testing"

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.App.HTTP.Address() != ":8080" {
		t.Errorf("address = %q", cfg.App.HTTP.Address())
	}
}

func TestHTTPConfigPortRange(t *testing.T) {
	c := HTTPConfig{Port: 0}
	if err := c.Validate(); err == nil {
		t.Error("expected error for port 0")
	}
	c.Port = 70000
	if err := c.Validate(); err == nil {
		t.Error("expected error for port 70000")
	}
	c.Port = 9090
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig(t *testing.T) {
	c := AuthConfig{}
	if err := c.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if c.Mode != AuthModeDisabled {
		t.Errorf("mode = %q", c.Mode)
	}
	if c.AuthEnabled() {
		t.Error("disabled mode must not report enabled")
	}

	c = AuthConfig{Mode: AuthModeToken}
	if err := c.Validate(); err == nil {
		t.Error("token mode without token must fail")
	}

	c = AuthConfig{Mode: AuthModeToken, Token: "secret"}
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !c.AuthEnabled() {
		t.Error("token mode must report enabled")
	}
}

func TestAgentConfigRequiresBaseURL(t *testing.T) {
	c := AgentConfig{}
	if err := c.Validate(); err == nil {
		t.Error("expected error for empty base_url")
	}
}
