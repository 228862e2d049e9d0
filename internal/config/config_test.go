package config

import (
	"testing"
	"time"
)

func TestValidateProductionRequiresAuth(t *testing.T) {
	cfg := &Config{Env: "production"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation failure without JWT_SECRET")
	}

	cfg.JWTSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error with JWT_SECRET set: %v", err)
	}
}

func TestValidateIssuerAloneIsNotEnough(t *testing.T) {
	// The issuer claim only constrains who a token says it is from; without a
	// signing secret any token verifies.
	cfg := &Config{Env: "production", AuthIssuer: "https://issuer.example.com"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation failure with AUTH_ISSUER but no JWT_SECRET")
	}
}

func TestValidateDevAllowsNoAuth(t *testing.T) {
	cfg := &Config{Env: "development"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("development mode must not require auth config, got %v", err)
	}
}

func TestValidateRejectsInvertedRiskThresholds(t *testing.T) {
	cfg := &Config{Env: "development", RiskModerateMin: 10, RiskHighMin: 5}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation failure for RISK_HIGH_MIN below RISK_MODERATE_MIN")
	}
}

func TestFlowConfigDefaults(t *testing.T) {
	cfg := &Config{}
	fc := cfg.FlowConfig()
	if fc.RiskModerateMin != 10 || fc.RiskHighMin != 15 {
		t.Errorf("expected engine defaults, got moderate=%g high=%g", fc.RiskModerateMin, fc.RiskHighMin)
	}
}

func TestFlowConfigOverrides(t *testing.T) {
	cfg := &Config{
		RiskHighMin:       20,
		PainThreshold:     5,
		MinResponseMillis: 1500,
	}
	fc := cfg.FlowConfig()
	if fc.RiskHighMin != 20 {
		t.Errorf("RiskHighMin override not applied, got %g", fc.RiskHighMin)
	}
	if fc.PainThreshold != 5 {
		t.Errorf("PainThreshold override not applied, got %g", fc.PainThreshold)
	}
	if fc.MinResponseTime != 1500*time.Millisecond {
		t.Errorf("MinResponseTime override not applied, got %v", fc.MinResponseTime)
	}
	// Untouched values keep the engine defaults.
	if fc.MoodThreshold != 2 {
		t.Errorf("expected default MoodThreshold 2, got %g", fc.MoodThreshold)
	}
}

func TestSessionTTL(t *testing.T) {
	cfg := &Config{SessionTTLMinutes: 45}
	if got := cfg.SessionTTL(); got != 45*time.Minute {
		t.Errorf("expected 45m, got %v", got)
	}
}
