// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "regform-scan.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoadConfigOrDefault_NoFile(t *testing.T) {
	cfg := LoadConfigOrDefault("")
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.Defaults.Format == "" {
		t.Error("expected default format to be set")
	}
}

func TestLoadConfigOrDefault_NonexistentFile(t *testing.T) {
	cfg := LoadConfigOrDefault("/nonexistent/path/config.yaml")
	if cfg == nil {
		t.Fatal("expected non-nil config (fallback to defaults)")
	}
}

func TestLoadConfigOrDefault_ValidFile(t *testing.T) {
	configPath := writeConfig(t, `
defaults:
  format: json
  confidence_levels: high
  region: fl
limits:
  pass_timeout: 750ms
classifier:
  acceptance_threshold: 30
`)

	cfg := LoadConfigOrDefault(configPath)
	if cfg.Defaults.Format != "json" {
		t.Errorf("expected format=json, got %q", cfg.Defaults.Format)
	}
	if cfg.Defaults.ConfidenceLevels != "high" {
		t.Errorf("expected confidence_levels=high, got %q", cfg.Defaults.ConfidenceLevels)
	}
	if cfg.Limits.PassTimeout != 750*time.Millisecond {
		t.Errorf("expected pass_timeout=750ms, got %v", cfg.Limits.PassTimeout)
	}
	if cfg.Limits.MaxFields != 300 {
		t.Errorf("expected untouched max_fields to keep its default, got %d", cfg.Limits.MaxFields)
	}
	if cfg.Classifier.AcceptanceThreshold != 30 {
		t.Errorf("expected acceptance_threshold=30, got %d", cfg.Classifier.AcceptanceThreshold)
	}
	if !cfg.Host.Headless {
		t.Error("expected headless to stay true when not set in the file")
	}
}

func TestLoadConfig_ExplicitFalseBoolKept(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "host:\n  headless: false\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Host.Headless {
		t.Error("expected headless=false from the file")
	}
}

func TestLoadConfigOrDefault_InvalidYAML(t *testing.T) {
	cfg := LoadConfigOrDefault(writeConfig(t, ":::invalid yaml:::"))
	if cfg == nil {
		t.Fatal("expected non-nil config (fallback to defaults on parse error)")
	}
}

func TestLoadConfig_RejectsOutOfRangeValues(t *testing.T) {
	cases := map[string]string{
		"format":    "defaults:\n  format: sarif\n",
		"threshold": "classifier:\n  acceptance_threshold: 120\n",
		"gate":      "readiness:\n  min_classification_rate: 1.5\n",
		"profile":   "profiles:\n  custom:\n    readiness:\n      min_average_confidence: 300\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, content)); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults.Format != "text" {
		t.Errorf("expected default format=text, got %q", cfg.Defaults.Format)
	}
	if cfg.Defaults.ConfidenceLevels != "all" {
		t.Errorf("expected default confidence_levels=all, got %q", cfg.Defaults.ConfidenceLevels)
	}
	if cfg.Scanner.Debounce != 250*time.Millisecond {
		t.Errorf("expected default debounce=250ms, got %v", cfg.Scanner.Debounce)
	}
	if cfg.Readiness.MinClassificationRate != 0.6 {
		t.Errorf("expected default classification gate 0.6, got %v", cfg.Readiness.MinClassificationRate)
	}
}

func TestLoadConfig_ProfilesInitialized(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := cfg.ListProfiles()
	if len(got) != 2 || got[0] != "lenient" || got[1] != "strict" {
		t.Errorf("expected [lenient strict], got %v", got)
	}
	if cfg.GetProfile("missing") != nil {
		t.Error("expected nil for an unknown profile")
	}
}

func TestWithProfile_OverridesOnlyWhatItNames(t *testing.T) {
	cfg := Default()
	strict := cfg.WithProfile(cfg.GetProfile("strict"))

	if strict.Classifier.AcceptanceThreshold != 35 {
		t.Errorf("expected strict threshold 35, got %d", strict.Classifier.AcceptanceThreshold)
	}
	if strict.Readiness.MinAverageConfidence != 70 {
		t.Errorf("expected strict confidence gate 70, got %v", strict.Readiness.MinAverageConfidence)
	}
	if len(strict.Readiness.CriticalCategories) != 3 {
		t.Errorf("expected critical categories inherited, got %v", strict.Readiness.CriticalCategories)
	}
	if strict.Sections != cfg.Sections {
		t.Error("expected section options untouched by the strict profile")
	}
	if cfg.Classifier.AcceptanceThreshold != 25 {
		t.Errorf("base config mutated: threshold %d", cfg.Classifier.AcceptanceThreshold)
	}

	same := cfg.WithProfile(nil)
	if same.Readiness.MinDiversity != cfg.Readiness.MinDiversity {
		t.Error("expected nil profile to leave gates unchanged")
	}
}
