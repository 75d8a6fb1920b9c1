// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"regform-scan/internal/classifier"
	"regform-scan/internal/paths"
	"regform-scan/internal/readiness"
	"regform-scan/internal/sections"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Format           string `yaml:"format"`
		ConfidenceLevels string `yaml:"confidence_levels"`
		Debug            bool   `yaml:"debug"`
		NoColor          bool   `yaml:"no_color"`
		Region           string `yaml:"region"`
	} `yaml:"defaults"`

	// Pattern knowledge location
	Knowledge struct {
		DataDir     string `yaml:"data_dir"`
		MinCoverage int    `yaml:"min_coverage"`
	} `yaml:"knowledge"`

	Limits struct {
		PassTimeout     time.Duration `yaml:"pass_timeout"`
		MaxControls     int           `yaml:"max_controls"`
		MaxFields       int           `yaml:"max_fields"`
		GeometryTimeout time.Duration `yaml:"geometry_timeout"`
	} `yaml:"limits"`

	Sections   sections.Options   `yaml:"sections"`
	Classifier classifier.Options `yaml:"classifier"`
	Readiness  readiness.Gates    `yaml:"readiness"`

	Scanner struct {
		Debounce        time.Duration `yaml:"debounce"`
		SnapshotTimeout time.Duration `yaml:"snapshot_timeout"`
	} `yaml:"scanner"`

	// Live browser host
	Host struct {
		Headless          bool          `yaml:"headless"`
		NavigationTimeout time.Duration `yaml:"navigation_timeout"`
		SettleDelay       time.Duration `yaml:"settle_delay"`
		UserAgent         string        `yaml:"user_agent"`
	} `yaml:"host"`

	Web struct {
		Port         int   `yaml:"port"`
		MaxBodyBytes int64 `yaml:"max_body_bytes"`
	} `yaml:"web"`

	// Profiles for different review scenarios
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile overrides a subset of the configuration for a named scenario.
// Nil sections leave the base configuration untouched.
type Profile struct {
	Description      string              `yaml:"description"`
	Format           string              `yaml:"format"`
	ConfidenceLevels string              `yaml:"confidence_levels"`
	Debug            bool                `yaml:"debug"`
	NoColor          bool                `yaml:"no_color"`
	Region           string              `yaml:"region"`
	Sections         *sections.Options   `yaml:"sections,omitempty"`
	Classifier       *classifier.Options `yaml:"classifier,omitempty"`
	Readiness        *readiness.Gates    `yaml:"readiness,omitempty"`
}

// Default returns the built-in configuration
func Default() *Config {
	config := &Config{Profiles: make(map[string]Profile)}

	config.Defaults.Format = "text"
	config.Defaults.ConfidenceLevels = "all"

	config.Knowledge.MinCoverage = 3

	config.Limits.PassTimeout = 2 * time.Second
	config.Limits.MaxControls = 500
	config.Limits.MaxFields = 300
	config.Limits.GeometryTimeout = 150 * time.Millisecond

	config.Sections = sections.DefaultOptions()
	config.Classifier = classifier.Options{AcceptanceThreshold: classifier.DefaultAcceptanceThreshold}
	config.Readiness = readiness.DefaultGates()

	config.Scanner.Debounce = 250 * time.Millisecond
	config.Scanner.SnapshotTimeout = 5 * time.Second

	config.Host.Headless = true
	config.Host.NavigationTimeout = 30 * time.Second
	config.Host.SettleDelay = 500 * time.Millisecond

	config.Web.Port = 8080
	config.Web.MaxBodyBytes = 8 << 20

	config.Profiles["strict"] = Profile{
		Description: "Higher acceptance threshold and readiness gates for publishing field mappings",
		Classifier:  &classifier.Options{AcceptanceThreshold: 35},
		Readiness: &readiness.Gates{
			MinClassificationRate: 0.75,
			MinCriticalCoverage:   3,
			MinDiversity:          4,
			MinAverageConfidence:  70,
			MinValidationPassRate: 1,
		},
	}
	config.Profiles["lenient"] = Profile{
		Description: "Accepts weaker matches; useful when surveying unfamiliar portals",
		Classifier:  &classifier.Options{AcceptanceThreshold: 20},
		Readiness: &readiness.Gates{
			MinClassificationRate: 0.4,
			MinCriticalCoverage:   1,
			MinDiversity:          2,
			MinAverageConfidence:  45,
			MinValidationPassRate: 0.6,
		},
	}
	return config
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	// If no config file specified, return default config
	if configPath == "" {
		return config, nil
	}

	cleanPath := filepath.Clean(configPath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Store default values before unmarshaling
	defaultHeadless := config.Host.Headless

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Restore defaults if not explicitly set in config file
	if !containsField(data, "host", "headless") {
		config.Host.Headless = defaultHeadless
	}
	if config.Profiles == nil {
		config.Profiles = make(map[string]Profile)
	}
	config.Knowledge.DataDir = paths.NormalizePath(config.Knowledge.DataDir)

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	for _, name := range []string{"regform-scan.yaml", "regform-scan.yml", ".regform-scan.yaml", ".regform-scan.yml"} {
		if fileExists(name) {
			return name
		}
	}

	standardConfig := paths.GetConfigFile()
	if fileExists(standardConfig) {
		return standardConfig
	}
	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ListProfiles returns the available profile names in sorted order
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// WithProfile returns a copy of c with the profile's overrides applied.
// A nil profile returns an unchanged copy.
func (c *Config) WithProfile(p *Profile) *Config {
	out := *c
	out.Readiness.CriticalCategories = append([]string(nil), c.Readiness.CriticalCategories...)
	if p == nil {
		return &out
	}

	if p.Format != "" {
		out.Defaults.Format = p.Format
	}
	if p.ConfidenceLevels != "" {
		out.Defaults.ConfidenceLevels = p.ConfidenceLevels
	}
	out.Defaults.Debug = out.Defaults.Debug || p.Debug
	out.Defaults.NoColor = out.Defaults.NoColor || p.NoColor
	if p.Region != "" {
		out.Defaults.Region = p.Region
	}
	if p.Sections != nil {
		out.Sections = *p.Sections
	}
	if p.Classifier != nil {
		out.Classifier = *p.Classifier
	}
	if p.Readiness != nil {
		gates := *p.Readiness
		if len(gates.CriticalCategories) == 0 {
			gates.CriticalCategories = out.Readiness.CriticalCategories
		}
		out.Readiness = gates
	}
	return &out
}

// containsField checks if a nested field exists in the YAML data
func containsField(data []byte, path ...string) bool {
	var yamlData map[string]interface{}
	err := yaml.Unmarshal(data, &yamlData)
	if err != nil {
		return false
	}

	current := yamlData
	for i, key := range path {
		if i == len(path)-1 {
			_, exists := current[key]
			return exists
		}
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return false
		}
	}
	return false
}

var validFormats = map[string]bool{"text": true, "json": true, "yaml": true}

// ValidateConfig checks value ranges and cross-field constraints
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	var problems []string
	if f := strings.ToLower(config.Defaults.Format); f != "" && !validFormats[f] {
		problems = append(problems, fmt.Sprintf("defaults.format %q is not one of text, json, yaml", config.Defaults.Format))
	}
	if config.Limits.PassTimeout < 0 {
		problems = append(problems, "limits.pass_timeout must not be negative")
	}
	if config.Limits.MaxControls < 0 || config.Limits.MaxFields < 0 {
		problems = append(problems, "limits.max_controls and limits.max_fields must not be negative")
	}
	if t := config.Classifier.AcceptanceThreshold; t < 0 || t > 100 {
		problems = append(problems, fmt.Sprintf("classifier.acceptance_threshold %d outside 0-100", t))
	}
	problems = append(problems, validateGates("readiness", config.Readiness)...)
	if config.Web.Port < 0 || config.Web.Port > 65535 {
		problems = append(problems, fmt.Sprintf("web.port %d out of range", config.Web.Port))
	}

	for _, name := range config.ListProfiles() {
		p := config.Profiles[name]
		if p.Readiness != nil {
			problems = append(problems, validateGates("profiles."+name+".readiness", *p.Readiness)...)
		}
		if p.Format != "" && !validFormats[strings.ToLower(p.Format)] {
			problems = append(problems, fmt.Sprintf("profiles.%s.format %q is not one of text, json, yaml", name, p.Format))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

func validateGates(prefix string, g readiness.Gates) []string {
	var problems []string
	if g.MinClassificationRate > 1 || g.MinClassificationRate < 0 {
		problems = append(problems, prefix+".min_classification_rate must be within 0-1")
	}
	if g.MinValidationPassRate > 1 || g.MinValidationPassRate < 0 {
		problems = append(problems, prefix+".min_validation_pass_rate must be within 0-1")
	}
	if g.MinAverageConfidence > 100 || g.MinAverageConfidence < 0 {
		problems = append(problems, prefix+".min_average_confidence must be within 0-100")
	}
	return problems
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). If loading fails, it returns a default configuration.
// This is the shared helper used by both the CLI and the web server.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		// Fall back to defaults; callers should not crash on a missing/bad config file.
		return Default()
	}
	return cfg
}
