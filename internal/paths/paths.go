// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"os"
	"path/filepath"
)

// ConfigDirEnv overrides the configuration directory on every platform
const ConfigDirEnv = "REGFORM_CONFIG_DIR"

// GetConfigDir returns the regform-scan configuration directory
func GetConfigDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "regform-scan")
	}
	// os.UserConfigDir resolves APPDATA on Windows and ~/Library/Application Support on macOS
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "regform-scan")
	}
	return filepath.Join(".", ".regform-scan")
}

// GetConfigFile returns the path to the main config file
func GetConfigFile() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// GetPatternDir returns the directory holding local pattern documents
// (common.yaml plus regions/<code>.yaml)
func GetPatternDir() string {
	return filepath.Join(GetConfigDir(), "patterns")
}

// NormalizePath cleans a user supplied path and expands a leading ~
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" || len(path) > 1 && path[0] == '~' && os.IsPathSeparator(path[1]) {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return filepath.Clean(path)
}
