// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"strings"

	"regform-scan/internal/config"
	"regform-scan/internal/elements"
	"regform-scan/internal/knowledge"
	"regform-scan/internal/observability"
)

// BuildPassOptions maps the loaded configuration onto the pass stages.
// Pass nil for geometry when the tree carries its own rectangles.
func BuildPassOptions(cfg *config.Config, obs *observability.StandardObserver, geometry elements.GeometryProvider) PassOptions {
	if cfg == nil {
		cfg = config.Default()
	}
	return PassOptions{
		Limits: Limits{
			PassTimeout: cfg.Limits.PassTimeout,
			MaxControls: cfg.Limits.MaxControls,
			MaxFields:   cfg.Limits.MaxFields,
		},
		Elements: elements.Options{
			Geometry:        geometry,
			GeometryTimeout: cfg.Limits.GeometryTimeout,
		},
		Sections:   cfg.Sections,
		Classifier: cfg.Classifier,
		Gates:      cfg.Readiness,
		Observer:   obs,
	}
}

// BuildStore returns the pattern store for the configuration: documents from
// knowledge.data_dir when set, the embedded set otherwise
func BuildStore(cfg *config.Config) *knowledge.Store {
	if cfg != nil && strings.TrimSpace(cfg.Knowledge.DataDir) != "" {
		return knowledge.NewStore(knowledge.NewDirSource(cfg.Knowledge.DataDir), nil)
	}
	return knowledge.NewStore(knowledge.NewEmbeddedSource(), nil)
}

// BuildScannerOptions combines the pass options with the scanner settings
func BuildScannerOptions(cfg *config.Config, obs *observability.StandardObserver, geometry elements.GeometryProvider) ScannerOptions {
	if cfg == nil {
		cfg = config.Default()
	}
	return ScannerOptions{
		Pass:            BuildPassOptions(cfg, obs, geometry),
		Region:          cfg.Defaults.Region,
		Debounce:        cfg.Scanner.Debounce,
		SnapshotTimeout: cfg.Scanner.SnapshotTimeout,
	}
}
