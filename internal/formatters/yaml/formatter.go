// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package yaml

import (
	"fmt"

	"regform-scan/internal/detector"
	"regform-scan/internal/formatters"
	"regform-scan/internal/readiness"

	"gopkg.in/yaml.v3"
)

// Formatter implements YAML output formatting
type Formatter struct{}

// NewFormatter creates a new YAML formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "yaml"
}

func (f *Formatter) Description() string {
	return "YAML report, same structure as the JSON output"
}

func (f *Formatter) FileExtension() string {
	return ".yaml"
}

type document struct {
	Summary  detector.DetectionSummary `yaml:"summary"`
	Sections []detector.Section        `yaml:"sections"`
	Gates    []readiness.GateResult    `yaml:"gates,omitempty"`
}

func (f *Formatter) Format(report *detector.Report, options formatters.FormatterOptions) (string, error) {
	if report == nil {
		report = &detector.Report{Sections: []detector.Section{}}
	}
	out := report.Clone()
	for i := range out.Sections {
		out.Sections[i].Fields = formatters.VisibleFields(out.Sections[i], options.ConfidenceLevel)
		if !options.Verbose {
			for j := range out.Sections[i].Fields {
				out.Sections[i].Fields[j].Classification.Trace = nil
			}
		}
	}

	data, err := yaml.Marshal(document{Summary: out.Summary, Sections: out.Sections, Gates: options.Gates})
	if err != nil {
		return "", fmt.Errorf("error formatting YAML: %w", err)
	}
	return string(data), nil
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
