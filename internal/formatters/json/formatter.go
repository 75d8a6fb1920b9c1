// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package json

import (
	"encoding/json"
	"fmt"

	"regform-scan/internal/detector"
	"regform-scan/internal/formatters"
	"regform-scan/internal/readiness"
)

// Formatter implements JSON output formatting
type Formatter struct{}

// NewFormatter creates a new JSON formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "json"
}

func (f *Formatter) Description() string {
	return "Structured JSON report for programmatic consumption"
}

func (f *Formatter) FileExtension() string {
	return ".json"
}

// document is the serialized report; gates are included when supplied
type document struct {
	*detector.Report
	Gates []readiness.GateResult `json:"gates,omitempty"`
}

func (f *Formatter) Format(report *detector.Report, options formatters.FormatterOptions) (string, error) {
	if report == nil {
		report = &detector.Report{Sections: []detector.Section{}}
	}
	out := report.Clone()
	for i := range out.Sections {
		out.Sections[i].Fields = formatters.VisibleFields(out.Sections[i], options.ConfidenceLevel)
		if out.Sections[i].Fields == nil {
			out.Sections[i].Fields = []detector.FieldRecord{}
		}
		if !options.Verbose {
			for j := range out.Sections[i].Fields {
				out.Sections[i].Fields[j].Classification.Trace = nil
			}
		}
	}

	data, err := json.MarshalIndent(document{Report: out, Gates: options.Gates}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error formatting JSON: %w", err)
	}
	return string(data), nil
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
