// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"

	"regform-scan/internal/detector"
	"regform-scan/internal/formatters"

	"github.com/fatih/color"
)

const labelWidth = 36

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":   color.New(color.FgGreen),
			"yellow":  color.New(color.FgYellow),
			"red":     color.New(color.FgRed),
			"cyan":    color.New(color.FgCyan),
			"magenta": color.New(color.FgMagenta),
			"blue":    color.New(color.FgBlue),
			"white":   color.New(color.FgWhite, color.Bold),
			"faint":   color.New(color.Faint),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable report grouped by section, with colored confidence levels"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(report *detector.Report, options formatters.FormatterOptions) (string, error) {
	if report == nil {
		return "No report available.", nil
	}

	var b strings.Builder
	f.appendHeader(&b, report.Summary, options)

	if report.Summary.Total == 0 {
		b.WriteString("No form fields found.\n")
	}

	for _, sec := range report.Sections {
		fields := formatters.VisibleFields(sec, options.ConfidenceLevel)
		if len(fields) == 0 {
			continue
		}
		f.appendSection(&b, sec, fields, options)
	}

	f.appendSummary(&b, report.Summary, options)
	return b.String(), nil
}

// paint applies a named color unless colors are disabled
func (f *Formatter) paint(options formatters.FormatterOptions, name, format string, args ...interface{}) string {
	if options.NoColor {
		return fmt.Sprintf(format, args...)
	}
	return f.colors[name].Sprintf(format, args...)
}

func (f *Formatter) appendHeader(b *strings.Builder, s detector.DetectionSummary, options formatters.FormatterOptions) {
	region := s.Region
	if region == "" {
		region = "common"
	}
	stateColor := "red"
	if s.Ready {
		stateColor = "green"
	}
	fmt.Fprintf(b, "%s  region %s  state %s  readiness %s\n",
		f.paint(options, "white", "REGISTRATION FORM SCAN"),
		f.paint(options, "cyan", "%s", region),
		f.paint(options, stateColor, "%s", s.State),
		f.paint(options, stateColor, "%.2f", s.ReadinessScore))
	if s.Incomplete {
		b.WriteString(f.paint(options, "yellow", "Pass incomplete: results are partial\n"))
	}
	b.WriteString("\n")
}

func (f *Formatter) appendSection(b *strings.Builder, sec detector.Section, fields []detector.FieldRecord, options formatters.FormatterOptions) {
	fmt.Fprintf(b, "%s %s\n",
		f.paint(options, "white", "== %s", sec.Name),
		f.paint(options, "faint", "(%s)", sec.Origin))

	header := fmt.Sprintf("%-8s %-24s %-5s %-14s %s\n", "LEVEL", "CATEGORY", "CONF", "TYPE", "LABEL")
	b.WriteString(f.paint(options, "white", "%s", header))

	for _, field := range fields {
		f.appendFieldLine(b, field, options)
		if options.Verbose {
			for _, t := range field.Classification.Trace {
				fmt.Fprintf(b, "         %s\n", f.paint(options, "faint", "· %s", t))
			}
		}
	}
	b.WriteString("\n")
}

func (f *Formatter) appendFieldLine(b *strings.Builder, field detector.FieldRecord, options formatters.FormatterOptions) {
	cls := field.Classification
	level := strings.ToUpper(detector.ConfidenceLevel(cls.Confidence))
	levelColor := map[string]string{"HIGH": "green", "MEDIUM": "yellow", "LOW": "red"}[level]
	if !cls.Classified() {
		level, levelColor = "NONE", "faint"
	}

	category := cls.Category
	if len(category) > 24 {
		category = category[:21] + "..."
	}
	label := field.Label.Text
	if runes := []rune(label); len(runes) > labelWidth {
		label = string(runes[:labelWidth-3]) + "..."
	}
	if field.Required {
		label += " *"
	}

	fmt.Fprintf(b, "%s %s %s %s %s\n",
		f.paint(options, levelColor, "[%-6s]", level),
		f.paint(options, "cyan", "%-24s", category),
		f.paint(options, "blue", "%4d%%", cls.Confidence),
		f.paint(options, "magenta", "%-14s", field.Type),
		label)
}

func (f *Formatter) appendSummary(b *strings.Builder, s detector.DetectionSummary, options formatters.FormatterOptions) {
	b.WriteString(f.paint(options, "white", "Summary\n"))
	fmt.Fprintf(b, "  fields %d, classified %d, unclassified %d, average confidence %.1f\n",
		s.Total, s.Classified, s.Unclassified, s.AverageConfidence)
	if len(s.CriticalCategories) > 0 {
		fmt.Fprintf(b, "  critical categories: %s\n", strings.Join(s.CriticalCategories, ", "))
	}

	for _, c := range s.Checks {
		mark := f.paint(options, "green", "✓")
		if !c.Passed {
			mark = f.paint(options, "red", "✗")
		}
		fmt.Fprintf(b, "  %s %-22s %s\n", mark, c.Name, c.Detail)
	}

	for _, g := range options.Gates {
		mark := f.paint(options, "green", "✓")
		if !g.Passed {
			mark = f.paint(options, "red", "✗")
		}
		fmt.Fprintf(b, "  %s gate %s\n", mark, g)
	}

	if options.Verbose && len(s.Diagnostics) > 0 {
		b.WriteString(f.paint(options, "white", "Diagnostics\n"))
		for _, d := range s.Diagnostics {
			fmt.Fprintf(b, "  %s\n", d)
		}
	}
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
