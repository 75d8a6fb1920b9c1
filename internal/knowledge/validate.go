// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package knowledge

import (
	"fmt"
)

// DefaultMinCoverage is the number of common categories an override must touch
const DefaultMinCoverage = 3

// Severity of a validation issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found in an override document
type Issue struct {
	Category string   `json:"category,omitempty" yaml:"category,omitempty"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
}

func (i Issue) String() string {
	if i.Category == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Category, i.Message)
}

// ValidateOverride checks a region override against the common document: each
// entry needs patterns or keywords, priorities must be within 0-100, every
// regular expression must compile, and at least minCoverage categories must
// refine common categories. Categories unknown to common are reported as warnings.
func ValidateOverride(doc, common Document, minCoverage int) []Issue {
	var issues []Issue
	if len(doc) == 0 {
		return []Issue{{Severity: SeverityError, Message: "document defines no categories"}}
	}

	covered := 0
	for _, category := range doc.Categories() {
		spec := doc[category]
		if len(spec.Patterns) == 0 && len(spec.Keywords) == 0 {
			issues = append(issues, Issue{Category: category, Severity: SeverityError,
				Message: "at least one of patterns or keywords is required"})
		}
		if spec.Priority != nil && (*spec.Priority < 0 || *spec.Priority > 100) {
			issues = append(issues, Issue{Category: category, Severity: SeverityError,
				Message: fmt.Sprintf("priority %d is outside 0-100", *spec.Priority)})
		}
		for _, p := range spec.Patterns {
			if _, err := compilePattern(p); err != nil {
				issues = append(issues, Issue{Category: category, Severity: SeverityError,
					Message: fmt.Sprintf("invalid pattern %q: %v", p, err)})
			}
		}
		if spec.Validation != nil && spec.Validation.Pattern != "" {
			if _, err := compilePattern(spec.Validation.Pattern); err != nil {
				issues = append(issues, Issue{Category: category, Severity: SeverityError,
					Message: fmt.Sprintf("invalid validation pattern %q: %v", spec.Validation.Pattern, err)})
			}
		}
		if _, ok := common[category]; ok {
			covered++
		} else {
			issues = append(issues, Issue{Category: category, Severity: SeverityWarning,
				Message: "category is not defined in the common document"})
		}
	}

	if covered < minCoverage {
		issues = append(issues, Issue{Severity: SeverityError,
			Message: fmt.Sprintf("override refines %d common categories, need at least %d", covered, minCoverage)})
	}
	return issues
}

// HasErrors reports whether any issue is an error
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
