// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"strings"

	"regform-scan/internal/detector"
)

// ParseConfidenceLevels parses a comma-separated list of confidence levels
func ParseConfidenceLevels(levels string) map[string]bool {
	result := map[string]bool{
		"high":   false,
		"medium": false,
		"low":    false,
	}

	if levels == "all" || levels == "" {
		result["high"] = true
		result["medium"] = true
		result["low"] = true
		return result
	}

	for _, level := range strings.Split(levels, ",") {
		level = strings.ToLower(strings.TrimSpace(level))
		if _, ok := result[level]; ok {
			result[level] = true
		}
	}

	return result
}

// FilterReport returns a copy of r whose sections only keep fields at the
// given confidence levels. The summary still describes the whole pass.
func FilterReport(r *detector.Report, levels map[string]bool) *detector.Report {
	out := r.Clone()
	if out == nil || (levels["high"] && levels["medium"] && levels["low"]) {
		return out
	}
	for i := range out.Sections {
		kept := out.Sections[i].Fields[:0]
		for _, f := range out.Sections[i].Fields {
			if levels[detector.ConfidenceLevel(f.Classification.Confidence)] {
				kept = append(kept, f)
			}
		}
		out.Sections[i].Fields = kept
	}
	return out
}
