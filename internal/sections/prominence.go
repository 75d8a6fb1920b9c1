// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sections

import (
	"regexp"

	"regform-scan/internal/dom"
)

// Weights are the contributions of each visual cue to a prominence score.
// They sum to 1 so that the score stays within [0,1].
type Weights struct {
	SizeDelta float64 `yaml:"size_delta"`
	Bold      float64 `yaml:"bold"`
	Spacing   float64 `yaml:"spacing"`
	Block     float64 `yaml:"block"`
	NameHint  float64 `yaml:"name_hint"`
}

// DefaultWeights returns the stock cue weights
func DefaultWeights() Weights {
	return Weights{SizeDelta: 0.35, Bold: 0.25, Spacing: 0.15, Block: 0.10, NameHint: 0.15}
}

var headerHint = regexp.MustCompile(`(?i)(^|[\s_-])(section|header|heading|title|step|legend|group-label|panel-title)([\s_-]|$)`)

// prominence scores how much an element looks like a section header. A font
// 50% larger than body text earns the full size weight.
func prominence(n *dom.Node, opts Options) float64 {
	w := opts.Weights
	score := 0.0

	if s := n.Style; s != nil {
		if s.FontSize > 0 && opts.BodyFontSize > 0 {
			delta := (s.FontSize - opts.BodyFontSize) / opts.BodyFontSize
			score += w.SizeDelta * clamp(delta/0.5, 0, 1)
		}
		if s.FontWeight >= 600 {
			score += w.Bold
		}
		if s.MarginTop >= opts.MinSpacing {
			score += w.Spacing
		}
	}
	if n.ComputedDisplay() == "block" || n.ComputedDisplay() == "flex" {
		score += w.Block
	}
	if headerHint.MatchString(n.Attr("class")) || headerHint.MatchString(n.Attr("id")) {
		score += w.NameHint
	}
	return score
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
