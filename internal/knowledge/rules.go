// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package knowledge

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPriority applies to common rules that omit a priority
const DefaultPriority = 50

// Validation holds optional value constraints for a category
type Validation struct {
	Pattern        string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	MinLength      int    `yaml:"min_length,omitempty" json:"min_length,omitempty"`
	MaxLength      int    `yaml:"max_length,omitempty" json:"max_length,omitempty"`
	RequiredFormat string `yaml:"required_format,omitempty" json:"required_format,omitempty"`
}

// RuleSpec is one category entry of a pattern document, as written on disk
type RuleSpec struct {
	Patterns   []string    `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	Keywords   []string    `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Attributes []string    `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Priority   *int        `yaml:"priority,omitempty" json:"priority,omitempty"`
	Validation *Validation `yaml:"validation,omitempty" json:"validation,omitempty"`
}

// Document is a pattern document keyed by category name
type Document map[string]RuleSpec

// ParseDocument decodes a YAML or JSON pattern document
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing pattern document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Categories returns the document's categories in sorted order
func (d Document) Categories() []string {
	out := make([]string, 0, len(d))
	for c := range d {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// PatternRule is a compiled category rule of an effective pattern table
type PatternRule struct {
	Category   string
	Patterns   []string
	Keywords   []string
	Attributes []string
	Priority   int
	Validation *Validation

	compiled []*regexp.Regexp
}

// Regexps returns the compiled patterns, in the order of Patterns
func (r *PatternRule) Regexps() []*regexp.Regexp {
	return r.compiled
}

// PatternTable maps each category to its rule
type PatternTable struct {
	Region      string
	Rules       map[string]*PatternRule
	Diagnostics []string
}

// Categories returns the table's categories in sorted order
func (t *PatternTable) Categories() []string {
	out := make([]string, 0, len(t.Rules))
	for c := range t.Rules {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Rule returns the rule for a category, or nil
func (t *PatternTable) Rule(category string) *PatternRule {
	return t.Rules[category]
}

// Merge overlays an override fragment on a common document. Pattern, keyword and
// attribute lists are unioned so that the override can only add coverage; the
// higher priority wins and override validation replaces the common one.
// A malformed regular expression drops only that pattern and is reported in
// the table diagnostics.
func Merge(common, override Document, region string) *PatternTable {
	table := &PatternTable{Region: region, Rules: make(map[string]*PatternRule)}

	for _, category := range common.Categories() {
		spec := common[category]
		rule := &PatternRule{
			Category:   category,
			Patterns:   unionStrings(nil, spec.Patterns, false),
			Keywords:   unionStrings(nil, spec.Keywords, true),
			Attributes: unionStrings(nil, spec.Attributes, true),
			Priority:   clampPriority(spec.Priority, DefaultPriority),
			Validation: spec.Validation,
		}
		table.Rules[category] = rule
	}

	for _, category := range override.Categories() {
		spec := override[category]
		rule, exists := table.Rules[category]
		if !exists {
			rule = &PatternRule{Category: category, Priority: clampPriority(spec.Priority, DefaultPriority)}
			table.Rules[category] = rule
		} else if spec.Priority != nil {
			rule.Priority = max(rule.Priority, clampPriority(spec.Priority, rule.Priority))
		}
		rule.Patterns = unionStrings(rule.Patterns, spec.Patterns, false)
		rule.Keywords = unionStrings(rule.Keywords, spec.Keywords, true)
		rule.Attributes = unionStrings(rule.Attributes, spec.Attributes, true)
		if spec.Validation != nil {
			rule.Validation = spec.Validation
		}
	}

	for _, category := range table.Categories() {
		rule := table.Rules[category]
		var kept []string
		for _, p := range rule.Patterns {
			re, err := compilePattern(p)
			if err != nil {
				table.Diagnostics = append(table.Diagnostics,
					fmt.Sprintf("pattern compile error in %s: %q skipped: %v", category, p, err))
				continue
			}
			kept = append(kept, p)
			rule.compiled = append(rule.compiled, re)
		}
		rule.Patterns = kept
	}

	return table
}

// compilePattern compiles a document pattern case-insensitively
func compilePattern(p string) (*regexp.Regexp, error) {
	if strings.HasPrefix(p, "(?") {
		return regexp.Compile(p)
	}
	return regexp.Compile("(?i)" + p)
}

// unionStrings appends the entries of add missing from base, preserving order
func unionStrings(base, add []string, fold bool) []string {
	seen := make(map[string]bool, len(base)+len(add))
	out := make([]string, 0, len(base)+len(add))
	key := func(s string) string {
		s = strings.TrimSpace(s)
		if fold {
			return strings.ToLower(s)
		}
		return s
	}
	for _, list := range [][]string{base, add} {
		for _, s := range list {
			k := key(s)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			if fold {
				out = append(out, k)
			} else {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

func clampPriority(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return min(100, max(0, *p))
}

// ContainsPhrase reports whether phrase occurs in text on word boundaries.
// Both arguments are expected in lowercase.
func ContainsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	start := 0
	for {
		idx := strings.Index(text[start:], phrase)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(phrase)
		if (idx == 0 || !isWordByte(text[idx-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		start = idx + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
