// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package classifier

import (
	"strings"

	"regform-scan/internal/detector"
	"regform-scan/internal/elements"
)

// surface is one place in a field where a rule can hit, with its weight
type surface struct {
	name   string
	weight int
	texts  []string
}

// matchContext is the lowercased text a field offers for matching
type matchContext struct {
	label    string
	surfaces []surface
	attrKeys map[string]bool
	kind     detector.ControlKind

	// meaningful is false when the field carries only a name-derived label
	meaningful bool
	strong     bool
	required   bool
}

func newMatchContext(f *detector.FieldRecord) *matchContext {
	mc := &matchContext{
		label:    strings.ToLower(strings.TrimSpace(f.Label.Text)),
		attrKeys: make(map[string]bool),
		kind:     f.Kind(),
		required: f.Required,
	}

	switch f.Label.Source {
	case detector.LabelDerived, detector.LabelPlaceholder, detector.LabelTitle:
	default:
		mc.strong = mc.label != ""
	}
	mc.meaningful = (mc.label != "" && !f.Label.Derived()) || f.Placeholder != "" || f.Title != ""

	var attrs []string
	for _, raw := range []string{f.Name, f.ID} {
		if raw == "" {
			continue
		}
		mc.attrKeys[attrKey(raw)] = true
		if h := strings.ToLower(elements.Humanize(raw)); h != "" && !contains(attrs, h) {
			attrs = append(attrs, h)
			mc.attrKeys[attrKey(h)] = true
		}
	}

	var options []string
	for _, o := range f.Options {
		if l := strings.ToLower(strings.TrimSpace(o.Label)); l != "" {
			options = append(options, l)
		}
	}

	mc.surfaces = []surface{
		{name: "label", weight: LabelWeight, texts: nonEmpty(mc.label)},
		{name: "attribute", weight: AttributeWeight, texts: attrs},
		{name: "placeholder", weight: PlaceholderWeight, texts: nonEmpty(strings.ToLower(strings.TrimSpace(f.Placeholder)))},
		{name: "options", weight: OptionWeight, texts: options},
	}
	return mc
}

// text joins every surface for vocabulary checks
func (mc *matchContext) text() string {
	var parts []string
	for _, s := range mc.surfaces {
		if s.name == "options" {
			continue
		}
		parts = append(parts, s.texts...)
	}
	return strings.Join(parts, " ")
}

// attrKey folds an attribute name to its alphanumeric lowercase form
func attrKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
