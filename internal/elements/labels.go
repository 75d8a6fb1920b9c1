// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package elements

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"regform-scan/internal/detector"
	"regform-scan/internal/dom"
)

// DefaultMaxLabelLength bounds normalized label text, in runes
const DefaultMaxLabelLength = 120

var (
	trailingMarkers = regexp.MustCompile(`(?i)(\s*(\*|:|\(required\)|\(optional\)))+$`)
	leadingMarkers  = regexp.MustCompile(`^[\s*:]+`)
	requiredMarker  = regexp.MustCompile(`(?i)(\*|\(required\))\s*:?\s*$`)
)

// labeler resolves and normalizes label text
type labeler struct {
	doc       *dom.Document
	policy    *bluemonday.Policy
	maxLength int
}

func newLabeler(doc *dom.Document, maxLength int) *labeler {
	if maxLength <= 0 {
		maxLength = DefaultMaxLabelLength
	}
	return &labeler{doc: doc, policy: bluemonday.StrictPolicy(), maxLength: maxLength}
}

// normalize strips markup and required markers, collapses whitespace and
// bounds the length. The second result reports a required marker.
func (l *labeler) normalize(raw string) (string, bool) {
	text := html.UnescapeString(l.policy.Sanitize(raw))
	text = dom.CollapseSpace(text)
	required := requiredMarker.MatchString(text)
	text = trailingMarkers.ReplaceAllString(text, "")
	text = leadingMarkers.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > l.maxLength {
		runes := []rune(text)
		text = strings.TrimSpace(string(runes[:l.maxLength]))
	}
	return text, required
}

// resolved is a label candidate with its provenance
type resolved struct {
	label    detector.Label
	required bool
}

// controlLabel walks the fallback chain for a single control; first hit wins
func (l *labeler) controlLabel(n *dom.Node) resolved {
	steps := []struct {
		source detector.LabelSource
		read   func(*dom.Node) string
	}{
		{detector.LabelExplicit, l.explicitText},
		{detector.LabelAria, l.ariaText},
		{detector.LabelWrapping, wrappingText},
		{detector.LabelSibling, siblingText},
		{detector.LabelContainer, containerText},
		{detector.LabelPlaceholder, func(n *dom.Node) string { return n.Attr("placeholder") }},
		{detector.LabelTitle, func(n *dom.Node) string { return n.Attr("title") }},
	}
	for _, step := range steps {
		if text, required := l.normalize(step.read(n)); text != "" {
			return resolved{label: detector.Label{Text: text, Source: step.source}, required: required}
		}
	}
	return resolved{label: detector.Label{Text: derivedText(n), Source: detector.LabelDerived}}
}

// optionLabel resolves the caption of one choice control inside a group.
// Choice captions usually follow the control, so the next sibling is read
// before falling back to the value attribute.
func (l *labeler) optionLabel(n *dom.Node) string {
	for _, read := range []func(*dom.Node) string{l.explicitText, l.ariaText, wrappingText, followingText} {
		if text, _ := l.normalize(read(n)); text != "" {
			return text
		}
	}
	if v := strings.TrimSpace(n.Attr("value")); v != "" {
		return Humanize(v)
	}
	return ""
}

// groupLabel resolves a choice group's caption
func (l *labeler) groupLabel(members []*dom.Node, key string) resolved {
	steps := []struct {
		source detector.LabelSource
		read   func([]*dom.Node) string
	}{
		{detector.LabelCaption, legendText},
		{detector.LabelAria, l.groupAriaText},
		{detector.LabelSibling, groupPrecedingText},
	}
	for _, step := range steps {
		if text, required := l.normalize(step.read(members)); text != "" {
			return resolved{label: detector.Label{Text: text, Source: step.source}, required: required}
		}
	}
	return resolved{label: detector.Label{Text: Humanize(key), Source: detector.LabelDerived}}
}

func (l *labeler) explicitText(n *dom.Node) string {
	id := n.Attr("id")
	if id == "" {
		return ""
	}
	for _, lbl := range l.doc.LabelsFor(id) {
		if text := lbl.TextWithoutControls(); text != "" {
			return text
		}
	}
	return ""
}

func (l *labeler) ariaText(n *dom.Node) string {
	if v := strings.TrimSpace(n.Attr("aria-label")); v != "" {
		return v
	}
	return l.labelledBy(n)
}

func (l *labeler) labelledBy(n *dom.Node) string {
	refs := strings.Fields(n.Attr("aria-labelledby"))
	var parts []string
	for _, ref := range refs {
		if target := l.doc.ByID(ref); target != nil {
			if text := target.TextWithoutControls(); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, " ")
}

func wrappingText(n *dom.Node) string {
	if lbl := n.Closest("label"); lbl != nil {
		return lbl.TextWithoutControls()
	}
	return ""
}

// siblingText reads the nearest preceding sibling text. When the control is the
// only control inside its wrappers, the wrappers' preceding siblings are read too.
func siblingText(n *dom.Node) string {
	cur := n
	for level := 0; level < 3 && cur != nil; level++ {
		for _, sib := range cur.PrevSiblings() {
			if sib.Type == dom.TextNode {
				if t := dom.CollapseSpace(sib.Text); t != "" {
					return t
				}
				continue
			}
			if sib.IsFormControl() || sib.ContainsControl() || isHeading(sib) {
				return ""
			}
			if sib.IsElement("label") && sib.Attr("for") != "" && sib.Attr("for") != n.Attr("id") {
				return ""
			}
			if sib.IsElement("br", "hr", "img", "script", "style") || sib.Hidden() {
				continue
			}
			if t := sib.TextWithoutControls(); t != "" {
				return t
			}
		}
		parent := cur.Parent
		if parent == nil || parent.IsElement("form", "fieldset", "body", "#document") || controlCount(parent) > 1 {
			return ""
		}
		cur = parent
	}
	return ""
}

// containerText reads the nearest ancestor text that belongs to this control alone
func containerText(n *dom.Node) string {
	cur := n.Parent
	for level := 0; level < 3 && cur != nil; level++ {
		if cur.IsElement("form", "body", "#document") || controlCount(cur) > 1 {
			return ""
		}
		if t := cur.TextWithoutControls(); t != "" {
			return t
		}
		cur = cur.Parent
	}
	return ""
}

// followingText reads the text right after a choice control
func followingText(n *dom.Node) string {
	for _, sib := range n.NextSiblings() {
		if sib.Type == dom.TextNode {
			if t := dom.CollapseSpace(sib.Text); t != "" {
				return t
			}
			continue
		}
		if sib.IsFormControl() || sib.ContainsControl() || sib.IsElement("br") {
			return ""
		}
		if t := sib.TextWithoutControls(); t != "" {
			return t
		}
	}
	return ""
}

func legendText(members []*dom.Node) string {
	for fs := members[0].Closest("fieldset"); fs != nil; fs = fs.Closest("fieldset") {
		if !containsAll(fs, members) {
			continue
		}
		for _, c := range fs.Children {
			if c.IsElement("legend") {
				return c.TextWithoutControls()
			}
		}
		return ""
	}
	return ""
}

func (l *labeler) groupAriaText(members []*dom.Node) string {
	for cur := members[0].Parent; cur != nil; cur = cur.Parent {
		role := cur.Attr("role")
		if role != "radiogroup" && role != "group" {
			continue
		}
		if !containsAll(cur, members) {
			continue
		}
		return l.ariaText(cur)
	}
	return ""
}

// groupPrecedingText reads text just before the group's nearest shared container
func groupPrecedingText(members []*dom.Node) string {
	container := dom.CommonAncestor(members)
	if container == nil || container.IsElement("form", "body", "#document") {
		return ""
	}
	// Caption inside the shared container, ahead of the first choice
	for _, c := range container.Children {
		if c.Contains(members[0]) || c.IsFormControl() || c.ContainsControl() {
			break
		}
		if c.Type == dom.TextNode {
			if t := dom.CollapseSpace(c.Text); t != "" {
				return t
			}
		} else if t := c.TextWithoutControls(); t != "" {
			return t
		}
	}
	return siblingText(container)
}

func derivedText(n *dom.Node) string {
	if name := Humanize(n.Attr("name")); name != "" {
		return name
	}
	return Humanize(n.Attr("id"))
}

func containsAll(container *dom.Node, nodes []*dom.Node) bool {
	for _, n := range nodes {
		if !container.Contains(n) {
			return false
		}
	}
	return true
}

// controlCount counts candidate controls under n, ignoring decorative buttons
func controlCount(n *dom.Node) int {
	count := 0
	n.Walk(func(c *dom.Node) bool {
		if c.IsElement("input", "select", "textarea") && !isDecorative(c) {
			count++
		}
		return true
	})
	return count
}

// isHeading reports elements that title a region rather than a single control
func isHeading(n *dom.Node) bool {
	return n.IsElement("h1", "h2", "h3", "h4", "h5", "h6", "legend", "caption") ||
		strings.EqualFold(n.Attr("role"), "heading")
}
