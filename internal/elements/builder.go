// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package elements

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"regform-scan/internal/detector"
	"regform-scan/internal/dom"
)

// DefaultMaxControls caps the controls considered in one pass
const DefaultMaxControls = 500

// Options configures the Builder
type Options struct {
	MaxControls     int
	MaxLabelLength  int
	Geometry        GeometryProvider // optional; consulted for nodes without a rect
	GeometryTimeout time.Duration
}

// Result is the Builder's output for one tree
type Result struct {
	Fields      []detector.FieldRecord
	Incomplete  bool
	Dropped     map[string]int
	Diagnostics []string
}

// Builder turns a host element tree into field records. It is the only
// component that inspects raw tree shape.
type Builder struct {
	opts Options
}

// NewBuilder creates a builder, filling zero options with defaults
func NewBuilder(opts Options) *Builder {
	if opts.MaxControls <= 0 {
		opts.MaxControls = DefaultMaxControls
	}
	if opts.MaxLabelLength <= 0 {
		opts.MaxLabelLength = DefaultMaxLabelLength
	}
	return &Builder{opts: opts}
}

type candidate struct {
	node *dom.Node
	kind detector.ControlKind
	rect *dom.Rect
}

type groupKey struct {
	kind detector.ControlKind
	name string
	form *dom.Node
}

// Build extracts, labels and groups the controls of doc
func (b *Builder) Build(ctx context.Context, doc *dom.Document) Result {
	res := Result{Dropped: make(map[string]int)}
	if doc == nil || doc.Root == nil {
		return res
	}

	cands := b.collect(ctx, doc, &res)
	lab := newLabeler(doc, b.opts.MaxLabelLength)

	var order []any
	groups := make(map[groupKey][]candidate)
	for _, c := range cands {
		name := c.node.Attr("name")
		if (c.kind == detector.KindRadio || c.kind == detector.KindCheckbox) && name != "" {
			key := groupKey{kind: c.kind, name: name, form: c.node.Closest("form")}
			if _, seen := groups[key]; !seen {
				order = append(order, key)
			}
			groups[key] = append(groups[key], c)
			continue
		}
		order = append(order, c)
	}

	for _, item := range order {
		switch v := item.(type) {
		case candidate:
			res.Fields = append(res.Fields, b.single(lab, v))
		case groupKey:
			res.Fields = append(res.Fields, b.group(lab, v, groups[v]))
		}
	}

	if len(res.Dropped) > 0 {
		res.Diagnostics = append(res.Diagnostics, "dropped controls: "+formatCounts(res.Dropped))
	}
	return res
}

// collect walks the tree in document order and applies the filters
func (b *Builder) collect(ctx context.Context, doc *dom.Document, res *Result) []candidate {
	geo := newGeometry(b.opts.Geometry, b.opts.GeometryTimeout)
	var out []candidate
	stopped := false

	doc.Root.Walk(func(n *dom.Node) bool {
		if stopped || n.Type != dom.ElementNode {
			return false
		}
		if isDecorative(n) {
			if strings.EqualFold(n.Attr("type"), "hidden") {
				res.Dropped["hidden"]++
			} else {
				res.Dropped["decorative"]++
			}
			return false
		}
		kind, ok := controlKind(n)
		if !ok {
			return true
		}
		if err := ctx.Err(); err != nil {
			stopped = true
			res.Incomplete = true
			res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("control extraction interrupted: %v", err))
			return false
		}
		if reason := dropReason(n, kind, n.Rect); reason != "" {
			res.Dropped[reason]++
			return false
		}
		rect := geo.rect(ctx, n)
		if rect != nil && rect.Empty() {
			res.Dropped["zero-size"]++
			return false
		}
		if len(out) >= b.opts.MaxControls {
			stopped = true
			res.Incomplete = true
			res.Diagnostics = append(res.Diagnostics,
				fmt.Sprintf("control limit reached: %d controls kept, remainder ignored", b.opts.MaxControls))
			return false
		}
		out = append(out, candidate{node: n, kind: kind, rect: rect})
		return false
	})

	if geo != nil && geo.failures > 0 {
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("geometry unavailable for %d controls", geo.failures))
	}
	return out
}

func (b *Builder) single(lab *labeler, c candidate) detector.FieldRecord {
	label := lab.controlLabel(c.node)
	ctrl := toControl(c)
	rec := detector.FieldRecord{
		Label:       label.label,
		Type:        detector.FieldTypeOf(c.kind),
		Name:        ctrl.Name,
		ID:          ctrl.ID,
		Placeholder: ctrl.Placeholder,
		Title:       ctrl.Title,
		Required:    ctrl.Required || label.required,
		Rect:        c.rect,
		Controls:    []detector.Control{ctrl},
		Node:        c.node,
	}
	switch c.kind {
	case detector.KindSelect:
		rec.Options = selectOptions(c.node)
	case detector.KindRadio, detector.KindCheckbox:
		rec.Type = choiceType(c.kind, rec.Label.Text)
		rec.Options = []detector.Option{{Label: lab.optionLabel(c.node), Value: ctrl.Value}}
		rec.Members = []*dom.Node{c.node}
	}
	return rec
}

func (b *Builder) group(lab *labeler, key groupKey, members []candidate) detector.FieldRecord {
	if len(members) == 1 {
		rec := b.single(lab, members[0])
		rec.Controls[0].GroupKey = key.name
		return rec
	}

	nodes := make([]*dom.Node, len(members))
	for i, m := range members {
		nodes[i] = m.node
	}
	label := lab.groupLabel(nodes, key.name)

	rec := detector.FieldRecord{
		Label:    label.label,
		Type:     detector.TypeRadioGroup,
		Name:     key.name,
		ID:       members[0].node.Attr("id"),
		Required: label.required,
		Node:     members[0].node,
		Members:  nodes,
	}
	if key.kind == detector.KindCheckbox {
		rec.Type = detector.TypeCheckboxGroup
	}

	var union *dom.Rect
	for _, m := range members {
		ctrl := toControl(m)
		ctrl.GroupKey = key.name
		rec.Controls = append(rec.Controls, ctrl)
		rec.Options = append(rec.Options, detector.Option{Label: lab.optionLabel(m.node), Value: ctrl.Value})
		rec.Required = rec.Required || ctrl.Required
		if m.rect != nil {
			if union == nil {
				r := *m.rect
				union = &r
			} else {
				u := union.Union(*m.rect)
				union = &u
			}
		}
	}
	rec.Rect = union
	return rec
}

// choiceType turns a lone choice control into a boolean field when its label
// asks a question or requests consent
func choiceType(kind detector.ControlKind, label string) detector.FieldType {
	if detector.IsInterrogative(label) || detector.IsConsent(label) {
		return detector.TypeBoolean
	}
	return detector.FieldTypeOf(kind)
}

func toControl(c candidate) detector.Control {
	n := c.node
	return detector.Control{
		Kind:        c.kind,
		Name:        n.Attr("name"),
		ID:          n.Attr("id"),
		Placeholder: strings.TrimSpace(n.Attr("placeholder")),
		Title:       strings.TrimSpace(n.Attr("title")),
		Value:       n.Attr("value"),
		Required:    n.HasAttr("required") || strings.EqualFold(n.Attr("aria-required"), "true"),
		Visible:     true,
		Rect:        c.rect,
	}
}

var placeholderOption = []string{"select", "choose", "please", "--", "pick"}

// selectOptions lists the real choices of a select element, skipping prompts
func selectOptions(n *dom.Node) []detector.Option {
	var out []detector.Option
	n.Walk(func(c *dom.Node) bool {
		if !c.IsElement("option") {
			return true
		}
		text := c.TextContent()
		value := c.Attr("value")
		if !c.HasAttr("value") {
			value = text
		}
		lower := strings.ToLower(text)
		if strings.TrimSpace(c.Attr("value")) == "" || value == text {
			if text == "" {
				return false
			}
			for _, p := range placeholderOption {
				if strings.HasPrefix(lower, p) {
					return false
				}
			}
		}
		out = append(out, detector.Option{Label: text, Value: value})
		return false
	})
	return out
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}
