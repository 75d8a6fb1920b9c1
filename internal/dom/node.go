// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package dom

import (
	"strings"
)

// NodeType distinguishes element nodes from text nodes
type NodeType int

const (
	ElementNode NodeType = iota
	TextNode
)

// Rect is a control's bounding box in page coordinates (CSS pixels)
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bottom returns the bottom edge of the rectangle
func (r Rect) Bottom() float64 {
	return r.Top + r.Height
}

// Empty reports whether the rectangle has no visible area
func (r Rect) Empty() bool {
	return r.Width <= 0 && r.Height <= 0
}

// Union returns the smallest rectangle containing both rectangles
func (r Rect) Union(o Rect) Rect {
	top := min(r.Top, o.Top)
	left := min(r.Left, o.Left)
	bottom := max(r.Bottom(), o.Bottom())
	right := max(r.Left+r.Width, o.Left+o.Width)
	return Rect{Top: top, Left: left, Width: right - left, Height: bottom - top}
}

// Style holds the computed style values the segmenter cares about
type Style struct {
	FontSize   float64 `json:"font_size,omitempty"`
	FontWeight int     `json:"font_weight,omitempty"`
	MarginTop  float64 `json:"margin_top,omitempty"`
	Display    string  `json:"display,omitempty"`
	Visibility string  `json:"visibility,omitempty"`
}

// Node is one node of the host-supplied element tree
type Node struct {
	Type     NodeType
	Tag      string // lowercase tag name for element nodes
	Attrs    map[string]string
	Text     string // text content for text nodes
	Rect     *Rect  // nil when the host could not report geometry
	Style    *Style
	Parent   *Node
	Children []*Node

	// Ref is an opaque host reference (e.g. a snapshot index) used for follow-up geometry lookups
	Ref string
}

// NewElement creates a detached element node
func NewElement(tag string, attrs map[string]string, children ...*Node) *Node {
	if attrs == nil {
		attrs = make(map[string]string)
	}
	n := &Node{Type: ElementNode, Tag: strings.ToLower(tag), Attrs: attrs}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

// NewText creates a detached text node
func NewText(text string) *Node {
	return &Node{Type: TextNode, Text: text}
}

// AppendChild attaches c as the last child of n
func (n *Node) AppendChild(c *Node) {
	if c == nil {
		return
	}
	c.Parent = n
	n.Children = append(n.Children, c)
}

// Attr returns the attribute value, or "" when absent
func (n *Node) Attr(name string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[name]
}

// HasAttr reports whether the attribute is present
func (n *Node) HasAttr(name string) bool {
	if n == nil || n.Attrs == nil {
		return false
	}
	_, ok := n.Attrs[name]
	return ok
}

// IsElement reports whether n is an element with one of the given tags
func (n *Node) IsElement(tags ...string) bool {
	if n == nil || n.Type != ElementNode {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if n.Tag == t {
			return true
		}
	}
	return false
}

// IsFormControl reports whether n is a native form control element
func (n *Node) IsFormControl() bool {
	return n.IsElement("input", "select", "textarea", "button")
}

// Contains reports whether d is n or one of its descendants
func (n *Node) Contains(d *Node) bool {
	for cur := d; cur != nil; cur = cur.Parent {
		if cur == n {
			return true
		}
	}
	return false
}

// Depth returns the number of ancestors of n
func (n *Node) Depth() int {
	depth := 0
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		depth++
	}
	return depth
}

// Closest returns the nearest ancestor (excluding n) matching one of the tags
func (n *Node) Closest(tags ...string) *Node {
	if n == nil {
		return nil
	}
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur.IsElement(tags...) {
			return cur
		}
	}
	return nil
}

// Walk visits n and its descendants in document order; returning false skips the subtree
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// ContainsControl reports whether n has a form control descendant
func (n *Node) ContainsControl() bool {
	found := false
	n.Walk(func(c *Node) bool {
		if found {
			return false
		}
		if c != n && c.IsFormControl() {
			found = true
			return false
		}
		return true
	})
	return found
}

// TextContent returns the collapsed text of n and its descendants
func (n *Node) TextContent() string {
	return n.TextExcluding(nil)
}

// TextExcluding returns the collapsed text of n, skipping subtrees for which skip returns true
func (n *Node) TextExcluding(skip func(*Node) bool) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*Node)
	walk = func(c *Node) {
		if c.Type == TextNode {
			sb.WriteString(c.Text)
			sb.WriteByte(' ')
			return
		}
		if c != n && skip != nil && skip(c) {
			return
		}
		switch c.Tag {
		case "script", "style", "noscript", "template":
			return
		}
		for _, child := range c.Children {
			walk(child)
		}
	}
	walk(n)
	return CollapseSpace(sb.String())
}

// TextWithoutControls returns the text of n with nested form controls and option lists stripped
func (n *Node) TextWithoutControls() string {
	return n.TextExcluding(func(c *Node) bool {
		return c.IsElement("input", "select", "textarea", "button", "option", "datalist")
	})
}

// PrevSiblings returns the siblings preceding n, nearest first
func (n *Node) PrevSiblings() []*Node {
	if n == nil || n.Parent == nil {
		return nil
	}
	siblings := n.Parent.Children
	var out []*Node
	for i := len(siblings) - 1; i >= 0; i-- {
		if siblings[i] == n {
			for j := i - 1; j >= 0; j-- {
				out = append(out, siblings[j])
			}
			break
		}
	}
	return out
}

// NextSiblings returns the siblings following n, nearest first
func (n *Node) NextSiblings() []*Node {
	if n == nil || n.Parent == nil {
		return nil
	}
	siblings := n.Parent.Children
	for i, s := range siblings {
		if s == n {
			return append([]*Node(nil), siblings[i+1:]...)
		}
	}
	return nil
}

// ComputedDisplay returns the node's display value, falling back to the tag default
func (n *Node) ComputedDisplay() string {
	if n.Style != nil && n.Style.Display != "" {
		return n.Style.Display
	}
	switch n.Tag {
	case "div", "p", "section", "fieldset", "legend", "form", "header", "article",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "table", "caption":
		return "block"
	}
	return "inline"
}

// Hidden reports whether n or one of its ancestors is hidden from the user
func (n *Node) Hidden() bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != ElementNode {
			continue
		}
		if cur.HasAttr("hidden") || strings.EqualFold(cur.Attr("aria-hidden"), "true") {
			return true
		}
		if cur.Style != nil {
			if cur.Style.Display == "none" {
				return true
			}
			if cur.Style.Visibility == "hidden" || cur.Style.Visibility == "collapse" {
				return true
			}
		}
	}
	return false
}

// CommonAncestor returns the deepest node containing every node in nodes
func CommonAncestor(nodes []*Node) *Node {
	if len(nodes) == 0 {
		return nil
	}
	candidate := nodes[0].Parent
	for candidate != nil {
		all := true
		for _, n := range nodes[1:] {
			if !candidate.Contains(n) {
				all = false
				break
			}
		}
		if all {
			return candidate
		}
		candidate = candidate.Parent
	}
	return nil
}

// CollapseSpace trims the string and collapses internal whitespace runs to single spaces
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
