// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package dom

import (
	"strings"
)

// Document is an element tree together with the page address it was captured from
type Document struct {
	Root    *Node
	Address string
	Title   string

	byID      map[string]*Node
	labelsFor map[string][]*Node
}

// NewDocument indexes the tree for id and label lookups
func NewDocument(root *Node, address string) *Document {
	d := &Document{
		Root:      root,
		Address:   address,
		byID:      make(map[string]*Node),
		labelsFor: make(map[string][]*Node),
	}
	root.Walk(func(n *Node) bool {
		if n.Type != ElementNode {
			return true
		}
		if id := n.Attr("id"); id != "" {
			if _, exists := d.byID[id]; !exists {
				d.byID[id] = n
			}
		}
		if n.Tag == "label" {
			if target := n.Attr("for"); target != "" {
				d.labelsFor[target] = append(d.labelsFor[target], n)
			}
		}
		if n.Tag == "title" && d.Title == "" {
			d.Title = n.TextContent()
		}
		return true
	})
	return d
}

// ByID returns the first element with the given id
func (d *Document) ByID(id string) *Node {
	return d.byID[id]
}

// LabelsFor returns the label elements explicitly associated with the id
func (d *Document) LabelsFor(id string) []*Node {
	return d.labelsFor[id]
}

// HeadingText returns the page title and the text of the most prominent headings.
// Only h1/h2 and the title are considered so that incidental body text cannot
// influence jurisdiction detection.
func (d *Document) HeadingText() string {
	parts := []string{}
	if d.Title != "" {
		parts = append(parts, d.Title)
	}
	count := 0
	d.Root.Walk(func(n *Node) bool {
		if count >= 6 {
			return false
		}
		if n.IsElement("h1", "h2") {
			if t := n.TextContent(); t != "" {
				parts = append(parts, t)
				count++
			}
			return false
		}
		return true
	})
	return strings.Join(parts, " | ")
}

// Elements returns every element node in document order
func (d *Document) Elements() []*Node {
	var out []*Node
	d.Root.Walk(func(n *Node) bool {
		if n.Type == ElementNode {
			out = append(out, n)
		}
		return true
	})
	return out
}
