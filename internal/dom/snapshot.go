// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package dom

import (
	"encoding/json"
	"fmt"
	"io"
)

// SnapshotNode is the wire shape of one node in a host snapshot
type SnapshotNode struct {
	Tag      string            `json:"tag,omitempty"`
	Text     string            `json:"text,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Rect     *Rect             `json:"rect,omitempty"`
	Style    *Style            `json:"style,omitempty"`
	Ref      string            `json:"ref,omitempty"`
	Children []SnapshotNode    `json:"children,omitempty"`
}

// Snapshot is a serialized element tree captured by a hosting collaborator
type Snapshot struct {
	Address string       `json:"address"`
	Title   string       `json:"title,omitempty"`
	Root    SnapshotNode `json:"root"`
}

// DecodeSnapshot reads a JSON snapshot and builds a Document from it
func DecodeSnapshot(r io.Reader) (*Document, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap.Document(), nil
}

// Document converts the snapshot into an indexed Document
func (s *Snapshot) Document() *Document {
	root := fromSnapshot(s.Root)
	doc := NewDocument(root, s.Address)
	if s.Title != "" {
		doc.Title = s.Title
	}
	return doc
}

func fromSnapshot(sn SnapshotNode) *Node {
	if sn.Tag == "" {
		return NewText(sn.Text)
	}
	n := NewElement(sn.Tag, copyAttrs(sn.Attrs))
	n.Rect = sn.Rect
	n.Style = sn.Style
	n.Ref = sn.Ref
	for _, c := range sn.Children {
		n.AppendChild(fromSnapshot(c))
	}
	return n
}

// ToSnapshot serializes a Document so that a captured page can be replayed offline
func ToSnapshot(d *Document) Snapshot {
	return Snapshot{Address: d.Address, Title: d.Title, Root: toSnapshot(d.Root)}
}

func toSnapshot(n *Node) SnapshotNode {
	if n.Type == TextNode {
		return SnapshotNode{Text: n.Text}
	}
	sn := SnapshotNode{Tag: n.Tag, Attrs: copyAttrs(n.Attrs), Rect: n.Rect, Style: n.Style, Ref: n.Ref}
	for _, c := range n.Children {
		sn.Children = append(sn.Children, toSnapshot(c))
	}
	return sn
}

func copyAttrs(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
