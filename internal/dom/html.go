// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package dom

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// RectAttr carries pre-computed geometry on static markup ("top,left,width,height")
const RectAttr = "data-rect"

// ParseHTML builds a Document from markup. Geometry is read from the data-rect
// attribute and style hints from the inline style attribute; both are optional.
func ParseHTML(r io.Reader, address string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	converted := convert(root, nil)
	if converted == nil {
		converted = NewElement("html", nil)
	}
	return NewDocument(converted, address), nil
}

// convert copies an x/net/html tree into the package's node model
func convert(n *html.Node, parent *Node) *Node {
	var out *Node
	switch n.Type {
	case html.DocumentNode:
		out = NewElement("#document", nil)
	case html.ElementNode:
		attrs := make(map[string]string, len(n.Attr))
		for _, a := range n.Attr {
			attrs[strings.ToLower(a.Key)] = a.Val
		}
		out = NewElement(n.Data, attrs)
		out.Rect = parseRectAttr(attrs[RectAttr])
		out.Style = parseInlineStyle(attrs["style"])
	case html.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return nil
		}
		out = NewText(n.Data)
	default:
		return nil
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if child := convert(c, out); child != nil {
			out.AppendChild(child)
		}
	}
	return out
}

// parseRectAttr parses "top,left,width,height"; malformed values yield nil geometry
func parseRectAttr(v string) *Rect {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	if len(parts) != 4 {
		return nil
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil
		}
		vals[i] = f
	}
	return &Rect{Top: vals[0], Left: vals[1], Width: vals[2], Height: vals[3]}
}

// parseInlineStyle extracts the subset of declarations used for prominence scoring
func parseInlineStyle(v string) *Style {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	style := &Style{}
	seen := false
	for _, decl := range strings.Split(v, ";") {
		key, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.ToLower(strings.TrimSpace(val))
		switch key {
		case "font-size":
			if f, ok := parsePixels(val); ok {
				style.FontSize = f
				seen = true
			}
		case "font-weight":
			switch val {
			case "bold", "bolder":
				style.FontWeight = 700
				seen = true
			case "normal":
				style.FontWeight = 400
				seen = true
			default:
				if w, err := strconv.Atoi(val); err == nil {
					style.FontWeight = w
					seen = true
				}
			}
		case "margin-top":
			if f, ok := parsePixels(val); ok {
				style.MarginTop = f
				seen = true
			}
		case "display":
			style.Display = val
			seen = true
		case "visibility":
			style.Visibility = val
			seen = true
		}
	}
	if !seen {
		return nil
	}
	return style
}

// parsePixels accepts "12px", "12" and "1.5em" (em relative to a 16px base)
func parsePixels(v string) (float64, bool) {
	scale := 1.0
	switch {
	case strings.HasSuffix(v, "px"):
		v = strings.TrimSuffix(v, "px")
	case strings.HasSuffix(v, "rem"):
		v = strings.TrimSuffix(v, "rem")
		scale = 16
	case strings.HasSuffix(v, "em"):
		v = strings.TrimSuffix(v, "em")
		scale = 16
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f * scale, true
}
