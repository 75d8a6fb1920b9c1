// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"encoding/json"
	"fmt"

	"regform-scan/internal/dom"
)

// snapshotScript serializes document.body into the dom.Snapshot wire shape.
// Every element is remembered in window.__regformNodes so that later
// geometry lookups can address it by ref.
const snapshotScript = `(() => {
  const skip = new Set(["SCRIPT", "STYLE", "NOSCRIPT", "TEMPLATE", "SVG", "IFRAME"]);
  const nodes = [];
  const walk = (el) => {
    const ref = nodes.length;
    nodes.push(el);
    const attrs = {};
    for (const a of el.attributes) attrs[a.name] = a.value;
    const r = el.getBoundingClientRect();
    const cs = getComputedStyle(el);
    const out = {
      tag: el.tagName.toLowerCase(),
      attrs: attrs,
      ref: String(ref),
      rect: {top: r.top + scrollY, left: r.left + scrollX, width: r.width, height: r.height},
      style: {
        font_size: parseFloat(cs.fontSize) || 0,
        font_weight: parseInt(cs.fontWeight, 10) || 0,
        margin_top: parseFloat(cs.marginTop) || 0,
        display: cs.display,
        visibility: cs.visibility
      },
      children: []
    };
    for (const c of el.childNodes) {
      if (c.nodeType === Node.TEXT_NODE) {
        if (c.textContent.trim() !== "") out.children.push({text: c.textContent});
      } else if (c.nodeType === Node.ELEMENT_NODE && !skip.has(c.tagName)) {
        out.children.push(walk(c));
      }
    }
    return out;
  };
  const root = walk(document.body || document.documentElement);
  window.__regformNodes = nodes;
  return {address: location.href, title: document.title, root: root};
})()`

// rectScript looks up a remembered element's current bounding box
const rectScript = `((ref) => {
  const el = (window.__regformNodes || [])[ref];
  if (!el || !el.isConnected) return {found: false};
  const r = el.getBoundingClientRect();
  return {found: true, top: r.top + scrollY, left: r.left + scrollX, width: r.width, height: r.height};
})(%d)`

// observerScript installs a MutationObserver that counts structural changes
const observerScript = `(() => {
  if (window.__regformObserver) return window.__regformMutations || 0;
  window.__regformMutations = 0;
  window.__regformObserver = new MutationObserver(() => { window.__regformMutations++; });
  window.__regformObserver.observe(document.documentElement, {childList: true, subtree: true, attributes: true});
  return 0;
})()`

const mutationCountScript = `window.__regformMutations || 0`

type rectResult struct {
	Found  bool    `json:"found"`
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// decodeRect turns a rectScript result into a rectangle; a detached element yields nil
func decodeRect(raw []byte) (*dom.Rect, error) {
	var res rectResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode rect: %w", err)
	}
	if !res.Found {
		return nil, nil
	}
	return &dom.Rect{Top: res.Top, Left: res.Left, Width: res.Width, Height: res.Height}, nil
}
