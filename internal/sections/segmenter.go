// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package sections

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"regform-scan/internal/detector"
	"regform-scan/internal/dom"
)

// Defaults for the segmenter thresholds
const (
	DefaultBodyFontSize        = 16.0
	DefaultProminenceThreshold = 0.5
	DefaultMaxHeaderDistance   = 400.0
	DefaultClusterGap          = 48.0
	DefaultMinSpacing          = 16.0
	DefaultMinFields           = 2

	// LeadingSectionName holds fields above the first accepted header
	LeadingSectionName = "General"
	// DefaultSectionName is used when no structure can be inferred
	DefaultSectionName = "Form"

	maxHeaderText = 80
)

// Options configures the Segmenter
type Options struct {
	BodyFontSize        float64 `yaml:"body_font_size"`
	ProminenceThreshold float64 `yaml:"prominence_threshold"`
	MaxHeaderDistance   float64 `yaml:"max_header_distance"`
	ClusterGap          float64 `yaml:"cluster_gap"`
	MinSpacing          float64 `yaml:"min_spacing"`
	MinFields           int     `yaml:"min_fields"`
	Weights             Weights `yaml:"weights"`
}

// DefaultOptions returns the stock segmenter configuration
func DefaultOptions() Options {
	return Options{
		BodyFontSize:        DefaultBodyFontSize,
		ProminenceThreshold: DefaultProminenceThreshold,
		MaxHeaderDistance:   DefaultMaxHeaderDistance,
		ClusterGap:          DefaultClusterGap,
		MinSpacing:          DefaultMinSpacing,
		MinFields:           DefaultMinFields,
		Weights:             DefaultWeights(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.BodyFontSize <= 0 {
		o.BodyFontSize = d.BodyFontSize
	}
	if o.ProminenceThreshold <= 0 {
		o.ProminenceThreshold = d.ProminenceThreshold
	}
	if o.MaxHeaderDistance <= 0 {
		o.MaxHeaderDistance = d.MaxHeaderDistance
	}
	if o.ClusterGap <= 0 {
		o.ClusterGap = d.ClusterGap
	}
	if o.MinSpacing <= 0 {
		o.MinSpacing = d.MinSpacing
	}
	if o.MinFields <= 0 {
		o.MinFields = d.MinFields
	}
	if o.Weights == (Weights{}) {
		o.Weights = d.Weights
	}
	return o
}

// Result is the segmenter's output. Every field appears in exactly one section.
type Result struct {
	Sections    []detector.Section
	Diagnostics []string
}

// Segmenter groups field records into named sections
type Segmenter struct {
	opts Options
}

// NewSegmenter creates a segmenter, filling zero options with defaults
func NewSegmenter(opts Options) *Segmenter {
	return &Segmenter{opts: opts.withDefaults()}
}

// header is an accepted or candidate section header
type header struct {
	name      string
	node      *dom.Node
	rect      *dom.Rect
	order     int
	container *dom.Node
}

// Segment detects headers in doc and assigns each field to a section
func (s *Segmenter) Segment(doc *dom.Document, fields []detector.FieldRecord) Result {
	var res Result
	if len(fields) == 0 {
		return res
	}

	order := documentOrder(doc)
	cands := s.candidates(doc, order)
	headers := s.accept(cands, fields, order)

	if len(headers) > 0 {
		res.Sections = s.band(headers, fields, order)
	} else {
		res.Sections = s.cluster(fields)
		if len(res.Sections) > 1 {
			res.Diagnostics = append(res.Diagnostics,
				fmt.Sprintf("no section headers accepted; inferred %d sections from vertical gaps", len(res.Sections)))
		}
	}
	if len(res.Sections) == 0 {
		res.Sections = []detector.Section{defaultSection(fields)}
	}

	res.Sections = compact(res.Sections)
	return res
}

// documentOrder indexes every node by its position in a depth-first walk
func documentOrder(doc *dom.Document) map[*dom.Node]int {
	order := make(map[*dom.Node]int)
	if doc == nil || doc.Root == nil {
		return order
	}
	i := 0
	doc.Root.Walk(func(n *dom.Node) bool {
		order[n] = i
		i++
		return true
	})
	return order
}

func fieldOrder(f *detector.FieldRecord, order map[*dom.Node]int) int {
	if f.Node == nil {
		return -1
	}
	if i, ok := order[f.Node]; ok {
		return i
	}
	return -1
}

// candidates lists header-like elements in document order
func (s *Segmenter) candidates(doc *dom.Document, order map[*dom.Node]int) []header {
	if doc == nil || doc.Root == nil {
		return nil
	}
	var out []header
	doc.Root.Walk(func(n *dom.Node) bool {
		if n.Type != dom.ElementNode {
			return false
		}
		if n.IsElement("label", "option", "select", "textarea", "button", "script", "style", "head") {
			return false
		}
		if !s.isCandidate(n) {
			return true
		}
		if n.Hidden() {
			return false
		}
		name := headerName(n.TextWithoutControls())
		if name == "" {
			return true
		}
		out = append(out, header{name: name, node: n, rect: n.Rect, order: order[n]})
		return false
	})

	for i := range out {
		out[i].container = structuralContainer(out[i], out)
	}
	return out
}

func (s *Segmenter) isCandidate(n *dom.Node) bool {
	if n.IsElement("h1", "h2", "h3", "h4", "h5", "h6", "legend", "caption") {
		return true
	}
	if strings.EqualFold(n.Attr("role"), "heading") {
		return true
	}
	if n.ContainsControl() {
		return false
	}
	return prominence(n, s.opts) > s.opts.ProminenceThreshold
}

// structuralContainer returns the section-like element a header titles: the
// closest fieldset, section or article in which it is the first header
func structuralContainer(h header, all []header) *dom.Node {
	c := h.node.Closest("fieldset", "section", "article")
	if c == nil || c == h.node {
		return nil
	}
	for _, other := range all {
		if other.order < h.order && c.Contains(other.node) {
			return nil
		}
	}
	return c
}

func headerName(text string) string {
	name := strings.TrimRight(dom.CollapseSpace(text), ": ")
	if utf8.RuneCountInString(name) > maxHeaderText {
		name = string([]rune(name)[:maxHeaderText])
	}
	return name
}

// accept applies the validity filter: a header must be followed by at least
// MinFields distinct field records and must not merely caption one field
func (s *Segmenter) accept(cands []header, fields []detector.FieldRecord, order map[*dom.Node]int) []header {
	labels := make(map[string]bool, len(fields))
	for _, f := range fields {
		labels[strings.ToLower(f.Label.Text)] = true
	}

	var kept []header
	for _, h := range cands {
		if !labels[strings.ToLower(h.name)] {
			kept = append(kept, h)
		}
	}

	var out []header
	for i, h := range kept {
		if s.followers(h, kept, i, fields, order) >= s.opts.MinFields {
			out = append(out, h)
		}
	}
	return out
}

// followers counts the field records that belong under cands[idx], stopping
// at the next candidate below it
func (s *Segmenter) followers(h header, cands []header, idx int, fields []detector.FieldRecord, order map[*dom.Node]int) int {
	count := 0
	switch {
	case h.container != nil:
		for i := range fields {
			if fields[i].ContainedBy(h.container) {
				count++
			}
		}
	case h.rect != nil:
		limit := -1.0
		for _, c := range cands {
			if c.rect != nil && c.rect.Top > h.rect.Top && (limit < 0 || c.rect.Top < limit) {
				limit = c.rect.Top
			}
		}
		for i := range fields {
			f := &fields[i]
			if !f.HasGeometry() {
				continue
			}
			gap := f.Rect.Top - h.rect.Bottom()
			if gap >= 0 && gap <= s.opts.MaxHeaderDistance && (limit < 0 || f.Rect.Top < limit) {
				count++
			}
		}
	default:
		// Without geometry or structure, fall back to the fields between this
		// header and the next candidate in document order
		limit := -1
		if idx+1 < len(cands) {
			limit = cands[idx+1].order
		}
		for i := range fields {
			o := fieldOrder(&fields[i], order)
			if o > h.order && (limit < 0 || o < limit) {
				count++
			}
		}
	}
	return count
}

// band assigns fields to the accepted headers
func (s *Segmenter) band(headers []header, fields []detector.FieldRecord, order map[*dom.Node]int) []detector.Section {
	geometric := true
	for _, h := range headers {
		if h.rect == nil {
			geometric = false
			break
		}
	}
	if geometric {
		sort.SliceStable(headers, func(i, j int) bool { return headers[i].rect.Top < headers[j].rect.Top })
	} else {
		sort.SliceStable(headers, func(i, j int) bool { return headers[i].order < headers[j].order })
	}

	formBottom := 0.0
	for i := range fields {
		if fields[i].HasGeometry() {
			formBottom = max(formBottom, fields[i].Rect.Bottom())
		}
	}

	// Section 0 is the implicit leading section; header i owns section i+1
	secs := make([]detector.Section, len(headers)+1)
	secs[0] = detector.Section{Name: LeadingSectionName, Origin: detector.OriginDefault}
	for i, h := range headers {
		sec := detector.Section{Name: h.name, Origin: detector.OriginStructural, Container: h.container}
		if h.rect != nil {
			sec.Top = h.rect.Bottom()
			sec.Bottom = formBottom
			if i+1 < len(headers) && headers[i+1].rect != nil {
				sec.Bottom = headers[i+1].rect.Top
			}
		}
		secs[i+1] = sec
	}

	prev := 0
	for i := range fields {
		f := fields[i]
		idx, ok := containerSection(&f, headers)
		if !ok {
			idx, ok = geometricSection(&f, headers, geometric)
		}
		if !ok {
			idx, ok = orderSection(&f, headers, order)
		}
		if !ok {
			idx = prev
		}
		prev = idx
		secs[idx].Fields = append(secs[idx].Fields, f)
	}
	if geometric {
		lead := &secs[0]
		lead.Bottom = headers[0].rect.Top
		lead.Top = lead.Bottom
		for i := range lead.Fields {
			if lead.Fields[i].HasGeometry() {
				lead.Top = min(lead.Top, lead.Fields[i].Rect.Top)
			}
		}
	}
	return secs
}

// containerSection picks the innermost header container holding the field
func containerSection(f *detector.FieldRecord, headers []header) (int, bool) {
	best, depth := -1, -1
	for i, h := range headers {
		if h.container == nil || !f.ContainedBy(h.container) {
			continue
		}
		if d := h.container.Depth(); d > depth {
			best, depth = i, d
		}
	}
	if best < 0 {
		return 0, false
	}
	return best + 1, true
}

// geometricSection picks the last header starting at or above the field
func geometricSection(f *detector.FieldRecord, headers []header, geometric bool) (int, bool) {
	if !geometric || !f.HasGeometry() {
		return 0, false
	}
	idx := 0
	for i, h := range headers {
		if h.rect.Bottom() <= f.Rect.Top {
			idx = i + 1
		}
	}
	return idx, true
}

// orderSection picks the last header preceding the field in document order
func orderSection(f *detector.FieldRecord, headers []header, order map[*dom.Node]int) (int, bool) {
	o := fieldOrder(f, order)
	if o < 0 {
		return 0, false
	}
	best, bestOrder := -1, -1
	for i, h := range headers {
		if h.order < o && h.order > bestOrder {
			best, bestOrder = i, h.order
		}
	}
	return best + 1, true
}

// cluster splits the fields wherever the vertical gap between consecutive
// fields exceeds ClusterGap. Fields without geometry join the section of the
// field before them.
func (s *Segmenter) cluster(fields []detector.FieldRecord) []detector.Section {
	type placed struct {
		idx int
		top float64
		bot float64
	}
	var geo []placed
	for i := range fields {
		if fields[i].HasGeometry() {
			geo = append(geo, placed{idx: i, top: fields[i].Rect.Top, bot: fields[i].Rect.Bottom()})
		}
	}
	if len(geo) < 2 {
		return nil
	}
	sort.SliceStable(geo, func(i, j int) bool { return geo[i].top < geo[j].top })

	assign := make(map[int]int, len(fields))
	var secs []detector.Section
	cur := detector.Section{Top: geo[0].top, Bottom: geo[0].bot, Origin: detector.OriginCluster}
	assign[geo[0].idx] = 0
	for _, p := range geo[1:] {
		if p.top-cur.Bottom > s.opts.ClusterGap {
			secs = append(secs, cur)
			cur = detector.Section{Top: p.top, Bottom: p.bot, Origin: detector.OriginCluster}
		}
		cur.Bottom = max(cur.Bottom, p.bot)
		assign[p.idx] = len(secs)
	}
	secs = append(secs, cur)
	if len(secs) < 2 {
		return nil
	}
	for i := range secs {
		secs[i].Name = fmt.Sprintf("Section %d", i+1)
	}

	prev := 0
	for i := range fields {
		idx, ok := assign[i]
		if !ok {
			idx = prev
		}
		prev = idx
		secs[idx].Fields = append(secs[idx].Fields, fields[i])
	}
	return secs
}

func defaultSection(fields []detector.FieldRecord) detector.Section {
	sec := detector.Section{Name: DefaultSectionName, Origin: detector.OriginDefault}
	first := true
	for i := range fields {
		f := &fields[i]
		sec.Fields = append(sec.Fields, *f)
		if !f.HasGeometry() {
			continue
		}
		if first {
			sec.Top, sec.Bottom = f.Rect.Top, f.Rect.Bottom()
			first = false
			continue
		}
		sec.Top = min(sec.Top, f.Rect.Top)
		sec.Bottom = max(sec.Bottom, f.Rect.Bottom())
	}
	return sec
}

// compact drops empty sections and numbers the rest, stamping each field
// with its section index
func compact(secs []detector.Section) []detector.Section {
	out := secs[:0]
	for _, sec := range secs {
		if len(sec.Fields) == 0 {
			continue
		}
		sec.Index = len(out)
		for i := range sec.Fields {
			sec.Fields[i].SectionIndex = sec.Index
		}
		out = append(out, sec)
	}
	return out
}
